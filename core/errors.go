package core

import "errors"

// ErrNotFound is returned when a requested object does not exist in storage.
var ErrNotFound = errors.New("not found")

// Authorization failures. Never retried automatically.
var ErrUnauthorized = errors.New("unauthorized")

// Precondition failures. The caller may retry once the state allows it.
var (
	ErrAlreadyInitialized = errors.New("ledger already initialized")
	ErrNotInitialized     = errors.New("ledger not initialized")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrBelowMinimumBet    = errors.New("bet amount below minimum")
	ErrBelowMinimumBurn   = errors.New("burn amount below minimum")
	ErrBetExists          = errors.New("bet id already used")
	ErrPhaseMismatch      = errors.New("action not allowed in current phase")
	ErrMaxLevelReached    = errors.New("maximum level reached")
	ErrRngRequestPending  = errors.New("rng request already pending")
	ErrRngNotLocked       = errors.New("rng not locked")
	ErrRngStale           = errors.New("rng word missing or already consumed")
	ErrTicketPageMismatch = errors.New("trait ticket page header mismatch")
	ErrJackpotRotation    = errors.New("jackpot rotation mismatch")
	ErrQueueNotDrained    = errors.New("map mint queue not drained")
)

// Capacity failures. The caller must drain or rotate before retrying.
var (
	ErrQueueFull      = errors.New("queue is full")
	ErrQueueEmpty     = errors.New("queue is empty")
	ErrTicketPageFull = errors.New("trait ticket page is full")
	ErrStakeLanesFull = errors.New("all stake lanes in use")
)

// Double-settlement guards. These signal an ordering bug upstream.
var (
	ErrBetAlreadyResolved  = errors.New("bet already resolved")
	ErrLevelAlreadySettled = errors.New("level already settled")
	ErrPayoutExceeded      = errors.New("requested payout exceeds pending balance")
)

// ErrorClass groups errors by how a caller is expected to react.
type ErrorClass string

const (
	ClassNone          ErrorClass = "ok"
	ClassAuthorization ErrorClass = "authorization"
	ClassPrecondition  ErrorClass = "precondition"
	ClassCapacity      ErrorClass = "capacity"
	ClassSettlement    ErrorClass = "settlement"
	ClassNotFound      ErrorClass = "not_found"
	ClassInternal      ErrorClass = "internal"
)

var errorClasses = []struct {
	class ErrorClass
	errs  []error
}{
	{ClassAuthorization, []error{ErrUnauthorized}},
	{ClassCapacity, []error{ErrQueueFull, ErrQueueEmpty, ErrTicketPageFull, ErrStakeLanesFull}},
	{ClassSettlement, []error{ErrBetAlreadyResolved, ErrLevelAlreadySettled, ErrPayoutExceeded}},
	{ClassPrecondition, []error{
		ErrAlreadyInitialized, ErrNotInitialized, ErrInvalidArgument,
		ErrBelowMinimumBet, ErrBelowMinimumBurn, ErrBetExists,
		ErrPhaseMismatch, ErrMaxLevelReached,
		ErrRngRequestPending, ErrRngNotLocked, ErrRngStale,
		ErrTicketPageMismatch, ErrJackpotRotation, ErrQueueNotDrained,
	}},
	{ClassNotFound, []error{ErrNotFound}},
}

// Classify maps err onto its ErrorClass. Unknown errors are internal.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassNone
	}
	for _, group := range errorClasses {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.class
			}
		}
	}
	return ClassInternal
}
