package events

import (
	"log/slog"
	"sync"
)

// EventType labels what happened.
type EventType string

const (
	EventBlockCommit   EventType = "block_commit"
	EventTxExecuted    EventType = "tx_executed"
	EventTxRejected    EventType = "tx_rejected"
	EventTokenTransfer EventType = "token_transfer"

	// EconomyLedger
	EventEconomyInitialized EventType = "econ_initialized"
	EventEconomyConfigured  EventType = "econ_configured"
	EventBetPlaced          EventType = "econ_bet_placed"
	EventBetSettled         EventType = "econ_bet_settled"
	EventBurnRecorded       EventType = "econ_burn_recorded"
	EventAffiliateRewarded  EventType = "econ_affiliate_rewarded"
	EventAffiliateClaimed   EventType = "econ_affiliate_claimed"
	EventJackpotSynced      EventType = "econ_jackpot_synced"

	// GameLedger
	EventGameInitialized EventType = "game_initialized"
	EventGameConfigured  EventType = "game_configured"
	EventMinted          EventType = "game_minted"
	EventPurged          EventType = "game_purged"
	EventPhaseAdvanced   EventType = "game_phase_advanced"
	EventLevelAdvanced   EventType = "game_level_advanced"
	EventRngRequested    EventType = "game_rng_requested"
	EventRngFulfilled    EventType = "game_rng_fulfilled"
	EventMapMintQueued   EventType = "game_map_mint_queued"
	EventMapMintDequeued EventType = "game_map_mint_dequeued"
	EventJackpotPaid     EventType = "game_jackpot_paid"
	EventJackpotDaily    EventType = "game_jackpot_daily"
	EventJackpotMap      EventType = "game_jackpot_map"
	EventEndgameStep     EventType = "game_endgame_step"
	EventWinningsClaimed EventType = "game_winnings_claimed"

	// RewardsLedger
	EventRewardsInitialized EventType = "rewards_initialized"
	EventTrophyAwarded      EventType = "rewards_trophy_awarded"
	EventLevelSettled       EventType = "rewards_level_settled"
	EventMapRewardQueued    EventType = "rewards_map_reward_queued"
	EventMapRewardPopped    EventType = "rewards_map_reward_popped"
	EventTraitTicketAdded   EventType = "rewards_trait_ticket_added"
	EventTraitTicketCleared EventType = "rewards_trait_ticket_cleared"
)

// Event carries a typed payload emitted after a state change.
type Event struct {
	Type        EventType      `json:"type"`
	TxID        string         `json:"tx_id"`
	BlockHeight int64          `json:"block_height"`
	Data        map[string]any `json:"data"`
}

// Handler is a callback invoked for matching events.
type Handler func(Event)

// Emitter is a simple pub/sub broker. Subscribe before Emit.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	all      []Handler
}

// NewEmitter creates an Emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[EventType][]Handler)}
}

// Subscribe registers h to be called whenever typ is emitted.
func (e *Emitter) Subscribe(typ EventType, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[typ] = append(e.handlers[typ], h)
}

// SubscribeAll registers h for every event type.
func (e *Emitter) SubscribeAll(h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.all = append(e.all, h)
}

// Emit delivers ev to all subscribers for ev.Type synchronously, then to the
// catch-all subscribers. Each handler is guarded by panic recovery so a
// misbehaving subscriber cannot crash the node or halt block production.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	handlers := make([]Handler, 0, len(e.handlers[ev.Type])+len(e.all))
	handlers = append(handlers, e.handlers[ev.Type]...)
	handlers = append(handlers, e.all...)
	e.mu.RUnlock()
	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("event handler panicked", "component", "events", "type", string(ev.Type), "panic", r)
				}
			}()
			h(ev)
		}()
	}
}
