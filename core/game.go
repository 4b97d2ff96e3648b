package core

import (
	"encoding/hex"
	"fmt"
)

// GamePhase gates which GameLedger operations are valid.
type GamePhase string

const (
	PhaseMinting     GamePhase = "minting"
	PhasePurgeWindow GamePhase = "purge_window"
	PhaseEndgame     GamePhase = "endgame"
	PhaseMaintenance GamePhase = "maintenance"
)

// nextPhase lists the in-level phase edges. Maintenance has no in-level
// successor; leaving it requires a level advance.
var nextPhase = map[GamePhase]GamePhase{
	PhaseMinting:     PhasePurgeWindow,
	PhasePurgeWindow: PhaseEndgame,
	PhaseEndgame:     PhaseMaintenance,
}

// Next returns the in-level successor of p, or false when p is the last
// phase of a level.
func (p GamePhase) Next() (GamePhase, bool) {
	n, ok := nextPhase[p]
	return n, ok
}

// Word is the 256-bit value revealed by the RNG provider.
type Word [32]byte

// Tag is the opaque caller tag attached to an RNG request.
type Tag [8]byte

func (w Word) IsZero() bool { return w == Word{} }

func (w Word) MarshalText() ([]byte, error) { return []byte(hex.EncodeToString(w[:])), nil }

func (w *Word) UnmarshalText(text []byte) error { return decodeFixedHex(w[:], text, "rng word") }

func (t Tag) MarshalText() ([]byte, error) { return []byte(hex.EncodeToString(t[:])), nil }

func (t *Tag) UnmarshalText(text []byte) error { return decodeFixedHex(t[:], text, "rng tag") }

func decodeFixedHex(dst, text []byte, what string) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if len(b) != len(dst) {
		return fmt.Errorf("%s must be %d bytes, got %d", what, len(dst), len(b))
	}
	copy(dst, b)
	return nil
}

// GameConfig holds the GameLedger parameters fixed at initialization, some
// of which the authority may later reconfigure.
type GameConfig struct {
	PriceLamports       uint64 `json:"price_lamports" yaml:"price_lamports"`
	PricePurge          uint64 `json:"price_purge" yaml:"price_purge"`
	MaxLevel            uint32 `json:"max_level" yaml:"max_level"`
	CoinLedger          string `json:"coin_ledger" yaml:"coin_ledger"`
	TrophyLedger        string `json:"trophy_ledger" yaml:"trophy_ledger"`
	RngProvider         string `json:"rng_provider" yaml:"rng_provider"` // pubkey hex
	JackpotsPerDay      uint8  `json:"jackpots_per_day" yaml:"jackpots_per_day"`
	EarlyPurgeThreshold uint8  `json:"early_purge_threshold" yaml:"early_purge_threshold"`
	DailyJackpotBps     uint16 `json:"daily_jackpot_bps" yaml:"daily_jackpot_bps"`
	TraitCount          uint16 `json:"trait_count" yaml:"trait_count"`
}

// GameState is the GameLedger singleton.
type GameState struct {
	Authority      string     `json:"authority"` // pubkey hex
	Config         GameConfig `json:"config"`
	Level          uint32     `json:"level"`
	Phase          GamePhase  `json:"phase"`
	JackpotCounter uint16     `json:"jackpot_counter"`
	DailyIndex     uint32     `json:"daily_index"`

	RngLocked          bool  `json:"rng_locked"`
	RngLastRequestSlot int64 `json:"rng_last_request_slot"`
	RngWord            Word  `json:"rng_word"`

	PrizePool          uint64 `json:"prize_pool_lamports"`
	NextPrizePool      uint64 `json:"next_prize_pool_lamports"`
	Carryover          uint64 `json:"carryover_lamports"`
	LastLevelPrizePool uint64 `json:"last_level_prize_pool"`
	CoinPrizePool      uint64 `json:"coin_prize_pool"`

	MapQueueLen          uint32 `json:"map_queue_len"`
	PendingEndgameCursor uint32 `json:"pending_endgame_cursor"`
}

// RngRequest records the single outstanding (or last) randomness request.
type RngRequest struct {
	Slot      int64 `json:"slot"`
	Tag       Tag   `json:"tag"`
	Fulfilled bool  `json:"fulfilled"`
	Consumed  bool  `json:"consumed"`
}

// MapMintItem is a pending mint-fulfillment work item.
type MapMintItem struct {
	Player  string `json:"player"`
	TraitID uint16 `json:"trait_id"`
	Level   uint32 `json:"level"`
}

// MapMintQueue is the GameLedger's bounded FIFO of mint-fulfillment work.
type MapMintQueue = WorkQueue[MapMintItem]

// PlayerState tracks per-player progression and claimable winnings.
type PlayerState struct {
	Owner                string `json:"owner"`
	TotalMints           uint64 `json:"total_mints"`
	TotalPurges          uint64 `json:"total_purges"`
	MintStreak           uint32 `json:"mint_streak"`
	LastLevelInteraction uint32 `json:"last_level_interaction"`
	ClaimableLamports    uint64 `json:"claimable_reward_lamports"`
	ClaimablePurge       uint64 `json:"claimable_reward_purge"`
}
