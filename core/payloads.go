package core

// ---- EconomyLedger payloads ----

// InitEconomyPayload creates the EconomyLedger singleton. An empty Authority
// makes the sender the authority.
type InitEconomyPayload struct {
	Authority    string `json:"authority,omitempty" yaml:"authority"`
	MinBet       uint64 `json:"min_bet" yaml:"min_bet"`
	MinBurn      uint64 `json:"min_burn" yaml:"min_burn"`
	HouseEdgeBps uint16 `json:"house_edge_bps" yaml:"house_edge_bps"`
	BurnTaxBps   uint16 `json:"burn_tax_bps" yaml:"burn_tax_bps"`
}

// ConfigureEconomyPayload updates the non-nil parameters.
type ConfigureEconomyPayload struct {
	MinBet       *uint64 `json:"min_bet,omitempty"`
	MinBurn      *uint64 `json:"min_burn,omitempty"`
	HouseEdgeBps *uint16 `json:"house_edge_bps,omitempty"`
	BurnTaxBps   *uint16 `json:"burn_tax_bps,omitempty"`
}

// PlaceBetPayload places a wager for the sender.
type PlaceBetPayload struct {
	Amount      uint64 `json:"amount"`
	Risk        uint8  `json:"risk"`
	TargetLevel uint32 `json:"target_level"`
	BetID       uint64 `json:"bet_id"`
}

// SettleBetPayload resolves a bet.
type SettleBetPayload struct {
	Player string `json:"player"`
	BetID  uint64 `json:"bet_id"`
	Result bool   `json:"result"`
	Payout uint64 `json:"payout"`
}

// RecordBurnPayload records a burn by the sender.
type RecordBurnPayload struct {
	Amount uint64 `json:"amount"`
}

// AwardAffiliatePayload accrues an affiliate reward.
type AwardAffiliatePayload struct {
	CodeSeed       string `json:"code_seed"`
	Amount         uint64 `json:"amount"`
	AmountLamports uint64 `json:"amount_lamports,omitempty"`
}

// ClaimAffiliatePayload claims part of an affiliate's pending balance.
type ClaimAffiliatePayload struct {
	CodeSeed string `json:"code_seed"`
	Amount   uint64 `json:"amount"`
}

// SyncJackpotPayload allocates game-side jackpot balance into the economy.
type SyncJackpotPayload struct {
	Level  uint32 `json:"level"`
	Amount uint64 `json:"amount"`
}

// ---- GameLedger payloads ----

// InitGamePayload creates the GameLedger singleton.
type InitGamePayload struct {
	Authority string     `json:"authority,omitempty" yaml:"authority"`
	Config    GameConfig `json:"config" yaml:"config"`
}

// ConfigureGamePayload updates the non-nil parameters.
type ConfigureGamePayload struct {
	PriceLamports       *uint64 `json:"price_lamports,omitempty"`
	PricePurge          *uint64 `json:"price_purge,omitempty"`
	JackpotsPerDay      *uint8  `json:"jackpots_per_day,omitempty"`
	EarlyPurgeThreshold *uint8  `json:"early_purge_threshold,omitempty"`
	RngProvider         *string `json:"rng_provider,omitempty"`
	DailyJackpotBps     *uint16 `json:"daily_jackpot_bps,omitempty"`
}

// PaymentKind selects the currency a mint is paid in.
type PaymentKind string

const (
	PaySol    PaymentKind = "sol"
	PayPurge  PaymentKind = "purge"
	PayHybrid PaymentKind = "hybrid"
)

// MintPayment describes how a mint is paid. Hybrid mints carry explicit
// amounts; the other kinds are priced from the game config.
type MintPayment struct {
	Kind  PaymentKind `json:"kind"`
	Sol   uint64      `json:"sol,omitempty"`
	Purge uint64      `json:"purge,omitempty"`
}

// MintPayload mints Quantity tokens for the sender.
type MintPayload struct {
	Quantity uint16      `json:"quantity"`
	Payment  MintPayment `json:"payment"`
}

// PurgePayload burns the sender's tokens during the purge window.
type PurgePayload struct {
	TokenIDs     []uint64 `json:"token_ids"`
	UsePurgeCoin bool     `json:"use_purge_coin"`
}

// AdvanceLevelPayload moves the game to the next level. Force skips the
// Maintenance phase requirement but never the level cap.
type AdvanceLevelPayload struct {
	Force bool `json:"force"`
}

// RequestRngPayload opens the single RNG request slot.
type RequestRngPayload struct {
	Tag Tag `json:"tag"`
}

// FulfillRngPayload reveals the RNG word.
type FulfillRngPayload struct {
	Word Word `json:"word"`
}

// QueueMapMintPayload enqueues a mint-fulfillment work item.
type QueueMapMintPayload struct {
	Player  string `json:"player"`
	TraitID uint16 `json:"trait_id"`
	Level   uint32 `json:"level"`
}

// JackpotDailyPayload runs the daily jackpot for Day.
type JackpotDailyPayload struct {
	Day uint32 `json:"day"`
}

// JackpotMapPayload settles up to Max queued map rewards for Round.
type JackpotMapPayload struct {
	Round uint16 `json:"round"`
	Max   uint16 `json:"max"`
}

// FinalizeEndgamePayload drains up to Batch map mint items.
type FinalizeEndgamePayload struct {
	Batch uint16 `json:"batch"`
}

// ClaimWinningsPayload pays out part of the sender's claimable balances.
type ClaimWinningsPayload struct {
	Lamports uint64 `json:"lamports"`
	Purge    uint64 `json:"purge"`
}

// ---- RewardsLedger payloads ----

// InitRewardsPayload creates the RewardsLedger singleton.
type InitRewardsPayload struct {
	Authority        string `json:"authority,omitempty" yaml:"authority"`
	GameAuthority    string `json:"game_authority" yaml:"game_authority"`
	MapRewardBps     uint16 `json:"map_reward_basis_points" yaml:"map_reward_basis_points"`
	MapRewardMinimum uint64 `json:"map_reward_minimum" yaml:"map_reward_minimum"`
	CoinLedger       string `json:"coin_ledger" yaml:"coin_ledger"`
	GameLedger       string `json:"game_ledger" yaml:"game_ledger"`
}

// AwardTrophyPayload accrues a deferred trophy payout.
type AwardTrophyPayload struct {
	Level            uint32 `json:"level"`
	Kind             uint8  `json:"kind"`
	Data             string `json:"data,omitempty"` // opaque 128-bit trophy data, hex
	DeferredLamports uint64 `json:"deferred_lamports"`
}

// ProcessEndLevelPayload settles the trophy vault for Level.
type ProcessEndLevelPayload struct {
	Level             uint32 `json:"level"`
	CarryoverLamports uint64 `json:"carryover_lamports"`
}

// MapRewardPayload enqueues a map payout.
type MapRewardPayload struct {
	Player         string `json:"player"`
	TraitID        uint16 `json:"trait_id"`
	Level          uint32 `json:"level"`
	AmountLamports uint64 `json:"amount_lamports"`
}

// TraitTicketPayload seats Player on a ticket page.
type TraitTicketPayload struct {
	Level     uint32 `json:"level"`
	TraitID   uint16 `json:"trait_id"`
	PageIndex uint16 `json:"page_index"`
	Player    string `json:"player"`
}

// ClearTicketPagePayload recycles a ticket page.
type ClearTicketPagePayload struct {
	Level     uint32 `json:"level"`
	TraitID   uint16 `json:"trait_id"`
	PageIndex uint16 `json:"page_index"`
}

// Key returns the page key addressed by the payload.
func (p ClearTicketPagePayload) Key() TicketKey {
	return TicketKey{Level: p.Level, TraitID: p.TraitID, PageIndex: p.PageIndex}
}

// Key returns the page key addressed by the payload.
func (p TraitTicketPayload) Key() TicketKey {
	return TicketKey{Level: p.Level, TraitID: p.TraitID, PageIndex: p.PageIndex}
}
