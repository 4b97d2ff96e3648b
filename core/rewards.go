package core

// RewardsState is the RewardsLedger singleton.
type RewardsState struct {
	Authority          string `json:"authority"`      // pubkey hex
	GameAuthority      string `json:"game_authority"` // pubkey hex allowed to feed queues and tickets
	MapRewardBps       uint16 `json:"map_reward_basis_points"`
	MapRewardMinimum   uint64 `json:"map_reward_minimum"`
	CoinLedger         string `json:"coin_ledger"`
	GameLedger         string `json:"game_ledger"`
	LastLevelProcessed uint32 `json:"last_level_processed"`
	MapQueueLen        uint32 `json:"map_queue_len"`
}

// TrophyVault accrues deferred trophy payouts until a level is settled.
type TrophyVault struct {
	PendingAmount uint64 `json:"pending_amount"`
	TotalPaid     uint64 `json:"total_paid"`
	LastLevelPaid uint32 `json:"last_level_paid"`
}

// MapRewardEntry is a pending map-based payout.
type MapRewardEntry struct {
	Player         string `json:"player"`
	TraitID        uint16 `json:"trait_id"`
	Level          uint32 `json:"level"`
	AmountLamports uint64 `json:"amount_lamports"`
}

// MapRewardQueue is the RewardsLedger's bounded FIFO of map payouts.
type MapRewardQueue = WorkQueue[MapRewardEntry]
