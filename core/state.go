package core

// Account holds a participant's native token balance and replay-protection
// nonce. Address is the hex-encoded ed25519 public key.
type Account struct {
	Address string `json:"address"` // pubkey hex
	Balance uint64 `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

// State is the full ledger state interface. Implementations must be
// snapshot-able so the executor can roll back failed transactions.
//
// Singleton getters return ErrNotFound before their ledger is initialized.
// Per-entity getters that are create-if-absent (accounts, players, stakes)
// return a zero record bound to the requested identity instead.
type State interface {
	// Accounts
	GetAccount(address string) (*Account, error)
	SetAccount(account *Account) error

	// EconomyLedger
	GetEconomyState() (*EconomyState, error)
	SetEconomyState(s *EconomyState) error
	GetBet(player string, betID uint64) (*BetRecord, error)
	SetBet(b *BetRecord) error
	GetAffiliate(codeSeed string) (*AffiliateAccrual, error)
	SetAffiliate(a *AffiliateAccrual) error
	GetStake(player string) (*StakeAllocation, error)
	SetStake(s *StakeAllocation) error

	// GameLedger
	GetGameState() (*GameState, error)
	SetGameState(s *GameState) error
	GetMapMintQueue() (*MapMintQueue, error)
	SetMapMintQueue(q *MapMintQueue) error
	GetRngRequest() (*RngRequest, error)
	SetRngRequest(r *RngRequest) error
	GetPlayer(owner string) (*PlayerState, error)
	SetPlayer(p *PlayerState) error

	// RewardsLedger
	GetRewardsState() (*RewardsState, error)
	SetRewardsState(s *RewardsState) error
	GetTrophyVault() (*TrophyVault, error)
	SetTrophyVault(v *TrophyVault) error
	GetMapRewardQueue() (*MapRewardQueue, error)
	SetMapRewardQueue(q *MapRewardQueue) error
	GetTicketPage(k TicketKey) (*TicketPage, error)
	SetTicketPage(p *TicketPage) error

	// Snapshot / rollback / commit
	Snapshot() (int, error)
	RevertToSnapshot(id int) error
	// ComputeRoot returns the deterministic state root from the current write
	// buffer without flushing. Call this before signing a block.
	ComputeRoot() string
	// Commit flushes the write buffer to the underlying DB and clears it.
	// Always call ComputeRoot() first to obtain the root for the block header.
	Commit() error
}
