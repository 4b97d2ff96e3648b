package core

import "fmt"

// StakeLaneCount caps concurrent stakes per player.
const StakeLaneCount = 3

// EconomyState is the EconomyLedger singleton.
type EconomyState struct {
	Authority        string `json:"authority"` // pubkey hex
	MinBet           uint64 `json:"min_bet"`
	MinBurn          uint64 `json:"min_burn"`
	HouseEdgeBps     uint16 `json:"house_edge_bps"`
	BurnTaxBps       uint16 `json:"burn_tax_bps"`
	TotalBurned      uint64 `json:"total_burned"`
	TotalBets        uint64 `json:"total_bets"`
	JackpotPoolPurge uint64 `json:"jackpot_pool_purge"`
	JackpotPoolSol   uint64 `json:"jackpot_pool_sol"`
	LastLevelSynced  uint32 `json:"last_level_synced"`
}

// BetRecord is one wager, keyed by (player, bet id).
type BetRecord struct {
	Player       string `json:"player"`
	BetID        uint64 `json:"bet_id"`
	Amount       uint64 `json:"amount"`
	Risk         uint8  `json:"risk"`
	TargetLevel  uint32 `json:"target_level"`
	SlotPlaced   int64  `json:"slot_placed"`
	Resolved     bool   `json:"resolved"`
	Result       *bool  `json:"result,omitempty"`
	SlotResolved *int64 `json:"slot_resolved,omitempty"`
}

// AffiliateAccrual is the reward balance of one affiliate code.
type AffiliateAccrual struct {
	CodeSeed             string `json:"code_seed"`
	TotalEarned          uint64 `json:"total_earned"`
	PendingClaim         uint64 `json:"pending_claim"`
	PendingClaimLamports uint64 `json:"pending_claim_lamports"`
	LastLevel            uint32 `json:"last_level"`
	LastClaimSlot        int64  `json:"last_claim_slot"`
}

// StakeLane is one slot of a player's stake table. A lane with zero
// principal is free.
type StakeLane struct {
	Risk        uint8  `json:"risk"`
	Principal   uint64 `json:"principal"`
	TargetLevel uint32 `json:"target_level"`
}

// StakeAllocation is a player's fixed-size stake table.
type StakeAllocation struct {
	Owner string                    `json:"owner"`
	Lanes [StakeLaneCount]StakeLane `json:"lanes"`
}

// Allocate adds principal to the lane holding (risk, target), or to the
// first free lane. It returns the lane index used.
func (s *StakeAllocation) Allocate(risk uint8, target uint32, principal uint64) (int, error) {
	if principal == 0 {
		return -1, fmt.Errorf("zero principal: %w", ErrInvalidArgument)
	}
	free := -1
	for i := range s.Lanes {
		lane := &s.Lanes[i]
		if lane.Principal == 0 {
			if free < 0 {
				free = i
			}
			continue
		}
		if lane.Risk == risk && lane.TargetLevel == target {
			lane.Principal = SatAdd(lane.Principal, principal)
			return i, nil
		}
	}
	if free < 0 {
		return -1, ErrStakeLanesFull
	}
	s.Lanes[free] = StakeLane{Risk: risk, Principal: principal, TargetLevel: target}
	return free, nil
}

// Release removes principal from the lane holding (risk, target). A lane
// drained to zero is reset so it can host another tier.
func (s *StakeAllocation) Release(risk uint8, target uint32, principal uint64) {
	for i := range s.Lanes {
		lane := &s.Lanes[i]
		if lane.Principal == 0 || lane.Risk != risk || lane.TargetLevel != target {
			continue
		}
		lane.Principal = SatSub(lane.Principal, principal)
		if lane.Principal == 0 {
			*lane = StakeLane{}
		}
		return
	}
}
