package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tolelom/purgeledger/crypto"
)

// TxType identifies the kind of operation a transaction performs.
type TxType string

const (
	TxTransfer TxType = "transfer"

	// EconomyLedger
	TxInitEconomy      TxType = "econ_initialize"
	TxConfigureEconomy TxType = "econ_configure"
	TxPlaceBet         TxType = "econ_place_bet"
	TxSettleBet        TxType = "econ_settle_bet"
	TxRecordBurn       TxType = "econ_record_burn"
	TxAwardAffiliate   TxType = "econ_award_affiliate"
	TxClaimAffiliate   TxType = "econ_claim_affiliate"
	TxSyncJackpot      TxType = "econ_sync_jackpot"

	// GameLedger
	TxInitGame        TxType = "game_initialize"
	TxConfigureGame   TxType = "game_configure"
	TxMint            TxType = "game_mint"
	TxPurge           TxType = "game_purge"
	TxAdvancePhase    TxType = "game_advance_phase"
	TxAdvanceLevel    TxType = "game_advance_level"
	TxRequestRng      TxType = "game_request_rng"
	TxFulfillRng      TxType = "game_fulfill_rng"
	TxQueueMapMint    TxType = "game_queue_map_mint"
	TxDequeueMapMint  TxType = "game_dequeue_map_mint"
	TxJackpotDaily    TxType = "game_process_jackpot_daily"
	TxJackpotMap      TxType = "game_process_jackpot_map"
	TxFinalizeEndgame TxType = "game_finalize_endgame_step"
	TxClaimWinnings   TxType = "game_claim_winnings"

	// RewardsLedger
	TxInitRewards      TxType = "rewards_initialize"
	TxAwardTrophy      TxType = "rewards_award_trophy"
	TxProcessEndLevel  TxType = "rewards_process_end_level"
	TxEnqueueMapReward TxType = "rewards_enqueue_map_reward"
	TxPopMapReward     TxType = "rewards_pop_map_reward"
	TxAddTraitTicket   TxType = "rewards_add_trait_ticket"
	TxClearTicketPage  TxType = "rewards_clear_trait_ticket_page"
)

// Transaction is the atomic unit of work on the chain.
// From holds the sender's full hex-encoded ed25519 public key (64 chars) and
// is the caller identity every ledger authority check compares against.
// Signature covers all fields except ID and Signature.
type Transaction struct {
	ID        string          `json:"id"`
	ChainID   string          `json:"chain_id"`
	Type      TxType          `json:"type"`
	From      string          `json:"from"` // hex-encoded ed25519 public key
	Nonce     uint64          `json:"nonce"`
	Fee       uint64          `json:"fee"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
}

// signingBody holds the fields that are covered by the signature.
type signingBody struct {
	ChainID   string          `json:"chain_id"`
	Type      TxType          `json:"type"`
	From      string          `json:"from"`
	Nonce     uint64          `json:"nonce"`
	Fee       uint64          `json:"fee"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Hash returns a deterministic hash of the transaction (sans Signature).
// Returns an empty string if marshalling fails (which cannot happen in practice).
func (tx *Transaction) Hash() string {
	body := signingBody{
		ChainID:   tx.ChainID,
		Type:      tx.Type,
		From:      tx.From,
		Nonce:     tx.Nonce,
		Fee:       tx.Fee,
		Timestamp: tx.Timestamp,
		Payload:   tx.Payload,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return ""
	}
	return crypto.Hash(data)
}

// Sign computes the signature and sets ID.
func (tx *Transaction) Sign(priv crypto.PrivateKey) {
	hash := tx.Hash()
	tx.Signature = crypto.Sign(priv, []byte(hash))
	tx.ID = hash
}

// Verify checks the signature and that From is a valid public key.
func (tx *Transaction) Verify() error {
	if tx.From == "" {
		return errors.New("missing from field")
	}
	pub, err := crypto.PubKeyFromHex(tx.From)
	if err != nil {
		return fmt.Errorf("invalid from (must be ed25519 pubkey hex): %w", err)
	}
	return crypto.Verify(pub, []byte(tx.Hash()), tx.Signature)
}

// NewTransaction creates an unsigned transaction with the current timestamp.
func NewTransaction(chainID string, typ TxType, from string, nonce, fee uint64, payload any) (*Transaction, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Transaction{
		ChainID:   chainID,
		Type:      typ,
		From:      from,
		Nonce:     nonce,
		Fee:       fee,
		Timestamp: time.Now().UnixNano(),
		Payload:   raw,
	}, nil
}

// TransferPayload transfers native tokens.
type TransferPayload struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}
