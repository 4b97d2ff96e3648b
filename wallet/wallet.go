package wallet

import (
	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/crypto"
)

// Wallet holds a key pair and signs ledger transactions for it.
type Wallet struct {
	priv crypto.PrivateKey
	pub  crypto.PublicKey
}

// New creates a Wallet from an existing private key.
func New(priv crypto.PrivateKey) *Wallet {
	return &Wallet{priv: priv, pub: priv.Public()}
}

// Generate creates a Wallet with a freshly generated key pair.
func Generate() (*Wallet, error) {
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return New(priv), nil
}

// PrivKey returns the raw private key (handle with care).
func (w *Wallet) PrivKey() crypto.PrivateKey {
	return w.priv
}

// PubKey returns the hex public key, the wallet's ledger identity.
func (w *Wallet) PubKey() string {
	return w.pub.Hex()
}

// Address returns the short display address.
func (w *Wallet) Address() string {
	return w.pub.Address()
}

// NewTx creates a signed transaction. chainID must match the target network
// and nonce the account's current nonce.
func (w *Wallet) NewTx(chainID string, typ core.TxType, nonce, fee uint64, payload any) (*core.Transaction, error) {
	tx, err := core.NewTransaction(chainID, typ, w.pub.Hex(), nonce, fee, payload)
	if err != nil {
		return nil, err
	}
	tx.Sign(w.priv)
	return tx, nil
}

// Transfer creates a signed native token transfer.
func (w *Wallet) Transfer(chainID, to string, amount, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxTransfer, nonce, fee, core.TransferPayload{
		To:     to,
		Amount: amount,
	})
}

// PlaceBet creates a signed wager.
func (w *Wallet) PlaceBet(chainID string, bet core.PlaceBetPayload, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxPlaceBet, nonce, fee, bet)
}

// Mint creates a signed mint of quantity tokens.
func (w *Wallet) Mint(chainID string, quantity uint16, pay core.MintPayment, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxMint, nonce, fee, core.MintPayload{
		Quantity: quantity,
		Payment:  pay,
	})
}

// ClaimWinnings creates a signed claim against the wallet's claimable
// balances.
func (w *Wallet) ClaimWinnings(chainID string, lamports, purge, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxClaimWinnings, nonce, fee, core.ClaimWinningsPayload{
		Lamports: lamports,
		Purge:    purge,
	})
}
