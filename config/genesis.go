package config

import (
	"fmt"
	"strings"

	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/crypto"
	"github.com/tolelom/purgeledger/vm/modules/economy"
	"github.com/tolelom/purgeledger/vm/modules/game"
	"github.com/tolelom/purgeledger/vm/modules/rewards"
)

// GenesisHash is a canonical all-zeros previous hash for the genesis block.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// CreateGenesisBlock builds and signs block #0. It credits the Alloc
// accounts, initializes every ledger configured in the genesis, then
// commits the state.
func CreateGenesisBlock(cfg *Config, state core.State, proposerPriv crypto.PrivateKey) (*core.Block, error) {
	proposer := proposerPriv.Public().Hex()
	g := cfg.Genesis

	for pubkeyHex, balance := range g.Alloc {
		acc := &core.Account{
			Address: pubkeyHex,
			Balance: balance,
			Nonce:   0,
		}
		if err := state.SetAccount(acc); err != nil {
			return nil, err
		}
	}
	if g.Economy != nil {
		if _, err := economy.Initialize(state, proposer, *g.Economy); err != nil {
			return nil, fmt.Errorf("genesis economy: %w", err)
		}
	}
	if g.Game != nil {
		if _, err := game.Initialize(state, proposer, *g.Game); err != nil {
			return nil, fmt.Errorf("genesis game: %w", err)
		}
	}
	if g.Rewards != nil {
		if _, err := rewards.Initialize(state, proposer, *g.Rewards); err != nil {
			return nil, fmt.Errorf("genesis rewards: %w", err)
		}
	}

	stateRoot := state.ComputeRoot()
	if err := state.Commit(); err != nil {
		return nil, err
	}

	block := core.NewBlock(0, GenesisHash, proposer, nil)
	block.Header.ChainID = g.ChainID
	block.Header.StateRoot = stateRoot
	block.Sign(proposerPriv)
	return block, nil
}

// IsGenesisHash returns true if the hash is the canonical genesis prev-hash.
func IsGenesisHash(h string) bool {
	return strings.Count(h, "0") == len(h) && len(h) == 64
}
