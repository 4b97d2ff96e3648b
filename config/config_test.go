package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/purgeledger/config"
	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/internal/testutil"
	"github.com/tolelom/purgeledger/wallet"
)

const yamlConfig = `
node_id: yaml-node
rpc_port: 9000
db_backend: bolt
genesis:
  chain_id: purge-yaml
  game:
    config:
      max_level: 5
      price_lamports: 100
  rewards:
    map_reward_basis_points: 500
`

// TestLoadYAML verifies YAML files are read over the defaults.
func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlConfig), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "yaml-node", cfg.NodeID)
	assert.Equal(t, 9000, cfg.RPCPort)
	assert.Equal(t, "bolt", cfg.DBBackend)
	assert.Equal(t, 500, cfg.MaxBlockTxs)
	require.NotNil(t, cfg.Genesis.Game)
	assert.Equal(t, uint32(5), cfg.Genesis.Game.Config.MaxLevel)
	assert.Nil(t, cfg.Genesis.Economy)
}

// TestLoadEnvOverrides verifies PURGE_* variables win over the file.
func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.json")
	require.NoError(t, config.Save(config.DefaultConfig(), path))
	t.Setenv("PURGE_RPC_PORT", "7000")
	t.Setenv("PURGE_DB_BACKEND", "bolt")
	t.Setenv("PURGE_VALIDATORS", "aa,bb")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.RPCPort)
	assert.Equal(t, "bolt", cfg.DBBackend)
	assert.Equal(t, []string{"aa", "bb"}, cfg.Validators)
	assert.Equal(t, "./data", cfg.DataDir)
}

// TestGenesisInitializesLedgers verifies the genesis ledgers are created
// with the proposer as default authority.
func TestGenesisInitializesLedgers(t *testing.T) {
	w, err := wallet.Generate()
	require.NoError(t, err)
	cfg := config.DefaultConfig()
	cfg.Genesis.Alloc[w.PubKey()] = 1000
	cfg.Genesis.Economy = &core.InitEconomyPayload{MinBet: 10}
	cfg.Genesis.Game = &core.InitGamePayload{Config: core.GameConfig{MaxLevel: 3}}
	cfg.Genesis.Rewards = &core.InitRewardsPayload{}

	state := testutil.NewStateDB()
	block, err := config.CreateGenesisBlock(cfg, state, w.PrivKey())
	require.NoError(t, err)
	require.Equal(t, int64(0), block.Header.Height)
	require.True(t, config.IsGenesisHash(block.Header.PrevHash))

	gs, err := state.GetGameState()
	require.NoError(t, err)
	assert.Equal(t, w.PubKey(), gs.Authority)
	es, err := state.GetEconomyState()
	require.NoError(t, err)
	assert.Equal(t, uint64(10), es.MinBet)
	rs, err := state.GetRewardsState()
	require.NoError(t, err)
	assert.Equal(t, w.PubKey(), rs.GameAuthority)
	acc, err := state.GetAccount(w.PubKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), acc.Balance)

	cfg.Genesis.Game = &core.InitGamePayload{}
	_, err = config.CreateGenesisBlock(cfg, testutil.NewStateDB(), w.PrivKey())
	require.ErrorIs(t, err, core.ErrInvalidArgument)
}
