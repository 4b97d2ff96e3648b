// Package config loads node configuration and seals the genesis block.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/tolelom/purgeledger/core"
)

// GenesisConfig describes the chain's initial state. The optional ledger
// blocks initialize their ledger before block 0 is sealed; an empty
// authority inside them defaults to the genesis proposer.
type GenesisConfig struct {
	ChainID string                   `json:"chain_id" yaml:"chain_id"`
	Alloc   map[string]uint64        `json:"alloc" yaml:"alloc"` // pubkey hex → initial balance
	Economy *core.InitEconomyPayload `json:"economy,omitempty" yaml:"economy,omitempty"`
	Game    *core.InitGamePayload    `json:"game,omitempty" yaml:"game,omitempty"`
	Rewards *core.InitRewardsPayload `json:"rewards,omitempty" yaml:"rewards,omitempty"`
}

// Config holds all node configuration. RPCRateLimit is in calls per
// minute per client address, 0 disables it. An empty LogFile logs to
// stdout only.
type Config struct {
	NodeID          string        `json:"node_id" yaml:"node_id"`
	DataDir         string        `json:"data_dir" yaml:"data_dir"`
	DBBackend       string        `json:"db_backend" yaml:"db_backend"` // leveldb | bolt
	RPCPort         int           `json:"rpc_port" yaml:"rpc_port"`
	RPCAuthToken    string        `json:"rpc_auth_token,omitempty" yaml:"rpc_auth_token,omitempty"`
	RPCRateLimit    float64       `json:"rpc_rate_limit" yaml:"rpc_rate_limit"`
	RPCRateBurst    int           `json:"rpc_rate_burst" yaml:"rpc_rate_burst"`
	LogEnv          string        `json:"log_env" yaml:"log_env"`
	LogFile         string        `json:"log_file,omitempty" yaml:"log_file,omitempty"`
	MaxBlockTxs     int           `json:"max_block_txs" yaml:"max_block_txs"`         // max transactions per block; 0 → 500
	BlockIntervalMs int           `json:"block_interval_ms" yaml:"block_interval_ms"` // 0 → 2000
	Validators      []string      `json:"validators" yaml:"validators"`               // authorised proposer pubkey hexes
	Genesis         GenesisConfig `json:"genesis" yaml:"genesis"`
}

// envOverrides lists the settings that may be overridden from the
// environment. Unset variables leave the file value alone.
type envOverrides struct {
	DataDir      *string  `env:"PURGE_DATA_DIR"`
	DBBackend    *string  `env:"PURGE_DB_BACKEND"`
	RPCPort      *int     `env:"PURGE_RPC_PORT"`
	RPCAuthToken *string  `env:"PURGE_RPC_AUTH_TOKEN"`
	LogEnv       *string  `env:"PURGE_LOG_ENV"`
	LogFile      *string  `env:"PURGE_LOG_FILE"`
	Validators   []string `env:"PURGE_VALIDATORS" envSeparator:","`
}

// DefaultConfig returns a single-node development configuration.
func DefaultConfig() *Config {
	return &Config{
		NodeID:          "node0",
		DataDir:         "./data",
		DBBackend:       "leveldb",
		RPCPort:         8545,
		LogEnv:          "dev",
		MaxBlockTxs:     500,
		BlockIntervalMs: 2000,
		Genesis: GenesisConfig{
			ChainID: "purge-dev",
			Alloc:   map[string]uint64{},
		},
	}
}

// Load reads a JSON or YAML (by extension) config file from path over the
// defaults, then applies PURGE_* environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with any PURGE_* variables that are set.
func ApplyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.DataDir != nil {
		cfg.DataDir = *o.DataDir
	}
	if o.DBBackend != nil {
		cfg.DBBackend = *o.DBBackend
	}
	if o.RPCPort != nil {
		cfg.RPCPort = *o.RPCPort
	}
	if o.RPCAuthToken != nil {
		cfg.RPCAuthToken = *o.RPCAuthToken
	}
	if o.LogEnv != nil {
		cfg.LogEnv = *o.LogEnv
	}
	if o.LogFile != nil {
		cfg.LogFile = *o.LogFile
	}
	if len(o.Validators) > 0 {
		cfg.Validators = o.Validators
	}
	return nil
}

// Save writes the config to path, as YAML for .yaml/.yml paths and as
// formatted JSON otherwise.
func Save(cfg *Config, path string) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	default:
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
