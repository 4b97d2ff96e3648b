// Command node starts a PurgeLedger node.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/tolelom/purgeledger/config"
	"github.com/tolelom/purgeledger/consensus"
	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/events"
	"github.com/tolelom/purgeledger/indexer"
	"github.com/tolelom/purgeledger/logging"
	"github.com/tolelom/purgeledger/metrics"
	"github.com/tolelom/purgeledger/rpc"
	"github.com/tolelom/purgeledger/storage"
	"github.com/tolelom/purgeledger/vm"
	"github.com/tolelom/purgeledger/wallet"

	// Import ledger modules to trigger their init() self-registration.
	_ "github.com/tolelom/purgeledger/vm/modules/economy"
	_ "github.com/tolelom/purgeledger/vm/modules/game"
	_ "github.com/tolelom/purgeledger/vm/modules/rewards"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file (.yaml or .json)")
	keyPath := flag.String("key", "validator.key", "path to keystore file")
	genKey := flag.Bool("genkey", false, "generate a new validator key and exit")
	importKey := flag.String("importkey", "", "import a hex-encoded private key into the keystore and exit")
	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	logger, logFile := logging.SetupFile(cfg.LogFile, "purgeledger", cfg.LogEnv)
	defer logFile.Close()
	if err != nil {
		fatal(logger, "config", err)
	}

	// Read keystore password from environment (not CLI flags, they leak via ps).
	password := os.Getenv("PURGE_PASSWORD")
	if password == "" {
		logger.Warn("PURGE_PASSWORD not set, keystore will use an empty password")
	}

	// ---- key management modes ----
	if *genKey || *importKey != "" {
		var w *wallet.Wallet
		if *importKey != "" {
			w, err = wallet.ImportKey(*keyPath, password, *importKey)
		} else {
			w, err = wallet.Generate()
			if err == nil {
				err = wallet.SaveKey(*keyPath, password, w.PrivKey())
			}
		}
		if err != nil {
			fatal(logger, "keystore", err)
		}
		fmt.Printf("Public key (validator address): %s\n", w.PubKey())
		fmt.Printf("Saved to: %s\n", *keyPath)
		return
	}

	validator, err := wallet.Open(*keyPath, password)
	if err != nil {
		fatal(logger, "load key", err)
	}
	privKey := validator.PrivKey()

	// ---- open DB ----
	db, err := storage.Open(cfg.DBBackend, filepath.Join(cfg.DataDir, "chain"))
	if err != nil {
		fatal(logger, "open db", err)
	}
	defer db.Close()

	// State, blocks and the indexer share one DB under distinct key prefixes.
	state := storage.NewStateDB(db)
	bc := core.NewBlockchain(storage.NewBlockStore(db))
	if err := bc.Init(); err != nil {
		fatal(logger, "blockchain init", err)
	}

	// ---- genesis block (if fresh chain) ----
	if bc.Tip() == nil {
		genesisBlock, err := config.CreateGenesisBlock(cfg, state, privKey)
		if err != nil {
			fatal(logger, "genesis", err)
		}
		if err := bc.AddBlock(genesisBlock); err != nil {
			fatal(logger, "add genesis", err)
		}
		logger.Info("genesis block committed", "hash", genesisBlock.Hash, "chain_id", cfg.Genesis.ChainID)
	}

	emitter := events.NewEmitter()
	idx := indexer.New(db, emitter)
	mempool := core.NewMempool(cfg.Genesis.ChainID)

	// No external token program is attached: custody movements are
	// accepted as recorded by the ledgers.
	exec := vm.NewExecutor(state, emitter, nil)
	exec.SetMetrics(metrics.Ledger())
	exec.ObserveState()

	poa := consensus.New(cfg, bc, state, mempool, exec, emitter, privKey)
	poa.SetMetrics(metrics.Ledger())

	// ---- RPC ----
	rpcAddr := fmt.Sprintf(":%d", cfg.RPCPort)
	rpcHandler := rpc.NewHandler(bc, mempool, state, idx, cfg.Genesis.ChainID)
	rpcServer := rpc.NewServer(rpcAddr, rpcHandler, cfg.RPCAuthToken,
		rpc.WithRateLimit(cfg.RPCRateLimit, cfg.RPCRateBurst))
	if err := rpcServer.Start(); err != nil {
		fatal(logger, "rpc start", err)
	}
	defer rpcServer.Stop()
	logger.Info("rpc listening", "addr", rpcAddr, "auth", cfg.RPCAuthToken != "")

	// ---- consensus loop ----
	interval := time.Duration(cfg.BlockIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		poa.Run(ctx, interval)
	}()
	logger.Info("consensus running", "validator", privKey.Public().Hex(), "interval", interval.String())

	// Stop consensus first so no new blocks are written, then the deferred
	// calls run in LIFO: rpcServer.Stop → db.Close → logFile.Close.
	<-ctx.Done()
	logger.Info("shutting down")
	wg.Wait()
	logger.Info("shutdown complete")
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg = config.DefaultConfig()
			return cfg, config.ApplyEnv(cfg)
		}
		return config.DefaultConfig(), err
	}
	return cfg, nil
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "err", err)
	os.Exit(1)
}
