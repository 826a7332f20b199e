package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"creditpool/config"
	"creditpool/core/events"
	"creditpool/core/state"
	"creditpool/crypto"
	"creditpool/native/bank"
	"creditpool/native/credit"
	"creditpool/observability"
	"creditpool/observability/logging"
	"creditpool/services/history"
	"creditpool/storage"
)

// node owns the ledger database, the credit engine and its collaborators.
type node struct {
	db       storage.Database
	state    *state.Manager
	ledger   *bank.Ledger
	engine   *credit.Engine
	history  *history.Store
	registry *prometheus.Registry
	now      func() time.Time
}

func ledgerPath(cfg *config.Config) string {
	if cfg.Storage.Backend == storage.BackendBolt {
		return filepath.Join(cfg.DataDir, "ledger.db")
	}
	return filepath.Join(cfg.DataDir, "ledger")
}

// openNode opens the ledger database under cfg.DataDir, wires the engine and
// seeds genesis on first start.
func openNode(cfg *config.Config, logger *slog.Logger, now func() time.Time) (*node, error) {
	if now == nil {
		now = time.Now
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := storage.Open(cfg.Storage.Backend, ledgerPath(cfg))
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	n := &node{
		db:       db,
		state:    state.NewManager(db),
		registry: prometheus.NewRegistry(),
		now:      now,
	}
	n.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	genesis := cfg.GenesisTime
	heightFn := func() uint64 { return credit.HeightAt(genesis, n.now()) }

	n.ledger = bank.NewLedger(n.state, heightFn)
	n.engine = credit.NewEngine(crypto.ModuleAddress(credit.ModuleName))
	n.engine.SetState(n.state)
	n.engine.SetTransfer(n.ledger)
	n.engine.SetHeightFunc(heightFn)
	n.engine.SetLogger(logger)

	metrics := observability.NewCreditMetrics(n.registry)
	eventLog, err := observability.NewEventLog(logger)
	if err != nil {
		n.Close()
		return nil, fmt.Errorf("event log: %w", err)
	}
	n.engine.SetMetrics(metrics)
	n.engine.SetEmitter(events.Fanout{metrics, eventLog})

	if cfg.History.Driver != "" {
		gdb, err := history.Open(cfg.History.Driver, cfg.History.DSN)
		if err != nil {
			n.Close()
			return nil, err
		}
		n.history = history.NewStore(gdb, cfg.History.EarliestHeight)
		logger.Info("using sql balance history",
			"driver", cfg.History.Driver,
			logging.MaskField("dsn", cfg.History.DSN),
			"earliest", n.history.Earliest(),
		)
		n.engine.SetOracle(n.history)
	} else {
		n.engine.SetOracle(bank.NewHistoryOracle(n.state, cfg.History.EarliestHeight))
	}

	if err := n.initGenesis(cfg, logger); err != nil {
		n.Close()
		return nil, err
	}
	return n, nil
}

// initGenesis writes the protocol configuration and the genesis balances the
// first time the data directory is used.
func (n *node) initGenesis(cfg *config.Config, logger *slog.Logger) error {
	params, err := cfg.GenesisParams()
	if err != nil {
		return err
	}
	created, err := n.engine.InitGenesis(params)
	if err != nil {
		return fmt.Errorf("init genesis: %w", err)
	}
	if !created {
		return nil
	}
	allocs, err := cfg.ParsedGenesisBalances()
	if err != nil {
		return err
	}
	for _, alloc := range allocs {
		if err := n.ledger.Mint(alloc.Address, alloc.Amount); err != nil {
			n.state.Discard()
			return fmt.Errorf("mint genesis balance for %s: %w", alloc.Address, err)
		}
	}
	if err := n.state.Commit(); err != nil {
		return fmt.Errorf("commit genesis balances: %w", err)
	}
	logger.Info("genesis initialised", "admin", params.Admin.String(), "allocations", len(allocs))
	return nil
}

// Close releases the history connection and the ledger database.
func (n *node) Close() error {
	var errs []error
	if n.history != nil {
		errs = append(errs, n.history.Close())
	}
	if n.db != nil {
		n.db.Close()
	}
	return errors.Join(errs...)
}
