package credit

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"creditpool/core/events"
	"creditpool/crypto"
)

const moduleName = "credit"

// ModuleName identifies the credit module in pause views and metrics.
const ModuleName = moduleName

const (
	DefaultInterestRatePercent = 15
	DefaultLoanDurationDays    = 14
	DefaultLockDurationDays    = 0
	// MinLoanDurationDays bounds SetLoanDurationDays from below.
	MinLoanDurationDays = 7
)

// MinDeposit is the smallest amount Lend accepts, in base units.
var MinDeposit = big.NewInt(10_000_000)

type engineState interface {
	CreditConfig() (*ProtocolConfig, bool, error)
	PutCreditConfig(cfg *ProtocolConfig) error
	CreditLenderPosition(addr crypto.Address) (*LenderPosition, bool, error)
	PutCreditLenderPosition(addr crypto.Address, position *LenderPosition) error
	DeleteCreditLenderPosition(addr crypto.Address) error
	CreditLenders() ([]crypto.Address, error)
	CreditActiveLoan(addr crypto.Address) (*ActiveLoan, bool, error)
	PutCreditActiveLoan(addr crypto.Address, loan *ActiveLoan) error
	DeleteCreditActiveLoan(addr crypto.Address) error
	CreditHistory(addr crypto.Address) (*CreditHistory, bool, error)
	PutCreditHistory(addr crypto.Address, history *CreditHistory) error
	Commit() error
	Discard()
}

// Engine is the protocol controller. It owns the pool and loan ledgers and
// executes every mutating operation under a single write lock: an operation
// either commits all of its state changes or none of them. Queries share a
// read lock and observe committed state only.
type Engine struct {
	mu sync.RWMutex

	state       engineState
	transfer    AssetTransfer
	oracle      BalanceOracle
	poolAddress crypto.Address
	heightFn    func() uint64
	emitter     events.Emitter
	logger      *slog.Logger
	metrics     Metrics
}

// NewEngine constructs a credit engine whose pooled assets are custodied at
// poolAddr.
func NewEngine(poolAddr crypto.Address) *Engine {
	return &Engine{
		poolAddress: poolAddr,
		heightFn:    func() uint64 { return 0 },
		emitter:     events.NoopEmitter{},
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetTransfer configures the asset movement collaborator.
func (e *Engine) SetTransfer(transfer AssetTransfer) { e.transfer = transfer }

// SetOracle configures the historical balance oracle used for scoring.
func (e *Engine) SetOracle(oracle BalanceOracle) { e.oracle = oracle }

// SetHeightFunc overrides the source of the current block height. Primarily
// leveraged in tests to provide deterministic heights.
func (e *Engine) SetHeightFunc(fn func() uint64) {
	if e == nil {
		return
	}
	if fn == nil {
		fn = func() uint64 { return 0 }
	}
	e.heightFn = fn
}

// SetEmitter configures where committed events are delivered.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

// SetLogger configures the structured logger.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if e == nil || logger == nil {
		return
	}
	e.logger = logger.With("component", moduleName)
}

// SetMetrics configures the telemetry sink. Nil disables metrics.
func (e *Engine) SetMetrics(m Metrics) { e.metrics = m }

// PoolAddress returns the custody address of the pool.
func (e *Engine) PoolAddress() crypto.Address { return e.poolAddress }

// Height returns the current block height as seen by the engine.
func (e *Engine) Height() uint64 { return e.heightFn() }

// GenesisParams seeds the protocol configuration on first start.
type GenesisParams struct {
	Admin               crypto.Address
	InterestRatePercent uint64
	LoanDurationDays    uint64
	LockDurationDays    uint64
}

// DefaultGenesis returns the deployment defaults with admin as the admin.
func DefaultGenesis(admin crypto.Address) GenesisParams {
	return GenesisParams{
		Admin:               admin,
		InterestRatePercent: DefaultInterestRatePercent,
		LoanDurationDays:    DefaultLoanDurationDays,
		LockDurationDays:    DefaultLockDurationDays,
	}
}

// Validate checks the genesis parameters. A zero lock duration is accepted at
// genesis even though SetLockDurationDays rejects it.
func (p GenesisParams) Validate() error {
	if p.Admin.IsZero() {
		return fmt.Errorf("credit genesis: admin required")
	}
	if p.InterestRatePercent == 0 {
		return fmt.Errorf("credit genesis: interest rate must be positive")
	}
	if p.LoanDurationDays < MinLoanDurationDays {
		return fmt.Errorf("credit genesis: loan duration must be at least %d days", MinLoanDurationDays)
	}
	return nil
}

// InitGenesis writes the protocol configuration if none exists yet. It reports
// whether a new configuration was created; an existing one is left untouched.
func (e *Engine) InitGenesis(params GenesisParams) (bool, error) {
	if err := params.Validate(); err != nil {
		return false, err
	}
	created := false
	err := e.mutate("genesis", func(uint64) ([]events.Event, error) {
		_, ok, err := e.state.CreditConfig()
		if err != nil || ok {
			return nil, err
		}
		created = true
		return nil, e.state.PutCreditConfig(&ProtocolConfig{
			Admin:               params.Admin,
			TotalPoolUnits:      big.NewInt(0),
			InterestRatePercent: params.InterestRatePercent,
			LoanDurationDays:    params.LoanDurationDays,
			LockDurationDays:    params.LockDurationDays,
		})
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// mutate runs fn under the write lock and commits its staged state changes
// only when fn succeeds. Events are delivered after the commit.
func (e *Engine) mutate(op string, fn func(now uint64) ([]events.Event, error)) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	now := e.heightFn()
	emitted, err := fn(now)
	if err == nil {
		err = e.state.Commit()
		if err != nil {
			err = fmt.Errorf("credit: commit %s: %w", op, err)
		}
	}
	if err != nil {
		e.state.Discard()
		e.observe(op, err, start)
		e.logger.Debug("credit operation rejected", "operation", op, "height", now, "reason", Kind(err), "error", err)
		return err
	}
	e.observe(op, nil, start)
	e.reportPool()
	e.logger.Info("credit operation committed", "operation", op, "height", now)
	for _, evt := range emitted {
		e.emitter.Emit(evt)
	}
	return nil
}

// read runs fn under the shared lock.
func (e *Engine) read(fn func(now uint64) error) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return fn(e.heightFn())
}

func (e *Engine) observe(op string, err error, start time.Time) {
	if e.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = Kind(err)
	}
	e.metrics.ObserveOperation(op, outcome, time.Since(start))
}

func (e *Engine) reportPool() {
	if e.metrics == nil {
		return
	}
	cfg, ok, err := e.state.CreditConfig()
	if err != nil || !ok {
		return
	}
	custody, err := e.custodyBalance()
	if err != nil {
		return
	}
	e.metrics.SetPool(cfg.TotalPoolUnits, custody)
}

func (e *Engine) loadConfig() (*ProtocolConfig, error) {
	cfg, ok, err := e.state.CreditConfig()
	if err != nil {
		return nil, err
	}
	if !ok || cfg == nil {
		return nil, errNoConfig
	}
	cfg.EnsureDefaults()
	return cfg, nil
}

// lenderPosition returns the caller's position or a zeroed default.
func (e *Engine) lenderPosition(addr crypto.Address) (*LenderPosition, error) {
	position, ok, err := e.state.CreditLenderPosition(addr)
	if err != nil {
		return nil, err
	}
	if !ok || position == nil {
		return &LenderPosition{Balance: big.NewInt(0)}, nil
	}
	if position.Balance == nil {
		position.Balance = big.NewInt(0)
	}
	return position, nil
}

// creditHistory returns the borrower's history or a zeroed default.
func (e *Engine) creditHistory(addr crypto.Address) (*CreditHistory, error) {
	history, ok, err := e.state.CreditHistory(addr)
	if err != nil {
		return nil, err
	}
	if !ok || history == nil {
		return &CreditHistory{}, nil
	}
	return history, nil
}

// activeLoan returns the borrower's loan; ok is false when there is none.
func (e *Engine) activeLoan(addr crypto.Address) (*ActiveLoan, bool, error) {
	loan, ok, err := e.state.CreditActiveLoan(addr)
	if err != nil {
		return nil, false, err
	}
	if !ok || loan == nil || loan.Principal == nil || loan.Principal.Sign() <= 0 {
		return nil, false, nil
	}
	return loan, true, nil
}

func (e *Engine) custodyBalance() (*big.Int, error) {
	if e.transfer == nil {
		return nil, errNilTransfer
	}
	balance, err := e.transfer.BalanceOf(e.poolAddress)
	if err != nil {
		return nil, fmt.Errorf("custody balance: %w", err)
	}
	if balance == nil {
		return big.NewInt(0), nil
	}
	return balance, nil
}

func (e *Engine) transferAsset(amount *big.Int, from, to crypto.Address) error {
	if e.transfer == nil {
		return errNilTransfer
	}
	if err := e.transfer.Transfer(amount, from, to); err != nil {
		if errors.Is(err, ErrTransferFailed) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return nil
}
