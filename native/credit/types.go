package credit

import (
	"math/big"

	"creditpool/crypto"
)

// LenderPosition records a lender's pool units and lock window. Balance is
// expressed in pool units, not in the underlying asset; the redeemable asset
// amount depends on the pool's current custody balance.
type LenderPosition struct {
	Balance   *big.Int
	LockedAt  uint64
	UnlocksAt uint64
}

// ActiveLoan is the single outstanding loan a borrower may hold.
type ActiveLoan struct {
	Principal           *big.Int
	IssuedAt            uint64
	DueAt               uint64
	InterestRatePercent uint64
}

// CreditHistory tracks a borrower's loan counters. TotalLoans increments when a
// loan is issued; OnTimeLoans or LateLoans increments when it is repaid.
type CreditHistory struct {
	TotalLoans  uint64
	OnTimeLoans uint64
	LateLoans   uint64
}

// ProtocolConfig is the admin-mutable singleton governing the pool.
type ProtocolConfig struct {
	Admin               crypto.Address
	TotalPoolUnits      *big.Int
	InterestRatePercent uint64
	LoanDurationDays    uint64
	LockDurationDays    uint64
	// Paused halts new deposits and new loans. Withdrawals and repayments
	// remain available.
	Paused bool
}

// Settled reports whether every issued loan has been repaid.
func (h CreditHistory) Settled() bool {
	return h.OnTimeLoans+h.LateLoans == h.TotalLoans
}

// IsPaused satisfies common.PauseView for the credit module.
func (c *ProtocolConfig) IsPaused(module string) bool {
	if c == nil {
		return false
	}
	return module == moduleName && c.Paused
}

// Clone returns a deep copy of the lender position.
func (p *LenderPosition) Clone() *LenderPosition {
	if p == nil {
		return nil
	}
	clone := &LenderPosition{LockedAt: p.LockedAt, UnlocksAt: p.UnlocksAt}
	if p.Balance != nil {
		clone.Balance = new(big.Int).Set(p.Balance)
	}
	return clone
}

// Clone returns a deep copy of the active loan.
func (l *ActiveLoan) Clone() *ActiveLoan {
	if l == nil {
		return nil
	}
	clone := &ActiveLoan{IssuedAt: l.IssuedAt, DueAt: l.DueAt, InterestRatePercent: l.InterestRatePercent}
	if l.Principal != nil {
		clone.Principal = new(big.Int).Set(l.Principal)
	}
	return clone
}

// Clone returns a deep copy of the protocol configuration.
func (c *ProtocolConfig) Clone() *ProtocolConfig {
	if c == nil {
		return nil
	}
	clone := *c
	if !c.Admin.IsZero() {
		clone.Admin = crypto.NewAddress(c.Admin.Prefix(), c.Admin.Bytes())
	}
	if c.TotalPoolUnits != nil {
		clone.TotalPoolUnits = new(big.Int).Set(c.TotalPoolUnits)
	}
	return &clone
}

// EnsureDefaults populates nil big.Int fields so encoding is safe.
func (c *ProtocolConfig) EnsureDefaults() {
	if c.TotalPoolUnits == nil {
		c.TotalPoolUnits = big.NewInt(0)
	}
}

// LenderInfo is the read model for a single lender.
type LenderInfo struct {
	Balance       *big.Int
	Redeemable    *big.Int
	LockedAt      uint64
	UnlocksAt     uint64
	SecondsInPool uint64
}

// PoolInfo summarises pool-wide accounting and parameters.
type PoolInfo struct {
	LockDurationDays    uint64
	LockDurationBlocks  uint64
	LoanDurationDays    uint64
	LoanDurationBlocks  uint64
	InterestRatePercent uint64
	TotalPoolUnits      *big.Int
	CustodyBalance      *big.Int
	Lenders             int
	Paused              bool
}

// WithdrawalLimit reports how much a lender may withdraw right now.
type WithdrawalLimit struct {
	Redeemable *big.Int
	UnlocksAt  uint64
	Unlocked   bool
}

// BorrowerInfo combines a borrower's history with their outstanding loan.
type BorrowerInfo struct {
	History        CreditHistory
	Loan           *ActiveLoan
	RepaymentDue   *big.Int
	Overdue        bool
	BlocksUntilDue uint64
}

// LoanLimitInfo exposes every intermediate value of the credit score.
type LoanLimitInfo struct {
	AverageBalance *big.Int
	ActivityScore  uint64
	RepaymentScore uint64
	CreditScore    uint64
	Tier           int
	LoanLimit      *big.Int
}

// LoanEligibilityInfo reports the largest loan a borrower could draw now.
type LoanEligibilityInfo struct {
	LoanLimitInfo
	HasActiveLoan      bool
	AvailableLiquidity *big.Int
	MaxLoanAmount      *big.Int
	Eligible           bool
}

// InvariantReport is produced by AuditInvariants.
type InvariantReport struct {
	TotalPoolUnits  *big.Int
	SumLenderUnits  *big.Int
	CustodyBalance  *big.Int
	SumRedeemable   *big.Int
	Lenders         int
	UnitsConsistent bool
	// RedeemableWithinCustody holds when sum(redeemable) <= custody and the
	// rounding dust does not exceed one base unit per live position.
	RedeemableWithinCustody bool
}
