package credit

import (
	"math/big"

	"creditpool/crypto"
)

// Config returns a copy of the protocol configuration.
func (e *Engine) Config() (*ProtocolConfig, error) {
	var out *ProtocolConfig
	err := e.read(func(uint64) error {
		cfg, err := e.loadConfig()
		if err != nil {
			return err
		}
		out = cfg.Clone()
		return nil
	})
	return out, err
}

// BorrowerInfo returns account's credit history together with its active loan
// and due status at the current height.
func (e *Engine) BorrowerInfo(account crypto.Address) (BorrowerInfo, error) {
	var info BorrowerInfo
	err := e.read(func(now uint64) error {
		history, err := e.creditHistory(account)
		if err != nil {
			return err
		}
		loan, ok, err := e.activeLoan(account)
		if err != nil {
			return err
		}
		info = BorrowerInfo{History: *history, RepaymentDue: big.NewInt(0)}
		if !ok {
			return nil
		}
		info.Loan = loan.Clone()
		info.RepaymentDue = repaymentDue(loan)
		if now > loan.DueAt {
			info.Overdue = true
		} else {
			info.BlocksUntilDue = loan.DueAt - now
		}
		return nil
	})
	return info, err
}

// LoanLimitInfo returns every intermediate of account's credit score at the
// current height.
func (e *Engine) LoanLimitInfo(account crypto.Address) (LoanLimitInfo, error) {
	var info LoanLimitInfo
	err := e.read(func(now uint64) error {
		var err error
		info, err = e.loanLimit(account, now)
		return err
	})
	return info, err
}

func (e *Engine) loanLimit(account crypto.Address, now uint64) (LoanLimitInfo, error) {
	history, err := e.creditHistory(account)
	if err != nil {
		return LoanLimitInfo{}, err
	}
	avg, err := AverageBalance(e.oracle, account, now)
	if err != nil {
		return LoanLimitInfo{}, err
	}
	return ScoreBreakdown(avg, *history), nil
}

// LoanEligibilityInfo reports the largest principal ApplyForLoan would accept
// from account right now: the minimum of the tier limit, the average balance
// and the pool liquidity left after keeping one base unit in custody.
func (e *Engine) LoanEligibilityInfo(account crypto.Address) (LoanEligibilityInfo, error) {
	var info LoanEligibilityInfo
	err := e.read(func(now uint64) error {
		cfg, err := e.loadConfig()
		if err != nil {
			return err
		}
		limit, err := e.loanLimit(account, now)
		if err != nil {
			return err
		}
		history, err := e.creditHistory(account)
		if err != nil {
			return err
		}
		_, hasLoan, err := e.activeLoan(account)
		if err != nil {
			return err
		}
		custody, err := e.custodyBalance()
		if err != nil {
			return err
		}
		liquidity := new(big.Int).Sub(custody, bigOne)
		if liquidity.Sign() < 0 {
			liquidity.SetInt64(0)
		}
		maxAmount := minBig(limit.LoanLimit, limit.AverageBalance, liquidity)
		hasLoan = hasLoan || !history.Settled()
		info = LoanEligibilityInfo{
			LoanLimitInfo:      limit,
			HasActiveLoan:      hasLoan,
			AvailableLiquidity: liquidity,
			MaxLoanAmount:      maxAmount,
			Eligible:           !hasLoan && !cfg.Paused && maxAmount.Sign() > 0,
		}
		return nil
	})
	return info, err
}

// AuditInvariants recomputes the pool accounting from every lender position.
func (e *Engine) AuditInvariants() (InvariantReport, error) {
	var report InvariantReport
	err := e.read(func(uint64) error {
		cfg, err := e.loadConfig()
		if err != nil {
			return err
		}
		custody, err := e.custodyBalance()
		if err != nil {
			return err
		}
		lenders, err := e.state.CreditLenders()
		if err != nil {
			return err
		}
		sumUnits := big.NewInt(0)
		sumRedeemable := big.NewInt(0)
		live := 0
		for _, addr := range lenders {
			position, err := e.lenderPosition(addr)
			if err != nil {
				return err
			}
			if position.Balance.Sign() <= 0 {
				continue
			}
			live++
			sumUnits.Add(sumUnits, position.Balance)
			sumRedeemable.Add(sumRedeemable, Redeemable(position.Balance, cfg.TotalPoolUnits, custody))
		}
		dust := new(big.Int).Sub(custody, sumRedeemable)
		withinCustody := dust.Sign() >= 0
		if withinCustody && live > 0 {
			withinCustody = dust.Cmp(big.NewInt(int64(live))) <= 0
		}
		report = InvariantReport{
			TotalPoolUnits:          new(big.Int).Set(cfg.TotalPoolUnits),
			SumLenderUnits:          sumUnits,
			CustodyBalance:          new(big.Int).Set(custody),
			SumRedeemable:           sumRedeemable,
			Lenders:                 live,
			UnitsConsistent:         sumUnits.Cmp(cfg.TotalPoolUnits) == 0,
			RedeemableWithinCustody: withinCustody,
		}
		return nil
	})
	return report, err
}

func minBig(values ...*big.Int) *big.Int {
	var out *big.Int
	for _, v := range values {
		if v == nil {
			continue
		}
		if out == nil || v.Cmp(out) < 0 {
			out = v
		}
	}
	if out == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(out)
}
