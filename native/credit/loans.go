package credit

import (
	"fmt"
	"math/big"

	"creditpool/core/events"
	"creditpool/crypto"
	nativecommon "creditpool/native/common"
)

var hundred = big.NewInt(100)

// repaymentDue returns principal plus simple interest at the loan's rate.
func repaymentDue(loan *ActiveLoan) *big.Int {
	if loan == nil || loan.Principal == nil {
		return big.NewInt(0)
	}
	interest := new(big.Int).Mul(loan.Principal, new(big.Int).SetUint64(loan.InterestRatePercent))
	interest.Quo(interest, hundred)
	return interest.Add(interest, loan.Principal)
}

// ApplyForLoan issues an uncollateralised loan of amount to caller when the
// borrower's history is settled, the amount is covered by both the average
// balance and the tier limit, and the pool keeps a positive balance after
// disbursement.
func (e *Engine) ApplyForLoan(caller crypto.Address, amount *big.Int) error {
	return e.mutate("apply_for_loan", func(now uint64) ([]events.Event, error) {
		cfg, err := e.loadConfig()
		if err != nil {
			return nil, err
		}
		if err := nativecommon.Guard(cfg, moduleName); err != nil {
			return nil, err
		}
		if amount == nil || amount.Sign() <= 0 {
			return nil, ErrAmountTooSmall
		}
		history, err := e.creditHistory(caller)
		if err != nil {
			return nil, err
		}
		if !history.Settled() {
			return nil, fmt.Errorf("%w: outstanding loan", ErrNotEligible)
		}
		if _, ok, err := e.activeLoan(caller); err != nil {
			return nil, err
		} else if ok {
			return nil, fmt.Errorf("%w: outstanding loan", ErrNotEligible)
		}
		avg, err := AverageBalance(e.oracle, caller, now)
		if err != nil {
			return nil, err
		}
		if avg.Cmp(amount) < 0 {
			return nil, fmt.Errorf("%w: average balance %s below amount", ErrNotEligible, avg)
		}
		breakdown := ScoreBreakdown(avg, *history)
		if breakdown.LoanLimit.Cmp(amount) < 0 {
			return nil, fmt.Errorf("%w: amount exceeds tier %d limit %s", ErrNotEligible, breakdown.Tier, breakdown.LoanLimit)
		}
		custody, err := e.custodyBalance()
		if err != nil {
			return nil, err
		}
		if custody.Cmp(amount) <= 0 {
			return nil, ErrFundsNotAvailable
		}
		if err := e.transferAsset(amount, e.poolAddress, caller); err != nil {
			return nil, err
		}

		loan := &ActiveLoan{
			Principal:           new(big.Int).Set(amount),
			IssuedAt:            now,
			DueAt:               addBlocks(now, DaysToBlocks(cfg.LoanDurationDays)),
			InterestRatePercent: cfg.InterestRatePercent,
		}
		history.TotalLoans++
		if err := e.state.PutCreditActiveLoan(caller, loan); err != nil {
			return nil, err
		}
		if err := e.state.PutCreditHistory(caller, history); err != nil {
			return nil, err
		}
		return []events.Event{events.CreditLoanApproved{
			Borrower:     caller,
			Principal:    new(big.Int).Set(amount),
			RepaymentDue: repaymentDue(loan),
			IssuedAt:     loan.IssuedAt,
			DueAt:        loan.DueAt,
		}}, nil
	})
}

// RepaymentAmountDue returns the amount that settles account's active loan, or
// zero when there is none.
func (e *Engine) RepaymentAmountDue(account crypto.Address) (*big.Int, error) {
	due := big.NewInt(0)
	err := e.read(func(uint64) error {
		loan, ok, err := e.activeLoan(account)
		if err != nil || !ok {
			return err
		}
		due = repaymentDue(loan)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return due, nil
}

// RepayLoan settles borrower's active loan in full with funds from payer. The
// payer need not be the borrower.
func (e *Engine) RepayLoan(payer, borrower crypto.Address) error {
	return e.mutate("repay_loan", func(now uint64) ([]events.Event, error) {
		loan, ok, err := e.activeLoan(borrower)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: no active loan", ErrNotEligible)
		}
		history, err := e.creditHistory(borrower)
		if err != nil {
			return nil, err
		}
		due := repaymentDue(loan)
		if err := e.transferAsset(due, payer, e.poolAddress); err != nil {
			return nil, err
		}

		onTime := now <= loan.DueAt
		if onTime {
			history.OnTimeLoans++
		} else {
			history.LateLoans++
		}
		if err := e.state.DeleteCreditActiveLoan(borrower); err != nil {
			return nil, err
		}
		if err := e.state.PutCreditHistory(borrower, history); err != nil {
			return nil, err
		}
		return []events.Event{events.CreditLoanRepaid{
			Borrower: borrower,
			Payer:    payer,
			Amount:   due,
			OnTime:   onTime,
		}}, nil
	})
}
