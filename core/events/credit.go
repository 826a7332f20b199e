package events

import (
	"math/big"
	"strconv"

	"creditpool/core/types"
	"creditpool/crypto"
)

const (
	TypeCreditDeposit       = "credit.deposit"
	TypeCreditWithdraw      = "credit.withdraw"
	TypeCreditLoanApproved  = "credit.loanApproved"
	TypeCreditLoanRepaid    = "credit.loanRepaid"
	TypeCreditParamsUpdated = "credit.paramsUpdated"
)

type CreditDeposit struct {
	Lender    crypto.Address
	Amount    *big.Int
	Units     *big.Int
	LockedAt  uint64
	UnlocksAt uint64
}

func (CreditDeposit) EventType() string { return TypeCreditDeposit }

func (e CreditDeposit) Event() *types.Event {
	return &types.Event{
		Type: TypeCreditDeposit,
		Attributes: map[string]string{
			"lender":    e.Lender.String(),
			"amount":    formatAmount(e.Amount),
			"units":     formatAmount(e.Units),
			"lockedAt":  uintToString(e.LockedAt),
			"unlocksAt": uintToString(e.UnlocksAt),
		},
	}
}

type CreditWithdraw struct {
	Lender      crypto.Address
	Amount      *big.Int
	BurnedUnits *big.Int
	Closed      bool
}

func (CreditWithdraw) EventType() string { return TypeCreditWithdraw }

func (e CreditWithdraw) Event() *types.Event {
	return &types.Event{
		Type: TypeCreditWithdraw,
		Attributes: map[string]string{
			"lender":      e.Lender.String(),
			"amount":      formatAmount(e.Amount),
			"burnedUnits": formatAmount(e.BurnedUnits),
			"closed":      strconv.FormatBool(e.Closed),
		},
	}
}

type CreditLoanApproved struct {
	Borrower     crypto.Address
	Principal    *big.Int
	RepaymentDue *big.Int
	IssuedAt     uint64
	DueAt        uint64
}

func (CreditLoanApproved) EventType() string { return TypeCreditLoanApproved }

func (e CreditLoanApproved) Event() *types.Event {
	return &types.Event{
		Type: TypeCreditLoanApproved,
		Attributes: map[string]string{
			"borrower":     e.Borrower.String(),
			"principal":    formatAmount(e.Principal),
			"repaymentDue": formatAmount(e.RepaymentDue),
			"issuedAt":     uintToString(e.IssuedAt),
			"dueAt":        uintToString(e.DueAt),
		},
	}
}

type CreditLoanRepaid struct {
	Borrower crypto.Address
	Payer    crypto.Address
	Amount   *big.Int
	OnTime   bool
}

func (CreditLoanRepaid) EventType() string { return TypeCreditLoanRepaid }

func (e CreditLoanRepaid) Event() *types.Event {
	return &types.Event{
		Type: TypeCreditLoanRepaid,
		Attributes: map[string]string{
			"borrower": e.Borrower.String(),
			"payer":    e.Payer.String(),
			"amount":   formatAmount(e.Amount),
			"onTime":   strconv.FormatBool(e.OnTime),
		},
	}
}

type CreditParamsUpdated struct {
	Param string
	Value string
}

func (CreditParamsUpdated) EventType() string { return TypeCreditParamsUpdated }

func (e CreditParamsUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeCreditParamsUpdated,
		Attributes: map[string]string{
			"param": e.Param,
			"value": e.Value,
		},
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func uintToString(v uint64) string {
	return strconv.FormatUint(v, 10)
}
