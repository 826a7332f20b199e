package routes

import (
	"math/big"

	"creditpool/native/credit"
)

type amountRequest struct {
	Amount string `json:"amount"`
}

type repayRequest struct {
	Borrower string `json:"borrower,omitempty"`
}

type adminRequest struct {
	Admin string `json:"admin"`
}

type daysRequest struct {
	Days uint64 `json:"days"`
}

type percentRequest struct {
	Percent uint64 `json:"percent"`
}

type pauseRequest struct {
	Paused bool `json:"paused"`
}

type snapshotRequest struct {
	Account string `json:"account"`
	Height  uint64 `json:"height"`
	Balance string `json:"balance"`
}

type historyImportRequest struct {
	Source    string            `json:"source"`
	Snapshots []snapshotRequest `json:"snapshots"`
}

type historyImportResponse struct {
	Imported int `json:"imported"`
}

type statusResponse struct {
	Height      uint64 `json:"height"`
	PoolAddress string `json:"poolAddress"`
	Admin       string `json:"admin"`
	Paused      bool   `json:"paused"`
}

type lenderResponse struct {
	Address       string `json:"address"`
	Balance       string `json:"balance"`
	Redeemable    string `json:"redeemable"`
	LockedAt      uint64 `json:"lockedAt"`
	UnlocksAt     uint64 `json:"unlocksAt"`
	SecondsInPool uint64 `json:"secondsInPool"`
}

type poolResponse struct {
	LockDurationDays    uint64 `json:"lockDurationDays"`
	LockDurationBlocks  uint64 `json:"lockDurationBlocks"`
	LoanDurationDays    uint64 `json:"loanDurationDays"`
	LoanDurationBlocks  uint64 `json:"loanDurationBlocks"`
	InterestRatePercent uint64 `json:"interestRatePercent"`
	TotalPoolUnits      string `json:"totalPoolUnits"`
	CustodyBalance      string `json:"custodyBalance"`
	Lenders             int    `json:"lenders"`
	Paused              bool   `json:"paused"`
}

type withdrawalLimitResponse struct {
	Address    string `json:"address"`
	Redeemable string `json:"redeemable"`
	UnlocksAt  uint64 `json:"unlocksAt"`
	Unlocked   bool   `json:"unlocked"`
}

type historyResponse struct {
	TotalLoans  uint64 `json:"totalLoans"`
	OnTimeLoans uint64 `json:"onTimeLoans"`
	LateLoans   uint64 `json:"lateLoans"`
}

type loanResponse struct {
	Principal           string `json:"principal"`
	IssuedAt            uint64 `json:"issuedAt"`
	DueAt               uint64 `json:"dueAt"`
	InterestRatePercent uint64 `json:"interestRatePercent"`
}

type borrowerResponse struct {
	Address        string          `json:"address"`
	History        historyResponse `json:"history"`
	Loan           *loanResponse   `json:"loan,omitempty"`
	RepaymentDue   string          `json:"repaymentDue"`
	Overdue        bool            `json:"overdue"`
	BlocksUntilDue uint64          `json:"blocksUntilDue"`
}

type loanLimitResponse struct {
	Address        string `json:"address"`
	AverageBalance string `json:"averageBalance"`
	ActivityScore  uint64 `json:"activityScore"`
	RepaymentScore uint64 `json:"repaymentScore"`
	CreditScore    uint64 `json:"creditScore"`
	Tier           int    `json:"tier"`
	LoanLimit      string `json:"loanLimit"`
}

type eligibilityResponse struct {
	loanLimitResponse
	HasActiveLoan      bool   `json:"hasActiveLoan"`
	AvailableLiquidity string `json:"availableLiquidity"`
	MaxLoanAmount      string `json:"maxLoanAmount"`
	Eligible           bool   `json:"eligible"`
}

type repaymentDueResponse struct {
	Address      string `json:"address"`
	RepaymentDue string `json:"repaymentDue"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func newLenderResponse(address string, info credit.LenderInfo) lenderResponse {
	return lenderResponse{
		Address:       address,
		Balance:       formatAmount(info.Balance),
		Redeemable:    formatAmount(info.Redeemable),
		LockedAt:      info.LockedAt,
		UnlocksAt:     info.UnlocksAt,
		SecondsInPool: info.SecondsInPool,
	}
}

func newPoolResponse(info credit.PoolInfo) poolResponse {
	return poolResponse{
		LockDurationDays:    info.LockDurationDays,
		LockDurationBlocks:  info.LockDurationBlocks,
		LoanDurationDays:    info.LoanDurationDays,
		LoanDurationBlocks:  info.LoanDurationBlocks,
		InterestRatePercent: info.InterestRatePercent,
		TotalPoolUnits:      formatAmount(info.TotalPoolUnits),
		CustodyBalance:      formatAmount(info.CustodyBalance),
		Lenders:             info.Lenders,
		Paused:              info.Paused,
	}
}

func newBorrowerResponse(address string, info credit.BorrowerInfo) borrowerResponse {
	out := borrowerResponse{
		Address: address,
		History: historyResponse{
			TotalLoans:  info.History.TotalLoans,
			OnTimeLoans: info.History.OnTimeLoans,
			LateLoans:   info.History.LateLoans,
		},
		RepaymentDue:   formatAmount(info.RepaymentDue),
		Overdue:        info.Overdue,
		BlocksUntilDue: info.BlocksUntilDue,
	}
	if info.Loan != nil {
		out.Loan = &loanResponse{
			Principal:           formatAmount(info.Loan.Principal),
			IssuedAt:            info.Loan.IssuedAt,
			DueAt:               info.Loan.DueAt,
			InterestRatePercent: info.Loan.InterestRatePercent,
		}
	}
	return out
}

func newLoanLimitResponse(address string, info credit.LoanLimitInfo) loanLimitResponse {
	return loanLimitResponse{
		Address:        address,
		AverageBalance: formatAmount(info.AverageBalance),
		ActivityScore:  info.ActivityScore,
		RepaymentScore: info.RepaymentScore,
		CreditScore:    info.CreditScore,
		Tier:           info.Tier,
		LoanLimit:      formatAmount(info.LoanLimit),
	}
}
