package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"creditpool/crypto"
	"creditpool/gateway/middleware"
	"creditpool/native/credit"
	"creditpool/services/history"
)

const requestLimit = 1 << 20 // 1 MiB

// CreditService is the engine surface exposed over HTTP.
type CreditService interface {
	Lend(caller crypto.Address, amount *big.Int) error
	Withdraw(caller crypto.Address, amount *big.Int) error
	ApplyForLoan(caller crypto.Address, amount *big.Int) error
	RepayLoan(payer, borrower crypto.Address) error

	SetAdmin(caller, newAdmin crypto.Address) error
	SetLoanDurationDays(caller crypto.Address, days uint64) error
	SetLockDurationDays(caller crypto.Address, days uint64) error
	SetInterestRatePercent(caller crypto.Address, percent uint64) error
	SetPaused(caller crypto.Address, paused bool) error

	Config() (*credit.ProtocolConfig, error)
	Height() uint64
	PoolAddress() crypto.Address
	PoolInfo() (credit.PoolInfo, error)
	LenderInfo(account crypto.Address) (credit.LenderInfo, error)
	WithdrawalLimit(account crypto.Address) (credit.WithdrawalLimit, error)
	BorrowerInfo(account crypto.Address) (credit.BorrowerInfo, error)
	LoanLimitInfo(account crypto.Address) (credit.LoanLimitInfo, error)
	LoanEligibilityInfo(account crypto.Address) (credit.LoanEligibilityInfo, error)
	RepaymentAmountDue(account crypto.Address) (*big.Int, error)
}

// HistoryImporter accepts balance snapshots for the SQL oracle.
type HistoryImporter interface {
	Import(ctx context.Context, source string, snapshots []history.Snapshot) (int, error)
}

type handlers struct {
	svc     CreditService
	history HistoryImporter
	logger  *slog.Logger
}

func (h *handlers) mountPublic(r chi.Router) {
	r.Get("/status", h.status)
	r.Get("/pool", h.pool)
	r.Get("/lenders/{address}", h.lender)
	r.Get("/lenders/{address}/withdrawal-limit", h.withdrawalLimit)
	r.Get("/borrowers/{address}", h.borrower)
	r.Get("/borrowers/{address}/limit", h.loanLimit)
	r.Get("/borrowers/{address}/eligibility", h.eligibility)
	r.Get("/borrowers/{address}/repayment-due", h.repaymentDue)
}

func (h *handlers) mountAuthenticated(r chi.Router) {
	r.Post("/pool/lend", h.lend)
	r.Post("/pool/withdraw", h.withdraw)
	r.Post("/loans/apply", h.applyForLoan)
	r.Post("/loans/repay", h.repayLoan)

	r.Post("/admin/admin", h.setAdmin)
	r.Post("/admin/loan-duration", h.setLoanDuration)
	r.Post("/admin/lock-duration", h.setLockDuration)
	r.Post("/admin/interest-rate", h.setInterestRate)
	r.Post("/admin/pause", h.setPaused)
	r.Post("/admin/history", h.importHistory)
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, requestLimit))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	return nil
}

func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: amount required", errBadRequest)
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: invalid amount %q", errBadRequest, value)
	}
	return amount, nil
}

func parseAddress(value string) (crypto.Address, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return crypto.Address{}, fmt.Errorf("%w: address: %v", errBadRequest, err)
	}
	return addr, nil
}

func pathAddress(r *http.Request) (string, crypto.Address, error) {
	raw := chi.URLParam(r, "address")
	addr, err := parseAddress(raw)
	return raw, addr, err
}

func caller(r *http.Request) crypto.Address {
	addr, _ := middleware.CallerFromContext(r.Context())
	return addr
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.svc.Config()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Height:      h.svc.Height(),
		PoolAddress: h.svc.PoolAddress().String(),
		Admin:       cfg.Admin.String(),
		Paused:      cfg.Paused,
	})
}

func (h *handlers) pool(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.PoolInfo()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPoolResponse(info))
}

func (h *handlers) lender(w http.ResponseWriter, r *http.Request) {
	raw, addr, err := pathAddress(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	info, err := h.svc.LenderInfo(addr)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newLenderResponse(raw, info))
}

func (h *handlers) withdrawalLimit(w http.ResponseWriter, r *http.Request) {
	raw, addr, err := pathAddress(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := h.svc.WithdrawalLimit(addr)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withdrawalLimitResponse{
		Address:    raw,
		Redeemable: formatAmount(limit.Redeemable),
		UnlocksAt:  limit.UnlocksAt,
		Unlocked:   limit.Unlocked,
	})
}

func (h *handlers) borrower(w http.ResponseWriter, r *http.Request) {
	raw, addr, err := pathAddress(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	info, err := h.svc.BorrowerInfo(addr)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBorrowerResponse(raw, info))
}

func (h *handlers) loanLimit(w http.ResponseWriter, r *http.Request) {
	raw, addr, err := pathAddress(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	info, err := h.svc.LoanLimitInfo(addr)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newLoanLimitResponse(raw, info))
}

func (h *handlers) eligibility(w http.ResponseWriter, r *http.Request) {
	raw, addr, err := pathAddress(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	info, err := h.svc.LoanEligibilityInfo(addr)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eligibilityResponse{
		loanLimitResponse:  newLoanLimitResponse(raw, info.LoanLimitInfo),
		HasActiveLoan:      info.HasActiveLoan,
		AvailableLiquidity: formatAmount(info.AvailableLiquidity),
		MaxLoanAmount:      formatAmount(info.MaxLoanAmount),
		Eligible:           info.Eligible,
	})
}

func (h *handlers) repaymentDue(w http.ResponseWriter, r *http.Request) {
	raw, addr, err := pathAddress(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	due, err := h.svc.RepaymentAmountDue(addr)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, repaymentDueResponse{Address: raw, RepaymentDue: formatAmount(due)})
}

// lenderAction runs a pool mutation for the caller and answers with the
// caller's updated position.
func (h *handlers) lenderAction(w http.ResponseWriter, r *http.Request, op func(crypto.Address, *big.Int) error) {
	var req amountRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	who := caller(r)
	if err := op(who, amount); err != nil {
		h.writeError(w, r, err)
		return
	}
	info, err := h.svc.LenderInfo(who)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newLenderResponse(who.String(), info))
}

func (h *handlers) lend(w http.ResponseWriter, r *http.Request) {
	h.lenderAction(w, r, h.svc.Lend)
}

func (h *handlers) withdraw(w http.ResponseWriter, r *http.Request) {
	h.lenderAction(w, r, h.svc.Withdraw)
}

func (h *handlers) applyForLoan(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	who := caller(r)
	if err := h.svc.ApplyForLoan(who, amount); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeBorrower(w, r, who)
}

func (h *handlers) repayLoan(w http.ResponseWriter, r *http.Request) {
	var req repayRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	payer := caller(r)
	borrower := payer
	if strings.TrimSpace(req.Borrower) != "" {
		addr, err := parseAddress(req.Borrower)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		borrower = addr
	}
	if err := h.svc.RepayLoan(payer, borrower); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeBorrower(w, r, borrower)
}

func (h *handlers) writeBorrower(w http.ResponseWriter, r *http.Request, account crypto.Address) {
	info, err := h.svc.BorrowerInfo(account)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBorrowerResponse(account.String(), info))
}

func (h *handlers) writePool(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.PoolInfo()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPoolResponse(info))
}

func (h *handlers) setAdmin(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	next, err := parseAddress(req.Admin)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.SetAdmin(caller(r), next); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.status(w, r)
}

func (h *handlers) setDays(w http.ResponseWriter, r *http.Request, op func(crypto.Address, uint64) error) {
	var req daysRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := op(caller(r), req.Days); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writePool(w, r)
}

func (h *handlers) setLoanDuration(w http.ResponseWriter, r *http.Request) {
	h.setDays(w, r, h.svc.SetLoanDurationDays)
}

func (h *handlers) setLockDuration(w http.ResponseWriter, r *http.Request) {
	h.setDays(w, r, h.svc.SetLockDurationDays)
}

func (h *handlers) setInterestRate(w http.ResponseWriter, r *http.Request) {
	var req percentRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.SetInterestRatePercent(caller(r), req.Percent); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writePool(w, r)
}

func (h *handlers) setPaused(w http.ResponseWriter, r *http.Request) {
	var req pauseRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.SetPaused(caller(r), req.Paused); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writePool(w, r)
}

// importHistory loads balance snapshots into the SQL oracle. Only the
// protocol admin may call it.
func (h *handlers) importHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "NotFound", Message: "history index not configured"})
		return
	}
	cfg, err := h.svc.Config()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !caller(r).Equal(cfg.Admin) {
		h.writeError(w, r, credit.ErrNotAdmin)
		return
	}
	var req historyImportRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	snapshots := make([]history.Snapshot, 0, len(req.Snapshots))
	for i, entry := range req.Snapshots {
		addr, err := parseAddress(entry.Account)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("snapshot %d: %w", i, err))
			return
		}
		balance, err := parseAmount(entry.Balance)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("snapshot %d: %w", i, err))
			return
		}
		snapshots = append(snapshots, history.Snapshot{Account: addr, Height: entry.Height, Balance: balance})
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = "api"
	}
	n, err := h.history.Import(r.Context(), source, snapshots)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyImportResponse{Imported: n})
}
