package credit

import (
	"errors"

	nativecommon "creditpool/native/common"
)

// Caller-visible failure kinds. Every public operation returns one of these
// (possibly wrapped) or a storage error; none are retried internally.
var (
	ErrNotAdmin           = errors.New("credit: caller is not the admin")
	ErrAmountTooSmall     = errors.New("credit: amount below required minimum")
	ErrNotALender         = errors.New("credit: caller has no pool position")
	ErrPoolShareExceeded  = errors.New("credit: amount exceeds redeemable pool share")
	ErrNotEligible        = errors.New("credit: not eligible")
	ErrFundsNotAvailable  = errors.New("credit: pool liquidity insufficient for loan")
	ErrFundsLocked        = errors.New("credit: funds locked")
	ErrHistoryUnavailable = errors.New("credit: balance history unavailable")
	ErrTransferFailed     = errors.New("credit: asset transfer failed")
	ErrInvalidAdmin       = errors.New("credit: admin address required")
)

var (
	errNilState     = errors.New("credit engine: state not configured")
	errNilTransfer  = errors.New("credit engine: asset transfer not configured")
	errNilOracle    = errors.New("credit engine: balance oracle not configured")
	errNoConfig     = errors.New("credit engine: protocol not initialised")
	errInvalidAmt   = errors.New("credit engine: amount must be non-negative")
)

// Kind returns the stable identifier for the failure kind wrapped by err, or
// "Internal" when err does not belong to the credit taxonomy. A nil error
// yields the empty string.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotAdmin):
		return "NotAdmin"
	case errors.Is(err, ErrAmountTooSmall):
		return "AmountTooSmall"
	case errors.Is(err, ErrNotALender):
		return "NotALender"
	case errors.Is(err, ErrPoolShareExceeded):
		return "PoolShareExceeded"
	case errors.Is(err, ErrNotEligible):
		return "NotEligible"
	case errors.Is(err, ErrFundsNotAvailable):
		return "FundsNotAvailable"
	case errors.Is(err, ErrFundsLocked):
		return "FundsLocked"
	case errors.Is(err, ErrHistoryUnavailable):
		return "HistoryUnavailable"
	case errors.Is(err, ErrTransferFailed):
		return "TransferFailed"
	case errors.Is(err, ErrInvalidAdmin):
		return "InvalidAdmin"
	case errors.Is(err, nativecommon.ErrModulePaused):
		return "Paused"
	default:
		return "Internal"
	}
}
