package credit

import (
	"strconv"

	"creditpool/core/events"
	"creditpool/crypto"
)

const (
	ParamAdmin               = "admin"
	ParamLoanDurationDays    = "loanDurationDays"
	ParamLockDurationDays    = "lockDurationDays"
	ParamInterestRatePercent = "interestRatePercent"
	ParamPaused              = "paused"
)

// updateConfig applies apply to the protocol configuration when caller is
// the admin and emits a parameter update event.
func (e *Engine) updateConfig(caller crypto.Address, param string, apply func(cfg *ProtocolConfig) (string, error)) error {
	return e.mutate("set_"+param, func(uint64) ([]events.Event, error) {
		cfg, err := e.loadConfig()
		if err != nil {
			return nil, err
		}
		if cfg.Admin.IsZero() || !cfg.Admin.Equal(caller) {
			return nil, ErrNotAdmin
		}
		value, err := apply(cfg)
		if err != nil {
			return nil, err
		}
		if err := e.state.PutCreditConfig(cfg); err != nil {
			return nil, err
		}
		return []events.Event{events.CreditParamsUpdated{Param: param, Value: value}}, nil
	})
}

// SetAdmin hands the admin role to newAdmin.
func (e *Engine) SetAdmin(caller, newAdmin crypto.Address) error {
	return e.updateConfig(caller, ParamAdmin, func(cfg *ProtocolConfig) (string, error) {
		if newAdmin.IsZero() {
			return "", ErrInvalidAdmin
		}
		cfg.Admin = newAdmin
		return newAdmin.String(), nil
	})
}

// SetLoanDurationDays sets the term of newly issued loans. Existing loans keep
// their due height.
func (e *Engine) SetLoanDurationDays(caller crypto.Address, days uint64) error {
	return e.updateConfig(caller, ParamLoanDurationDays, func(cfg *ProtocolConfig) (string, error) {
		if days < MinLoanDurationDays {
			return "", ErrAmountTooSmall
		}
		cfg.LoanDurationDays = days
		return strconv.FormatUint(days, 10), nil
	})
}

// SetLockDurationDays sets the lock applied by subsequent deposits.
func (e *Engine) SetLockDurationDays(caller crypto.Address, days uint64) error {
	return e.updateConfig(caller, ParamLockDurationDays, func(cfg *ProtocolConfig) (string, error) {
		if days == 0 {
			return "", ErrAmountTooSmall
		}
		cfg.LockDurationDays = days
		return strconv.FormatUint(days, 10), nil
	})
}

// SetInterestRatePercent sets the rate captured by subsequently issued loans.
func (e *Engine) SetInterestRatePercent(caller crypto.Address, percent uint64) error {
	return e.updateConfig(caller, ParamInterestRatePercent, func(cfg *ProtocolConfig) (string, error) {
		if percent == 0 {
			return "", ErrAmountTooSmall
		}
		cfg.InterestRatePercent = percent
		return strconv.FormatUint(percent, 10), nil
	})
}

// SetPaused toggles the emergency switch that halts deposits and new loans.
func (e *Engine) SetPaused(caller crypto.Address, paused bool) error {
	return e.updateConfig(caller, ParamPaused, func(cfg *ProtocolConfig) (string, error) {
		cfg.Paused = paused
		return strconv.FormatBool(paused), nil
	})
}
