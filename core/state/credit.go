package state

import (
	"fmt"
	"math/big"

	"creditpool/crypto"
	"creditpool/native/credit"
)

var (
	creditConfigKey      = []byte("credit/config")
	creditLenderIndexKey = []byte("credit/lenders")
	creditLenderPrefix   = []byte("credit/lender/")
	creditLoanPrefix     = []byte("credit/loan/")
	creditHistoryPrefix  = []byte("credit/history/")
)

type storedCreditConfig struct {
	Admin               []byte
	AdminPrefix         string
	TotalPoolUnits      *big.Int
	InterestRatePercent uint64
	LoanDurationDays    uint64
	LockDurationDays    uint64
	Paused              bool
}

type storedLenderPosition struct {
	Balance   *big.Int
	LockedAt  uint64
	UnlocksAt uint64
}

type storedActiveLoan struct {
	Principal           *big.Int
	IssuedAt            uint64
	DueAt               uint64
	InterestRatePercent uint64
}

type storedCreditHistory struct {
	TotalLoans  uint64
	OnTimeLoans uint64
	LateLoans   uint64
}

func accountKey(prefix []byte, addr crypto.Address) []byte {
	key := make([]byte, 0, len(prefix)+len(addr.Bytes()))
	key = append(key, prefix...)
	return append(key, addr.Bytes()...)
}

func nonNilBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// CreditConfig loads the protocol configuration singleton.
func (m *Manager) CreditConfig() (*credit.ProtocolConfig, bool, error) {
	var stored storedCreditConfig
	ok, err := m.KVGet(creditConfigKey, &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg := &credit.ProtocolConfig{
		TotalPoolUnits:      nonNilBig(stored.TotalPoolUnits),
		InterestRatePercent: stored.InterestRatePercent,
		LoanDurationDays:    stored.LoanDurationDays,
		LockDurationDays:    stored.LockDurationDays,
		Paused:              stored.Paused,
	}
	if len(stored.Admin) > 0 {
		if len(stored.Admin) != crypto.AddressLength {
			return nil, false, fmt.Errorf("state: credit config admin has %d bytes", len(stored.Admin))
		}
		cfg.Admin = crypto.NewAddress(crypto.AddressPrefix(stored.AdminPrefix), stored.Admin)
	}
	return cfg, true, nil
}

// PutCreditConfig stages the protocol configuration singleton.
func (m *Manager) PutCreditConfig(cfg *credit.ProtocolConfig) error {
	if cfg == nil {
		return fmt.Errorf("state: credit config must not be nil")
	}
	return m.KVPut(creditConfigKey, &storedCreditConfig{
		Admin:               cfg.Admin.Bytes(),
		AdminPrefix:         string(cfg.Admin.Prefix()),
		TotalPoolUnits:      nonNilBig(cfg.TotalPoolUnits),
		InterestRatePercent: cfg.InterestRatePercent,
		LoanDurationDays:    cfg.LoanDurationDays,
		LockDurationDays:    cfg.LockDurationDays,
		Paused:              cfg.Paused,
	})
}

// CreditLenderPosition loads addr's pool position.
func (m *Manager) CreditLenderPosition(addr crypto.Address) (*credit.LenderPosition, bool, error) {
	var stored storedLenderPosition
	ok, err := m.KVGet(accountKey(creditLenderPrefix, addr), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &credit.LenderPosition{
		Balance:   nonNilBig(stored.Balance),
		LockedAt:  stored.LockedAt,
		UnlocksAt: stored.UnlocksAt,
	}, true, nil
}

// PutCreditLenderPosition stages addr's position and records addr in the
// lender index.
func (m *Manager) PutCreditLenderPosition(addr crypto.Address, position *credit.LenderPosition) error {
	if position == nil {
		return fmt.Errorf("state: lender position must not be nil")
	}
	if err := m.KVPut(accountKey(creditLenderPrefix, addr), &storedLenderPosition{
		Balance:   nonNilBig(position.Balance),
		LockedAt:  position.LockedAt,
		UnlocksAt: position.UnlocksAt,
	}); err != nil {
		return err
	}
	return m.KVAppend(creditLenderIndexKey, addr.Bytes())
}

// DeleteCreditLenderPosition removes addr's position and its index entry.
func (m *Manager) DeleteCreditLenderPosition(addr crypto.Address) error {
	if err := m.KVDelete(accountKey(creditLenderPrefix, addr)); err != nil {
		return err
	}
	return m.KVRemove(creditLenderIndexKey, addr.Bytes())
}

// CreditLenders lists every address holding a position, in first-deposit
// order.
func (m *Manager) CreditLenders() ([]crypto.Address, error) {
	var raw [][]byte
	if err := m.KVGetList(creditLenderIndexKey, &raw); err != nil {
		return nil, err
	}
	out := make([]crypto.Address, 0, len(raw))
	for _, b := range raw {
		if len(b) != crypto.AddressLength {
			return nil, fmt.Errorf("state: lender index entry has %d bytes", len(b))
		}
		out = append(out, crypto.NewAddress(crypto.AccountPrefix, b))
	}
	return out, nil
}

// CreditActiveLoan loads addr's outstanding loan.
func (m *Manager) CreditActiveLoan(addr crypto.Address) (*credit.ActiveLoan, bool, error) {
	var stored storedActiveLoan
	ok, err := m.KVGet(accountKey(creditLoanPrefix, addr), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &credit.ActiveLoan{
		Principal:           nonNilBig(stored.Principal),
		IssuedAt:            stored.IssuedAt,
		DueAt:               stored.DueAt,
		InterestRatePercent: stored.InterestRatePercent,
	}, true, nil
}

// PutCreditActiveLoan stages addr's outstanding loan.
func (m *Manager) PutCreditActiveLoan(addr crypto.Address, loan *credit.ActiveLoan) error {
	if loan == nil {
		return fmt.Errorf("state: active loan must not be nil")
	}
	return m.KVPut(accountKey(creditLoanPrefix, addr), &storedActiveLoan{
		Principal:           nonNilBig(loan.Principal),
		IssuedAt:            loan.IssuedAt,
		DueAt:               loan.DueAt,
		InterestRatePercent: loan.InterestRatePercent,
	})
}

// DeleteCreditActiveLoan removes addr's outstanding loan.
func (m *Manager) DeleteCreditActiveLoan(addr crypto.Address) error {
	return m.KVDelete(accountKey(creditLoanPrefix, addr))
}

// CreditHistory loads addr's loan counters.
func (m *Manager) CreditHistory(addr crypto.Address) (*credit.CreditHistory, bool, error) {
	var stored storedCreditHistory
	ok, err := m.KVGet(accountKey(creditHistoryPrefix, addr), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &credit.CreditHistory{
		TotalLoans:  stored.TotalLoans,
		OnTimeLoans: stored.OnTimeLoans,
		LateLoans:   stored.LateLoans,
	}, true, nil
}

// PutCreditHistory stages addr's loan counters.
func (m *Manager) PutCreditHistory(addr crypto.Address, history *credit.CreditHistory) error {
	if history == nil {
		return fmt.Errorf("state: credit history must not be nil")
	}
	return m.KVPut(accountKey(creditHistoryPrefix, addr), &storedCreditHistory{
		TotalLoans:  history.TotalLoans,
		OnTimeLoans: history.OnTimeLoans,
		LateLoans:   history.LateLoans,
	})
}
