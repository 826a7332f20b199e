package credit

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"creditpool/crypto"
)

// mockSnapshot is one generation of mock state.
type mockSnapshot struct {
	config    *ProtocolConfig
	positions map[string]*LenderPosition
	loans     map[string]*ActiveLoan
	histories map[string]*CreditHistory
}

func (s mockSnapshot) clone() mockSnapshot {
	out := mockSnapshot{
		config:    s.config.Clone(),
		positions: make(map[string]*LenderPosition, len(s.positions)),
		loans:     make(map[string]*ActiveLoan, len(s.loans)),
		histories: make(map[string]*CreditHistory, len(s.histories)),
	}
	for k, v := range s.positions {
		out.positions[k] = v.Clone()
	}
	for k, v := range s.loans {
		out.loans[k] = v.Clone()
	}
	for k, v := range s.histories {
		h := *v
		out.histories[k] = &h
	}
	return out
}

// mockEngineState stages writes in working and copies them into committed on
// Commit, mirroring the overlay semantics of the real state manager.
type mockEngineState struct {
	committed mockSnapshot
	working   mockSnapshot
	commits   int
	failPut   error
}

func newMockEngineState() *mockEngineState {
	empty := mockSnapshot{
		positions: make(map[string]*LenderPosition),
		loans:     make(map[string]*ActiveLoan),
		histories: make(map[string]*CreditHistory),
	}
	return &mockEngineState{committed: empty, working: empty.clone()}
}

func (m *mockEngineState) key(addr crypto.Address) string {
	return string(addr.Bytes())
}

func (m *mockEngineState) CreditConfig() (*ProtocolConfig, bool, error) {
	if m.working.config == nil {
		return nil, false, nil
	}
	return m.working.config.Clone(), true, nil
}

func (m *mockEngineState) PutCreditConfig(cfg *ProtocolConfig) error {
	if m.failPut != nil {
		return m.failPut
	}
	m.working.config = cfg.Clone()
	return nil
}

func (m *mockEngineState) CreditLenderPosition(addr crypto.Address) (*LenderPosition, bool, error) {
	position, ok := m.working.positions[m.key(addr)]
	if !ok {
		return nil, false, nil
	}
	return position.Clone(), true, nil
}

func (m *mockEngineState) PutCreditLenderPosition(addr crypto.Address, position *LenderPosition) error {
	if m.failPut != nil {
		return m.failPut
	}
	m.working.positions[m.key(addr)] = position.Clone()
	return nil
}

func (m *mockEngineState) DeleteCreditLenderPosition(addr crypto.Address) error {
	delete(m.working.positions, m.key(addr))
	return nil
}

func (m *mockEngineState) CreditLenders() ([]crypto.Address, error) {
	keys := make([]string, 0, len(m.working.positions))
	for k := range m.working.positions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]crypto.Address, 0, len(keys))
	for _, k := range keys {
		out = append(out, crypto.NewAddress(crypto.AccountPrefix, []byte(k)))
	}
	return out, nil
}

func (m *mockEngineState) CreditActiveLoan(addr crypto.Address) (*ActiveLoan, bool, error) {
	loan, ok := m.working.loans[m.key(addr)]
	if !ok {
		return nil, false, nil
	}
	return loan.Clone(), true, nil
}

func (m *mockEngineState) PutCreditActiveLoan(addr crypto.Address, loan *ActiveLoan) error {
	if m.failPut != nil {
		return m.failPut
	}
	m.working.loans[m.key(addr)] = loan.Clone()
	return nil
}

func (m *mockEngineState) DeleteCreditActiveLoan(addr crypto.Address) error {
	delete(m.working.loans, m.key(addr))
	return nil
}

func (m *mockEngineState) CreditHistory(addr crypto.Address) (*CreditHistory, bool, error) {
	history, ok := m.working.histories[m.key(addr)]
	if !ok {
		return nil, false, nil
	}
	h := *history
	return &h, true, nil
}

func (m *mockEngineState) PutCreditHistory(addr crypto.Address, history *CreditHistory) error {
	if m.failPut != nil {
		return m.failPut
	}
	h := *history
	m.working.histories[m.key(addr)] = &h
	return nil
}

func (m *mockEngineState) Commit() error {
	m.committed = m.working.clone()
	m.commits++
	return nil
}

func (m *mockEngineState) Discard() {
	m.working = m.committed.clone()
}

var errMockInsufficient = errors.New("mock ledger: insufficient balance")

// mockLedger is an in-memory AssetTransfer.
type mockLedger struct {
	mu       sync.Mutex
	balances map[string]*big.Int
	fail     error
}

func newMockLedger() *mockLedger {
	return &mockLedger{balances: make(map[string]*big.Int)}
}

func (l *mockLedger) set(addr crypto.Address, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[string(addr.Bytes())] = big.NewInt(amount)
}

func (l *mockLedger) balance(addr crypto.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.balances[string(addr.Bytes())]; ok {
		return new(big.Int).Set(b)
	}
	return big.NewInt(0)
}

func (l *mockLedger) Transfer(amount *big.Int, from, to crypto.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail != nil {
		return l.fail
	}
	fromKey, toKey := string(from.Bytes()), string(to.Bytes())
	fromBal := l.balances[fromKey]
	if fromBal == nil {
		fromBal = big.NewInt(0)
	}
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s need %s", errMockInsufficient, fromBal, amount)
	}
	if fromKey == toKey {
		return nil
	}
	toBal := l.balances[toKey]
	if toBal == nil {
		toBal = big.NewInt(0)
	}
	l.balances[fromKey] = new(big.Int).Sub(fromBal, amount)
	l.balances[toKey] = new(big.Int).Add(toBal, amount)
	return nil
}

func (l *mockLedger) BalanceOf(addr crypto.Address) (*big.Int, error) {
	return l.balance(addr), nil
}

// mockOracle returns a scripted balance per account and height window.
type mockOracle struct {
	balances map[string]func(height uint64) *big.Int
	earliest uint64
}

func newMockOracle() *mockOracle {
	return &mockOracle{balances: make(map[string]func(uint64) *big.Int)}
}

func (o *mockOracle) constant(addr crypto.Address, amount int64) {
	o.balances[string(addr.Bytes())] = func(uint64) *big.Int { return big.NewInt(amount) }
}

func (o *mockOracle) BalanceAt(addr crypto.Address, height uint64) (*big.Int, error) {
	if height < o.earliest {
		return nil, fmt.Errorf("%w: height %d before %d", ErrHistoryUnavailable, height, o.earliest)
	}
	fn, ok := o.balances[string(addr.Bytes())]
	if !ok {
		return big.NewInt(0), nil
	}
	return fn(height), nil
}

func makeAddress(prefix crypto.AddressPrefix, suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.NewAddress(prefix, raw)
}
