package bank

import (
	"errors"
	"fmt"
	"math/big"

	"creditpool/core/state"
	"creditpool/crypto"
	"creditpool/native/credit"
)

var (
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	ErrInvalidAmount       = errors.New("bank: amount must be positive")
	ErrSelfTransfer        = errors.New("bank: sender and recipient must differ")
)

// Ledger holds account balances for the pooled asset in the state manager.
// Every balance change is staged alongside the caller's other writes and
// records a checkpoint at the current height for point-in-time queries.
type Ledger struct {
	state  *state.Manager
	height func() uint64
}

// NewLedger returns a ledger over manager. height supplies the checkpoint
// height for balance changes.
func NewLedger(manager *state.Manager, height func() uint64) *Ledger {
	if height == nil {
		height = func() uint64 { return 0 }
	}
	return &Ledger{state: manager, height: height}
}

// BalanceOf returns the balance of account, zero when unknown.
func (l *Ledger) BalanceOf(account crypto.Address) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, fmt.Errorf("bank: state manager required")
	}
	return l.state.BankBalance(account)
}

// Transfer moves amount from one account to another. It fails without
// staging any write when the sender cannot cover the amount.
func (l *Ledger) Transfer(amount *big.Int, from, to crypto.Address) error {
	if l == nil || l.state == nil {
		return fmt.Errorf("bank: state manager required")
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: %w", credit.ErrTransferFailed, ErrInvalidAmount)
	}
	if from.Equal(to) {
		return fmt.Errorf("%w: %w", credit.ErrTransferFailed, ErrSelfTransfer)
	}
	fromBalance, err := l.state.BankBalance(from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %w: %s has %s, needs %s", credit.ErrTransferFailed, ErrInsufficientBalance, from, fromBalance, amount)
	}
	toBalance, err := l.state.BankBalance(to)
	if err != nil {
		return err
	}
	height := l.height()
	if err := l.state.PutBankBalance(from, new(big.Int).Sub(fromBalance, amount), height); err != nil {
		return err
	}
	return l.state.PutBankBalance(to, new(big.Int).Add(toBalance, amount), height)
}

// Mint credits amount to account and grows the total supply. The write is
// staged; callers commit it through the state manager. Minting is reserved
// for genesis allocations and must not race with engine operations.
func (l *Ledger) Mint(account crypto.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return fmt.Errorf("bank: state manager required")
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := l.state.BankBalance(account)
	if err != nil {
		return err
	}
	supply, err := l.state.BankSupply()
	if err != nil {
		return err
	}
	if err := l.state.PutBankBalance(account, new(big.Int).Add(balance, amount), l.height()); err != nil {
		return err
	}
	return l.state.PutBankSupply(new(big.Int).Add(supply, amount))
}

// Supply returns the total minted amount.
func (l *Ledger) Supply() (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, fmt.Errorf("bank: state manager required")
	}
	return l.state.BankSupply()
}
