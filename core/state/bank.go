package state

import (
	"fmt"
	"math/big"

	"creditpool/crypto"
	"creditpool/native/credit"
)

var (
	bankBalancePrefix    = []byte("bank/balance/")
	bankCheckpointPrefix = []byte("bank/checkpoints/")
	bankSupplyKey        = []byte("bank/supply")
)

// CheckpointRetentionBlocks is how far behind the newest write an account's
// checkpoints stay exact. It covers the deepest average-balance sample.
var CheckpointRetentionBlocks = credit.MinHistoryBlocks

// BalanceCheckpoint records an account balance as of a block height. The
// balance holds from Height until the next checkpoint.
type BalanceCheckpoint struct {
	Height  uint64
	Balance *big.Int
}

type storedBankBalance struct {
	Balance *big.Int
}

type storedCheckpoints struct {
	Entries []BalanceCheckpoint
}

// BankBalance returns addr's balance, zero when the account is unknown.
func (m *Manager) BankBalance(addr crypto.Address) (*big.Int, error) {
	var stored storedBankBalance
	ok, err := m.KVGet(accountKey(bankBalancePrefix, addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return nonNilBig(stored.Balance), nil
}

// PutBankBalance stages addr's balance and appends a checkpoint at height.
// Multiple changes within one height collapse into a single checkpoint, and a
// height below the newest checkpoint is treated as that checkpoint's height.
// Checkpoints older than CheckpointRetentionBlocks are compacted, keeping the
// newest one at or before the cutoff so lookups inside the window stay exact.
func (m *Manager) PutBankBalance(addr crypto.Address, balance *big.Int, height uint64) error {
	if balance == nil || balance.Sign() < 0 {
		return fmt.Errorf("state: balance must be non-negative")
	}
	checkpoints, err := m.BankCheckpoints(addr)
	if err != nil {
		return err
	}
	if n := len(checkpoints); n > 0 {
		last := checkpoints[n-1]
		if height < last.Height {
			height = last.Height
		}
		if height == last.Height {
			checkpoints = checkpoints[:n-1]
		}
	}
	if err := m.KVPut(accountKey(bankBalancePrefix, addr), &storedBankBalance{Balance: new(big.Int).Set(balance)}); err != nil {
		return err
	}
	checkpoints = append(checkpoints, BalanceCheckpoint{Height: height, Balance: new(big.Int).Set(balance)})
	return m.putCheckpoints(addr, compactCheckpoints(checkpoints, height))
}

// compactCheckpoints drops entries superseded before height minus the
// retention window.
func compactCheckpoints(checkpoints []BalanceCheckpoint, height uint64) []BalanceCheckpoint {
	if height <= CheckpointRetentionBlocks {
		return checkpoints
	}
	cutoff := height - CheckpointRetentionBlocks
	drop := 0
	for drop+1 < len(checkpoints) && checkpoints[drop+1].Height <= cutoff {
		drop++
	}
	if drop == 0 {
		return checkpoints
	}
	return append([]BalanceCheckpoint(nil), checkpoints[drop:]...)
}

// BankCheckpoints returns addr's balance history in ascending height order.
func (m *Manager) BankCheckpoints(addr crypto.Address) ([]BalanceCheckpoint, error) {
	var stored storedCheckpoints
	ok, err := m.KVGet(accountKey(bankCheckpointPrefix, addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return stored.Entries, nil
}

func (m *Manager) putCheckpoints(addr crypto.Address, checkpoints []BalanceCheckpoint) error {
	return m.KVPut(accountKey(bankCheckpointPrefix, addr), &storedCheckpoints{Entries: checkpoints})
}

// BankSupply returns the total amount ever minted.
func (m *Manager) BankSupply() (*big.Int, error) {
	var stored storedBankBalance
	ok, err := m.KVGet(bankSupplyKey, &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return nonNilBig(stored.Balance), nil
}

// PutBankSupply stages the total minted supply.
func (m *Manager) PutBankSupply(supply *big.Int) error {
	if supply == nil || supply.Sign() < 0 {
		return fmt.Errorf("state: supply must be non-negative")
	}
	return m.KVPut(bankSupplyKey, &storedBankBalance{Balance: new(big.Int).Set(supply)})
}
