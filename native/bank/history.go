package bank

import (
	"fmt"
	"math/big"
	"sort"

	"creditpool/core/state"
	"creditpool/crypto"
	"creditpool/native/credit"
)

// HistoryOracle answers point-in-time balance queries from the checkpoints the
// Ledger records. Heights before earliest predate the retained history.
type HistoryOracle struct {
	state    *state.Manager
	earliest uint64
}

// NewHistoryOracle returns an oracle over manager whose history begins at
// earliest.
func NewHistoryOracle(manager *state.Manager, earliest uint64) *HistoryOracle {
	return &HistoryOracle{state: manager, earliest: earliest}
}

// BalanceAt returns account's balance as of height: the latest checkpoint at
// or before height, or zero when the account had no balance yet.
func (o *HistoryOracle) BalanceAt(account crypto.Address, height uint64) (*big.Int, error) {
	if o == nil || o.state == nil {
		return nil, fmt.Errorf("bank: state manager required")
	}
	if height < o.earliest {
		return nil, fmt.Errorf("%w: height %d precedes retained history at %d", credit.ErrHistoryUnavailable, height, o.earliest)
	}
	checkpoints, err := o.state.BankCheckpoints(account)
	if err != nil {
		return nil, err
	}
	idx := sort.Search(len(checkpoints), func(i int) bool {
		return checkpoints[i].Height > height
	})
	if idx == 0 {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(checkpoints[idx-1].Balance), nil
}
