package credit

import (
	"math/big"
	"time"

	"creditpool/crypto"
)

// BalanceOracle answers point-in-time balance queries for the tracked asset.
// Implementations return an error wrapping ErrHistoryUnavailable when height
// predates the history they hold.
type BalanceOracle interface {
	BalanceAt(account crypto.Address, height uint64) (*big.Int, error)
}

// AssetTransfer moves the pooled asset between accounts. Transfer must either
// complete or fail without effect.
type AssetTransfer interface {
	Transfer(amount *big.Int, from, to crypto.Address) error
	BalanceOf(account crypto.Address) (*big.Int, error)
}

// Metrics receives per-operation telemetry after an operation completes.
type Metrics interface {
	ObserveOperation(operation, outcome string, duration time.Duration)
	SetPool(totalUnits, custody *big.Int)
}
