package credit

import "math/big"

var bigOne = big.NewInt(1)

// Redeemable returns the asset amount the given units can withdraw:
// floor(units * custody / totalUnits). A zero totalUnits is treated as one.
func Redeemable(units, totalUnits, custody *big.Int) *big.Int {
	if units == nil || units.Sign() <= 0 || custody == nil || custody.Sign() <= 0 {
		return big.NewInt(0)
	}
	divisor := totalUnits
	if divisor == nil || divisor.Sign() <= 0 {
		divisor = bigOne
	}
	out := new(big.Int).Mul(units, custody)
	return out.Quo(out, divisor)
}

// WithdrawalEffect is the outcome of withdrawing from a position.
type WithdrawalEffect struct {
	// Position is the updated position, or nil when it is fully redeemed and
	// must be deleted.
	Position *LenderPosition
	// TotalUnits is the pool unit supply after the withdrawal.
	TotalUnits *big.Int
	// BurnedUnits is the unit-equivalent of the withdrawn amount.
	BurnedUnits *big.Int
	// Redeemable is the position's redeemable amount before the withdrawal.
	Redeemable *big.Int
}

// ComputeWithdrawalEffect burns the unit-equivalent of amount from position.
// It fails with ErrNotALender for an empty position and ErrPoolShareExceeded
// when amount exceeds the redeemable share. Burned units are rounded up, and
// withdrawing exactly the redeemable amount burns the whole position, so the
// remaining lenders' unit value never decreases and
// sum(position units) == totalUnits is preserved.
func ComputeWithdrawalEffect(position *LenderPosition, totalUnits, custody, amount *big.Int) (WithdrawalEffect, error) {
	if position == nil || position.Balance == nil || position.Balance.Sign() <= 0 {
		return WithdrawalEffect{}, ErrNotALender
	}
	if amount == nil || amount.Sign() < 0 {
		return WithdrawalEffect{}, errInvalidAmt
	}
	total := big.NewInt(0)
	if totalUnits != nil {
		total.Set(totalUnits)
	}
	units := position.Balance
	redeemable := Redeemable(units, total, custody)
	if amount.Cmp(redeemable) > 0 {
		return WithdrawalEffect{}, ErrPoolShareExceeded
	}

	burned := new(big.Int)
	switch {
	case amount.Sign() == 0:
	case amount.Cmp(redeemable) == 0:
		burned.Set(units)
	default:
		// amount < redeemable implies custody > 0.
		divisor := total
		if divisor.Sign() == 0 {
			divisor = bigOne
		}
		burned.Mul(amount, divisor)
		burned.Add(burned, new(big.Int).Sub(custody, bigOne))
		burned.Quo(burned, custody)
		if burned.Cmp(units) > 0 {
			burned.Set(units)
		}
	}

	newTotal := new(big.Int).Sub(total, burned)
	if newTotal.Sign() < 0 {
		newTotal.SetInt64(0)
	}
	effect := WithdrawalEffect{
		TotalUnits:  newTotal,
		BurnedUnits: burned,
		Redeemable:  redeemable,
	}
	remaining := new(big.Int).Sub(units, burned)
	if remaining.Sign() > 0 {
		updated := position.Clone()
		updated.Balance = remaining
		effect.Position = updated
	}
	return effect, nil
}
