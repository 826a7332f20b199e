package credit

import (
	"errors"
	"math/big"
	"math/rand"
	"testing"
)

func TestRedeemableFreshPool(t *testing.T) {
	got := Redeemable(big.NewInt(500), big.NewInt(0), big.NewInt(1_000))
	if got.Cmp(big.NewInt(500_000)) != 0 {
		t.Fatalf("expected divisor of one for an empty pool, got %s", got)
	}
	if got := Redeemable(nil, big.NewInt(10), big.NewInt(10)); got.Sign() != 0 {
		t.Fatalf("expected zero for nil units, got %s", got)
	}
}

func TestComputeWithdrawalEffectRoundsBurnUp(t *testing.T) {
	position := &LenderPosition{Balance: big.NewInt(3), LockedAt: 7, UnlocksAt: 9}
	effect, err := ComputeWithdrawalEffect(position, big.NewInt(3), big.NewInt(4), big.NewInt(1))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if effect.BurnedUnits.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected one burned unit, got %s", effect.BurnedUnits)
	}
	if effect.Position == nil || effect.Position.Balance.Cmp(big.NewInt(2)) != 0 {
		t.Fatalf("unexpected remaining position %+v", effect.Position)
	}
	if effect.Position.LockedAt != 7 || effect.Position.UnlocksAt != 9 {
		t.Fatalf("lock window must be preserved, got %+v", effect.Position)
	}
	if position.Balance.Cmp(big.NewInt(3)) != 0 {
		t.Fatalf("input position mutated: %s", position.Balance)
	}
	if effect.Redeemable.Cmp(big.NewInt(4)) != 0 {
		t.Fatalf("unexpected redeemable %s", effect.Redeemable)
	}
}

func TestComputeWithdrawalEffectFullRedeemDeletes(t *testing.T) {
	position := &LenderPosition{Balance: big.NewInt(2)}
	// floor(2*7/3) = 4 leaves one unit of dust for the other holder.
	effect, err := ComputeWithdrawalEffect(position, big.NewInt(3), big.NewInt(7), big.NewInt(4))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if effect.Position != nil {
		t.Fatalf("expected position to be deleted, got %+v", effect.Position)
	}
	if effect.TotalUnits.Cmp(big.NewInt(1)) != 0 || effect.BurnedUnits.Cmp(big.NewInt(2)) != 0 {
		t.Fatalf("unexpected totals %+v", effect)
	}
}

func TestComputeWithdrawalEffectErrors(t *testing.T) {
	if _, err := ComputeWithdrawalEffect(nil, big.NewInt(1), big.NewInt(1), big.NewInt(1)); !errors.Is(err, ErrNotALender) {
		t.Fatalf("expected ErrNotALender, got %v", err)
	}
	empty := &LenderPosition{Balance: big.NewInt(0)}
	if _, err := ComputeWithdrawalEffect(empty, big.NewInt(1), big.NewInt(1), big.NewInt(1)); !errors.Is(err, ErrNotALender) {
		t.Fatalf("expected ErrNotALender, got %v", err)
	}
	position := &LenderPosition{Balance: big.NewInt(5)}
	if _, err := ComputeWithdrawalEffect(position, big.NewInt(10), big.NewInt(10), big.NewInt(6)); !errors.Is(err, ErrPoolShareExceeded) {
		t.Fatalf("expected ErrPoolShareExceeded, got %v", err)
	}
	effect, err := ComputeWithdrawalEffect(position, big.NewInt(10), big.NewInt(10), big.NewInt(0))
	if err != nil {
		t.Fatalf("zero withdrawal: %v", err)
	}
	if effect.BurnedUnits.Sign() != 0 || effect.TotalUnits.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("zero withdrawal must not burn, got %+v", effect)
	}
}

// shareSim drives the pure share functions through a random sequence of
// deposits, withdrawals, loans and repayments.
type shareSim struct {
	units       []*big.Int
	total       *big.Int
	custody     *big.Int
	outstanding []*big.Int
}

func (s *shareSim) principal() *big.Int {
	out := big.NewInt(0)
	for _, p := range s.outstanding {
		out.Add(out, p)
	}
	return out
}

func (s *shareSim) redeemables() []*big.Int {
	out := make([]*big.Int, len(s.units))
	for i, u := range s.units {
		out[i] = Redeemable(u, s.total, s.custody)
	}
	return out
}

func (s *shareSim) check(t *testing.T, step int) {
	t.Helper()
	sumUnits := big.NewInt(0)
	sumRedeemable := big.NewInt(0)
	live := 0
	for _, u := range s.units {
		if u.Sign() == 0 {
			continue
		}
		live++
		sumUnits.Add(sumUnits, u)
		sumRedeemable.Add(sumRedeemable, Redeemable(u, s.total, s.custody))
	}
	if sumUnits.Cmp(s.total) != 0 {
		t.Fatalf("step %d: sum(units)=%s total=%s", step, sumUnits, s.total)
	}
	if sumRedeemable.Cmp(s.custody) > 0 {
		t.Fatalf("step %d: sum(redeemable)=%s exceeds custody %s", step, sumRedeemable, s.custody)
	}
	if live > 0 {
		dust := new(big.Int).Sub(s.custody, sumRedeemable)
		if dust.Cmp(big.NewInt(int64(live))) > 0 {
			t.Fatalf("step %d: dust %s exceeds %d positions", step, dust, live)
		}
	}
	backing := new(big.Int).Add(s.custody, s.principal())
	if backing.Cmp(s.total) < 0 {
		t.Fatalf("step %d: custody %s plus principal %s below units %s", step, s.custody, s.principal(), s.total)
	}
}

// unitValueHeld reports whether custody/total did not decrease.
func unitValueHeld(beforeTotal, beforeCustody, afterTotal, afterCustody *big.Int) bool {
	if beforeTotal.Sign() == 0 || afterTotal.Sign() == 0 {
		return true
	}
	lhs := new(big.Int).Mul(afterCustody, beforeTotal)
	rhs := new(big.Int).Mul(beforeCustody, afterTotal)
	return lhs.Cmp(rhs) >= 0
}

func TestShareAccountingProperties(t *testing.T) {
	rates := []int64{500, 1000, 1500}
	for _, seed := range []int64{1, 7, 42, 1234} {
		rng := rand.New(rand.NewSource(seed))
		sim := &shareSim{units: make([]*big.Int, 6), total: big.NewInt(0), custody: big.NewInt(0)}
		for i := range sim.units {
			sim.units[i] = big.NewInt(0)
		}
		for step := 0; step < 2_000; step++ {
			i := rng.Intn(len(sim.units))
			beforeTotal := new(big.Int).Set(sim.total)
			beforeCustody := new(big.Int).Set(sim.custody)
			valueChecked := true
			switch op := rng.Intn(12); {
			case op < 4:
				amount := big.NewInt(rng.Int63n(50_000_000) + 1)
				sim.units[i].Add(sim.units[i], amount)
				sim.total.Add(sim.total, amount)
				sim.custody.Add(sim.custody, amount)
				valueChecked = false
			case op < 8:
				if sim.units[i].Sign() == 0 {
					continue
				}
				position := &LenderPosition{Balance: new(big.Int).Set(sim.units[i])}
				redeemable := Redeemable(position.Balance, sim.total, sim.custody)
				var amount *big.Int
				if rng.Intn(4) == 0 || redeemable.Sign() == 0 {
					amount = new(big.Int).Set(redeemable)
				} else {
					amount = new(big.Int).Rand(rng, redeemable)
					amount.Add(amount, bigOne)
				}
				effect, err := ComputeWithdrawalEffect(position, sim.total, sim.custody, amount)
				if err != nil {
					t.Fatalf("seed %d step %d: withdraw %s of %s: %v", seed, step, amount, redeemable, err)
				}
				if effect.Position == nil {
					sim.units[i] = big.NewInt(0)
				} else {
					sim.units[i] = effect.Position.Balance
				}
				sim.total = effect.TotalUnits
				sim.custody.Sub(sim.custody, amount)
			case op < 10:
				if sim.custody.Sign() == 0 {
					continue
				}
				principal := new(big.Int).Rand(rng, sim.custody)
				principal.Add(principal, bigOne)
				sim.custody.Sub(sim.custody, principal)
				sim.outstanding = append(sim.outstanding, principal)
				valueChecked = false
			default:
				if len(sim.outstanding) == 0 {
					continue
				}
				before := sim.redeemables()
				k := rng.Intn(len(sim.outstanding))
				principal := sim.outstanding[k]
				sim.outstanding = append(sim.outstanding[:k], sim.outstanding[k+1:]...)
				interest := new(big.Int).Mul(principal, big.NewInt(rates[rng.Intn(len(rates))]))
				interest.Quo(interest, big.NewInt(10_000))
				sim.custody.Add(sim.custody, principal)
				sim.custody.Add(sim.custody, interest)
				for j, r := range sim.redeemables() {
					if r.Cmp(before[j]) < 0 {
						t.Fatalf("seed %d step %d: repayment lowered position %d from %s to %s", seed, step, j, before[j], r)
					}
				}
			}
			sim.check(t, step)
			if valueChecked && !unitValueHeld(beforeTotal, beforeCustody, sim.total, sim.custody) {
				t.Fatalf("seed %d step %d: unit value decreased from %s/%s to %s/%s",
					seed, step, beforeCustody, beforeTotal, sim.custody, sim.total)
			}
		}
	}
}

func TestDepositWithdrawRoundTripReturnsDeposit(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 200; i++ {
		amount := big.NewInt(rng.Int63n(1_000_000_000) + 10_000_000)
		minted := new(big.Int).Set(amount)
		position := &LenderPosition{Balance: minted}
		redeemable := Redeemable(minted, minted, amount)
		if redeemable.Cmp(amount) != 0 {
			t.Fatalf("redeemable %s differs from deposit %s", redeemable, amount)
		}
		effect, err := ComputeWithdrawalEffect(position, minted, amount, amount)
		if err != nil {
			t.Fatalf("withdraw: %v", err)
		}
		if effect.Position != nil || effect.TotalUnits.Sign() != 0 {
			t.Fatalf("expected empty pool after round trip, got %+v", effect)
		}
	}
}
