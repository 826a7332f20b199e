package credit

import (
	"fmt"
	"math/big"

	"creditpool/crypto"
)

const (
	// MaxActivityScore is awarded to balances at or above the top threshold.
	MaxActivityScore = 300
	// MaxRepaymentScore is the ceiling of the repayment component.
	MaxRepaymentScore = 700

	repaymentColdStartLoans = 5
)

// activityTier pairs a balance threshold with the points it earns and the loan
// limit of the matching credit tier.
type activityTier struct {
	threshold int64
	points    uint64
}

var activityTiers = []activityTier{
	{threshold: 10_000, points: 50},
	{threshold: 50_000, points: 100},
	{threshold: 100_000, points: 150},
	{threshold: 300_000, points: 200},
	{threshold: 500_000, points: 250},
	{threshold: 1_000_000, points: 300},
}

// creditTierCeilings are the inclusive upper score bounds of tiers 0..4; any
// higher score falls into tier 5.
var creditTierCeilings = []uint64{300, 450, 600, 750, 900}

// ActivityScore maps an average balance onto [0, 300] using the fixed balance
// thresholds. Balances below the first threshold score zero.
func ActivityScore(averageBalance *big.Int) uint64 {
	if averageBalance == nil || averageBalance.Sign() <= 0 {
		return 0
	}
	var points uint64
	for _, tier := range activityTiers {
		if averageBalance.Cmp(big.NewInt(tier.threshold)) < 0 {
			break
		}
		points = tier.points
	}
	return points
}

// RepaymentScore rewards on-time repayments. Borrowers with fewer than five
// loans are damped by adding five to the denominator so a single good loan
// cannot max the score. Late loans only count through totalLoans.
func RepaymentScore(totalLoans, onTimeLoans, lateLoans uint64) uint64 {
	if onTimeLoans == 0 {
		return 0
	}
	denominator := totalLoans
	if totalLoans < repaymentColdStartLoans {
		denominator = totalLoans + repaymentColdStartLoans
	}
	score := new(big.Int).SetUint64(onTimeLoans)
	score.Mul(score, big.NewInt(MaxRepaymentScore))
	score.Quo(score, new(big.Int).SetUint64(denominator))
	if !score.IsUint64() || score.Uint64() > MaxRepaymentScore {
		return MaxRepaymentScore
	}
	return score.Uint64()
}

// CreditTier returns the tier index (0..5) for a combined credit score.
func CreditTier(creditScore uint64) int {
	for i, ceiling := range creditTierCeilings {
		if creditScore <= ceiling {
			return i
		}
	}
	return len(creditTierCeilings)
}

// TierLimit returns the maximum loan principal for a combined credit score.
// Tier limits mirror the activity thresholds.
func TierLimit(creditScore uint64) *big.Int {
	return big.NewInt(activityTiers[CreditTier(creditScore)].threshold)
}

// averageBalancePoints are the look-back offsets, in days, sampled by
// AverageBalance.
var averageBalancePoints = []uint64{1, 31, 61}

// MinHistoryBlocks is the chain depth AverageBalance needs.
var MinHistoryBlocks = DaysToBlocks(61)

// AverageBalance samples the oracle 1, 31 and 61 days before now and returns
// the floored mean. Any sample that predates available history fails the whole
// computation with ErrHistoryUnavailable.
func AverageBalance(oracle BalanceOracle, account crypto.Address, now uint64) (*big.Int, error) {
	if oracle == nil {
		return nil, errNilOracle
	}
	sum := big.NewInt(0)
	for _, days := range averageBalancePoints {
		offset := DaysToBlocks(days)
		if now < offset {
			return nil, fmt.Errorf("%w: need %d blocks of history at height %d", ErrHistoryUnavailable, offset, now)
		}
		balance, err := oracle.BalanceAt(account, now-offset)
		if err != nil {
			return nil, fmt.Errorf("balance %d days ago: %w", days, err)
		}
		if balance == nil || balance.Sign() < 0 {
			return nil, fmt.Errorf("balance %d days ago: %w", days, errInvalidAmt)
		}
		sum.Add(sum, balance)
	}
	return sum.Quo(sum, big.NewInt(int64(len(averageBalancePoints)))), nil
}

// ScoreBreakdown computes every intermediate of the credit score from an
// average balance and a borrower history.
func ScoreBreakdown(averageBalance *big.Int, history CreditHistory) LoanLimitInfo {
	activity := ActivityScore(averageBalance)
	repayment := RepaymentScore(history.TotalLoans, history.OnTimeLoans, history.LateLoans)
	score := activity + repayment
	avg := big.NewInt(0)
	if averageBalance != nil {
		avg.Set(averageBalance)
	}
	return LoanLimitInfo{
		AverageBalance: avg,
		ActivityScore:  activity,
		RepaymentScore: repayment,
		CreditScore:    score,
		Tier:           CreditTier(score),
		LoanLimit:      TierLimit(score),
	}
}
