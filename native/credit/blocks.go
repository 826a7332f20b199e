package credit

import (
	"math"
	"math/bits"
	"time"
)

const (
	// SecondsPerBlock is the average duration of one ledger height step.
	SecondsPerBlock = 600
	secondsPerDay   = 86_400
)

// DaysToBlocks converts a duration in days to block steps, truncating. Results
// that would overflow saturate at math.MaxUint64.
func DaysToBlocks(days uint64) uint64 {
	hi, lo := bits.Mul64(days, secondsPerDay)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo / SecondsPerBlock
}

// HeightAt maps wall-clock time onto block steps counted from genesis. Times
// before genesis map to height zero.
func HeightAt(genesis, now time.Time) uint64 {
	if !now.After(genesis) {
		return 0
	}
	return uint64(now.Sub(genesis)/time.Second) / SecondsPerBlock
}

func addBlocks(height, delta uint64) uint64 {
	sum, carry := bits.Add64(height, delta, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}

func blocksToSeconds(blocks uint64) uint64 {
	hi, lo := bits.Mul64(blocks, SecondsPerBlock)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}
