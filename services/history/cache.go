package history

import (
	"math/big"
	"strconv"
	"sync/atomic"

	"github.com/dgraph-io/ristretto"

	"creditpool/crypto"
)

// balanceCache memoises BalanceAt lookups. Keys embed a generation that
// every import bumps, so entries written before an import are never read
// again and age out through normal eviction.
type balanceCache struct {
	cache      *ristretto.Cache
	generation atomic.Uint64
}

func newBalanceCache(maxEntries int64) *balanceCache {
	if maxEntries <= 0 {
		return nil
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil
	}
	return &balanceCache{cache: cache}
}

func (c *balanceCache) key(account crypto.Address, height uint64) string {
	return strconv.FormatUint(c.generation.Load(), 10) + "|" + account.String() + "|" + strconv.FormatUint(height, 10)
}

func (c *balanceCache) get(key string) (*big.Int, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	balance, ok := v.(*big.Int)
	if !ok {
		return nil, false
	}
	return new(big.Int).Set(balance), true
}

func (c *balanceCache) set(key string, balance *big.Int) {
	if c == nil {
		return
	}
	c.cache.Set(key, new(big.Int).Set(balance), 1)
}

func (c *balanceCache) invalidate() {
	if c == nil {
		return
	}
	c.generation.Add(1)
}

// wait blocks until buffered writes are visible to get.
func (c *balanceCache) wait() {
	if c != nil {
		c.cache.Wait()
	}
}

func (c *balanceCache) close() {
	if c != nil {
		c.cache.Close()
	}
}
