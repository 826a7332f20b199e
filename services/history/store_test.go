package history

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"creditpool/crypto"
	"creditpool/native/credit"
)

func newTestStore(t *testing.T, earliest uint64) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := Open(DriverSQLite, dsn)
	require.NoError(t, err)
	store := NewStore(db, earliest)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func record(t *testing.T, store *Store, source string, account crypto.Address, height uint64, balance *big.Int) {
	t.Helper()
	_, err := store.Import(context.Background(), source, []Snapshot{{Account: account, Height: height, Balance: balance}})
	require.NoError(t, err)
}

func testAddress(seed byte) crypto.Address {
	raw := make([]byte, crypto.AddressLength)
	raw[0] = seed
	raw[crypto.AddressLength-1] = seed
	return crypto.NewAddress(crypto.AccountPrefix, raw)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "whatever")
	require.ErrorIs(t, err, ErrUnknownDriver)
}

func TestBalanceAtStepFunction(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 0)
	addr := testAddress(1)

	n, err := store.Import(ctx, "backfill", []Snapshot{
		{Account: addr, Height: 100, Balance: big.NewInt(50)},
		{Account: addr, Height: 300, Balance: big.NewInt(10)},
		{Account: testAddress(2), Height: 200, Balance: big.NewInt(999)},
	})
	require.NoError(t, err)
	require.Equal(t, 3, n)

	cases := []struct {
		height uint64
		want   int64
	}{
		{0, 0},
		{99, 0},
		{100, 50},
		{299, 50},
		{300, 10},
		{10_000, 10},
	}
	for _, tc := range cases {
		got, err := store.BalanceAt(addr, tc.height)
		require.NoError(t, err)
		require.Equalf(t, 0, got.Cmp(big.NewInt(tc.want)), "height %d: got %s want %d", tc.height, got, tc.want)
	}
}

func TestImportReplacesSameHeight(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 0)
	addr := testAddress(3)

	record(t, store, "first", addr, 500, big.NewInt(1))
	record(t, store, "second", addr, 500, big.NewInt(7))

	got, err := store.BalanceAt(addr, 500)
	require.NoError(t, err)
	require.Equal(t, "7", got.String())

	count, err := store.Count(ctx, addr)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestImportCollapsesDuplicateRows(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 0)
	addr := testAddress(9)

	n, err := store.Import(ctx, "backfill", []Snapshot{
		{Account: addr, Height: 40, Balance: big.NewInt(1)},
		{Account: addr, Height: 41, Balance: big.NewInt(2)},
		{Account: addr, Height: 40, Balance: big.NewInt(3)},
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	got, err := store.BalanceAt(addr, 40)
	require.NoError(t, err)
	require.Equal(t, "3", got.String())

	count, err := store.Count(ctx, addr)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestImportValidatesRows(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 0)
	addr := testAddress(4)

	_, err := store.Import(ctx, "bad", []Snapshot{
		{Account: addr, Height: 1, Balance: big.NewInt(5)},
		{Account: addr, Height: 2, Balance: big.NewInt(-1)},
	})
	require.ErrorIs(t, err, errInvalidRow)

	count, err := store.Count(ctx, addr)
	require.NoError(t, err)
	require.Zero(t, count, "rejected import must not write any rows")

	_, err = store.Import(ctx, "bad", []Snapshot{{Height: 1, Balance: big.NewInt(1)}})
	require.ErrorIs(t, err, errInvalidRow)

	n, err := store.Import(ctx, "empty", nil)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestBalanceAtBeforeEarliest(t *testing.T) {
	store := newTestStore(t, 1_000)
	_, err := store.BalanceAt(testAddress(5), 999)
	require.True(t, errors.Is(err, credit.ErrHistoryUnavailable), "got %v", err)

	got, err := store.BalanceAt(testAddress(5), 1_000)
	require.NoError(t, err)
	require.Zero(t, got.Sign())
	require.EqualValues(t, 1_000, store.Earliest())
}

func TestStoreServesAverageBalance(t *testing.T) {
	store := newTestStore(t, 0)
	addr := testAddress(6)
	now := credit.MinHistoryBlocks + 1_000

	record(t, store, "test", addr, now-credit.DaysToBlocks(61), big.NewInt(30_000))
	record(t, store, "test", addr, now-credit.DaysToBlocks(31), big.NewInt(60_000))
	record(t, store, "test", addr, now-credit.DaysToBlocks(1), big.NewInt(90_000))

	avg, err := credit.AverageBalance(store, addr, now)
	require.NoError(t, err)
	require.Equal(t, "60000", avg.String())
	require.EqualValues(t, 100, credit.ActivityScore(avg))
}

func TestCachedLookupsFollowImports(t *testing.T) {
	store := newTestStore(t, 0)
	addr := testAddress(7)
	record(t, store, "indexer", addr, 10, big.NewInt(40))

	first, err := store.BalanceAt(addr, 15)
	require.NoError(t, err)
	store.cache.wait()
	first.SetInt64(-1)

	cached, err := store.BalanceAt(addr, 15)
	require.NoError(t, err)
	require.Zero(t, cached.Cmp(big.NewInt(40)))

	record(t, store, "indexer", addr, 12, big.NewInt(75))
	fresh, err := store.BalanceAt(addr, 15)
	require.NoError(t, err)
	require.Zero(t, fresh.Cmp(big.NewInt(75)))
}

func TestStoreWithoutCache(t *testing.T) {
	db, err := Open(DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	store := NewStoreWithCache(db, 0, 0)
	defer store.Close()
	require.Nil(t, store.cache)

	balance, err := store.BalanceAt(testAddress(8), 1)
	require.NoError(t, err)
	require.Zero(t, balance.Sign())
}
