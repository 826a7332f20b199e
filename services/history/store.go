// Package history keeps an SQL index of historical account balances and
// serves it as a credit.BalanceOracle.
package history

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"creditpool/crypto"
	"creditpool/native/credit"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	ErrUnknownDriver = errors.New("history: unknown database driver")
	errInvalidRow    = errors.New("history: invalid snapshot")
)

// Snapshot is the input form of a balance observation.
type Snapshot struct {
	Account crypto.Address
	Height  uint64
	Balance *big.Int
}

// Open connects to the configured database and applies migrations.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSQLite, "":
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", driver, err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return db, nil
}

// Store reads and writes balance snapshots. Heights below earliest are
// reported as unavailable even when rows exist, so a partially backfilled
// index never scores an account on missing data.
type Store struct {
	db       *gorm.DB
	earliest uint64
	cache    *balanceCache
}

// DefaultCacheEntries bounds the number of memoised balance lookups.
const DefaultCacheEntries = 100_000

// NewStore wraps db with a lookup cache of DefaultCacheEntries.
func NewStore(db *gorm.DB, earliest uint64) *Store {
	return NewStoreWithCache(db, earliest, DefaultCacheEntries)
}

// NewStoreWithCache wraps db. A non-positive maxEntries disables caching.
func NewStoreWithCache(db *gorm.DB, earliest uint64, maxEntries int64) *Store {
	return &Store{db: db, earliest: earliest, cache: newBalanceCache(maxEntries)}
}

// Earliest returns the first height the store answers for.
func (s *Store) Earliest() uint64 { return s.earliest }

// Import upserts snapshots in a single transaction. A later import for the
// same account and height replaces the stored balance, as does a later entry
// within one batch. It returns the number of distinct rows written.
func (s *Store) Import(ctx context.Context, source string, snapshots []Snapshot) (int, error) {
	if len(snapshots) == 0 {
		return 0, nil
	}
	type rowKey struct {
		account string
		height  uint64
	}
	rows := make([]BalanceSnapshot, 0, len(snapshots))
	index := make(map[rowKey]int, len(snapshots))
	for i, snap := range snapshots {
		if snap.Account.IsZero() {
			return 0, fmt.Errorf("%w: entry %d has no account", errInvalidRow, i)
		}
		if snap.Balance == nil || snap.Balance.Sign() < 0 {
			return 0, fmt.Errorf("%w: entry %d balance must be non-negative", errInvalidRow, i)
		}
		row := BalanceSnapshot{
			Account: snap.Account.String(),
			Height:  snap.Height,
			Balance: snap.Balance.String(),
			Source:  source,
		}
		key := rowKey{account: row.Account, height: row.Height}
		if at, ok := index[key]; ok {
			rows[at] = row
			continue
		}
		index[key] = len(rows)
		rows = append(rows, row)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account"}, {Name: "height"}},
			DoUpdates: clause.AssignmentColumns([]string{"balance", "source", "updated_at"}),
		}).CreateInBatches(&rows, 500).Error
	})
	if err != nil {
		return 0, fmt.Errorf("history: import: %w", err)
	}
	s.cache.invalidate()
	return len(rows), nil
}

// BalanceAt implements credit.BalanceOracle. It returns the balance from the
// latest snapshot at or below height, or zero when the account has none.
func (s *Store) BalanceAt(account crypto.Address, height uint64) (*big.Int, error) {
	if height < s.earliest {
		return nil, fmt.Errorf("%w: height %d precedes indexed history at %d", credit.ErrHistoryUnavailable, height, s.earliest)
	}
	var key string
	if s.cache != nil {
		key = s.cache.key(account, height)
		if balance, ok := s.cache.get(key); ok {
			return balance, nil
		}
	}
	var rows []BalanceSnapshot
	err := s.db.
		Where("account = ? AND height <= ?", account.String(), height).
		Order("height desc").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("history: query balance: %w", err)
	}
	balance := big.NewInt(0)
	if len(rows) > 0 {
		if _, ok := balance.SetString(rows[0].Balance, 10); !ok {
			return nil, fmt.Errorf("%w: stored balance %q", errInvalidRow, rows[0].Balance)
		}
	}
	s.cache.set(key, balance)
	return balance, nil
}

// Count returns the number of snapshots held for account.
func (s *Store) Count(ctx context.Context, account crypto.Address) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&BalanceSnapshot{}).Where("account = ?", account.String()).Count(&n).Error
	return n, err
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	s.cache.close()
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
