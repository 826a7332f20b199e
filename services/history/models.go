package history

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BalanceSnapshot records an account balance observed at a block height. The
// balance holds from Height until the account's next snapshot.
type BalanceSnapshot struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Account   string    `gorm:"uniqueIndex:idx_snapshot_account_height,priority:1;not null"`
	Height    uint64    `gorm:"uniqueIndex:idx_snapshot_account_height,priority:2;not null"`
	Balance   string    `gorm:"not null"`
	Source    string    `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeCreate assigns a fresh identifier to new rows.
func (s *BalanceSnapshot) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// AutoMigrate performs all schema migrations for the history store.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&BalanceSnapshot{})
}
