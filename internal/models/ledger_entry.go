package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger entry types.
const (
	// LedgerTypeCredit marks an entry that increased the balance.
	LedgerTypeCredit = "credit"
	// LedgerTypeDebit marks an entry that decreased the balance.
	LedgerTypeDebit = "debit"
)

// LedgerEntry records one balance-changing event. Entries are append-only:
// they are never updated or deleted, and the cached UserBalance row is rebuilt
// from them when missing.
type LedgerEntry struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"`                       // Owning user ID.
	Type   string `gorm:"column:type;type:text;not null;index"` // credit or debit.

	Amount        decimal.Decimal `gorm:"type:decimal(20,10);not null"`           // Amount applied.
	BalanceBefore decimal.Decimal `gorm:"type:decimal(20,10);not null;default:0"` // Total balance before the event.
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(20,10);not null;default:0"` // Total balance after the event.

	CategoryID uint64 `gorm:"not null;default:0;index"` // Target category, 0 for the main balance.

	Refundable bool `gorm:"not null;default:false"` // Whether the credited amount was refundable.
	Free       bool `gorm:"not null;default:false"` // Whether the amount came from a promotional source.

	Source      string `gorm:"type:text;not null"` // Source tag of the mutation.
	Description string `gorm:"type:text"`          // Free-form reason.

	ActorID   uint64 `gorm:"not null;default:0"`             // User or admin who triggered the event.
	Reference string `gorm:"type:text;not null;uniqueIndex"` // Unique entry reference.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}
