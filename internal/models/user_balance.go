package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryDetails holds the balance triple kept for one category.
//
// Invariants: refundable >= 0, nonrefundable >= 0 and 0 <= free <= nonrefundable.
// Free marks the slice of the non-refundable pool that came from a promotional
// source (gift, award, referral, cashback, coupon).
type CategoryDetails struct {
	Refundable    decimal.Decimal `json:"refundable"`    // Amount that may be paid back out.
	NonRefundable decimal.Decimal `json:"nonrefundable"` // Amount usable only in-system.
	Free          decimal.Decimal `json:"free"`          // Promotional subset of nonrefundable.
}

// Balance returns refundable + nonrefundable.
func (d CategoryDetails) Balance() decimal.Decimal {
	return d.Refundable.Add(d.NonRefundable)
}

// IsZero reports whether every pool of the triple is zero.
func (d CategoryDetails) IsZero() bool {
	return d.Refundable.IsZero() && d.NonRefundable.IsZero() && d.Free.IsZero()
}

// CategoryBalances maps category IDs to their balance triples. It is stored as
// a single JSON column on the user balance row.
type CategoryBalances map[uint64]CategoryDetails

// GormDataType declares the column type used by GORM.
func (CategoryBalances) GormDataType() string { return "json" }

// Value serializes the map for storage.
func (b CategoryBalances) Value() (driver.Value, error) {
	if b == nil {
		return "{}", nil
	}
	raw, errMarshal := json.Marshal(b)
	if errMarshal != nil {
		return nil, errMarshal
	}
	return string(raw), nil
}

// Scan deserializes the map from storage.
func (b *CategoryBalances) Scan(value any) error {
	if value == nil {
		*b = CategoryBalances{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("models: unsupported cat_balance type %T", value)
	}
	if len(raw) == 0 {
		*b = CategoryBalances{}
		return nil
	}
	out := CategoryBalances{}
	if errUnmarshal := json.Unmarshal(raw, &out); errUnmarshal != nil {
		return errUnmarshal
	}
	*b = out
	return nil
}

// UserBalance caches the wallet snapshot for one user. One row per user; the
// per-category triples are embedded as JSON. The ledger remains the source of
// truth and this row is recomputed from it when absent.
type UserBalance struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;uniqueIndex"` // Owning user ID.

	Refundable    decimal.Decimal `gorm:"type:decimal(20,10);not null;default:0"` // Main refundable pool.
	NonRefundable decimal.Decimal `gorm:"type:decimal(20,10);not null;default:0"` // Main non-refundable pool.
	FreeGift      decimal.Decimal `gorm:"type:decimal(20,10);not null;default:0"` // Promotional subset of nonrefundable.

	CatBalance CategoryBalances `gorm:"type:json;not null;default:'{}'"` // Per-category balance triples.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last modification timestamp.
}
