package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CouponType identifies how a coupon affects the wallet.
type CouponType string

// Coupon type constants.
const (
	// CouponTypeFixed credits a fixed amount to the main or category balance.
	CouponTypeFixed CouponType = "fixed"
	// CouponTypePercent activates a percentage discount for price computation.
	CouponTypePercent CouponType = "percent"
	// CouponTypeCategory credits a fixed amount restricted to a category.
	CouponTypeCategory CouponType = "category"
	// CouponTypeEnrol enrols the user into an eligible course directly.
	CouponTypeEnrol CouponType = "enrol"
)

// Coupon is a redeemable promotional code. Administrative workflows create and
// edit coupons; only the redemption state machine mutates the usage counters.
type Coupon struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Code string     `gorm:"type:text;not null;uniqueIndex"` // Unique redemption code.
	Type CouponType `gorm:"type:text;not null;index"`       // Coupon type.

	Value decimal.Decimal `gorm:"type:decimal(20,10);not null;default:0"` // Amount or percentage.

	CategoryID uint64 `gorm:"not null;default:0"` // Restricting category, 0 for none.

	EligibleCourseIDs datatypes.JSON `gorm:"type:jsonb"` // Course IDs an enrol coupon may target.

	MaxUses        int64 `gorm:"not null;default:0"` // Global usage cap, 0 for unlimited.
	MaxUsesPerUser int64 `gorm:"not null;default:0"` // Per-user usage cap, 0 for unlimited.
	UseCount       int64 `gorm:"not null;default:0"` // Successful redemptions so far.

	ValidFrom time.Time `gorm:""` // Window start, zero for unbounded.
	ValidTo   time.Time `gorm:""` // Window end, zero for unbounded.

	CreatedAt  time.Time  `gorm:"not null;autoCreateTime"` // Creation timestamp.
	LastUsedAt *time.Time // Most recent redemption time.
}

// EligibleCourses decodes the eligible course ID list. A coupon without a
// list is eligible for no course.
func (c *Coupon) EligibleCourses() ([]uint64, error) {
	if len(c.EligibleCourseIDs) == 0 {
		return nil, nil
	}
	var ids []uint64
	if errUnmarshal := json.Unmarshal(c.EligibleCourseIDs, &ids); errUnmarshal != nil {
		return nil, fmt.Errorf("coupon %s: malformed eligible course list: %w", c.Code, errUnmarshal)
	}
	return ids, nil
}

// CouponUsage logs one successful redemption. Rows are immutable and serve
// both usage counting and audit.
type CouponUsage struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Code  string          `gorm:"type:text;not null;index"`     // Redeemed code.
	Type  CouponType      `gorm:"type:text;not null"`           // Coupon type at redemption time.
	Value decimal.Decimal `gorm:"type:decimal(20,10);not null"` // Value at redemption time.

	UserID   uint64 `gorm:"not null;index"`     // Redeeming user ID.
	TargetID uint64 `gorm:"not null;default:0"` // Area target, e.g. course ID.
	Area     string `gorm:"type:text;not null"` // Redemption area.

	UsedAt time.Time `gorm:"not null;autoCreateTime"` // Redemption timestamp.
}
