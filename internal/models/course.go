package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Course is a catalogued product the wallet pays for.
type Course struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name       string          `gorm:"type:text;not null"`           // Display name.
	CategoryID uint64          `gorm:"not null;default:0;index"`     // Owning category, 0 for uncategorized.
	Fee        decimal.Decimal `gorm:"type:decimal(20,10);not null"` // Enrolment fee.

	Visible bool `gorm:"not null;default:true"` // Whether the course is open for enrolment.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// Enrolment links a user to a course. The (user, course) pair is unique, which
// makes the enrolment trigger idempotent.
type Enrolment struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID   uint64 `gorm:"not null;uniqueIndex:idx_enrolments_user_course"` // Enrolled user ID.
	CourseID uint64 `gorm:"not null;uniqueIndex:idx_enrolments_user_course"` // Target course ID.

	Source string `gorm:"type:text;not null;default:'wallet'"` // What triggered the enrolment.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
