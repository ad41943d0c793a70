package models

import "time"

// Category is a node in the scope tree used to partition wallet balances.
type Category struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	ParentID uint64 `gorm:"not null;default:0;index"`       // Parent category ID, 0 for roots.
	Name     string `gorm:"type:text;not null"`             // Display name.
	Path     string `gorm:"type:text;not null;uniqueIndex"` // Materialized ancestor path, e.g. "/1/4/9".
	Depth    int    `gorm:"not null;default:1"`             // Number of path components.

	Visible bool `gorm:"not null;default:true"` // Whether the category is visible.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
