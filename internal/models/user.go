package models

import "time"

// User is a wallet-owning account. Authentication and permission checks are
// owned by the host system; the wallet only needs identity and a kill switch.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex"` // Unique login name.
	Email    string `gorm:"type:text"`                      // Contact address.

	Disabled bool `gorm:"not null;default:false"` // Blocks wallet access when true.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
