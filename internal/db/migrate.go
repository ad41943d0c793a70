package db

import (
	"fmt"

	"github.com/learnstack/coursewallet/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the schema for every wallet model.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	return conn.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Course{},
		&models.Enrolment{},
		&models.UserBalance{},
		&models.LedgerEntry{},
		&models.Coupon{},
		&models.CouponUsage{},
		&models.Setting{},
	)
}
