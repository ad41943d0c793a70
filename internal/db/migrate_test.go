package db

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestMigrateSQLiteCreatesWalletTables(t *testing.T) {
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}

	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	for _, table := range []string{
		"users",
		"categories",
		"courses",
		"enrolments",
		"user_balances",
		"ledger_entries",
		"coupons",
		"coupon_usages",
		"settings",
	} {
		if !conn.Migrator().HasTable(table) {
			t.Fatalf("missing table %s", table)
		}
	}
}

func TestMigrateSQLiteUserBalanceColumns(t *testing.T) {
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}

	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	for _, column := range []string{"refundable", "non_refundable", "free_gift", "cat_balance"} {
		if !conn.Migrator().HasColumn("user_balances", column) {
			t.Fatalf("user_balances missing column %s", column)
		}
	}
}

func TestMigrateSQLiteLedgerReferenceUnique(t *testing.T) {
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}

	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	if errFirst := conn.Exec(
		`INSERT INTO ledger_entries (user_id, type, amount, category_id, source, reference, created_at) VALUES (1, 'credit', 10, 0, 'payment', 'ref-1', CURRENT_TIMESTAMP)`,
	).Error; errFirst != nil {
		t.Fatalf("insert first entry: %v", errFirst)
	}
	if errDup := conn.Exec(
		`INSERT INTO ledger_entries (user_id, type, amount, category_id, source, reference, created_at) VALUES (1, 'credit', 10, 0, 'payment', 'ref-1', CURRENT_TIMESTAMP)`,
	).Error; errDup == nil {
		t.Fatalf("duplicate reference accepted")
	}
}
