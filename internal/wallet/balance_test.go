package wallet

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/learnstack/coursewallet/internal/category"
	"github.com/learnstack/coursewallet/internal/models"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// A plain :memory: DSN gives every pooled connection its own database;
	// use a per-test file so all connections see the same tables.
	conn, errOpen := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(
		&models.Category{},
		&models.UserBalance{},
		&models.LedgerEntry{},
	); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func seedCategories(t *testing.T, conn *gorm.DB) {
	t.Helper()
	rows := []models.Category{
		{ID: 1, ParentID: 0, Name: "Science", Path: "/1", Depth: 1, Visible: true},
		{ID: 2, ParentID: 1, Name: "Physics", Path: "/1/2", Depth: 2, Visible: true},
	}
	for i := range rows {
		if errCreate := conn.Create(&rows[i]).Error; errCreate != nil {
			t.Fatalf("seed category: %v", errCreate)
		}
	}
}

func newTestBalance(t *testing.T) (*Balance, *gorm.DB) {
	t.Helper()
	conn := openTestDB(t)
	seedCategories(t, conn)
	return NewBalance(conn, category.NewTree(conn)), conn
}

func TestCreditThenDebitEndToEnd(t *testing.T) {
	ctx := context.Background()
	b, conn := newTestBalance(t)

	if errCredit := b.Credit(ctx, CreditParams{
		UserID: 10, Amount: dec("200"), Source: SourcePayment, Refundable: true,
	}); errCredit != nil {
		t.Fatalf("credit: %v", errCredit)
	}
	if got, errValid := b.ValidBalance(ctx, 10, 0); errValid != nil || !got.Equal(dec("200")) {
		t.Fatalf("valid balance = %s (%v), want 200", got, errValid)
	}

	if errCredit := b.Credit(ctx, CreditParams{
		UserID: 10, Amount: dec("100"), Source: SourceCoupon,
	}); errCredit != nil {
		t.Fatalf("coupon credit: %v", errCredit)
	}
	if got, _ := b.ValidBalance(ctx, 10, 0); !got.Equal(dec("300")) {
		t.Fatalf("valid balance = %s, want 300", got)
	}

	remainder, errDebit := b.Debit(ctx, DebitParams{
		UserID: 10, Amount: dec("250"), Source: SourcePurchase,
	})
	if errDebit != nil {
		t.Fatalf("debit: %v", errDebit)
	}
	if !remainder.IsZero() {
		t.Fatalf("remainder = %s, want 0", remainder)
	}
	if got, _ := b.ValidBalance(ctx, 10, 0); !got.Equal(dec("50")) {
		t.Fatalf("valid balance = %s, want 50", got)
	}

	var entries []models.LedgerEntry
	if errFind := conn.Where("user_id = ?", 10).Order("id ASC").Find(&entries).Error; errFind != nil {
		t.Fatalf("load ledger: %v", errFind)
	}
	if len(entries) != 3 {
		t.Fatalf("ledger entries = %d, want 3", len(entries))
	}
	if !entries[1].Free || entries[1].Refundable {
		t.Fatalf("coupon entry flags = %+v, want free nonrefundable", entries[1])
	}
	if entries[2].Type != models.LedgerTypeDebit || !entries[2].BalanceAfter.Equal(dec("50")) {
		t.Fatalf("debit entry = %+v", entries[2])
	}
}

func TestCreditScopedToCategory(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBalance(t)

	if errCredit := b.Credit(ctx, CreditParams{
		UserID: 3, Amount: dec("40"), Source: SourceGift, CategoryID: 2,
	}); errCredit != nil {
		t.Fatalf("credit: %v", errCredit)
	}

	if got, _ := b.ValidBalance(ctx, 3, 2); !got.Equal(dec("40")) {
		t.Fatalf("valid at category 2 = %s, want 40", got)
	}
	if got, _ := b.ValidBalance(ctx, 3, 1); !got.IsZero() {
		t.Fatalf("valid at ancestor = %s, want 0 (child credit not spendable above)", got)
	}
	if got, _ := b.ValidBalance(ctx, 3, 0); !got.IsZero() {
		t.Fatalf("valid at main = %s, want 0", got)
	}

	details, errLoad := b.Details(ctx, 3, 2)
	if errLoad != nil {
		t.Fatalf("details: %v", errLoad)
	}
	if got := details.TotalFree(); !got.Equal(dec("40")) {
		t.Fatalf("total free = %s, want 40 (gift source)", got)
	}
}

func TestDebitInsufficientLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	b, conn := newTestBalance(t)

	if errCredit := b.Credit(ctx, CreditParams{
		UserID: 4, Amount: dec("30"), Source: SourcePayment, Refundable: true,
	}); errCredit != nil {
		t.Fatalf("credit: %v", errCredit)
	}

	remainder, errDebit := b.Debit(ctx, DebitParams{
		UserID: 4, Amount: dec("100"), Source: SourcePurchase,
	})
	if !errors.Is(errDebit, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", errDebit)
	}
	if !remainder.Equal(dec("70")) {
		t.Fatalf("remainder = %s, want 70", remainder)
	}

	if got, _ := b.ValidBalance(ctx, 4, 0); !got.Equal(dec("30")) {
		t.Fatalf("balance after failed debit = %s, want 30 (untouched)", got)
	}
	var count int64
	if errCount := conn.Model(&models.LedgerEntry{}).Where("user_id = ? AND type = ?", 4, models.LedgerTypeDebit).Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("debit entries = %d, want 0", count)
	}
}

func TestDebitCascadesFromMainIntoChain(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBalance(t)

	if errCredit := b.Credit(ctx, CreditParams{
		UserID: 5, Amount: dec("50"), Source: SourcePayment, Refundable: true,
	}); errCredit != nil {
		t.Fatalf("main credit: %v", errCredit)
	}
	if errCredit := b.Credit(ctx, CreditParams{
		UserID: 5, Amount: dec("20"), Source: SourceAward, CategoryID: 2,
	}); errCredit != nil {
		t.Fatalf("category credit: %v", errCredit)
	}

	remainder, errDebit := b.Debit(ctx, DebitParams{
		UserID: 5, Amount: dec("60"), Source: SourcePurchase, CategoryID: 2,
	})
	if errDebit != nil || !remainder.IsZero() {
		t.Fatalf("debit: remainder=%s err=%v", remainder, errDebit)
	}

	details, errLoad := b.Details(ctx, 5, 2)
	if errLoad != nil {
		t.Fatalf("details: %v", errLoad)
	}
	if !details.Main.IsZero() {
		t.Fatalf("main = %+v, want zero (broadest pool spent first)", details.Main)
	}
	if got := details.CatBalance[2].NonRefundable; !got.Equal(dec("10")) {
		t.Fatalf("category remainder = %s, want 10", got)
	}
}

func TestUnknownCategoryFails(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBalance(t)

	if _, errValid := b.ValidBalance(ctx, 6, 99); !errors.Is(errValid, category.ErrCategoryNotFound) {
		t.Fatalf("err = %v, want ErrCategoryNotFound", errValid)
	}
	if errCredit := b.Credit(ctx, CreditParams{
		UserID: 6, Amount: dec("10"), Source: SourcePayment, CategoryID: 99,
	}); !errors.Is(errCredit, category.ErrCategoryNotFound) {
		t.Fatalf("credit err = %v, want ErrCategoryNotFound", errCredit)
	}
}

func TestSnapshotRebuiltFromLedger(t *testing.T) {
	ctx := context.Background()
	b, conn := newTestBalance(t)

	if errCredit := b.Credit(ctx, CreditParams{
		UserID: 7, Amount: dec("80"), Source: SourcePayment, Refundable: true,
	}); errCredit != nil {
		t.Fatalf("credit: %v", errCredit)
	}
	if errDelete := conn.Where("user_id = ?", 7).Delete(&models.UserBalance{}).Error; errDelete != nil {
		t.Fatalf("drop cache row: %v", errDelete)
	}

	got, errValid := b.ValidBalance(ctx, 7, 0)
	if errValid != nil {
		t.Fatalf("valid balance: %v", errValid)
	}
	if !got.Equal(dec("80")) {
		t.Fatalf("rebuilt balance = %s, want 80", got)
	}
}

func TestCreditRejectsNonPositiveAmount(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBalance(t)

	if errCredit := b.Credit(ctx, CreditParams{UserID: 8, Amount: dec("0"), Source: SourcePayment}); !errors.Is(errCredit, ErrNonPositiveAmount) {
		t.Fatalf("credit err = %v, want ErrNonPositiveAmount", errCredit)
	}
	if _, errDebit := b.Debit(ctx, DebitParams{UserID: 8, Amount: dec("-5"), Source: SourcePurchase}); !errors.Is(errDebit, ErrNonPositiveAmount) {
		t.Fatalf("debit err = %v, want ErrNonPositiveAmount", errDebit)
	}
}
