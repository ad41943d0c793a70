package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/learnstack/coursewallet/internal/category"
	"github.com/learnstack/coursewallet/internal/models"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Source tags recorded on ledger entries. Promotional sources mark their
// non-refundable credits as free.
const (
	SourcePayment  = "payment"
	SourcePurchase = "purchase"
	SourceTransfer = "transfer"
	SourceAdmin    = "admin"
	SourceCoupon   = "coupon"
	SourceGift     = "gift"
	SourceAward    = "award"
	SourceReferral = "referral"
	SourceCashback = "cashback"
	SourceDiscount = "discount"
)

// freeSources lists the tags whose non-refundable credits count as free.
var freeSources = map[string]bool{
	SourceCoupon:   true,
	SourceGift:     true,
	SourceAward:    true,
	SourceReferral: true,
	SourceCashback: true,
	SourceDiscount: true,
}

// IsFreeSource reports whether a source tag marks promotional credit.
func IsFreeSource(source string) bool { return freeSources[source] }

// Balance is the facade over the per-user wallet snapshot. It loads the
// snapshot, delegates scope arithmetic to CategoryOperation, and persists the
// result together with exactly one ledger entry per mutation.
//
// The design assumes a single logical writer per user; concurrent mutations
// for different users are independent. Every mutation runs in one database
// transaction with a row lock on the user's balance row, so callers observe
// either the whole mutation or none of it.
type Balance struct {
	db   *gorm.DB
	tree *category.Tree
}

// NewBalance constructs the facade.
func NewBalance(db *gorm.DB, tree *category.Tree) *Balance {
	return &Balance{db: db, tree: tree}
}

// CreditParams describes one credit mutation.
type CreditParams struct {
	UserID      uint64
	Amount      decimal.Decimal
	Source      string // Source tag; promotional tags mark the credit free.
	CategoryID  uint64 // Target category, 0 for the main balance.
	Description string
	Refundable  bool
	ActorID     uint64
}

// DebitParams describes one debit mutation.
type DebitParams struct {
	UserID      uint64
	Amount      decimal.Decimal
	Source      string
	CategoryID  uint64 // Scope the spend happens in, 0 for main only.
	Description string
	ActorID     uint64
}

// Details loads the snapshot for a user with the given category chain in
// view. A missing balance row is reconstructed from the newest ledger entry.
func (b *Balance) Details(ctx context.Context, userID, categoryID uint64) (*Details, error) {
	return b.load(ctx, b.db, userID, categoryID)
}

// ValidBalance returns the amount spendable for the user in the given scope:
// main balance plus every category on the scope's ancestor chain.
func (b *Balance) ValidBalance(ctx context.Context, userID, categoryID uint64) (decimal.Decimal, error) {
	details, err := b.Details(ctx, userID, categoryID)
	if err != nil {
		return decimal.Zero, err
	}
	return details.ValidBalance(), nil
}

// Credit adds funds to the user's balance at the target scope and appends a
// ledger entry. Promotional source tags mark non-refundable credits as free.
func (b *Balance) Credit(ctx context.Context, p CreditParams) error {
	if !p.Amount.IsPositive() {
		return ErrNonPositiveAmount
	}

	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		details, errLoad := b.loadLocked(ctx, tx, p.UserID, p.CategoryID)
		if errLoad != nil {
			return errLoad
		}

		before := details.TotalBalance()
		free := IsFreeSource(p.Source)
		op := NewCategoryOperation(details, details.CatIDs)
		op.Add(p.Amount, p.Refundable, free)

		if errSave := b.save(ctx, tx, details); errSave != nil {
			return errSave
		}
		return b.appendEntry(ctx, tx, details.UserID, models.LedgerEntry{
			Type:          models.LedgerTypeCredit,
			Amount:        p.Amount,
			BalanceBefore: before,
			BalanceAfter:  details.TotalBalance(),
			CategoryID:    p.CategoryID,
			Refundable:    p.Refundable,
			Free:          free && !p.Refundable,
			Source:        p.Source,
			Description:   p.Description,
			ActorID:       p.ActorID,
		})
	})
}

// Debit spends funds across the scope chain, broadest pool first. It returns
// the shortfall together with ErrInsufficientBalance when the chain cannot
// cover the amount; in that case nothing is persisted.
func (b *Balance) Debit(ctx context.Context, p DebitParams) (decimal.Decimal, error) {
	if !p.Amount.IsPositive() {
		return decimal.Zero, ErrNonPositiveAmount
	}

	var shortfall decimal.Decimal
	errTx := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		details, errLoad := b.loadLocked(ctx, tx, p.UserID, p.CategoryID)
		if errLoad != nil {
			return errLoad
		}

		before := details.TotalBalance()
		op := NewCategoryOperation(details, details.CatIDs)
		if remainder := op.Deduct(p.Amount); remainder.IsPositive() {
			shortfall = remainder
			return ErrInsufficientBalance
		}
		if cut := op.FreeCut(); cut.IsPositive() {
			log.WithFields(log.Fields{
				"user_id":  p.UserID,
				"free_cut": cut,
				"source":   p.Source,
			}).Info("wallet: promotional balance consumed")
		}

		if errSave := b.save(ctx, tx, details); errSave != nil {
			return errSave
		}
		return b.appendEntry(ctx, tx, details.UserID, models.LedgerEntry{
			Type:          models.LedgerTypeDebit,
			Amount:        p.Amount,
			BalanceBefore: before,
			BalanceAfter:  details.TotalBalance(),
			CategoryID:    p.CategoryID,
			Source:        p.Source,
			Description:   p.Description,
			ActorID:       p.ActorID,
		})
	})
	if errTx != nil {
		if errors.Is(errTx, ErrInsufficientBalance) {
			return shortfall, ErrInsufficientBalance
		}
		return decimal.Zero, errTx
	}
	return decimal.Zero, nil
}

// load materializes the snapshot without locking, for reads.
func (b *Balance) load(ctx context.Context, tx *gorm.DB, userID, categoryID uint64) (*Details, error) {
	return b.materialize(ctx, tx.WithContext(ctx), userID, categoryID)
}

// loadLocked materializes the snapshot with a row lock, for mutations.
func (b *Balance) loadLocked(ctx context.Context, tx *gorm.DB, userID, categoryID uint64) (*Details, error) {
	return b.materialize(ctx, tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), userID, categoryID)
}

// materialize reads the balance row and resolves the chain in view. When no
// row exists the snapshot is seeded from the newest ledger entry: the recorded
// balance-after becomes non-refundable main credit, since refundability and
// category splits cannot be recovered from a single entry.
func (b *Balance) materialize(ctx context.Context, q *gorm.DB, userID, categoryID uint64) (*Details, error) {
	chain, errChain := b.tree.Chain(ctx, categoryID)
	if errChain != nil {
		return nil, errChain
	}

	details := &Details{
		UserID:     userID,
		CatBalance: models.CategoryBalances{},
		CatIDs:     chain,
	}

	var row models.UserBalance
	errFind := q.Where("user_id = ?", userID).First(&row).Error
	if errFind == nil {
		details.Main = models.CategoryDetails{
			Refundable:    row.Refundable,
			NonRefundable: row.NonRefundable,
			Free:          row.FreeGift,
		}
		if row.CatBalance != nil {
			details.CatBalance = row.CatBalance
		}
		return details, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, errFind
	}

	var last models.LedgerEntry
	errLast := b.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		First(&last).Error
	if errLast != nil {
		if errors.Is(errLast, gorm.ErrRecordNotFound) {
			return details, nil
		}
		return nil, errLast
	}

	if last.BalanceAfter.IsPositive() {
		details.Main.NonRefundable = last.BalanceAfter
		log.WithFields(log.Fields{
			"user_id": userID,
			"balance": last.BalanceAfter,
		}).Warn("wallet: rebuilt missing balance snapshot from ledger")
	}
	return details, nil
}

// save upserts the snapshot row keyed by user id.
func (b *Balance) save(ctx context.Context, tx *gorm.DB, details *Details) error {
	row := models.UserBalance{
		UserID:        details.UserID,
		Refundable:    details.Main.Refundable,
		NonRefundable: details.Main.NonRefundable,
		FreeGift:      details.Main.Free,
		CatBalance:    details.CatBalance,
		UpdatedAt:     time.Now().UTC(),
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"refundable", "non_refundable", "free_gift", "cat_balance", "updated_at",
		}),
	}).Create(&row).Error
}

// appendEntry writes one immutable ledger entry for the mutation.
func (b *Balance) appendEntry(ctx context.Context, tx *gorm.DB, userID uint64, entry models.LedgerEntry) error {
	entry.UserID = userID
	entry.Reference = uuid.NewString()
	entry.CreatedAt = time.Now().UTC()
	return tx.WithContext(ctx).Create(&entry).Error
}
