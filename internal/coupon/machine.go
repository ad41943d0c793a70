package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/learnstack/coursewallet/internal/category"
	"github.com/learnstack/coursewallet/internal/enrol"
	"github.com/learnstack/coursewallet/internal/models"
	"github.com/learnstack/coursewallet/internal/settings"
	"github.com/learnstack/coursewallet/internal/wallet"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Area identifies where a coupon is being redeemed.
type Area string

// Redemption areas.
const (
	// AreaTopup redeems directly into the wallet balance.
	AreaTopup Area = "topup"
	// AreaEnrol redeems against a course enrolment.
	AreaEnrol Area = "enrol"
	// AreaModule redeems against a course module.
	AreaModule Area = "module"
	// AreaSection redeems against a course section.
	AreaSection Area = "section"
)

// State of one redemption attempt.
type State int

// Redemption states. Apply is reachable only from StateValid.
const (
	StateUnvalidated State = iota
	StateValid
	StateInvalid
	StateApplied
)

// Invalidity reasons surfaced to the end user.
const (
	ReasonNotFound       = "coupon not found"
	ReasonTypeDisabled   = "this coupon type is disabled"
	ReasonInvalidValue   = "invalid coupon value"
	ReasonUsageExceeded  = "coupon usage limit exceeded"
	ReasonUserExceeded   = "you have already used this coupon the maximum number of times"
	ReasonNotStarted     = "coupon is not valid yet"
	ReasonExpired        = "coupon has expired"
	ReasonWrongArea      = "coupon cannot be used here"
	ReasonPercentTooBig  = "discount percentage cannot exceed 100"
	ReasonWrongCategory  = "coupon is not valid for this category"
	ReasonCategoryOff    = "category-restricted coupons are disabled"
	ReasonNoCategory     = "coupon has no category restriction configured"
	ReasonCourseNotFound = "target course not found"
	ReasonNotEligible    = "this course is not eligible for the coupon"
)

// ErrNotValid is returned when Apply is called on an attempt that has not
// fully passed validation, or has already been applied.
var ErrNotValid = errors.New("coupon: apply requires a valid, unapplied attempt")

// Validation is one redemption attempt moving through the state machine.
type Validation struct {
	State  State
	Coupon *models.Coupon
	Reason string // Set when State is StateInvalid.

	Code   string
	UserID uint64
	Area   Area
	AreaID uint64

	markedUsed bool
}

// Valid reports whether the attempt passed every validation step.
func (v *Validation) Valid() bool { return v.State == StateValid }

// invalidate moves the attempt to StateInvalid with a user-facing reason.
// Every later step is short-circuited.
func (v *Validation) invalidate(reason string) *Validation {
	v.State = StateInvalid
	v.Reason = reason
	return v
}

// Effect reports what applying a coupon did.
type Effect struct {
	Credited          decimal.Decimal // Amount credited to the wallet, zero for percent/enrol types.
	Enrolled          bool            // Whether the user holds the target enrolment afterwards.
	DiscountActivated bool            // Whether a percent discount was activated.
	Used              bool            // Whether a usage record was written.
}

// Machine runs coupon redemptions: validation, balance mutation, enrolment
// side effects and usage accounting. Validation failures have no side effects
// beyond clearing the session discount for non-percent codes.
type Machine struct {
	db        *gorm.DB
	balance   *wallet.Balance
	tree      *category.Tree
	enrol     *enrol.Service
	discounts DiscountStore
	now       func() time.Time
}

// NewMachine constructs a Machine.
func NewMachine(db *gorm.DB, balance *wallet.Balance, tree *category.Tree, enrolSvc *enrol.Service, discounts DiscountStore) *Machine {
	return &Machine{
		db:        db,
		balance:   balance,
		tree:      tree,
		enrol:     enrolSvc,
		discounts: discounts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Validate runs the full validation chain for one redemption attempt. A
// business rejection lands in the returned Validation with a reason; the
// error return is reserved for infrastructure failures.
func (m *Machine) Validate(ctx context.Context, code string, userID uint64, area Area, areaID uint64) (*Validation, error) {
	v := &Validation{Code: strings.TrimSpace(code), UserID: userID, Area: area, AreaID: areaID}

	var row models.Coupon
	errFind := m.db.WithContext(ctx).Where("code = ?", v.Code).First(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return v.invalidate(ReasonNotFound), nil
		}
		return nil, errFind
	}
	v.Coupon = &row

	if !settings.EnabledCouponTypes()[row.Type] {
		return v.invalidate(ReasonTypeDisabled), nil
	}

	if invalid, errRecord := m.validateRecord(ctx, v); errRecord != nil {
		return nil, errRecord
	} else if invalid {
		return v, nil
	}

	if invalid := m.validateArea(v); invalid {
		return v, nil
	}

	if invalid, errType := m.validateType(ctx, v); errType != nil {
		return nil, errType
	} else if invalid {
		return v, nil
	}

	v.State = StateValid

	// A discount code stays active only until any other coupon type is
	// validated for the same user.
	if row.Type != models.CouponTypePercent {
		if errClear := m.discounts.Clear(ctx, userID); errClear != nil {
			log.WithError(errClear).Warn("coupon: failed to clear active discount")
		}
	}
	return v, nil
}

// validateRecord bounds the coupon record itself: value, usage caps and the
// validity window. Enrol coupons carry no monetary value and skip that check.
func (m *Machine) validateRecord(ctx context.Context, v *Validation) (bool, error) {
	c := v.Coupon
	if c.Type != models.CouponTypeEnrol && !c.Value.IsPositive() {
		v.invalidate(ReasonInvalidValue)
		return true, nil
	}
	if c.MaxUses > 0 && c.UseCount >= c.MaxUses {
		v.invalidate(ReasonUsageExceeded)
		return true, nil
	}

	now := m.now()
	if !c.ValidFrom.IsZero() && now.Before(c.ValidFrom) {
		v.invalidate(ReasonNotStarted)
		return true, nil
	}
	if !c.ValidTo.IsZero() && now.After(c.ValidTo) {
		v.invalidate(ReasonExpired)
		return true, nil
	}

	if c.MaxUsesPerUser > 0 {
		var used int64
		if errCount := m.db.WithContext(ctx).
			Model(&models.CouponUsage{}).
			Where("code = ? AND user_id = ?", c.Code, v.UserID).
			Count(&used).Error; errCount != nil {
			return false, errCount
		}
		if used >= c.MaxUsesPerUser {
			v.invalidate(ReasonUserExceeded)
			return true, nil
		}
	}
	return false, nil
}

// validateArea enforces the area/type compatibility matrix.
func (m *Machine) validateArea(v *Validation) bool {
	c := v.Coupon
	switch v.Area {
	case AreaTopup:
		if c.Type != models.CouponTypeFixed && c.Type != models.CouponTypeCategory {
			v.invalidate(ReasonWrongArea)
			return true
		}
	case AreaEnrol:
		if v.AreaID == 0 {
			v.invalidate(ReasonWrongArea)
			return true
		}
	case AreaModule, AreaSection:
		if c.Type == models.CouponTypeEnrol {
			v.invalidate(ReasonWrongArea)
			return true
		}
	default:
		v.invalidate(ReasonWrongArea)
		return true
	}
	return false
}

// validateType runs the per-type rules: percentage bound and scope
// containment for percent coupons, category enablement and containment for
// category coupons, eligibility lists for enrol coupons.
func (m *Machine) validateType(ctx context.Context, v *Validation) (bool, error) {
	c := v.Coupon
	switch c.Type {
	case models.CouponTypePercent:
		if c.Value.GreaterThan(decimal.NewFromInt(100)) {
			v.invalidate(ReasonPercentTooBig)
			return true, nil
		}
		if c.CategoryID != 0 {
			within, errScope := m.areaWithinCategory(ctx, v, c.CategoryID)
			if errScope != nil {
				return false, errScope
			}
			if !within {
				return true, nil
			}
		}

	case models.CouponTypeCategory:
		if !settings.CategoryBalanceEnabled() {
			v.invalidate(ReasonCategoryOff)
			return true, nil
		}
		if c.CategoryID == 0 {
			v.invalidate(ReasonNoCategory)
			return true, nil
		}
		if v.Area != AreaTopup {
			within, errScope := m.areaWithinCategory(ctx, v, c.CategoryID)
			if errScope != nil {
				return false, errScope
			}
			if !within {
				return true, nil
			}
		}

	case models.CouponTypeEnrol:
		eligible, errParse := c.EligibleCourses()
		if errParse != nil {
			return false, errParse
		}
		found := false
		for _, id := range eligible {
			if id == v.AreaID {
				found = true
				break
			}
		}
		if !found {
			v.invalidate(ReasonNotEligible)
			return true, nil
		}
	}
	return false, nil
}

// areaWithinCategory checks that the area's course belongs to the coupon's
// restricting category subtree. Module and section targets live inside a
// course, and the caller passes the owning course ID as the area target, so
// all three areas resolve through the course catalogue. The attempt is
// invalidated on mismatch.
func (m *Machine) areaWithinCategory(ctx context.Context, v *Validation, categoryID uint64) (bool, error) {
	switch v.Area {
	case AreaEnrol, AreaModule, AreaSection:
	default:
		v.invalidate(ReasonWrongCategory)
		return false, nil
	}
	course, errCourse := m.enrol.Course(ctx, v.AreaID)
	if errCourse != nil {
		if errors.Is(errCourse, enrol.ErrCourseNotFound) {
			v.invalidate(ReasonCourseNotFound)
			return false, nil
		}
		return false, errCourse
	}
	within, errContains := m.tree.Contains(ctx, categoryID, course.CategoryID)
	if errContains != nil {
		return false, errContains
	}
	if !within {
		v.invalidate(ReasonWrongCategory)
		return false, nil
	}
	return true, nil
}

// Apply executes a fully validated attempt. Fixed and category coupons credit
// the wallet; in the enrol area a covered course fee additionally triggers the
// enrolment and the fee debit. Percent coupons only activate the session
// discount. Usage is recorded at most once per attempt.
func (m *Machine) Apply(ctx context.Context, v *Validation) (*Effect, error) {
	if v == nil || v.State != StateValid {
		return nil, ErrNotValid
	}
	c := v.Coupon
	effect := &Effect{}

	switch c.Type {
	case models.CouponTypePercent:
		if errActivate := m.discounts.Activate(ctx, v.UserID, ActiveDiscount{Code: c.Code, Percent: c.Value}); errActivate != nil {
			return nil, errActivate
		}
		effect.DiscountActivated = true
		if errUsed := m.markUsed(ctx, v); errUsed != nil {
			return nil, errUsed
		}
		effect.Used = true

	case models.CouponTypeEnrol:
		created, errEnrol := m.enrol.Enrol(ctx, v.UserID, v.AreaID, wallet.SourceCoupon)
		if errEnrol != nil {
			return nil, errEnrol
		}
		effect.Enrolled = true
		if created {
			if errUsed := m.markUsed(ctx, v); errUsed != nil {
				return nil, errUsed
			}
			effect.Used = true
		}

	case models.CouponTypeFixed, models.CouponTypeCategory:
		if errCredit := m.balance.Credit(ctx, wallet.CreditParams{
			UserID:      v.UserID,
			Amount:      c.Value,
			Source:      wallet.SourceCoupon,
			CategoryID:  c.CategoryID,
			Description: fmt.Sprintf("coupon %s", c.Code),
			ActorID:     v.UserID,
		}); errCredit != nil {
			return nil, errCredit
		}
		effect.Credited = c.Value

		if v.Area == AreaEnrol {
			enrolled, errTrigger := m.tryEnrolment(ctx, v)
			if errTrigger != nil {
				return nil, errTrigger
			}
			effect.Enrolled = enrolled
			if enrolled {
				if errUsed := m.markUsed(ctx, v); errUsed != nil {
					return nil, errUsed
				}
				effect.Used = true
			}
			// Credit without enrolment is a partial success: the attempt
			// stays unused so a later check can retry the enrolment.
		} else {
			if errUsed := m.markUsed(ctx, v); errUsed != nil {
				return nil, errUsed
			}
			effect.Used = true
		}

	default:
		return nil, fmt.Errorf("coupon: unknown type %q", c.Type)
	}

	v.State = StateApplied
	return effect, nil
}

// tryEnrolment enrols the user when the valid balance at the course's scope
// covers the fee, debiting the fee first. Redundant enrolments are no-ops.
func (m *Machine) tryEnrolment(ctx context.Context, v *Validation) (bool, error) {
	course, errCourse := m.enrol.Course(ctx, v.AreaID)
	if errCourse != nil {
		return false, errCourse
	}

	already, errEnrolled := m.enrol.IsEnrolled(ctx, v.UserID, course.ID)
	if errEnrolled != nil {
		return false, errEnrolled
	}
	if already {
		return true, nil
	}

	valid, errValid := m.balance.ValidBalance(ctx, v.UserID, course.CategoryID)
	if errValid != nil {
		return false, errValid
	}
	if valid.LessThan(course.Fee) {
		return false, nil
	}

	if course.Fee.IsPositive() {
		if _, errDebit := m.balance.Debit(ctx, wallet.DebitParams{
			UserID:      v.UserID,
			Amount:      course.Fee,
			Source:      wallet.SourcePurchase,
			CategoryID:  course.CategoryID,
			Description: fmt.Sprintf("enrolment in %s", course.Name),
			ActorID:     v.UserID,
		}); errDebit != nil {
			if errors.Is(errDebit, wallet.ErrInsufficientBalance) {
				return false, nil
			}
			return false, errDebit
		}
	}

	_, errEnrol := m.enrol.Enrol(ctx, v.UserID, course.ID, wallet.SourceCoupon)
	if errEnrol != nil {
		return false, errEnrol
	}
	return true, nil
}

// markUsed appends the usage record and bumps the coupon counters exactly
// once per attempt. The coupon row lock serializes concurrent redemptions of
// the same code at the increment step.
func (m *Machine) markUsed(ctx context.Context, v *Validation) error {
	if v.markedUsed {
		return nil
	}
	c := v.Coupon

	errTx := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked models.Coupon
		if errLock := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&locked, c.ID).Error; errLock != nil {
			return errLock
		}

		usage := models.CouponUsage{
			Code:     c.Code,
			Type:     c.Type,
			Value:    c.Value,
			UserID:   v.UserID,
			TargetID: v.AreaID,
			Area:     string(v.Area),
			UsedAt:   m.now(),
		}
		if errCreate := tx.Create(&usage).Error; errCreate != nil {
			return errCreate
		}

		now := m.now()
		return tx.Model(&models.Coupon{}).
			Where("id = ?", c.ID).
			Updates(map[string]any{
				"use_count":    gorm.Expr("use_count + ?", 1),
				"last_used_at": now,
			}).Error
	})
	if errTx != nil {
		return errTx
	}
	v.markedUsed = true
	return nil
}
