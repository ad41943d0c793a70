package wallet

import (
	"testing"

	"github.com/learnstack/coursewallet/internal/models"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func snapshotWith(main models.CategoryDetails, cats models.CategoryBalances, chain []uint64) *Details {
	if cats == nil {
		cats = models.CategoryBalances{}
	}
	return &Details{UserID: 1, Main: main, CatBalance: cats, CatIDs: chain}
}

func checkInvariants(t *testing.T, d *Details) {
	t.Helper()
	check := func(scope string, tr models.CategoryDetails) {
		if tr.Refundable.IsNegative() || tr.NonRefundable.IsNegative() || tr.Free.IsNegative() {
			t.Fatalf("%s: negative pool: %+v", scope, tr)
		}
		if tr.Free.GreaterThan(tr.NonRefundable) {
			t.Fatalf("%s: free %s exceeds nonrefundable %s", scope, tr.Free, tr.NonRefundable)
		}
	}
	check("main", d.Main)
	for _, tr := range d.CatBalance {
		check("category", tr)
	}
}

func TestAddTargetsLeafScopeOnly(t *testing.T) {
	d := snapshotWith(models.CategoryDetails{}, nil, []uint64{1, 2})
	op := NewCategoryOperation(d, d.CatIDs)

	op.Add(dec("40"), true, false)
	op.Add(dec("25"), false, true)

	if got := d.CatBalance[2].Refundable; !got.Equal(dec("40")) {
		t.Fatalf("leaf refundable = %s, want 40", got)
	}
	if got := d.CatBalance[2].NonRefundable; !got.Equal(dec("25")) {
		t.Fatalf("leaf nonrefundable = %s, want 25", got)
	}
	if got := d.CatBalance[2].Free; !got.Equal(dec("25")) {
		t.Fatalf("leaf free = %s, want 25", got)
	}
	if !d.CatBalance[1].IsZero() {
		t.Fatalf("ancestor mutated: %+v", d.CatBalance[1])
	}
	if !d.Main.IsZero() {
		t.Fatalf("main mutated: %+v", d.Main)
	}
	if got := op.Balance(); !got.Equal(dec("65")) {
		t.Fatalf("aggregate balance = %s, want 65", got)
	}
	checkInvariants(t, d)
}

func TestAddNonFreeNonRefundableLeavesFreeUntouched(t *testing.T) {
	d := snapshotWith(models.CategoryDetails{}, nil, nil)
	op := NewCategoryOperation(d, nil)

	op.Add(dec("30"), false, false)

	if !d.Main.Free.IsZero() {
		t.Fatalf("free = %s, want 0", d.Main.Free)
	}
	if got := d.Main.NonRefundable; !got.Equal(dec("30")) {
		t.Fatalf("nonrefundable = %s, want 30", got)
	}
}

func TestDeductCascadesRootFirst(t *testing.T) {
	d := snapshotWith(models.CategoryDetails{}, models.CategoryBalances{
		1: {Refundable: dec("50")},
		2: {Refundable: dec("30"), NonRefundable: dec("20")},
	}, []uint64{1, 2})
	op := NewCategoryOperation(d, d.CatIDs)

	remainder := op.Deduct(dec("60"))

	if !remainder.IsZero() {
		t.Fatalf("remainder = %s, want 0", remainder)
	}
	if got := d.CatBalance[1].Refundable; !got.IsZero() {
		t.Fatalf("ancestor refundable = %s, want 0 (deducted first)", got)
	}
	if got := d.CatBalance[2].Refundable; !got.Equal(dec("20")) {
		t.Fatalf("child refundable = %s, want 20", got)
	}
	if got := d.CatBalance[2].NonRefundable; !got.Equal(dec("20")) {
		t.Fatalf("child nonrefundable = %s, want 20 (untouched)", got)
	}
	checkInvariants(t, d)
}

func TestDeductConsumesMainBeforeCategories(t *testing.T) {
	d := snapshotWith(models.CategoryDetails{Refundable: dec("10")}, models.CategoryBalances{
		1: {Refundable: dec("10")},
	}, []uint64{1})
	op := NewCategoryOperation(d, d.CatIDs)

	if remainder := op.Deduct(dec("10")); !remainder.IsZero() {
		t.Fatalf("remainder = %s, want 0", remainder)
	}
	if !d.Main.Refundable.IsZero() {
		t.Fatalf("main refundable = %s, want 0", d.Main.Refundable)
	}
	if got := d.CatBalance[1].Refundable; !got.Equal(dec("10")) {
		t.Fatalf("category refundable = %s, want 10 (survives)", got)
	}
}

func TestDeductFreeCutCappedByPriorFree(t *testing.T) {
	d := snapshotWith(models.CategoryDetails{}, models.CategoryBalances{
		7: {NonRefundable: dec("50"), Free: dec("20")},
	}, []uint64{7})
	op := NewCategoryOperation(d, d.CatIDs)

	if remainder := op.Deduct(dec("30")); !remainder.IsZero() {
		t.Fatalf("remainder = %s, want 0", remainder)
	}
	if got := d.CatBalance[7].NonRefundable; !got.Equal(dec("20")) {
		t.Fatalf("nonrefundable = %s, want 20", got)
	}
	if got := d.CatBalance[7].Free; !got.IsZero() {
		t.Fatalf("free = %s, want 0", got)
	}
	if got := op.FreeCut(); !got.Equal(dec("20")) {
		t.Fatalf("free cut = %s, want 20 (capped by prior free)", got)
	}
	checkInvariants(t, d)
}

func TestDeductRefundableSpendNeverCutsFree(t *testing.T) {
	d := snapshotWith(models.CategoryDetails{}, models.CategoryBalances{
		3: {Refundable: dec("40"), NonRefundable: dec("10"), Free: dec("10")},
	}, []uint64{3})
	op := NewCategoryOperation(d, d.CatIDs)

	if remainder := op.Deduct(dec("40")); !remainder.IsZero() {
		t.Fatalf("remainder = %s, want 0", remainder)
	}
	if got := d.CatBalance[3].Free; !got.Equal(dec("10")) {
		t.Fatalf("free = %s, want 10 (untouched by refundable spend)", got)
	}
	if got := op.FreeCut(); !got.IsZero() {
		t.Fatalf("free cut = %s, want 0", got)
	}
}

func TestDeductShortfallPropagates(t *testing.T) {
	d := snapshotWith(models.CategoryDetails{}, models.CategoryBalances{
		5: {NonRefundable: dec("10")},
	}, []uint64{5})
	op := NewCategoryOperation(d, d.CatIDs)

	remainder := op.Deduct(dec("25"))

	if !remainder.Equal(dec("15")) {
		t.Fatalf("remainder = %s, want 15", remainder)
	}
	if !d.CatBalance[5].IsZero() {
		t.Fatalf("scope not zeroed: %+v", d.CatBalance[5])
	}
	checkInvariants(t, d)
}

func TestDeductShortfallAcrossChain(t *testing.T) {
	d := snapshotWith(models.CategoryDetails{NonRefundable: dec("5"), Free: dec("5")}, models.CategoryBalances{
		1: {Refundable: dec("3")},
		2: {NonRefundable: dec("4"), Free: dec("1")},
	}, []uint64{1, 2})
	op := NewCategoryOperation(d, d.CatIDs)

	remainder := op.Deduct(dec("20"))

	if !remainder.Equal(dec("8")) {
		t.Fatalf("remainder = %s, want 8", remainder)
	}
	if !d.Main.IsZero() || !d.CatBalance[1].IsZero() || !d.CatBalance[2].IsZero() {
		t.Fatalf("chain not fully zeroed: main=%+v cat1=%+v cat2=%+v", d.Main, d.CatBalance[1], d.CatBalance[2])
	}
	if got := op.FreeCut(); !got.Equal(dec("6")) {
		t.Fatalf("free cut = %s, want 6", got)
	}
}

func TestFreeCutResetsOnRead(t *testing.T) {
	d := snapshotWith(models.CategoryDetails{NonRefundable: dec("10"), Free: dec("10")}, nil, nil)
	op := NewCategoryOperation(d, nil)

	op.Deduct(dec("4"))
	if got := op.FreeCut(); !got.Equal(dec("4")) {
		t.Fatalf("first read = %s, want 4", got)
	}
	if got := op.FreeCut(); !got.IsZero() {
		t.Fatalf("second read = %s, want 0", got)
	}

	op.Deduct(dec("2"))
	op.Deduct(dec("3"))
	if got := op.FreeCut(); !got.Equal(dec("5")) {
		t.Fatalf("accumulated read = %s, want 5", got)
	}
}

func TestDeductConservation(t *testing.T) {
	d := snapshotWith(models.CategoryDetails{Refundable: dec("12"), NonRefundable: dec("8"), Free: dec("2")}, models.CategoryBalances{
		1: {Refundable: dec("5"), NonRefundable: dec("15"), Free: dec("10")},
		2: {Refundable: dec("30")},
	}, []uint64{1, 2})
	before := d.TotalRefundable().Add(d.TotalNonRefundable())

	op := NewCategoryOperation(d, d.CatIDs)
	amount := dec("33")
	if remainder := op.Deduct(amount); !remainder.IsZero() {
		t.Fatalf("remainder = %s, want 0", remainder)
	}

	after := d.TotalRefundable().Add(d.TotalNonRefundable())
	if !before.Sub(after).Equal(amount) {
		t.Fatalf("conservation broken: before=%s after=%s amount=%s", before, after, amount)
	}
	if got := op.Balance(); !got.Equal(d.ValidBalance()) {
		t.Fatalf("aggregate drifted: op=%s details=%s", got, d.ValidBalance())
	}
	checkInvariants(t, d)
}

func TestDeductMissingChainScopesCountAsZero(t *testing.T) {
	d := snapshotWith(models.CategoryDetails{Refundable: dec("10")}, nil, []uint64{1, 2, 3})
	op := NewCategoryOperation(d, d.CatIDs)

	if got := op.Balance(); !got.Equal(dec("10")) {
		t.Fatalf("aggregate balance = %s, want 10", got)
	}
	if remainder := op.Deduct(dec("10")); !remainder.IsZero() {
		t.Fatalf("remainder = %s, want 0", remainder)
	}
}

func TestDeductNegativeAmountPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for negative deduct")
		}
	}()
	d := snapshotWith(models.CategoryDetails{}, nil, nil)
	NewCategoryOperation(d, nil).Deduct(dec("-1"))
}

func TestDerivedQuantities(t *testing.T) {
	d := snapshotWith(models.CategoryDetails{Refundable: dec("10"), NonRefundable: dec("5"), Free: dec("2")}, models.CategoryBalances{
		1: {Refundable: dec("1"), NonRefundable: dec("2"), Free: dec("1")},
		9: {Refundable: dec("100")},
	}, []uint64{1})

	if got := d.MainBalance(); !got.Equal(dec("15")) {
		t.Fatalf("main balance = %s, want 15", got)
	}
	if got := d.TotalBalance(); !got.Equal(dec("118")) {
		t.Fatalf("total balance = %s, want 118", got)
	}
	if got := d.ValidBalance(); !got.Equal(dec("18")) {
		t.Fatalf("valid balance = %s, want 18 (scope 9 not in view)", got)
	}
	if got := d.TotalFree(); !got.Equal(dec("3")) {
		t.Fatalf("total free = %s, want 3", got)
	}
	if got := d.ValidFree(); !got.Equal(dec("3")) {
		t.Fatalf("valid free = %s, want 3", got)
	}
	if got := d.ValidRefundable(); !got.Equal(dec("11")) {
		t.Fatalf("valid refundable = %s, want 11", got)
	}
}
