package wallet

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CategoryOperation applies scope-aware arithmetic to a Details snapshot. It
// is constructed for one target scope: the operation chain is the main balance
// followed by the scope's ancestors root-first and the scope itself, so the
// broadest pools sit at the head.
//
// Aggregate totals over the chain are kept on the operation and updated on
// every Add/Deduct, so they can be read back without recomputation.
type CategoryOperation struct {
	details *Details
	chain   []uint64

	refundable    decimal.Decimal
	nonRefundable decimal.Decimal
	free          decimal.Decimal
	balance       decimal.Decimal

	freeCut decimal.Decimal
}

// NewCategoryOperation builds an operation over the snapshot for the given
// root-first category chain. The main balance is prepended; categories absent
// from the snapshot count as zero.
func NewCategoryOperation(details *Details, catChain []uint64) *CategoryOperation {
	chain := make([]uint64, 0, len(catChain)+1)
	chain = append(chain, MainScopeID)
	chain = append(chain, catChain...)

	op := &CategoryOperation{details: details, chain: chain}
	for _, id := range chain {
		t := details.triple(id)
		op.refundable = op.refundable.Add(t.Refundable)
		op.nonRefundable = op.nonRefundable.Add(t.NonRefundable)
		op.free = op.free.Add(t.Free)
	}
	op.balance = op.refundable.Add(op.nonRefundable)
	return op
}

// Target returns the scope the operation credits, the tail of the chain.
func (op *CategoryOperation) Target() uint64 {
	return op.chain[len(op.chain)-1]
}

// Refundable returns the aggregated refundable amount over the chain.
func (op *CategoryOperation) Refundable() decimal.Decimal { return op.refundable }

// NonRefundable returns the aggregated non-refundable amount over the chain.
func (op *CategoryOperation) NonRefundable() decimal.Decimal { return op.nonRefundable }

// Free returns the aggregated promotional amount over the chain.
func (op *CategoryOperation) Free() decimal.Decimal { return op.free }

// Balance returns the aggregated spendable balance over the chain.
func (op *CategoryOperation) Balance() decimal.Decimal { return op.balance }

// FreeCut returns the promotional amount consumed by Deduct calls since the
// last read, then resets it. Reporting is at-most-once: a second read without
// an intervening Deduct returns zero.
func (op *CategoryOperation) FreeCut() decimal.Decimal {
	cut := op.freeCut
	op.freeCut = decimal.Zero
	return cut
}

// Add credits amount to the target scope only; ancestors are untouched. A
// refundable credit grows the refundable pool, otherwise the non-refundable
// pool grows and, when free is set, the promotional pool grows by the same
// amount. Aggregates are updated in step.
func (op *CategoryOperation) Add(amount decimal.Decimal, refundable, free bool) {
	if amount.IsNegative() {
		panic(fmt.Sprintf("wallet: negative add amount %s", amount))
	}

	t := op.details.triple(op.Target())
	if refundable {
		t.Refundable = t.Refundable.Add(amount)
		op.refundable = op.refundable.Add(amount)
	} else {
		t.NonRefundable = t.NonRefundable.Add(amount)
		op.nonRefundable = op.nonRefundable.Add(amount)
		if free {
			t.Free = t.Free.Add(amount)
			op.free = op.free.Add(amount)
		}
	}
	op.balance = op.balance.Add(amount)
	op.details.setTriple(op.Target(), t)
}

// Deduct spends amount across the chain, broadest scope first, and returns the
// unconsumed remainder: zero on full success, positive when the whole chain
// could not cover the request. The caller decides whether a positive remainder
// is an error.
//
// At each scope the refundable pool is consumed first. Whatever is then taken
// from the non-refundable pool also shrinks the promotional pool, floored at
// zero; the floored shrink accumulates into FreeCut. A negative amount is a
// programming error and panics.
func (op *CategoryOperation) Deduct(amount decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		panic(fmt.Sprintf("wallet: negative deduct amount %s", amount))
	}

	remainder := amount
	for _, id := range op.chain {
		if remainder.IsZero() {
			break
		}

		t := op.details.triple(id)
		if t.Refundable.GreaterThanOrEqual(remainder) {
			// Refundable spend never touches the promotional pool.
			t.Refundable = t.Refundable.Sub(remainder)
			op.refundable = op.refundable.Sub(remainder)
			op.balance = op.balance.Sub(remainder)
			remainder = decimal.Zero
			op.details.setTriple(id, t)
			continue
		}

		consumedRefundable := t.Refundable
		needed := remainder.Sub(consumedRefundable)
		t.Refundable = decimal.Zero

		consumedNonRefundable := decimal.Min(t.NonRefundable, needed)
		t.NonRefundable = t.NonRefundable.Sub(consumedNonRefundable)

		cut := decimal.Min(t.Free, needed)
		t.Free = t.Free.Sub(cut)
		op.freeCut = op.freeCut.Add(cut)

		op.refundable = op.refundable.Sub(consumedRefundable)
		op.nonRefundable = op.nonRefundable.Sub(consumedNonRefundable)
		op.free = op.free.Sub(cut)
		op.balance = op.balance.Sub(consumedRefundable.Add(consumedNonRefundable))

		remainder = needed.Sub(consumedNonRefundable)
		op.details.setTriple(id, t)
	}
	return remainder
}
