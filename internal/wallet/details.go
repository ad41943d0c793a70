package wallet

import (
	"github.com/learnstack/coursewallet/internal/models"
	"github.com/shopspring/decimal"
)

// MainScopeID addresses the scope-less main balance inside an operation chain.
const MainScopeID uint64 = 0

// Details is the wallet snapshot for one user: the main balance triple, every
// per-category triple, and the category chain relevant to the current
// operation. All total/valid quantities are derived on read; nothing derived
// is stored.
type Details struct {
	UserID uint64

	Main       models.CategoryDetails  // Scope-less main balance.
	CatBalance models.CategoryBalances // Per-category triples, keyed by category ID.
	CatIDs     []uint64                // Root-first chain in view for this operation.
}

// triple returns the balance triple for a scope, treating absent categories as
// zero. Scope 0 is the main balance.
func (d *Details) triple(id uint64) models.CategoryDetails {
	if id == MainScopeID {
		return d.Main
	}
	return d.CatBalance[id]
}

// setTriple writes a scope's balance triple back into the snapshot.
func (d *Details) setTriple(id uint64, t models.CategoryDetails) {
	if id == MainScopeID {
		d.Main = t
		return
	}
	if d.CatBalance == nil {
		d.CatBalance = models.CategoryBalances{}
	}
	d.CatBalance[id] = t
}

// MainRefundable returns the main refundable pool.
func (d *Details) MainRefundable() decimal.Decimal { return d.Main.Refundable }

// MainNonRefundable returns the main non-refundable pool.
func (d *Details) MainNonRefundable() decimal.Decimal { return d.Main.NonRefundable }

// MainFree returns the promotional subset of the main non-refundable pool.
func (d *Details) MainFree() decimal.Decimal { return d.Main.Free }

// MainBalance returns the main refundable + non-refundable amount.
func (d *Details) MainBalance() decimal.Decimal { return d.Main.Balance() }

// TotalRefundable sums the refundable pool over the main balance and every
// category in the snapshot, regardless of the chain in view.
func (d *Details) TotalRefundable() decimal.Decimal {
	total := d.Main.Refundable
	for _, t := range d.CatBalance {
		total = total.Add(t.Refundable)
	}
	return total
}

// TotalNonRefundable sums the non-refundable pool ledger-wide.
func (d *Details) TotalNonRefundable() decimal.Decimal {
	total := d.Main.NonRefundable
	for _, t := range d.CatBalance {
		total = total.Add(t.NonRefundable)
	}
	return total
}

// TotalFree sums the promotional pool ledger-wide.
func (d *Details) TotalFree() decimal.Decimal {
	total := d.Main.Free
	for _, t := range d.CatBalance {
		total = total.Add(t.Free)
	}
	return total
}

// TotalBalance returns TotalRefundable + TotalNonRefundable.
func (d *Details) TotalBalance() decimal.Decimal {
	return d.TotalRefundable().Add(d.TotalNonRefundable())
}

// ValidRefundable sums the refundable pool over the main balance and the
// chain in view: what is actually spendable refundably in this scope.
func (d *Details) ValidRefundable() decimal.Decimal {
	total := d.Main.Refundable
	for _, id := range d.CatIDs {
		total = total.Add(d.CatBalance[id].Refundable)
	}
	return total
}

// ValidNonRefundable sums the non-refundable pool over the chain in view.
func (d *Details) ValidNonRefundable() decimal.Decimal {
	total := d.Main.NonRefundable
	for _, id := range d.CatIDs {
		total = total.Add(d.CatBalance[id].NonRefundable)
	}
	return total
}

// ValidFree sums the promotional pool over the chain in view.
func (d *Details) ValidFree() decimal.Decimal {
	total := d.Main.Free
	for _, id := range d.CatIDs {
		total = total.Add(d.CatBalance[id].Free)
	}
	return total
}

// ValidBalance returns the balance spendable in the scope in view: the main
// balance plus every category on the chain.
func (d *Details) ValidBalance() decimal.Decimal {
	return d.ValidRefundable().Add(d.ValidNonRefundable())
}
