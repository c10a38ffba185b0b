package finance

import "github.com/shopspring/decimal"

// Totals aggregates a document's four derived amounts.
type Totals struct {
	Subtotal      float64
	DiscountTotal float64
	TaxTotal      float64
	Total         float64
}

// FoldTotals folds computed lines into document totals. The caller must
// pass the complete current line set: document updates replace every
// line and refold, they never patch stored totals incrementally.
func FoldTotals(lines []LineResult) Totals {
	var subtotal, discount, tax, total decimal.Decimal
	for _, l := range lines {
		subtotal = subtotal.Add(dec(l.NetBase))
		discount = discount.Add(dec(l.DiscountAmount))
		tax = tax.Add(dec(l.TaxAmount))
		total = total.Add(dec(l.LineTotal))
	}
	return Totals{
		Subtotal:      subtotal.InexactFloat64(),
		DiscountTotal: discount.InexactFloat64(),
		TaxTotal:      tax.InexactFloat64(),
		Total:         total.InexactFloat64(),
	}
}
