package finance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFoldTotalsSumsRoundedLines(t *testing.T) {
	lines := []LineResult{
		ComputeLine(LineInput{Quantity: 2, UnitPrice: 100, Discount: DiscountPercent(10), Tax: TaxFraction(0.18)}),
		ComputeLine(LineInput{Quantity: 1.5, UnitPrice: 33.33, Discount: DiscountPercent(7.5), Tax: TaxFraction(0.18)}),
		ComputeLine(LineInput{Quantity: 3, UnitPrice: 9.99, Discount: DiscountPercent(0), Tax: TaxFraction(0)}),
	}

	totals := FoldTotals(lines)

	var wantSub, wantDisc, wantTax, wantTotal float64
	for _, l := range lines {
		wantSub += l.NetBase
		wantDisc += l.DiscountAmount
		wantTax += l.TaxAmount
		wantTotal += l.LineTotal
	}

	// The fold is exact over the already-rounded lines: no residual
	// drift beyond per-line rounding.
	require.InDelta(t, wantSub, totals.Subtotal, 1e-9)
	require.InDelta(t, wantDisc, totals.DiscountTotal, 1e-9)
	require.InDelta(t, wantTax, totals.TaxTotal, 1e-9)
	require.InDelta(t, wantTotal, totals.Total, 1e-9)
	require.InDelta(t, totals.Subtotal+totals.TaxTotal, totals.Total, 1e-9)
}

func TestFoldTotalsEmpty(t *testing.T) {
	totals := FoldTotals(nil)
	require.Equal(t, Totals{}, totals)
}

func TestFoldTotalsMixedTreatments(t *testing.T) {
	exclusive := ComputeLine(LineInput{Quantity: 1, UnitPrice: 118, Tax: TaxFraction(0.18)})
	inclusive := ComputeLine(LineInput{Quantity: 1, UnitPrice: 118, Tax: TaxFraction(0.18), Treatment: TaxInclusive})

	// Same gross price: the inclusive line keeps its total while the
	// exclusive line grows by the tax.
	require.Equal(t, 139.24, exclusive.LineTotal)
	require.Equal(t, 118.00, inclusive.LineTotal)

	totals := FoldTotals([]LineResult{exclusive, inclusive})
	require.InDelta(t, 257.24, totals.Total, 1e-9)
}
