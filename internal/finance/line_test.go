package finance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeLinePercentageDiscountExclusive(t *testing.T) {
	res := ComputeLine(LineInput{
		Quantity:  2,
		UnitPrice: 100,
		Discount:  DiscountPercent(10),
		Tax:       TaxFraction(0.18),
		Treatment: TaxExclusive,
	})

	require.Equal(t, 20.00, res.DiscountAmount)
	require.Equal(t, 180.00, res.NetBase)
	require.Equal(t, 32.40, res.TaxAmount)
	require.Equal(t, 212.40, res.LineTotal)
}

func TestComputeLineTaxInclusiveBacksOutTax(t *testing.T) {
	res := ComputeLine(LineInput{
		Quantity:  2,
		UnitPrice: 100,
		Discount:  DiscountPercent(10),
		Tax:       TaxFraction(0.18),
		Treatment: TaxInclusive,
	})

	// The discounted amount already contains tax: the total does not
	// change, the net base and tax are extracted from it.
	require.Equal(t, 152.54, res.NetBase)
	require.Equal(t, 27.46, res.TaxAmount)
	require.Equal(t, 180.00, res.LineTotal)
}

func TestComputeLineAbsoluteDiscountCapsAtBase(t *testing.T) {
	res := ComputeLine(LineInput{
		Quantity:  1,
		UnitPrice: 50,
		Discount:  DiscountAbsolute(80),
		Tax:       TaxPercent(18),
		Treatment: TaxExclusive,
	})

	require.Equal(t, 50.00, res.DiscountAmount)
	require.Equal(t, 0.00, res.NetBase)
	require.Equal(t, 0.00, res.TaxAmount)
	require.Equal(t, 0.00, res.LineTotal)
}

func TestComputeLineTaxPercentMatchesFraction(t *testing.T) {
	pct := ComputeLine(LineInput{
		Quantity:  3,
		UnitPrice: 19.99,
		Discount:  DiscountAbsolute(5),
		Tax:       TaxPercent(18),
	})
	frac := ComputeLine(LineInput{
		Quantity:  3,
		UnitPrice: 19.99,
		Discount:  DiscountAbsolute(5),
		Tax:       TaxFraction(0.18),
	})
	require.Equal(t, frac, pct)
}

func TestComputeLineInvariantHoldsAfterStageRounding(t *testing.T) {
	cases := []LineInput{
		{Quantity: 2, UnitPrice: 100, Discount: DiscountPercent(10), Tax: TaxFraction(0.18)},
		{Quantity: 1.5, UnitPrice: 33.33, Discount: DiscountPercent(7.5), Tax: TaxFraction(0.18)},
		{Quantity: 4, UnitPrice: 0.99, Discount: DiscountAbsolute(1.25), Tax: TaxPercent(18)},
		{Quantity: 0, UnitPrice: 100, Discount: DiscountPercent(50), Tax: TaxFraction(0.1)},
		{Quantity: 7, UnitPrice: 12.49, Discount: DiscountAbsolute(0), Tax: TaxPercent(0)},
	}

	for _, in := range cases {
		res := ComputeLine(in)
		// line_total == (base - discount) + tax, on the already rounded
		// amounts.
		require.InDelta(t, res.NetBase+res.TaxAmount, res.LineTotal, 1e-9)
		require.GreaterOrEqual(t, res.NetBase, 0.0)
	}
}

func TestComputeLineZeroTax(t *testing.T) {
	res := ComputeLine(LineInput{
		Quantity:  2,
		UnitPrice: 25,
		Discount:  DiscountAbsolute(10),
		Tax:       TaxPercent(0),
	})
	require.Equal(t, 40.00, res.NetBase)
	require.Equal(t, 0.00, res.TaxAmount)
	require.Equal(t, 40.00, res.LineTotal)
}
