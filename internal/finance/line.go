package finance

import "github.com/shopspring/decimal"

// Discount is a tagged discount variant. Quotation lines carry a
// percentage of the line base; sale invoice lines carry an absolute
// amount. The two never share a representation so a caller cannot feed
// one mode's value into the other's arithmetic.
type Discount struct {
	percent  decimal.Decimal
	absolute decimal.Decimal
	isPct    bool
}

// DiscountPercent builds a percentage discount (0-100 scale).
func DiscountPercent(p Percentage) Discount {
	return Discount{percent: dec(float64(p)), isPct: true}
}

// DiscountAbsolute builds an absolute money discount.
func DiscountAbsolute(a AbsoluteAmount) Discount {
	return Discount{absolute: dec(float64(a))}
}

// TaxRate is a tagged tax-rate variant. Quotations store fractions
// (0.18), sale invoices store percentages (18). Both collapse to a
// fraction internally.
type TaxRate struct {
	fraction decimal.Decimal
}

// TaxFraction builds a tax rate from a 0-1 fraction.
func TaxFraction(f Fraction) TaxRate {
	return TaxRate{fraction: dec(float64(f))}
}

// TaxPercent builds a tax rate from a 0-100 percentage.
func TaxPercent(p Percentage) TaxRate {
	return TaxRate{fraction: dec(float64(p)).Div(decimal.NewFromInt(100))}
}

// TaxTreatment selects how a line's tax relates to its price.
type TaxTreatment int

const (
	// TaxExclusive adds tax on top of the discounted base. Sales always
	// use this mode; quotations use it when tax_included is false.
	TaxExclusive TaxTreatment = iota
	// TaxInclusive treats the discounted amount as already containing
	// tax, and backs the tax out of it instead of adding more.
	TaxInclusive
)

// LineInput carries one line's pricing inputs. Quantity and unit price
// are validated non-negative at the HTTP boundary; this package trusts
// them.
type LineInput struct {
	Quantity  float64
	UnitPrice float64
	Discount  Discount
	Tax       TaxRate
	Treatment TaxTreatment
}

// LineResult is the derived pricing of one line, every field rounded to
// two decimal places.
type LineResult struct {
	// NetBase is the tax-exclusive amount after discount.
	NetBase        float64
	DiscountAmount float64
	TaxAmount      float64
	LineTotal      float64
}

// ComputeLine derives discount, tax and total for a single line.
//
// An absolute discount larger than the line base is capped at the base,
// never rejected; the after-discount amount floors at zero. In the
// inclusive mode the line total stays equal to the discounted amount and
// the tax is extracted from it.
func ComputeLine(in LineInput) LineResult {
	base := round2(dec(in.Quantity).Mul(dec(in.UnitPrice)))

	var discount decimal.Decimal
	if in.Discount.isPct {
		discount = round2(base.Mul(in.Discount.percent).Div(decimal.NewFromInt(100)))
	} else {
		discount = round2(in.Discount.absolute)
		if discount.GreaterThan(base) {
			discount = base
		}
	}
	afterDiscount := base.Sub(discount)

	var netBase, tax, total decimal.Decimal
	switch in.Treatment {
	case TaxInclusive:
		netBase = round2(afterDiscount.Div(decimal.NewFromInt(1).Add(in.Tax.fraction)))
		tax = round2(afterDiscount.Sub(netBase))
		total = afterDiscount
	default:
		netBase = afterDiscount
		tax = round2(afterDiscount.Mul(in.Tax.fraction))
		total = afterDiscount.Add(tax)
	}

	return LineResult{
		NetBase:        netBase.InexactFloat64(),
		DiscountAmount: discount.InexactFloat64(),
		TaxAmount:      tax.InexactFloat64(),
		LineTotal:      total.InexactFloat64(),
	}
}
