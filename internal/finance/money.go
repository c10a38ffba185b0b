// Package finance implements the pricing and reconciliation arithmetic
// shared by quotations, sales invoices and the payment ledger. All
// intermediate amounts are rounded to two decimal places at each stage,
// so document totals are sums of already-rounded lines.
package finance

import (
	"errors"

	"github.com/shopspring/decimal"
)

// PaymentTolerance is the rounding slack applied when comparing a payment
// against an outstanding balance. It absorbs float noise from persisted
// 2dp amounts; it is not a business allowance.
const PaymentTolerance = 0.01

var (
	// ErrOverpayment indicates a payment exceeding the outstanding
	// balance beyond PaymentTolerance.
	ErrOverpayment = errors.New("payment exceeds outstanding balance")
	// ErrEmptyDocument indicates a document whose computed total is zero.
	ErrEmptyDocument = errors.New("document total must be greater than zero")
)

// Percentage is a rate expressed on a 0-100 scale.
type Percentage float64

// Fraction is a rate expressed on a 0-1 scale.
type Fraction float64

// AbsoluteAmount is a money amount, not a rate.
type AbsoluteAmount float64

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func dec(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
