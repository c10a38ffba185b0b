package invoices

import "github.com/facturo-erp/facturo-erp/internal/finance"

type SaleStatus string

const (
	SaleStatusIssued  SaleStatus = "ISSUED"
	SaleStatusPartial SaleStatus = "PARTIAL"
	SaleStatusPaid    SaleStatus = "PAID"
)

// DeriveStatus maps a sale's paid amount onto its status. A balance
// within finance.PaymentTolerance of zero counts as fully paid, so a
// sale settled to the cent does not linger in PARTIAL over float noise.
// The function is pure and idempotent; callers re-run it after every
// ledger mutation and write the result unconditionally.
func DeriveStatus(total, paid float64) SaleStatus {
	switch {
	case paid <= 0:
		return SaleStatusIssued
	case paid+finance.PaymentTolerance < total:
		return SaleStatusPartial
	default:
		return SaleStatusPaid
	}
}

// ExpandStatusFilter resolves the list filter aliases. "pending" covers
// every sale that still owes money.
func ExpandStatusFilter(filter string) []SaleStatus {
	switch filter {
	case "pending":
		return []SaleStatus{SaleStatusIssued, SaleStatusPartial}
	case "":
		return nil
	default:
		return []SaleStatus{SaleStatus(filter)}
	}
}
