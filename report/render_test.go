package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/facturo-erp/facturo-erp/internal/sales/invoices"
	"github.com/facturo-erp/facturo-erp/internal/sales/quotations"
)

func TestRenderInvoiceHTML(t *testing.T) {
	due := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
	notes := "Payment due within 30 days.\n<b>Thanks!</b>"
	sale := &invoices.Sale{
		Number:       "F001-000042",
		CustomerName: "Acme Corp",
		IssueDate:    time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC),
		DueDate:      &due,
		Status:       invoices.SaleStatusPartial,
		Subtotal:     1200,
		TaxTotal:     216,
		Total:        1416,
		PaidAmount:   400,
		Notes:        &notes,
		Items: []invoices.SaleItem{
			{Description: "Widget", Quantity: 10, UnitPrice: 120, TaxPercent: 18, TaxAmount: 216, LineTotal: 1416},
		},
	}

	html, err := RenderInvoiceHTML(sale, time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Contains(t, html, "Invoice F001-000042")
	require.Contains(t, html, "Acme Corp")
	require.Contains(t, html, "Due Date: 2026-02-15")
	require.Contains(t, html, "1,416.00")
	require.Contains(t, html, "Balance Due")
	require.Contains(t, html, "1,016.00")
	// Customer-supplied text must not inject markup.
	require.NotContains(t, html, "<b>Thanks!</b>")
	require.Contains(t, html, "&lt;b&gt;Thanks!&lt;/b&gt;")
}

func TestRenderQuotationHTML(t *testing.T) {
	q := &quotations.Quotation{
		Number:       "COT-0007",
		CustomerName: "Beta SA",
		QuoteDate:    time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		ValidUntil:   time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		Status:       quotations.QuotationStatusSent,
		Subtotal:     200,
		TaxTotal:     36,
		Total:        236,
		Items: []quotations.QuotationItem{
			{Description: "Service", Quantity: 2, UnitPrice: 100, DiscountPercent: 0, TaxRate: 0.18, TaxAmount: 36, LineTotal: 236},
		},
	}

	html, err := RenderQuotationHTML(q, time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Contains(t, html, "Quotation COT-0007")
	require.Contains(t, html, "Valid Until: 2026-02-10")
	require.Contains(t, html, "18.00%")
	require.Contains(t, html, "236.00")
	// Quotations carry no payment ledger.
	require.False(t, strings.Contains(html, "Balance Due"))
}
