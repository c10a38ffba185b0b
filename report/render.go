package report

import (
	"bytes"
	"html/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/facturo-erp/facturo-erp/internal/sales/invoices"
	"github.com/facturo-erp/facturo-erp/internal/sales/quotations"
)

var amounts = message.NewPrinter(language.English)

func money(v float64) string {
	return amounts.Sprintf("%.2f", v)
}

func qty(v float64) string {
	return amounts.Sprintf("%v", v)
}

type documentRow struct {
	Description string
	Quantity    string
	UnitPrice   string
	Discount    string
	Tax         string
	LineTotal   string
}

type documentData struct {
	Kind          string
	Number        string
	Status        string
	CustomerName  string
	IssueLabel    string
	IssueDate     string
	ExpiryLabel   string
	ExpiryDate    string
	Rows          []documentRow
	Subtotal      string
	DiscountTotal string
	TaxTotal      string
	Total         string
	ShowBalance   bool
	PaidAmount    string
	Balance       string
	Notes         string
	GeneratedAt   string
}

var documentTmpl = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Kind}} {{.Number}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; color: #222; margin: 40px; }
h1 { font-size: 20px; margin-bottom: 0; }
.meta { margin: 12px 0 24px; color: #555; }
.meta span { margin-right: 24px; }
table { width: 100%; border-collapse: collapse; margin-bottom: 24px; }
th { text-align: left; border-bottom: 2px solid #222; padding: 6px 4px; }
td { border-bottom: 1px solid #ddd; padding: 6px 4px; }
td.num, th.num { text-align: right; }
.totals { width: 320px; margin-left: auto; }
.totals td { border: none; padding: 3px 4px; }
.totals tr.grand td { border-top: 2px solid #222; font-weight: bold; }
.notes { margin-top: 24px; white-space: pre-wrap; color: #555; }
.footer { margin-top: 48px; font-size: 10px; color: #999; }
</style>
</head>
<body>
<h1>{{.Kind}} {{.Number}}</h1>
<div class="meta">
<span>Customer: {{.CustomerName}}</span>
<span>{{.IssueLabel}}: {{.IssueDate}}</span>
{{if .ExpiryDate}}<span>{{.ExpiryLabel}}: {{.ExpiryDate}}</span>{{end}}
<span>Status: {{.Status}}</span>
</div>
<table>
<tr><th>Description</th><th class="num">Qty</th><th class="num">Unit Price</th><th class="num">Discount</th><th class="num">Tax</th><th class="num">Total</th></tr>
{{range .Rows}}<tr><td>{{.Description}}</td><td class="num">{{.Quantity}}</td><td class="num">{{.UnitPrice}}</td><td class="num">{{.Discount}}</td><td class="num">{{.Tax}}</td><td class="num">{{.LineTotal}}</td></tr>
{{end}}</table>
<table class="totals">
<tr><td>Subtotal</td><td class="num">{{.Subtotal}}</td></tr>
<tr><td>Discount</td><td class="num">-{{.DiscountTotal}}</td></tr>
<tr><td>Tax</td><td class="num">{{.TaxTotal}}</td></tr>
<tr class="grand"><td>Total</td><td class="num">{{.Total}}</td></tr>
{{if .ShowBalance}}<tr><td>Paid</td><td class="num">{{.PaidAmount}}</td></tr>
<tr><td>Balance Due</td><td class="num">{{.Balance}}</td></tr>
{{end}}</table>
{{if .Notes}}<div class="notes">{{.Notes}}</div>{{end}}
<div class="footer">Generated at {{.GeneratedAt}}</div>
</body>
</html>
`))

func renderDocument(data documentData) (string, error) {
	var buf bytes.Buffer
	if err := documentTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderInvoiceHTML builds the printable invoice document from the
// stored line snapshots; nothing is recomputed here.
func RenderInvoiceHTML(sale *invoices.Sale, now time.Time) (string, error) {
	data := documentData{
		Kind:          "Invoice",
		Number:        sale.Number,
		Status:        string(sale.Status),
		CustomerName:  sale.CustomerName,
		IssueLabel:    "Issue Date",
		IssueDate:     sale.IssueDate.Format("2006-01-02"),
		ExpiryLabel:   "Due Date",
		Subtotal:      money(sale.Subtotal),
		DiscountTotal: money(sale.DiscountTotal),
		TaxTotal:      money(sale.TaxTotal),
		Total:         money(sale.Total),
		ShowBalance:   true,
		PaidAmount:    money(sale.PaidAmount),
		Balance:       money(sale.Balance()),
		GeneratedAt:   now.Format(time.RFC1123),
	}
	if sale.DueDate != nil {
		data.ExpiryDate = sale.DueDate.Format("2006-01-02")
	}
	if sale.Notes != nil {
		data.Notes = *sale.Notes
	}
	for _, item := range sale.Items {
		data.Rows = append(data.Rows, documentRow{
			Description: item.Description,
			Quantity:    qty(item.Quantity),
			UnitPrice:   money(item.UnitPrice),
			Discount:    money(item.DiscountAmount),
			Tax:         amounts.Sprintf("%.2f%%", item.TaxPercent),
			LineTotal:   money(item.LineTotal),
		})
	}
	return renderDocument(data)
}

// RenderQuotationHTML builds the printable quotation document.
func RenderQuotationHTML(q *quotations.Quotation, now time.Time) (string, error) {
	data := documentData{
		Kind:          "Quotation",
		Number:        q.Number,
		Status:        string(q.Status),
		CustomerName:  q.CustomerName,
		IssueLabel:    "Quote Date",
		IssueDate:     q.QuoteDate.Format("2006-01-02"),
		ExpiryLabel:   "Valid Until",
		ExpiryDate:    q.ValidUntil.Format("2006-01-02"),
		Subtotal:      money(q.Subtotal),
		DiscountTotal: money(q.DiscountTotal),
		TaxTotal:      money(q.TaxTotal),
		Total:         money(q.Total),
		GeneratedAt:   now.Format(time.RFC1123),
	}
	if q.Notes != nil {
		data.Notes = *q.Notes
	}
	for _, item := range q.Items {
		data.Rows = append(data.Rows, documentRow{
			Description: item.Description,
			Quantity:    qty(item.Quantity),
			UnitPrice:   money(item.UnitPrice),
			Discount:    amounts.Sprintf("%.2f%%", item.DiscountPercent),
			Tax:         amounts.Sprintf("%.2f%%", item.TaxRate*100),
			LineTotal:   money(item.LineTotal),
		})
	}
	return renderDocument(data)
}
