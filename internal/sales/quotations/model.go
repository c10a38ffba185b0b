package quotations

import "time"

type QuotationStatus string

const (
	QuotationStatusDraft    QuotationStatus = "DRAFT"
	QuotationStatusSent     QuotationStatus = "SENT"
	QuotationStatusAccepted QuotationStatus = "ACCEPTED"
	QuotationStatusRejected QuotationStatus = "REJECTED"
	QuotationStatusExpired  QuotationStatus = "EXPIRED"
)

// Quotation is a priced offer to a customer. Its lifecycle status moves
// independently of the financial totals: totals change only when the
// line set is replaced, status only through explicit transitions or the
// expiry sweep.
type Quotation struct {
	ID            int64           `json:"id"`
	Number        string          `json:"number"`
	CustomerID    int64           `json:"customer_id"`
	CustomerName  string          `json:"customer_name,omitempty"`
	QuoteDate     time.Time       `json:"quote_date"`
	ValidUntil    time.Time       `json:"valid_until"`
	Status        QuotationStatus `json:"status"`
	TaxIncluded   bool            `json:"tax_included"`
	Subtotal      float64         `json:"subtotal"`
	DiscountTotal float64         `json:"discount_total"`
	TaxTotal      float64         `json:"tax_total"`
	Total         float64         `json:"total"`
	Notes         *string         `json:"notes,omitempty"`
	Items         []QuotationItem `json:"items,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// QuotationItem snapshots one line's inputs and derived amounts.
// Discount is a percentage of the line base, tax rate a 0-1 fraction;
// both are stored alongside the computed results so a document can be
// rendered without recomputing.
type QuotationItem struct {
	ID              int64   `json:"id"`
	QuotationID     int64   `json:"quotation_id"`
	ProductID       *int64  `json:"product_id,omitempty"`
	Description     string  `json:"description"`
	Quantity        float64 `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	DiscountPercent float64 `json:"discount_percent"`
	TaxRate         float64 `json:"tax_rate"`
	DiscountAmount  float64 `json:"discount_amount"`
	TaxAmount       float64 `json:"tax_amount"`
	LineTotal       float64 `json:"line_total"`
	Position        int     `json:"position"`
}
