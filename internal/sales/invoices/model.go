package invoices

import "time"

// Sale is an issued invoice. Unlike quotations its status is never set
// directly: it is derived from the payment ledger every time the paid
// amount changes.
type Sale struct {
	ID            int64      `json:"id"`
	Number        string     `json:"number"`
	CustomerID    int64      `json:"customer_id"`
	CustomerName  string     `json:"customer_name,omitempty"`
	QuotationID   *int64     `json:"quotation_id,omitempty"`
	IssueDate     time.Time  `json:"issue_date"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	Status        SaleStatus `json:"status"`
	Subtotal      float64    `json:"subtotal"`
	DiscountTotal float64    `json:"discount_total"`
	TaxTotal      float64    `json:"tax_total"`
	Total         float64    `json:"total"`
	PaidAmount    float64    `json:"paid_amount"`
	Notes         *string    `json:"notes,omitempty"`
	Items         []SaleItem `json:"items,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// SaleItem is one invoice line. Discount is an absolute money amount
// and the tax rate a 0-100 percentage; both differ deliberately from
// the quotation representation.
type SaleItem struct {
	ID             int64   `json:"id"`
	SaleID         int64   `json:"sale_id"`
	ProductID      *int64  `json:"product_id,omitempty"`
	Description    string  `json:"description"`
	Quantity       float64 `json:"quantity"`
	UnitPrice      float64 `json:"unit_price"`
	DiscountAmount float64 `json:"discount_amount"`
	TaxPercent     float64 `json:"tax_percent"`
	TaxAmount      float64 `json:"tax_amount"`
	LineTotal      float64 `json:"line_total"`
	Position       int     `json:"position"`
}

// Balance is the outstanding amount still owed on the sale.
func (s *Sale) Balance() float64 {
	return s.Total - s.PaidAmount
}
