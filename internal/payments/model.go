package payments

import "time"

// Payment is one ledger entry against a sale. Reference is an opaque
// identifier handed to the customer on the receipt; it survives
// reassignment to another sale.
type Payment struct {
	ID        int64     `json:"id"`
	SaleID    int64     `json:"sale_id"`
	Amount    float64   `json:"amount"`
	Method    *string   `json:"method,omitempty"`
	PaidAt    time.Time `json:"paid_at"`
	Reference string    `json:"reference"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
