package invoices

import "time"

type SaleItemRequest struct {
	ProductID      *int64  `json:"product_id,omitempty"`
	Description    string  `json:"description" validate:"required,max=500"`
	Quantity       float64 `json:"quantity" validate:"gte=0"`
	UnitPrice      float64 `json:"unit_price" validate:"gte=0"`
	DiscountAmount float64 `json:"discount_amount" validate:"gte=0"`
	TaxPercent     float64 `json:"tax_percent" validate:"gte=0,lte=100"`
}

type CreateSaleRequest struct {
	CustomerID     int64             `json:"customer_id" validate:"required,gt=0"`
	IssueDate      time.Time         `json:"issue_date" validate:"required"`
	DueDate        *time.Time        `json:"due_date,omitempty"`
	Notes          *string           `json:"notes,omitempty"`
	Items          []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
	InitialPayment *float64          `json:"initial_payment,omitempty" validate:"omitempty,gt=0"`
	PaymentMethod  *string           `json:"payment_method,omitempty" validate:"omitempty,max=50"`
}

type CreateFromQuotationRequest struct {
	QuotationID    int64      `json:"quotation_id" validate:"required,gt=0"`
	IssueDate      time.Time  `json:"issue_date" validate:"required"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	InitialPayment *float64   `json:"initial_payment,omitempty" validate:"omitempty,gt=0"`
	PaymentMethod  *string    `json:"payment_method,omitempty" validate:"omitempty,max=50"`
}

type UpdateSaleRequest struct {
	CustomerID *int64             `json:"customer_id,omitempty" validate:"omitempty,gt=0"`
	IssueDate  *time.Time         `json:"issue_date,omitempty"`
	DueDate    *time.Time         `json:"due_date,omitempty"`
	Notes      *string            `json:"notes,omitempty"`
	Items      *[]SaleItemRequest `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

type ListSalesRequest struct {
	// Status accepts a concrete status or the "pending" alias covering
	// ISSUED and PARTIAL.
	Status     string `json:"status,omitempty"`
	CustomerID *int64 `json:"customer_id,omitempty"`
	Limit      int    `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int    `json:"offset" validate:"gte=0"`
}
