package quotations

import "time"

type QuotationItemRequest struct {
	ProductID       *int64  `json:"product_id,omitempty"`
	Description     string  `json:"description" validate:"required,max=500"`
	Quantity        float64 `json:"quantity" validate:"gte=0"`
	UnitPrice       float64 `json:"unit_price" validate:"gte=0"`
	DiscountPercent float64 `json:"discount_percent" validate:"gte=0,lte=100"`
	TaxRate         float64 `json:"tax_rate" validate:"gte=0,lte=1"`
}

type CreateQuotationRequest struct {
	CustomerID  int64                  `json:"customer_id" validate:"required,gt=0"`
	QuoteDate   time.Time              `json:"quote_date" validate:"required"`
	ValidUntil  time.Time              `json:"valid_until" validate:"required"`
	TaxIncluded bool                   `json:"tax_included"`
	Notes       *string                `json:"notes,omitempty"`
	Items       []QuotationItemRequest `json:"items" validate:"required,min=1,dive"`
}

type UpdateQuotationRequest struct {
	CustomerID  *int64                  `json:"customer_id,omitempty" validate:"omitempty,gt=0"`
	QuoteDate   *time.Time              `json:"quote_date,omitempty"`
	ValidUntil  *time.Time              `json:"valid_until,omitempty"`
	TaxIncluded *bool                   `json:"tax_included,omitempty"`
	Notes       *string                 `json:"notes,omitempty"`
	Items       *[]QuotationItemRequest `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

type ListQuotationsRequest struct {
	Status     *QuotationStatus `json:"status,omitempty"`
	CustomerID *int64           `json:"customer_id,omitempty"`
	Limit      int              `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int              `json:"offset" validate:"gte=0"`
}

type RejectQuotationRequest struct {
	Reason *string `json:"reason,omitempty"`
}
