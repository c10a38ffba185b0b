package payments

import "time"

type CreatePaymentRequest struct {
	SaleID int64     `json:"sale_id" validate:"required,gt=0"`
	Amount float64   `json:"amount" validate:"required,gt=0"`
	Method *string   `json:"method,omitempty" validate:"omitempty,max=50"`
	PaidAt time.Time `json:"paid_at" validate:"required"`
	// Reference is optional; when absent the ledger generates one.
	Reference *string `json:"reference,omitempty" validate:"omitempty,max=100"`
	Notes     *string `json:"notes,omitempty"`
}

type ReassignPaymentRequest struct {
	SaleID int64 `json:"sale_id" validate:"required,gt=0"`
}

type ListPaymentsRequest struct {
	SaleID *int64 `json:"sale_id,omitempty"`
	Limit  int    `json:"limit" validate:"gte=0,lte=1000"`
	Offset int    `json:"offset" validate:"gte=0"`
}
