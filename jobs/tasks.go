package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReceivablesWarmup precomputes the receivables snapshot and
	// dashboard card after the nightly cache bump.
	TaskReceivablesWarmup = "receivables:warmup"
	// TaskQuotationExpiry sweeps SENT quotations past their valid_until.
	TaskQuotationExpiry = "quotations:expire"
)

// ReceivablesWarmupPayload scopes a warmup run. AsOf zero means "now".
type ReceivablesWarmupPayload struct {
	AsOf time.Time `json:"as_of,omitempty"`
}

// QuotationExpiryPayload scopes an expiry sweep. AsOf zero means "now".
type QuotationExpiryPayload struct {
	AsOf time.Time `json:"as_of,omitempty"`
}

// NewReceivablesWarmupTask constructs the warmup task.
func NewReceivablesWarmupTask(payload ReceivablesWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReceivablesWarmup, data), nil
}

// NewQuotationExpiryTask constructs the expiry sweep task.
func NewQuotationExpiryTask(payload QuotationExpiryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQuotationExpiry, data), nil
}
