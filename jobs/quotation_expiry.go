package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/facturo-erp/facturo-erp/internal/jobs"
	"github.com/facturo-erp/facturo-erp/internal/sales/quotations"
)

// QuotationExpiryJob flips SENT quotations past their valid_until date
// to EXPIRED once a day.
type QuotationExpiryJob struct {
	Quotations *quotations.Service
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
	clock      func() time.Time
}

// NewQuotationExpiryJob wires dependencies for the expiry sweep.
func NewQuotationExpiryJob(svc *quotations.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *QuotationExpiryJob {
	return &QuotationExpiryJob{
		Quotations: svc,
		Logger:     logger,
		Metrics:    metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes quotation expiry tasks.
func (j *QuotationExpiryJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Quotations == nil {
		return errors.New("quotation expiry: handler not configured")
	}
	var payload QuotationExpiryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskQuotationExpiry)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	asOf := payload.AsOf
	if asOf.IsZero() {
		asOf = j.now()
	}

	logger := j.logger().With(slog.Time("as_of", asOf))
	logger.Info("starting quotation expiry sweep")

	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	expired, err := j.Quotations.ExpireOverdue(runCtx, asOf)
	if err != nil {
		resultErr = err
		logger.Error("expire quotations", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed quotation expiry sweep", slog.Int64("expired", expired))
	return resultErr
}

func (j *QuotationExpiryJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskQuotationExpiry))
	}
	return slog.Default().With(slog.String("job", TaskQuotationExpiry))
}

func (j *QuotationExpiryJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *QuotationExpiryJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
