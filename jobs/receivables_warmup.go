package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/facturo-erp/facturo-erp/internal/jobs"
	"github.com/facturo-erp/facturo-erp/internal/receivables"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ReceivablesWarmupJob refreshes the receivables cache after the
// nightly version bump so the first dashboard hit of the day is warm.
type ReceivablesWarmupJob struct {
	Receivables *receivables.Service
	Cache       *receivables.Cache
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	clock       func() time.Time
}

// NewReceivablesWarmupJob wires dependencies for the warmup handler.
func NewReceivablesWarmupJob(svc *receivables.Service, cache *receivables.Cache, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReceivablesWarmupJob {
	return &ReceivablesWarmupJob{
		Receivables: svc,
		Cache:       cache,
		Logger:      logger,
		Metrics:     metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes receivables warmup tasks.
func (j *ReceivablesWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Receivables == nil {
		return errors.New("receivables warmup: handler not configured")
	}
	var payload ReceivablesWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskReceivablesWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	asOf := payload.AsOf
	if asOf.IsZero() {
		asOf = j.now()
	}

	logger := j.logger().With(slog.Time("as_of", asOf))
	logger.Info("starting receivables warmup")

	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if j.Cache != nil {
		if err := j.Cache.Bump(runCtx); err != nil {
			resultErr = err
			logger.Error("bump receivables cache", slog.Any("error", err))
			return resultErr
		}
	}

	if err := j.Receivables.Warm(runCtx, asOf); err != nil {
		resultErr = err
		logger.Error("warm receivables", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed receivables warmup")
	return resultErr
}

func (j *ReceivablesWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReceivablesWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReceivablesWarmup))
}

func (j *ReceivablesWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ReceivablesWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
