package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/comal-pos/comal-pos/internal/insights"
	jobmetrics "github.com/comal-pos/comal-pos/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// InsightsWarmupJob rebuilds the cached dashboards so the first morning
// lookup is served warm.
type InsightsWarmupJob struct {
	Insights *insights.Service
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewInsightsWarmupJob wires dependencies for the warmup handler.
func NewInsightsWarmupJob(service *insights.Service, logger *slog.Logger) *InsightsWarmupJob {
	return &InsightsWarmupJob{
		Insights: service,
		Logger:   logger,
		clock:    time.Now,
	}
}

// Handle processes TaskInsightsWarmup tasks.
func (j *InsightsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Insights == nil {
		return errors.New("insights warmup: handler not configured")
	}
	var payload InsightsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	months := payload.Months
	if len(months) == 0 {
		months = DefaultWarmupMonths(j.clock())
	}
	tracker := j.metrics().Track(TaskInsightsWarmup)
	if err := tracker.End(j.Insights.Warmup(ctx, months...)); err != nil {
		j.logger().Error("insights warmup failed", slog.Any("error", err))
		return err
	}
	j.logger().Info("insights warmup done", slog.Int("dashboards", len(months)))
	return nil
}

func (j *InsightsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *InsightsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
