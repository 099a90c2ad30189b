package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/comal-pos/comal-pos/internal/costing"
	jobmetrics "github.com/comal-pos/comal-pos/internal/jobs"
)

// RecostDishesJob recomputes every dish cost and writes it onto the mapped
// products.
type RecostDishesJob struct {
	Calculator *costing.Calculator
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// NewRecostDishesJob wires dependencies for the recost handler.
func NewRecostDishesJob(calculator *costing.Calculator, logger *slog.Logger) *RecostDishesJob {
	return &RecostDishesJob{Calculator: calculator, Logger: logger}
}

// Handle processes TaskRecostDishes tasks.
func (j *RecostDishesJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Calculator == nil {
		return errors.New("recost dishes: handler not configured")
	}
	var payload RecostDishesPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.metrics().Track(TaskRecostDishes)
	updated, err := j.Calculator.RecostAll(ctx)
	if err := tracker.End(err); err != nil {
		j.logger().Error("recost dishes failed", slog.Any("error", err), slog.String("reason", payload.Reason))
		return err
	}
	j.logger().Info("recost dishes done", slog.Int("dishes", updated), slog.String("reason", payload.Reason))
	return nil
}

func (j *RecostDishesJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *RecostDishesJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
