package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRecostDishes recomputes every dish cost after a purchase or a
	// recipe change moved the inputs.
	TaskRecostDishes = "costing:recost-dishes"
	// TaskInsightsWarmup pre-warms the dashboard cache.
	TaskInsightsWarmup = "insights:warmup"
)

// RecostDishesPayload carries the trigger for a recost run, for logging only.
type RecostDishesPayload struct {
	Reason string `json:"reason"`
}

// NewRecostDishesTask constructs the recost task.
func NewRecostDishesTask(payload RecostDishesPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecostDishes, data), nil
}

// InsightsWarmupPayload selects which dashboard months to warm; empty means
// the current month plus the all-time view.
type InsightsWarmupPayload struct {
	Months []string `json:"months,omitempty"`
}

// NewInsightsWarmupTask constructs the warmup task.
func NewInsightsWarmupTask(payload InsightsWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInsightsWarmup, data), nil
}

// DefaultWarmupMonths is what an empty warmup payload expands to.
func DefaultWarmupMonths(now time.Time) []string {
	return []string{now.Format("2006-01"), ""}
}
