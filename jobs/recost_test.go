package jobs

import (
	"context"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/comal-pos/comal-pos/internal/costing"
	jobmetrics "github.com/comal-pos/comal-pos/internal/jobs"
)

type costRepoStub struct {
	dishes  []int64
	written map[int64]decimal.Decimal
}

func (r *costRepoStub) DishExists(_ context.Context, id int64) (bool, error) {
	for _, d := range r.dishes {
		if d == id {
			return true, nil
		}
	}
	return false, nil
}

func (r *costRepoStub) RecipeLines(context.Context, int64) ([]costing.Line, error) {
	return []costing.Line{{IngredientID: 1, Qty: decimal.NewFromInt(2)}}, nil
}

func (r *costRepoStub) DishIDs(context.Context) ([]int64, error) {
	return r.dishes, nil
}

func (r *costRepoStub) UpdateProductCosts(_ context.Context, dishID int64, cost decimal.Decimal) error {
	if r.written == nil {
		r.written = map[int64]decimal.Decimal{}
	}
	r.written[dishID] = cost
	return nil
}

type priceStub struct{}

func (priceStub) LatestUnitCost(context.Context, int64) (decimal.Decimal, bool, error) {
	return decimal.NewFromFloat(0.5), true, nil
}

func counterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			seen := map[string]string{}
			for _, pair := range metric.GetLabel() {
				seen[pair.GetName()] = pair.GetValue()
			}
			matched := true
			for k, v := range labels {
				if seen[k] != v {
					matched = false
					break
				}
			}
			if matched {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestRecostJobRecordsMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	repo := &costRepoStub{dishes: []int64{7}}
	job := NewRecostDishesJob(costing.NewCalculator(repo, priceStub{}, nil), nil)
	job.Metrics = jobmetrics.NewMetrics(registry)

	task, err := NewRecostDishesTask(RecostDishesPayload{Reason: "cron"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.True(t, repo.written[7].Equal(decimal.NewFromInt(1)), repo.written[7].String())
	require.Equal(t, float64(1), counterValue(t, registry, "comal_jobs_total",
		map[string]string{"job": TaskRecostDishes, "status": "success"}))
}

func TestRecostJobFallsBackToDefaultMetrics(t *testing.T) {
	job := NewRecostDishesJob(costing.NewCalculator(&costRepoStub{}, priceStub{}, nil), nil)
	require.Nil(t, job.Metrics)
	require.NotNil(t, job.metrics())
	require.Same(t, defaultJobMetrics, job.metrics())
}

func TestRecostJobSkipsRetryOnBadPayload(t *testing.T) {
	job := NewRecostDishesJob(costing.NewCalculator(&costRepoStub{}, priceStub{}, nil), nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskRecostDishes, []byte("{not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}
