package insights

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type countingRepo struct {
	calls atomic.Int32
}

func (r *countingRepo) SalesSummary(context.Context, string) (SalesSummary, error) {
	r.calls.Add(1)
	return SalesSummary{Orders: 12, Revenue: decimal.NewFromInt(2400), Net: decimal.NewFromInt(2500)}, nil
}

func (r *countingRepo) TopProducts(context.Context, string, int) ([]ProductSales, error) {
	r.calls.Add(1)
	return []ProductSales{{Name: "Chilaquiles verdes", Qty: 30, Revenue: decimal.NewFromInt(2850)}}, nil
}

func (r *countingRepo) TopConsumption(context.Context, string, int) ([]IngredientUse, error) {
	r.calls.Add(1)
	return []IngredientUse{{Name: "Tortilla chips", BaseUnit: "g", Qty: decimal.NewFromInt(9000)}}, nil
}

func newCachedService(t *testing.T, repo RepositoryPort, ttl time.Duration) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewService(repo, client, ttl, nil), mr
}

func TestDashboardCachesComposedReport(t *testing.T) {
	repo := &countingRepo{}
	svc, mr := newCachedService(t, repo, time.Minute)

	first, err := svc.Dashboard(context.Background(), "2026-08")
	require.NoError(t, err)
	require.False(t, first.FromCache)
	require.Equal(t, int32(3), repo.calls.Load())
	require.Equal(t, 12, first.Sales.Orders)
	require.True(t, mr.Exists("insights:dashboard:2026-08"))

	second, err := svc.Dashboard(context.Background(), "2026-08")
	require.NoError(t, err)
	require.True(t, second.FromCache)
	require.Equal(t, int32(3), repo.calls.Load(), "cache hit must not re-query")
	require.Equal(t, first.Sales.Orders, second.Sales.Orders)
	require.True(t, first.Sales.Revenue.Equal(second.Sales.Revenue))
	require.Len(t, second.TopConsumption, 1)
	require.True(t, second.TopConsumption[0].Qty.Equal(decimal.NewFromInt(9000)))
}

func TestDashboardCacheExpires(t *testing.T) {
	repo := &countingRepo{}
	svc, mr := newCachedService(t, repo, time.Minute)

	_, err := svc.Dashboard(context.Background(), "")
	require.NoError(t, err)
	require.True(t, mr.Exists("insights:dashboard:all"))

	mr.FastForward(2 * time.Minute)
	d, err := svc.Dashboard(context.Background(), "")
	require.NoError(t, err)
	require.False(t, d.FromCache)
	require.Equal(t, int32(6), repo.calls.Load())
}

func TestDashboardMonthsAreCachedSeparately(t *testing.T) {
	repo := &countingRepo{}
	svc, mr := newCachedService(t, repo, time.Minute)

	_, err := svc.Dashboard(context.Background(), "2026-07")
	require.NoError(t, err)
	_, err = svc.Dashboard(context.Background(), "2026-08")
	require.NoError(t, err)
	require.True(t, mr.Exists("insights:dashboard:2026-07"))
	require.True(t, mr.Exists("insights:dashboard:2026-08"))
}

func TestWarmupForcesRefresh(t *testing.T) {
	repo := &countingRepo{}
	svc, mr := newCachedService(t, repo, time.Minute)

	_, err := svc.Dashboard(context.Background(), "2026-08")
	require.NoError(t, err)
	require.Equal(t, int32(3), repo.calls.Load())

	// warmup recomputes even though the cache is still fresh
	require.NoError(t, svc.Warmup(context.Background(), "2026-08", ""))
	require.Equal(t, int32(9), repo.calls.Load())
	require.True(t, mr.Exists("insights:dashboard:all"))
}

func TestDashboardWithoutCacheStillWorks(t *testing.T) {
	repo := &countingRepo{}
	svc := NewService(repo, nil, time.Minute, nil)

	d, err := svc.Dashboard(context.Background(), "")
	require.NoError(t, err)
	require.False(t, d.FromCache)
	require.Equal(t, 12, d.Sales.Orders)
}
