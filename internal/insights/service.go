package insights

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const topLimit = 10

// RepositoryPort abstracts the aggregate queries for the service.
type RepositoryPort interface {
	SalesSummary(ctx context.Context, month string) (SalesSummary, error)
	TopProducts(ctx context.Context, month string, limit int) ([]ProductSales, error)
	TopConsumption(ctx context.Context, month string, limit int) ([]IngredientUse, error)
}

// Service composes and caches the dashboard.
type Service struct {
	repo   RepositoryPort
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewService builds Service. cache may be nil, disabling caching.
func NewService(repo RepositoryPort, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

func cacheKey(month string) string {
	if month == "" {
		return "insights:dashboard:all"
	}
	return "insights:dashboard:" + month
}

// Dashboard returns the report for one month (empty month means all time),
// served from Redis when a fresh copy exists.
func (s *Service) Dashboard(ctx context.Context, month string) (Dashboard, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, cacheKey(month)).Bytes()
		if err == nil {
			var cached Dashboard
			if err := json.Unmarshal(raw, &cached); err == nil {
				cached.FromCache = true
				return cached, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("dashboard cache read failed", slog.Any("error", err))
		}
	}
	return s.rebuild(ctx, month)
}

// Warmup recomputes and caches the dashboards regardless of cache state. The
// nightly job uses it so the first lookup of the day is already warm.
func (s *Service) Warmup(ctx context.Context, months ...string) error {
	for _, month := range months {
		if _, err := s.rebuild(ctx, month); err != nil {
			return err
		}
	}
	return nil
}

// rebuild runs the three aggregates concurrently and refreshes the cache.
func (s *Service) rebuild(ctx context.Context, month string) (Dashboard, error) {
	d := Dashboard{Month: month}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		d.Sales, err = s.repo.SalesSummary(gctx, month)
		return err
	})
	g.Go(func() error {
		var err error
		d.TopProducts, err = s.repo.TopProducts(gctx, month, topLimit)
		return err
	})
	g.Go(func() error {
		var err error
		d.TopConsumption, err = s.repo.TopConsumption(gctx, month, topLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	d.GeneratedAt = time.Now().UTC()

	if s.cache != nil {
		raw, err := json.Marshal(d)
		if err == nil {
			err = s.cache.Set(ctx, cacheKey(month), raw, s.ttl).Err()
		}
		if err != nil {
			s.logger.Warn("dashboard cache write failed", slog.Any("error", err))
		}
	}
	return d, nil
}
