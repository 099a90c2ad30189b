package purchases

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/comal-pos/comal-pos/internal/observability"
	"github.com/comal-pos/comal-pos/internal/shared"
)

// RepositoryPort abstracts purchase persistence for the service.
type RepositoryPort interface {
	Create(ctx context.Context, p Purchase) (int64, bool, error)
	List(ctx context.Context, month string) ([]Purchase, error)
	LatestUnitCost(ctx context.Context, ingredientID int64) (decimal.Decimal, bool, error)
}

// Recoster schedules a dish-cost recalculation after a purchase lands.
type Recoster interface {
	EnqueueRecost(ctx context.Context) error
}

// Service coordinates purchase registration.
type Service struct {
	repo     RepositoryPort
	recoster Recoster
	audit    shared.AuditPort
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewService builds Service. recoster, audit and metrics may be nil.
func NewService(repo RepositoryPort, recoster Recoster, audit shared.AuditPort, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, recoster: recoster, audit: audit, metrics: metrics, logger: logger}
}

// Register validates and stores a purchase. When the purchase restocks an
// ingredient the stock entry lands in the same transaction, and a recost of
// every dish is enqueued since the ingredient's latest unit cost changed.
func (s *Service) Register(ctx context.Context, p Purchase) (Purchase, error) {
	p.Place = strings.TrimSpace(p.Place)
	p.Concept = strings.TrimSpace(p.Concept)
	p.Note = strings.TrimSpace(p.Note)
	if p.CostType == "" {
		p.CostType = CostTypeOther
	}
	if p.Date.IsZero() {
		p.Date = time.Now()
	}
	if p.Concept == "" || !p.Qty.IsPositive() || p.Cost.IsNegative() {
		return Purchase{}, ErrInvalidPurchase
	}
	if p.IsIngredient && (p.IngredientID == nil || p.BaseQty == nil || !p.BaseQty.IsPositive()) {
		return Purchase{}, ErrIncompleteIngredient
	}
	// Derive the unit cost when the form did not provide one.
	if p.StockRelevant() && p.UnitCost == nil {
		uc := p.Cost.Div(*p.BaseQty)
		p.UnitCost = &uc
	}

	id, moved, err := s.repo.Create(ctx, p)
	if err != nil {
		return Purchase{}, err
	}
	p.ID = id
	if moved {
		s.metrics.MovementsWritten(1)
	}
	s.logger.Info("purchase registered",
		slog.Int64("purchase_id", id),
		slog.String("concepto", p.Concept),
		slog.Bool("stock_entry", moved))
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			Action:   "purchase.register",
			Entity:   "compra",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"concepto": p.Concept, "stock_entry": moved},
		})
		if err != nil {
			s.logger.Warn("audit record failed", slog.Any("error", err))
		}
	}
	if p.StockRelevant() && s.recoster != nil {
		if err := s.recoster.EnqueueRecost(ctx); err != nil {
			s.logger.Warn("enqueue recost after purchase", slog.Any("error", err))
		}
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, month string) ([]Purchase, error) {
	return s.repo.List(ctx, month)
}

// LatestUnitCost exposes the calculator's cost source.
func (s *Service) LatestUnitCost(ctx context.Context, ingredientID int64) (decimal.Decimal, bool, error) {
	return s.repo.LatestUnitCost(ctx, ingredientID)
}
