package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/comal-pos/comal-pos/internal/observability"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	IngredientState(ctx context.Context, id int64) (IngredientState, error)
	AppendManual(ctx context.Context, ingredientID int64, qty decimal.Decimal, note string) error
	CurrentStock(ctx context.Context, ingredientID int64) (decimal.Decimal, error)
	ListStock(ctx context.Context, search string) ([]StockLevel, error)
	Movements(ctx context.Context, ingredientID int64, limit int) ([]Movement, error)
}

// Service coordinates ledger reads and manual stock entries.
type Service struct {
	repo    RepositoryPort
	metrics *observability.Metrics
}

// NewService builds Service. metrics may be nil.
func NewService(repo RepositoryPort, metrics *observability.Metrics) *Service {
	return &Service{repo: repo, metrics: metrics}
}

// AddStock records an entrada_manual movement. Input problems are rejected
// before anything is written.
func (s *Service) AddStock(ctx context.Context, ingredientID int64, qty decimal.Decimal, note string) (StockLevel, error) {
	if !qty.IsPositive() {
		return StockLevel{}, ErrInvalidQuantity
	}
	state, err := s.repo.IngredientState(ctx, ingredientID)
	if err != nil {
		return StockLevel{}, err
	}
	if !state.Active {
		return StockLevel{}, ErrIngredientInactive
	}
	if note == "" {
		note = fmt.Sprintf("Entrada manual de %s %s", qty.String(), state.BaseUnit)
	}
	if err := s.repo.AppendManual(ctx, ingredientID, qty, note); err != nil {
		return StockLevel{}, err
	}
	s.metrics.MovementsWritten(1)

	stock, err := s.repo.CurrentStock(ctx, ingredientID)
	if err != nil {
		return StockLevel{}, err
	}
	return StockLevel{IngredientID: ingredientID, BaseUnit: state.BaseUnit, Stock: stock}, nil
}

// CurrentStock exposes the projection for one ingredient.
func (s *Service) CurrentStock(ctx context.Context, ingredientID int64) (decimal.Decimal, error) {
	if _, err := s.repo.IngredientState(ctx, ingredientID); err != nil {
		return decimal.Zero, err
	}
	return s.repo.CurrentStock(ctx, ingredientID)
}

// ListStock lists the projection for all active ingredients.
func (s *Service) ListStock(ctx context.Context, search string) ([]StockLevel, error) {
	return s.repo.ListStock(ctx, search)
}

// Movements lists recent ledger rows for one ingredient.
func (s *Service) Movements(ctx context.Context, ingredientID int64, limit int) ([]Movement, error) {
	if _, err := s.repo.IngredientState(ctx, ingredientID); err != nil {
		return nil, err
	}
	return s.repo.Movements(ctx, ingredientID, limit)
}
