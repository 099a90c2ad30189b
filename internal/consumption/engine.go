package consumption

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/comal-pos/comal-pos/internal/platform/db"
)

// RepositoryPort abstracts the catalog and order reads the engine needs. Every
// method takes the querier so the reads can run inside the caller's
// transaction.
type RepositoryPort interface {
	// BaseRecipe returns the dish's recipe lines whose ingredient is active
	// and flagged to deduct stock; everything else is already filtered out.
	BaseRecipe(ctx context.Context, q db.Querier, dishID int64) ([]Requirement, error)
	// DishProteinQty returns the dish-level protein draw per unit sold, zero
	// when the dish has no protein option.
	DishProteinQty(ctx context.Context, q db.Querier, dishID int64) (decimal.Decimal, error)
	// ProteinIngredient resolves a protein to its backing ingredient id, or
	// nil when the protein is missing, unbacked, or its ingredient is
	// inactive or not stock-deducting.
	ProteinIngredient(ctx context.Context, q db.Querier, proteinID int64) (*int64, error)
	// OrderLineItems lists the order's line items with their dish mapping.
	OrderLineItems(ctx context.Context, q db.Querier, orderID int64) ([]LineItem, error)
}

// Engine implements recipe resolution and order-level aggregation.
type Engine struct {
	repo RepositoryPort
}

// NewEngine builds Engine.
func NewEngine(repo RepositoryPort) *Engine {
	return &Engine{repo: repo}
}

// Resolve expands one sold unit of a dish into ingredient requirements. A
// half-configured protein path contributes nothing rather than failing: an
// incomplete recipe must never block a sale.
func (e *Engine) Resolve(ctx context.Context, q db.Querier, dishID int64, proteinID *int64) ([]Requirement, error) {
	reqs, err := e.repo.BaseRecipe(ctx, q, dishID)
	if err != nil {
		return nil, err
	}

	if proteinID == nil {
		return reqs, nil
	}
	proteinQty, err := e.repo.DishProteinQty(ctx, q, dishID)
	if err != nil {
		return nil, err
	}
	if !proteinQty.IsPositive() {
		return reqs, nil
	}
	ingredientID, err := e.repo.ProteinIngredient(ctx, q, *proteinID)
	if err != nil {
		return nil, err
	}
	if ingredientID == nil {
		return reqs, nil
	}
	return append(reqs, Requirement{IngredientID: *ingredientID, Qty: proteinQty}), nil
}

// Aggregate merges the resolved requirements of every line item into one
// per-ingredient total. Run with the close transaction's querier it sees the
// order's items as of the row lock, so a line appended moments before the
// close is still debited. An empty map is a valid no-op.
func (e *Engine) Aggregate(ctx context.Context, q db.Querier, orderID int64) (map[int64]decimal.Decimal, error) {
	items, err := e.repo.OrderLineItems(ctx, q, orderID)
	if err != nil {
		return nil, err
	}

	totals := make(map[int64]decimal.Decimal)
	for _, item := range items {
		if item.DishID == nil || !item.QtySold.IsPositive() {
			continue
		}
		reqs, err := e.Resolve(ctx, q, *item.DishID, item.ProteinID)
		if err != nil {
			return nil, err
		}
		for _, req := range reqs {
			totals[req.IngredientID] = totals[req.IngredientID].Add(req.Qty.Mul(item.QtySold))
		}
	}
	return totals, nil
}
