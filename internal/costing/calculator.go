package costing

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
)

// RepositoryPort abstracts the catalog reads and cost writes.
type RepositoryPort interface {
	// DishExists reports whether the platillo exists.
	DishExists(ctx context.Context, dishID int64) (bool, error)
	// RecipeLines returns the dish's recipe joined with ingredient merma.
	RecipeLines(ctx context.Context, dishID int64) ([]Line, error)
	// DishIDs lists every platillo id.
	DishIDs(ctx context.Context) ([]int64, error)
	// UpdateProductCosts writes the computed cost into every product mapped
	// to the dish.
	UpdateProductCosts(ctx context.Context, dishID int64, cost decimal.Decimal) error
}

// CostSource supplies the latest purchase unit cost per ingredient; the
// purchases repository implements it.
type CostSource interface {
	LatestUnitCost(ctx context.Context, ingredientID int64) (decimal.Decimal, bool, error)
}

// Calculator prices dishes from their recipes.
type Calculator struct {
	repo   RepositoryPort
	prices CostSource
	logger *slog.Logger
}

// NewCalculator builds Calculator.
func NewCalculator(repo RepositoryPort, prices CostSource, logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{repo: repo, prices: prices, logger: logger}
}

// CostOfDish prices every recipe line and sums them. A dish with no recipe
// costs zero; an ingredient with no price source contributes zero rather than
// failing, so a half-captured catalog still yields a usable partial cost.
func (c *Calculator) CostOfDish(ctx context.Context, dishID int64) (DishCost, error) {
	ok, err := c.repo.DishExists(ctx, dishID)
	if err != nil {
		return DishCost{}, err
	}
	if !ok {
		return DishCost{}, ErrDishNotFound
	}
	lines, err := c.repo.RecipeLines(ctx, dishID)
	if err != nil {
		return DishCost{}, err
	}

	out := DishCost{DishID: dishID, Total: decimal.Zero, Lines: make([]LineCost, 0, len(lines))}
	for _, line := range lines {
		lc := LineCost{
			IngredientID:   line.IngredientID,
			IngredientName: line.IngredientName,
			Qty:            line.Qty,
			EffectiveQty:   effectiveQty(line.Qty, line.SpoilagePct),
			Source:         SourceNone,
		}
		switch {
		case line.ManualPrice && line.ManualUnitCost != nil:
			lc.UnitCost = *line.ManualUnitCost
			lc.Source = SourceManual
		default:
			unitCost, found, err := c.prices.LatestUnitCost(ctx, line.IngredientID)
			if err != nil {
				return DishCost{}, err
			}
			if found {
				lc.UnitCost = unitCost
				lc.Source = SourcePurchase
			}
		}
		lc.Cost = lc.EffectiveQty.Mul(lc.UnitCost)
		out.Total = out.Total.Add(lc.Cost)
		out.Lines = append(out.Lines, lc)
	}
	return out, nil
}

// RecostAll recomputes every dish's cost and persists it onto the mapped
// products. This is the only place computed costs are written; CostOfDish
// itself never persists.
func (c *Calculator) RecostAll(ctx context.Context) (int, error) {
	ids, err := c.repo.DishIDs(ctx)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, dishID := range ids {
		dc, err := c.CostOfDish(ctx, dishID)
		if err != nil {
			return updated, err
		}
		if err := c.repo.UpdateProductCosts(ctx, dishID, dc.Total); err != nil {
			return updated, err
		}
		updated++
	}
	c.logger.Info("dish recost complete", slog.Int("dishes", updated))
	return updated, nil
}
