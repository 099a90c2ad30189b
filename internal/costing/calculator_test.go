package costing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	recipes      map[int64][]Line
	productCosts map[int64]decimal.Decimal
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{recipes: map[int64][]Line{}, productCosts: map[int64]decimal.Decimal{}}
}

func (m *memoryRepo) DishExists(_ context.Context, dishID int64) (bool, error) {
	_, ok := m.recipes[dishID]
	return ok, nil
}

func (m *memoryRepo) RecipeLines(_ context.Context, dishID int64) ([]Line, error) {
	return m.recipes[dishID], nil
}

func (m *memoryRepo) DishIDs(_ context.Context) ([]int64, error) {
	ids := []int64{}
	for id := range m.recipes {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memoryRepo) UpdateProductCosts(_ context.Context, dishID int64, cost decimal.Decimal) error {
	m.productCosts[dishID] = cost
	return nil
}

type priceTable map[int64]decimal.Decimal

func (p priceTable) LatestUnitCost(_ context.Context, ingredientID int64) (decimal.Decimal, bool, error) {
	cost, ok := p[ingredientID]
	return cost, ok, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCostOfDishAppliesSpoilageToPurchaseCost(t *testing.T) {
	repo := newMemoryRepo()
	repo.recipes[1] = []Line{
		{IngredientID: 10, IngredientName: "Tortilla chips", Qty: dec("100"), SpoilagePct: dec("10")},
	}
	calc := NewCalculator(repo, priceTable{10: dec("2.00")}, nil)

	dc, err := calc.CostOfDish(context.Background(), 1)
	require.NoError(t, err)
	// 100 × 1.10 × 2.00
	require.True(t, dc.Total.Equal(dec("220")), "total=%s", dc.Total)
	require.Equal(t, SourcePurchase, dc.Lines[0].Source)
	require.True(t, dc.Lines[0].EffectiveQty.Equal(dec("110")))
}

func TestCostOfDishPrefersManualPinnedCost(t *testing.T) {
	repo := newMemoryRepo()
	manual := dec("1.50")
	repo.recipes[1] = []Line{
		{IngredientID: 10, Qty: dec("100"), ManualPrice: true, ManualUnitCost: &manual},
	}
	calc := NewCalculator(repo, priceTable{10: dec("2.00")}, nil)

	dc, err := calc.CostOfDish(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, dc.Total.Equal(dec("150")), "total=%s", dc.Total)
	require.Equal(t, SourceManual, dc.Lines[0].Source)
}

func TestCostOfDishManualFlagWithoutCostFallsBack(t *testing.T) {
	repo := newMemoryRepo()
	repo.recipes[1] = []Line{
		{IngredientID: 10, Qty: dec("100"), ManualPrice: true},
	}
	calc := NewCalculator(repo, priceTable{10: dec("2.00")}, nil)

	dc, err := calc.CostOfDish(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, SourcePurchase, dc.Lines[0].Source)
	require.True(t, dc.Total.Equal(dec("200")))
}

func TestCostOfDishUnpricedIngredientCostsZero(t *testing.T) {
	repo := newMemoryRepo()
	repo.recipes[1] = []Line{
		{IngredientID: 10, Qty: dec("100")},
		{IngredientID: 20, Qty: dec("50")},
	}
	calc := NewCalculator(repo, priceTable{10: dec("1.00")}, nil)

	dc, err := calc.CostOfDish(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, dc.Total.Equal(dec("100")))
	require.Equal(t, SourceNone, dc.Lines[1].Source)
	require.True(t, dc.Lines[1].Cost.IsZero())
}

func TestCostOfDishEmptyRecipeIsZero(t *testing.T) {
	repo := newMemoryRepo()
	repo.recipes[1] = []Line{}
	calc := NewCalculator(repo, priceTable{}, nil)

	dc, err := calc.CostOfDish(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, dc.Total.IsZero())
}

func TestCostOfDishUnknownDish(t *testing.T) {
	calc := NewCalculator(newMemoryRepo(), priceTable{}, nil)
	_, err := calc.CostOfDish(context.Background(), 99)
	require.ErrorIs(t, err, ErrDishNotFound)
}

func TestSpoilageNeverLowersCost(t *testing.T) {
	repo := newMemoryRepo()
	repo.recipes[1] = []Line{{IngredientID: 10, Qty: dec("100"), SpoilagePct: dec("0")}}
	repo.recipes[2] = []Line{{IngredientID: 10, Qty: dec("100"), SpoilagePct: dec("25")}}
	repo.recipes[3] = []Line{{IngredientID: 10, Qty: dec("100"), SpoilagePct: dec("-5")}}
	calc := NewCalculator(repo, priceTable{10: dec("2.00")}, nil)

	base, err := calc.CostOfDish(context.Background(), 1)
	require.NoError(t, err)
	inflated, err := calc.CostOfDish(context.Background(), 2)
	require.NoError(t, err)
	clamped, err := calc.CostOfDish(context.Background(), 3)
	require.NoError(t, err)

	require.True(t, inflated.Total.GreaterThan(base.Total))
	require.True(t, clamped.Total.Equal(base.Total), "negative merma is ignored")
}

func TestRecostAllWritesProductCosts(t *testing.T) {
	repo := newMemoryRepo()
	repo.recipes[1] = []Line{{IngredientID: 10, Qty: dec("100")}}
	repo.recipes[2] = []Line{{IngredientID: 10, Qty: dec("200")}}
	calc := NewCalculator(repo, priceTable{10: dec("0.50")}, nil)

	updated, err := calc.RecostAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, updated)
	require.True(t, repo.productCosts[1].Equal(dec("50")))
	require.True(t, repo.productCosts[2].Equal(dec("100")))
}
