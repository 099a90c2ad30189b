package consumption

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/comal-pos/comal-pos/internal/platform/db"
)

type memoryRepo struct {
	recipes    map[int64][]Requirement
	proteinQty map[int64]decimal.Decimal
	proteins   map[int64]*int64
	orders     map[int64][]LineItem
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		recipes:    map[int64][]Requirement{},
		proteinQty: map[int64]decimal.Decimal{},
		proteins:   map[int64]*int64{},
		orders:     map[int64][]LineItem{},
	}
}

func (r *memoryRepo) BaseRecipe(_ context.Context, _ db.Querier, dishID int64) ([]Requirement, error) {
	return r.recipes[dishID], nil
}

func (r *memoryRepo) DishProteinQty(_ context.Context, _ db.Querier, dishID int64) (decimal.Decimal, error) {
	return r.proteinQty[dishID], nil
}

func (r *memoryRepo) ProteinIngredient(_ context.Context, _ db.Querier, proteinID int64) (*int64, error) {
	return r.proteins[proteinID], nil
}

func (r *memoryRepo) OrderLineItems(_ context.Context, _ db.Querier, orderID int64) ([]LineItem, error) {
	return r.orders[orderID], nil
}

func ptr(v int64) *int64 { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestResolveBaseRecipeOnly(t *testing.T) {
	repo := newMemoryRepo()
	repo.recipes[1] = []Requirement{
		{IngredientID: 10, Qty: dec("100")},
		{IngredientID: 11, Qty: dec("25.5")},
	}
	engine := NewEngine(repo)

	reqs, err := engine.Resolve(context.Background(), nil, 1, nil)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
}

func TestResolveAddsProteinDraw(t *testing.T) {
	repo := newMemoryRepo()
	repo.recipes[1] = []Requirement{{IngredientID: 10, Qty: dec("100")}}
	repo.proteinQty[1] = dec("50")
	repo.proteins[7] = ptr(20)
	engine := NewEngine(repo)

	reqs, err := engine.Resolve(context.Background(), nil, 1, ptr(7))
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	require.Equal(t, int64(20), reqs[1].IngredientID)
	require.True(t, reqs[1].Qty.Equal(dec("50")))
}

func TestResolveSkipsProteinWhenDishHasNoQty(t *testing.T) {
	repo := newMemoryRepo()
	repo.recipes[1] = []Requirement{{IngredientID: 10, Qty: dec("100")}}
	repo.proteins[7] = ptr(20)
	engine := NewEngine(repo)

	reqs, err := engine.Resolve(context.Background(), nil, 1, ptr(7))
	require.NoError(t, err)
	require.Len(t, reqs, 1)
}

func TestResolveSkipsUnbackedProtein(t *testing.T) {
	repo := newMemoryRepo()
	repo.recipes[1] = []Requirement{{IngredientID: 10, Qty: dec("100")}}
	repo.proteinQty[1] = dec("50")
	// protein 7 resolves to nil: no backing ingredient, or it is inactive or
	// not stock-deducting
	engine := NewEngine(repo)

	reqs, err := engine.Resolve(context.Background(), nil, 1, ptr(7))
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	require.Equal(t, int64(10), reqs[0].IngredientID)
}

func TestAggregateMultipliesAndMerges(t *testing.T) {
	repo := newMemoryRepo()
	repo.recipes[1] = []Requirement{
		{IngredientID: 10, Qty: dec("100")},
		{IngredientID: 11, Qty: dec("5")},
	}
	repo.recipes[2] = []Requirement{{IngredientID: 10, Qty: dec("30")}}
	repo.orders[5] = []LineItem{
		{DishID: ptr(1), QtySold: dec("3")},
		{DishID: ptr(2), QtySold: dec("2")},
	}
	engine := NewEngine(repo)

	totals, err := engine.Aggregate(context.Background(), nil, 5)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	require.True(t, totals[10].Equal(dec("360"))) // 100*3 + 30*2
	require.True(t, totals[11].Equal(dec("15")))
}

func TestAggregateSkipsNonPositiveAndUnmappedItems(t *testing.T) {
	repo := newMemoryRepo()
	repo.recipes[1] = []Requirement{{IngredientID: 10, Qty: dec("100")}}
	repo.orders[5] = []LineItem{
		{DishID: ptr(1), QtySold: dec("0")},
		{DishID: ptr(1), QtySold: dec("-2")},
		{DishID: nil, QtySold: dec("4")},
	}
	engine := NewEngine(repo)

	totals, err := engine.Aggregate(context.Background(), nil, 5)
	require.NoError(t, err)
	require.Empty(t, totals)
}

func TestAggregateEmptyOrderIsValidNoop(t *testing.T) {
	engine := NewEngine(newMemoryRepo())
	totals, err := engine.Aggregate(context.Background(), nil, 99)
	require.NoError(t, err)
	require.Empty(t, totals)
}

func TestAggregateProteinScenario(t *testing.T) {
	// Scenario: dish with protein qty 50, order line qty 2, protein backed by
	// ingredient 20 -> 100 units of ingredient 20 on top of the base recipe.
	repo := newMemoryRepo()
	repo.recipes[1] = []Requirement{{IngredientID: 10, Qty: dec("100")}}
	repo.proteinQty[1] = dec("50")
	repo.proteins[7] = ptr(20)
	repo.orders[5] = []LineItem{{DishID: ptr(1), ProteinID: ptr(7), QtySold: dec("2")}}
	engine := NewEngine(repo)

	totals, err := engine.Aggregate(context.Background(), nil, 5)
	require.NoError(t, err)
	require.True(t, totals[10].Equal(dec("200")))
	require.True(t, totals[20].Equal(dec("100")))
}

func TestAggregateDecimalExactness(t *testing.T) {
	repo := newMemoryRepo()
	repo.recipes[1] = []Requirement{{IngredientID: 10, Qty: dec("0.1")}}
	items := make([]LineItem, 0, 10)
	for i := 0; i < 10; i++ {
		items = append(items, LineItem{DishID: ptr(1), QtySold: dec("1")})
	}
	repo.orders[5] = items
	engine := NewEngine(repo)

	totals, err := engine.Aggregate(context.Background(), nil, 5)
	require.NoError(t, err)
	// 0.1 accumulated ten times must be exactly 1, not 0.9999999999.
	require.True(t, totals[10].Equal(dec("1")))
}
