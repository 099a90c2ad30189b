// Package catalog manages ingredients, dishes, proteins, sellable products and
// recipe lines. Ingredients are deactivated, never deleted, so the inventory
// ledger always has a referent.
package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Ingredient is a trackable raw stock item ("insumo").
type Ingredient struct {
	ID          int64
	Name        string
	BaseUnit    string
	SpoilagePct decimal.Decimal
	Active      bool
	// DeductsStock controls whether sales decrement the ledger. Labeling-only
	// ingredients keep recipe lines but never produce movements.
	DeductsStock bool
	CreatedAt    time.Time
}

// Dish is a recipe-bearing menu concept ("platillo"), distinct from the
// sellable product that references it.
type Dish struct {
	ID   int64
	Name string
	// ProteinQty is the base quantity drawn from the chosen protein's backing
	// ingredient per unit sold. Zero means the dish has no protein option.
	ProteinQty decimal.Decimal
	Price      *decimal.Decimal
}

// Protein is a sale-time choice backed by exactly one ingredient.
type Protein struct {
	ID           int64
	Name         string
	IngredientID *int64
}

// Product is the sellable SKU shown on tickets; it maps to a dish for
// consumption purposes.
type Product struct {
	ID       int64
	Name     string
	Category string
	Cost     decimal.Decimal
	Price    decimal.Decimal
	Active   bool
	DishID   *int64
}

// RecipeLine is the quantity of one ingredient required per unit of dish sold,
// unique per (dish, ingredient) pair.
type RecipeLine struct {
	ID           int64
	DishID       int64
	IngredientID int64
	Qty          decimal.Decimal
	// ManualPrice pins the costing unit cost instead of the latest purchase.
	ManualPrice    bool
	ManualUnitCost *decimal.Decimal
}

// RecipeLineInput is one submitted recipe row. Rows with non-positive or
// unparseable quantities are dropped before persisting, matching the
// incremental way recipes get configured.
type RecipeLineInput struct {
	IngredientID   int64
	Qty            decimal.Decimal
	ManualPrice    bool
	ManualUnitCost *decimal.Decimal
}

var (
	// ErrIngredientNotFound indicates an unknown insumo id.
	ErrIngredientNotFound = errors.New("catalog: ingredient not found")
	// ErrDishNotFound indicates an unknown platillo id.
	ErrDishNotFound = errors.New("catalog: dish not found")
	// ErrEmptyRecipe indicates a recipe submission with no valid lines.
	ErrEmptyRecipe = errors.New("catalog: recipe has no valid lines")
)
