// Package consumption resolves what raw stock a sale draws. Given an order it
// expands each line item through the dish's recipe (plus the chosen protein's
// backing ingredient) and merges everything into one per-ingredient delta.
package consumption

import "github.com/shopspring/decimal"

// Requirement is one (ingredient, quantity per unit sold) pair in the
// ingredient's base unit. Quantities are pre-converted at data entry; no unit
// conversion happens here.
type Requirement struct {
	IngredientID int64
	Qty          decimal.Decimal
}

// LineItem is the slice of an order the engine cares about. DishID is nil for
// products that were never mapped to a dish; those sell without consuming.
type LineItem struct {
	DishID    *int64
	ProteinID *int64
	QtySold   decimal.Decimal
}
