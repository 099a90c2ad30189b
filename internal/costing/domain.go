// Package costing computes what a dish costs to produce. Each recipe line is
// priced at either its manually pinned unit cost or the ingredient's latest
// purchase unit cost, with the quantity inflated by merma. Merma affects
// costing only; the inventory ledger always moves the raw recipe quantity.
package costing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Cost sources reported per line.
const (
	SourceManual   = "manual"
	SourcePurchase = "compra"
	SourceNone     = "sin_costo"
)

// Line is one recipe row with the ingredient attributes costing needs.
type Line struct {
	IngredientID   int64
	IngredientName string
	Qty            decimal.Decimal
	SpoilagePct    decimal.Decimal
	ManualPrice    bool
	ManualUnitCost *decimal.Decimal
}

// LineCost is the priced version of one Line.
type LineCost struct {
	IngredientID   int64
	IngredientName string
	Qty            decimal.Decimal
	// EffectiveQty is Qty inflated by the spoilage percentage.
	EffectiveQty decimal.Decimal
	UnitCost     decimal.Decimal
	Cost         decimal.Decimal
	Source       string
}

// DishCost is the full costing breakdown for a dish.
type DishCost struct {
	DishID int64
	Total  decimal.Decimal
	Lines  []LineCost
}

// ErrDishNotFound indicates an unknown platillo id.
var ErrDishNotFound = errors.New("costing: dish not found")

var hundred = decimal.NewFromInt(100)

// effectiveQty inflates qty by merma: qty × (1 + merma/100). Negative merma
// is treated as zero.
func effectiveQty(qty, spoilagePct decimal.Decimal) decimal.Decimal {
	if spoilagePct.IsNegative() {
		return qty
	}
	return qty.Mul(decimal.NewFromInt(1).Add(spoilagePct.Div(hundred)))
}
