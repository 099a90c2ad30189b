// Package purchases records supplier purchases. A purchase that restocks an
// ingredient also writes an entrada_compra movement into the inventory ledger
// within the same transaction, and its unit cost feeds dish costing.
package purchases

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Cost type classification used on expense reports.
const (
	CostTypeIngredient = "insumo"
	CostTypeFixed      = "fijo"
	CostTypeOther      = "otro"
)

// Purchase is one insumos_compras row. The Ingredient* fields are set only
// when the purchase restocks an insumo; plain expenses leave them nil.
type Purchase struct {
	ID       int64
	Date     time.Time
	Place    string
	Concept  string
	Qty      decimal.Decimal
	Unit     string
	Cost     decimal.Decimal
	CostType string
	Note     string

	IsIngredient bool
	IngredientID *int64
	BaseQty      *decimal.Decimal
	BaseUnit     *string
	UnitCost     *decimal.Decimal

	CreatedAt time.Time
}

// StockRelevant reports whether registering this purchase must also write an
// inventory entrada_compra movement.
func (p Purchase) StockRelevant() bool {
	return p.IsIngredient && p.IngredientID != nil && p.BaseQty != nil && p.BaseQty.IsPositive()
}

var (
	// ErrInvalidPurchase indicates missing or non-positive required fields.
	ErrInvalidPurchase = errors.New("purchases: concepto, cantidad and costo are required")
	// ErrIncompleteIngredient indicates es_insumo without insumo or base qty.
	ErrIncompleteIngredient = errors.New("purchases: ingredient purchases need insumo_id and a positive base qty")
)
