// Package inventory owns the append-only movement ledger. Current stock is
// always the sum of signed movements for an ingredient; no mutable counter
// exists anywhere, so the projection can never drift from the ledger.
package inventory

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// MovementType enumerates supported ledger movements.
type MovementType string

const (
	// MovementPurchaseIn is an inbound movement created when a purchase is
	// registered against an ingredient.
	MovementPurchaseIn MovementType = "entrada_compra"
	// MovementManualIn is an inbound movement entered from the stock screen.
	MovementManualIn MovementType = "entrada_manual"
	// MovementSaleOut is the automatic debit written when an order closes.
	MovementSaleOut MovementType = "salida_venta"
)

// Reference tables movements point back to.
const (
	RefOrders    = "pedidos"
	RefPurchases = "insumos_compras"
	RefStockUI   = "stock_ui"
)

// Movement is one signed, typed ledger row. Rows are never updated in place;
// reversing a sale deletes its salida_venta rows instead.
type Movement struct {
	ID           int64
	IngredientID int64
	Qty          decimal.Decimal
	Type         MovementType
	RefTable     string
	RefID        *int64
	Note         string
	CreatedAt    time.Time
}

// StockLevel is one row of the stock projection.
type StockLevel struct {
	IngredientID int64
	Name         string
	BaseUnit     string
	Stock        decimal.Decimal
}

var (
	// ErrInvalidQuantity indicates a manual entry with a non-positive quantity.
	ErrInvalidQuantity = errors.New("inventory: quantity must be greater than zero")
	// ErrIngredientInactive indicates a manual entry against a deactivated insumo.
	ErrIngredientInactive = errors.New("inventory: ingredient is not active")
	// ErrIngredientUnknown indicates a manual entry against a missing insumo.
	ErrIngredientUnknown = errors.New("inventory: ingredient not found")
)
