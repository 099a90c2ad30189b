// Package insights builds the dashboard aggregates: closed-order revenue, top
// sellers and top ingredient consumption. The composed dashboard is cached in
// Redis for a short TTL; it is a report, while stock projections always read
// the ledger directly.
package insights

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesSummary totals the closed orders in scope.
type SalesSummary struct {
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
	Net     decimal.Decimal `json:"net"`
}

// ProductSales is one top-seller row.
type ProductSales struct {
	Name    string          `json:"name"`
	Qty     int64           `json:"qty"`
	Revenue decimal.Decimal `json:"revenue"`
}

// IngredientUse is one consumption row summed from salida_venta movements.
type IngredientUse struct {
	Name     string          `json:"name"`
	BaseUnit string          `json:"base_unit"`
	Qty      decimal.Decimal `json:"qty"`
}

// Dashboard is the composed report. Month is YYYY-MM, or empty for all time.
type Dashboard struct {
	Month          string          `json:"month"`
	Sales          SalesSummary    `json:"sales"`
	TopProducts    []ProductSales  `json:"top_products"`
	TopConsumption []IngredientUse `json:"top_consumption"`
	GeneratedAt    time.Time       `json:"generated_at"`
	FromCache      bool            `json:"-"`
}
