package consumption

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/comal-pos/comal-pos/internal/platform/db"
)

// Repository reads recipes and order items from PostgreSQL. It is stateless;
// the querier comes in per call so reads can join a running transaction.
type Repository struct{}

// NewRepository constructs Repository.
func NewRepository() Repository {
	return Repository{}
}

func (Repository) BaseRecipe(ctx context.Context, q db.Querier, dishID int64) ([]Requirement, error) {
	rows, err := q.Query(ctx, `SELECT r.insumo_id, r.cantidad_base::text
FROM recetas r
JOIN insumos i ON i.id = r.insumo_id
WHERE r.platillo_id = $1
  AND i.activo
  AND i.descuenta_stock`, dishID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Requirement{}
	for rows.Next() {
		var req Requirement
		var qty string
		if err := rows.Scan(&req.IngredientID, &qty); err != nil {
			return nil, err
		}
		if req.Qty, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (Repository) DishProteinQty(ctx context.Context, q db.Querier, dishID int64) (decimal.Decimal, error) {
	var qty string
	err := q.QueryRow(ctx, `SELECT proteina_cantidad_base::text FROM platillos WHERE id=$1`, dishID).Scan(&qty)
	if err != nil {
		// A vanished dish is a referential gap, not a hard failure.
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(qty)
}

func (Repository) ProteinIngredient(ctx context.Context, q db.Querier, proteinID int64) (*int64, error) {
	var ingredientID int64
	err := q.QueryRow(ctx, `SELECT i.id
FROM proteinas p
JOIN insumos i ON i.id = p.insumo_id
WHERE p.id = $1
  AND i.activo
  AND i.descuenta_stock`, proteinID).Scan(&ingredientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ingredientID, nil
}

func (Repository) OrderLineItems(ctx context.Context, q db.Querier, orderID int64) ([]LineItem, error) {
	rows, err := q.Query(ctx, `SELECT p.platillo_id, pi.proteina_id, pi.cantidad::text
FROM pedido_items pi
JOIN productos p ON p.id = pi.producto_id
WHERE pi.pedido_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LineItem{}
	for rows.Next() {
		var item LineItem
		var qty string
		if err := rows.Scan(&item.DishID, &item.ProteinID, &qty); err != nil {
			return nil, err
		}
		if item.QtySold, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
