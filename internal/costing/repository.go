package costing

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository reads recipes and writes product costs in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) DishExists(ctx context.Context, dishID int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM platillos WHERE id=$1)`, dishID).Scan(&ok)
	return ok, err
}

func (r *Repository) RecipeLines(ctx context.Context, dishID int64) ([]Line, error) {
	rows, err := r.pool.Query(ctx, `SELECT r.insumo_id, i.nombre, r.cantidad_base::text, i.merma_pct::text, r.precio_manual_activo, r.costo_unitario_manual::text
FROM recetas r
JOIN insumos i ON i.id = r.insumo_id
WHERE r.platillo_id = $1
ORDER BY i.nombre`, dishID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Line{}
	for rows.Next() {
		var line Line
		var qty, merma string
		var manual *string
		if err := rows.Scan(&line.IngredientID, &line.IngredientName, &qty, &merma, &line.ManualPrice, &manual); err != nil {
			return nil, err
		}
		if line.Qty, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		if line.SpoilagePct, err = decimal.NewFromString(merma); err != nil {
			return nil, err
		}
		if manual != nil {
			m, err := decimal.NewFromString(*manual)
			if err != nil {
				return nil, err
			}
			line.ManualUnitCost = &m
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

func (r *Repository) DishIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM platillos ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateProductCosts(ctx context.Context, dishID int64, cost decimal.Decimal) error {
	_, err := r.pool.Exec(ctx, `UPDATE productos SET costo = $1 WHERE platillo_id = $2`, cost.String(), dishID)
	return err
}
