package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists ledger data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// IngredientState is the subset of catalog state manual entries validate.
type IngredientState struct {
	Active   bool
	BaseUnit string
}

func (r *Repository) IngredientState(ctx context.Context, id int64) (IngredientState, error) {
	var state IngredientState
	err := r.pool.QueryRow(ctx, `SELECT activo, unidad_base FROM insumos WHERE id=$1`, id).Scan(&state.Active, &state.BaseUnit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return IngredientState{}, ErrIngredientUnknown
		}
		return IngredientState{}, err
	}
	return state, nil
}

// AppendManual writes an entrada_manual row. Manual entries carry no ref id,
// so repeated entries are never collapsed by the idempotency index.
func (r *Repository) AppendManual(ctx context.Context, ingredientID int64, qty decimal.Decimal, note string) error {
	_, err := InsertMovement(ctx, r.pool, Movement{
		IngredientID: ingredientID,
		Qty:          qty,
		Type:         MovementManualIn,
		RefTable:     RefStockUI,
		Note:         note,
	})
	return err
}

// CurrentStock reduces the ledger to the current level for one ingredient.
func (r *Repository) CurrentStock(ctx context.Context, ingredientID int64) (decimal.Decimal, error) {
	var sum string
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(cantidad_base),0)::text
FROM inventario_movimientos WHERE insumo_id=$1`, ingredientID).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(sum)
}

// ListStock returns per-ingredient stock joined with catalog names. The search
// term is matched accent-insensitively against the ingredient name.
func (r *Repository) ListStock(ctx context.Context, search string) ([]StockLevel, error) {
	term := NormalizeSearchTerm(search)
	rows, err := r.pool.Query(ctx, `SELECT i.id, i.nombre, i.unidad_base, COALESCE(SUM(m.cantidad_base),0)::text AS stock
FROM insumos i
LEFT JOIN inventario_movimientos m ON m.insumo_id = i.id
WHERE i.activo
  AND ($1 = '' OR unaccent(lower(i.nombre)) LIKE '%' || $1 || '%')
GROUP BY i.id, i.nombre, i.unidad_base
ORDER BY i.nombre`, term)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []StockLevel{}
	for rows.Next() {
		var level StockLevel
		var stock string
		if err := rows.Scan(&level.IngredientID, &level.Name, &level.BaseUnit, &stock); err != nil {
			return nil, err
		}
		if level.Stock, err = decimal.NewFromString(stock); err != nil {
			return nil, err
		}
		out = append(out, level)
	}
	return out, rows.Err()
}

// Movements lists recent ledger rows for one ingredient, newest first.
func (r *Repository) Movements(ctx context.Context, ingredientID int64, limit int) ([]Movement, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, insumo_id, cantidad_base::text, tipo, ref_tabla, ref_id, nota, created_at
FROM inventario_movimientos
WHERE insumo_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2`, ingredientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Movement{}
	for rows.Next() {
		var m Movement
		var qty, tipo string
		if err := rows.Scan(&m.ID, &m.IngredientID, &qty, &tipo, &m.RefTable, &m.RefID, &m.Note, &m.CreatedAt); err != nil {
			return nil, err
		}
		if m.Qty, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		m.Type = MovementType(tipo)
		out = append(out, m)
	}
	return out, rows.Err()
}
