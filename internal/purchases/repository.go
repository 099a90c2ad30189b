package purchases

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/comal-pos/comal-pos/internal/inventory"
	"github.com/comal-pos/comal-pos/internal/platform/db"
)

// Repository persists purchases in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts the purchase and, when it restocks an ingredient, the
// matching entrada_compra movement in the same transaction. Returns the new
// id and whether a movement row was written.
func (r *Repository) Create(ctx context.Context, p Purchase) (int64, bool, error) {
	var id int64
	var moved bool
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var baseQty, unitCost *string
		if p.BaseQty != nil {
			s := p.BaseQty.String()
			baseQty = &s
		}
		if p.UnitCost != nil {
			s := p.UnitCost.String()
			unitCost = &s
		}
		err := tx.QueryRow(ctx, `INSERT INTO insumos_compras
(fecha, lugar, cantidad, unidad, concepto, costo, tipo_costo, nota, insumo_id, cantidad_base, unidad_base, costo_unitario, es_insumo, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NOW())
RETURNING id`,
			p.Date, p.Place, p.Qty.String(), p.Unit, p.Concept, p.Cost.String(), p.CostType, p.Note,
			p.IngredientID, baseQty, p.BaseUnit, unitCost, p.IsIngredient).Scan(&id)
		if err != nil {
			return err
		}
		if !p.StockRelevant() {
			return nil
		}
		moved, err = inventory.InsertMovement(ctx, tx, inventory.Movement{
			IngredientID: *p.IngredientID,
			Qty:          *p.BaseQty,
			Type:         inventory.MovementPurchaseIn,
			RefTable:     inventory.RefPurchases,
			RefID:        &id,
			Note:         fmt.Sprintf("Entrada por compra #%d", id),
		})
		return err
	})
	return id, moved, err
}

const purchaseColumns = `id, fecha, lugar, cantidad::text, unidad, concepto, costo::text, tipo_costo, nota, insumo_id, cantidad_base::text, unidad_base, costo_unitario::text, es_insumo, created_at`

func scanPurchase(row pgx.Row) (Purchase, error) {
	var p Purchase
	var qty, cost string
	var baseQty, unitCost *string
	err := row.Scan(&p.ID, &p.Date, &p.Place, &qty, &p.Unit, &p.Concept, &cost, &p.CostType, &p.Note,
		&p.IngredientID, &baseQty, &p.BaseUnit, &unitCost, &p.IsIngredient, &p.CreatedAt)
	if err != nil {
		return Purchase{}, err
	}
	if p.Qty, err = decimal.NewFromString(qty); err != nil {
		return Purchase{}, err
	}
	if p.Cost, err = decimal.NewFromString(cost); err != nil {
		return Purchase{}, err
	}
	if baseQty != nil {
		d, err := decimal.NewFromString(*baseQty)
		if err != nil {
			return Purchase{}, err
		}
		p.BaseQty = &d
	}
	if unitCost != nil {
		d, err := decimal.NewFromString(*unitCost)
		if err != nil {
			return Purchase{}, err
		}
		p.UnitCost = &d
	}
	return p, nil
}

// List returns purchases, optionally restricted to one YYYY-MM month, newest
// first.
func (r *Repository) List(ctx context.Context, month string) ([]Purchase, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+purchaseColumns+` FROM insumos_compras
WHERE ($1 = '' OR to_char(fecha, 'YYYY-MM') = $1)
ORDER BY fecha DESC, id DESC LIMIT 300`, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Purchase{}
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LatestUnitCost returns the most recent purchase unit cost recorded for an
// ingredient, by purchase date then id. ok is false when the ingredient has
// no priced purchase yet.
func (r *Repository) LatestUnitCost(ctx context.Context, ingredientID int64) (decimal.Decimal, bool, error) {
	var cost string
	err := r.pool.QueryRow(ctx, `SELECT costo_unitario::text FROM insumos_compras
WHERE insumo_id = $1 AND costo_unitario IS NOT NULL
ORDER BY fecha DESC, id DESC LIMIT 1`, ingredientID).Scan(&cost)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, err
	}
	d, err := decimal.NewFromString(cost)
	if err != nil {
		return decimal.Zero, false, err
	}
	return d, true, nil
}
