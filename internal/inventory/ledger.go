package inventory

import (
	"context"

	"github.com/comal-pos/comal-pos/internal/platform/db"
)

// InsertMovement appends one ledger row. The insert is idempotent on the
// (tipo, ref_tabla, ref_id, insumo_id) tuple, so retried writers (a re-POSTed
// order close, a replayed purchase) are absorbed as no-ops. Returns whether a
// row was actually written.
//
// It runs against any db.Querier so callers can place it inside their own
// transaction; the order-close workflow relies on that to commit the status
// flip and the movement rows atomically.
func InsertMovement(ctx context.Context, q db.Querier, m Movement) (bool, error) {
	tag, err := q.Exec(ctx, `INSERT INTO inventario_movimientos (insumo_id, cantidad_base, tipo, ref_tabla, ref_id, nota, created_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW())
ON CONFLICT (tipo, ref_tabla, ref_id, insumo_id) DO NOTHING`,
		m.IngredientID, m.Qty.String(), string(m.Type), m.RefTable, m.RefID, m.Note)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteSaleMovements removes the salida_venta rows referencing one order.
// This is the only form of undo the ledger supports.
func DeleteSaleMovements(ctx context.Context, q db.Querier, orderID int64) (int64, error) {
	tag, err := q.Exec(ctx, `DELETE FROM inventario_movimientos
WHERE tipo=$1 AND ref_tabla=$2 AND ref_id=$3`, string(MovementSaleOut), RefOrders, orderID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
