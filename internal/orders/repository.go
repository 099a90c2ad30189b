package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/comal-pos/comal-pos/internal/inventory"
	"github.com/comal-pos/comal-pos/internal/loyalty"
	"github.com/comal-pos/comal-pos/internal/platform/db"
)

// Repository persists pedidos in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orderColumns = `id, codigo, fecha, origen, mesero, telefono_whatsapp, metodo_pago, total::text, monto_uber::text, neto::text, estado, created_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var total, fee, net string
	err := row.Scan(&o.ID, &o.Code, &o.Date, &o.Origin, &o.Waiter, &o.Phone, &o.PayMethod, &total, &fee, &net, &o.Status, &o.CreatedAt)
	if err != nil {
		return Order{}, err
	}
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return Order{}, err
	}
	if o.DeliveryFee, err = decimal.NewFromString(fee); err != nil {
		return Order{}, err
	}
	if o.Net, err = decimal.NewFromString(net); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM pedidos WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	return o, err
}

// List returns orders, optionally filtered by state, newest first.
func (r *Repository) List(ctx context.Context, status string) ([]Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM pedidos
WHERE ($1 = '' OR estado = $1) ORDER BY id DESC LIMIT 200`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repository) Items(ctx context.Context, orderID int64) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT pi.id, pi.pedido_id, pi.producto_id, p.nombre, pi.proteina_id, pi.proteina, pi.sin, pi.nota, pi.cantidad, pi.precio_unitario::text, pi.subtotal::text
FROM pedido_items pi
JOIN productos p ON p.id = pi.producto_id
WHERE pi.pedido_id = $1
ORDER BY pi.id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Item{}
	for rows.Next() {
		var it Item
		var price, subtotal string
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.ProteinID, &it.ProteinLabel, &it.Without, &it.Note, &it.Qty, &price, &subtotal); err != nil {
			return nil, err
		}
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		if it.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ProductPrice looks up an active product's name and price. ok is false when
// the product does not exist or is inactive.
func (r *Repository) ProductPrice(ctx context.Context, productID int64) (string, decimal.Decimal, bool, error) {
	var name, price string
	err := r.pool.QueryRow(ctx, `SELECT nombre, precio::text FROM productos WHERE id=$1 AND activo`, productID).Scan(&name, &price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", decimal.Zero, false, nil
		}
		return "", decimal.Zero, false, err
	}
	p, err := decimal.NewFromString(price)
	return name, p, err == nil, err
}

// Create inserts the order and its priced items in one transaction.
func (r *Repository) Create(ctx context.Context, o Order, items []Item) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO pedidos (codigo, fecha, origen, mesero, telefono_whatsapp, metodo_pago, total, monto_uber, neto, estado, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW()) RETURNING id`,
			o.Code, o.Date, o.Origin, o.Waiter, o.Phone, o.PayMethod, o.Total.String(), o.DeliveryFee.String(), o.Net.String(), StatusOpen).Scan(&id)
		if err != nil {
			return err
		}
		for _, it := range items {
			if err := insertItem(ctx, tx, id, it); err != nil {
				return err
			}
		}
		return nil
	})
	return id, err
}

func insertItem(ctx context.Context, q db.Querier, orderID int64, it Item) error {
	_, err := q.Exec(ctx, `INSERT INTO pedido_items (pedido_id, producto_id, proteina_id, proteina, sin, nota, cantidad, precio_unitario, subtotal)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		orderID, it.ProductID, it.ProteinID, it.ProteinLabel, it.Without, it.Note, it.Qty, it.UnitPrice.String(), it.Subtotal.String())
	return err
}

// AppendItems adds priced lines to an open order. A line identical in product,
// protein, sin and nota merges into the existing row instead of duplicating
// it. The order totals are bumped in the same transaction.
func (r *Repository) AppendItems(ctx context.Context, orderID int64, items []Item) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		added := decimal.Zero
		for _, it := range items {
			tag, err := tx.Exec(ctx, `UPDATE pedido_items
SET cantidad = cantidad + $1,
    subtotal = subtotal + $2
WHERE pedido_id = $3 AND producto_id = $4
  AND proteina_id IS NOT DISTINCT FROM $5
  AND proteina = $6 AND sin = $7 AND nota = $8`,
				it.Qty, it.Subtotal.String(), orderID, it.ProductID, it.ProteinID, it.ProteinLabel, it.Without, it.Note)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				if err := insertItem(ctx, tx, orderID, it); err != nil {
					return err
				}
			}
			added = added.Add(it.Subtotal)
		}
		_, err := tx.Exec(ctx, `UPDATE pedidos SET total = total + $1, neto = neto + $1 WHERE id = $2`, added.String(), orderID)
		return err
	})
}

// RemoveItem deletes one line and subtracts its subtotal from the order.
func (r *Repository) RemoveItem(ctx context.Context, orderID, itemID int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var subtotal string
		err := tx.QueryRow(ctx, `DELETE FROM pedido_items WHERE id=$1 AND pedido_id=$2 RETURNING subtotal::text`, itemID, orderID).Scan(&subtotal)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrItemNotFound
			}
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE pedidos SET total = total - $1, neto = neto - $1 WHERE id = $2`, subtotal, orderID)
		return err
	})
}

// Close commits the order close in one transaction: the row is locked FOR
// UPDATE, the state re-checked, flipped to cerrado, the aggregated consumption
// written as salida_venta movements, and loyalty accrued when the order
// carries a phone. Returns ErrOrderClosed when a concurrent close won the
// lock race.
func (r *Repository) Close(ctx context.Context, orderID int64, aggregate AggregateFunc) (CloseResult, error) {
	var res CloseResult
	note := fmt.Sprintf("Salida automática por pedido #%d", orderID)
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var status, phone string
		err := tx.QueryRow(ctx, `SELECT estado, telefono_whatsapp FROM pedidos WHERE id=$1 FOR UPDATE`, orderID).Scan(&status, &phone)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return err
		}
		if status != StatusOpen {
			return ErrOrderClosed
		}
		// Aggregate under the row lock so no item append can slip in
		// between the read and the movement writes.
		totals, err := aggregate(ctx, tx)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE pedidos SET estado=$1 WHERE id=$2`, StatusClosed, orderID); err != nil {
			return err
		}

		ids := make([]int64, 0, len(totals))
		for id := range totals {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		refID := orderID
		for _, ingredientID := range ids {
			qty := totals[ingredientID]
			if !qty.IsPositive() {
				continue
			}
			written, err := inventory.InsertMovement(ctx, tx, inventory.Movement{
				IngredientID: ingredientID,
				Qty:          qty.Neg(),
				Type:         inventory.MovementSaleOut,
				RefTable:     inventory.RefOrders,
				RefID:        &refID,
				Note:         note,
			})
			if err != nil {
				return err
			}
			if written {
				res.MovementsAdded++
			}
		}

		if phone != "" {
			customerID, err := loyalty.EnsureCustomer(ctx, tx, phone)
			if err != nil {
				return err
			}
			res.PointsEarned = loyalty.EarnPerOrder
			res.LoyaltyBalance, err = loyalty.AddPurchasePoints(ctx, tx, customerID, orderID, loyalty.EarnPerOrder)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return CloseResult{}, err
	}
	res.Order, err = r.Get(ctx, orderID)
	return res, err
}

// Delete removes the order, its items, its loyalty accruals and its
// salida_venta movements in one transaction, returning the ingredient stock
// the sale had debited. Returns how many movements were reversed.
func (r *Repository) Delete(ctx context.Context, orderID int64) (int64, error) {
	var reversed int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := loyalty.DeleteForOrder(ctx, tx, orderID); err != nil {
			return err
		}
		var err error
		if reversed, err = inventory.DeleteSaleMovements(ctx, tx, orderID); err != nil {
			return err
		}
		if _, err = tx.Exec(ctx, `DELETE FROM pedido_items WHERE pedido_id=$1`, orderID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM pedidos WHERE id=$1`, orderID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrOrderNotFound
		}
		return nil
	})
	return reversed, err
}

// DeleteMany removes the given orders with the same reversal steps as Delete,
// all in one transaction. Ids that no longer exist are skipped. Returns how
// many orders were deleted and how many movements were reversed.
func (r *Repository) DeleteMany(ctx context.Context, orderIDs []int64) (int, int64, error) {
	var deleted int
	var reversed int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, orderID := range orderIDs {
			if err := loyalty.DeleteForOrder(ctx, tx, orderID); err != nil {
				return err
			}
			n, err := inventory.DeleteSaleMovements(ctx, tx, orderID)
			if err != nil {
				return err
			}
			reversed += n
			if _, err = tx.Exec(ctx, `DELETE FROM pedido_items WHERE pedido_id=$1`, orderID); err != nil {
				return err
			}
			tag, err := tx.Exec(ctx, `DELETE FROM pedidos WHERE id=$1`, orderID)
			if err != nil {
				return err
			}
			if tag.RowsAffected() > 0 {
				deleted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return deleted, reversed, nil
}

// OpenOrderIDs lists every order still in estado abierto.
func (r *Repository) OpenOrderIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM pedidos WHERE estado=$1 ORDER BY id`, StatusOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
