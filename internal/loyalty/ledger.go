package loyalty

import (
	"context"

	"github.com/comal-pos/comal-pos/internal/platform/db"
)

// EnsureCustomer returns the customer id for a phone, creating the row when it
// does not exist yet. Runs against any db.Querier so the order-close
// transaction can include it.
func EnsureCustomer(ctx context.Context, q db.Querier, phone string) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `INSERT INTO loyalty_customers (phone, created_at)
VALUES ($1, NOW())
ON CONFLICT (phone) DO UPDATE SET phone = EXCLUDED.phone
RETURNING id`, phone).Scan(&id)
	return id, err
}

// AddPurchasePoints appends one earn row for an order and returns the new
// balance. The unique index on (reason, pedido_id) absorbs duplicate accrual
// attempts for the same order.
func AddPurchasePoints(ctx context.Context, q db.Querier, customerID, orderID int64, points int) (int, error) {
	if points > 0 {
		_, err := q.Exec(ctx, `INSERT INTO loyalty_tx (customer_id, pedido_id, delta, reason, created_at)
VALUES ($1,$2,$3,$4,NOW())
ON CONFLICT (reason, pedido_id) DO NOTHING`, customerID, orderID, points, ReasonPurchase)
		if err != nil {
			return 0, err
		}
	}
	return Balance(ctx, q, customerID)
}

// Balance reduces the ledger to the current point total for a customer.
func Balance(ctx context.Context, q db.Querier, customerID int64) (int, error) {
	var balance int
	err := q.QueryRow(ctx, `SELECT COALESCE(SUM(delta),0) FROM loyalty_tx WHERE customer_id=$1`, customerID).Scan(&balance)
	return balance, err
}

// DeleteForOrder removes the accrual rows referencing one order, used when a
// closed order is deleted.
func DeleteForOrder(ctx context.Context, q db.Querier, orderID int64) error {
	_, err := q.Exec(ctx, `DELETE FROM loyalty_tx WHERE pedido_id=$1`, orderID)
	return err
}
