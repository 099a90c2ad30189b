package insights

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository runs the dashboard aggregate queries in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SalesSummary totals closed orders, optionally for one YYYY-MM month.
func (r *Repository) SalesSummary(ctx context.Context, month string) (SalesSummary, error) {
	var s SalesSummary
	var revenue, net string
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total),0)::text, COALESCE(SUM(neto),0)::text
FROM pedidos
WHERE estado = 'cerrado' AND ($1 = '' OR to_char(fecha, 'YYYY-MM') = $1)`, month).Scan(&s.Orders, &revenue, &net)
	if err != nil {
		return SalesSummary{}, err
	}
	if s.Revenue, err = decimal.NewFromString(revenue); err != nil {
		return SalesSummary{}, err
	}
	s.Net, err = decimal.NewFromString(net)
	return s, err
}

// TopProducts lists the best sellers among closed orders by units sold.
func (r *Repository) TopProducts(ctx context.Context, month string, limit int) ([]ProductSales, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.nombre, SUM(pi.cantidad), COALESCE(SUM(pi.subtotal),0)::text
FROM pedido_items pi
JOIN pedidos pe ON pe.id = pi.pedido_id
JOIN productos p ON p.id = pi.producto_id
WHERE pe.estado = 'cerrado' AND ($1 = '' OR to_char(pe.fecha, 'YYYY-MM') = $1)
GROUP BY p.id, p.nombre
ORDER BY SUM(pi.cantidad) DESC, p.nombre
LIMIT $2`, month, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ProductSales{}
	for rows.Next() {
		var ps ProductSales
		var revenue string
		if err := rows.Scan(&ps.Name, &ps.Qty, &revenue); err != nil {
			return nil, err
		}
		if ps.Revenue, err = decimal.NewFromString(revenue); err != nil {
			return nil, err
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

// TopConsumption sums salida_venta movements per ingredient, largest draw
// first.
func (r *Repository) TopConsumption(ctx context.Context, month string, limit int) ([]IngredientUse, error) {
	rows, err := r.pool.Query(ctx, `SELECT i.nombre, i.unidad_base, COALESCE(SUM(-m.cantidad_base),0)::text
FROM inventario_movimientos m
JOIN insumos i ON i.id = m.insumo_id
WHERE m.tipo = 'salida_venta' AND ($1 = '' OR to_char(m.created_at, 'YYYY-MM') = $1)
GROUP BY i.id, i.nombre, i.unidad_base
ORDER BY SUM(-m.cantidad_base) DESC, i.nombre
LIMIT $2`, month, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []IngredientUse{}
	for rows.Next() {
		var iu IngredientUse
		var qty string
		if err := rows.Scan(&iu.Name, &iu.BaseUnit, &qty); err != nil {
			return nil, err
		}
		if iu.Qty, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		out = append(out, iu)
	}
	return out, rows.Err()
}
