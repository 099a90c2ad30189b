package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/comal-pos/comal-pos/internal/platform/db"
)

// Repository persists catalog data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) CreateIngredient(ctx context.Context, in Ingredient) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO insumos (nombre, unidad_base, merma_pct, activo, descuenta_stock, created_at)
VALUES ($1,$2,$3,TRUE,$4,NOW()) RETURNING id`, in.Name, in.BaseUnit, in.SpoilagePct.String(), in.DeductsStock).Scan(&id)
	return id, err
}

func (r *Repository) GetIngredient(ctx context.Context, id int64) (Ingredient, error) {
	var ing Ingredient
	var merma string
	err := r.pool.QueryRow(ctx, `SELECT id, nombre, unidad_base, merma_pct::text, activo, descuenta_stock, created_at
FROM insumos WHERE id=$1`, id).Scan(&ing.ID, &ing.Name, &ing.BaseUnit, &merma, &ing.Active, &ing.DeductsStock, &ing.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ingredient{}, ErrIngredientNotFound
		}
		return Ingredient{}, err
	}
	ing.SpoilagePct, err = decimal.NewFromString(merma)
	return ing, err
}

func (r *Repository) ListIngredients(ctx context.Context, activeOnly bool) ([]Ingredient, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, nombre, unidad_base, merma_pct::text, activo, descuenta_stock, created_at
FROM insumos WHERE (NOT $1 OR activo) ORDER BY nombre`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Ingredient{}
	for rows.Next() {
		var ing Ingredient
		var merma string
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.BaseUnit, &merma, &ing.Active, &ing.DeductsStock, &ing.CreatedAt); err != nil {
			return nil, err
		}
		if ing.SpoilagePct, err = decimal.NewFromString(merma); err != nil {
			return nil, err
		}
		out = append(out, ing)
	}
	return out, rows.Err()
}

func (r *Repository) DeactivateIngredient(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE insumos SET activo=FALSE WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIngredientNotFound
	}
	return nil
}

func (r *Repository) CreateDish(ctx context.Context, d Dish) (int64, error) {
	var price any
	if d.Price != nil {
		price = d.Price.String()
	}
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO platillos (nombre, proteina_cantidad_base, precio)
VALUES ($1,$2,$3) RETURNING id`, d.Name, d.ProteinQty.String(), price).Scan(&id)
	return id, err
}

func (r *Repository) GetDish(ctx context.Context, id int64) (Dish, error) {
	var d Dish
	var protQty string
	var price *string
	err := r.pool.QueryRow(ctx, `SELECT id, nombre, proteina_cantidad_base::text, precio::text
FROM platillos WHERE id=$1`, id).Scan(&d.ID, &d.Name, &protQty, &price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Dish{}, ErrDishNotFound
		}
		return Dish{}, err
	}
	if d.ProteinQty, err = decimal.NewFromString(protQty); err != nil {
		return Dish{}, err
	}
	if price != nil {
		p, err := decimal.NewFromString(*price)
		if err != nil {
			return Dish{}, err
		}
		d.Price = &p
	}
	return d, nil
}

func (r *Repository) ListDishes(ctx context.Context) ([]Dish, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, nombre, proteina_cantidad_base::text, precio::text FROM platillos ORDER BY nombre`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Dish{}
	for rows.Next() {
		var d Dish
		var protQty string
		var price *string
		if err := rows.Scan(&d.ID, &d.Name, &protQty, &price); err != nil {
			return nil, err
		}
		if d.ProteinQty, err = decimal.NewFromString(protQty); err != nil {
			return nil, err
		}
		if price != nil {
			p, err := decimal.NewFromString(*price)
			if err != nil {
				return nil, err
			}
			d.Price = &p
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repository) CreateProtein(ctx context.Context, p Protein) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO proteinas (nombre, insumo_id) VALUES ($1,$2) RETURNING id`, p.Name, p.IngredientID).Scan(&id)
	return id, err
}

func (r *Repository) ListProteins(ctx context.Context) ([]Protein, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, nombre, insumo_id FROM proteinas ORDER BY nombre`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Protein{}
	for rows.Next() {
		var p Protein
		if err := rows.Scan(&p.ID, &p.Name, &p.IngredientID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) CreateProduct(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO productos (nombre, categoria, costo, precio, activo, platillo_id)
VALUES ($1,$2,$3,$4,TRUE,$5) RETURNING id`, p.Name, p.Category, p.Cost.String(), p.Price.String(), p.DishID).Scan(&id)
	return id, err
}

func (r *Repository) ListProducts(ctx context.Context, activeOnly bool) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, nombre, categoria, costo::text, precio::text, activo, platillo_id
FROM productos WHERE (NOT $1 OR activo) ORDER BY categoria, nombre`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var cost, price string
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &cost, &price, &p.Active, &p.DishID); err != nil {
		return Product{}, err
	}
	var err error
	if p.Cost, err = decimal.NewFromString(cost); err != nil {
		return Product{}, err
	}
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return Product{}, err
	}
	return p, nil
}

// GetRecipe returns the dish's recipe lines ordered by ingredient name.
func (r *Repository) GetRecipe(ctx context.Context, dishID int64) ([]RecipeLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT r.id, r.platillo_id, r.insumo_id, r.cantidad_base::text, r.precio_manual_activo, r.costo_unitario_manual::text
FROM recetas r
JOIN insumos i ON i.id = r.insumo_id
WHERE r.platillo_id=$1
ORDER BY i.nombre`, dishID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []RecipeLine{}
	for rows.Next() {
		var line RecipeLine
		var qty string
		var manual *string
		if err := rows.Scan(&line.ID, &line.DishID, &line.IngredientID, &qty, &line.ManualPrice, &manual); err != nil {
			return nil, err
		}
		if line.Qty, err = decimal.NewFromString(qty); err != nil {
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

// ReplaceRecipe applies full-replace-by-diff semantics in one transaction:
// submitted pairs are upserted, pairs no longer submitted are deleted.
func (r *Repository) ReplaceRecipe(ctx context.Context, dishID int64, lines []RecipeLineInput) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		keep := make([]int64, 0, len(lines))
		for _, line := range lines {
			var manual any
			if line.ManualUnitCost != nil {
				manual = line.ManualUnitCost.String()
			}
			_, err := tx.Exec(ctx, `INSERT INTO recetas (platillo_id, insumo_id, cantidad_base, precio_manual_activo, costo_unitario_manual)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (platillo_id, insumo_id) DO UPDATE
SET cantidad_base=EXCLUDED.cantidad_base,
    precio_manual_activo=EXCLUDED.precio_manual_activo,
    costo_unitario_manual=EXCLUDED.costo_unitario_manual`,
				dishID, line.IngredientID, line.Qty.String(), line.ManualPrice, manual)
			if err != nil {
				return err
			}
			keep = append(keep, line.IngredientID)
		}
		_, err := tx.Exec(ctx, `DELETE FROM recetas WHERE platillo_id=$1 AND insumo_id <> ALL($2)`, dishID, keep)
		return err
	})
}
