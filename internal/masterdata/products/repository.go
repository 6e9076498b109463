package products

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/procuredesk/procuredesk/internal/masterdata/shared"
	"github.com/procuredesk/procuredesk/internal/platform/db"
	internalshared "github.com/procuredesk/procuredesk/internal/shared"
)

// Repository persists products.
type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, id int64, p Product) (bool, error)
	SetActive(ctx context.Context, id int64, active bool) (bool, error)
	NextCodeNumber(ctx context.Context) (int64, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the Postgres-backed product repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const productColumns = `p.id, p.code, p.name, COALESCE(p.description, ''), p.category_id,
	COALESCE(c.name, ''), p.unit, p.unit_price::text, p.stock_quantity, p.reorder_level,
	p.is_active, p.created_at, p.updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var unitPrice string
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.CategoryID, &p.CategoryName,
		&p.Unit, &unitPrice, &p.StockQuantity, &p.ReorderLevel, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, internalshared.ErrNotFound
		}
		return Product{}, err
	}
	if p.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	n := 0

	if filters.Search != "" {
		n++
		where += ` AND (p.name ILIKE $` + strconv.Itoa(n) + ` OR p.code ILIKE $` + strconv.Itoa(n) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.CategoryID != nil {
		n++
		where += ` AND p.category_id = $` + strconv.Itoa(n)
		args = append(args, *filters.CategoryID)
	}
	if filters.IsActive != nil {
		n++
		where += ` AND p.is_active = $` + strconv.Itoa(n)
		args = append(args, *filters.IsActive)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products p`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + productColumns + ` FROM products p
		LEFT JOIN categories c ON c.id = p.category_id` + where + ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)
	if filters.Limit > 0 {
		n++
		query += ` LIMIT $` + strconv.Itoa(n)
		args = append(args, filters.Limit)
		n++
		query += ` OFFSET $` + strconv.Itoa(n)
		args = append(args, filters.Offset())
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	return scanProduct(r.db.QueryRow(ctx, `
		SELECT `+productColumns+` FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1`, id))
}

func (r *repository) Create(ctx context.Context, p Product) (Product, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO products (code, name, description, category_id, unit, unit_price,
			stock_quantity, reorder_level, is_active, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3,''), $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING id, created_at, updated_at`,
		p.Code, p.Name, p.Description, p.CategoryID, p.Unit, p.UnitPrice.String(),
		p.StockQuantity, p.ReorderLevel, p.IsActive,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, db.MapError(err)
	}
	return p, nil
}

func (r *repository) Update(ctx context.Context, id int64, p Product) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE products SET name = $1, description = NULLIF($2,''), category_id = $3, unit = $4,
			unit_price = $5, stock_quantity = $6, reorder_level = $7, updated_at = now()
		WHERE id = $8`,
		p.Name, p.Description, p.CategoryID, p.Unit, p.UnitPrice.String(),
		p.StockQuantity, p.ReorderLevel, id)
	if err != nil {
		return false, db.MapError(err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE products SET is_active = $1, updated_at = now() WHERE id = $2`, active, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repository) NextCodeNumber(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT nextval('product_code_seq')`).Scan(&n)
	return n, err
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "code":
		return "p.code " + dir
	case "name":
		return "p.name " + dir
	case "unit_price":
		return "p.unit_price " + dir
	case "created_at":
		return "p.created_at " + dir
	default:
		return "p.name " + dir
	}
}
