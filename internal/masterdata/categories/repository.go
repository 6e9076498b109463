package categories

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/procuredesk/procuredesk/internal/masterdata/shared"
	"github.com/procuredesk/procuredesk/internal/platform/db"
	internalshared "github.com/procuredesk/procuredesk/internal/shared"
)

// Repository persists categories.
type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Category, int, error)
	Get(ctx context.Context, id int64) (Category, error)
	Create(ctx context.Context, c Category) (Category, error)
	Update(ctx context.Context, id int64, c Category) (bool, error)
	SetActive(ctx context.Context, id int64, active bool) (bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the Postgres-backed category repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const categoryColumns = `id, name, COALESCE(description, ''), is_active, created_at, updated_at`

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, internalshared.ErrNotFound
	}
	return c, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Category, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	n := 0

	if filters.Search != "" {
		n++
		where += ` AND name ILIKE $` + strconv.Itoa(n)
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.IsActive != nil {
		n++
		where += ` AND is_active = $` + strconv.Itoa(n)
		args = append(args, *filters.IsActive)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM categories`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + categoryColumns + ` FROM categories` + where + ` ORDER BY name ASC`
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

	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Category, error) {
	return scanCategory(r.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
}

func (r *repository) Create(ctx context.Context, c Category) (Category, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO categories (name, description, is_active, created_at, updated_at)
		VALUES ($1, NULLIF($2,''), $3, now(), now())
		RETURNING id, created_at, updated_at`,
		c.Name, c.Description, c.IsActive,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Category{}, db.MapError(err)
	}
	return c, nil
}

func (r *repository) Update(ctx context.Context, id int64, c Category) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE categories SET name = $1, description = NULLIF($2,''), updated_at = now()
		WHERE id = $3`,
		c.Name, c.Description, id)
	if err != nil {
		return false, db.MapError(err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE categories SET is_active = $1, updated_at = now() WHERE id = $2`, active, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
