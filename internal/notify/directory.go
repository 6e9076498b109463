package notify

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGDirectory resolves recipients from the users table.
type PGDirectory struct {
	db *pgxpool.Pool
}

// NewPGDirectory returns the Postgres-backed recipient directory.
func NewPGDirectory(pool *pgxpool.Pool) *PGDirectory {
	return &PGDirectory{db: pool}
}

var _ Directory = (*PGDirectory)(nil)

func (d *PGDirectory) VendorUsers(ctx context.Context, vendorID int64) ([]UserRef, error) {
	return d.query(ctx, `
		SELECT id, email, name FROM users
		WHERE role = 'vendor' AND vendor_id = $1 AND is_active`, vendorID)
}

func (d *PGDirectory) AdminUsers(ctx context.Context) ([]UserRef, error) {
	return d.query(ctx, `
		SELECT id, email, name FROM users
		WHERE role = 'admin' AND is_active`)
}

func (d *PGDirectory) query(ctx context.Context, sql string, args ...any) ([]UserRef, error) {
	rows, err := d.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UserRef
	for rows.Next() {
		var u UserRef
		if err := rows.Scan(&u.ID, &u.Email, &u.Name); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
