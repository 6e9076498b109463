package vendors

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

// Repository persists vendors.
type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Vendor, int, error)
	Get(ctx context.Context, id int64) (Vendor, error)
	Create(ctx context.Context, v Vendor) (Vendor, error)
	Update(ctx context.Context, id int64, v Vendor) (bool, error)
	UpdateApproval(ctx context.Context, id int64, from []ApprovalStatus, to ApprovalStatus, reason string) (bool, error)
	SetActive(ctx context.Context, id int64, active bool) (bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the Postgres-backed vendor repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const vendorColumns = `id, code, company_name, COALESCE(contact_name, ''), COALESCE(email, ''),
	COALESCE(phone, ''), COALESCE(address, ''), COALESCE(payment_terms, ''),
	credit_limit::text, rating, approval_status, COALESCE(rejection_reason, ''),
	is_active, created_at, updated_at`

func scanVendor(row pgx.Row) (Vendor, error) {
	var v Vendor
	var creditLimit, status string
	err := row.Scan(&v.ID, &v.Code, &v.CompanyName, &v.ContactName, &v.Email, &v.Phone,
		&v.Address, &v.PaymentTerms, &creditLimit, &v.Rating, &status, &v.RejectionReason,
		&v.IsActive, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vendor{}, internalshared.ErrNotFound
		}
		return Vendor{}, err
	}
	v.ApprovalStatus = ApprovalStatus(status)
	if v.CreditLimit, err = decimal.NewFromString(creditLimit); err != nil {
		return Vendor{}, err
	}
	return v, nil
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Vendor, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	n := 0

	if filters.Search != "" {
		n++
		where += ` AND (company_name ILIKE $` + strconv.Itoa(n) + ` OR code ILIKE $` + strconv.Itoa(n) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.IsActive != nil {
		n++
		where += ` AND is_active = $` + strconv.Itoa(n)
		args = append(args, *filters.IsActive)
	}
	if filters.Approval != "" {
		n++
		where += ` AND approval_status = $` + strconv.Itoa(n)
		args = append(args, filters.Approval)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM vendors`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + vendorColumns + ` FROM vendors` + where + ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)
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

	var out []Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Vendor, error) {
	return scanVendor(r.db.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = $1`, id))
}

func (r *repository) Create(ctx context.Context, v Vendor) (Vendor, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO vendors (code, company_name, contact_name, email, phone, address,
			payment_terms, credit_limit, rating, approval_status, is_active, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), NULLIF($5,''), NULLIF($6,''),
			NULLIF($7,''), $8, $9, $10, $11, now(), now())
		RETURNING id, created_at, updated_at`,
		v.Code, v.CompanyName, v.ContactName, v.Email, v.Phone, v.Address,
		v.PaymentTerms, v.CreditLimit.String(), v.Rating, string(v.ApprovalStatus), v.IsActive,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return Vendor{}, db.MapError(err)
	}
	return v, nil
}

func (r *repository) Update(ctx context.Context, id int64, v Vendor) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE vendors SET company_name = $1, contact_name = NULLIF($2,''), email = NULLIF($3,''),
			phone = NULLIF($4,''), address = NULLIF($5,''), payment_terms = NULLIF($6,''),
			credit_limit = $7, rating = $8, updated_at = now()
		WHERE id = $9`,
		v.CompanyName, v.ContactName, v.Email, v.Phone, v.Address, v.PaymentTerms,
		v.CreditLimit.String(), v.Rating, id)
	if err != nil {
		return false, db.MapError(err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repository) UpdateApproval(ctx context.Context, id int64, from []ApprovalStatus, to ApprovalStatus, reason string) (bool, error) {
	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE vendors SET approval_status = $1, rejection_reason = NULLIF($2,''), updated_at = now()
		WHERE id = $3 AND approval_status = ANY($4)`,
		string(to), reason, id, fromStrs)
	if err != nil {
		return false, db.MapError(err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE vendors SET is_active = $1, updated_at = now() WHERE id = $2`, active, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "code":
		return "code " + dir
	case "company_name":
		return "company_name " + dir
	case "rating":
		return "rating " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "company_name " + dir
	}
}
