package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/procuredesk/procuredesk/internal/platform/db"
	"github.com/procuredesk/procuredesk/internal/shared"
)

// TxRepository is the write surface inside a billing transaction. The invoice
// ledger mutations all go through GetInvoiceForUpdate's row lock.
type TxRepository interface {
	CreateInvoice(ctx context.Context, inv Invoice) (int64, error)
	GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, id int64, from []InvoiceStatus, to InvoiceStatus) (bool, error)
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	ApplyPayment(ctx context.Context, invoiceID int64, paid decimal.Decimal, status InvoiceStatus) (bool, error)
	SetInvoiceFile(ctx context.Context, id int64, path string) (bool, error)
}

// RepositoryPort is the read surface used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	ListInvoices(ctx context.Context, f InvoiceFilters, limit, offset int) ([]Invoice, int, error)
	ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error)
	CountInvoicesForPO(ctx context.Context, poID int64) (int, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]Invoice, error)
}

// InvoiceFilters narrow invoice listings.
type InvoiceFilters struct {
	Status   InvoiceStatus
	VendorID int64
	POID     int64
	Overdue  bool
}

// Repository implements RepositoryPort on a pgx pool.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Repository backed by pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a serializable transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const invoiceColumns = `id, number, po_id, vendor_id, created_by, invoice_date, due_date,
	subtotal::text, tax_amount::text, total_amount::text, paid_amount::text, status,
	COALESCE(notes, ''), COALESCE(file_path, ''), created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	var subtotal, tax, total, paid string
	err := row.Scan(&inv.ID, &inv.Number, &inv.POID, &inv.VendorID, &inv.CreatedBy, &inv.InvoiceDate, &inv.DueDate,
		&subtotal, &tax, &total, &paid, &inv.Status, &inv.Notes, &inv.FilePath, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, shared.ErrNotFound
	}
	if err != nil {
		return Invoice{}, err
	}
	for _, pair := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&inv.Subtotal, subtotal}, {&inv.TaxAmount, tax}, {&inv.TotalAmount, total}, {&inv.PaidAmount, paid},
	} {
		d, err := decimal.NewFromString(pair.src)
		if err != nil {
			return Invoice{}, fmt.Errorf("parse amount %q: %w", pair.src, err)
		}
		*pair.dst = d
	}
	return inv, nil
}

// GetInvoice loads one invoice.
func (r *Repository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	return scanInvoice(row)
}

// ListInvoices returns a filtered page of invoices plus the matching total.
func (r *Repository) ListInvoices(ctx context.Context, f InvoiceFilters, limit, offset int) ([]Invoice, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	if f.VendorID != 0 {
		args = append(args, f.VendorID)
		where = append(where, "vendor_id = $"+strconv.Itoa(len(args)))
	}
	if f.POID != 0 {
		args = append(args, f.POID)
		where = append(where, "po_id = $"+strconv.Itoa(len(args)))
	}
	if f.Overdue {
		where = append(where, "due_date < NOW() AND status IN ('pending', 'approved')")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE ` + cond +
		` ORDER BY invoice_date DESC, id DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]Invoice, 0, limit)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, inv)
	}
	return out, total, rows.Err()
}

// ListPayments returns the ledger for one invoice, oldest first.
func (r *Repository) ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, invoice_id, amount::text, method, COALESCE(reference, ''), paid_at, recorded_by, COALESCE(notes, '')
		FROM payments WHERE invoice_id = $1 ORDER BY paid_at, id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Payment{}
	for rows.Next() {
		var p Payment
		var amount string
		if err := rows.Scan(&p.ID, &p.InvoiceID, &amount, &p.Method, &p.Reference, &p.PaidAt, &p.RecordedBy, &p.Notes); err != nil {
			return nil, err
		}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountInvoicesForPO returns how many invoices reference the PO.
func (r *Repository) CountInvoicesForPO(ctx context.Context, poID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE po_id = $1`, poID).Scan(&n)
	return n, err
}

// ListOverdue returns unpaid invoices past their due date at asOf.
func (r *Repository) ListOverdue(ctx context.Context, asOf time.Time) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices
		WHERE due_date < $1 AND status IN ('pending', 'approved') ORDER BY due_date`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) CreateInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO invoices
		(number, po_id, vendor_id, created_by, invoice_date, due_date, subtotal, tax_amount, total_amount, paid_amount, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, NULLIF($11, ''), NOW(), NOW()) RETURNING id`,
		inv.Number, inv.POID, inv.VendorID, inv.CreatedBy, inv.InvoiceDate, inv.DueDate,
		inv.Subtotal.String(), inv.TaxAmount.String(), inv.TotalAmount.String(), inv.Status, inv.Notes).Scan(&id)
	return id, err
}

func (t *txRepo) GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id)
	return scanInvoice(row)
}

func (t *txRepo) UpdateInvoiceStatus(ctx context.Context, id int64, from []InvoiceStatus, to InvoiceStatus) (bool, error) {
	states := make([]string, len(from))
	for i, st := range from {
		states[i] = string(st)
	}
	tag, err := t.tx.Exec(ctx, `UPDATE invoices SET status = $3, updated_at = NOW() WHERE id = $1 AND status = ANY($2)`, id, states, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *txRepo) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO payments (invoice_id, amount, method, reference, paid_at, recorded_by, notes)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, '')) RETURNING id`,
		p.InvoiceID, p.Amount.String(), p.Method, p.Reference, p.PaidAt, p.RecordedBy, p.Notes).Scan(&id)
	return id, err
}

func (t *txRepo) ApplyPayment(ctx context.Context, invoiceID int64, paid decimal.Decimal, status InvoiceStatus) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE invoices SET paid_amount = $2, status = $3, updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'approved')`, invoiceID, paid.String(), status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *txRepo) SetInvoiceFile(ctx context.Context, id int64, path string) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE invoices SET file_path = $2, updated_at = NOW() WHERE id = $1`, id, path)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
