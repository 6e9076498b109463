package procurement

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/procuredesk/procuredesk/internal/platform/db"
	"github.com/procuredesk/procuredesk/internal/shared"
)

// TxRepository is the write surface available inside a transaction. Guarded
// updates return false when the row was not in the expected state, which the
// service maps to Conflict.
type TxRepository interface {
	CreateRequest(ctx context.Context, pr PurchaseRequest) (int64, error)
	UpdateRequestFields(ctx context.Context, pr PurchaseRequest) (bool, error)
	UpdateRequestStatus(ctx context.Context, id int64, from, to RequestStatus, reviewedBy int64, reason string) (bool, error)
	DeleteRequest(ctx context.Context, id int64) (bool, error)

	CreateRFQ(ctx context.Context, rfq RFQ) (int64, error)
	AddRFQVendor(ctx context.Context, rfqID, vendorID int64) error
	UpdateRFQStatus(ctx context.Context, id int64, from []RFQStatus, to RFQStatus) (bool, error)

	CreateQuotation(ctx context.Context, q Quotation) (int64, error)
	UpdateQuotationStatus(ctx context.Context, id int64, from []QuotationStatus, to QuotationStatus, reviewedBy int64, notes string) (bool, error)
	RejectSiblingQuotations(ctx context.Context, rfqID, exceptID int64, reason string, reviewedBy int64) ([]Quotation, error)

	CreatePO(ctx context.Context, po PurchaseOrder) (int64, error)
	InsertPOItem(ctx context.Context, item POItem) error
	UpdatePOFields(ctx context.Context, po PurchaseOrder, expected POStatus) (bool, error)
	UpdatePODeliveryStatus(ctx context.Context, id int64, from, to POStatus, delayReason string, actorID int64) (bool, error)
	DeletePO(ctx context.Context, id int64, allowed []POStatus) (bool, error)

	CreateReceipt(ctx context.Context, gr GoodsReceipt) (int64, error)
}

// Repository implements RepositoryPort on a pgx pool.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Repository backed by pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a serializable transaction and maps driver errors to
// the shared taxonomy.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const requestColumns = `id, number, requester_id, product_id, item_name, quantity, department, urgency,
	COALESCE(justification, ''), status, COALESCE(rejection_reason, ''), reviewed_by, reviewed_at, created_at, updated_at`

func scanRequest(row pgx.Row) (PurchaseRequest, error) {
	var pr PurchaseRequest
	err := row.Scan(&pr.ID, &pr.Number, &pr.RequesterID, &pr.ProductID, &pr.ItemName, &pr.Quantity,
		&pr.Department, &pr.Urgency, &pr.Justification, &pr.Status, &pr.RejectionReason,
		&pr.ReviewedBy, &pr.ReviewedAt, &pr.CreatedAt, &pr.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseRequest{}, shared.ErrNotFound
	}
	return pr, err
}

// GetRequest loads one purchase request.
func (r *Repository) GetRequest(ctx context.Context, id int64) (PurchaseRequest, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM purchase_requests WHERE id = $1`, id)
	return scanRequest(row)
}

// ListRequests returns a filtered page of purchase requests plus the total
// count for the same filters.
func (r *Repository) ListRequests(ctx context.Context, f RequestFilters, limit, offset int) ([]PurchaseRequest, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	if f.RequesterID != 0 {
		args = append(args, f.RequesterID)
		where = append(where, "requester_id = $"+strconv.Itoa(len(args)))
	}
	if f.Department != "" {
		args = append(args, f.Department)
		where = append(where, "department = $"+strconv.Itoa(len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := strconv.Itoa(len(args))
		where = append(where, "(item_name ILIKE $"+n+" OR number ILIKE $"+n+")")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_requests WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	query := `SELECT ` + requestColumns + ` FROM purchase_requests WHERE ` + cond +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]PurchaseRequest, 0, limit)
	for rows.Next() {
		pr, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, pr)
	}
	return out, total, rows.Err()
}

// GetRFQ loads one RFQ together with its invited vendor ids.
func (r *Repository) GetRFQ(ctx context.Context, id int64) (RFQ, error) {
	return getRFQ(ctx, r.pool, id)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getRFQ(ctx context.Context, q querier, id int64) (RFQ, error) {
	var rfq RFQ
	err := q.QueryRow(ctx, `SELECT id, number, request_id, sent_by, sent_at, response_deadline, status, COALESCE(admin_notes, '')
		FROM rfqs WHERE id = $1`, id).
		Scan(&rfq.ID, &rfq.Number, &rfq.RequestID, &rfq.SentBy, &rfq.SentAt, &rfq.ResponseDeadline, &rfq.Status, &rfq.AdminNotes)
	if errors.Is(err, pgx.ErrNoRows) {
		return RFQ{}, shared.ErrNotFound
	}
	if err != nil {
		return RFQ{}, err
	}
	rows, err := q.Query(ctx, `SELECT vendor_id FROM rfq_vendors WHERE rfq_id = $1 ORDER BY vendor_id`, id)
	if err != nil {
		return RFQ{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var vendorID int64
		if err := rows.Scan(&vendorID); err != nil {
			return RFQ{}, err
		}
		rfq.VendorIDs = append(rfq.VendorIDs, vendorID)
	}
	return rfq, rows.Err()
}

// ListRFQs returns a filtered page of RFQs. Vendor filtering joins the
// invitation table.
func (r *Repository) ListRFQs(ctx context.Context, f RFQFilters, limit, offset int) ([]RFQ, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, "r.status = $"+strconv.Itoa(len(args)))
	}
	if f.RequestID != 0 {
		args = append(args, f.RequestID)
		where = append(where, "r.request_id = $"+strconv.Itoa(len(args)))
	}
	if f.VendorID != 0 {
		args = append(args, f.VendorID)
		where = append(where, "EXISTS (SELECT 1 FROM rfq_vendors rv WHERE rv.rfq_id = r.id AND rv.vendor_id = $"+strconv.Itoa(len(args))+")")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rfqs r WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	query := `SELECT r.id FROM rfqs r WHERE ` + cond +
		` ORDER BY r.sent_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	out := make([]RFQ, 0, len(ids))
	for _, id := range ids {
		rfq, err := getRFQ(ctx, r.pool, id)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rfq)
	}
	return out, total, nil
}

const quotationColumns = `id, number, rfq_id, vendor_id, unit_price::text, quantity, subtotal::text, tax_rate::text,
	tax_amount::text, shipping_cost::text, total_amount::text, estimated_delivery_days, valid_until,
	COALESCE(payment_terms, ''), COALESCE(warranty_terms, ''), COALESCE(additional_notes, ''),
	status, COALESCE(review_notes, ''), reviewed_by, reviewed_at, submitted_at, created_at`

func scanQuotation(row pgx.Row) (Quotation, error) {
	var q Quotation
	var unitPrice, subtotal, taxRate, taxAmount, shipping, total string
	err := row.Scan(&q.ID, &q.Number, &q.RFQID, &q.VendorID, &unitPrice, &q.Quantity, &subtotal, &taxRate,
		&taxAmount, &shipping, &total, &q.EstimatedDeliveryDays, &q.ValidUntil,
		&q.PaymentTerms, &q.WarrantyTerms, &q.AdditionalNotes,
		&q.Status, &q.ReviewNotes, &q.ReviewedBy, &q.ReviewedAt, &q.SubmittedAt, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Quotation{}, shared.ErrNotFound
	}
	if err != nil {
		return Quotation{}, err
	}
	for _, pair := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&q.UnitPrice, unitPrice}, {&q.Subtotal, subtotal}, {&q.TaxRate, taxRate},
		{&q.TaxAmount, taxAmount}, {&q.ShippingCost, shipping}, {&q.TotalAmount, total},
	} {
		d, err := decimal.NewFromString(pair.src)
		if err != nil {
			return Quotation{}, fmt.Errorf("parse amount %q: %w", pair.src, err)
		}
		*pair.dst = d
	}
	return q, nil
}

// GetQuotation loads one quotation.
func (r *Repository) GetQuotation(ctx context.Context, id int64) (Quotation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE id = $1`, id)
	return scanQuotation(row)
}

// ListQuotationsByRFQ returns all quotations on an RFQ, newest first.
func (r *Repository) ListQuotationsByRFQ(ctx context.Context, rfqID int64) ([]Quotation, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE rfq_id = $1 ORDER BY created_at DESC`, rfqID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Quotation{}
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

const poColumns = `id, number, vendor_id, request_id, quotation_id, created_by, assigned_to, order_date,
	expected_delivery_date, delivery_deadline, status, subtotal::text, tax_amount::text, shipping_cost::text,
	total_amount::text, total_quantity, COALESCE(tracking_number, ''), COALESCE(delay_reason, ''),
	COALESCE(notes, ''), created_at, updated_at`

func scanPO(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	var subtotal, taxAmount, shipping, total string
	err := row.Scan(&po.ID, &po.Number, &po.VendorID, &po.RequestID, &po.QuotationID, &po.CreatedBy,
		&po.AssignedTo, &po.OrderDate, &po.ExpectedDeliveryDate, &po.DeliveryDeadline, &po.Status,
		&subtotal, &taxAmount, &shipping, &total, &po.TotalQuantity,
		&po.TrackingNumber, &po.DelayReason, &po.Notes, &po.CreatedAt, &po.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseOrder{}, shared.ErrNotFound
	}
	if err != nil {
		return PurchaseOrder{}, err
	}
	for _, pair := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&po.Subtotal, subtotal}, {&po.TaxAmount, taxAmount}, {&po.ShippingCost, shipping}, {&po.TotalAmount, total},
	} {
		d, err := decimal.NewFromString(pair.src)
		if err != nil {
			return PurchaseOrder{}, fmt.Errorf("parse amount %q: %w", pair.src, err)
		}
		*pair.dst = d
	}
	return po, nil
}

// GetPO loads a purchase order with its line items.
func (r *Repository) GetPO(ctx context.Context, id int64) (PurchaseOrder, []POItem, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id = $1`, id)
	po, err := scanPO(row)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, po_id, product_id, product_name, quantity, unit_price::text, line_total::text, received_quantity
		FROM po_items WHERE po_id = $1 ORDER BY id`, id)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	defer rows.Close()
	items := []POItem{}
	for rows.Next() {
		var item POItem
		var unitPrice, lineTotal string
		if err := rows.Scan(&item.ID, &item.POID, &item.ProductID, &item.ProductName, &item.Quantity, &unitPrice, &lineTotal, &item.ReceivedQuantity); err != nil {
			return PurchaseOrder{}, nil, err
		}
		if item.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return PurchaseOrder{}, nil, err
		}
		if item.LineTotal, err = decimal.NewFromString(lineTotal); err != nil {
			return PurchaseOrder{}, nil, err
		}
		items = append(items, item)
	}
	return po, items, rows.Err()
}

// ListPOs returns a filtered page of purchase orders.
func (r *Repository) ListPOs(ctx context.Context, f POFilters, limit, offset int) ([]PurchaseOrder, int, error) {
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
	if f.AssignedTo != 0 {
		args = append(args, f.AssignedTo)
		where = append(where, "assigned_to = $"+strconv.Itoa(len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where = append(where, "number ILIKE $"+strconv.Itoa(len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	query := `SELECT ` + poColumns + ` FROM purchase_orders WHERE ` + cond +
		` ORDER BY order_date DESC, id DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]PurchaseOrder, 0, limit)
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, po)
	}
	return out, total, rows.Err()
}

// ListReceipts returns the receipt log for a PO, oldest first.
func (r *Repository) ListReceipts(ctx context.Context, poID int64) ([]GoodsReceipt, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, po_id, delivered_quantity, condition, COALESCE(notes, ''), received_by, received_at
		FROM goods_receipts WHERE po_id = $1 ORDER BY received_at, id`, poID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []GoodsReceipt{}
	for rows.Next() {
		var gr GoodsReceipt
		if err := rows.Scan(&gr.ID, &gr.POID, &gr.DeliveredQuantity, &gr.Condition, &gr.Notes, &gr.ReceivedBy, &gr.ReceivedAt); err != nil {
			return nil, err
		}
		out = append(out, gr)
	}
	return out, rows.Err()
}

// CountReceipts returns the number of receipts recorded for a PO.
func (r *Repository) CountReceipts(ctx context.Context, poID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM goods_receipts WHERE po_id = $1`, poID).Scan(&n)
	return n, err
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) CreateRequest(ctx context.Context, pr PurchaseRequest) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO purchase_requests
		(number, requester_id, product_id, item_name, quantity, department, urgency, justification, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW()) RETURNING id`,
		pr.Number, pr.RequesterID, pr.ProductID, pr.ItemName, pr.Quantity, pr.Department, pr.Urgency, pr.Justification, pr.Status).Scan(&id)
	return id, err
}

func (t *txRepo) UpdateRequestFields(ctx context.Context, pr PurchaseRequest) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_requests SET product_id = $2, item_name = $3, quantity = $4,
		department = $5, urgency = $6, justification = $7, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`,
		pr.ID, pr.ProductID, pr.ItemName, pr.Quantity, pr.Department, pr.Urgency, pr.Justification)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *txRepo) UpdateRequestStatus(ctx context.Context, id int64, from, to RequestStatus, reviewedBy int64, reason string) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_requests SET status = $3, reviewed_by = $4, reviewed_at = NOW(),
		rejection_reason = NULLIF($5, ''), updated_at = NOW()
		WHERE id = $1 AND status = $2`, id, from, to, reviewedBy, reason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *txRepo) DeleteRequest(ctx context.Context, id int64) (bool, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM purchase_requests WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *txRepo) CreateRFQ(ctx context.Context, rfq RFQ) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO rfqs (number, request_id, sent_by, sent_at, response_deadline, status, admin_notes)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')) RETURNING id`,
		rfq.Number, rfq.RequestID, rfq.SentBy, rfq.SentAt, rfq.ResponseDeadline, rfq.Status, rfq.AdminNotes).Scan(&id)
	return id, err
}

func (t *txRepo) AddRFQVendor(ctx context.Context, rfqID, vendorID int64) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO rfq_vendors (rfq_id, vendor_id) VALUES ($1, $2)`, rfqID, vendorID)
	return err
}

func (t *txRepo) UpdateRFQStatus(ctx context.Context, id int64, from []RFQStatus, to RFQStatus) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE rfqs SET status = $3 WHERE id = $1 AND status = ANY($2)`, id, statusStrings(from), to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *txRepo) CreateQuotation(ctx context.Context, q Quotation) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO quotations
		(number, rfq_id, vendor_id, unit_price, quantity, subtotal, tax_rate, tax_amount, shipping_cost, total_amount,
		 estimated_delivery_days, valid_until, payment_terms, warranty_terms, additional_notes, status, submitted_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULLIF($13, ''), NULLIF($14, ''), NULLIF($15, ''), $16, $17, NOW())
		RETURNING id`,
		q.Number, q.RFQID, q.VendorID, q.UnitPrice.String(), q.Quantity, q.Subtotal.String(), q.TaxRate.String(),
		q.TaxAmount.String(), q.ShippingCost.String(), q.TotalAmount.String(),
		q.EstimatedDeliveryDays, q.ValidUntil, q.PaymentTerms, q.WarrantyTerms, q.AdditionalNotes, q.Status, q.SubmittedAt).Scan(&id)
	return id, err
}

func (t *txRepo) UpdateQuotationStatus(ctx context.Context, id int64, from []QuotationStatus, to QuotationStatus, reviewedBy int64, notes string) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE quotations SET status = $3, reviewed_by = $4, reviewed_at = NOW(), review_notes = NULLIF($5, '')
		WHERE id = $1 AND status = ANY($2)`, id, statusStrings(from), to, reviewedBy, notes)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *txRepo) RejectSiblingQuotations(ctx context.Context, rfqID, exceptID int64, reason string, reviewedBy int64) ([]Quotation, error) {
	rows, err := t.tx.Query(ctx, `UPDATE quotations SET status = 'rejected', reviewed_by = $3, reviewed_at = NOW(), review_notes = $4
		WHERE rfq_id = $1 AND id <> $2 AND status IN ('submitted', 'under_review')
		RETURNING id, number, vendor_id`, rfqID, exceptID, reviewedBy, reason)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Quotation{}
	for rows.Next() {
		var q Quotation
		if err := rows.Scan(&q.ID, &q.Number, &q.VendorID); err != nil {
			return nil, err
		}
		q.RFQID = rfqID
		q.Status = QuotationStatusRejected
		q.ReviewNotes = reason
		out = append(out, q)
	}
	return out, rows.Err()
}

func (t *txRepo) CreatePO(ctx context.Context, po PurchaseOrder) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO purchase_orders
		(number, vendor_id, request_id, quotation_id, created_by, assigned_to, order_date, expected_delivery_date,
		 delivery_deadline, status, subtotal, tax_amount, shipping_cost, total_amount, total_quantity, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NULLIF($16, ''), NOW(), NOW())
		RETURNING id`,
		po.Number, po.VendorID, po.RequestID, po.QuotationID, po.CreatedBy, po.AssignedTo, po.OrderDate,
		po.ExpectedDeliveryDate, po.DeliveryDeadline, po.Status, po.Subtotal.String(), po.TaxAmount.String(),
		po.ShippingCost.String(), po.TotalAmount.String(), po.TotalQuantity, po.Notes).Scan(&id)
	return id, err
}

func (t *txRepo) InsertPOItem(ctx context.Context, item POItem) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO po_items (po_id, product_id, product_name, quantity, unit_price, line_total, received_quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		item.POID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice.String(), item.LineTotal.String(), item.ReceivedQuantity)
	return err
}

func (t *txRepo) UpdatePOFields(ctx context.Context, po PurchaseOrder, expected POStatus) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET status = $3, assigned_to = $4, expected_delivery_date = $5,
		delivery_deadline = $6, tracking_number = NULLIF($7, ''), notes = NULLIF($8, ''), updated_at = NOW()
		WHERE id = $1 AND status = $2`,
		po.ID, expected, po.Status, po.AssignedTo, po.ExpectedDeliveryDate, po.DeliveryDeadline, po.TrackingNumber, po.Notes)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *txRepo) UpdatePODeliveryStatus(ctx context.Context, id int64, from, to POStatus, delayReason string, actorID int64) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET status = $3, delay_reason = NULLIF($4, ''), updated_at = NOW()
		WHERE id = $1 AND status = $2 AND status <> 'cancelled'`, id, from, to, delayReason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *txRepo) DeletePO(ctx context.Context, id int64, allowed []POStatus) (bool, error) {
	if _, err := t.tx.Exec(ctx, `DELETE FROM po_items WHERE po_id = $1`, id); err != nil {
		return false, err
	}
	tag, err := t.tx.Exec(ctx, `DELETE FROM purchase_orders WHERE id = $1 AND status = ANY($2)`, id, statusStrings(allowed))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *txRepo) CreateReceipt(ctx context.Context, gr GoodsReceipt) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO goods_receipts (po_id, delivered_quantity, condition, notes, received_by, received_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6) RETURNING id`,
		gr.POID, gr.DeliveredQuantity, gr.Condition, gr.Notes, gr.ReceivedBy, gr.ReceivedAt).Scan(&id)
	return id, err
}

func statusStrings[S ~string](in []S) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
