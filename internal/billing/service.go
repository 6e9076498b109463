package billing

import (
	"context"
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/procuredesk/procuredesk/internal/shared"
)

// OrderRef is the purchase order snapshot billing needs.
type OrderRef struct {
	ID          int64
	Number      string
	VendorID    int64
	Subtotal    decimal.Decimal
	TaxAmount   decimal.Decimal
	TotalAmount decimal.Decimal
	Delivered   bool
}

// OrderDirectory resolves purchase orders for invoicing.
type OrderDirectory interface {
	Order(ctx context.Context, id int64) (OrderRef, error)
}

// Gateway is the online payment adapter.
type Gateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (GatewayOrder, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

// GatewayOrder is a created gateway order.
type GatewayOrder struct {
	ID       string
	Amount   int64
	Currency string
}

// FileStore persists uploaded invoice documents.
type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, string, error)
}

// PDFRenderer converts invoice HTML into a PDF document.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, filename string, html []byte) ([]byte, error)
}

// AuditPort records billing transitions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Policy carries the configurable billing rules.
type Policy struct {
	// RequireDeliveredPO blocks invoice creation until the PO is delivered.
	RequireDeliveredPO bool
	// OverpayTolerance is the maximum amount a payment may exceed the
	// outstanding balance by.
	OverpayTolerance decimal.Decimal
}

// Service orchestrates invoices and the payment ledger.
type Service struct {
	repo     RepositoryPort
	orders   OrderDirectory
	gateway  Gateway
	files    FileStore
	pdf      PDFRenderer
	audit    AuditPort
	policy   Policy
	now      func() time.Time
	numberFn func(prefix string) string
}

// NewService constructs the billing service.
func NewService(repo RepositoryPort, orders OrderDirectory, gateway Gateway, files FileStore, pdf PDFRenderer, audit AuditPort, policy Policy) *Service {
	return &Service{
		repo: repo, orders: orders, gateway: gateway, files: files, pdf: pdf,
		audit: audit, policy: policy, now: time.Now,
		numberFn: func(prefix string) string { return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano()) },
	}
}

// CreateInvoiceInput describes a new invoice against a PO.
type CreateInvoiceInput struct {
	POID        int64
	InvoiceDate *time.Time
	DueDate     time.Time
	Notes       string
}

// CreateInvoice snapshots the PO amounts into a new pending invoice. Admins
// may invoice any PO; vendors only their own.
func (s *Service) CreateInvoice(ctx context.Context, ident shared.Identity, input CreateInvoiceInput) (Invoice, error) {
	if ident.Role != shared.RoleAdmin && ident.Role != shared.RoleVendor {
		return Invoice{}, shared.ErrForbidden
	}
	po, err := s.orders.Order(ctx, input.POID)
	if err != nil {
		return Invoice{}, err
	}
	if ident.IsVendor() && po.VendorID != ident.VendorID {
		return Invoice{}, shared.ErrForbidden
	}
	if s.policy.RequireDeliveredPO && !po.Delivered {
		return Invoice{}, fmt.Errorf("%w: purchase order is not delivered yet", shared.ErrInvalidState)
	}
	invoiceDate := s.now()
	if input.InvoiceDate != nil {
		invoiceDate = *input.InvoiceDate
	}
	if input.DueDate.Before(invoiceDate.Truncate(24 * time.Hour)) {
		return Invoice{}, fmt.Errorf("%w: due date must not precede the invoice date", shared.ErrValidation)
	}
	inv := Invoice{
		Number:      s.numberFn("INV"),
		POID:        po.ID,
		VendorID:    po.VendorID,
		CreatedBy:   ident.UserID,
		InvoiceDate: invoiceDate,
		DueDate:     input.DueDate,
		Subtotal:    po.Subtotal,
		TaxAmount:   po.TaxAmount,
		TotalAmount: po.TotalAmount,
		PaidAmount:  decimal.Zero,
		Status:      InvoiceStatusPending,
		Notes:       input.Notes,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateInvoice(ctx, inv)
		if err != nil {
			return err
		}
		inv.ID = id
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	s.recordAudit(ctx, ident, "INV_CREATE", inv.ID, map[string]any{"number": inv.Number, "po": po.Number, "total": inv.TotalAmount.String()})
	return inv, nil
}

// GetInvoice returns an invoice visible to the caller.
func (s *Service) GetInvoice(ctx context.Context, ident shared.Identity, id int64) (Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if ident.IsVendor() && inv.VendorID != ident.VendorID {
		return Invoice{}, shared.ErrForbidden
	}
	return inv, nil
}

// ListInvoices returns invoices scoped to the caller's role.
func (s *Service) ListInvoices(ctx context.Context, ident shared.Identity, f InvoiceFilters, limit, offset int) ([]Invoice, int, error) {
	if ident.IsVendor() {
		f.VendorID = ident.VendorID
	}
	return s.repo.ListInvoices(ctx, f, limit, offset)
}

// ApproveInvoice moves a pending invoice to approved. Admin only.
func (s *Service) ApproveInvoice(ctx context.Context, ident shared.Identity, id int64) (Invoice, error) {
	if !ident.IsAdmin() {
		return Invoice{}, shared.ErrForbidden
	}
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if inv.Status != InvoiceStatusPending {
		return Invoice{}, fmt.Errorf("%w: invoice is %s, expected pending", shared.ErrInvalidState, inv.Status)
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		updated, err := tx.UpdateInvoiceStatus(ctx, id, []InvoiceStatus{InvoiceStatusPending}, InvoiceStatusApproved)
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: invoice changed concurrently", shared.ErrConflict)
		}
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	inv.Status = InvoiceStatusApproved
	s.recordAudit(ctx, ident, "INV_APPROVE", inv.ID, map[string]any{"number": inv.Number})
	return inv, nil
}

// CancelInvoice cancels a pending or approved invoice. Paid invoices cannot be
// cancelled.
func (s *Service) CancelInvoice(ctx context.Context, ident shared.Identity, id int64) (Invoice, error) {
	if !ident.IsAdmin() {
		return Invoice{}, shared.ErrForbidden
	}
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if inv.Status != InvoiceStatusPending && inv.Status != InvoiceStatusApproved {
		return Invoice{}, fmt.Errorf("%w: invoice is %s", shared.ErrInvalidState, inv.Status)
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		updated, err := tx.UpdateInvoiceStatus(ctx, id, []InvoiceStatus{InvoiceStatusPending, InvoiceStatusApproved}, InvoiceStatusCancelled)
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: invoice changed concurrently", shared.ErrConflict)
		}
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	inv.Status = InvoiceStatusCancelled
	s.recordAudit(ctx, ident, "INV_CANCEL", inv.ID, map[string]any{"number": inv.Number})
	return inv, nil
}

// PaymentInput describes a manual ledger entry.
type PaymentInput struct {
	Amount    decimal.Decimal
	Method    PaymentMethod
	Reference string
	PaidAt    *time.Time
	Notes     string
}

// RecordPayment appends a payment to the invoice ledger and moves paid_amount
// under a row lock. The invoice flips to paid once paid_amount covers the
// total; payments beyond the tolerance are rejected.
func (s *Service) RecordPayment(ctx context.Context, ident shared.Identity, invoiceID int64, input PaymentInput) (Payment, Invoice, error) {
	if !ident.IsAdmin() {
		return Payment{}, Invoice{}, shared.ErrForbidden
	}
	if !input.Amount.IsPositive() {
		return Payment{}, Invoice{}, fmt.Errorf("%w: payment amount must be positive", shared.ErrValidation)
	}
	if !input.Method.Valid() {
		return Payment{}, Invoice{}, fmt.Errorf("%w: unknown payment method %q", shared.ErrValidation, input.Method)
	}
	if input.Method == MethodRazorpay && strings.TrimSpace(input.Reference) == "" {
		return Payment{}, Invoice{}, fmt.Errorf("%w: gateway reference required for razorpay payments", shared.ErrValidation)
	}
	paidAt := s.now()
	if input.PaidAt != nil {
		paidAt = *input.PaidAt
	}
	p := Payment{
		InvoiceID:  invoiceID,
		Amount:     input.Amount.Round(2),
		Method:     input.Method,
		Reference:  strings.TrimSpace(input.Reference),
		PaidAt:     paidAt,
		RecordedBy: ident.UserID,
		Notes:      input.Notes,
	}
	var inv Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		cur, err := tx.GetInvoiceForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if cur.Status != InvoiceStatusPending && cur.Status != InvoiceStatusApproved {
			return fmt.Errorf("%w: invoice is %s, payments closed", shared.ErrInvalidState, cur.Status)
		}
		newPaid := cur.PaidAmount.Add(p.Amount)
		if newPaid.Sub(cur.TotalAmount).GreaterThan(s.policy.OverpayTolerance) {
			return fmt.Errorf("%w: payment exceeds outstanding balance", shared.ErrValidation)
		}
		status := cur.Status
		if newPaid.GreaterThanOrEqual(cur.TotalAmount) {
			status = InvoiceStatusPaid
		}
		id, err := tx.InsertPayment(ctx, p)
		if err != nil {
			return err
		}
		p.ID = id
		updated, err := tx.ApplyPayment(ctx, invoiceID, newPaid, status)
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: invoice changed concurrently", shared.ErrConflict)
		}
		cur.PaidAmount = newPaid
		cur.Status = status
		inv = cur
		return nil
	})
	if err != nil {
		return Payment{}, Invoice{}, err
	}
	s.recordAudit(ctx, ident, "PAY_RECORD", invoiceID, map[string]any{
		"payment_id": p.ID, "amount": p.Amount.String(), "method": p.Method, "status": inv.Status,
	})
	return p, inv, nil
}

// ListPayments returns the ledger for an invoice, scoped to the caller.
func (s *Service) ListPayments(ctx context.Context, ident shared.Identity, invoiceID int64) ([]Payment, error) {
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if ident.IsVendor() && inv.VendorID != ident.VendorID {
		return nil, shared.ErrForbidden
	}
	return s.repo.ListPayments(ctx, invoiceID)
}

// CreatePaymentOrder opens a gateway order for the outstanding balance.
func (s *Service) CreatePaymentOrder(ctx context.Context, ident shared.Identity, invoiceID int64) (GatewayOrder, error) {
	if s.gateway == nil {
		return GatewayOrder{}, fmt.Errorf("%w: online payments are not configured", shared.ErrInvalidState)
	}
	inv, err := s.GetInvoice(ctx, ident, invoiceID)
	if err != nil {
		return GatewayOrder{}, err
	}
	if inv.Status != InvoiceStatusPending && inv.Status != InvoiceStatusApproved {
		return GatewayOrder{}, fmt.Errorf("%w: invoice is %s, payments closed", shared.ErrInvalidState, inv.Status)
	}
	outstanding := inv.Outstanding()
	if !outstanding.IsPositive() {
		return GatewayOrder{}, fmt.Errorf("%w: nothing outstanding on this invoice", shared.ErrInvalidState)
	}
	order, err := s.gateway.CreateOrder(ctx, outstanding, inv.Number)
	if err != nil {
		return GatewayOrder{}, err
	}
	s.recordAudit(ctx, ident, "PAY_ORDER", invoiceID, map[string]any{"gateway_order": order.ID, "amount": outstanding.String()})
	return order, nil
}

// VerifyPaymentInput carries the gateway confirmation.
type VerifyPaymentInput struct {
	OrderID   string
	PaymentID string
	Signature string
	Amount    decimal.Decimal
}

// VerifyAndRecordPayment checks the gateway signature and, on success, records
// the payment atomically. A bad signature is a security error and records
// nothing.
func (s *Service) VerifyAndRecordPayment(ctx context.Context, ident shared.Identity, invoiceID int64, input VerifyPaymentInput) (Payment, Invoice, error) {
	if s.gateway == nil {
		return Payment{}, Invoice{}, fmt.Errorf("%w: online payments are not configured", shared.ErrInvalidState)
	}
	inv, err := s.GetInvoice(ctx, ident, invoiceID)
	if err != nil {
		return Payment{}, Invoice{}, err
	}
	if input.OrderID == "" || input.PaymentID == "" || input.Signature == "" {
		return Payment{}, Invoice{}, fmt.Errorf("%w: order id, payment id and signature are required", shared.ErrValidation)
	}
	if !s.gateway.VerifySignature(input.OrderID, input.PaymentID, input.Signature) {
		s.recordAudit(ctx, ident, "PAY_SIG_FAIL", invoiceID, map[string]any{"gateway_order": input.OrderID})
		return Payment{}, Invoice{}, fmt.Errorf("%w: payment signature verification failed", shared.ErrSecurity)
	}
	amount := input.Amount
	if amount.IsZero() {
		amount = inv.Outstanding()
	}
	// The ledger write runs as admin regardless of who confirmed: the
	// signature, not the caller's role, authorises it.
	return s.recordVerifiedPayment(ctx, ident, invoiceID, amount, input.PaymentID)
}

func (s *Service) recordVerifiedPayment(ctx context.Context, ident shared.Identity, invoiceID int64, amount decimal.Decimal, reference string) (Payment, Invoice, error) {
	actor := ident
	actor.Role = shared.RoleAdmin
	p, inv, err := s.RecordPayment(ctx, actor, invoiceID, PaymentInput{
		Amount:    amount,
		Method:    MethodRazorpay,
		Reference: reference,
	})
	if err != nil {
		return Payment{}, Invoice{}, err
	}
	return p, inv, nil
}

// AttachInvoiceFile stores an uploaded document and links it to the invoice.
func (s *Service) AttachInvoiceFile(ctx context.Context, ident shared.Identity, invoiceID int64, filename string, r io.Reader) (Invoice, error) {
	if s.files == nil {
		return Invoice{}, fmt.Errorf("%w: file storage is not configured", shared.ErrInvalidState)
	}
	inv, err := s.GetInvoice(ctx, ident, invoiceID)
	if err != nil {
		return Invoice{}, err
	}
	if ident.IsVendor() && inv.VendorID != ident.VendorID {
		return Invoice{}, shared.ErrForbidden
	}
	path, err := s.files.Save(ctx, filename, r)
	if err != nil {
		return Invoice{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		updated, err := tx.SetInvoiceFile(ctx, invoiceID, path)
		if err != nil {
			return err
		}
		if !updated {
			return shared.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	inv.FilePath = path
	s.recordAudit(ctx, ident, "INV_FILE", invoiceID, map[string]any{"path": path})
	return inv, nil
}

// OpenInvoiceFile streams the stored invoice document.
func (s *Service) OpenInvoiceFile(ctx context.Context, ident shared.Identity, invoiceID int64) (io.ReadCloser, string, error) {
	if s.files == nil {
		return nil, "", fmt.Errorf("%w: file storage is not configured", shared.ErrInvalidState)
	}
	inv, err := s.GetInvoice(ctx, ident, invoiceID)
	if err != nil {
		return nil, "", err
	}
	if inv.FilePath == "" {
		return nil, "", fmt.Errorf("%w: no document attached to this invoice", shared.ErrNotFound)
	}
	return s.files.Open(ctx, inv.FilePath)
}

// RenderInvoicePDF renders the invoice as a PDF document.
func (s *Service) RenderInvoicePDF(ctx context.Context, ident shared.Identity, invoiceID int64) ([]byte, error) {
	if s.pdf == nil {
		return nil, fmt.Errorf("%w: PDF rendering is not configured", shared.ErrInvalidState)
	}
	inv, err := s.GetInvoice(ctx, ident, invoiceID)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	doc := invoiceHTML(inv, payments)
	return s.pdf.RenderHTML(ctx, inv.Number+".pdf", doc)
}

func invoiceHTML(inv Invoice, payments []Payment) []byte {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>")
	b.WriteString(html.EscapeString(inv.Number))
	b.WriteString("</title></head><body>")
	fmt.Fprintf(&b, "<h1>Invoice %s</h1>", html.EscapeString(inv.Number))
	fmt.Fprintf(&b, "<p>Invoice date: %s<br>Due date: %s<br>Status: %s</p>",
		inv.InvoiceDate.Format("2006-01-02"), inv.DueDate.Format("2006-01-02"), inv.Status)
	b.WriteString("<table border=\"1\" cellpadding=\"6\"><tr><th></th><th>Amount</th></tr>")
	fmt.Fprintf(&b, "<tr><td>Subtotal</td><td>%s</td></tr>", inv.Subtotal.StringFixed(2))
	fmt.Fprintf(&b, "<tr><td>Tax</td><td>%s</td></tr>", inv.TaxAmount.StringFixed(2))
	fmt.Fprintf(&b, "<tr><td>Total</td><td>%s</td></tr>", inv.TotalAmount.StringFixed(2))
	fmt.Fprintf(&b, "<tr><td>Paid</td><td>%s</td></tr>", inv.PaidAmount.StringFixed(2))
	fmt.Fprintf(&b, "<tr><td>Outstanding</td><td>%s</td></tr>", inv.Outstanding().StringFixed(2))
	b.WriteString("</table>")
	if len(payments) > 0 {
		b.WriteString("<h2>Payments</h2><table border=\"1\" cellpadding=\"6\"><tr><th>Date</th><th>Method</th><th>Reference</th><th>Amount</th></tr>")
		for _, p := range payments {
			fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
				p.PaidAt.Format("2006-01-02"), p.Method, html.EscapeString(p.Reference), p.Amount.StringFixed(2))
		}
		b.WriteString("</table>")
	}
	b.WriteString("</body></html>")
	return []byte(b.String())
}

func (s *Service) recordAudit(ctx context.Context, ident shared.Identity, action string, invoiceID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: ident.UserID, Action: action, Entity: "invoice", EntityID: fmt.Sprintf("%d", invoiceID), Meta: meta})
}
