package billing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/procuredesk/procuredesk/internal/shared"
)

type memoryBillingRepo struct {
	invoices map[int64]Invoice
	payments map[int64][]Payment
	nextID   int64
}

type memoryBillingTx struct {
	repo *memoryBillingRepo
}

func newMemoryBillingRepo() *memoryBillingRepo {
	return &memoryBillingRepo{
		invoices: make(map[int64]Invoice),
		payments: make(map[int64][]Payment),
	}
}

func (r *memoryBillingRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *memoryBillingRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryBillingTx{repo: r})
}

func (r *memoryBillingRepo) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return Invoice{}, shared.ErrNotFound
	}
	return inv, nil
}

func (r *memoryBillingRepo) ListInvoices(ctx context.Context, f InvoiceFilters, limit, offset int) ([]Invoice, int, error) {
	out := []Invoice{}
	for _, inv := range r.invoices {
		if f.Status != "" && inv.Status != f.Status {
			continue
		}
		if f.VendorID != 0 && inv.VendorID != f.VendorID {
			continue
		}
		if f.POID != 0 && inv.POID != f.POID {
			continue
		}
		out = append(out, inv)
	}
	return out, len(out), nil
}

func (r *memoryBillingRepo) ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	return append([]Payment(nil), r.payments[invoiceID]...), nil
}

func (r *memoryBillingRepo) CountInvoicesForPO(ctx context.Context, poID int64) (int, error) {
	n := 0
	for _, inv := range r.invoices {
		if inv.POID == poID {
			n++
		}
	}
	return n, nil
}

func (r *memoryBillingRepo) ListOverdue(ctx context.Context, asOf time.Time) ([]Invoice, error) {
	out := []Invoice{}
	for _, inv := range r.invoices {
		if inv.Overdue(asOf) {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (t *memoryBillingTx) CreateInvoice(ctx context.Context, inv Invoice) (int64, error) {
	inv.ID = t.repo.id()
	inv.PaidAmount = decimal.Zero
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	t.repo.invoices[inv.ID] = inv
	return inv.ID, nil
}

func (t *memoryBillingTx) GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error) {
	return t.repo.GetInvoice(ctx, id)
}

func (t *memoryBillingTx) UpdateInvoiceStatus(ctx context.Context, id int64, from []InvoiceStatus, to InvoiceStatus) (bool, error) {
	inv, ok := t.repo.invoices[id]
	if !ok {
		return false, nil
	}
	for _, st := range from {
		if inv.Status == st {
			inv.Status = to
			t.repo.invoices[id] = inv
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryBillingTx) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	p.ID = t.repo.id()
	t.repo.payments[p.InvoiceID] = append(t.repo.payments[p.InvoiceID], p)
	return p.ID, nil
}

func (t *memoryBillingTx) ApplyPayment(ctx context.Context, invoiceID int64, paid decimal.Decimal, status InvoiceStatus) (bool, error) {
	inv, ok := t.repo.invoices[invoiceID]
	if !ok || (inv.Status != InvoiceStatusPending && inv.Status != InvoiceStatusApproved) {
		return false, nil
	}
	inv.PaidAmount = paid
	inv.Status = status
	t.repo.invoices[invoiceID] = inv
	return true, nil
}

func (t *memoryBillingTx) SetInvoiceFile(ctx context.Context, id int64, path string) (bool, error) {
	inv, ok := t.repo.invoices[id]
	if !ok {
		return false, nil
	}
	inv.FilePath = path
	t.repo.invoices[id] = inv
	return true, nil
}

type memoryOrderDirectory struct {
	orders map[int64]OrderRef
}

func (d *memoryOrderDirectory) Order(ctx context.Context, id int64) (OrderRef, error) {
	po, ok := d.orders[id]
	if !ok {
		return OrderRef{}, shared.ErrNotFound
	}
	return po, nil
}

type fakeGateway struct {
	goodSignature string
	orders        []string
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (GatewayOrder, error) {
	id := fmt.Sprintf("order_%d", len(g.orders)+1)
	g.orders = append(g.orders, id)
	return GatewayOrder{ID: id, Amount: amount.Mul(decimal.NewFromInt(100)).IntPart(), Currency: "INR"}, nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return signature == g.goodSignature
}

var (
	admin   = shared.Identity{UserID: 1, Role: shared.RoleAdmin}
	vendorA = shared.Identity{UserID: 20, Role: shared.RoleVendor, VendorID: 10}
	vendorB = shared.Identity{UserID: 21, Role: shared.RoleVendor, VendorID: 11}
)

func newTestService(repo *memoryBillingRepo, gateway Gateway, policy Policy) *Service {
	orders := &memoryOrderDirectory{orders: map[int64]OrderRef{
		100: {
			ID: 100, Number: "PO-100", VendorID: 10,
			Subtotal:    decimal.RequireFromString("100000"),
			TaxAmount:   decimal.RequireFromString("18000"),
			TotalAmount: decimal.RequireFromString("118500"),
			Delivered:   true,
		},
		101: {
			ID: 101, Number: "PO-101", VendorID: 11,
			Subtotal:    decimal.RequireFromString("500"),
			TaxAmount:   decimal.Zero,
			TotalAmount: decimal.RequireFromString("500"),
			Delivered:   false,
		},
	}}
	return NewService(repo, orders, gateway, nil, nil, nil, policy)
}

func mustInvoice(t *testing.T, svc *Service, ident shared.Identity, poID int64) Invoice {
	t.Helper()
	inv, err := svc.CreateInvoice(context.Background(), ident, CreateInvoiceInput{
		POID:    poID,
		DueDate: time.Now().AddDate(0, 1, 0),
	})
	require.NoError(t, err)
	return inv
}

func TestInvoiceSnapshotsPOAmounts(t *testing.T) {
	repo := newMemoryBillingRepo()
	svc := newTestService(repo, nil, Policy{})

	inv := mustInvoice(t, svc, admin, 100)
	require.Equal(t, InvoiceStatusPending, inv.Status)
	require.Equal(t, "118500.00", inv.TotalAmount.StringFixed(2))
	require.Equal(t, "0.00", inv.PaidAmount.StringFixed(2))
	require.Equal(t, int64(10), inv.VendorID)
}

func TestInvoiceDueDateValidation(t *testing.T) {
	repo := newMemoryBillingRepo()
	svc := newTestService(repo, nil, Policy{})

	_, err := svc.CreateInvoice(context.Background(), admin, CreateInvoiceInput{
		POID:    100,
		DueDate: time.Now().AddDate(0, 0, -5),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestInvoiceDeliveredPolicy(t *testing.T) {
	repo := newMemoryBillingRepo()
	svc := newTestService(repo, nil, Policy{RequireDeliveredPO: true})

	_, err := svc.CreateInvoice(context.Background(), vendorB, CreateInvoiceInput{
		POID:    101,
		DueDate: time.Now().AddDate(0, 1, 0),
	})
	require.ErrorIs(t, err, shared.ErrInvalidState)

	inv := mustInvoice(t, svc, vendorA, 100)
	require.Equal(t, InvoiceStatusPending, inv.Status)
}

func TestVendorCannotInvoiceForeignPO(t *testing.T) {
	repo := newMemoryBillingRepo()
	svc := newTestService(repo, nil, Policy{})

	_, err := svc.CreateInvoice(context.Background(), vendorB, CreateInvoiceInput{
		POID:    100,
		DueDate: time.Now().AddDate(0, 1, 0),
	})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestApproveTransitions(t *testing.T) {
	repo := newMemoryBillingRepo()
	svc := newTestService(repo, nil, Policy{})
	ctx := context.Background()

	inv := mustInvoice(t, svc, admin, 100)

	inv, err := svc.ApproveInvoice(ctx, admin, inv.ID)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusApproved, inv.Status)

	// Second approve is an invalid state, not a silent no-op.
	_, err = svc.ApproveInvoice(ctx, admin, inv.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	inv, err = svc.CancelInvoice(ctx, admin, inv.ID)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusCancelled, inv.Status)

	_, err = svc.CancelInvoice(ctx, admin, inv.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestPaymentLedger(t *testing.T) {
	repo := newMemoryBillingRepo()
	svc := newTestService(repo, nil, Policy{})
	ctx := context.Background()

	inv := mustInvoice(t, svc, admin, 100)

	_, cur, err := svc.RecordPayment(ctx, admin, inv.ID, PaymentInput{
		Amount: decimal.RequireFromString("50000"),
		Method: MethodBankTransfer,
	})
	require.NoError(t, err)
	require.Equal(t, "50000.00", cur.PaidAmount.StringFixed(2))
	require.Equal(t, InvoiceStatusPending, cur.Status)

	// Overdraw blocked: 50000 paid + 70000 > 118500.
	_, _, err = svc.RecordPayment(ctx, admin, inv.ID, PaymentInput{
		Amount: decimal.RequireFromString("70000"),
		Method: MethodCheck,
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, cur, err = svc.RecordPayment(ctx, admin, inv.ID, PaymentInput{
		Amount: decimal.RequireFromString("68500"),
		Method: MethodCheck,
	})
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusPaid, cur.Status)
	require.Equal(t, "118500.00", cur.PaidAmount.StringFixed(2))

	// Ledger sums to paid_amount.
	payments, err := svc.ListPayments(ctx, admin, inv.ID)
	require.NoError(t, err)
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.Amount)
	}
	require.True(t, sum.Equal(cur.PaidAmount))

	// Paid invoices accept no further payments.
	_, _, err = svc.RecordPayment(ctx, admin, inv.ID, PaymentInput{
		Amount: decimal.NewFromInt(1),
		Method: MethodCash,
	})
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestPaymentValidation(t *testing.T) {
	repo := newMemoryBillingRepo()
	svc := newTestService(repo, nil, Policy{})
	ctx := context.Background()

	inv := mustInvoice(t, svc, admin, 100)

	_, _, err := svc.RecordPayment(ctx, admin, inv.ID, PaymentInput{Amount: decimal.Zero, Method: MethodCash})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, _, err = svc.RecordPayment(ctx, admin, inv.ID, PaymentInput{Amount: decimal.NewFromInt(10), Method: "wire"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, _, err = svc.RecordPayment(ctx, admin, inv.ID, PaymentInput{Amount: decimal.NewFromInt(10), Method: MethodRazorpay})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, _, err = svc.RecordPayment(ctx, vendorA, inv.ID, PaymentInput{Amount: decimal.NewFromInt(10), Method: MethodCash})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestOverpayTolerance(t *testing.T) {
	repo := newMemoryBillingRepo()
	svc := newTestService(repo, nil, Policy{OverpayTolerance: decimal.NewFromInt(1)})
	ctx := context.Background()

	inv := mustInvoice(t, svc, admin, 100)

	_, cur, err := svc.RecordPayment(ctx, admin, inv.ID, PaymentInput{
		Amount: decimal.RequireFromString("118500.50"),
		Method: MethodBankTransfer,
	})
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusPaid, cur.Status)

	inv2 := mustInvoice(t, svc, admin, 100)
	_, _, err = svc.RecordPayment(ctx, admin, inv2.ID, PaymentInput{
		Amount: decimal.RequireFromString("118502"),
		Method: MethodBankTransfer,
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreatePaymentOrder(t *testing.T) {
	repo := newMemoryBillingRepo()
	gateway := &fakeGateway{goodSignature: "good"}
	svc := newTestService(repo, gateway, Policy{})
	ctx := context.Background()

	inv := mustInvoice(t, svc, vendorA, 100)

	order, err := svc.CreatePaymentOrder(ctx, vendorA, inv.ID)
	require.NoError(t, err)
	require.Equal(t, int64(11850000), order.Amount)
	require.Equal(t, "INR", order.Currency)

	// Foreign vendor cannot open an order.
	_, err = svc.CreatePaymentOrder(ctx, vendorB, inv.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestVerifyPayment(t *testing.T) {
	repo := newMemoryBillingRepo()
	gateway := &fakeGateway{goodSignature: "good"}
	svc := newTestService(repo, gateway, Policy{})
	ctx := context.Background()

	inv := mustInvoice(t, svc, vendorA, 100)

	_, _, err := svc.VerifyAndRecordPayment(ctx, vendorA, inv.ID, VerifyPaymentInput{
		OrderID: "order_1", PaymentID: "pay_1", Signature: "tampered",
	})
	require.ErrorIs(t, err, shared.ErrSecurity)

	// Nothing recorded on a bad signature.
	payments, err := svc.ListPayments(ctx, vendorA, inv.ID)
	require.NoError(t, err)
	require.Empty(t, payments)

	p, cur, err := svc.VerifyAndRecordPayment(ctx, vendorA, inv.ID, VerifyPaymentInput{
		OrderID: "order_1", PaymentID: "pay_1", Signature: "good",
	})
	require.NoError(t, err)
	require.Equal(t, MethodRazorpay, p.Method)
	require.Equal(t, "pay_1", p.Reference)
	require.Equal(t, InvoiceStatusPaid, cur.Status)
	require.Equal(t, "118500.00", cur.PaidAmount.StringFixed(2))
}

func TestVendorInvoiceScoping(t *testing.T) {
	repo := newMemoryBillingRepo()
	svc := newTestService(repo, nil, Policy{})
	ctx := context.Background()

	invA := mustInvoice(t, svc, vendorA, 100)
	_ = mustInvoice(t, svc, vendorB, 101)

	_, err := svc.GetInvoice(ctx, vendorB, invA.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)

	mine, total, err := svc.ListInvoices(ctx, vendorA, InvoiceFilters{}, 50, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, invA.ID, mine[0].ID)
}
