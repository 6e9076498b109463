package procurement

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/procuredesk/procuredesk/internal/shared"
)

type memoryProcRepo struct {
	requests   map[int64]PurchaseRequest
	rfqs       map[int64]RFQ
	quotations map[int64]Quotation
	pos        map[int64]PurchaseOrder
	poItems    map[int64][]POItem
	receipts   map[int64][]GoodsReceipt
	nextID     int64
}

type memoryProcTx struct {
	repo *memoryProcRepo
}

func newMemoryProcRepo() *memoryProcRepo {
	return &memoryProcRepo{
		requests:   make(map[int64]PurchaseRequest),
		rfqs:       make(map[int64]RFQ),
		quotations: make(map[int64]Quotation),
		pos:        make(map[int64]PurchaseOrder),
		poItems:    make(map[int64][]POItem),
		receipts:   make(map[int64][]GoodsReceipt),
	}
}

func (r *memoryProcRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *memoryProcRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryProcTx{repo: r})
}

func (r *memoryProcRepo) GetRequest(ctx context.Context, id int64) (PurchaseRequest, error) {
	pr, ok := r.requests[id]
	if !ok {
		return PurchaseRequest{}, shared.ErrNotFound
	}
	return pr, nil
}

func (r *memoryProcRepo) ListRequests(ctx context.Context, f RequestFilters, limit, offset int) ([]PurchaseRequest, int, error) {
	out := []PurchaseRequest{}
	for _, pr := range r.requests {
		if f.Status != "" && pr.Status != f.Status {
			continue
		}
		if f.RequesterID != 0 && pr.RequesterID != f.RequesterID {
			continue
		}
		out = append(out, pr)
	}
	return out, len(out), nil
}

func (r *memoryProcRepo) GetRFQ(ctx context.Context, id int64) (RFQ, error) {
	rfq, ok := r.rfqs[id]
	if !ok {
		return RFQ{}, shared.ErrNotFound
	}
	return rfq, nil
}

func (r *memoryProcRepo) ListRFQs(ctx context.Context, f RFQFilters, limit, offset int) ([]RFQ, int, error) {
	out := []RFQ{}
	for _, rfq := range r.rfqs {
		if f.Status != "" && rfq.Status != f.Status {
			continue
		}
		if f.VendorID != 0 && !rfq.Invited(f.VendorID) {
			continue
		}
		out = append(out, rfq)
	}
	return out, len(out), nil
}

func (r *memoryProcRepo) GetQuotation(ctx context.Context, id int64) (Quotation, error) {
	q, ok := r.quotations[id]
	if !ok {
		return Quotation{}, shared.ErrNotFound
	}
	return q, nil
}

func (r *memoryProcRepo) ListQuotationsByRFQ(ctx context.Context, rfqID int64) ([]Quotation, error) {
	out := []Quotation{}
	for _, q := range r.quotations {
		if q.RFQID == rfqID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *memoryProcRepo) GetPO(ctx context.Context, id int64) (PurchaseOrder, []POItem, error) {
	po, ok := r.pos[id]
	if !ok {
		return PurchaseOrder{}, nil, shared.ErrNotFound
	}
	return po, append([]POItem(nil), r.poItems[id]...), nil
}

func (r *memoryProcRepo) ListPOs(ctx context.Context, f POFilters, limit, offset int) ([]PurchaseOrder, int, error) {
	out := []PurchaseOrder{}
	for _, po := range r.pos {
		if f.Status != "" && po.Status != f.Status {
			continue
		}
		if f.VendorID != 0 && po.VendorID != f.VendorID {
			continue
		}
		out = append(out, po)
	}
	return out, len(out), nil
}

func (r *memoryProcRepo) ListReceipts(ctx context.Context, poID int64) ([]GoodsReceipt, error) {
	return append([]GoodsReceipt(nil), r.receipts[poID]...), nil
}

func (r *memoryProcRepo) CountReceipts(ctx context.Context, poID int64) (int, error) {
	return len(r.receipts[poID]), nil
}

func (t *memoryProcTx) CreateRequest(ctx context.Context, pr PurchaseRequest) (int64, error) {
	pr.ID = t.repo.id()
	pr.CreatedAt = time.Now()
	pr.UpdatedAt = pr.CreatedAt
	t.repo.requests[pr.ID] = pr
	return pr.ID, nil
}

func (t *memoryProcTx) UpdateRequestFields(ctx context.Context, pr PurchaseRequest) (bool, error) {
	cur, ok := t.repo.requests[pr.ID]
	if !ok || cur.Status != RequestStatusPending {
		return false, nil
	}
	pr.Status = cur.Status
	t.repo.requests[pr.ID] = pr
	return true, nil
}

func (t *memoryProcTx) UpdateRequestStatus(ctx context.Context, id int64, from, to RequestStatus, reviewedBy int64, reason string) (bool, error) {
	pr, ok := t.repo.requests[id]
	if !ok || pr.Status != from {
		return false, nil
	}
	pr.Status = to
	pr.ReviewedBy = &reviewedBy
	now := time.Now()
	pr.ReviewedAt = &now
	pr.RejectionReason = reason
	t.repo.requests[id] = pr
	return true, nil
}

func (t *memoryProcTx) DeleteRequest(ctx context.Context, id int64) (bool, error) {
	pr, ok := t.repo.requests[id]
	if !ok || pr.Status != RequestStatusPending {
		return false, nil
	}
	delete(t.repo.requests, id)
	return true, nil
}

func (t *memoryProcTx) CreateRFQ(ctx context.Context, rfq RFQ) (int64, error) {
	rfq.ID = t.repo.id()
	rfq.VendorIDs = nil
	t.repo.rfqs[rfq.ID] = rfq
	return rfq.ID, nil
}

func (t *memoryProcTx) AddRFQVendor(ctx context.Context, rfqID, vendorID int64) error {
	rfq := t.repo.rfqs[rfqID]
	rfq.VendorIDs = append(rfq.VendorIDs, vendorID)
	t.repo.rfqs[rfqID] = rfq
	return nil
}

func (t *memoryProcTx) UpdateRFQStatus(ctx context.Context, id int64, from []RFQStatus, to RFQStatus) (bool, error) {
	rfq, ok := t.repo.rfqs[id]
	if !ok {
		return false, nil
	}
	for _, st := range from {
		if rfq.Status == st {
			rfq.Status = to
			t.repo.rfqs[id] = rfq
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryProcTx) CreateQuotation(ctx context.Context, q Quotation) (int64, error) {
	for _, existing := range t.repo.quotations {
		if existing.RFQID == q.RFQID && existing.VendorID == q.VendorID && existing.Status != QuotationStatusDraft {
			return 0, fmt.Errorf("%w: quotation already submitted for this RFQ", shared.ErrConflict)
		}
	}
	q.ID = t.repo.id()
	q.CreatedAt = time.Now()
	t.repo.quotations[q.ID] = q
	return q.ID, nil
}

func (t *memoryProcTx) UpdateQuotationStatus(ctx context.Context, id int64, from []QuotationStatus, to QuotationStatus, reviewedBy int64, notes string) (bool, error) {
	q, ok := t.repo.quotations[id]
	if !ok {
		return false, nil
	}
	for _, st := range from {
		if q.Status == st {
			q.Status = to
			q.ReviewedBy = &reviewedBy
			now := time.Now()
			q.ReviewedAt = &now
			q.ReviewNotes = notes
			t.repo.quotations[id] = q
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryProcTx) RejectSiblingQuotations(ctx context.Context, rfqID, exceptID int64, reason string, reviewedBy int64) ([]Quotation, error) {
	out := []Quotation{}
	for id, q := range t.repo.quotations {
		if q.RFQID != rfqID || id == exceptID {
			continue
		}
		if q.Status != QuotationStatusSubmitted && q.Status != QuotationStatusUnderReview {
			continue
		}
		q.Status = QuotationStatusRejected
		q.ReviewNotes = reason
		q.ReviewedBy = &reviewedBy
		t.repo.quotations[id] = q
		out = append(out, q)
	}
	return out, nil
}

func (t *memoryProcTx) CreatePO(ctx context.Context, po PurchaseOrder) (int64, error) {
	po.ID = t.repo.id()
	po.CreatedAt = time.Now()
	po.UpdatedAt = po.CreatedAt
	t.repo.pos[po.ID] = po
	return po.ID, nil
}

func (t *memoryProcTx) InsertPOItem(ctx context.Context, item POItem) error {
	item.ID = t.repo.id()
	t.repo.poItems[item.POID] = append(t.repo.poItems[item.POID], item)
	return nil
}

func (t *memoryProcTx) UpdatePOFields(ctx context.Context, po PurchaseOrder, expected POStatus) (bool, error) {
	cur, ok := t.repo.pos[po.ID]
	if !ok || cur.Status != expected {
		return false, nil
	}
	t.repo.pos[po.ID] = po
	return true, nil
}

func (t *memoryProcTx) UpdatePODeliveryStatus(ctx context.Context, id int64, from, to POStatus, delayReason string, actorID int64) (bool, error) {
	po, ok := t.repo.pos[id]
	if !ok || po.Status != from || po.Status == POStatusCancelled {
		return false, nil
	}
	po.Status = to
	po.DelayReason = delayReason
	t.repo.pos[id] = po
	return true, nil
}

func (t *memoryProcTx) DeletePO(ctx context.Context, id int64, allowed []POStatus) (bool, error) {
	po, ok := t.repo.pos[id]
	if !ok {
		return false, nil
	}
	for _, st := range allowed {
		if po.Status == st {
			delete(t.repo.pos, id)
			delete(t.repo.poItems, id)
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryProcTx) CreateReceipt(ctx context.Context, gr GoodsReceipt) (int64, error) {
	gr.ID = t.repo.id()
	t.repo.receipts[gr.POID] = append(t.repo.receipts[gr.POID], gr)
	return gr.ID, nil
}

type memoryVendorDirectory struct {
	vendors map[int64]VendorRef
}

func (d *memoryVendorDirectory) Vendor(ctx context.Context, id int64) (VendorRef, error) {
	v, ok := d.vendors[id]
	if !ok {
		return VendorRef{}, shared.ErrNotFound
	}
	return v, nil
}

type recordingNotifier struct {
	invited []RFQInvitedEvent
	decided []QuotationDecidedEvent
	created []POCreatedEvent
	status  []POStatusChangedEvent
}

func (n *recordingNotifier) RFQInvited(ctx context.Context, ev RFQInvitedEvent) {
	n.invited = append(n.invited, ev)
}

func (n *recordingNotifier) QuotationDecided(ctx context.Context, ev QuotationDecidedEvent) {
	n.decided = append(n.decided, ev)
}

func (n *recordingNotifier) POCreated(ctx context.Context, ev POCreatedEvent) {
	n.created = append(n.created, ev)
}

func (n *recordingNotifier) POStatusChanged(ctx context.Context, ev POStatusChangedEvent) {
	n.status = append(n.status, ev)
}

func newTestService(repo *memoryProcRepo, notifier Notifier, policy Policy) *Service {
	vendors := &memoryVendorDirectory{vendors: map[int64]VendorRef{
		10: {ID: 10, CompanyName: "Acme Supplies", Active: true, Approved: true},
		11: {ID: 11, CompanyName: "Globex Trading", Active: true, Approved: true},
		12: {ID: 12, CompanyName: "Dormant Co", Active: false, Approved: true},
	}}
	return NewService(repo, vendors, nil, notifier, nil, policy)
}

var (
	admin    = shared.Identity{UserID: 1, Role: shared.RoleAdmin}
	employee = shared.Identity{UserID: 2, Role: shared.RoleEmployee}
	vendorA  = shared.Identity{UserID: 20, Role: shared.RoleVendor, VendorID: 10}
	vendorB  = shared.Identity{UserID: 21, Role: shared.RoleVendor, VendorID: 11}
)

func TestProcurementFlow(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryProcRepo()
	notifier := &recordingNotifier{}
	svc := newTestService(repo, notifier, Policy{})

	pr, err := svc.CreateRequest(ctx, employee, CreateRequestInput{
		ItemName:   "Laptops",
		Quantity:   100,
		Department: "Engineering",
		Urgency:    UrgencyHigh,
	})
	require.NoError(t, err)
	require.Equal(t, RequestStatusPending, pr.Status)

	pr, err = svc.ApproveRequest(ctx, admin, pr.ID)
	require.NoError(t, err)
	require.Equal(t, RequestStatusApproved, pr.Status)

	rfq, err := svc.SendRFQ(ctx, admin, pr.ID, SendRFQInput{VendorIDs: []int64{10, 11}})
	require.NoError(t, err)
	require.Equal(t, RFQStatusSent, rfq.Status)
	require.Len(t, notifier.invited, 2)

	got, err := repo.GetRequest(ctx, pr.ID)
	require.NoError(t, err)
	require.Equal(t, RequestStatusRFQSent, got.Status)

	validUntil := time.Now().AddDate(0, 1, 0)
	winner, err := svc.SubmitQuotation(ctx, vendorA, rfq.ID, SubmitQuotationInput{
		UnitPrice:             decimal.NewFromInt(1000),
		Quantity:              100,
		TaxRate:               decimal.NewFromInt(18),
		ShippingCost:          decimal.NewFromInt(500),
		EstimatedDeliveryDays: 14,
		ValidUntil:            validUntil,
	})
	require.NoError(t, err)
	require.Equal(t, "118500.00", winner.TotalAmount.StringFixed(2))

	loser, err := svc.SubmitQuotation(ctx, vendorB, rfq.ID, SubmitQuotationInput{
		UnitPrice:             decimal.NewFromInt(1100),
		Quantity:              100,
		TaxRate:               decimal.NewFromInt(18),
		ShippingCost:          decimal.Zero,
		EstimatedDeliveryDays: 7,
		ValidUntil:            validUntil,
	})
	require.NoError(t, err)

	res, err := svc.AcceptQuotation(ctx, admin, rfq.ID, AcceptQuotationInput{QuotationID: winner.ID, CreatePO: true})
	require.NoError(t, err)
	require.Equal(t, QuotationStatusAccepted, res.Quotation.Status)
	require.NotNil(t, res.PO)
	require.Equal(t, POStatusDraft, res.PO.Status)
	require.Equal(t, "118500.00", res.PO.TotalAmount.StringFixed(2))
	require.Equal(t, int64(10), res.PO.VendorID)

	rejected, err := repo.GetQuotation(ctx, loser.ID)
	require.NoError(t, err)
	require.Equal(t, QuotationStatusRejected, rejected.Status)

	closedRFQ, err := repo.GetRFQ(ctx, rfq.ID)
	require.NoError(t, err)
	require.Equal(t, RFQStatusAccepted, closedRFQ.Status)

	// Winner accepted + loser rejected + PO created.
	require.Len(t, notifier.decided, 2)
	require.Len(t, notifier.created, 1)

	items := repo.poItems[res.PO.ID]
	require.Len(t, items, 1)
	require.Equal(t, "Laptops", items[0].ProductName)
	require.Equal(t, int64(100), items[0].Quantity)
}

func TestRejectRequestRequiresReason(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryProcRepo()
	svc := newTestService(repo, nil, Policy{})

	pr, err := svc.CreateRequest(ctx, employee, CreateRequestInput{ItemName: "Chairs", Quantity: 5, Department: "Ops"})
	require.NoError(t, err)

	_, err = svc.RejectRequest(ctx, admin, pr.ID, "  ")
	require.ErrorIs(t, err, shared.ErrValidation)

	pr, err = svc.RejectRequest(ctx, admin, pr.ID, "no budget this quarter")
	require.NoError(t, err)
	require.Equal(t, RequestStatusRejected, pr.Status)

	// Rejected is terminal.
	_, err = svc.ApproveRequest(ctx, admin, pr.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestSendRFQRequiresApprovedRequest(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryProcRepo()
	svc := newTestService(repo, nil, Policy{})

	pr, err := svc.CreateRequest(ctx, employee, CreateRequestInput{ItemName: "Desks", Quantity: 3, Department: "Ops"})
	require.NoError(t, err)

	_, err = svc.SendRFQ(ctx, admin, pr.ID, SendRFQInput{VendorIDs: []int64{10}})
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestSendRFQRejectsInactiveVendor(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryProcRepo()
	svc := newTestService(repo, nil, Policy{})

	pr, err := svc.CreateRequest(ctx, employee, CreateRequestInput{ItemName: "Desks", Quantity: 3, Department: "Ops"})
	require.NoError(t, err)
	_, err = svc.ApproveRequest(ctx, admin, pr.ID)
	require.NoError(t, err)

	_, err = svc.SendRFQ(ctx, admin, pr.ID, SendRFQInput{VendorIDs: []int64{12}})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSubmitQuotationDeadline(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryProcRepo()
	svc := newTestService(repo, nil, Policy{})

	pr, err := svc.CreateRequest(ctx, employee, CreateRequestInput{ItemName: "Cables", Quantity: 50, Department: "IT"})
	require.NoError(t, err)
	_, err = svc.ApproveRequest(ctx, admin, pr.ID)
	require.NoError(t, err)

	deadline := time.Now().AddDate(0, 0, -2)
	svc.now = func() time.Time { return deadline.AddDate(0, 0, -1) }
	rfq, err := svc.SendRFQ(ctx, admin, pr.ID, SendRFQInput{VendorIDs: []int64{10}, ResponseDeadline: &deadline})
	require.NoError(t, err)
	svc.now = time.Now

	_, err = svc.SubmitQuotation(ctx, vendorA, rfq.ID, SubmitQuotationInput{
		UnitPrice:  decimal.NewFromInt(10),
		Quantity:   50,
		ValidUntil: time.Now().AddDate(0, 1, 0),
	})
	require.ErrorIs(t, err, shared.ErrInvalidState)

	expired, err := repo.GetRFQ(ctx, rfq.ID)
	require.NoError(t, err)
	require.Equal(t, RFQStatusExpired, expired.Status)
}

func TestSubmitQuotationDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryProcRepo()
	svc := newTestService(repo, nil, Policy{})

	pr, err := svc.CreateRequest(ctx, employee, CreateRequestInput{ItemName: "Monitors", Quantity: 10, Department: "IT"})
	require.NoError(t, err)
	_, err = svc.ApproveRequest(ctx, admin, pr.ID)
	require.NoError(t, err)
	rfq, err := svc.SendRFQ(ctx, admin, pr.ID, SendRFQInput{VendorIDs: []int64{10}})
	require.NoError(t, err)

	input := SubmitQuotationInput{
		UnitPrice:  decimal.NewFromInt(200),
		Quantity:   10,
		ValidUntil: time.Now().AddDate(0, 1, 0),
	}
	_, err = svc.SubmitQuotation(ctx, vendorA, rfq.ID, input)
	require.NoError(t, err)
	_, err = svc.SubmitQuotation(ctx, vendorA, rfq.ID, input)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestSubmitQuotationUninvitedVendor(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryProcRepo()
	svc := newTestService(repo, nil, Policy{})

	pr, err := svc.CreateRequest(ctx, employee, CreateRequestInput{ItemName: "Printers", Quantity: 2, Department: "Ops"})
	require.NoError(t, err)
	_, err = svc.ApproveRequest(ctx, admin, pr.ID)
	require.NoError(t, err)
	rfq, err := svc.SendRFQ(ctx, admin, pr.ID, SendRFQInput{VendorIDs: []int64{10}})
	require.NoError(t, err)

	_, err = svc.SubmitQuotation(ctx, vendorB, rfq.ID, SubmitQuotationInput{
		UnitPrice:  decimal.NewFromInt(300),
		Quantity:   2,
		ValidUntil: time.Now().AddDate(0, 1, 0),
	})
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.GetRFQ(ctx, vendorB, rfq.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestAcceptQuotationSecondAcceptConflicts(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryProcRepo()
	svc := newTestService(repo, nil, Policy{})

	pr, err := svc.CreateRequest(ctx, employee, CreateRequestInput{ItemName: "Servers", Quantity: 4, Department: "IT"})
	require.NoError(t, err)
	_, err = svc.ApproveRequest(ctx, admin, pr.ID)
	require.NoError(t, err)
	rfq, err := svc.SendRFQ(ctx, admin, pr.ID, SendRFQInput{VendorIDs: []int64{10, 11}})
	require.NoError(t, err)

	validUntil := time.Now().AddDate(0, 1, 0)
	qa, err := svc.SubmitQuotation(ctx, vendorA, rfq.ID, SubmitQuotationInput{UnitPrice: decimal.NewFromInt(5000), Quantity: 4, ValidUntil: validUntil})
	require.NoError(t, err)
	qb, err := svc.SubmitQuotation(ctx, vendorB, rfq.ID, SubmitQuotationInput{UnitPrice: decimal.NewFromInt(4800), Quantity: 4, ValidUntil: validUntil})
	require.NoError(t, err)

	_, err = svc.AcceptQuotation(ctx, admin, rfq.ID, AcceptQuotationInput{QuotationID: qa.ID, CreatePO: true})
	require.NoError(t, err)

	_, err = svc.AcceptQuotation(ctx, admin, rfq.ID, AcceptQuotationInput{QuotationID: qb.ID, CreatePO: true})
	require.Error(t, err)
	require.True(t, errors.Is(err, shared.ErrConflict) || errors.Is(err, shared.ErrInvalidState))

	// Exactly one PO exists.
	pos, _, err := repo.ListPOs(ctx, POFilters{}, 100, 0)
	require.NoError(t, err)
	require.Len(t, pos, 1)
}

func TestRejectQuotationLeavesSiblings(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryProcRepo()
	svc := newTestService(repo, nil, Policy{})

	pr, err := svc.CreateRequest(ctx, employee, CreateRequestInput{ItemName: "Routers", Quantity: 6, Department: "IT"})
	require.NoError(t, err)
	_, err = svc.ApproveRequest(ctx, admin, pr.ID)
	require.NoError(t, err)
	rfq, err := svc.SendRFQ(ctx, admin, pr.ID, SendRFQInput{VendorIDs: []int64{10, 11}})
	require.NoError(t, err)

	validUntil := time.Now().AddDate(0, 1, 0)
	qa, err := svc.SubmitQuotation(ctx, vendorA, rfq.ID, SubmitQuotationInput{UnitPrice: decimal.NewFromInt(900), Quantity: 6, ValidUntil: validUntil})
	require.NoError(t, err)
	qb, err := svc.SubmitQuotation(ctx, vendorB, rfq.ID, SubmitQuotationInput{UnitPrice: decimal.NewFromInt(950), Quantity: 6, ValidUntil: validUntil})
	require.NoError(t, err)

	_, err = svc.RejectQuotation(ctx, admin, rfq.ID, RejectQuotationInput{QuotationID: qa.ID, ReviewNotes: "price too high"})
	require.NoError(t, err)

	other, err := repo.GetQuotation(ctx, qb.ID)
	require.NoError(t, err)
	require.Equal(t, QuotationStatusSubmitted, other.Status)
}

func TestDeliveredRequiresReceipt(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryProcRepo()
	svc := newTestService(repo, nil, Policy{RequireReceiptForDelivered: true})

	assignee := int64(2)
	po, err := svc.CreatePurchaseOrder(ctx, admin, CreatePOInput{
		VendorID:   10,
		AssignedTo: &assignee,
		Items:      []POItemInput{{ProductName: "Rack", Quantity: 1, UnitPrice: decimal.NewFromInt(2000)}},
	})
	require.NoError(t, err)

	_, err = svc.UpdateDeliveryStatus(ctx, employee, po.ID, POStatusDelivered, "")
	require.ErrorIs(t, err, shared.ErrInvalidState)

	gr, err := svc.RecordGoodsReceipt(ctx, employee, po.ID, ReceiptInput{DeliveredQuantity: 1, Condition: ConditionGood})
	require.NoError(t, err)
	require.Equal(t, ConditionGood, gr.Condition)

	// A good-condition receipt flips the order to received.
	cur, _, err := repo.GetPO(ctx, po.ID)
	require.NoError(t, err)
	require.Equal(t, POStatusReceived, cur.Status)

	updated, err := svc.UpdateDeliveryStatus(ctx, employee, po.ID, POStatusDelivered, "")
	require.NoError(t, err)
	require.Equal(t, POStatusDelivered, updated.Status)
}

func TestDelayedRequiresReason(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryProcRepo()
	svc := newTestService(repo, nil, Policy{})

	po, err := svc.CreatePurchaseOrder(ctx, admin, CreatePOInput{
		VendorID: 10,
		Items:    []POItemInput{{ProductName: "Switch", Quantity: 2, UnitPrice: decimal.NewFromInt(150)}},
	})
	require.NoError(t, err)

	_, err = svc.UpdateDeliveryStatus(ctx, vendorA, po.ID, POStatusDelayed, "")
	require.ErrorIs(t, err, shared.ErrValidation)

	updated, err := svc.UpdateDeliveryStatus(ctx, vendorA, po.ID, POStatusDelayed, "customs hold")
	require.NoError(t, err)
	require.Equal(t, "customs hold", updated.DelayReason)
}

func TestCancelledPOBlocksDeliveryUpdates(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryProcRepo()
	svc := newTestService(repo, nil, Policy{})

	po, err := svc.CreatePurchaseOrder(ctx, admin, CreatePOInput{
		VendorID: 10,
		Items:    []POItemInput{{ProductName: "UPS", Quantity: 1, UnitPrice: decimal.NewFromInt(800)}},
	})
	require.NoError(t, err)

	cancelled := POStatusCancelled
	_, err = svc.UpdatePurchaseOrder(ctx, admin, po.ID, UpdatePOInput{Status: &cancelled})
	require.NoError(t, err)

	_, err = svc.UpdateDeliveryStatus(ctx, vendorA, po.ID, POStatusInProgress, "")
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestDeletePOBlockedByReceipts(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryProcRepo()
	svc := newTestService(repo, nil, Policy{})

	po, err := svc.CreatePurchaseOrder(ctx, admin, CreatePOInput{
		VendorID: 10,
		Items:    []POItemInput{{ProductName: "Shelf", Quantity: 3, UnitPrice: decimal.NewFromInt(75)}},
	})
	require.NoError(t, err)

	_, err = svc.RecordGoodsReceipt(ctx, admin, po.ID, ReceiptInput{DeliveredQuantity: 1, Condition: ConditionPartial})
	require.NoError(t, err)

	err = svc.DeletePurchaseOrder(ctx, admin, po.ID)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestVendorSeesOnlyOwnPOs(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryProcRepo()
	svc := newTestService(repo, nil, Policy{})

	poA, err := svc.CreatePurchaseOrder(ctx, admin, CreatePOInput{
		VendorID: 10,
		Items:    []POItemInput{{ProductName: "Drives", Quantity: 10, UnitPrice: decimal.NewFromInt(95)}},
	})
	require.NoError(t, err)
	_, err = svc.CreatePurchaseOrder(ctx, admin, CreatePOInput{
		VendorID: 11,
		Items:    []POItemInput{{ProductName: "RAM", Quantity: 20, UnitPrice: decimal.NewFromInt(45)}},
	})
	require.NoError(t, err)

	pos, total, err := svc.ListPurchaseOrders(ctx, vendorA, POFilters{}, 50, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, poA.ID, pos[0].ID)

	_, _, err = svc.GetPurchaseOrder(ctx, vendorB, poA.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestEmployeeScopedRequestListing(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryProcRepo()
	svc := newTestService(repo, nil, Policy{})

	_, err := svc.CreateRequest(ctx, employee, CreateRequestInput{ItemName: "Pens", Quantity: 100, Department: "Ops"})
	require.NoError(t, err)
	other := shared.Identity{UserID: 3, Role: shared.RoleEmployee}
	_, err = svc.CreateRequest(ctx, other, CreateRequestInput{ItemName: "Paper", Quantity: 500, Department: "Ops"})
	require.NoError(t, err)

	mine, total, err := svc.ListRequests(ctx, employee, RequestFilters{}, 50, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, employee.UserID, mine[0].RequesterID)

	all, total, err := svc.ListRequests(ctx, admin, RequestFilters{}, 50, 0)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, all, 2)
}

func TestGenerateNumberUsesServiceClock(t *testing.T) {
	svc := newTestService(newMemoryProcRepo(), nil, Policy{})
	fixed := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	require.Equal(t, fmt.Sprintf("PR-%d", fixed.UnixNano()), svc.generateNumber("PR"))
	require.Equal(t, fmt.Sprintf("PO-%d", fixed.UnixNano()), svc.generateNumber("PO"))
}
