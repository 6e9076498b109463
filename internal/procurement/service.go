package procurement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/procuredesk/procuredesk/internal/shared"
)

// siblingRejectReason is stamped on auto-rejected quotations when a
// competitor's quotation is accepted on the same RFQ.
const siblingRejectReason = "another vendor's quotation was accepted"

// RepositoryPort describes read operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetRequest(ctx context.Context, id int64) (PurchaseRequest, error)
	ListRequests(ctx context.Context, f RequestFilters, limit, offset int) ([]PurchaseRequest, int, error)
	GetRFQ(ctx context.Context, id int64) (RFQ, error)
	ListRFQs(ctx context.Context, f RFQFilters, limit, offset int) ([]RFQ, int, error)
	GetQuotation(ctx context.Context, id int64) (Quotation, error)
	ListQuotationsByRFQ(ctx context.Context, rfqID int64) ([]Quotation, error)
	GetPO(ctx context.Context, id int64) (PurchaseOrder, []POItem, error)
	ListPOs(ctx context.Context, f POFilters, limit, offset int) ([]PurchaseOrder, int, error)
	ListReceipts(ctx context.Context, poID int64) ([]GoodsReceipt, error)
	CountReceipts(ctx context.Context, poID int64) (int, error)
}

// VendorRef is the subset of vendor master data the engine needs.
type VendorRef struct {
	ID          int64
	CompanyName string
	Active      bool
	Approved    bool
}

// VendorDirectory resolves vendor master data.
type VendorDirectory interface {
	Vendor(ctx context.Context, id int64) (VendorRef, error)
}

// BillingPort exposes the invoice checks needed for PO deletion.
type BillingPort interface {
	CountInvoicesForPO(ctx context.Context, poID int64) (int, error)
}

// AuditPort records workflow transitions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Policy carries the configurable workflow rules that the source system left
// ambiguous.
type Policy struct {
	// RequireReceiptForDelivered blocks the delivered transition until at
	// least one goods receipt exists for the PO.
	RequireReceiptForDelivered bool
}

// Service orchestrates the procurement workflow state machine.
type Service struct {
	repo     RepositoryPort
	vendors  VendorDirectory
	billing  BillingPort
	notifier Notifier
	audit    AuditPort
	policy   Policy
	now      func() time.Time
}

// NewService constructs the procurement service.
func NewService(repo RepositoryPort, vendors VendorDirectory, billing BillingPort, notifier Notifier, audit AuditPort, policy Policy) *Service {
	return &Service{repo: repo, vendors: vendors, billing: billing, notifier: notifier, audit: audit, policy: policy, now: time.Now}
}

// Filters for listings.
type RequestFilters struct {
	Status      RequestStatus
	RequesterID int64
	Department  string
	Search      string
}

type RFQFilters struct {
	Status    RFQStatus
	RequestID int64
	VendorID  int64
}

type POFilters struct {
	Status     POStatus
	VendorID   int64
	AssignedTo int64
	Search     string
}

// CreateRequestInput describes a new purchase request.
type CreateRequestInput struct {
	ProductID     *int64
	ItemName      string
	Quantity      int64
	Department    string
	Urgency       Urgency
	Justification string
}

// CreateRequest persists a new purchase request in pending status.
func (s *Service) CreateRequest(ctx context.Context, ident shared.Identity, input CreateRequestInput) (PurchaseRequest, error) {
	if ident.Role != shared.RoleEmployee && ident.Role != shared.RoleAdmin {
		return PurchaseRequest{}, fmt.Errorf("%w: only employees create purchase requests", shared.ErrForbidden)
	}
	if strings.TrimSpace(input.ItemName) == "" {
		return PurchaseRequest{}, fmt.Errorf("%w: item name required", shared.ErrValidation)
	}
	if input.Quantity <= 0 {
		return PurchaseRequest{}, fmt.Errorf("%w: quantity must be positive", shared.ErrValidation)
	}
	if strings.TrimSpace(input.Department) == "" {
		return PurchaseRequest{}, fmt.Errorf("%w: department required", shared.ErrValidation)
	}
	if input.Urgency == "" {
		input.Urgency = UrgencyMedium
	}
	if !input.Urgency.Valid() {
		return PurchaseRequest{}, fmt.Errorf("%w: unknown urgency %q", shared.ErrValidation, input.Urgency)
	}
	pr := PurchaseRequest{
		Number:        s.generateNumber("PR"),
		RequesterID:   ident.UserID,
		ProductID:     input.ProductID,
		ItemName:      strings.TrimSpace(input.ItemName),
		Quantity:      input.Quantity,
		Department:    strings.TrimSpace(input.Department),
		Urgency:       input.Urgency,
		Justification: input.Justification,
		Status:        RequestStatusPending,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateRequest(ctx, pr)
		if err != nil {
			return err
		}
		pr.ID = id
		return nil
	})
	if err != nil {
		return PurchaseRequest{}, err
	}
	s.recordAudit(ctx, ident, "PR_CREATE", "purchase_request", pr.ID, map[string]any{"number": pr.Number})
	return pr, nil
}

// GetRequest returns a purchase request visible to the caller.
func (s *Service) GetRequest(ctx context.Context, ident shared.Identity, id int64) (PurchaseRequest, error) {
	pr, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return PurchaseRequest{}, err
	}
	if ident.Role == shared.RoleEmployee && pr.RequesterID != ident.UserID {
		return PurchaseRequest{}, shared.ErrForbidden
	}
	if ident.Role == shared.RoleVendor {
		return PurchaseRequest{}, shared.ErrForbidden
	}
	return pr, nil
}

// ListRequests returns requests scoped to the caller's role.
func (s *Service) ListRequests(ctx context.Context, ident shared.Identity, f RequestFilters, limit, offset int) ([]PurchaseRequest, int, error) {
	switch ident.Role {
	case shared.RoleAdmin:
	case shared.RoleEmployee:
		f.RequesterID = ident.UserID
	default:
		return nil, 0, shared.ErrForbidden
	}
	return s.repo.ListRequests(ctx, f, limit, offset)
}

// UpdateRequestInput holds editable request fields.
type UpdateRequestInput struct {
	ProductID     *int64
	ItemName      *string
	Quantity      *int64
	Department    *string
	Urgency       *Urgency
	Justification *string
}

// UpdateRequest edits a pending request. Only the requester or an admin may
// edit, and only while the request is still pending.
func (s *Service) UpdateRequest(ctx context.Context, ident shared.Identity, id int64, input UpdateRequestInput) (PurchaseRequest, error) {
	pr, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return PurchaseRequest{}, err
	}
	if !ident.IsAdmin() && pr.RequesterID != ident.UserID {
		return PurchaseRequest{}, shared.ErrForbidden
	}
	if pr.Status != RequestStatusPending {
		return PurchaseRequest{}, fmt.Errorf("%w: request is %s, expected pending", shared.ErrInvalidState, pr.Status)
	}
	if input.ItemName != nil {
		if strings.TrimSpace(*input.ItemName) == "" {
			return PurchaseRequest{}, fmt.Errorf("%w: item name required", shared.ErrValidation)
		}
		pr.ItemName = strings.TrimSpace(*input.ItemName)
	}
	if input.Quantity != nil {
		if *input.Quantity <= 0 {
			return PurchaseRequest{}, fmt.Errorf("%w: quantity must be positive", shared.ErrValidation)
		}
		pr.Quantity = *input.Quantity
	}
	if input.Department != nil {
		pr.Department = strings.TrimSpace(*input.Department)
	}
	if input.Urgency != nil {
		if !input.Urgency.Valid() {
			return PurchaseRequest{}, fmt.Errorf("%w: unknown urgency %q", shared.ErrValidation, *input.Urgency)
		}
		pr.Urgency = *input.Urgency
	}
	if input.Justification != nil {
		pr.Justification = *input.Justification
	}
	if input.ProductID != nil {
		pr.ProductID = input.ProductID
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		updated, err := tx.UpdateRequestFields(ctx, pr)
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: request changed concurrently", shared.ErrConflict)
		}
		return nil
	})
	if err != nil {
		return PurchaseRequest{}, err
	}
	return pr, nil
}

// DeleteRequest removes a pending request.
func (s *Service) DeleteRequest(ctx context.Context, ident shared.Identity, id int64) error {
	pr, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if !ident.IsAdmin() && pr.RequesterID != ident.UserID {
		return shared.ErrForbidden
	}
	if pr.Status != RequestStatusPending {
		return fmt.Errorf("%w: only pending requests can be deleted", shared.ErrInvalidState)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		deleted, err := tx.DeleteRequest(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("%w: request changed concurrently", shared.ErrConflict)
		}
		return nil
	})
}

// ApproveRequest transitions a pending request to approved. Admin only.
func (s *Service) ApproveRequest(ctx context.Context, ident shared.Identity, id int64) (PurchaseRequest, error) {
	if !ident.IsAdmin() {
		return PurchaseRequest{}, shared.ErrForbidden
	}
	pr, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return PurchaseRequest{}, err
	}
	if pr.Status != RequestStatusPending {
		return PurchaseRequest{}, fmt.Errorf("%w: request is %s, expected pending", shared.ErrInvalidState, pr.Status)
	}
	now := s.now()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		updated, err := tx.UpdateRequestStatus(ctx, id, RequestStatusPending, RequestStatusApproved, ident.UserID, "")
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: request changed concurrently", shared.ErrConflict)
		}
		return nil
	})
	if err != nil {
		return PurchaseRequest{}, err
	}
	pr.Status = RequestStatusApproved
	pr.ReviewedBy = &ident.UserID
	pr.ReviewedAt = &now
	s.recordAudit(ctx, ident, "PR_APPROVE", "purchase_request", pr.ID, map[string]any{"number": pr.Number})
	return pr, nil
}

// RejectRequest transitions a pending request to rejected, recording the
// mandatory reason. Rejected is terminal.
func (s *Service) RejectRequest(ctx context.Context, ident shared.Identity, id int64, reason string) (PurchaseRequest, error) {
	if !ident.IsAdmin() {
		return PurchaseRequest{}, shared.ErrForbidden
	}
	if strings.TrimSpace(reason) == "" {
		return PurchaseRequest{}, fmt.Errorf("%w: rejection reason required", shared.ErrValidation)
	}
	pr, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return PurchaseRequest{}, err
	}
	if pr.Status != RequestStatusPending {
		return PurchaseRequest{}, fmt.Errorf("%w: request is %s, expected pending", shared.ErrInvalidState, pr.Status)
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		updated, err := tx.UpdateRequestStatus(ctx, id, RequestStatusPending, RequestStatusRejected, ident.UserID, strings.TrimSpace(reason))
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: request changed concurrently", shared.ErrConflict)
		}
		return nil
	})
	if err != nil {
		return PurchaseRequest{}, err
	}
	pr.Status = RequestStatusRejected
	pr.RejectionReason = strings.TrimSpace(reason)
	s.recordAudit(ctx, ident, "PR_REJECT", "purchase_request", pr.ID, map[string]any{"number": pr.Number, "reason": pr.RejectionReason})
	return pr, nil
}

// SendRFQInput describes an RFQ invitation.
type SendRFQInput struct {
	VendorIDs        []int64
	ResponseDeadline *time.Time
	AdminNotes       string
}

// SendRFQ creates an RFQ inviting the given vendors against an approved
// request and moves the request to rfq_sent. Vendor notifications are emitted
// after commit and are best-effort.
func (s *Service) SendRFQ(ctx context.Context, ident shared.Identity, requestID int64, input SendRFQInput) (RFQ, error) {
	if !ident.IsAdmin() {
		return RFQ{}, shared.ErrForbidden
	}
	if len(input.VendorIDs) == 0 {
		return RFQ{}, fmt.Errorf("%w: at least one vendor must be selected", shared.ErrValidation)
	}
	pr, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return RFQ{}, err
	}
	if pr.Status != RequestStatusApproved {
		return RFQ{}, fmt.Errorf("%w: only approved requests can be sent for quotation (current %s)", shared.ErrInvalidState, pr.Status)
	}
	seen := make(map[int64]struct{}, len(input.VendorIDs))
	vendorIDs := make([]int64, 0, len(input.VendorIDs))
	for _, vendorID := range input.VendorIDs {
		if _, dup := seen[vendorID]; dup {
			continue
		}
		seen[vendorID] = struct{}{}
		ref, err := s.vendors.Vendor(ctx, vendorID)
		if err != nil {
			return RFQ{}, fmt.Errorf("%w: vendor %d unknown", shared.ErrValidation, vendorID)
		}
		if !ref.Active || !ref.Approved {
			return RFQ{}, fmt.Errorf("%w: vendor %d is not active", shared.ErrValidation, vendorID)
		}
		vendorIDs = append(vendorIDs, vendorID)
	}
	if input.ResponseDeadline != nil && input.ResponseDeadline.Before(s.now().Truncate(24*time.Hour)) {
		return RFQ{}, fmt.Errorf("%w: response deadline is in the past", shared.ErrValidation)
	}
	rfq := RFQ{
		Number:           s.generateNumber("RFQ"),
		RequestID:        requestID,
		SentBy:           ident.UserID,
		SentAt:           s.now(),
		ResponseDeadline: input.ResponseDeadline,
		Status:           RFQStatusSent,
		AdminNotes:       input.AdminNotes,
		VendorIDs:        vendorIDs,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateRFQ(ctx, rfq)
		if err != nil {
			return err
		}
		rfq.ID = id
		for _, vendorID := range vendorIDs {
			if err := tx.AddRFQVendor(ctx, id, vendorID); err != nil {
				return err
			}
		}
		updated, err := tx.UpdateRequestStatus(ctx, requestID, RequestStatusApproved, RequestStatusRFQSent, ident.UserID, "")
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: request changed concurrently", shared.ErrConflict)
		}
		return nil
	})
	if err != nil {
		return RFQ{}, err
	}
	s.recordAudit(ctx, ident, "RFQ_SEND", "rfq", rfq.ID, map[string]any{"number": rfq.Number, "vendors": vendorIDs})
	if s.notifier != nil {
		for _, vendorID := range vendorIDs {
			s.notifier.RFQInvited(ctx, RFQInvitedEvent{
				RFQID:      rfq.ID,
				RFQNumber:  rfq.Number,
				RequestID:  requestID,
				ItemName:   pr.ItemName,
				VendorID:   vendorID,
				AdminNotes: input.AdminNotes,
			})
		}
	}
	return rfq, nil
}

// GetRFQ returns an RFQ visible to the caller; vendors only see RFQs they are
// invited to.
func (s *Service) GetRFQ(ctx context.Context, ident shared.Identity, id int64) (RFQ, error) {
	rfq, err := s.repo.GetRFQ(ctx, id)
	if err != nil {
		return RFQ{}, err
	}
	if ident.IsVendor() && !rfq.Invited(ident.VendorID) {
		return RFQ{}, shared.ErrForbidden
	}
	return rfq, nil
}

// ListRFQs returns RFQs scoped to the caller's role.
func (s *Service) ListRFQs(ctx context.Context, ident shared.Identity, f RFQFilters, limit, offset int) ([]RFQ, int, error) {
	if ident.IsVendor() {
		f.VendorID = ident.VendorID
	}
	return s.repo.ListRFQs(ctx, f, limit, offset)
}

// SubmitQuotationInput carries a vendor's priced response.
type SubmitQuotationInput struct {
	UnitPrice             decimal.Decimal
	Quantity              int64
	TaxRate               decimal.Decimal
	ShippingCost          decimal.Decimal
	EstimatedDeliveryDays int
	ValidUntil            time.Time
	PaymentTerms          string
	WarrantyTerms         string
	AdditionalNotes       string
}

func (input SubmitQuotationInput) validate(now time.Time) error {
	switch {
	case input.UnitPrice.IsNegative():
		return fmt.Errorf("%w: unit price must not be negative", shared.ErrValidation)
	case input.Quantity <= 0:
		return fmt.Errorf("%w: quantity must be positive", shared.ErrValidation)
	case input.TaxRate.IsNegative():
		return fmt.Errorf("%w: tax rate must not be negative", shared.ErrValidation)
	case input.ShippingCost.IsNegative():
		return fmt.Errorf("%w: shipping cost must not be negative", shared.ErrValidation)
	case input.EstimatedDeliveryDays < 0:
		return fmt.Errorf("%w: estimated delivery days must not be negative", shared.ErrValidation)
	case input.ValidUntil.Before(now.Truncate(24 * time.Hour)):
		return fmt.Errorf("%w: quotation validity date is in the past", shared.ErrValidation)
	}
	return nil
}

// SubmitQuotation records a vendor's quotation against a sent RFQ. Late
// submissions flip the RFQ to expired and fail. A second non-draft quotation
// from the same vendor fails with Conflict.
func (s *Service) SubmitQuotation(ctx context.Context, ident shared.Identity, rfqID int64, input SubmitQuotationInput) (Quotation, error) {
	if !ident.IsVendor() {
		return Quotation{}, shared.ErrForbidden
	}
	rfq, err := s.repo.GetRFQ(ctx, rfqID)
	if err != nil {
		return Quotation{}, err
	}
	if !rfq.Invited(ident.VendorID) {
		return Quotation{}, shared.ErrForbidden
	}
	now := s.now()
	if rfq.Expired(now) {
		_ = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			_, err := tx.UpdateRFQStatus(ctx, rfqID, []RFQStatus{RFQStatusSent, RFQStatusReceived}, RFQStatusExpired)
			return err
		})
		return Quotation{}, fmt.Errorf("%w: RFQ response deadline has passed", shared.ErrInvalidState)
	}
	if rfq.Status != RFQStatusSent && rfq.Status != RFQStatusReceived {
		return Quotation{}, fmt.Errorf("%w: RFQ is %s, expected sent", shared.ErrInvalidState, rfq.Status)
	}
	if err := input.validate(now); err != nil {
		return Quotation{}, err
	}
	totals := ComputeTotals(input.UnitPrice, input.Quantity, input.TaxRate, input.ShippingCost)
	q := Quotation{
		Number:                s.generateNumber("QT"),
		RFQID:                 rfqID,
		VendorID:              ident.VendorID,
		UnitPrice:             input.UnitPrice.Round(2),
		Quantity:              input.Quantity,
		Subtotal:              totals.Subtotal,
		TaxRate:               input.TaxRate,
		TaxAmount:             totals.TaxAmount,
		ShippingCost:          input.ShippingCost.Round(2),
		TotalAmount:           totals.TotalAmount,
		EstimatedDeliveryDays: input.EstimatedDeliveryDays,
		ValidUntil:            input.ValidUntil,
		PaymentTerms:          input.PaymentTerms,
		WarrantyTerms:         input.WarrantyTerms,
		AdditionalNotes:       input.AdditionalNotes,
		Status:                QuotationStatusSubmitted,
		SubmittedAt:           &now,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateQuotation(ctx, q)
		if err != nil {
			return err
		}
		q.ID = id
		// First submission flips the RFQ to received, for display only.
		_, err = tx.UpdateRFQStatus(ctx, rfqID, []RFQStatus{RFQStatusSent}, RFQStatusReceived)
		return err
	})
	if err != nil {
		return Quotation{}, err
	}
	s.recordAudit(ctx, ident, "QT_SUBMIT", "quotation", q.ID, map[string]any{"number": q.Number, "total": q.TotalAmount.String()})
	return q, nil
}

// AcceptQuotationInput selects the winning quotation on an RFQ.
type AcceptQuotationInput struct {
	QuotationID int64
	CreatePO    bool
}

// AcceptResult is returned by AcceptQuotation.
type AcceptResult struct {
	Quotation Quotation
	PO        *PurchaseOrder
}

// AcceptQuotation accepts the selected quotation, auto-rejects all sibling
// submitted quotations, closes the RFQ and (by default) creates a draft
// purchase order copying vendor, item, quantity and unit price. The whole
// cascade runs in one transaction; a concurrent second accept fails with
// Conflict.
func (s *Service) AcceptQuotation(ctx context.Context, ident shared.Identity, rfqID int64, input AcceptQuotationInput) (AcceptResult, error) {
	if !ident.IsAdmin() {
		return AcceptResult{}, shared.ErrForbidden
	}
	rfq, err := s.repo.GetRFQ(ctx, rfqID)
	if err != nil {
		return AcceptResult{}, err
	}
	q, err := s.repo.GetQuotation(ctx, input.QuotationID)
	if err != nil {
		return AcceptResult{}, err
	}
	if q.RFQID != rfqID {
		return AcceptResult{}, fmt.Errorf("%w: quotation does not belong to this RFQ", shared.ErrValidation)
	}
	if q.Status != QuotationStatusSubmitted && q.Status != QuotationStatusUnderReview {
		return AcceptResult{}, fmt.Errorf("%w: quotation is %s, expected submitted", shared.ErrInvalidState, q.Status)
	}
	pr, err := s.repo.GetRequest(ctx, rfq.RequestID)
	if err != nil {
		return AcceptResult{}, err
	}

	now := s.now()
	var po *PurchaseOrder
	var rejected []Quotation
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		updated, err := tx.UpdateQuotationStatus(ctx, q.ID, []QuotationStatus{QuotationStatusSubmitted, QuotationStatusUnderReview}, QuotationStatusAccepted, ident.UserID, "")
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: quotation already decided", shared.ErrConflict)
		}
		siblings, err := tx.RejectSiblingQuotations(ctx, rfqID, q.ID, siblingRejectReason, ident.UserID)
		if err != nil {
			return err
		}
		rejected = siblings
		updated, err = tx.UpdateRFQStatus(ctx, rfqID, []RFQStatus{RFQStatusSent, RFQStatusReceived}, RFQStatusAccepted)
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: RFQ already has an accepted quotation", shared.ErrConflict)
		}
		if !input.CreatePO {
			return nil
		}
		expected := now.AddDate(0, 0, q.EstimatedDeliveryDays)
		created := PurchaseOrder{
			Number:               s.generateNumber("PO"),
			VendorID:             q.VendorID,
			RequestID:            &rfq.RequestID,
			QuotationID:          &q.ID,
			CreatedBy:            ident.UserID,
			OrderDate:            now,
			ExpectedDeliveryDate: &expected,
			Status:               POStatusDraft,
			Subtotal:             q.Subtotal,
			TaxAmount:            q.TaxAmount,
			ShippingCost:         q.ShippingCost,
			TotalAmount:          q.TotalAmount,
			TotalQuantity:        q.Quantity,
			Notes:                fmt.Sprintf("Created from quotation %s", q.Number),
		}
		poID, err := tx.CreatePO(ctx, created)
		if err != nil {
			return err
		}
		created.ID = poID
		item := POItem{
			POID:        poID,
			ProductID:   pr.ProductID,
			ProductName: pr.ItemName,
			Quantity:    q.Quantity,
			UnitPrice:   q.UnitPrice,
			LineTotal:   q.UnitPrice.Mul(decimal.NewFromInt(q.Quantity)).Round(2),
		}
		if err := tx.InsertPOItem(ctx, item); err != nil {
			return err
		}
		po = &created
		return nil
	})
	if err != nil {
		return AcceptResult{}, err
	}

	q.Status = QuotationStatusAccepted
	q.ReviewedBy = &ident.UserID
	q.ReviewedAt = &now
	s.recordAudit(ctx, ident, "QT_ACCEPT", "quotation", q.ID, map[string]any{"rfq": rfq.Number, "rejected_siblings": len(rejected)})
	if s.notifier != nil {
		s.notifier.QuotationDecided(ctx, QuotationDecidedEvent{QuotationID: q.ID, RFQNumber: rfq.Number, VendorID: q.VendorID, Accepted: true})
		for _, sib := range rejected {
			s.notifier.QuotationDecided(ctx, QuotationDecidedEvent{QuotationID: sib.ID, RFQNumber: rfq.Number, VendorID: sib.VendorID, Accepted: false, Reason: siblingRejectReason})
		}
		if po != nil {
			s.notifier.POCreated(ctx, POCreatedEvent{POID: po.ID, PONumber: po.Number, VendorID: po.VendorID, Total: po.TotalAmount})
		}
	}
	return AcceptResult{Quotation: q, PO: po}, nil
}

// RejectQuotationInput identifies the quotation to reject and the mandatory
// review notes.
type RejectQuotationInput struct {
	QuotationID int64
	ReviewNotes string
}

// RejectQuotation rejects a single submitted quotation. Sibling quotations are
// unaffected.
func (s *Service) RejectQuotation(ctx context.Context, ident shared.Identity, rfqID int64, input RejectQuotationInput) (Quotation, error) {
	if !ident.IsAdmin() {
		return Quotation{}, shared.ErrForbidden
	}
	if strings.TrimSpace(input.ReviewNotes) == "" {
		return Quotation{}, fmt.Errorf("%w: review notes required", shared.ErrValidation)
	}
	q, err := s.repo.GetQuotation(ctx, input.QuotationID)
	if err != nil {
		return Quotation{}, err
	}
	if q.RFQID != rfqID {
		return Quotation{}, fmt.Errorf("%w: quotation does not belong to this RFQ", shared.ErrValidation)
	}
	if q.Status != QuotationStatusSubmitted && q.Status != QuotationStatusUnderReview {
		return Quotation{}, fmt.Errorf("%w: quotation is %s, expected submitted", shared.ErrInvalidState, q.Status)
	}
	rfq, err := s.repo.GetRFQ(ctx, rfqID)
	if err != nil {
		return Quotation{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		updated, err := tx.UpdateQuotationStatus(ctx, q.ID, []QuotationStatus{QuotationStatusSubmitted, QuotationStatusUnderReview}, QuotationStatusRejected, ident.UserID, strings.TrimSpace(input.ReviewNotes))
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: quotation already decided", shared.ErrConflict)
		}
		return nil
	})
	if err != nil {
		return Quotation{}, err
	}
	q.Status = QuotationStatusRejected
	q.ReviewNotes = strings.TrimSpace(input.ReviewNotes)
	s.recordAudit(ctx, ident, "QT_REJECT", "quotation", q.ID, map[string]any{"rfq": rfq.Number})
	if s.notifier != nil {
		s.notifier.QuotationDecided(ctx, QuotationDecidedEvent{QuotationID: q.ID, RFQNumber: rfq.Number, VendorID: q.VendorID, Accepted: false, Reason: q.ReviewNotes})
	}
	return q, nil
}

// ListQuotations returns the quotations on an RFQ; vendors only see their own.
func (s *Service) ListQuotations(ctx context.Context, ident shared.Identity, rfqID int64) ([]Quotation, error) {
	rfq, err := s.repo.GetRFQ(ctx, rfqID)
	if err != nil {
		return nil, err
	}
	quotes, err := s.repo.ListQuotationsByRFQ(ctx, rfqID)
	if err != nil {
		return nil, err
	}
	if ident.IsVendor() {
		if !rfq.Invited(ident.VendorID) {
			return nil, shared.ErrForbidden
		}
		own := quotes[:0]
		for _, q := range quotes {
			if q.VendorID == ident.VendorID {
				own = append(own, q)
			}
		}
		return own, nil
	}
	return quotes, nil
}

// POItemInput describes one manual PO line.
type POItemInput struct {
	ProductID   *int64
	ProductName string
	Quantity    int64
	UnitPrice   decimal.Decimal
}

// CreatePOInput describes a manually created purchase order.
type CreatePOInput struct {
	VendorID             int64
	AssignedTo           *int64
	ExpectedDeliveryDate *time.Time
	DeliveryDeadline     *time.Time
	TaxRate              decimal.Decimal
	ShippingCost         decimal.Decimal
	Notes                string
	Items                []POItemInput
}

// CreatePurchaseOrder creates a PO directly, without a quotation. Admin only.
func (s *Service) CreatePurchaseOrder(ctx context.Context, ident shared.Identity, input CreatePOInput) (PurchaseOrder, error) {
	if !ident.IsAdmin() {
		return PurchaseOrder{}, shared.ErrForbidden
	}
	if len(input.Items) == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: at least one line item required", shared.ErrValidation)
	}
	if input.TaxRate.IsNegative() || input.ShippingCost.IsNegative() {
		return PurchaseOrder{}, fmt.Errorf("%w: tax rate and shipping cost must not be negative", shared.ErrValidation)
	}
	ref, err := s.vendors.Vendor(ctx, input.VendorID)
	if err != nil {
		return PurchaseOrder{}, fmt.Errorf("%w: vendor %d unknown", shared.ErrValidation, input.VendorID)
	}
	if !ref.Active || !ref.Approved {
		return PurchaseOrder{}, fmt.Errorf("%w: vendor %d is not active", shared.ErrValidation, input.VendorID)
	}

	subtotal := decimal.Zero
	var totalQty int64
	items := make([]POItem, 0, len(input.Items))
	for i, line := range input.Items {
		if line.Quantity <= 0 {
			return PurchaseOrder{}, fmt.Errorf("%w: line %d quantity must be positive", shared.ErrValidation, i+1)
		}
		if line.UnitPrice.IsNegative() {
			return PurchaseOrder{}, fmt.Errorf("%w: line %d unit price must not be negative", shared.ErrValidation, i+1)
		}
		if strings.TrimSpace(line.ProductName) == "" {
			return PurchaseOrder{}, fmt.Errorf("%w: line %d product name required", shared.ErrValidation, i+1)
		}
		lineTotal := line.UnitPrice.Mul(decimal.NewFromInt(line.Quantity)).Round(2)
		subtotal = subtotal.Add(lineTotal)
		totalQty += line.Quantity
		items = append(items, POItem{
			ProductID:   line.ProductID,
			ProductName: strings.TrimSpace(line.ProductName),
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice.Round(2),
			LineTotal:   lineTotal,
		})
	}
	tax := subtotal.Mul(input.TaxRate).Div(decimal.NewFromInt(100)).Round(2)
	total := subtotal.Add(tax).Add(input.ShippingCost).Round(2)
	po := PurchaseOrder{
		Number:               s.generateNumber("PO"),
		VendorID:             input.VendorID,
		CreatedBy:            ident.UserID,
		AssignedTo:           input.AssignedTo,
		OrderDate:            s.now(),
		ExpectedDeliveryDate: input.ExpectedDeliveryDate,
		DeliveryDeadline:     input.DeliveryDeadline,
		Status:               POStatusDraft,
		Subtotal:             subtotal,
		TaxAmount:            tax,
		ShippingCost:         input.ShippingCost.Round(2),
		TotalAmount:          total,
		TotalQuantity:        totalQty,
		Notes:                input.Notes,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreatePO(ctx, po)
		if err != nil {
			return err
		}
		po.ID = id
		for _, item := range items {
			item.POID = id
			if err := tx.InsertPOItem(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, ident, "PO_CREATE", "purchase_order", po.ID, map[string]any{"number": po.Number, "total": po.TotalAmount.String()})
	return po, nil
}

// GetPurchaseOrder returns a PO with items, scoped to the caller.
func (s *Service) GetPurchaseOrder(ctx context.Context, ident shared.Identity, id int64) (PurchaseOrder, []POItem, error) {
	po, items, err := s.repo.GetPO(ctx, id)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	if err := s.authorizePOView(ident, po); err != nil {
		return PurchaseOrder{}, nil, err
	}
	return po, items, nil
}

// ListPurchaseOrders returns POs scoped to the caller's role.
func (s *Service) ListPurchaseOrders(ctx context.Context, ident shared.Identity, f POFilters, limit, offset int) ([]PurchaseOrder, int, error) {
	switch ident.Role {
	case shared.RoleAdmin, shared.RoleEmployee:
	case shared.RoleVendor:
		f.VendorID = ident.VendorID
	default:
		return nil, 0, shared.ErrForbidden
	}
	return s.repo.ListPOs(ctx, f, limit, offset)
}

// UpdatePOInput holds admin-editable PO fields. Status edits are free-form for
// admins except that the delivered policy still applies.
type UpdatePOInput struct {
	Status               *POStatus
	AssignedTo           *int64
	ExpectedDeliveryDate *time.Time
	DeliveryDeadline     *time.Time
	TrackingNumber       *string
	Notes                *string
}

// UpdatePurchaseOrder applies admin edits to a PO.
func (s *Service) UpdatePurchaseOrder(ctx context.Context, ident shared.Identity, id int64, input UpdatePOInput) (PurchaseOrder, error) {
	if !ident.IsAdmin() {
		return PurchaseOrder{}, shared.ErrForbidden
	}
	po, _, err := s.repo.GetPO(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	prev := po.Status
	if input.Status != nil {
		if !input.Status.Valid() {
			return PurchaseOrder{}, fmt.Errorf("%w: unknown status %q", shared.ErrValidation, *input.Status)
		}
		if *input.Status == POStatusDelivered {
			if err := s.checkDeliveredPolicy(ctx, id); err != nil {
				return PurchaseOrder{}, err
			}
		}
		po.Status = *input.Status
	}
	if input.AssignedTo != nil {
		po.AssignedTo = input.AssignedTo
	}
	if input.ExpectedDeliveryDate != nil {
		po.ExpectedDeliveryDate = input.ExpectedDeliveryDate
	}
	if input.DeliveryDeadline != nil {
		po.DeliveryDeadline = input.DeliveryDeadline
	}
	if input.TrackingNumber != nil {
		po.TrackingNumber = *input.TrackingNumber
	}
	if input.Notes != nil {
		po.Notes = *input.Notes
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		updated, err := tx.UpdatePOFields(ctx, po, prev)
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: purchase order changed concurrently", shared.ErrConflict)
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, ident, "PO_UPDATE", "purchase_order", po.ID, map[string]any{"number": po.Number, "status": po.Status})
	return po, nil
}

// DeletePurchaseOrder removes a PO that is still draft or pending and has no
// receipts or invoices. Financial records block deletion.
func (s *Service) DeletePurchaseOrder(ctx context.Context, ident shared.Identity, id int64) error {
	if !ident.IsAdmin() {
		return shared.ErrForbidden
	}
	po, _, err := s.repo.GetPO(ctx, id)
	if err != nil {
		return err
	}
	if po.Status != POStatusDraft && po.Status != POStatusPending {
		return fmt.Errorf("%w: only draft or pending orders can be deleted", shared.ErrInvalidState)
	}
	receipts, err := s.repo.CountReceipts(ctx, id)
	if err != nil {
		return err
	}
	if receipts > 0 {
		return fmt.Errorf("%w: goods receipts exist for this order", shared.ErrConflict)
	}
	if s.billing != nil {
		invoices, err := s.billing.CountInvoicesForPO(ctx, id)
		if err != nil {
			return err
		}
		if invoices > 0 {
			return fmt.Errorf("%w: invoices exist for this order", shared.ErrConflict)
		}
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		deleted, err := tx.DeletePO(ctx, id, []POStatus{POStatusDraft, POStatusPending})
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("%w: purchase order changed concurrently", shared.ErrConflict)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, ident, "PO_DELETE", "purchase_order", id, map[string]any{"number": po.Number})
	return nil
}

// UpdateDeliveryStatus applies a delivery-side status change by the assigned
// employee or the owning vendor. A delay requires a reason; cancelled orders
// cannot move.
func (s *Service) UpdateDeliveryStatus(ctx context.Context, ident shared.Identity, poID int64, status POStatus, reason string) (PurchaseOrder, error) {
	po, _, err := s.repo.GetPO(ctx, poID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	switch ident.Role {
	case shared.RoleAdmin:
	case shared.RoleEmployee:
		if po.AssignedTo == nil || *po.AssignedTo != ident.UserID {
			return PurchaseOrder{}, fmt.Errorf("%w: not assigned to this purchase order", shared.ErrForbidden)
		}
	case shared.RoleVendor:
		if po.VendorID != ident.VendorID {
			return PurchaseOrder{}, shared.ErrForbidden
		}
	default:
		return PurchaseOrder{}, shared.ErrForbidden
	}
	if !status.DeliveryStatus() {
		return PurchaseOrder{}, fmt.Errorf("%w: %q is not a delivery status", shared.ErrValidation, status)
	}
	if po.Status == POStatusCancelled {
		return PurchaseOrder{}, fmt.Errorf("%w: purchase order is cancelled", shared.ErrInvalidState)
	}
	if status == POStatusDelayed && strings.TrimSpace(reason) == "" {
		return PurchaseOrder{}, fmt.Errorf("%w: reason required when marking delayed", shared.ErrValidation)
	}
	if status == POStatusDelivered {
		if err := s.checkDeliveredPolicy(ctx, poID); err != nil {
			return PurchaseOrder{}, err
		}
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		updated, err := tx.UpdatePODeliveryStatus(ctx, poID, po.Status, status, strings.TrimSpace(reason), ident.UserID)
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: purchase order changed concurrently", shared.ErrConflict)
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	po.Status = status
	if status == POStatusDelayed {
		po.DelayReason = strings.TrimSpace(reason)
	}
	s.recordAudit(ctx, ident, "PO_STATUS", "purchase_order", po.ID, map[string]any{"number": po.Number, "status": status})
	if s.notifier != nil && (status == POStatusReceived || status == POStatusDelivered) {
		s.notifier.POStatusChanged(ctx, POStatusChangedEvent{POID: po.ID, PONumber: po.Number, VendorID: po.VendorID, Status: status, Reason: reason})
	}
	return po, nil
}

// ReceiptInput describes a goods receipt entry.
type ReceiptInput struct {
	DeliveredQuantity int64
	Condition         ReceiptCondition
	Notes             string
}

// RecordGoodsReceipt appends a receipt to the PO's receipt log. Receipts are
// always permitted regardless of PO status; a receipt in good condition flips
// the order to received.
func (s *Service) RecordGoodsReceipt(ctx context.Context, ident shared.Identity, poID int64, input ReceiptInput) (GoodsReceipt, error) {
	po, _, err := s.repo.GetPO(ctx, poID)
	if err != nil {
		return GoodsReceipt{}, err
	}
	switch ident.Role {
	case shared.RoleAdmin:
	case shared.RoleEmployee:
		if po.AssignedTo != nil && *po.AssignedTo != ident.UserID {
			return GoodsReceipt{}, fmt.Errorf("%w: not assigned to this purchase order", shared.ErrForbidden)
		}
	default:
		return GoodsReceipt{}, shared.ErrForbidden
	}
	if input.DeliveredQuantity < 0 {
		return GoodsReceipt{}, fmt.Errorf("%w: delivered quantity must not be negative", shared.ErrValidation)
	}
	if input.Condition == "" {
		input.Condition = ConditionGood
	}
	if !input.Condition.Valid() {
		return GoodsReceipt{}, fmt.Errorf("%w: unknown condition %q", shared.ErrValidation, input.Condition)
	}
	gr := GoodsReceipt{
		POID:              poID,
		DeliveredQuantity: input.DeliveredQuantity,
		Condition:         input.Condition,
		Notes:             input.Notes,
		ReceivedBy:        ident.UserID,
		ReceivedAt:        s.now(),
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateReceipt(ctx, gr)
		if err != nil {
			return err
		}
		gr.ID = id
		if input.Condition == ConditionGood && po.Status != POStatusCancelled {
			_, err = tx.UpdatePODeliveryStatus(ctx, poID, po.Status, POStatusReceived, "", ident.UserID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return GoodsReceipt{}, err
	}
	s.recordAudit(ctx, ident, "GR_CREATE", "goods_receipt", gr.ID, map[string]any{"po": po.Number, "qty": input.DeliveredQuantity, "condition": input.Condition})
	return gr, nil
}

// ListReceipts returns the receipt log for a PO.
func (s *Service) ListReceipts(ctx context.Context, ident shared.Identity, poID int64) ([]GoodsReceipt, error) {
	po, _, err := s.repo.GetPO(ctx, poID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizePOView(ident, po); err != nil {
		return nil, err
	}
	return s.repo.ListReceipts(ctx, poID)
}

func (s *Service) authorizePOView(ident shared.Identity, po PurchaseOrder) error {
	switch ident.Role {
	case shared.RoleAdmin, shared.RoleEmployee:
		return nil
	case shared.RoleVendor:
		if po.VendorID != ident.VendorID {
			return shared.ErrForbidden
		}
		return nil
	}
	return shared.ErrForbidden
}

func (s *Service) checkDeliveredPolicy(ctx context.Context, poID int64) error {
	if !s.policy.RequireReceiptForDelivered {
		return nil
	}
	count, err := s.repo.CountReceipts(ctx, poID)
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: at least one goods receipt is required before delivered", shared.ErrInvalidState)
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, ident shared.Identity, action, entity string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: ident.UserID, Action: action, Entity: entity, EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}

func (s *Service) generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, s.now().UnixNano())
}
