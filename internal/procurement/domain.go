package procurement

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase request lifecycle statuses.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
	RequestStatusRFQSent  RequestStatus = "rfq_sent"
)

// Urgency levels for purchase requests.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

// Valid reports whether the urgency is one of the known levels.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyUrgent:
		return true
	}
	return false
}

// RFQ lifecycle statuses.
type RFQStatus string

const (
	RFQStatusSent     RFQStatus = "sent"
	RFQStatusReceived RFQStatus = "received"
	RFQStatusAccepted RFQStatus = "accepted"
	RFQStatusRejected RFQStatus = "rejected"
	RFQStatusExpired  RFQStatus = "expired"
)

// Quotation lifecycle statuses.
type QuotationStatus string

const (
	QuotationStatusDraft       QuotationStatus = "draft"
	QuotationStatusSubmitted   QuotationStatus = "submitted"
	QuotationStatusUnderReview QuotationStatus = "under_review"
	QuotationStatusAccepted    QuotationStatus = "accepted"
	QuotationStatusRejected    QuotationStatus = "rejected"
)

// Purchase order lifecycle statuses. Admin edits are free-form across the
// enum; delivery-side actors are restricted to the delivery subset.
type POStatus string

const (
	POStatusDraft      POStatus = "draft"
	POStatusPending    POStatus = "pending"
	POStatusApproved   POStatus = "approved"
	POStatusSent       POStatus = "sent"
	POStatusInProgress POStatus = "in_progress"
	POStatusReceived   POStatus = "received"
	POStatusDelivered  POStatus = "delivered"
	POStatusDelayed    POStatus = "delayed"
	POStatusCancelled  POStatus = "cancelled"
)

// Valid reports whether the status is part of the PO enum.
func (s POStatus) Valid() bool {
	switch s {
	case POStatusDraft, POStatusPending, POStatusApproved, POStatusSent,
		POStatusInProgress, POStatusReceived, POStatusDelivered,
		POStatusDelayed, POStatusCancelled:
		return true
	}
	return false
}

// deliveryStatuses are the transitions delivery-side actors (assigned
// employee, owning vendor) may request via update-status.
var deliveryStatuses = map[POStatus]bool{
	POStatusPending:    true,
	POStatusInProgress: true,
	POStatusReceived:   true,
	POStatusDelivered:  true,
	POStatusDelayed:    true,
}

// DeliveryStatus reports whether s may be set through the delivery-status
// endpoint.
func (s POStatus) DeliveryStatus() bool { return deliveryStatuses[s] }

// Goods receipt conditions.
type ReceiptCondition string

const (
	ConditionGood     ReceiptCondition = "good"
	ConditionDamaged  ReceiptCondition = "damaged"
	ConditionShortage ReceiptCondition = "shortage"
	ConditionPartial  ReceiptCondition = "partial"
)

// Valid reports whether the condition is one of the known values.
func (c ReceiptCondition) Valid() bool {
	switch c {
	case ConditionGood, ConditionDamaged, ConditionShortage, ConditionPartial:
		return true
	}
	return false
}

// PurchaseRequest is an employee's request for goods. Product is optional; a
// free-text item name is always present.
type PurchaseRequest struct {
	ID              int64
	Number          string
	RequesterID     int64
	ProductID       *int64
	ItemName        string
	Quantity        int64
	Department      string
	Urgency         Urgency
	Justification   string
	Status          RequestStatus
	RejectionReason string
	ReviewedBy      *int64
	ReviewedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RFQ invites a set of vendors to quote against an approved purchase request.
type RFQ struct {
	ID               int64
	Number           string
	RequestID        int64
	SentBy           int64
	SentAt           time.Time
	ResponseDeadline *time.Time
	Status           RFQStatus
	AdminNotes       string
	VendorIDs        []int64
}

// Expired reports whether the response deadline has passed at the given time.
func (f RFQ) Expired(now time.Time) bool {
	return f.ResponseDeadline != nil && now.After(endOfDay(*f.ResponseDeadline))
}

// endOfDay returns the last instant of t's calendar day. Deadlines are
// date-valued; a quotation submitted any time on the deadline day is on time.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// Invited reports whether the vendor is on the invitation list.
func (f RFQ) Invited(vendorID int64) bool {
	for _, id := range f.VendorIDs {
		if id == vendorID {
			return true
		}
	}
	return false
}

// Quotation is a vendor's priced response to an RFQ. At most one non-draft
// quotation may exist per (RFQ, vendor) pair.
type Quotation struct {
	ID                    int64
	Number                string
	RFQID                 int64
	VendorID              int64
	UnitPrice             decimal.Decimal
	Quantity              int64
	Subtotal              decimal.Decimal
	TaxRate               decimal.Decimal
	TaxAmount             decimal.Decimal
	ShippingCost          decimal.Decimal
	TotalAmount           decimal.Decimal
	EstimatedDeliveryDays int
	ValidUntil            time.Time
	PaymentTerms          string
	WarrantyTerms         string
	AdditionalNotes       string
	Status                QuotationStatus
	ReviewNotes           string
	ReviewedBy            *int64
	ReviewedAt            *time.Time
	SubmittedAt           *time.Time
	CreatedAt             time.Time
}

// PurchaseOrder is the binding order issued to a vendor.
type PurchaseOrder struct {
	ID                   int64
	Number               string
	VendorID             int64
	RequestID            *int64
	QuotationID          *int64
	CreatedBy            int64
	AssignedTo           *int64
	OrderDate            time.Time
	ExpectedDeliveryDate *time.Time
	DeliveryDeadline     *time.Time
	Status               POStatus
	Subtotal             decimal.Decimal
	TaxAmount            decimal.Decimal
	ShippingCost         decimal.Decimal
	TotalAmount          decimal.Decimal
	TotalQuantity        int64
	TrackingNumber       string
	DelayReason          string
	Notes                string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// POItem is a purchase order line.
type POItem struct {
	ID               int64
	POID             int64
	ProductID        *int64
	ProductName      string
	Quantity         int64
	UnitPrice        decimal.Decimal
	LineTotal        decimal.Decimal
	ReceivedQuantity int64
}

// GoodsReceipt is an append-only record of physically received goods against
// a PO. Receipts are never updated or deleted.
type GoodsReceipt struct {
	ID                int64
	POID              int64
	DeliveredQuantity int64
	Condition         ReceiptCondition
	Notes             string
	ReceivedBy        int64
	ReceivedAt        time.Time
}

// Totals holds the computed monetary breakdown shared by quotations, purchase
// orders and invoices.
type Totals struct {
	Subtotal    decimal.Decimal
	TaxAmount   decimal.Decimal
	TotalAmount decimal.Decimal
}

// ComputeTotals derives subtotal, tax and grand total at 2 decimal places.
// subtotal = unit_price * qty; tax = subtotal * tax_rate / 100;
// total = subtotal + tax + shipping.
func ComputeTotals(unitPrice decimal.Decimal, quantity int64, taxRate, shippingCost decimal.Decimal) Totals {
	subtotal := unitPrice.Mul(decimal.NewFromInt(quantity)).Round(2)
	tax := subtotal.Mul(taxRate).Div(decimal.NewFromInt(100)).Round(2)
	total := subtotal.Add(tax).Add(shippingCost).Round(2)
	return Totals{Subtotal: subtotal, TaxAmount: tax, TotalAmount: total}
}
