package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice lifecycle statuses. Overdue is never stored; it is derived from the
// due date at read time.
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusApproved  InvoiceStatus = "approved"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Payment methods.
type PaymentMethod string

const (
	MethodRazorpay     PaymentMethod = "razorpay"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCheck        PaymentMethod = "check"
	MethodCash         PaymentMethod = "cash"
	MethodCreditCard   PaymentMethod = "credit_card"
	MethodOther        PaymentMethod = "other"
)

// Valid reports whether the method is one of the known values.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodRazorpay, MethodBankTransfer, MethodCheck, MethodCash, MethodCreditCard, MethodOther:
		return true
	}
	return false
}

// Invoice bills a purchase order. Amounts are snapshotted from the PO at
// creation and never change afterwards; only paid_amount moves, through the
// payment ledger.
type Invoice struct {
	ID          int64
	Number      string
	POID        int64
	VendorID    int64
	CreatedBy   int64
	InvoiceDate time.Time
	DueDate     time.Time
	Subtotal    decimal.Decimal
	TaxAmount   decimal.Decimal
	TotalAmount decimal.Decimal
	PaidAmount  decimal.Decimal
	Status      InvoiceStatus
	Notes       string
	FilePath    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Outstanding returns the unpaid balance.
func (inv Invoice) Outstanding() decimal.Decimal {
	return inv.TotalAmount.Sub(inv.PaidAmount)
}

// Overdue reports whether the invoice is past due and still carries a balance.
func (inv Invoice) Overdue(now time.Time) bool {
	if inv.Status == InvoiceStatusPaid || inv.Status == InvoiceStatusCancelled {
		return false
	}
	return now.After(inv.DueDate)
}

// Payment is one append-only ledger entry against an invoice.
type Payment struct {
	ID         int64
	InvoiceID  int64
	Amount     decimal.Decimal
	Method     PaymentMethod
	Reference  string
	PaidAt     time.Time
	RecordedBy int64
	Notes      string
}
