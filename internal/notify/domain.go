package notify

import "time"

// Notification types.
const (
	TypeRFQInvited       = "rfq_invited"
	TypeQuotationOutcome = "quotation_outcome"
	TypePOCreated        = "po_created"
	TypePOStatus         = "po_status"
	TypeInvoiceOverdue   = "invoice_overdue"
)

// Notification is one in-app message for a user.
type Notification struct {
	ID          int64
	UserID      int64
	Type        string
	Title       string
	Message     string
	RelatedType string
	RelatedID   int64
	Read        bool
	CreatedAt   time.Time
}
