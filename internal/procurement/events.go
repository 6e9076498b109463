package procurement

import (
	"context"

	"github.com/shopspring/decimal"
)

// RFQInvitedEvent is emitted per invited vendor after an RFQ is sent.
type RFQInvitedEvent struct {
	RFQID      int64
	RFQNumber  string
	RequestID  int64
	ItemName   string
	VendorID   int64
	AdminNotes string
}

// QuotationDecidedEvent is emitted when a quotation is accepted or rejected.
type QuotationDecidedEvent struct {
	QuotationID int64
	RFQNumber   string
	VendorID    int64
	Accepted    bool
	Reason      string
}

// POCreatedEvent is emitted when a purchase order is created from an accepted
// quotation.
type POCreatedEvent struct {
	POID     int64
	PONumber string
	VendorID int64
	Total    decimal.Decimal
}

// POStatusChangedEvent is emitted when a delivery-side status update lands.
type POStatusChangedEvent struct {
	POID     int64
	PONumber string
	VendorID int64
	Status   POStatus
	Reason   string
}

// Notifier receives workflow events after commit. Implementations must be
// best-effort: failures are logged by the notifier, never surfaced to the
// caller, and never roll back the originating transaction.
type Notifier interface {
	RFQInvited(ctx context.Context, evt RFQInvitedEvent)
	QuotationDecided(ctx context.Context, evt QuotationDecidedEvent)
	POCreated(ctx context.Context, evt POCreatedEvent)
	POStatusChanged(ctx context.Context, evt POStatusChangedEvent)
}
