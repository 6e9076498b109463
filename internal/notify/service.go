package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/procuredesk/procuredesk/internal/procurement"
)

// RepositoryPort is the notification storage surface.
type RepositoryPort interface {
	Insert(ctx context.Context, n Notification) (int64, error)
	ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]Notification, int, error)
	MarkRead(ctx context.Context, userID, id int64) (bool, error)
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
}

// UserRef is a deliverable recipient.
type UserRef struct {
	ID    int64
	Email string
	Name  string
}

// Directory resolves event recipients.
type Directory interface {
	VendorUsers(ctx context.Context, vendorID int64) ([]UserRef, error)
	AdminUsers(ctx context.Context) ([]UserRef, error)
}

// Mailer enqueues transactional email. Delivery is best-effort.
type Mailer interface {
	EnqueueEmail(ctx context.Context, to, subject, body string) error
}

// Service fans workflow events out to notification rows and email. It
// implements the procurement Notifier port; every method swallows errors
// after logging because notifications never fail the triggering request.
type Service struct {
	repo    RepositoryPort
	users   Directory
	mailer  Mailer
	logger  *slog.Logger
	printer *message.Printer
}

// NewService constructs the notification service.
func NewService(repo RepositoryPort, users Directory, mailer Mailer, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		users:   users,
		mailer:  mailer,
		logger:  logger,
		printer: message.NewPrinter(language.English),
	}
}

var _ procurement.Notifier = (*Service)(nil)

// RFQInvited notifies a vendor's users about a new RFQ.
func (s *Service) RFQInvited(ctx context.Context, ev procurement.RFQInvitedEvent) {
	title := fmt.Sprintf("New RFQ %s", ev.RFQNumber)
	msg := fmt.Sprintf("You have been invited to quote for %q (RFQ %s).", ev.ItemName, ev.RFQNumber)
	s.fanOutToVendor(ctx, ev.VendorID, TypeRFQInvited, title, msg, "rfq", ev.RFQID)
}

// QuotationDecided notifies a vendor about the outcome of their quotation.
func (s *Service) QuotationDecided(ctx context.Context, ev procurement.QuotationDecidedEvent) {
	var title, msg string
	if ev.Accepted {
		title = fmt.Sprintf("Quotation accepted on RFQ %s", ev.RFQNumber)
		msg = fmt.Sprintf("Your quotation for RFQ %s was accepted.", ev.RFQNumber)
	} else {
		title = fmt.Sprintf("Quotation not selected on RFQ %s", ev.RFQNumber)
		msg = fmt.Sprintf("Your quotation for RFQ %s was not selected.", ev.RFQNumber)
		if ev.Reason != "" {
			msg += " Reason: " + ev.Reason
		}
	}
	s.fanOutToVendor(ctx, ev.VendorID, TypeQuotationOutcome, title, msg, "quotation", ev.QuotationID)
}

// POCreated notifies the vendor about a new purchase order.
func (s *Service) POCreated(ctx context.Context, ev procurement.POCreatedEvent) {
	title := fmt.Sprintf("Purchase order %s issued", ev.PONumber)
	msg := fmt.Sprintf("Purchase order %s for %s has been created.", ev.PONumber, s.amount(ev.Total))
	s.fanOutToVendor(ctx, ev.VendorID, TypePOCreated, title, msg, "purchase_order", ev.POID)
}

// POStatusChanged notifies admins about delivery-side status changes.
func (s *Service) POStatusChanged(ctx context.Context, ev procurement.POStatusChangedEvent) {
	title := fmt.Sprintf("Purchase order %s is now %s", ev.PONumber, ev.Status)
	msg := title + "."
	if ev.Reason != "" {
		msg = fmt.Sprintf("%s Reason: %s", msg, ev.Reason)
	}
	admins, err := s.users.AdminUsers(ctx)
	if err != nil {
		s.logger.Warn("notify: resolve admins failed", "error", err)
		return
	}
	s.deliver(ctx, admins, TypePOStatus, title, msg, "purchase_order", ev.POID)
}

// InvoiceOverdue notifies the vendor that an invoice is past due. Used by the
// overdue scan job.
func (s *Service) InvoiceOverdue(ctx context.Context, vendorID, invoiceID int64, number string, outstanding decimal.Decimal) {
	title := fmt.Sprintf("Invoice %s is overdue", number)
	msg := fmt.Sprintf("Invoice %s has an outstanding balance of %s past its due date.", number, s.amount(outstanding))
	s.fanOutToVendor(ctx, vendorID, TypeInvoiceOverdue, title, msg, "invoice", invoiceID)
}

func (s *Service) fanOutToVendor(ctx context.Context, vendorID int64, typ, title, msg, relatedType string, relatedID int64) {
	users, err := s.users.VendorUsers(ctx, vendorID)
	if err != nil {
		s.logger.Warn("notify: resolve vendor users failed", "vendor_id", vendorID, "error", err)
		return
	}
	s.deliver(ctx, users, typ, title, msg, relatedType, relatedID)
}

func (s *Service) deliver(ctx context.Context, users []UserRef, typ, title, msg, relatedType string, relatedID int64) {
	for _, u := range users {
		if _, err := s.repo.Insert(ctx, Notification{
			UserID:      u.ID,
			Type:        typ,
			Title:       title,
			Message:     msg,
			RelatedType: relatedType,
			RelatedID:   relatedID,
		}); err != nil {
			s.logger.Warn("notify: insert failed", "user_id", u.ID, "type", typ, "error", err)
		}
		if s.mailer == nil || u.Email == "" {
			continue
		}
		if err := s.mailer.EnqueueEmail(ctx, u.Email, title, msg); err != nil {
			s.logger.Warn("notify: enqueue email failed", "user_id", u.ID, "error", err)
		}
	}
}

// amount renders a decimal with thousands separators for message bodies.
func (s *Service) amount(d decimal.Decimal) string {
	f, _ := d.Float64()
	return s.printer.Sprintf("%.2f", f)
}

// ListNotifications returns the caller's notifications.
func (s *Service) ListNotifications(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]Notification, int, error) {
	return s.repo.ListForUser(ctx, userID, unreadOnly, limit, offset)
}

// MarkRead flags one notification as read.
func (s *Service) MarkRead(ctx context.Context, userID, id int64) (bool, error) {
	return s.repo.MarkRead(ctx, userID, id)
}

// MarkAllRead flags all of the caller's notifications as read.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
