package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/procuredesk/procuredesk/internal/billing"
	jobmetrics "github.com/procuredesk/procuredesk/internal/jobs"
)

const (
	// TaskInvoiceOverdueScan triggers the nightly sweep for unpaid invoices
	// past their due date.
	TaskInvoiceOverdueScan = "billing:overdue_scan"
)

// InvoiceOverdueScanPayload carries scheduling metadata.
type InvoiceOverdueScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewInvoiceOverdueScanTask constructs an Asynq task for the overdue sweep.
func NewInvoiceOverdueScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(InvoiceOverdueScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceOverdueScan, body, asynq.Queue(QueueDefault)), nil
}

// OverdueSource lists unpaid invoices past due at a point in time.
type OverdueSource interface {
	ListOverdue(ctx context.Context, asOf time.Time) ([]billing.Invoice, error)
}

// OverdueNotifier fans an overdue invoice out to its vendor's users.
type OverdueNotifier interface {
	InvoiceOverdue(ctx context.Context, vendorID, invoiceID int64, number string, outstanding decimal.Decimal)
}

// OverdueScanner walks overdue invoices and notifies vendors.
type OverdueScanner struct {
	source   OverdueSource
	notifier OverdueNotifier
	logger   *slog.Logger
	metrics  *jobmetrics.Metrics
	now      func() time.Time
}

// NewOverdueScanner constructs the scanner.
func NewOverdueScanner(source OverdueSource, notifier OverdueNotifier, logger *slog.Logger) *OverdueScanner {
	return &OverdueScanner{
		source:   source,
		notifier: notifier,
		logger:   logger,
		metrics:  jobmetrics.NewMetrics(nil),
		now:      time.Now,
	}
}

// Handle processes TaskInvoiceOverdueScan tasks.
func (s *OverdueScanner) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := s.metrics.Track("invoice_overdue_scan")
	var payload InvoiceOverdueScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		tracker.End(err)
		return asynq.SkipRetry
	}
	invoices, err := s.source.ListOverdue(ctx, s.now())
	if err != nil {
		return tracker.End(err)
	}
	for _, inv := range invoices {
		s.notifier.InvoiceOverdue(ctx, inv.VendorID, inv.ID, inv.Number, inv.Outstanding())
	}
	s.logger.Info("overdue invoice scan finished", slog.Int("overdue", len(invoices)))
	return tracker.End(nil)
}
