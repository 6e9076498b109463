package notify

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/procuredesk/procuredesk/internal/procurement"
)

type memoryNotifyRepo struct {
	rows   []Notification
	nextID int64
	fail   bool
}

func (r *memoryNotifyRepo) Insert(ctx context.Context, n Notification) (int64, error) {
	if r.fail {
		return 0, errors.New("storage down")
	}
	r.nextID++
	n.ID = r.nextID
	r.rows = append(r.rows, n)
	return n.ID, nil
}

func (r *memoryNotifyRepo) ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]Notification, int, error) {
	out := []Notification{}
	for _, n := range r.rows {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	return out, len(out), nil
}

func (r *memoryNotifyRepo) MarkRead(ctx context.Context, userID, id int64) (bool, error) {
	for i, n := range r.rows {
		if n.ID == id && n.UserID == userID {
			r.rows[i].Read = true
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryNotifyRepo) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	var count int64
	for i, n := range r.rows {
		if n.UserID == userID && !n.Read {
			r.rows[i].Read = true
			count++
		}
	}
	return count, nil
}

type staticDirectory struct{}

func (staticDirectory) VendorUsers(ctx context.Context, vendorID int64) ([]UserRef, error) {
	return []UserRef{{ID: vendorID * 100, Email: "vendor@example.com"}}, nil
}

func (staticDirectory) AdminUsers(ctx context.Context) ([]UserRef, error) {
	return []UserRef{{ID: 1, Email: "admin@example.com"}}, nil
}

type recordingMailer struct {
	sent []string
	fail bool
}

func (m *recordingMailer) EnqueueEmail(ctx context.Context, to, subject, body string) error {
	if m.fail {
		return errors.New("queue down")
	}
	m.sent = append(m.sent, to+": "+subject)
	return nil
}

func TestRFQInvitedFanOut(t *testing.T) {
	repo := &memoryNotifyRepo{}
	mailer := &recordingMailer{}
	svc := NewService(repo, staticDirectory{}, mailer, slog.Default())

	svc.RFQInvited(context.Background(), procurement.RFQInvitedEvent{
		RFQID: 5, RFQNumber: "RFQ-5", VendorID: 10, ItemName: "Laptops",
	})

	require.Len(t, repo.rows, 1)
	require.Equal(t, int64(1000), repo.rows[0].UserID)
	require.Equal(t, TypeRFQInvited, repo.rows[0].Type)
	require.Equal(t, "rfq", repo.rows[0].RelatedType)
	require.Len(t, mailer.sent, 1)
}

func TestPOCreatedFormatsAmount(t *testing.T) {
	repo := &memoryNotifyRepo{}
	svc := NewService(repo, staticDirectory{}, nil, slog.Default())

	svc.POCreated(context.Background(), procurement.POCreatedEvent{
		POID: 7, PONumber: "PO-7", VendorID: 10, Total: decimal.RequireFromString("118500"),
	})

	require.Len(t, repo.rows, 1)
	require.Contains(t, repo.rows[0].Message, "118,500.00")
}

func TestDeliveryFailuresAreSwallowed(t *testing.T) {
	repo := &memoryNotifyRepo{fail: true}
	mailer := &recordingMailer{fail: true}
	svc := NewService(repo, staticDirectory{}, mailer, slog.Default())

	// Must not panic or surface the error.
	svc.QuotationDecided(context.Background(), procurement.QuotationDecidedEvent{
		QuotationID: 3, RFQNumber: "RFQ-3", VendorID: 10, Accepted: false, Reason: "price",
	})
	require.Empty(t, repo.rows)
}

func TestMarkRead(t *testing.T) {
	repo := &memoryNotifyRepo{}
	svc := NewService(repo, staticDirectory{}, nil, slog.Default())
	ctx := context.Background()

	svc.RFQInvited(ctx, procurement.RFQInvitedEvent{RFQID: 1, RFQNumber: "RFQ-1", VendorID: 10, ItemName: "Desks"})
	svc.RFQInvited(ctx, procurement.RFQInvitedEvent{RFQID: 2, RFQNumber: "RFQ-2", VendorID: 10, ItemName: "Chairs"})

	items, total, err := svc.ListNotifications(ctx, 1000, true, 50, 0)
	require.NoError(t, err)
	require.Equal(t, 2, total)

	ok, err := svc.MarkRead(ctx, 1000, items[0].ID)
	require.NoError(t, err)
	require.True(t, ok)

	// Foreign user cannot mark it.
	ok, err = svc.MarkRead(ctx, 9999, items[1].ID)
	require.NoError(t, err)
	require.False(t, ok)

	n, err := svc.MarkAllRead(ctx, 1000)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}
