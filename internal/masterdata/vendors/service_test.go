package vendors

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/procuredesk/procuredesk/internal/masterdata/shared"
	internalshared "github.com/procuredesk/procuredesk/internal/shared"
)

type memoryVendorRepo struct {
	vendors map[int64]Vendor
	nextID  int64
}

func newMemoryVendorRepo() *memoryVendorRepo {
	return &memoryVendorRepo{vendors: make(map[int64]Vendor)}
}

func (r *memoryVendorRepo) List(ctx context.Context, filters shared.ListFilters) ([]Vendor, int, error) {
	out := []Vendor{}
	for _, v := range r.vendors {
		if filters.Approval != "" && string(v.ApprovalStatus) != filters.Approval {
			continue
		}
		if filters.IsActive != nil && v.IsActive != *filters.IsActive {
			continue
		}
		out = append(out, v)
	}
	return out, len(out), nil
}

func (r *memoryVendorRepo) Get(ctx context.Context, id int64) (Vendor, error) {
	v, ok := r.vendors[id]
	if !ok {
		return Vendor{}, internalshared.ErrNotFound
	}
	return v, nil
}

func (r *memoryVendorRepo) Create(ctx context.Context, v Vendor) (Vendor, error) {
	for _, cur := range r.vendors {
		if cur.Code == v.Code {
			return Vendor{}, internalshared.ErrConflict
		}
	}
	r.nextID++
	v.ID = r.nextID
	v.CreatedAt = time.Now()
	v.UpdatedAt = v.CreatedAt
	r.vendors[v.ID] = v
	return v, nil
}

func (r *memoryVendorRepo) Update(ctx context.Context, id int64, v Vendor) (bool, error) {
	cur, ok := r.vendors[id]
	if !ok {
		return false, nil
	}
	cur.CompanyName = v.CompanyName
	cur.ContactName = v.ContactName
	cur.Email = v.Email
	cur.Phone = v.Phone
	cur.Address = v.Address
	cur.PaymentTerms = v.PaymentTerms
	cur.CreditLimit = v.CreditLimit
	cur.Rating = v.Rating
	r.vendors[id] = cur
	return true, nil
}

func (r *memoryVendorRepo) UpdateApproval(ctx context.Context, id int64, from []ApprovalStatus, to ApprovalStatus, reason string) (bool, error) {
	cur, ok := r.vendors[id]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, s := range from {
		if cur.ApprovalStatus == s {
			allowed = true
		}
	}
	if !allowed {
		return false, nil
	}
	cur.ApprovalStatus = to
	cur.RejectionReason = reason
	r.vendors[id] = cur
	return true, nil
}

func (r *memoryVendorRepo) SetActive(ctx context.Context, id int64, active bool) (bool, error) {
	cur, ok := r.vendors[id]
	if !ok {
		return false, nil
	}
	cur.IsActive = active
	r.vendors[id] = cur
	return true, nil
}

var (
	adminIdent    = internalshared.Identity{UserID: 1, Role: internalshared.RoleAdmin}
	employeeIdent = internalshared.Identity{UserID: 2, Role: internalshared.RoleEmployee}
)

func seedVendor(t *testing.T, svc *Service) Vendor {
	t.Helper()
	v, err := svc.Create(context.Background(), adminIdent, Vendor{
		Code:        "acme-01",
		CompanyName: "Acme Industrial",
		Email:       "sales@acme.test",
		CreditLimit: decimal.NewFromInt(250000),
		Rating:      4.5,
	})
	require.NoError(t, err)
	return v
}

func TestCreateVendorStartsPending(t *testing.T) {
	svc := NewService(newMemoryVendorRepo())
	v := seedVendor(t, svc)

	require.Equal(t, "ACME-01", v.Code)
	require.Equal(t, ApprovalPending, v.ApprovalStatus)
	require.True(t, v.IsActive)
}

func TestCreateVendorValidation(t *testing.T) {
	svc := NewService(newMemoryVendorRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, adminIdent, Vendor{CompanyName: "No Code"})
	require.ErrorIs(t, err, internalshared.ErrValidation)

	_, err = svc.Create(ctx, adminIdent, Vendor{Code: "X", CompanyName: "X", Rating: 6})
	require.ErrorIs(t, err, internalshared.ErrValidation)

	_, err = svc.Create(ctx, adminIdent, Vendor{Code: "X", CompanyName: "X", CreditLimit: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, internalshared.ErrValidation)

	_, err = svc.Create(ctx, employeeIdent, Vendor{Code: "X", CompanyName: "X"})
	require.ErrorIs(t, err, internalshared.ErrForbidden)
}

func TestApprovalLifecycle(t *testing.T) {
	svc := NewService(newMemoryVendorRepo())
	ctx := context.Background()
	v := seedVendor(t, svc)

	_, err := svc.Reject(ctx, adminIdent, v.ID, "   ")
	require.ErrorIs(t, err, internalshared.ErrValidation)

	rejected, err := svc.Reject(ctx, adminIdent, v.ID, "incomplete paperwork")
	require.NoError(t, err)
	require.Equal(t, ApprovalRejected, rejected.ApprovalStatus)
	require.Equal(t, "incomplete paperwork", rejected.RejectionReason)

	// Rejected vendors can still be approved after remediation.
	approved, err := svc.Approve(ctx, adminIdent, v.ID)
	require.NoError(t, err)
	require.Equal(t, ApprovalApproved, approved.ApprovalStatus)

	// But an approved vendor cannot be rejected, only suspended.
	_, err = svc.Reject(ctx, adminIdent, v.ID, "too late")
	require.ErrorIs(t, err, internalshared.ErrInvalidState)

	suspended, err := svc.Suspend(ctx, adminIdent, v.ID, "quality incidents")
	require.NoError(t, err)
	require.Equal(t, ApprovalSuspended, suspended.ApprovalStatus)
}

func TestApprovalRequiresAdmin(t *testing.T) {
	svc := NewService(newMemoryVendorRepo())
	v := seedVendor(t, svc)

	_, err := svc.Approve(context.Background(), employeeIdent, v.ID)
	require.ErrorIs(t, err, internalshared.ErrForbidden)
}

func TestVendorScopedGet(t *testing.T) {
	svc := NewService(newMemoryVendorRepo())
	ctx := context.Background()
	v := seedVendor(t, svc)

	own := internalshared.Identity{UserID: 9, Role: internalshared.RoleVendor, VendorID: v.ID}
	got, err := svc.Get(ctx, own, v.ID)
	require.NoError(t, err)
	require.Equal(t, v.ID, got.ID)

	foreign := internalshared.Identity{UserID: 10, Role: internalshared.RoleVendor, VendorID: v.ID + 1}
	_, err = svc.Get(ctx, foreign, v.ID)
	require.ErrorIs(t, err, internalshared.ErrForbidden)

	_, _, err = svc.List(ctx, own, shared.ListFilters{})
	require.ErrorIs(t, err, internalshared.ErrForbidden)
}

func TestSetActive(t *testing.T) {
	svc := NewService(newMemoryVendorRepo())
	ctx := context.Background()
	v := seedVendor(t, svc)

	off, err := svc.SetActive(ctx, adminIdent, v.ID, false)
	require.NoError(t, err)
	require.False(t, off.IsActive)

	_, err = svc.SetActive(ctx, adminIdent, 404, true)
	require.ErrorIs(t, err, internalshared.ErrNotFound)
}
