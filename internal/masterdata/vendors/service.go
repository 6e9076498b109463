package vendors

import (
	"context"
	"fmt"
	"strings"

	"github.com/procuredesk/procuredesk/internal/masterdata/shared"
	internalshared "github.com/procuredesk/procuredesk/internal/shared"
)

// Service wraps vendor onboarding and lifecycle rules.
type Service struct {
	repo Repository
}

// NewService constructs the vendor service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List pages vendors. Vendors themselves are not allowed to browse the
// directory.
func (s *Service) List(ctx context.Context, ident internalshared.Identity, filters shared.ListFilters) ([]Vendor, int, error) {
	if ident.IsVendor() {
		return nil, 0, internalshared.ErrForbidden
	}
	return s.repo.List(ctx, filters)
}

// Get returns one vendor. A vendor user may only read its own record.
func (s *Service) Get(ctx context.Context, ident internalshared.Identity, id int64) (Vendor, error) {
	if ident.IsVendor() && ident.VendorID != id {
		return Vendor{}, internalshared.ErrForbidden
	}
	return s.repo.Get(ctx, id)
}

// Create registers a vendor in the pending approval state. Admin only.
func (s *Service) Create(ctx context.Context, ident internalshared.Identity, v Vendor) (Vendor, error) {
	if !ident.IsAdmin() {
		return Vendor{}, internalshared.ErrForbidden
	}
	v.Code = strings.ToUpper(strings.TrimSpace(v.Code))
	v.CompanyName = strings.TrimSpace(v.CompanyName)
	if err := s.validate(v); err != nil {
		return Vendor{}, err
	}
	v.ApprovalStatus = ApprovalPending
	v.IsActive = true
	return s.repo.Create(ctx, v)
}

// Update edits contact and commercial fields. Approval state moves only
// through Approve/Reject/Suspend.
func (s *Service) Update(ctx context.Context, ident internalshared.Identity, id int64, v Vendor) (Vendor, error) {
	if !ident.IsAdmin() {
		return Vendor{}, internalshared.ErrForbidden
	}
	v.CompanyName = strings.TrimSpace(v.CompanyName)
	if err := s.validate(v); err != nil {
		return Vendor{}, err
	}
	ok, err := s.repo.Update(ctx, id, v)
	if err != nil {
		return Vendor{}, err
	}
	if !ok {
		return Vendor{}, internalshared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// Approve moves a pending or rejected vendor to approved.
func (s *Service) Approve(ctx context.Context, ident internalshared.Identity, id int64) (Vendor, error) {
	return s.moveApproval(ctx, ident, id, []ApprovalStatus{ApprovalPending, ApprovalRejected, ApprovalSuspended}, ApprovalApproved, "")
}

// Reject moves a pending vendor to rejected. A reason is required.
func (s *Service) Reject(ctx context.Context, ident internalshared.Identity, id int64, reason string) (Vendor, error) {
	if strings.TrimSpace(reason) == "" {
		return Vendor{}, fmt.Errorf("%w: rejection reason is required", internalshared.ErrValidation)
	}
	return s.moveApproval(ctx, ident, id, []ApprovalStatus{ApprovalPending}, ApprovalRejected, reason)
}

// Suspend takes an approved vendor out of circulation without rewriting its
// onboarding history.
func (s *Service) Suspend(ctx context.Context, ident internalshared.Identity, id int64, reason string) (Vendor, error) {
	return s.moveApproval(ctx, ident, id, []ApprovalStatus{ApprovalApproved}, ApprovalSuspended, reason)
}

func (s *Service) moveApproval(ctx context.Context, ident internalshared.Identity, id int64, from []ApprovalStatus, to ApprovalStatus, reason string) (Vendor, error) {
	if !ident.IsAdmin() {
		return Vendor{}, internalshared.ErrForbidden
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return Vendor{}, err
	}
	ok, err := s.repo.UpdateApproval(ctx, id, from, to, reason)
	if err != nil {
		return Vendor{}, err
	}
	if !ok {
		return Vendor{}, fmt.Errorf("%w: vendor is not in a state that allows %s", internalshared.ErrInvalidState, to)
	}
	return s.repo.Get(ctx, id)
}

// SetActive flips the active flag. Admin only.
func (s *Service) SetActive(ctx context.Context, ident internalshared.Identity, id int64, active bool) (Vendor, error) {
	if !ident.IsAdmin() {
		return Vendor{}, internalshared.ErrForbidden
	}
	ok, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return Vendor{}, err
	}
	if !ok {
		return Vendor{}, internalshared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// Lookup resolves a vendor without role checks, for in-process callers such
// as the procurement engine.
func (s *Service) Lookup(ctx context.Context, id int64) (Vendor, error) {
	return s.repo.Get(ctx, id)
}
