package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/procuredesk/procuredesk/internal/masterdata/shared"
	internalshared "github.com/procuredesk/procuredesk/internal/shared"
)

// Service wraps product catalogue rules.
type Service struct {
	repo Repository
}

// NewService constructs the product service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

// Create adds a product. Admin only. A blank code is filled in from the
// product code sequence as PRD-xxxx.
func (s *Service) Create(ctx context.Context, ident internalshared.Identity, p Product) (Product, error) {
	if !ident.IsAdmin() {
		return Product{}, internalshared.ErrForbidden
	}
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	if p.Code == "" {
		n, err := s.repo.NextCodeNumber(ctx)
		if err != nil {
			return Product{}, err
		}
		p.Code = fmt.Sprintf("PRD-%04d", n)
	}
	if err := s.validate(p); err != nil {
		return Product{}, err
	}
	p.IsActive = true
	return s.repo.Create(ctx, p)
}

func (s *Service) Update(ctx context.Context, ident internalshared.Identity, id int64, p Product) (Product, error) {
	if !ident.IsAdmin() {
		return Product{}, internalshared.ErrForbidden
	}
	if err := s.validate(p); err != nil {
		return Product{}, err
	}
	ok, err := s.repo.Update(ctx, id, p)
	if err != nil {
		return Product{}, err
	}
	if !ok {
		return Product{}, internalshared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) SetActive(ctx context.Context, ident internalshared.Identity, id int64, active bool) (Product, error) {
	if !ident.IsAdmin() {
		return Product{}, internalshared.ErrForbidden
	}
	ok, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return Product{}, err
	}
	if !ok {
		return Product{}, internalshared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}
