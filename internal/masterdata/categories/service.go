package categories

import (
	"context"
	"fmt"
	"strings"

	"github.com/procuredesk/procuredesk/internal/masterdata/shared"
	internalshared "github.com/procuredesk/procuredesk/internal/shared"
)

// Service wraps category rules.
type Service struct {
	repo Repository
}

// NewService constructs the category service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Category, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Category, error) {
	return s.repo.Get(ctx, id)
}

// Create adds a category. Admin only; names are unique.
func (s *Service) Create(ctx context.Context, ident internalshared.Identity, c Category) (Category, error) {
	if !ident.IsAdmin() {
		return Category{}, internalshared.ErrForbidden
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Category{}, fmt.Errorf("%w: category name is required", internalshared.ErrValidation)
	}
	c.IsActive = true
	return s.repo.Create(ctx, c)
}

func (s *Service) Update(ctx context.Context, ident internalshared.Identity, id int64, c Category) (Category, error) {
	if !ident.IsAdmin() {
		return Category{}, internalshared.ErrForbidden
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Category{}, fmt.Errorf("%w: category name is required", internalshared.ErrValidation)
	}
	ok, err := s.repo.Update(ctx, id, c)
	if err != nil {
		return Category{}, err
	}
	if !ok {
		return Category{}, internalshared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) SetActive(ctx context.Context, ident internalshared.Identity, id int64, active bool) (Category, error) {
	if !ident.IsAdmin() {
		return Category{}, internalshared.ErrForbidden
	}
	ok, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return Category{}, err
	}
	if !ok {
		return Category{}, internalshared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}
