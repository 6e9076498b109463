package auth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/procuredesk/procuredesk/internal/shared"
)

// Service wraps authentication and account management rules.
type Service struct {
	repo   Repository
	tokens *TokenStore
}

// NewService constructs the auth service.
func NewService(repo Repository, tokens *TokenStore) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Login validates credentials and issues a bearer token. Failed lookups,
// wrong passwords and disabled accounts are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (User, string, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return User{}, "", fmt.Errorf("%w: invalid credentials", shared.ErrUnauthorized)
	}
	if !user.IsActive {
		return User{}, "", fmt.Errorf("%w: invalid credentials", shared.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, "", fmt.Errorf("%w: invalid credentials", shared.ErrUnauthorized)
	}
	token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return User{}, "", err
	}
	return user, token, nil
}

// Logout revokes the bearer token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// ResolveToken maps a bearer token to its user.
func (s *Service) ResolveToken(ctx context.Context, token string) (User, error) {
	userID, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return User{}, shared.ErrUnauthorized
	}
	if !user.IsActive {
		return User{}, shared.ErrUnauthorized
	}
	return user, nil
}

// CreateUserInput describes a new account.
type CreateUserInput struct {
	Email    string
	Name     string
	Password string
	Role     shared.Role
	VendorID *int64
}

// CreateUser registers an account. Admin only; vendor accounts must name the
// vendor they act for.
func (s *Service) CreateUser(ctx context.Context, ident shared.Identity, input CreateUserInput) (User, error) {
	if !ident.IsAdmin() {
		return User{}, shared.ErrForbidden
	}
	if !input.Role.Valid() {
		return User{}, fmt.Errorf("%w: unknown role %q", shared.ErrValidation, input.Role)
	}
	if input.Role == shared.RoleVendor && input.VendorID == nil {
		return User{}, fmt.Errorf("%w: vendor accounts require a vendor", shared.ErrValidation)
	}
	if input.Role != shared.RoleVendor && input.VendorID != nil {
		return User{}, fmt.Errorf("%w: only vendor accounts carry a vendor", shared.ErrValidation)
	}
	if len(input.Password) < 8 {
		return User{}, fmt.Errorf("%w: password must be at least 8 characters", shared.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	u := User{
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: string(hash),
		Role:         input.Role,
		VendorID:     input.VendorID,
		IsActive:     true,
	}
	id, err := s.repo.Create(ctx, u)
	if err != nil {
		return User{}, err
	}
	u.ID = id
	return u, nil
}

// ListUsers pages accounts, optionally filtered by role. Admin only.
func (s *Service) ListUsers(ctx context.Context, ident shared.Identity, role shared.Role, limit, offset int) ([]User, int, error) {
	if !ident.IsAdmin() {
		return nil, 0, shared.ErrForbidden
	}
	return s.repo.List(ctx, role, limit, offset)
}

// SetUserActive enables or disables an account. Admin only; admins cannot
// disable themselves.
func (s *Service) SetUserActive(ctx context.Context, ident shared.Identity, id int64, active bool) error {
	if !ident.IsAdmin() {
		return shared.ErrForbidden
	}
	if id == ident.UserID && !active {
		return fmt.Errorf("%w: cannot disable your own account", shared.ErrValidation)
	}
	ok, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return err
	}
	if !ok {
		return shared.ErrNotFound
	}
	return nil
}
