package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/procuredesk/procuredesk/internal/shared"
)

type memoryUserRepo struct {
	users  map[int64]User
	nextID int64
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[int64]User)}
}

func (r *memoryUserRepo) FindByEmail(ctx context.Context, email string) (User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, shared.ErrNotFound
}

func (r *memoryUserRepo) FindByID(ctx context.Context, id int64) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (r *memoryUserRepo) Create(ctx context.Context, u User) (int64, error) {
	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = time.Now()
	r.users[u.ID] = u
	return u.ID, nil
}

func (r *memoryUserRepo) List(ctx context.Context, role shared.Role, limit, offset int) ([]User, int, error) {
	out := []User{}
	for _, u := range r.users {
		if role != "" && u.Role != role {
			continue
		}
		out = append(out, u)
	}
	return out, len(out), nil
}

func (r *memoryUserRepo) SetActive(ctx context.Context, id int64, active bool) (bool, error) {
	u, ok := r.users[id]
	if !ok {
		return false, nil
	}
	u.IsActive = active
	r.users[id] = u
	return true, nil
}

func newTestAuth(t *testing.T) (*Service, *memoryUserRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := newMemoryUserRepo()
	return NewService(repo, NewTokenStore(client, time.Hour)), repo
}

func seedUser(t *testing.T, repo *memoryUserRepo, email, password string, role shared.Role, active bool) User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := User{Email: email, Name: "Test User", PasswordHash: string(hash), Role: role, IsActive: active}
	id, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	u.ID = id
	return u
}

func TestLoginAndResolve(t *testing.T) {
	svc, repo := newTestAuth(t)
	ctx := context.Background()
	seedUser(t, repo, "admin@example.com", "correct horse", shared.RoleAdmin, true)

	user, token, err := svc.Login(ctx, "Admin@Example.com ", "correct horse")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, shared.RoleAdmin, user.Role)

	resolved, err := svc.ResolveToken(ctx, token)
	require.NoError(t, err)
	require.Equal(t, user.ID, resolved.ID)

	require.NoError(t, svc.Logout(ctx, token))
	_, err = svc.ResolveToken(ctx, token)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestLoginFailures(t *testing.T) {
	svc, repo := newTestAuth(t)
	ctx := context.Background()
	seedUser(t, repo, "user@example.com", "password123", shared.RoleEmployee, true)
	seedUser(t, repo, "inactive@example.com", "password123", shared.RoleEmployee, false)

	_, _, err := svc.Login(ctx, "user@example.com", "wrong password")
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	_, _, err = svc.Login(ctx, "unknown@example.com", "password123")
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	_, _, err = svc.Login(ctx, "inactive@example.com", "password123")
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestCreateUserRules(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()
	admin := shared.Identity{UserID: 1, Role: shared.RoleAdmin}

	vendorID := int64(10)
	u, err := svc.CreateUser(ctx, admin, CreateUserInput{
		Email: "Vendor@Example.com", Name: "Vendor User", Password: "password123",
		Role: shared.RoleVendor, VendorID: &vendorID,
	})
	require.NoError(t, err)
	require.Equal(t, "vendor@example.com", u.Email)
	require.Equal(t, vendorID, u.Identity().VendorID)

	_, err = svc.CreateUser(ctx, admin, CreateUserInput{
		Email: "v2@example.com", Name: "V2", Password: "password123", Role: shared.RoleVendor,
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateUser(ctx, admin, CreateUserInput{
		Email: "e@example.com", Name: "E", Password: "password123", Role: shared.RoleEmployee, VendorID: &vendorID,
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateUser(ctx, admin, CreateUserInput{
		Email: "short@example.com", Name: "S", Password: "short", Role: shared.RoleEmployee,
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	employee := shared.Identity{UserID: 2, Role: shared.RoleEmployee}
	_, err = svc.CreateUser(ctx, employee, CreateUserInput{
		Email: "x@example.com", Name: "X", Password: "password123", Role: shared.RoleEmployee,
	})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestSetUserActive(t *testing.T) {
	svc, repo := newTestAuth(t)
	ctx := context.Background()
	// The seeded employee takes the first repo ID, so the admin identity must
	// not collide with it or the self-disable guard kicks in.
	admin := shared.Identity{UserID: 99, Role: shared.RoleAdmin}
	u := seedUser(t, repo, "emp@example.com", "password123", shared.RoleEmployee, true)
	require.NotEqual(t, admin.UserID, u.ID)

	require.NoError(t, svc.SetUserActive(ctx, admin, u.ID, false))
	cur, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, cur.IsActive)

	err = svc.SetUserActive(ctx, shared.Identity{UserID: u.ID, Role: shared.RoleAdmin}, u.ID, false)
	require.ErrorIs(t, err, shared.ErrValidation)

	require.ErrorIs(t, svc.SetUserActive(ctx, admin, 9999, true), shared.ErrNotFound)
}
