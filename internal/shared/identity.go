package shared

import "context"

// Role enumerates the three actor roles known to the engine.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
	RoleVendor   Role = "vendor"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEmployee, RoleVendor:
		return true
	}
	return false
}

// Identity is the request-scoped authorization context resolved by the auth
// middleware and passed into every engine call. VendorID is non-zero only for
// vendor users.
type Identity struct {
	UserID   int64
	Role     Role
	VendorID int64
}

// IsAdmin reports whether the identity carries the admin role.
func (id Identity) IsAdmin() bool { return id.Role == RoleAdmin }

// IsVendor reports whether the identity carries the vendor role.
func (id Identity) IsVendor() bool { return id.Role == RoleVendor }

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context. The zero Identity
// means the request is unauthenticated.
func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityContextKey{}).(Identity)
	return id
}
