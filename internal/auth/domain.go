package auth

import (
	"time"

	"github.com/procuredesk/procuredesk/internal/shared"
)

// User is an account that can sign in. Vendor users carry the vendor they act
// for; admin and employee users do not.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         shared.Role
	VendorID     *int64
	IsActive     bool
	CreatedAt    time.Time
}

// Identity converts the user into the request-scoped identity.
func (u User) Identity() shared.Identity {
	ident := shared.Identity{UserID: u.ID, Role: u.Role}
	if u.VendorID != nil {
		ident.VendorID = *u.VendorID
	}
	return ident
}
