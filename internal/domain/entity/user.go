// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is the core entity in the system, representing a unique account.
// It carries the credential hash and role memberships alongside identity data,
// mirroring the identity store this service fronts.
type User struct {
	ID             uuid.UUID // The unique identifier for the user.
	Email          string    // The user's email, used as the login identifier and token subject.
	Name           string    // The user's display name.
	PasswordHash   string    // The bcrypt-hashed password for email/password sign-in.
	EmailConfirmed bool      // Whether the user has confirmed their email; unconfirmed accounts may not sign in.
	Roles          Roles     // The user's role memberships, in assignment order.
	CreatedAt      time.Time // Timestamp of when this user account was created.
	UpdatedAt      time.Time // Timestamp of the last modification to this user's data.
}

// CanSignIn reports whether the account is allowed to authenticate.
func (u *User) CanSignIn() bool {
	return u.EmailConfirmed
}
