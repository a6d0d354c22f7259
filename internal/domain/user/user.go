// Package user defines the account entity and its lookup port.
package user

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("user not found")

// Role classifies a user account. The set is closed.
type Role string

const (
	RoleUser    Role = "user"
	RolePremium Role = "premium_user"
	RoleAdmin   Role = "admin"
)

// ParseRole converts a stored role string to a Role. Unknown values are an
// error rather than defaulting to RoleUser.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RolePremium, RoleAdmin:
		return Role(s), nil
	default:
		return "", errors.Errorf("unknown role %q", s)
	}
}

// User represents an account able to authenticate and place orders.
// PasswordHash holds a bcrypt hash, never a plaintext credential.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         Role
}

// IsAdmin reports whether the user may manage the product catalog.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Repository defines lookup operations for user accounts.
type Repository interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
}
