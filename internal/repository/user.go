package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/order-management/internal/domain/user"
)

const getUserByUsernameSQL = `SELECT id, username, password_hash, role
	FROM users WHERE username = $1`

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByUsername returns the account for username, or user.ErrNotFound.
// A row with a role outside the closed role set is an error, not a default.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	var (
		u       user.User
		roleStr string
	)
	err := r.pool.QueryRow(ctx, getUserByUsernameSQL, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &roleStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user %q: %w", username, err)
	}

	u.Role, err = user.ParseRole(roleStr)
	if err != nil {
		return nil, fmt.Errorf("getting user %q: %w", username, err)
	}
	return &u, nil
}
