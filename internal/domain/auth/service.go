package auth

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/order-management/internal/domain/user"
)

// ErrInvalidCredentials is returned for bad username/password combinations.
// It deliberately carries no detail about which part was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service authenticates users and issues tokens.
type Service struct {
	users  user.Repository
	tokens *TokenProvider
}

// NewService creates an auth Service over the user repository and token
// provider.
func NewService(users user.Repository, tokens *TokenProvider) *Service {
	return &Service{users: users, tokens: tokens}
}

// Authenticate verifies the credentials and returns a signed token. Unknown
// usernames and wrong passwords both map to ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (string, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", errors.Wrap(err, "get user")
	}

	if !CheckPassword(u.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(u.Username, u.Role)
	if err != nil {
		return "", errors.Wrap(err, "generate token")
	}
	return token, nil
}
