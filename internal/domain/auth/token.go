// Package auth provides credential verification and JWT issuance for API
// clients.
package auth

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/xenking/order-management/internal/domain/user"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry, or
// claim validation.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the identity carried by a verified token.
type Claims struct {
	Username string
	Role     user.Role
}

// TokenProvider issues and verifies HMAC-SHA256 signed JWTs.
type TokenProvider struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewTokenProvider creates a TokenProvider signing with secret, issuing
// tokens valid for ttl.
func NewTokenProvider(secret []byte, ttl time.Duration) *TokenProvider {
	return &TokenProvider{key: secret, ttl: ttl, now: time.Now}
}

// Generate issues a token for the given identity with sub, role, iat, and
// exp claims.
func (p *TokenProvider) Generate(username string, role user.Role) (string, error) {
	now := p.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  username,
		"role": string(role),
		"iat":  jwt.NewNumericDate(now),
		"exp":  jwt.NewNumericDate(now.Add(p.ttl)),
	})

	signed, err := token.SignedString(p.key)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// Parse verifies the token signature and expiry and returns its claims.
// Any failure, including an unknown role value, yields ErrInvalidToken.
func (p *TokenProvider) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString,
		func(t *jwt.Token) (any, error) { return p.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrInvalidToken
	}

	roleStr, _ := claims["role"].(string)
	role, err := user.ParseRole(roleStr)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &Claims{Username: sub, Role: role}, nil
}
