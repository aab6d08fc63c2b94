// Package auth resolves bearer tokens into acting identities. Token
// issuance lives with the external auth provider; this service only
// verifies HS256 signatures and reads the subject and role claims.
package auth

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/xenking/storefront-api/internal/domain/identity"
)

var (
	// ErrInvalidToken covers malformed, mis-signed, and expired tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnknownRole is returned when the role claim is missing or not one
	// of the known roles.
	ErrUnknownRole = errors.New("unknown role claim")
)

// Claims are the verified token claims this service relies on.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens signed with a shared HMAC secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for the given shared secret.
func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

// Verify parses and validates a token string and returns the identity it
// carries.
func (v *Verifier) Verify(tokenString string) (identity.Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return identity.Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return identity.Identity{}, ErrInvalidToken
	}

	role := identity.Role(claims.Role)
	if !role.Valid() {
		return identity.Identity{}, ErrUnknownRole
	}
	return identity.Identity{Subject: claims.Subject, Role: role}, nil
}

// Issue signs a token for the given identity. Used by the seed tooling
// and tests; production tokens come from the external auth provider.
func (v *Verifier) Issue(id identity.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}
