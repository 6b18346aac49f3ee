/*
Package auth provides bearer token verification and service-token signing.

PURPOSE:
  All three services trust the same HS256 secret. Handlers receive a
  verified Identity; token issuance for end users lives outside this
  system, but internal actors (the no-show sweeper, the job service's
  rejection flow) mint short-lived tokens here to act on a spare's wallet.

SEE ALSO:
  - api/middleware.go: extracts and verifies the Authorization header
*/
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in token claims.
const (
	RoleShop    = "shop"
	RoleSpare   = "spare"
	RoleService = "service"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the verified subject of a request.
type Identity struct {
	UserID string
	Role   string
}

// claims is the token payload shared by all services.
type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ======================
// VERIFIER
// ======================

// Verifier validates HS256 bearer tokens.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a raw token string and returns its identity.
func (v *Verifier) Verify(raw string) (*Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if c.Subject == "" || c.Role == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{UserID: c.Subject, Role: c.Role}, nil
}

// ======================
// SIGNER
// ======================

// defaultTokenTTL bounds the life of internally minted tokens.
const defaultTokenTTL = 5 * time.Minute

// Signer mints short-lived tokens for internal actors that need to call the
// energy service on a user's behalf.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), ttl: defaultTokenTTL}
}

// SignFor mints a token whose subject is userID with the given role.
func (s *Signer) SignFor(userID, role string) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	return token.SignedString(s.secret)
}
