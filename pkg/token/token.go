// Package token holds the bearer token contract shared by every service:
// the identity service signs, all other services verify locally with the
// same secret. Tokens carry {sub, user_id, role, exp} and cannot be revoked
// before they expire.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the validity window of an issued token.
const DefaultTTL = 30 * time.Minute

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrEmptySecret  = errors.New("token secret is empty")
)

// Claims is the identity claim set embedded in every token.
// User ids are database serials, so a zero UserID means the claim is absent.
type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// NewClaims builds the claim set for a freshly authenticated user.
func NewClaims(email string, userID int64, role string, now time.Time, ttl time.Duration, id string) Claims {
	return Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

type Signer interface {
	Sign(c Claims) (string, error)
}

type Verifier interface {
	Verify(raw string) (*Claims, error)
}

// HMAC signs and verifies HS256 tokens with a shared secret.
type HMAC struct {
	secret []byte
	now    func() time.Time
}

func NewHMAC(secret []byte) (*HMAC, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	return &HMAC{secret: secret, now: time.Now}, nil
}

// WithClock returns a copy of h that evaluates expiry against now.
func (h *HMAC) WithClock(now func() time.Time) *HMAC {
	return &HMAC{secret: h.secret, now: now}
}

func (h *HMAC) Sign(c Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(h.secret)
}

// Verify checks signature, algorithm and expiry and requires the subject and
// user id claims. Every failure collapses into ErrInvalidToken.
func (h *HMAC) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return h.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(h.now),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
