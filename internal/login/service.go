// Package login issues and introspects bearer tokens for the identity
// service.
package login

import (
	"context"
	"os"
	"time"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-kanban-go/pkg/token"
	"github.com/ovaphlow/pitchfork/service-kanban-go/pkg/utilities"
)

// PasswordAuthenticator is satisfied by *user.UserService.
type PasswordAuthenticator interface {
	AuthenticatePassword(ctx context.Context, email, password string) (*entity.MinimalAuthView, error)
}

// Signer signs and verifies; *token.HMAC implements it.
type Signer interface {
	token.Signer
	token.Verifier
}

// TokenResponse is the body of a successful POST /token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Introspection follows RFC 7662: inactive tokens only carry Active=false.
type Introspection struct {
	Active bool   `json:"active"`
	Sub    string `json:"sub,omitempty"`
	UserID int64  `json:"user_id,omitempty"`
	Role   string `json:"role,omitempty"`
	Exp    int64  `json:"exp,omitempty"`
	Iat    int64  `json:"iat,omitempty"`
	Jti    string `json:"jti,omitempty"`
}

// Issuer turns verified credentials into signed tokens.
type Issuer struct {
	users  PasswordAuthenticator
	signer Signer
	ttl    time.Duration
	now    func() time.Time
	newID  func() string
}

// TTLFromEnv reads TOKEN_TTL, falling back to token.DefaultTTL.
func TTLFromEnv() time.Duration {
	if d, err := time.ParseDuration(os.Getenv("TOKEN_TTL")); err == nil && d > 0 {
		return d
	}
	return token.DefaultTTL
}

func NewIssuer(users PasswordAuthenticator, signer Signer, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = token.DefaultTTL
	}
	return &Issuer{users: users, signer: signer, ttl: ttl, now: time.Now, newID: utilities.NewSnowflakeID}
}

// IssueToken authenticates email and password and signs
// {sub=email, user_id, role, exp=now+ttl}.
func (i *Issuer) IssueToken(ctx context.Context, email, password string) (*TokenResponse, error) {
	view, err := i.users.AuthenticatePassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	claims := token.NewClaims(view.Email, view.ID, view.Role, i.now(), i.ttl, i.newID())
	raw, err := i.signer.Sign(claims)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{AccessToken: raw, TokenType: "bearer", ExpiresIn: int64(i.ttl / time.Second)}, nil
}

// Introspect reports whether raw is a live token of this deployment.
func (i *Issuer) Introspect(raw string) Introspection {
	c, err := i.signer.Verify(raw)
	if err != nil {
		return Introspection{Active: false}
	}
	out := Introspection{Active: true, Sub: c.Subject, UserID: c.UserID, Role: c.Role, Jti: c.ID}
	if c.ExpiresAt != nil {
		out.Exp = c.ExpiresAt.Unix()
	}
	if c.IssuedAt != nil {
		out.Iat = c.IssuedAt.Unix()
	}
	return out
}
