package token

import (
	"context"
	"time"
)

// Identity is the caller derived from a verified token. Raw is the original
// bearer string, forwarded unmodified on outbound permission checks.
type Identity struct {
	Email     string
	UserID    int64
	Role      string
	ExpiresAt time.Time
	Raw       string
}

// IdentityFromClaims converts verified claims into an Identity.
func IdentityFromClaims(c *Claims, raw string) Identity {
	id := Identity{Email: c.Subject, UserID: c.UserID, Role: c.Role, Raw: raw}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time
	}
	return id
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
