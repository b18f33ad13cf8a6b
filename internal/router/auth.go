package router

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/respond"
	"github.com/ovaphlow/pitchfork/service-kanban-go/pkg/token"
)

// Authenticator verifies bearer tokens locally; no call to the identity
// service is made per request.
type Authenticator struct {
	verifier token.Verifier
	logger   *zap.SugaredLogger
}

func NewAuthenticator(v token.Verifier, logger *zap.SugaredLogger) *Authenticator {
	return &Authenticator{verifier: v, logger: logger}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if len(auth) < len("bearer ") || !strings.EqualFold(auth[:len("bearer ")], "bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(auth[len("bearer "):])
	return raw, raw != ""
}

// Require rejects requests without a valid token with 401 and stores the
// caller identity in the request context otherwise.
func (a *Authenticator) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := BearerToken(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			respond.Error(w, a.logger, apperr.Token("Not authenticated"))
			return
		}
		claims, err := a.verifier.Verify(raw)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			respond.Error(w, a.logger, apperr.Token("Invalid token").WithCause(err))
			return
		}
		ctx := token.WithIdentity(r.Context(), token.IdentityFromClaims(claims, raw))
		next(w, r.WithContext(ctx))
	}
}

// Caller returns the identity stored by Require. Handlers behind Require can
// rely on it being present.
func Caller(r *http.Request) (token.Identity, error) {
	id, ok := token.FromContext(r.Context())
	if !ok {
		return token.Identity{}, apperr.Token("Not authenticated")
	}
	return id, nil
}
