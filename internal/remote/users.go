package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/apperr"
)

// UserProfile is the public profile served by the identity service.
type UserProfile struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive int    `json:"is_active"`
}

// UserDirectory resolves user ids against the identity service.
type UserDirectory struct {
	c client
}

func NewUserDirectory(cfg Config, logger *zap.SugaredLogger) *UserDirectory {
	return &UserDirectory{c: newClient(cfg, logger)}
}

// Lookup fetches GET /users/{id}. A non-200 reply is returned as an
// *apperr.Passthrough so the caller can forward it verbatim.
func (d *UserDirectory) Lookup(ctx context.Context, userID int64, bearer string) (*UserProfile, error) {
	resp, err := d.c.get(ctx, fmt.Sprintf("/users/%d", userID), bearer)
	if err != nil {
		return nil, apperr.Forbidden("Unable to verify user").WithCause(err)
	}
	if resp.status != http.StatusOK {
		return nil, &apperr.Passthrough{Status: resp.status, ContentType: resp.contentType, Body: resp.body}
	}
	var p UserProfile
	if err := json.Unmarshal(resp.body, &p); err != nil {
		return nil, apperr.Forbidden("Unable to verify user").WithCause(err)
	}
	return &p, nil
}
