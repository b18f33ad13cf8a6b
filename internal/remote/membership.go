package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/apperr"
)

// MembershipClient asks the project service for a user's role in a project.
type MembershipClient struct {
	c client
}

func NewMembershipClient(cfg Config, logger *zap.SugaredLogger) *MembershipClient {
	return &MembershipClient{c: newClient(cfg, logger)}
}

// RoleOf returns the role, or "" when the user holds no membership. Any
// other outcome is an error and must be treated as a denial.
func (m *MembershipClient) RoleOf(ctx context.Context, projectID, userID int64, bearer string) (string, error) {
	resp, err := m.c.get(ctx, fmt.Sprintf("/projects/%d/members/%d", projectID, userID), bearer)
	if err != nil {
		return "", err
	}
	switch resp.status {
	case http.StatusOK:
		var out struct {
			Role string `json:"role"`
		}
		if err := json.Unmarshal(resp.body, &out); err != nil {
			return "", fmt.Errorf("decode membership: %w", err)
		}
		return out.Role, nil
	case http.StatusNotFound:
		return "", nil
	default:
		return "", fmt.Errorf("membership lookup: status %d", resp.status)
	}
}

// TaskAccessClient asks the board service whether a user may act on a task.
type TaskAccessClient struct {
	c client
}

func NewTaskAccessClient(cfg Config, logger *zap.SugaredLogger) *TaskAccessClient {
	return &TaskAccessClient{c: newClient(cfg, logger)}
}

// Check returns nil when access is granted, a not-found error when the task
// or one of its ancestors is missing, and a forbidden error otherwise.
func (t *TaskAccessClient) Check(ctx context.Context, taskID, userID int64, bearer string) error {
	resp, err := t.c.get(ctx, fmt.Sprintf("/tasks/%d/permission/%d", taskID, userID), bearer)
	if err != nil {
		return apperr.Forbidden("Not authorized for this task").WithCause(err)
	}
	switch resp.status {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return apperr.NotFound("Task not found")
	default:
		return apperr.Forbidden("Not authorized for this task").WithCause(fmt.Errorf("status %d", resp.status))
	}
}
