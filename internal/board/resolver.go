package board

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-kanban-go/pkg/token"
)

var (
	ErrBoardNotFound      = apperr.NotFound("Board not found")
	ErrListNotFound       = apperr.NotFound("List not found")
	ErrTaskNotFound       = apperr.NotFound("Task not found")
	ErrLabelNotFound      = apperr.NotFound("Label not found")
	ErrAttachmentNotFound = apperr.NotFound("Attachment not found")
	ErrProjectDenied      = apperr.Forbidden("Not authorized for this project")
)

// Hierarchy answers one parent hop at a time; each method returns
// sql.ErrNoRows when the child row is missing.
type Hierarchy interface {
	BoardProject(ctx context.Context, boardID int64) (int64, error)
	ListBoard(ctx context.Context, listID int64) (int64, error)
	TaskList(ctx context.Context, taskID int64) (int64, error)
	LabelTask(ctx context.Context, labelID int64) (int64, error)
	AttachmentTask(ctx context.Context, attachmentID int64) (int64, error)
}

// Resolver walks a leaf resource up to its project. A missing hop stops the
// walk with a not-found error naming that level.
type Resolver struct {
	h Hierarchy
}

func NewResolver(h Hierarchy) Resolver { return Resolver{h: h} }

func hop(ctx context.Context, fn func(context.Context, int64) (int64, error), id int64, missing error) (int64, error) {
	parent, err := fn(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, missing
		}
		return 0, err
	}
	return parent, nil
}

func (r Resolver) ProjectOfBoard(ctx context.Context, boardID int64) (int64, error) {
	return hop(ctx, r.h.BoardProject, boardID, ErrBoardNotFound)
}

func (r Resolver) ProjectOfList(ctx context.Context, listID int64) (int64, error) {
	boardID, err := hop(ctx, r.h.ListBoard, listID, ErrListNotFound)
	if err != nil {
		return 0, err
	}
	return r.ProjectOfBoard(ctx, boardID)
}

func (r Resolver) ProjectOfTask(ctx context.Context, taskID int64) (int64, error) {
	listID, err := hop(ctx, r.h.TaskList, taskID, ErrTaskNotFound)
	if err != nil {
		return 0, err
	}
	return r.ProjectOfList(ctx, listID)
}

func (r Resolver) ProjectOfLabel(ctx context.Context, labelID int64) (int64, error) {
	taskID, err := hop(ctx, r.h.LabelTask, labelID, ErrLabelNotFound)
	if err != nil {
		return 0, err
	}
	return r.ProjectOfTask(ctx, taskID)
}

func (r Resolver) ProjectOfAttachment(ctx context.Context, attachmentID int64) (int64, error) {
	taskID, err := hop(ctx, r.h.AttachmentTask, attachmentID, ErrAttachmentNotFound)
	if err != nil {
		return 0, err
	}
	return r.ProjectOfTask(ctx, taskID)
}

// RoleChecker is the Membership Authority as seen from this service;
// *remote.MembershipClient implements it.
type RoleChecker interface {
	RoleOf(ctx context.Context, projectID, userID int64, bearer string) (string, error)
}

// Authorizer admits owners and members of a project. Everything else,
// including a failed lookup, is a denial.
type Authorizer struct {
	roles  RoleChecker
	logger *zap.SugaredLogger
}

func NewAuthorizer(roles RoleChecker, logger *zap.SugaredLogger) *Authorizer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Authorizer{roles: roles, logger: logger}
}

func (a *Authorizer) Authorize(ctx context.Context, caller token.Identity, projectID int64) (string, error) {
	role, err := a.roles.RoleOf(ctx, projectID, caller.UserID, caller.Raw)
	if err != nil {
		a.logger.Warnw("membership lookup failed", "project_id", projectID, "user_id", caller.UserID, "err", err)
		return "", ErrProjectDenied.WithCause(err)
	}
	if role != token.RoleOwner && role != token.RoleMember {
		a.logger.Infow("project access denied", "project_id", projectID, "user_id", caller.UserID, "role", role)
		return "", ErrProjectDenied
	}
	return role, nil
}
