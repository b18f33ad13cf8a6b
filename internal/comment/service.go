// Package comment stores task comments. Access is decided by the board
// service, which owns the task to project chain.
package comment

import (
	"context"
	"database/sql"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/comment/entity"
	"github.com/ovaphlow/pitchfork/service-kanban-go/pkg/token"
	"github.com/ovaphlow/pitchfork/service-kanban-go/pkg/utilities"
)

var (
	ErrCommentNotFound = apperr.NotFound("Comment not found")
	ErrNotAuthorUpdate = apperr.Forbidden("Not authorized to update")
	ErrNotAuthorDelete = apperr.Forbidden("Not authorized to delete")
)

type Store interface {
	Create(ctx context.Context, c *entity.Comment) error
	Get(ctx context.Context, id int64) (*entity.Comment, error)
	ListByTask(ctx context.Context, taskID int64) ([]entity.Comment, error)
	UpdateContent(ctx context.Context, id int64, content string) (*entity.Comment, error)
	Delete(ctx context.Context, id int64) error
}

// TaskAccess reports whether a user may act on a task; nil means allowed.
// *remote.TaskAccessClient implements it.
type TaskAccess interface {
	Check(ctx context.Context, taskID, userID int64, bearer string) error
}

type CommentRequest struct {
	TaskID  int64  `json:"task_id"`
	Content string `json:"content"`
}

func (r CommentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TaskID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.Content, validation.Required, utilities.NotBlank),
	)
}

type CommentPatch struct {
	Content *string `json:"content"`
}

func (r CommentPatch) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.NilOrNotEmpty, utilities.NotBlank),
	)
}

type Service struct {
	store Store
	tasks TaskAccess
}

func NewService(store Store, tasks TaskAccess) *Service {
	return &Service{store: store, tasks: tasks}
}

// load fetches the comment; a missing comment is reported before any
// remote permission call is made.
func (s *Service) load(ctx context.Context, id int64) (*entity.Comment, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *Service) check(ctx context.Context, caller token.Identity, taskID int64) error {
	return s.tasks.Check(ctx, taskID, caller.UserID, caller.Raw)
}

func (s *Service) Create(ctx context.Context, caller token.Identity, req CommentRequest) (*entity.Comment, error) {
	if err := req.Validate(); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	if err := s.check(ctx, caller, req.TaskID); err != nil {
		return nil, err
	}
	c := &entity.Comment{TaskID: req.TaskID, UserID: caller.UserID, Content: req.Content}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, caller token.Identity, id int64) (*entity.Comment, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, caller, c.TaskID); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ListByTask(ctx context.Context, caller token.Identity, taskID int64) ([]entity.Comment, error) {
	if err := s.check(ctx, caller, taskID); err != nil {
		return nil, err
	}
	return s.store.ListByTask(ctx, taskID)
}

// Update changes the content. Only the author may edit, and only while
// they still have access to the task.
func (s *Service) Update(ctx context.Context, caller token.Identity, id int64, req CommentPatch) (*entity.Comment, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != caller.UserID {
		return nil, ErrNotAuthorUpdate
	}
	if err := s.check(ctx, caller, c.TaskID); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	if req.Content == nil {
		return c, nil
	}
	updated, err := s.store.UpdateContent(ctx, id, *req.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCommentNotFound
	}
	return updated, err
}

func (s *Service) Delete(ctx context.Context, caller token.Identity, id int64) error {
	c, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if c.UserID != caller.UserID {
		return ErrNotAuthorDelete
	}
	if err := s.check(ctx, caller, c.TaskID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCommentNotFound
		}
		return err
	}
	return nil
}
