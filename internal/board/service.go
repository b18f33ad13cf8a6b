// Package board owns boards, lists, tasks, labels and attachments. Every
// operation resolves its resource to a project and asks the Membership
// Authority before touching data.
package board

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/board/entity"
	"github.com/ovaphlow/pitchfork/service-kanban-go/pkg/token"
)

// Store is the persistence the service needs; *repo.BoardRepo implements it.
type Store interface {
	Hierarchy

	CreateBoard(ctx context.Context, b *entity.Board) error
	GetBoard(ctx context.Context, id int64) (*entity.Board, error)
	ListBoards(ctx context.Context, projectID int64) ([]entity.Board, error)
	UpdateBoard(ctx context.Context, id int64, fields map[string]any) (*entity.Board, error)
	DeleteBoard(ctx context.Context, id int64) error

	CreateList(ctx context.Context, l *entity.List) error
	GetList(ctx context.Context, id int64) (*entity.List, error)
	ListLists(ctx context.Context, boardID int64) ([]entity.List, error)
	UpdateList(ctx context.Context, id int64, fields map[string]any) (*entity.List, error)
	DeleteList(ctx context.Context, id int64) error

	CreateTask(ctx context.Context, t *entity.Task) error
	GetTask(ctx context.Context, id int64) (*entity.Task, error)
	ListTasks(ctx context.Context, listID int64) ([]entity.Task, error)
	UpdateTask(ctx context.Context, id int64, fields map[string]any) (*entity.Task, error)
	MoveTask(ctx context.Context, id, listID int64, position *int) (*entity.Task, error)
	DeleteTask(ctx context.Context, id int64) error

	AddLabel(ctx context.Context, l *entity.Label) error
	ListLabels(ctx context.Context, taskID int64) ([]entity.Label, error)
	DeleteLabel(ctx context.Context, id int64) error

	AddAttachment(ctx context.Context, a *entity.Attachment) error
	ListAttachments(ctx context.Context, taskID int64) ([]entity.Attachment, error)
	DeleteAttachment(ctx context.Context, id int64) error
}

type Service struct {
	store   Store
	resolve Resolver
	auth    *Authorizer
}

func NewService(store Store, auth *Authorizer) *Service {
	return &Service{store: store, resolve: NewResolver(store), auth: auth}
}

// guard resolves the project through walk and authorizes the caller on it.
// The membership call happens only once the walk succeeded.
func (s *Service) guard(ctx context.Context, caller token.Identity, walk func(context.Context, int64) (int64, error), id int64) (int64, error) {
	projectID, err := walk(ctx, id)
	if err != nil {
		return 0, err
	}
	if _, err := s.auth.Authorize(ctx, caller, projectID); err != nil {
		return 0, err
	}
	return projectID, nil
}

func validate(v interface{ Validate() error }) error {
	if err := v.Validate(); err != nil {
		return apperr.Validation("%s", err.Error())
	}
	return nil
}

// notFound maps a row that vanished after authorization.
func notFound(err, missing error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return missing
	}
	return err
}

func (s *Service) CreateBoard(ctx context.Context, caller token.Identity, req BoardRequest) (*entity.Board, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if _, err := s.auth.Authorize(ctx, caller, req.ProjectID); err != nil {
		return nil, err
	}
	b := &entity.Board{ProjectID: req.ProjectID, Name: strings.TrimSpace(req.Name)}
	if err := s.store.CreateBoard(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) ListProjectBoards(ctx context.Context, caller token.Identity, projectID int64) ([]entity.Board, error) {
	if _, err := s.auth.Authorize(ctx, caller, projectID); err != nil {
		return nil, err
	}
	return s.store.ListBoards(ctx, projectID)
}

func (s *Service) GetBoard(ctx context.Context, caller token.Identity, id int64) (*entity.Board, error) {
	if _, err := s.guard(ctx, caller, s.resolve.ProjectOfBoard, id); err != nil {
		return nil, err
	}
	b, err := s.store.GetBoard(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrBoardNotFound)
	}
	return b, nil
}

func (s *Service) UpdateBoard(ctx context.Context, caller token.Identity, id int64, req BoardPatch) (*entity.Board, error) {
	if _, err := s.guard(ctx, caller, s.resolve.ProjectOfBoard, id); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	if req.Name == nil {
		return s.GetBoard(ctx, caller, id)
	}
	b, err := s.store.UpdateBoard(ctx, id, map[string]any{"name": strings.TrimSpace(*req.Name)})
	if err != nil {
		return nil, notFound(err, ErrBoardNotFound)
	}
	return b, nil
}

func (s *Service) DeleteBoard(ctx context.Context, caller token.Identity, id int64) error {
	if _, err := s.guard(ctx, caller, s.resolve.ProjectOfBoard, id); err != nil {
		return err
	}
	return notFound(s.store.DeleteBoard(ctx, id), ErrBoardNotFound)
}

func (s *Service) CreateList(ctx context.Context, caller token.Identity, req ListRequest) (*entity.List, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if _, err := s.guard(ctx, caller, s.resolve.ProjectOfBoard, req.BoardID); err != nil {
		return nil, err
	}
	l := &entity.List{BoardID: req.BoardID, Name: strings.TrimSpace(req.Name), Position: req.Position}
	if err := s.store.CreateList(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) ListLists(ctx context.Context, caller token.Identity, boardID int64) ([]entity.List, error) {
	if _, err := s.guard(ctx, caller, s.resolve.ProjectOfBoard, boardID); err != nil {
		return nil, err
	}
	return s.store.ListLists(ctx, boardID)
}

func (s *Service) GetList(ctx context.Context, caller token.Identity, id int64) (*entity.List, error) {
	if _, err := s.guard(ctx, caller, s.resolve.ProjectOfList, id); err != nil {
		return nil, err
	}
	l, err := s.store.GetList(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrListNotFound)
	}
	return l, nil
}

func (s *Service) UpdateList(ctx context.Context, caller token.Identity, id int64, req ListPatch) (*entity.List, error) {
	if _, err := s.guard(ctx, caller, s.resolve.ProjectOfList, id); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Position != nil {
		fields["position"] = *req.Position
	}
	if len(fields) == 0 {
		return s.GetList(ctx, caller, id)
	}
	l, err := s.store.UpdateList(ctx, id, fields)
	if err != nil {
		return nil, notFound(err, ErrListNotFound)
	}
	return l, nil
}

func (s *Service) DeleteList(ctx context.Context, caller token.Identity, id int64) error {
	if _, err := s.guard(ctx, caller, s.resolve.ProjectOfList, id); err != nil {
		return err
	}
	return notFound(s.store.DeleteList(ctx, id), ErrListNotFound)
}

func (s *Service) CreateTask(ctx context.Context, caller token.Identity, req TaskRequest) (*entity.Task, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if _, err := s.guard(ctx, caller, s.resolve.ProjectOfList, req.ListID); err != nil {
		return nil, err
	}
	t := &entity.Task{
		ListID:      req.ListID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
		Priority:    req.Priority,
		Status:      req.Status,
		DueDate:     req.DueDate,
	}
	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) ListTasks(ctx context.Context, caller token.Identity, listID int64) ([]entity.Task, error) {
	if _, err := s.guard(ctx, caller, s.resolve.ProjectOfList, listID); err != nil {
		return nil, err
	}
	return s.store.ListTasks(ctx, listID)
}

func (s *Service) GetTask(ctx context.Context, caller token.Identity, id int64) (*entity.Task, error) {
	if _, err := s.guard(ctx, caller, s.resolve.ProjectOfTask, id); err != nil {
		return nil, err
	}
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrTaskNotFound)
	}
	return t, nil
}

// UpdateTask patches allow-listed fields. Moving the task to another list
// through list_id requires access to the target list's project as well.
func (s *Service) UpdateTask(ctx context.Context, caller token.Identity, id int64, req TaskPatch) (*entity.Task, error) {
	projectID, err := s.guard(ctx, caller, s.resolve.ProjectOfTask, id)
	if err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	if req.ListID != nil {
		if err := s.authorizeTarget(ctx, caller, projectID, *req.ListID); err != nil {
			return nil, err
		}
	}
	fields := req.fields()
	if len(fields) == 0 {
		return s.GetTask(ctx, caller, id)
	}
	t, err := s.store.UpdateTask(ctx, id, fields)
	if err != nil {
		return nil, notFound(err, ErrTaskNotFound)
	}
	return t, nil
}

// authorizeTarget checks the destination list of a move. A list in the same
// project needs no second membership call.
func (s *Service) authorizeTarget(ctx context.Context, caller token.Identity, sourceProject, listID int64) error {
	target, err := s.resolve.ProjectOfList(ctx, listID)
	if err != nil {
		return err
	}
	if target == sourceProject {
		return nil
	}
	_, err = s.auth.Authorize(ctx, caller, target)
	return err
}

func (s *Service) MoveTask(ctx context.Context, caller token.Identity, id int64, req MoveRequest) (*entity.Task, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	projectID, err := s.guard(ctx, caller, s.resolve.ProjectOfTask, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeTarget(ctx, caller, projectID, req.NewListID); err != nil {
		return nil, err
	}
	t, err := s.store.MoveTask(ctx, id, req.NewListID, req.NewPosition)
	if err != nil {
		return nil, notFound(err, ErrTaskNotFound)
	}
	return t, nil
}

func (s *Service) AssignTask(ctx context.Context, caller token.Identity, id, userID int64) (*entity.Task, error) {
	if _, err := s.guard(ctx, caller, s.resolve.ProjectOfTask, id); err != nil {
		return nil, err
	}
	t, err := s.store.UpdateTask(ctx, id, map[string]any{"assignee_id": userID})
	if err != nil {
		return nil, notFound(err, ErrTaskNotFound)
	}
	return t, nil
}

func (s *Service) DeleteTask(ctx context.Context, caller token.Identity, id int64) error {
	if _, err := s.guard(ctx, caller, s.resolve.ProjectOfTask, id); err != nil {
		return err
	}
	return notFound(s.store.DeleteTask(ctx, id), ErrTaskNotFound)
}

func (s *Service) AddLabel(ctx context.Context, caller token.Identity, taskID int64, req LabelRequest) (*entity.Label, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if _, err := s.guard(ctx, caller, s.resolve.ProjectOfTask, taskID); err != nil {
		return nil, err
	}
	l := &entity.Label{TaskID: taskID, Label: strings.TrimSpace(req.Label)}
	if err := s.store.AddLabel(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) ListLabels(ctx context.Context, caller token.Identity, taskID int64) ([]entity.Label, error) {
	if _, err := s.guard(ctx, caller, s.resolve.ProjectOfTask, taskID); err != nil {
		return nil, err
	}
	return s.store.ListLabels(ctx, taskID)
}

func (s *Service) DeleteLabel(ctx context.Context, caller token.Identity, id int64) error {
	if _, err := s.guard(ctx, caller, s.resolve.ProjectOfLabel, id); err != nil {
		return err
	}
	return notFound(s.store.DeleteLabel(ctx, id), ErrLabelNotFound)
}

func (s *Service) AddAttachment(ctx context.Context, caller token.Identity, taskID int64, req AttachmentRequest) (*entity.Attachment, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if _, err := s.guard(ctx, caller, s.resolve.ProjectOfTask, taskID); err != nil {
		return nil, err
	}
	a := &entity.Attachment{TaskID: taskID, FileURL: strings.TrimSpace(req.FileURL)}
	if err := s.store.AddAttachment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) ListAttachments(ctx context.Context, caller token.Identity, taskID int64) ([]entity.Attachment, error) {
	if _, err := s.guard(ctx, caller, s.resolve.ProjectOfTask, taskID); err != nil {
		return nil, err
	}
	return s.store.ListAttachments(ctx, taskID)
}

func (s *Service) DeleteAttachment(ctx context.Context, caller token.Identity, id int64) error {
	if _, err := s.guard(ctx, caller, s.resolve.ProjectOfAttachment, id); err != nil {
		return err
	}
	return notFound(s.store.DeleteAttachment(ctx, id), ErrAttachmentNotFound)
}

// TaskPermission tells the comment service whether userID may act on the
// task. Callers may only ask about themselves.
func (s *Service) TaskPermission(ctx context.Context, caller token.Identity, taskID, userID int64) (*entity.TaskPermission, error) {
	if caller.UserID != userID {
		return nil, apperr.Forbidden("Not authorized")
	}
	projectID, err := s.resolve.ProjectOfTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	role, err := s.auth.Authorize(ctx, caller, projectID)
	if err != nil {
		return nil, err
	}
	return &entity.TaskPermission{TaskID: taskID, ProjectID: projectID, Role: role}, nil
}
