// Package project is the Membership Authority: it owns projects and the
// (project, user, role) mapping every other service authorizes against.
package project

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/project/entity"
	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/remote"
	"github.com/ovaphlow/pitchfork/service-kanban-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-kanban-go/pkg/token"
	"github.com/ovaphlow/pitchfork/service-kanban-go/pkg/utilities"
)

var rank = map[string]int{token.RoleOwner: 3, token.RoleMember: 2, token.RoleGuest: 1}

// highestRole picks owner > member > guest, then any other role by name.
func highestRole(roles []string) string {
	if len(roles) == 0 {
		return ""
	}
	sorted := append([]string(nil), roles...)
	sort.Slice(sorted, func(i, j int) bool {
		ri, rj := rank[sorted[i]], rank[sorted[j]]
		if ri != rj {
			return ri > rj
		}
		return sorted[i] < sorted[j]
	})
	return sorted[0]
}

type Store interface {
	CreateWithOwner(ctx context.Context, p *entity.Project) error
	GetByID(ctx context.Context, id int64) (*entity.Project, error)
	ListForUser(ctx context.Context, userID int64) ([]entity.Project, error)
	Update(ctx context.Context, id int64, fields map[string]any) (*entity.Project, error)
	Delete(ctx context.Context, id int64) error
	Roles(ctx context.Context, projectID, userID int64) ([]string, error)
	ListMembers(ctx context.Context, projectID int64) ([]entity.Member, error)
	AddMember(ctx context.Context, m *entity.Member) error
	SetMemberRole(ctx context.Context, projectID, userID int64, role string) (*entity.Member, error)
	DeleteMember(ctx context.Context, projectID, userID int64) error
}

// UserLookup resolves a user id against the identity service.
type UserLookup interface {
	Lookup(ctx context.Context, userID int64, bearer string) (*remote.UserProfile, error)
}

var (
	ErrProjectNotFound = apperr.NotFound("Project not found")
	ErrMemberNotFound  = apperr.NotFound("Member not found")
	ErrNotAuthorized   = apperr.Forbidden("Not authorized")
	ErrOwnerOnly       = apperr.Forbidden("Only owner can perform this action")
	ErrInviteOwnerOnly = apperr.Forbidden("Only owner can invite members")
	ErrAlreadyOwner    = apperr.Validation("User is already the project owner")
	ErrOwnerRole       = apperr.Validation("Owner role cannot be granted")
	ErrOwnerSelfRemove = apperr.Validation("Owner cannot remove themselves from the project")
	ErrInactiveUser    = apperr.Validation("User is inactive")
	ErrDuplicateMember = apperr.Conflict("User already has this role in the project")
)

type ProjectRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (r ProjectRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, utilities.NotBlank, validation.Length(1, 255)),
	)
}

// ProjectPatch is a partial update; nil fields are left untouched.
type ProjectPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (r ProjectPatch) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, utilities.NotBlank, validation.Length(1, 255)),
	)
}

type MemberRequest struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

func (r MemberRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.Role, validation.Required, utilities.NotBlank, validation.Length(1, 50)),
	)
}

type RoleRequest struct {
	Role string `json:"role"`
}

func (r RoleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required, utilities.NotBlank, validation.Length(1, 50)),
	)
}

type Service struct {
	repo  Store
	users UserLookup
}

func NewService(r Store, users UserLookup) *Service {
	return &Service{repo: r, users: users}
}

// RoleOf returns the caller's highest role in the project, or "" when the
// user holds none. Always a fresh read.
func (s *Service) RoleOf(ctx context.Context, projectID, userID int64) (string, error) {
	roles, err := s.repo.Roles(ctx, projectID, userID)
	if err != nil {
		return "", err
	}
	return highestRole(roles), nil
}

func (s *Service) project(ctx context.Context, id int64) (*entity.Project, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return p, nil
}

// requireRole loads the project and checks the caller's role against allowed.
// An empty allowed list accepts any membership.
func (s *Service) requireRole(ctx context.Context, caller token.Identity, projectID int64, denied error, allowed ...string) (*entity.Project, string, error) {
	p, err := s.project(ctx, projectID)
	if err != nil {
		return nil, "", err
	}
	role, err := s.RoleOf(ctx, projectID, caller.UserID)
	if err != nil {
		return nil, "", err
	}
	if role == "" {
		return nil, "", denied
	}
	if len(allowed) == 0 {
		return p, role, nil
	}
	for _, a := range allowed {
		if role == a {
			return p, role, nil
		}
	}
	return nil, "", denied
}

// CreateProject inserts the project and the caller's owner membership atomically.
func (s *Service) CreateProject(ctx context.Context, caller token.Identity, req ProjectRequest) (*entity.Project, error) {
	if err := req.Validate(); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	p := &entity.Project{Name: strings.TrimSpace(req.Name), Description: req.Description, OwnerID: caller.UserID}
	if err := s.repo.CreateWithOwner(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) ListProjects(ctx context.Context, caller token.Identity) ([]entity.Project, error) {
	return s.repo.ListForUser(ctx, caller.UserID)
}

func (s *Service) GetProject(ctx context.Context, caller token.Identity, id int64) (*entity.Project, error) {
	p, _, err := s.requireRole(ctx, caller, id, ErrNotAuthorized)
	return p, err
}

func (s *Service) UpdateProject(ctx context.Context, caller token.Identity, id int64, req ProjectPatch) (*entity.Project, error) {
	p, _, err := s.requireRole(ctx, caller, id, ErrOwnerOnly, token.RoleOwner)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	fields := map[string]any{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if len(fields) == 0 {
		return p, nil
	}
	updated, err := s.repo.Update(ctx, id, fields)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	return updated, err
}

func (s *Service) DeleteProject(ctx context.Context, caller token.Identity, id int64) error {
	if _, _, err := s.requireRole(ctx, caller, id, ErrOwnerOnly, token.RoleOwner); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProjectNotFound
		}
		return err
	}
	return nil
}

func (s *Service) ListMembers(ctx context.Context, caller token.Identity, projectID int64) ([]entity.Member, error) {
	if _, _, err := s.requireRole(ctx, caller, projectID, ErrNotAuthorized); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, projectID)
}

// InviteMember adds (project, user, role) after confirming the user exists
// with the identity service. A non-200 from the lookup is returned as an
// *apperr.Passthrough.
func (s *Service) InviteMember(ctx context.Context, caller token.Identity, projectID int64, req MemberRequest) (*entity.Member, error) {
	p, _, err := s.requireRole(ctx, caller, projectID, ErrInviteOwnerOnly, token.RoleOwner)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	role := strings.TrimSpace(req.Role)
	if req.UserID == p.OwnerID {
		return nil, ErrAlreadyOwner
	}
	if role == token.RoleOwner {
		return nil, ErrOwnerRole
	}
	profile, err := s.users.Lookup(ctx, req.UserID, caller.Raw)
	if err != nil {
		return nil, err
	}
	if profile.IsActive != 1 {
		return nil, ErrInactiveUser
	}
	held, err := s.repo.Roles(ctx, projectID, req.UserID)
	if err != nil {
		return nil, err
	}
	for _, h := range held {
		if h == role {
			return nil, ErrDuplicateMember
		}
	}
	m := &entity.Member{ProjectID: projectID, UserID: req.UserID, Role: role}
	if err := s.repo.AddMember(ctx, m); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateMember
		}
		return nil, err
	}
	return m, nil
}

// Permission answers GET /projects/{id}/members/{user_id}. The caller must
// be the user asked about or a member of the project.
func (s *Service) Permission(ctx context.Context, caller token.Identity, projectID, userID int64) (*entity.MemberRole, error) {
	if caller.UserID != userID {
		role, err := s.RoleOf(ctx, projectID, caller.UserID)
		if err != nil {
			return nil, err
		}
		if role == "" {
			return nil, ErrNotAuthorized
		}
	}
	role, err := s.RoleOf(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if role == "" {
		return nil, ErrMemberNotFound
	}
	return &entity.MemberRole{ProjectID: projectID, UserID: userID, Role: role}, nil
}

func (s *Service) UpdateMemberRole(ctx context.Context, caller token.Identity, projectID, userID int64, req RoleRequest) (*entity.Member, error) {
	p, _, err := s.requireRole(ctx, caller, projectID, ErrOwnerOnly, token.RoleOwner)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	role := strings.TrimSpace(req.Role)
	if role == token.RoleOwner {
		return nil, ErrOwnerRole
	}
	if userID == p.OwnerID {
		return nil, apperr.Validation("Cannot change the owner's role")
	}
	m, err := s.repo.SetMemberRole(ctx, projectID, userID, role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *Service) DeleteMember(ctx context.Context, caller token.Identity, projectID, userID int64) error {
	p, _, err := s.requireRole(ctx, caller, projectID, ErrOwnerOnly, token.RoleOwner)
	if err != nil {
		return err
	}
	if userID == p.OwnerID || userID == caller.UserID {
		return ErrOwnerSelfRemove
	}
	if err := s.repo.DeleteMember(ctx, projectID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMemberNotFound
		}
		return err
	}
	return nil
}
