package user

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-kanban-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-kanban-go/pkg/token"
	"github.com/ovaphlow/pitchfork/service-kanban-go/pkg/utilities"
)

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Store is the persistence the service needs; *repo.UserRepo implements it.
type Store interface {
	Create(ctx context.Context, u *entity.User) error
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	Update(ctx context.Context, id int64, fields map[string]any) (*entity.User, error)
	SetActive(ctx context.Context, id int64, active bool) (*entity.User, error)
	Delete(ctx context.Context, id int64) error
	CreateRole(ctx context.Context, role *entity.Role) error
	ListRoles(ctx context.Context) ([]entity.Role, error)
}

// UserService orchestrates authentication and user lifecycle flows.
type UserService struct {
	repo   Store
	hasher PasswordHasher

	dummyOnce sync.Once
	dummy     string
}

func NewUserService(r Store, hasher PasswordHasher) *UserService {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &UserService{repo: r, hasher: hasher}
}

var (
	ErrUserNotFound   = apperr.NotFound("User not found")
	ErrBadCredentials = apperr.Authentication("Incorrect email or password")
	ErrEmailTaken     = apperr.Conflict("Email already registered")
	ErrRoleTaken      = apperr.Conflict("Role already exists")
	ErrNotAuthorized  = apperr.Forbidden("Not authorized")
	ErrAdminOnly      = apperr.Forbidden("Admin only")
)

// SignupRequest request body for the register endpoint.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, utilities.NotBlank, validation.Length(1, 255)),
		validation.Field(&r.Email, validation.Required, is.EmailFormat, validation.Length(3, 255)),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 72)),
		validation.Field(&r.Role, utilities.NotBlank, validation.Length(0, 50), validation.NotIn(token.RoleAdmin).Error("admin role cannot be self-assigned")),
	)
}

// UpdateRequest is a partial update; nil fields are left untouched.
type UpdateRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Role  *string `json:"role"`
}

func (r UpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, utilities.NotBlank, validation.Length(1, 255)),
		validation.Field(&r.Email, validation.NilOrNotEmpty, is.EmailFormat),
		validation.Field(&r.Role, validation.NilOrNotEmpty, utilities.NotBlank, validation.Length(1, 50)),
	)
}

// RoleRequest creates an entry of the role catalogue.
type RoleRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (r RoleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, utilities.NotBlank, validation.Length(1, 50)),
		validation.Field(&r.Description, validation.Length(0, 255)),
	)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// dummyHash is verified against on unknown emails so a miss costs the same
// as a wrong password.
func (s *UserService) dummyHash() string {
	s.dummyOnce.Do(func() {
		s.dummy, _ = s.hasher.Hash("not-a-real-password")
	})
	return s.dummy
}

// AuthenticatePassword checks email and password. Unknown emails, wrong
// passwords and soft-deleted accounts all yield ErrBadCredentials.
func (s *UserService) AuthenticatePassword(ctx context.Context, email, password string) (*entity.MinimalAuthView, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrBadCredentials
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.hasher.Verify(s.dummyHash(), password)
			return nil, ErrBadCredentials
		} // avoid user enumeration
		return nil, err
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, ErrBadCredentials
	}
	if u.IsActive != 1 {
		return nil, ErrBadCredentials
	}
	return &entity.MinimalAuthView{ID: u.ID, Email: u.Email, Role: u.Role}, nil
}

// SignupUser creates a user with a bcrypt-hashed password. Role defaults to "member".
func (s *UserService) SignupUser(ctx context.Context, req SignupRequest) (*entity.User, error) {
	req.Role = strings.TrimSpace(req.Role)
	if err := req.Validate(); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	role := req.Role
	if role == "" {
		role = token.RoleMember
	}
	return s.create(ctx, req.Name, req.Email, req.Password, role)
}

// EnsureAdmin creates an admin account when the email is not registered yet.
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) (*entity.User, bool, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}
	u, err = s.create(ctx, name, email, password, token.RoleAdmin)
	return u, err == nil, err
}

func (s *UserService) create(ctx context.Context, name, email, password, role string) (*entity.User, error) {
	email = normalizeEmail(email)
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     1,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

// Get returns any user's public profile; every authenticated caller may
// resolve an id, which the project service relies on when inviting.
func (s *UserService) Get(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func selfOrAdmin(caller token.Identity, id int64) error {
	if caller.UserID == id || caller.Role == token.RoleAdmin {
		return nil
	}
	return ErrNotAuthorized
}

// Update patches name and email; role only when the caller is an admin.
func (s *UserService) Update(ctx context.Context, caller token.Identity, id int64, req UpdateRequest) (*entity.User, error) {
	if err := selfOrAdmin(caller, id); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	fields := map[string]any{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		fields["email"] = normalizeEmail(*req.Email)
	}
	if req.Role != nil {
		if caller.Role != token.RoleAdmin {
			return nil, ErrAdminOnly
		}
		fields["role"] = *req.Role
	}
	if len(fields) == 0 {
		return s.Get(ctx, id)
	}
	u, err := s.repo.Update(ctx, id, fields)
	switch {
	case err == nil:
		return u, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrUserNotFound
	case database.IsUniqueViolation(err):
		return nil, ErrEmailTaken
	default:
		return nil, err
	}
}

// SoftDelete marks the account inactive; it can no longer obtain tokens.
func (s *UserService) SoftDelete(ctx context.Context, caller token.Identity, id int64) (*entity.User, error) {
	return s.setActive(ctx, caller, id, false)
}

// Reactivate restores a soft-deleted account.
func (s *UserService) Reactivate(ctx context.Context, caller token.Identity, id int64) (*entity.User, error) {
	return s.setActive(ctx, caller, id, true)
}

func (s *UserService) setActive(ctx context.Context, caller token.Identity, id int64, active bool) (*entity.User, error) {
	if err := selfOrAdmin(caller, id); err != nil {
		return nil, err
	}
	u, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// HardDelete removes the account permanently. Admin only.
func (s *UserService) HardDelete(ctx context.Context, caller token.Identity, id int64) error {
	if caller.Role != token.RoleAdmin {
		return ErrAdminOnly
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// CreateRole adds a role to the catalogue. Admin only.
func (s *UserService) CreateRole(ctx context.Context, caller token.Identity, req RoleRequest) (*entity.Role, error) {
	if caller.Role != token.RoleAdmin {
		return nil, ErrAdminOnly
	}
	if err := req.Validate(); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	role := &entity.Role{Name: strings.TrimSpace(req.Name), Description: req.Description}
	if err := s.repo.CreateRole(ctx, role); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrRoleTaken
		}
		return nil, err
	}
	return role, nil
}

func (s *UserService) ListRoles(ctx context.Context) ([]entity.Role, error) {
	return s.repo.ListRoles(ctx)
}
