package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-kanban-go/pkg/database"
)

const userColumns = `id, name, email, password_hash, role, is_active, created_at`

// UserRepo provides data access for users and roles tables using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTable creates the users and roles tables if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE EXTENSION IF NOT EXISTS citext;
CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  email CITEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL,
  is_active SMALLINT NOT NULL DEFAULT 1,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS roles (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  description TEXT
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a new user row and fills ID and CreatedAt.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	q := `INSERT INTO users (name,email,password_hash,role,is_active)
		  VALUES (:name,:email,:password_hash,:role,:is_active) RETURNING id, created_at`
	stmt, err := r.db.NamedQueryContext(ctx, q, u)
	if err != nil {
		return err
	}
	defer stmt.Close()
	if stmt.Next() {
		return stmt.Scan(&u.ID, &u.CreatedAt)
	}
	if err := stmt.Err(); err != nil {
		return err
	}
	return errors.New("no id returned")
}

// GetByEmail returns a user matched by email (case-insensitive due to citext) or sql.ErrNoRows.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var u entity.User
	if err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email=$1`, email); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID fetches a full user row or sql.ErrNoRows.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	var u entity.User
	if err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id=$1`, id); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetMinimalAuthView returns only the fields needed for token claim hydration.
func (r *UserRepo) GetMinimalAuthView(ctx context.Context, id int64) (*entity.MinimalAuthView, error) {
	var v entity.MinimalAuthView
	if err := r.db.GetContext(ctx, &v, `SELECT id, email, role FROM users WHERE id=$1`, id); err != nil {
		return nil, err
	}
	return &v, nil
}

// Update applies a partial update limited to name, email and role.
func (r *UserRepo) Update(ctx context.Context, id int64, fields map[string]any) (*entity.User, error) {
	q, args, err := database.BuildUpdate("users", id, fields, []string{"name", "email", "role"}, userColumns)
	if err != nil {
		return nil, err
	}
	var u entity.User
	if err := r.db.GetContext(ctx, &u, q, args...); err != nil {
		return nil, err
	}
	return &u, nil
}

// SetActive flips the soft-delete flag and returns the updated row.
func (r *UserRepo) SetActive(ctx context.Context, id int64, active bool) (*entity.User, error) {
	flag := 0
	if active {
		flag = 1
	}
	var u entity.User
	q := `UPDATE users SET is_active=$2 WHERE id=$1 RETURNING ` + userColumns
	if err := r.db.GetContext(ctx, &u, q, id, flag); err != nil {
		return nil, err
	}
	return &u, nil
}

// Delete removes the row permanently.
func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateRole inserts a role and fills its ID.
func (r *UserRepo) CreateRole(ctx context.Context, role *entity.Role) error {
	const q = `INSERT INTO roles (name, description) VALUES ($1, $2) RETURNING id`
	return r.db.QueryRowxContext(ctx, q, role.Name, role.Description).Scan(&role.ID)
}

// ListRoles returns the role catalogue ordered by name.
func (r *UserRepo) ListRoles(ctx context.Context) ([]entity.Role, error) {
	roles := []entity.Role{}
	if err := r.db.SelectContext(ctx, &roles, `SELECT id, name, description FROM roles ORDER BY name`); err != nil {
		return nil, err
	}
	return roles, nil
}
