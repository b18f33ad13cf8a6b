package repo

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/project/entity"
	"github.com/ovaphlow/pitchfork/service-kanban-go/pkg/database"
)

const projectColumns = `id, name, description, owner_id, created_at`

// ProjectRepo provides data access for projects and project_members.
type ProjectRepo struct {
	db *sqlx.DB
}

func NewProjectRepo(db *sqlx.DB) *ProjectRepo { return &ProjectRepo{db: db} }

// EnsureTable creates the tables if not exists (idempotent).
func (r *ProjectRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS projects (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  owner_id BIGINT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS project_members (
  id BIGSERIAL PRIMARY KEY,
  project_id BIGINT NOT NULL,
  user_id BIGINT NOT NULL,
  role TEXT NOT NULL,
  UNIQUE (project_id, user_id, role)
);
CREATE INDEX IF NOT EXISTS idx_project_members_user ON project_members (user_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// CreateWithOwner inserts the project and the owner's membership in one
// transaction; p.ID and p.CreatedAt are filled on success.
func (r *ProjectRepo) CreateWithOwner(ctx context.Context, p *entity.Project) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const q = `INSERT INTO projects (name, description, owner_id) VALUES ($1, $2, $3) RETURNING id, created_at`
		if err := tx.QueryRowxContext(ctx, q, p.Name, p.Description, p.OwnerID).Scan(&p.ID, &p.CreatedAt); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO project_members (project_id, user_id, role) VALUES ($1, $2, 'owner')`, p.ID, p.OwnerID)
		return err
	})
}

func (r *ProjectRepo) GetByID(ctx context.Context, id int64) (*entity.Project, error) {
	var p entity.Project
	if err := r.db.GetContext(ctx, &p, `SELECT `+projectColumns+` FROM projects WHERE id=$1`, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListForUser returns projects where the user holds any membership.
func (r *ProjectRepo) ListForUser(ctx context.Context, userID int64) ([]entity.Project, error) {
	const q = `SELECT ` + projectColumns + ` FROM projects
		WHERE id IN (SELECT project_id FROM project_members WHERE user_id=$1) ORDER BY id`
	out := []entity.Project{}
	if err := r.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies a partial update limited to name and description.
func (r *ProjectRepo) Update(ctx context.Context, id int64, fields map[string]any) (*entity.Project, error) {
	q, args, err := database.BuildUpdate("projects", id, fields, []string{"name", "description"}, projectColumns)
	if err != nil {
		return nil, err
	}
	var p entity.Project
	if err := r.db.GetContext(ctx, &p, q, args...); err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes the memberships and the project in one transaction.
func (r *ProjectRepo) Delete(ctx context.Context, id int64) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM project_members WHERE project_id=$1`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

// Roles lists every role the user holds in the project, uncached.
func (r *ProjectRepo) Roles(ctx context.Context, projectID, userID int64) ([]string, error) {
	roles := []string{}
	const q = `SELECT role FROM project_members WHERE project_id=$1 AND user_id=$2`
	if err := r.db.SelectContext(ctx, &roles, q, projectID, userID); err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *ProjectRepo) ListMembers(ctx context.Context, projectID int64) ([]entity.Member, error) {
	out := []entity.Member{}
	const q = `SELECT id, project_id, user_id, role FROM project_members WHERE project_id=$1 ORDER BY id`
	if err := r.db.SelectContext(ctx, &out, q, projectID); err != nil {
		return nil, err
	}
	return out, nil
}

// AddMember inserts a membership row and fills m.ID.
func (r *ProjectRepo) AddMember(ctx context.Context, m *entity.Member) error {
	const q = `INSERT INTO project_members (project_id, user_id, role) VALUES ($1, $2, $3) RETURNING id`
	return r.db.QueryRowxContext(ctx, q, m.ProjectID, m.UserID, m.Role).Scan(&m.ID)
}

// SetMemberRole replaces every row the user holds in the project with a
// single row carrying role. sql.ErrNoRows when the user is not a member.
func (r *ProjectRepo) SetMemberRole(ctx context.Context, projectID, userID int64, role string) (*entity.Member, error) {
	m := &entity.Member{ProjectID: projectID, UserID: userID, Role: role}
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM project_members WHERE project_id=$1 AND user_id=$2`, projectID, userID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return sql.ErrNoRows
		}
		const q = `INSERT INTO project_members (project_id, user_id, role) VALUES ($1, $2, $3) RETURNING id`
		return tx.QueryRowxContext(ctx, q, projectID, userID, role).Scan(&m.ID)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// DeleteMember removes every row the user holds in the project.
func (r *ProjectRepo) DeleteMember(ctx context.Context, projectID, userID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM project_members WHERE project_id=$1 AND user_id=$2`, projectID, userID)
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
