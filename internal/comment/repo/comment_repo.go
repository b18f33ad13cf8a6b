package repo

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/comment/entity"
)

const commentColumns = `id, task_id, user_id, content, created_at`

type CommentRepo struct {
	db *sqlx.DB
}

func NewCommentRepo(db *sqlx.DB) *CommentRepo { return &CommentRepo{db: db} }

// EnsureTable creates the comments table if not exists (idempotent).
func (r *CommentRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS comments (
  id BIGSERIAL PRIMARY KEY,
  task_id BIGINT NOT NULL,
  user_id BIGINT NOT NULL,
  content TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_comments_task ON comments (task_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *CommentRepo) Create(ctx context.Context, c *entity.Comment) error {
	const q = `INSERT INTO comments (task_id, user_id, content) VALUES ($1, $2, $3) RETURNING id, created_at`
	return r.db.QueryRowxContext(ctx, q, c.TaskID, c.UserID, c.Content).Scan(&c.ID, &c.CreatedAt)
}

func (r *CommentRepo) Get(ctx context.Context, id int64) (*entity.Comment, error) {
	var c entity.Comment
	if err := r.db.GetContext(ctx, &c, `SELECT `+commentColumns+` FROM comments WHERE id=$1`, id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CommentRepo) ListByTask(ctx context.Context, taskID int64) ([]entity.Comment, error) {
	out := []entity.Comment{}
	if err := r.db.SelectContext(ctx, &out, `SELECT `+commentColumns+` FROM comments WHERE task_id=$1 ORDER BY created_at, id`, taskID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CommentRepo) UpdateContent(ctx context.Context, id int64, content string) (*entity.Comment, error) {
	var c entity.Comment
	if err := r.db.GetContext(ctx, &c, `UPDATE comments SET content=$2 WHERE id=$1 RETURNING `+commentColumns, id, content); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CommentRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id=$1`, id)
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
