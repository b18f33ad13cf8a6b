package repo

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/board/entity"
	"github.com/ovaphlow/pitchfork/service-kanban-go/pkg/database"
)

const (
	boardColumns      = `id, project_id, name, created_at`
	listColumns       = `id, board_id, name, position`
	taskColumns       = `id, list_id, title, description, assignee_id, priority, status, due_date, position, created_at`
	attachmentColumns = `id, task_id, file_url, uploaded_at`
)

// BoardRepo provides data access for boards, lists, tasks and their labels
// and attachments. Deletes cascade down the hierarchy inside one transaction.
type BoardRepo struct {
	db *sqlx.DB
}

func NewBoardRepo(db *sqlx.DB) *BoardRepo { return &BoardRepo{db: db} }

// EnsureTable creates the board tables if not exists (idempotent).
func (r *BoardRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS boards (
  id BIGSERIAL PRIMARY KEY,
  project_id BIGINT NOT NULL,
  name TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_boards_project ON boards (project_id);
CREATE TABLE IF NOT EXISTS lists (
  id BIGSERIAL PRIMARY KEY,
  board_id BIGINT NOT NULL REFERENCES boards(id),
  name TEXT NOT NULL,
  position INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS tasks (
  id BIGSERIAL PRIMARY KEY,
  list_id BIGINT NOT NULL REFERENCES lists(id),
  title TEXT NOT NULL,
  description TEXT,
  assignee_id BIGINT,
  priority TEXT,
  status TEXT NOT NULL DEFAULT 'todo',
  due_date TIMESTAMPTZ,
  position INTEGER NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS task_labels (
  id BIGSERIAL PRIMARY KEY,
  task_id BIGINT NOT NULL REFERENCES tasks(id),
  label TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS task_attachments (
  id BIGSERIAL PRIMARY KEY,
  task_id BIGINT NOT NULL REFERENCES tasks(id),
  file_url TEXT NOT NULL,
  uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// parent runs a single-column lookup; sql.ErrNoRows when the row is missing.
func (r *BoardRepo) parent(ctx context.Context, q string, id int64) (int64, error) {
	var out int64
	if err := r.db.GetContext(ctx, &out, q, id); err != nil {
		return 0, err
	}
	return out, nil
}

func (r *BoardRepo) BoardProject(ctx context.Context, boardID int64) (int64, error) {
	return r.parent(ctx, `SELECT project_id FROM boards WHERE id=$1`, boardID)
}

func (r *BoardRepo) ListBoard(ctx context.Context, listID int64) (int64, error) {
	return r.parent(ctx, `SELECT board_id FROM lists WHERE id=$1`, listID)
}

func (r *BoardRepo) TaskList(ctx context.Context, taskID int64) (int64, error) {
	return r.parent(ctx, `SELECT list_id FROM tasks WHERE id=$1`, taskID)
}

func (r *BoardRepo) LabelTask(ctx context.Context, labelID int64) (int64, error) {
	return r.parent(ctx, `SELECT task_id FROM task_labels WHERE id=$1`, labelID)
}

func (r *BoardRepo) AttachmentTask(ctx context.Context, attachmentID int64) (int64, error) {
	return r.parent(ctx, `SELECT task_id FROM task_attachments WHERE id=$1`, attachmentID)
}

// affected turns a zero-row delete into sql.ErrNoRows.
func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// execAll runs each statement with the same single argument.
func execAll(ctx context.Context, tx *sqlx.Tx, arg int64, stmts ...string) error {
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q, arg); err != nil {
			return err
		}
	}
	return nil
}

func (r *BoardRepo) CreateBoard(ctx context.Context, b *entity.Board) error {
	const q = `INSERT INTO boards (project_id, name) VALUES ($1, $2) RETURNING id, created_at`
	return r.db.QueryRowxContext(ctx, q, b.ProjectID, b.Name).Scan(&b.ID, &b.CreatedAt)
}

func (r *BoardRepo) GetBoard(ctx context.Context, id int64) (*entity.Board, error) {
	var b entity.Board
	if err := r.db.GetContext(ctx, &b, `SELECT `+boardColumns+` FROM boards WHERE id=$1`, id); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BoardRepo) ListBoards(ctx context.Context, projectID int64) ([]entity.Board, error) {
	out := []entity.Board{}
	if err := r.db.SelectContext(ctx, &out, `SELECT `+boardColumns+` FROM boards WHERE project_id=$1 ORDER BY id`, projectID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BoardRepo) UpdateBoard(ctx context.Context, id int64, fields map[string]any) (*entity.Board, error) {
	q, args, err := database.BuildUpdate("boards", id, fields, []string{"name"}, boardColumns)
	if err != nil {
		return nil, err
	}
	var b entity.Board
	if err := r.db.GetContext(ctx, &b, q, args...); err != nil {
		return nil, err
	}
	return &b, nil
}

// DeleteBoard removes the board with its lists, tasks, labels and attachments.
func (r *BoardRepo) DeleteBoard(ctx context.Context, id int64) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const tasksOfBoard = `SELECT t.id FROM tasks t JOIN lists l ON l.id = t.list_id WHERE l.board_id=$1`
		err := execAll(ctx, tx, id,
			`DELETE FROM task_labels WHERE task_id IN (`+tasksOfBoard+`)`,
			`DELETE FROM task_attachments WHERE task_id IN (`+tasksOfBoard+`)`,
			`DELETE FROM tasks WHERE list_id IN (SELECT id FROM lists WHERE board_id=$1)`,
			`DELETE FROM lists WHERE board_id=$1`,
		)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM boards WHERE id=$1`, id)
		if err != nil {
			return err
		}
		return affected(res)
	})
}
