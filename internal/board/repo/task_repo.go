package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/board/entity"
	"github.com/ovaphlow/pitchfork/service-kanban-go/pkg/database"
)

// TaskFields are the task columns a partial update may touch.
var TaskFields = []string{"title", "description", "assignee_id", "priority", "status", "due_date", "list_id"}

// CreateTask appends the task at the end of its list.
func (r *BoardRepo) CreateTask(ctx context.Context, t *entity.Task) error {
	if t.Status == "" {
		t.Status = "todo"
	}
	const q = `INSERT INTO tasks (list_id, title, description, assignee_id, priority, status, due_date, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, (SELECT COALESCE(MAX(position) + 1, 0) FROM tasks WHERE list_id=$1))
		RETURNING id, position, created_at`
	return r.db.QueryRowxContext(ctx, q, t.ListID, t.Title, t.Description, t.AssigneeID, t.Priority, t.Status, t.DueDate).
		Scan(&t.ID, &t.Position, &t.CreatedAt)
}

func (r *BoardRepo) GetTask(ctx context.Context, id int64) (*entity.Task, error) {
	var t entity.Task
	if err := r.db.GetContext(ctx, &t, `SELECT `+taskColumns+` FROM tasks WHERE id=$1`, id); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *BoardRepo) ListTasks(ctx context.Context, listID int64) ([]entity.Task, error) {
	out := []entity.Task{}
	if err := r.db.SelectContext(ctx, &out, `SELECT `+taskColumns+` FROM tasks WHERE list_id=$1 ORDER BY position, id`, listID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BoardRepo) UpdateTask(ctx context.Context, id int64, fields map[string]any) (*entity.Task, error) {
	q, args, err := database.BuildUpdate("tasks", id, fields, TaskFields, taskColumns)
	if err != nil {
		return nil, err
	}
	var t entity.Task
	if err := r.db.GetContext(ctx, &t, q, args...); err != nil {
		return nil, err
	}
	return &t, nil
}

// MoveTask puts the task into listID. With a position, tasks at or after it
// shift down by one; without, the task goes to the end of the list.
func (r *BoardRepo) MoveTask(ctx context.Context, id, listID int64, position *int) (*entity.Task, error) {
	var t entity.Task
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if position == nil {
			const q = `UPDATE tasks SET list_id=$2,
				position=(SELECT COALESCE(MAX(position) + 1, 0) FROM tasks WHERE list_id=$2 AND id<>$1)
				WHERE id=$1 RETURNING ` + taskColumns
			return tx.GetContext(ctx, &t, q, id, listID)
		}
		const shift = `UPDATE tasks SET position=position+1 WHERE list_id=$1 AND position>=$2 AND id<>$3`
		if _, err := tx.ExecContext(ctx, shift, listID, *position, id); err != nil {
			return err
		}
		const q = `UPDATE tasks SET list_id=$2, position=$3 WHERE id=$1 RETURNING ` + taskColumns
		return tx.GetContext(ctx, &t, q, id, listID, *position)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTask removes the task with its labels and attachments.
func (r *BoardRepo) DeleteTask(ctx context.Context, id int64) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := execAll(ctx, tx, id,
			`DELETE FROM task_labels WHERE task_id=$1`,
			`DELETE FROM task_attachments WHERE task_id=$1`,
		)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=$1`, id)
		if err != nil {
			return err
		}
		return affected(res)
	})
}

func (r *BoardRepo) AddLabel(ctx context.Context, l *entity.Label) error {
	const q = `INSERT INTO task_labels (task_id, label) VALUES ($1, $2) RETURNING id`
	return r.db.QueryRowxContext(ctx, q, l.TaskID, l.Label).Scan(&l.ID)
}

func (r *BoardRepo) ListLabels(ctx context.Context, taskID int64) ([]entity.Label, error) {
	out := []entity.Label{}
	if err := r.db.SelectContext(ctx, &out, `SELECT id, task_id, label FROM task_labels WHERE task_id=$1 ORDER BY id`, taskID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BoardRepo) DeleteLabel(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM task_labels WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return affected(res)
}

func (r *BoardRepo) AddAttachment(ctx context.Context, a *entity.Attachment) error {
	const q = `INSERT INTO task_attachments (task_id, file_url) VALUES ($1, $2) RETURNING id, uploaded_at`
	return r.db.QueryRowxContext(ctx, q, a.TaskID, a.FileURL).Scan(&a.ID, &a.UploadedAt)
}

func (r *BoardRepo) ListAttachments(ctx context.Context, taskID int64) ([]entity.Attachment, error) {
	out := []entity.Attachment{}
	if err := r.db.SelectContext(ctx, &out, `SELECT `+attachmentColumns+` FROM task_attachments WHERE task_id=$1 ORDER BY id`, taskID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BoardRepo) DeleteAttachment(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM task_attachments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return affected(res)
}
