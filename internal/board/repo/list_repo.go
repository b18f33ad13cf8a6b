package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/board/entity"
	"github.com/ovaphlow/pitchfork/service-kanban-go/pkg/database"
)

func (r *BoardRepo) CreateList(ctx context.Context, l *entity.List) error {
	const q = `INSERT INTO lists (board_id, name, position) VALUES ($1, $2, $3) RETURNING id`
	return r.db.QueryRowxContext(ctx, q, l.BoardID, l.Name, l.Position).Scan(&l.ID)
}

func (r *BoardRepo) GetList(ctx context.Context, id int64) (*entity.List, error) {
	var l entity.List
	if err := r.db.GetContext(ctx, &l, `SELECT `+listColumns+` FROM lists WHERE id=$1`, id); err != nil {
		return nil, err
	}
	return &l, nil
}

// ListLists returns the board's lists ordered by position.
func (r *BoardRepo) ListLists(ctx context.Context, boardID int64) ([]entity.List, error) {
	out := []entity.List{}
	if err := r.db.SelectContext(ctx, &out, `SELECT `+listColumns+` FROM lists WHERE board_id=$1 ORDER BY position, id`, boardID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BoardRepo) UpdateList(ctx context.Context, id int64, fields map[string]any) (*entity.List, error) {
	q, args, err := database.BuildUpdate("lists", id, fields, []string{"name", "position"}, listColumns)
	if err != nil {
		return nil, err
	}
	var l entity.List
	if err := r.db.GetContext(ctx, &l, q, args...); err != nil {
		return nil, err
	}
	return &l, nil
}

// DeleteList removes the list with its tasks, labels and attachments.
func (r *BoardRepo) DeleteList(ctx context.Context, id int64) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := execAll(ctx, tx, id,
			`DELETE FROM task_labels WHERE task_id IN (SELECT id FROM tasks WHERE list_id=$1)`,
			`DELETE FROM task_attachments WHERE task_id IN (SELECT id FROM tasks WHERE list_id=$1)`,
			`DELETE FROM tasks WHERE list_id=$1`,
		)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM lists WHERE id=$1`, id)
		if err != nil {
			return err
		}
		return affected(res)
	})
}
