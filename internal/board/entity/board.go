package entity

import "time"

// Board project_id references the project service; no foreign key.
type Board struct {
	ID        int64     `db:"id" json:"id"`
	ProjectID int64     `db:"project_id" json:"project_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type List struct {
	ID       int64  `db:"id" json:"id"`
	BoardID  int64  `db:"board_id" json:"board_id"`
	Name     string `db:"name" json:"name"`
	Position int    `db:"position" json:"position"`
}

// Task assignee_id references the identity service; no foreign key.
type Task struct {
	ID          int64      `db:"id" json:"id"`
	ListID      int64      `db:"list_id" json:"list_id"`
	Title       string     `db:"title" json:"title"`
	Description *string    `db:"description" json:"description"`
	AssigneeID  *int64     `db:"assignee_id" json:"assignee_id"`
	Priority    *string    `db:"priority" json:"priority"`
	Status      string     `db:"status" json:"status"`
	DueDate     *time.Time `db:"due_date" json:"due_date"`
	Position    int        `db:"position" json:"position"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

type Label struct {
	ID     int64  `db:"id" json:"id"`
	TaskID int64  `db:"task_id" json:"task_id"`
	Label  string `db:"label" json:"label"`
}

type Attachment struct {
	ID         int64     `db:"id" json:"id"`
	TaskID     int64     `db:"task_id" json:"task_id"`
	FileURL    string    `db:"file_url" json:"file_url"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// TaskPermission answers GET /tasks/{id}/permission/{user_id}.
type TaskPermission struct {
	TaskID    int64  `json:"task_id"`
	ProjectID int64  `json:"project_id"`
	Role      string `json:"role"`
}
