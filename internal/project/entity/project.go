package entity

import "time"

// Project owner_id references a user of the identity service; there is no
// foreign key across services.
type Project struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description"`
	OwnerID     int64     `db:"owner_id" json:"owner_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Member is one (project, user, role) row. A user may hold several rows
// with different roles.
type Member struct {
	ID        int64  `db:"id" json:"id"`
	ProjectID int64  `db:"project_id" json:"project_id"`
	UserID    int64  `db:"user_id" json:"user_id"`
	Role      string `db:"role" json:"role"`
}

// MemberRole answers the permission lookup other services call.
type MemberRole struct {
	ProjectID int64  `json:"project_id"`
	UserID    int64  `json:"user_id"`
	Role      string `json:"role"`
}
