package board

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/ovaphlow/pitchfork/service-kanban-go/pkg/utilities"
)

type BoardRequest struct {
	ProjectID int64  `json:"project_id"`
	Name      string `json:"name"`
}

func (r BoardRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ProjectID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.Name, validation.Required, utilities.NotBlank, validation.Length(1, 255)),
	)
}

type BoardPatch struct {
	Name *string `json:"name"`
}

func (r BoardPatch) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, utilities.NotBlank, validation.Length(1, 255)),
	)
}

type ListRequest struct {
	BoardID  int64  `json:"board_id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

func (r ListRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.BoardID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.Name, validation.Required, utilities.NotBlank, validation.Length(1, 255)),
		validation.Field(&r.Position, validation.Min(0)),
	)
}

type ListPatch struct {
	Name     *string `json:"name"`
	Position *int    `json:"position"`
}

func (r ListPatch) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, utilities.NotBlank, validation.Length(1, 255)),
		validation.Field(&r.Position, validation.Min(0)),
	)
}

type TaskRequest struct {
	ListID      int64      `json:"list_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	AssigneeID  *int64     `json:"assignee_id"`
	Priority    *string    `json:"priority"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"due_date"`
}

func (r TaskRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ListID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.Title, validation.Required, utilities.NotBlank, validation.Length(1, 255)),
		validation.Field(&r.AssigneeID, validation.Min(int64(1))),
		validation.Field(&r.Priority, validation.Length(0, 50)),
		validation.Field(&r.Status, utilities.NotBlank, validation.Length(0, 50)),
	)
}

// TaskPatch is a partial update; nil fields are left untouched.
type TaskPatch struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	AssigneeID  *int64     `json:"assignee_id"`
	Priority    *string    `json:"priority"`
	Status      *string    `json:"status"`
	DueDate     *time.Time `json:"due_date"`
	ListID      *int64     `json:"list_id"`
}

func (r TaskPatch) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.NilOrNotEmpty, utilities.NotBlank, validation.Length(1, 255)),
		validation.Field(&r.AssigneeID, validation.Min(int64(1))),
		validation.Field(&r.Priority, validation.Length(0, 50)),
		validation.Field(&r.Status, validation.NilOrNotEmpty, utilities.NotBlank, validation.Length(1, 50)),
		validation.Field(&r.ListID, validation.Min(int64(1))),
	)
}

func (r TaskPatch) fields() map[string]any {
	f := map[string]any{}
	if r.Title != nil {
		f["title"] = *r.Title
	}
	if r.Description != nil {
		f["description"] = *r.Description
	}
	if r.AssigneeID != nil {
		f["assignee_id"] = *r.AssigneeID
	}
	if r.Priority != nil {
		f["priority"] = *r.Priority
	}
	if r.Status != nil {
		f["status"] = *r.Status
	}
	if r.DueDate != nil {
		f["due_date"] = *r.DueDate
	}
	if r.ListID != nil {
		f["list_id"] = *r.ListID
	}
	return f
}

type MoveRequest struct {
	NewListID   int64 `json:"new_list_id"`
	NewPosition *int  `json:"new_position"`
}

func (r MoveRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.NewListID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.NewPosition, validation.Min(0)),
	)
}

type LabelRequest struct {
	Label string `json:"label"`
}

func (r LabelRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Label, validation.Required, utilities.NotBlank, validation.Length(1, 100)),
	)
}

type AttachmentRequest struct {
	FileURL string `json:"file_url"`
}

func (r AttachmentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FileURL, validation.Required, is.URL, validation.Length(1, 512)),
	)
}
