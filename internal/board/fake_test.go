package board

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/board/entity"
)

// memStore is an in-memory Store.
type memStore struct {
	mu          sync.Mutex
	next        int64
	boards      map[int64]entity.Board
	lists       map[int64]entity.List
	tasks       map[int64]entity.Task
	labels      map[int64]entity.Label
	attachments map[int64]entity.Attachment
}

func newMemStore() *memStore {
	return &memStore{
		boards:      map[int64]entity.Board{},
		lists:       map[int64]entity.List{},
		tasks:       map[int64]entity.Task{},
		labels:      map[int64]entity.Label{},
		attachments: map[int64]entity.Attachment{},
	}
}

func (m *memStore) id() int64 { m.next++; return m.next }

func (m *memStore) BoardProject(_ context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[id]
	if !ok {
		return 0, sql.ErrNoRows
	}
	return b.ProjectID, nil
}

func (m *memStore) ListBoard(_ context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[id]
	if !ok {
		return 0, sql.ErrNoRows
	}
	return l.BoardID, nil
}

func (m *memStore) TaskList(_ context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return 0, sql.ErrNoRows
	}
	return t.ListID, nil
}

func (m *memStore) LabelTask(_ context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.labels[id]
	if !ok {
		return 0, sql.ErrNoRows
	}
	return l.TaskID, nil
}

func (m *memStore) AttachmentTask(_ context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attachments[id]
	if !ok {
		return 0, sql.ErrNoRows
	}
	return a.TaskID, nil
}

func (m *memStore) CreateBoard(_ context.Context, b *entity.Board) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = m.id()
	b.CreatedAt = time.Now()
	m.boards[b.ID] = *b
	return nil
}

func (m *memStore) GetBoard(_ context.Context, id int64) (*entity.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &b, nil
}

func (m *memStore) ListBoards(_ context.Context, projectID int64) ([]entity.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []entity.Board{}
	for _, b := range m.boards {
		if b.ProjectID == projectID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) UpdateBoard(_ context.Context, id int64, fields map[string]any) (*entity.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if v, ok := fields["name"]; ok {
		b.Name = v.(string)
	}
	m.boards[id] = b
	return &b, nil
}

func (m *memStore) DeleteBoard(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.boards[id]; !ok {
		return sql.ErrNoRows
	}
	for lid, l := range m.lists {
		if l.BoardID == id {
			m.deleteListLocked(lid)
		}
	}
	delete(m.boards, id)
	return nil
}

func (m *memStore) CreateList(_ context.Context, l *entity.List) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = m.id()
	m.lists[l.ID] = *l
	return nil
}

func (m *memStore) GetList(_ context.Context, id int64) (*entity.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &l, nil
}

func (m *memStore) ListLists(_ context.Context, boardID int64) ([]entity.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []entity.List{}
	for _, l := range m.lists {
		if l.BoardID == boardID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) UpdateList(_ context.Context, id int64, fields map[string]any) (*entity.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if v, ok := fields["name"]; ok {
		l.Name = v.(string)
	}
	if v, ok := fields["position"]; ok {
		l.Position = v.(int)
	}
	m.lists[id] = l
	return &l, nil
}

func (m *memStore) deleteListLocked(id int64) {
	for tid, t := range m.tasks {
		if t.ListID == id {
			m.deleteTaskLocked(tid)
		}
	}
	delete(m.lists, id)
}

func (m *memStore) DeleteList(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lists[id]; !ok {
		return sql.ErrNoRows
	}
	m.deleteListLocked(id)
	return nil
}

func (m *memStore) CreateTask(_ context.Context, t *entity.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.Status == "" {
		t.Status = "todo"
	}
	t.ID = m.id()
	for _, other := range m.tasks {
		if other.ListID == t.ListID && other.Position >= t.Position {
			t.Position = other.Position + 1
		}
	}
	t.CreatedAt = time.Now()
	m.tasks[t.ID] = *t
	return nil
}

func (m *memStore) GetTask(_ context.Context, id int64) (*entity.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &t, nil
}

func (m *memStore) ListTasks(_ context.Context, listID int64) ([]entity.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []entity.Task{}
	for _, t := range m.tasks {
		if t.ListID == listID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) UpdateTask(_ context.Context, id int64, fields map[string]any) (*entity.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	for k, v := range fields {
		switch k {
		case "title":
			t.Title = v.(string)
		case "status":
			t.Status = v.(string)
		case "assignee_id":
			a := v.(int64)
			t.AssigneeID = &a
		case "list_id":
			t.ListID = v.(int64)
		default:
			return nil, errors.New("unexpected field " + k)
		}
	}
	m.tasks[id] = t
	return &t, nil
}

func (m *memStore) MoveTask(_ context.Context, id, listID int64, position *int) (*entity.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	t.ListID = listID
	if position != nil {
		t.Position = *position
	}
	m.tasks[id] = t
	return &t, nil
}

func (m *memStore) deleteTaskLocked(id int64) {
	for lid, l := range m.labels {
		if l.TaskID == id {
			delete(m.labels, lid)
		}
	}
	for aid, a := range m.attachments {
		if a.TaskID == id {
			delete(m.attachments, aid)
		}
	}
	delete(m.tasks, id)
}

func (m *memStore) DeleteTask(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return sql.ErrNoRows
	}
	m.deleteTaskLocked(id)
	return nil
}

func (m *memStore) AddLabel(_ context.Context, l *entity.Label) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = m.id()
	m.labels[l.ID] = *l
	return nil
}

func (m *memStore) ListLabels(_ context.Context, taskID int64) ([]entity.Label, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []entity.Label{}
	for _, l := range m.labels {
		if l.TaskID == taskID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) DeleteLabel(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.labels[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.labels, id)
	return nil
}

func (m *memStore) AddAttachment(_ context.Context, a *entity.Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.id()
	a.UploadedAt = time.Now()
	m.attachments[a.ID] = *a
	return nil
}

func (m *memStore) ListAttachments(_ context.Context, taskID int64) ([]entity.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []entity.Attachment{}
	for _, a := range m.attachments {
		if a.TaskID == taskID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) DeleteAttachment(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attachments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.attachments, id)
	return nil
}

// fakeRoles serves roles from a (project, user) table and counts calls.
type fakeRoles struct {
	mu    sync.Mutex
	roles map[[2]int64]string
	err   error
	calls int
}

func (f *fakeRoles) RoleOf(_ context.Context, projectID, userID int64, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.roles[[2]int64{projectID, userID}], nil
}

func listRow(id, boardID int64) entity.List {
	return entity.List{ID: id, BoardID: boardID, Name: "orphan"}
}
