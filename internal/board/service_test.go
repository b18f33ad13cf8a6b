package board

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-kanban-go/pkg/token"
)

const (
	projectA = int64(100)
	projectB = int64(200)
)

func member(id int64) token.Identity {
	return token.Identity{UserID: id, Role: "member", Raw: "raw"}
}

// fixture: user 1 owns A, user 2 is a member of A, user 3 a guest of A,
// user 1 has no role in B.
func newFixture(t *testing.T) (*Service, *memStore, *fakeRoles) {
	t.Helper()
	store := newMemStore()
	roles := &fakeRoles{roles: map[[2]int64]string{
		{projectA, 1}: "owner",
		{projectA, 2}: "member",
		{projectA, 3}: "guest",
		{projectB, 2}: "member",
	}}
	return NewService(store, NewAuthorizer(roles, nil)), store, roles
}

func TestResolverShortCircuitsBeforeMembershipCall(t *testing.T) {
	svc, store, roles := newFixture(t)
	ctx := context.Background()

	_, err := svc.GetTask(ctx, member(1), 999)
	assert.Equal(t, ErrTaskNotFound, err)
	_, err = svc.CreateTask(ctx, member(1), TaskRequest{ListID: 999, Title: "x"})
	assert.Equal(t, ErrListNotFound, err)
	assert.Equal(t, ErrLabelNotFound, svc.DeleteLabel(ctx, member(1), 999))
	assert.Equal(t, ErrAttachmentNotFound, svc.DeleteAttachment(ctx, member(1), 999))

	// a list whose board is gone
	store.lists[50] = listRow(50, 404)
	_, err = svc.ListTasks(ctx, member(1), 50)
	assert.Equal(t, ErrBoardNotFound, err)

	assert.Zero(t, roles.calls)
}

func TestHierarchyCRUD(t *testing.T) {
	svc, _, roles := newFixture(t)
	ctx := context.Background()

	b, err := svc.CreateBoard(ctx, member(1), BoardRequest{ProjectID: projectA, Name: "Sprint"})
	require.NoError(t, err)
	l, err := svc.CreateList(ctx, member(2), ListRequest{BoardID: b.ID, Name: "Todo"})
	require.NoError(t, err)
	task, err := svc.CreateTask(ctx, member(2), TaskRequest{ListID: l.ID, Title: "Write docs"})
	require.NoError(t, err)
	assert.Equal(t, "todo", task.Status)

	got, err := svc.GetTask(ctx, member(1), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write docs", got.Title)

	status := "done"
	upd, err := svc.UpdateTask(ctx, member(2), task.ID, TaskPatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "done", upd.Status)

	assigned, err := svc.AssignTask(ctx, member(2), task.ID, 9)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssigneeID)
	assert.Equal(t, int64(9), *assigned.AssigneeID)

	lbl, err := svc.AddLabel(ctx, member(2), task.ID, LabelRequest{Label: "docs"})
	require.NoError(t, err)
	att, err := svc.AddAttachment(ctx, member(2), task.ID, AttachmentRequest{FileURL: "https://files.example.com/brief.pdf"})
	require.NoError(t, err)
	_, err = svc.AddAttachment(ctx, member(2), task.ID, AttachmentRequest{FileURL: "not a url"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	labels, err := svc.ListLabels(ctx, member(1), task.ID)
	require.NoError(t, err)
	assert.Len(t, labels, 1)
	require.NoError(t, svc.DeleteLabel(ctx, member(1), lbl.ID))
	require.NoError(t, svc.DeleteAttachment(ctx, member(1), att.ID))

	boards, err := svc.ListProjectBoards(ctx, member(2), projectA)
	require.NoError(t, err)
	assert.Len(t, boards, 1)
	assert.Positive(t, roles.calls)
}

func TestGuestsAndStrangersDenied(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()
	b, err := svc.CreateBoard(ctx, member(1), BoardRequest{ProjectID: projectA, Name: "Sprint"})
	require.NoError(t, err)

	_, err = svc.GetBoard(ctx, member(3), b.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "Not authorized for this project", ae.Detail)

	_, err = svc.GetBoard(ctx, member(42), b.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.CreateBoard(ctx, member(1), BoardRequest{ProjectID: projectB, Name: "Other"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestMembershipFailureFailsClosed(t *testing.T) {
	svc, _, roles := newFixture(t)
	ctx := context.Background()
	b, err := svc.CreateBoard(ctx, member(1), BoardRequest{ProjectID: projectA, Name: "Sprint"})
	require.NoError(t, err)

	roles.err = errors.New("connection refused")
	_, err = svc.GetBoard(ctx, member(1), b.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestMoveTaskAuthorizesBothLists(t *testing.T) {
	svc, _, roles := newFixture(t)
	ctx := context.Background()

	boardA, err := svc.CreateBoard(ctx, member(2), BoardRequest{ProjectID: projectA, Name: "A"})
	require.NoError(t, err)
	boardB, err := svc.CreateBoard(ctx, member(2), BoardRequest{ProjectID: projectB, Name: "B"})
	require.NoError(t, err)
	listA, err := svc.CreateList(ctx, member(2), ListRequest{BoardID: boardA.ID, Name: "Todo"})
	require.NoError(t, err)
	listA2, err := svc.CreateList(ctx, member(2), ListRequest{BoardID: boardA.ID, Name: "Done"})
	require.NoError(t, err)
	listB, err := svc.CreateList(ctx, member(2), ListRequest{BoardID: boardB.ID, Name: "Todo"})
	require.NoError(t, err)
	task, err := svc.CreateTask(ctx, member(1), TaskRequest{ListID: listA.ID, Title: "Ship"})
	require.NoError(t, err)

	pos := 0
	moved, err := svc.MoveTask(ctx, member(1), task.ID, MoveRequest{NewListID: listA2.ID, NewPosition: &pos})
	require.NoError(t, err)
	assert.Equal(t, listA2.ID, moved.ListID)

	// user 1 owns A but has no role in B
	before := roles.calls
	_, err = svc.MoveTask(ctx, member(1), task.ID, MoveRequest{NewListID: listB.ID})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, before+2, roles.calls)

	_, err = svc.UpdateTask(ctx, member(1), task.ID, TaskPatch{ListID: &listB.ID})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	moved, err = svc.MoveTask(ctx, member(2), task.ID, MoveRequest{NewListID: listB.ID})
	require.NoError(t, err)
	assert.Equal(t, listB.ID, moved.ListID)

	missing := int64(999)
	_, err = svc.MoveTask(ctx, member(2), task.ID, MoveRequest{NewListID: missing})
	assert.Equal(t, ErrListNotFound, err)
}

func TestDeleteBoardCascades(t *testing.T) {
	svc, store, _ := newFixture(t)
	ctx := context.Background()
	b, err := svc.CreateBoard(ctx, member(1), BoardRequest{ProjectID: projectA, Name: "Sprint"})
	require.NoError(t, err)
	l, err := svc.CreateList(ctx, member(1), ListRequest{BoardID: b.ID, Name: "Todo"})
	require.NoError(t, err)
	task, err := svc.CreateTask(ctx, member(1), TaskRequest{ListID: l.ID, Title: "x"})
	require.NoError(t, err)
	_, err = svc.AddLabel(ctx, member(1), task.ID, LabelRequest{Label: "bug"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBoard(ctx, member(1), b.ID))
	assert.Empty(t, store.lists)
	assert.Empty(t, store.tasks)
	assert.Empty(t, store.labels)

	_, err = svc.GetTask(ctx, member(1), task.ID)
	assert.Equal(t, ErrTaskNotFound, err)
}

func TestTaskPermission(t *testing.T) {
	svc, _, roles := newFixture(t)
	ctx := context.Background()
	b, err := svc.CreateBoard(ctx, member(1), BoardRequest{ProjectID: projectA, Name: "Sprint"})
	require.NoError(t, err)
	l, err := svc.CreateList(ctx, member(1), ListRequest{BoardID: b.ID, Name: "Todo"})
	require.NoError(t, err)
	task, err := svc.CreateTask(ctx, member(1), TaskRequest{ListID: l.ID, Title: "x"})
	require.NoError(t, err)

	p, err := svc.TaskPermission(ctx, member(2), task.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, projectA, p.ProjectID)
	assert.Equal(t, "member", p.Role)

	_, err = svc.TaskPermission(ctx, member(2), task.ID, 1)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.TaskPermission(ctx, member(3), task.ID, 3)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	before := roles.calls
	_, err = svc.TaskPermission(ctx, member(2), 999, 2)
	assert.Equal(t, ErrTaskNotFound, err)
	assert.Equal(t, before, roles.calls)
}

func TestBlankNamesRejected(t *testing.T) {
	svc, store, _ := newFixture(t)
	ctx := context.Background()

	_, err := svc.CreateBoard(ctx, member(1), BoardRequest{ProjectID: projectA, Name: "   "})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	b, err := svc.CreateBoard(ctx, member(1), BoardRequest{ProjectID: projectA, Name: "Sprint"})
	require.NoError(t, err)
	blank := "  "
	_, err = svc.UpdateBoard(ctx, member(1), b.ID, BoardPatch{Name: &blank})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.CreateList(ctx, member(1), ListRequest{BoardID: b.ID, Name: "\t"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	l, err := svc.CreateList(ctx, member(1), ListRequest{BoardID: b.ID, Name: "Todo"})
	require.NoError(t, err)

	_, err = svc.CreateTask(ctx, member(1), TaskRequest{ListID: l.ID, Title: " "})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	task, err := svc.CreateTask(ctx, member(1), TaskRequest{ListID: l.ID, Title: "Write docs"})
	require.NoError(t, err)
	_, err = svc.UpdateTask(ctx, member(1), task.ID, TaskPatch{Status: &blank})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.AddLabel(ctx, member(1), task.ID, LabelRequest{Label: "   "})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	got, err := store.GetBoard(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sprint", got.Name)
}
