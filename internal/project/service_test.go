package project

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/project/entity"
	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/remote"
	"github.com/ovaphlow/pitchfork/service-kanban-go/pkg/token"
)

type memStore struct {
	mu       sync.Mutex
	projects map[int64]*entity.Project
	members  []entity.Member
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{projects: map[int64]*entity.Project{}}
}

func (m *memStore) id() int64 { m.nextID++; return m.nextID }

func (m *memStore) CreateWithOwner(_ context.Context, p *entity.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	p.CreatedAt = time.Now()
	cp := *p
	m.projects[p.ID] = &cp
	m.members = append(m.members, entity.Member{ID: m.id(), ProjectID: p.ID, UserID: p.OwnerID, Role: token.RoleOwner})
	return nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (*entity.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) ListForUser(_ context.Context, userID int64) ([]entity.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[int64]bool{}
	out := []entity.Project{}
	for _, mem := range m.members {
		if mem.UserID == userID && !seen[mem.ProjectID] {
			seen[mem.ProjectID] = true
			out = append(out, *m.projects[mem.ProjectID])
		}
	}
	return out, nil
}

func (m *memStore) Update(_ context.Context, id int64, fields map[string]any) (*entity.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if v, ok := fields["name"]; ok {
		p.Name = v.(string)
	}
	if v, ok := fields["description"]; ok {
		d := v.(string)
		p.Description = &d
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.projects, id)
	kept := m.members[:0]
	for _, mem := range m.members {
		if mem.ProjectID != id {
			kept = append(kept, mem)
		}
	}
	m.members = kept
	return nil
}

func (m *memStore) Roles(_ context.Context, projectID, userID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []string{}
	for _, mem := range m.members {
		if mem.ProjectID == projectID && mem.UserID == userID {
			out = append(out, mem.Role)
		}
	}
	return out, nil
}

func (m *memStore) ListMembers(_ context.Context, projectID int64) ([]entity.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []entity.Member{}
	for _, mem := range m.members {
		if mem.ProjectID == projectID {
			out = append(out, mem)
		}
	}
	return out, nil
}

func (m *memStore) AddMember(_ context.Context, mem *entity.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem.ID = m.id()
	m.members = append(m.members, *mem)
	return nil
}

func (m *memStore) SetMemberRole(_ context.Context, projectID, userID int64, role string) (*entity.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.members[:0]
	found := false
	for _, mem := range m.members {
		if mem.ProjectID == projectID && mem.UserID == userID {
			found = true
			continue
		}
		kept = append(kept, mem)
	}
	m.members = kept
	if !found {
		return nil, sql.ErrNoRows
	}
	mem := entity.Member{ID: m.id(), ProjectID: projectID, UserID: userID, Role: role}
	m.members = append(m.members, mem)
	return &mem, nil
}

func (m *memStore) DeleteMember(_ context.Context, projectID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.members[:0]
	found := false
	for _, mem := range m.members {
		if mem.ProjectID == projectID && mem.UserID == userID {
			found = true
			continue
		}
		kept = append(kept, mem)
	}
	m.members = kept
	if !found {
		return sql.ErrNoRows
	}
	return nil
}

// fakeUsers answers lookups from a fixed directory and records the bearer.
type fakeUsers struct {
	profiles map[int64]remote.UserProfile
	bearers  []string
}

func (f *fakeUsers) Lookup(_ context.Context, userID int64, bearer string) (*remote.UserProfile, error) {
	f.bearers = append(f.bearers, bearer)
	p, ok := f.profiles[userID]
	if !ok {
		return nil, &apperr.Passthrough{Status: 404, ContentType: "application/json", Body: []byte(`{"detail":"User not found"}`)}
	}
	return &p, nil
}

func newTestService() (*Service, *memStore, *fakeUsers) {
	store := newMemStore()
	users := &fakeUsers{profiles: map[int64]remote.UserProfile{
		7:  {ID: 7, IsActive: 1},
		9:  {ID: 9, IsActive: 1},
		11: {ID: 11, IsActive: 0},
	}}
	return NewService(store, users), store, users
}

func caller(id int64) token.Identity {
	return token.Identity{UserID: id, Role: "member", Raw: "raw-token"}
}

func TestHighestRole(t *testing.T) {
	assert.Equal(t, "", highestRole(nil))
	assert.Equal(t, token.RoleOwner, highestRole([]string{"guest", "owner", "member"}))
	assert.Equal(t, token.RoleMember, highestRole([]string{"viewer", "guest", "member"}))
	assert.Equal(t, token.RoleGuest, highestRole([]string{"viewer", "guest"}))
	assert.Equal(t, "auditor", highestRole([]string{"viewer", "auditor"}))
}

func TestMembershipScenario(t *testing.T) {
	svc, _, users := newTestService()
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, caller(7), ProjectRequest{Name: "Roadmap"})
	require.NoError(t, err)
	role, err := svc.RoleOf(ctx, p.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, token.RoleOwner, role)

	_, err = svc.InviteMember(ctx, caller(7), p.ID, MemberRequest{UserID: 7, Role: "member"})
	assert.Equal(t, ErrAlreadyOwner, err)

	m, err := svc.InviteMember(ctx, caller(7), p.ID, MemberRequest{UserID: 9, Role: "member"})
	require.NoError(t, err)
	assert.Equal(t, "member", m.Role)
	assert.Equal(t, []string{"raw-token"}, users.bearers)

	_, err = svc.InviteMember(ctx, caller(7), p.ID, MemberRequest{UserID: 9, Role: "member"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.InviteMember(ctx, caller(7), p.ID, MemberRequest{UserID: 9, Role: "guest"})
	require.NoError(t, err)
	members, err := svc.ListMembers(ctx, caller(9), p.ID)
	require.NoError(t, err)
	assert.Len(t, members, 3)

	role, err = svc.RoleOf(ctx, p.ID, 9)
	require.NoError(t, err)
	assert.Equal(t, token.RoleMember, role)
}

func TestInviteRules(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	p, err := svc.CreateProject(ctx, caller(7), ProjectRequest{Name: "Roadmap"})
	require.NoError(t, err)
	_, err = svc.InviteMember(ctx, caller(7), p.ID, MemberRequest{UserID: 9, Role: "member"})
	require.NoError(t, err)

	_, err = svc.InviteMember(ctx, caller(9), p.ID, MemberRequest{UserID: 11, Role: "member"})
	assert.Equal(t, ErrInviteOwnerOnly, err)

	_, err = svc.InviteMember(ctx, caller(7), p.ID, MemberRequest{UserID: 9, Role: "owner"})
	assert.Equal(t, ErrOwnerRole, err)

	_, err = svc.InviteMember(ctx, caller(7), p.ID, MemberRequest{UserID: 11, Role: "member"})
	assert.Equal(t, ErrInactiveUser, err)

	_, err = svc.InviteMember(ctx, caller(7), p.ID, MemberRequest{UserID: 404, Role: "member"})
	var pass *apperr.Passthrough
	require.True(t, errors.As(err, &pass))
	assert.Equal(t, 404, pass.Status)
	assert.JSONEq(t, `{"detail":"User not found"}`, string(pass.Body))

	_, err = svc.InviteMember(ctx, caller(7), 999, MemberRequest{UserID: 9, Role: "member"})
	assert.Equal(t, ErrProjectNotFound, err)
}

func TestProjectAccess(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	p, err := svc.CreateProject(ctx, caller(7), ProjectRequest{Name: "Roadmap"})
	require.NoError(t, err)
	_, err = svc.InviteMember(ctx, caller(7), p.ID, MemberRequest{UserID: 9, Role: "member"})
	require.NoError(t, err)

	_, err = svc.GetProject(ctx, caller(9), p.ID)
	require.NoError(t, err)
	_, err = svc.GetProject(ctx, caller(42), p.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.GetProject(ctx, caller(7), 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	name := "Renamed"
	_, err = svc.UpdateProject(ctx, caller(9), p.ID, ProjectPatch{Name: &name})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	updated, err := svc.UpdateProject(ctx, caller(7), p.ID, ProjectPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	list, err := svc.ListProjects(ctx, caller(9))
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, svc.DeleteProject(ctx, caller(9), p.ID), apperr.ErrForbidden)
	require.NoError(t, svc.DeleteProject(ctx, caller(7), p.ID))
	role, err := svc.RoleOf(ctx, p.ID, 7)
	require.NoError(t, err)
	assert.Empty(t, role)
}

func TestPermission(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	p, err := svc.CreateProject(ctx, caller(7), ProjectRequest{Name: "Roadmap"})
	require.NoError(t, err)

	got, err := svc.Permission(ctx, caller(7), p.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, entity.MemberRole{ProjectID: p.ID, UserID: 7, Role: token.RoleOwner}, *got)

	_, err = svc.Permission(ctx, caller(9), p.ID, 9)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.Permission(ctx, caller(9), p.ID, 7)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestMemberRoleChangesAndRemoval(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	p, err := svc.CreateProject(ctx, caller(7), ProjectRequest{Name: "Roadmap"})
	require.NoError(t, err)
	_, err = svc.InviteMember(ctx, caller(7), p.ID, MemberRequest{UserID: 9, Role: "member"})
	require.NoError(t, err)
	_, err = svc.InviteMember(ctx, caller(7), p.ID, MemberRequest{UserID: 9, Role: "guest"})
	require.NoError(t, err)

	_, err = svc.UpdateMemberRole(ctx, caller(7), p.ID, 9, RoleRequest{Role: "owner"})
	assert.Equal(t, ErrOwnerRole, err)
	_, err = svc.UpdateMemberRole(ctx, caller(7), p.ID, 7, RoleRequest{Role: "member"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.UpdateMemberRole(ctx, caller(9), p.ID, 9, RoleRequest{Role: "guest"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	m, err := svc.UpdateMemberRole(ctx, caller(7), p.ID, 9, RoleRequest{Role: "guest"})
	require.NoError(t, err)
	assert.Equal(t, "guest", m.Role)
	members, err := svc.ListMembers(ctx, caller(7), p.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	_, err = svc.UpdateMemberRole(ctx, caller(7), p.ID, 42, RoleRequest{Role: "guest"})
	assert.Equal(t, ErrMemberNotFound, err)

	assert.Equal(t, ErrOwnerSelfRemove, svc.DeleteMember(ctx, caller(7), p.ID, 7))
	require.NoError(t, svc.DeleteMember(ctx, caller(7), p.ID, 9))
	assert.Equal(t, ErrMemberNotFound, svc.DeleteMember(ctx, caller(7), p.ID, 9))

	role, err := svc.RoleOf(ctx, p.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, token.RoleOwner, role)
}

func TestBlankValuesRejected(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateProject(ctx, caller(7), ProjectRequest{Name: "   "})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	p, err := svc.CreateProject(ctx, caller(7), ProjectRequest{Name: "Roadmap"})
	require.NoError(t, err)
	blank := " \t "
	_, err = svc.UpdateProject(ctx, caller(7), p.ID, ProjectPatch{Name: &blank})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.InviteMember(ctx, caller(7), p.ID, MemberRequest{UserID: 9, Role: "   "})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.InviteMember(ctx, caller(7), p.ID, MemberRequest{UserID: 9, Role: "member"})
	require.NoError(t, err)
	_, err = svc.UpdateMemberRole(ctx, caller(7), p.ID, 9, RoleRequest{Role: "  "})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	role, err := svc.RoleOf(ctx, p.ID, 9)
	require.NoError(t, err)
	assert.Equal(t, token.RoleMember, role)
	for _, m := range store.members {
		assert.NotEmpty(t, m.Role)
	}
	got, err := svc.GetProject(ctx, caller(7), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Roadmap", got.Name)
}
