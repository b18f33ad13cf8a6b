package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/apperr"
)

func TestMembershipClientRoleOf(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer caller-token", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/projects/3/members/7":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"project_id":3,"user_id":7,"role":"member"}`))
		case "/projects/3/members/8":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Member not found"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	m := NewMembershipClient(Config{BaseURL: server.URL + "/"}, nil)

	role, err := m.RoleOf(context.Background(), 3, 7, "caller-token")
	require.NoError(t, err)
	assert.Equal(t, "member", role)

	role, err = m.RoleOf(context.Background(), 3, 8, "caller-token")
	require.NoError(t, err)
	assert.Empty(t, role)

	_, err = m.RoleOf(context.Background(), 4, 7, "caller-token")
	require.Error(t, err)
}

func TestMembershipClientTimesOut(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	m := NewMembershipClient(Config{BaseURL: server.URL, Timeout: 50 * time.Millisecond}, nil)
	start := time.Now()
	_, err := m.RoleOf(context.Background(), 3, 7, "caller-token")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestMembershipClientUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewMembershipClient(Config{BaseURL: url}, nil).RoleOf(context.Background(), 1, 1, "t")
	require.Error(t, err)
}

func TestTaskAccessClientCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer caller-token", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/tasks/1/permission/7":
			_, _ = w.Write([]byte(`{"task_id":1,"project_id":3,"role":"owner"}`))
		case "/tasks/2/permission/7":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer server.Close()

	c := NewTaskAccessClient(Config{BaseURL: server.URL}, nil)
	require.NoError(t, c.Check(context.Background(), 1, 7, "caller-token"))
	assert.ErrorIs(t, c.Check(context.Background(), 2, 7, "caller-token"), apperr.ErrNotFound)
	assert.ErrorIs(t, c.Check(context.Background(), 3, 7, "caller-token"), apperr.ErrForbidden)
}

func TestUserDirectoryLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer caller-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/users/9" {
			_, _ = w.Write([]byte(`{"id":9,"name":"Bo","email":"bo@example.com","role":"member","is_active":1}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"User not found"}`))
	}))
	defer server.Close()

	d := NewUserDirectory(Config{BaseURL: server.URL}, nil)

	p, err := d.Lookup(context.Background(), 9, "caller-token")
	require.NoError(t, err)
	assert.Equal(t, int64(9), p.ID)
	assert.Equal(t, 1, p.IsActive)

	_, err = d.Lookup(context.Background(), 10, "caller-token")
	var pass *apperr.Passthrough
	require.ErrorAs(t, err, &pass)
	assert.Equal(t, http.StatusNotFound, pass.Status)
	assert.JSONEq(t, `{"detail":"User not found"}`, string(pass.Body))
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("PROJECT_SERVICE_URL", "http://project:8001/")
	t.Setenv("OUTBOUND_TIMEOUT", "2s")
	cfg := ConfigFromEnv("PROJECT_SERVICE_URL", "http://localhost:8001")
	assert.Equal(t, "http://project:8001", cfg.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Timeout)

	t.Setenv("OUTBOUND_TIMEOUT", "")
	cfg = ConfigFromEnv("MISSING_URL", "http://localhost:8001")
	assert.Equal(t, "http://localhost:8001", cfg.BaseURL)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
}
