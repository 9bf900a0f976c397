package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/namhatta/namhatta/internal/shared"
)

func testGuard(t *testing.T) (Guard, *stubRepo) {
	t.Helper()
	svc, repo := newTestService(t)
	return Guard{
		Logger:      slog.New(slog.NewTextHandler(&discard{}, nil)),
		Service:     svc,
		AuthEnabled: true,
	}, repo
}

type discard struct{}

func (*discard) Write(p []byte) (int, error) { return len(p), nil }

func TestRequireAuthWithoutCookie(t *testing.T) {
	guard, _ := testGuard(t)

	rr := httptest.NewRecorder()
	handler := guard.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireAuthWithValidCookie(t *testing.T) {
	guard, repo := testGuard(t)
	repo.addUser(7, "admin1", "changeme123", RoleAdmin, true)
	_, token, err := guard.Service.Login(context.Background(), "admin1", "changeme123")
	require.NoError(t, err)

	var seen *shared.Principal
	handler := guard.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.PrincipalFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, seen)
	require.Equal(t, int64(7), seen.ID)
}

func TestRequireAuthRejectsRevokedCookie(t *testing.T) {
	guard, repo := testGuard(t)
	repo.addUser(7, "admin1", "changeme123", RoleAdmin, true)
	_, token, err := guard.Service.Login(context.Background(), "admin1", "changeme123")
	require.NoError(t, err)
	require.NoError(t, guard.Service.Logout(context.Background(), 7, token))

	handler := guard.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestBypassAttachesDevPrincipal(t *testing.T) {
	guard, _ := testGuard(t)
	guard.AuthEnabled = false

	var seen *shared.Principal
	handler := guard.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.PrincipalFromContext(r.Context())
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, seen)
	require.Equal(t, string(RoleAdmin), seen.Role)
}

func TestBypassRefusedInProduction(t *testing.T) {
	guard, _ := testGuard(t)
	guard.AuthEnabled = false
	guard.Production = true

	handler := guard.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestAuthorizeEnforcesRoles(t *testing.T) {
	guard, _ := testGuard(t)

	run := func(role string) int {
		handler := guard.Authorize(RoleAdmin, RoleDistrictSupervisor)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		principal := &shared.Principal{ID: 1, Username: "u", Role: role}
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), principal))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	require.Equal(t, http.StatusNoContent, run(string(RoleAdmin)))
	require.Equal(t, http.StatusNoContent, run(string(RoleDistrictSupervisor)))
	require.Equal(t, http.StatusForbidden, run(string(RoleOffice)))
}

func TestDistrictScopeRestrictsSupervisorOnly(t *testing.T) {
	guard, _ := testGuard(t)

	run := func(role string, districts []string) shared.DistrictConstraint {
		var got shared.DistrictConstraint
		handler := guard.DistrictScope(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = shared.DistrictsFromContext(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		principal := &shared.Principal{ID: 1, Username: "u", Role: role, Districts: districts}
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), principal))
		handler.ServeHTTP(httptest.NewRecorder(), req)
		return got
	}

	supervisor := run(string(RoleDistrictSupervisor), []string{"NADIA"})
	require.True(t, supervisor.Restricted)
	require.True(t, supervisor.Allows("NADIA"))
	require.False(t, supervisor.Allows("KOLKATA"))

	admin := run(string(RoleAdmin), nil)
	require.False(t, admin.Restricted)
	require.True(t, admin.Allows("KOLKATA"))
}

func TestSessionLifetimeTracksTokenTTL(t *testing.T) {
	repo := newStubRepo()
	tokens, err := NewTokenService("test-secret", 30*time.Minute)
	require.NoError(t, err)
	svc := NewService(repo, tokens)
	repo.addUser(1, "admin1", "changeme123", RoleAdmin, true)

	_, _, err = svc.Login(context.Background(), "admin1", "changeme123")
	require.NoError(t, err)

	sess := repo.sessions[1]
	require.WithinDuration(t, time.Now().Add(30*time.Minute), sess.ExpiresAt, 5*time.Second)
}
