package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, *stubRepo, *Service) {
	t.Helper()
	svc, repo := newTestService(t)
	guard := Guard{
		Logger:      slog.New(slog.NewTextHandler(&discard{}, nil)),
		Service:     svc,
		AuthEnabled: true,
	}
	handler := NewHandler(guard.Logger, svc, guard, HandlerConfig{
		TokenTTL:        time.Hour,
		LoginRateLimit:  100,
		LoginRateWindow: time.Minute,
	})
	r := chi.NewRouter()
	r.Route("/api/auth", handler.MountRoutes)
	return r, repo, svc
}

func TestLoginEndpointSetsCookie(t *testing.T) {
	router, repo, _ := newTestRouter(t)
	repo.addUser(1, "admin1", "changeme123", RoleAdmin, true)

	body := strings.NewReader(`{"username":"admin1","password":"changeme123"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	require.NotEmpty(t, cookie.Value)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, http.SameSiteStrictMode, cookie.SameSite)

	var payload struct {
		User struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.Equal(t, "admin1", payload.User.Username)
	require.Equal(t, string(RoleAdmin), payload.User.Role)
}

func TestLoginEndpointRejectsBadCredentials(t *testing.T) {
	router, repo, _ := newTestRouter(t)
	repo.addUser(1, "admin1", "changeme123", RoleAdmin, true)

	body := strings.NewReader(`{"username":"admin1","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Empty(t, rr.Result().Cookies())
}

func TestLoginEndpointValidatesBody(t *testing.T) {
	router, _, _ := newTestRouter(t)

	body := strings.NewReader(`{"username":"admin1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestVerifyEndpointWithCookie(t *testing.T) {
	router, repo, svc := newTestRouter(t)
	repo.addUser(1, "supervisor1", "changeme123", RoleDistrictSupervisor, true, "NADIA")
	_, token, err := svc.Login(context.Background(), "supervisor1", "changeme123")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "supervisor1")
}

func TestUserDistrictsEndpoint(t *testing.T) {
	router, repo, svc := newTestRouter(t)
	repo.addUser(1, "supervisor1", "changeme123", RoleDistrictSupervisor, true, "NADIA", "HOOGHLY")
	_, token, err := svc.Login(context.Background(), "supervisor1", "changeme123")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/user-districts", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var payload struct {
		Districts []string `json:"districts"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.Equal(t, []string{"NADIA", "HOOGHLY"}, payload.Districts)
}

func TestLogoutEndpointClearsCookieAndRevokes(t *testing.T) {
	router, repo, svc := newTestRouter(t)
	repo.addUser(1, "admin1", "changeme123", RoleAdmin, true)
	_, token, err := svc.Login(context.Background(), "admin1", "changeme123")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var cleared *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == CookieName {
			cleared = c
		}
	}
	require.NotNil(t, cleared)
	require.Empty(t, cleared.Value)
	require.Negative(t, cleared.MaxAge)

	// The revoked token must not pass verification again.
	req = httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}
