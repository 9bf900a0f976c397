package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/namhatta/namhatta/internal/shared"
)

type stubRepo struct {
	users       map[int64]*User
	byUsername  map[string]int64
	districts   map[int64][]string
	sessions    map[int64]*Session
	revocations map[string]time.Time
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		users:       map[int64]*User{},
		byUsername:  map[string]int64{},
		districts:   map[int64][]string{},
		sessions:    map[int64]*Session{},
		revocations: map[string]time.Time{},
	}
}

func (r *stubRepo) addUser(id int64, username, password string, role Role, active bool, districts ...string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	r.users[id] = &User{ID: id, Username: username, PasswordHash: string(hash), Role: role, IsActive: active}
	r.byUsername[username] = id
	r.districts[id] = districts
}

func (r *stubRepo) FindByUsername(ctx context.Context, username string) (*User, error) {
	id, ok := r.byUsername[username]
	if !ok {
		return nil, shared.ErrNotFound
	}
	u := *r.users[id]
	return &u, nil
}

func (r *stubRepo) FindByID(ctx context.Context, id int64) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *stubRepo) UserDistricts(ctx context.Context, userID int64) ([]string, error) {
	return r.districts[userID], nil
}

func (r *stubRepo) ReplaceSession(ctx context.Context, userID int64, sessionToken string, expiresAt time.Time) error {
	r.sessions[userID] = &Session{ID: "s", UserID: userID, SessionToken: sessionToken, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	return nil
}

func (r *stubRepo) GetSession(ctx context.Context, userID int64) (*Session, error) {
	sess, ok := r.sessions[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *sess
	return &copied, nil
}

func (r *stubRepo) DeleteSession(ctx context.Context, userID int64) error {
	delete(r.sessions, userID)
	return nil
}

func (r *stubRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for id, sess := range r.sessions {
		if sess.ExpiresAt.Before(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

func (r *stubRepo) InsertRevocation(ctx context.Context, fingerprint string, expiredAt time.Time) error {
	r.revocations[fingerprint] = expiredAt
	return nil
}

func (r *stubRepo) FingerprintRevoked(ctx context.Context, fingerprint string) (bool, error) {
	_, ok := r.revocations[fingerprint]
	return ok, nil
}

func (r *stubRepo) DeleteExpiredRevocations(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for fp, exp := range r.revocations {
		if exp.Before(now) {
			delete(r.revocations, fp)
			n++
		}
	}
	return n, nil
}

func newTestService(t *testing.T) (*Service, *stubRepo) {
	t.Helper()
	repo := newStubRepo()
	tokens, err := NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)
	return NewService(repo, tokens), repo
}

func TestLoginSuccess(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addUser(1, "supervisor1", "changeme123", RoleDistrictSupervisor, true, "NADIA")

	principal, token, err := svc.Login(context.Background(), "supervisor1", "changeme123")
	require.NoError(t, err)
	require.Equal(t, int64(1), principal.ID)
	require.Equal(t, string(RoleDistrictSupervisor), principal.Role)
	require.Equal(t, []string{"NADIA"}, principal.Districts)
	require.NotEmpty(t, token)

	authed, err := svc.Authenticate(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, principal.ID, authed.ID)
}

func TestLoginFailuresCollapseToInvalidCredentials(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addUser(1, "admin1", "changeme123", RoleAdmin, true)
	repo.addUser(2, "gone", "changeme123", RoleOffice, false)

	_, _, err := svc.Login(context.Background(), "admin1", "wrong-password")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), "nobody", "changeme123")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), "gone", "changeme123")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestSecondLoginInvalidatesFirstToken(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addUser(1, "admin1", "changeme123", RoleAdmin, true)

	_, first, err := svc.Login(context.Background(), "admin1", "changeme123")
	require.NoError(t, err)
	_, second, err := svc.Login(context.Background(), "admin1", "changeme123")
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), first)
	require.ErrorIs(t, err, shared.ErrAuthRequired)

	_, err = svc.Authenticate(context.Background(), second)
	require.NoError(t, err)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addUser(1, "admin1", "changeme123", RoleAdmin, true)

	_, token, err := svc.Login(context.Background(), "admin1", "changeme123")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), 1, token))

	_, err = svc.Authenticate(context.Background(), token)
	require.ErrorIs(t, err, shared.ErrAuthRequired)
	require.Empty(t, repo.sessions)
}

func TestAuthenticateRejectsDeactivatedUser(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addUser(1, "admin1", "changeme123", RoleAdmin, true)

	_, token, err := svc.Login(context.Background(), "admin1", "changeme123")
	require.NoError(t, err)

	repo.users[1].IsActive = false
	_, err = svc.Authenticate(context.Background(), token)
	require.ErrorIs(t, err, shared.ErrAuthRequired)
}

func TestAuthenticateRefreshesDistrictsFromDirectory(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addUser(1, "supervisor1", "changeme123", RoleDistrictSupervisor, true, "NADIA")

	_, token, err := svc.Login(context.Background(), "supervisor1", "changeme123")
	require.NoError(t, err)

	repo.districts[1] = []string{"NADIA", "KOLKATA"}
	principal, err := svc.Authenticate(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, []string{"NADIA", "KOLKATA"}, principal.Districts)
}

func TestAuthenticateRejectsExpiredSession(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addUser(1, "admin1", "changeme123", RoleAdmin, true)

	_, token, err := svc.Login(context.Background(), "admin1", "changeme123")
	require.NoError(t, err)

	repo.sessions[1].ExpiresAt = time.Now().Add(-time.Minute)
	_, err = svc.Authenticate(context.Background(), token)
	require.ErrorIs(t, err, shared.ErrAuthRequired)
	require.Empty(t, repo.sessions, "expired session row should be deleted on sight")
}

func TestAuthenticateRejectsGarbageToken(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Authenticate(context.Background(), "not-a-token")
	require.ErrorIs(t, err, shared.ErrAuthRequired)
}

type stubRecorder struct {
	outcomes map[string]int
}

func (r *stubRecorder) RecordAuthOutcome(outcome string) {
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	r.outcomes[outcome]++
}

func TestAuthOutcomesAreCounted(t *testing.T) {
	svc, repo := newTestService(t)
	rec := &stubRecorder{}
	svc.WithMetrics(rec)
	repo.addUser(1, "admin1", "changeme123", RoleAdmin, true)
	ctx := context.Background()

	_, _, err := svc.Login(ctx, "admin1", "wrong-password")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	require.Equal(t, 1, rec.outcomes["invalid"])

	_, first, err := svc.Login(ctx, "admin1", "changeme123")
	require.NoError(t, err)
	require.Equal(t, 1, rec.outcomes["success"])

	// The first token is superseded by a second login and counts as expired.
	_, second, err := svc.Login(ctx, "admin1", "changeme123")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, first)
	require.ErrorIs(t, err, shared.ErrAuthRequired)
	require.Equal(t, 1, rec.outcomes["expired"])

	require.NoError(t, svc.Logout(ctx, 1, second))
	_, err = svc.Authenticate(ctx, second)
	require.ErrorIs(t, err, shared.ErrAuthRequired)
	require.Equal(t, 1, rec.outcomes["revoked"])
}

func TestExpiredTokenCountsAsExpired(t *testing.T) {
	repo := newStubRepo()
	tokens, err := NewTokenService("test-secret", time.Nanosecond)
	require.NoError(t, err)
	rec := &stubRecorder{}
	svc := NewService(repo, tokens).WithMetrics(rec)
	repo.addUser(1, "admin1", "changeme123", RoleAdmin, true)

	_, token, err := svc.Login(context.Background(), "admin1", "changeme123")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	_, err = svc.Authenticate(context.Background(), token)
	require.ErrorIs(t, err, shared.ErrAuthRequired)
	require.Equal(t, 1, rec.outcomes["expired"])
}

func TestSweepExpiredSessionsAndRevocations(t *testing.T) {
	svc, repo := newTestService(t)
	repo.sessions[1] = &Session{UserID: 1, SessionToken: "x", ExpiresAt: time.Now().Add(-time.Hour)}
	repo.sessions[2] = &Session{UserID: 2, SessionToken: "y", ExpiresAt: time.Now().Add(time.Hour)}
	repo.revocations["old"] = time.Now().Add(-time.Hour)
	repo.revocations["live"] = time.Now().Add(time.Hour)

	removed, err := svc.Sessions().SweepExpired(context.Background(), time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	removed, err = svc.Revocations().SweepExpired(context.Background(), time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
	require.Len(t, repo.sessions, 1)
	require.Len(t, repo.revocations, 1)
}
