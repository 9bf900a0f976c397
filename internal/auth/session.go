package auth

import (
	"context"
	"errors"
	"time"

	"github.com/namhatta/namhatta/internal/shared"
)

// SessionRegistry enforces at most one live session per user. Session rows
// live in postgres; the opaque session token inside each issued JWT must
// match the stored row or the credential is dead.
type SessionRegistry struct {
	repo   Repository
	tokens *TokenService
	ttl    time.Duration
}

// NewSessionRegistry constructs a SessionRegistry. Session lifetime tracks
// the token lifetime so a session never outlives its credential.
func NewSessionRegistry(repo Repository, tokens *TokenService) *SessionRegistry {
	return &SessionRegistry{repo: repo, tokens: tokens, ttl: tokens.TTL()}
}

// Create mints a fresh session token for the user and makes it the only
// live session. Any previously issued token keeps a valid signature but
// fails session validation from here on.
func (sr *SessionRegistry) Create(ctx context.Context, userID int64) (string, error) {
	sessionToken, err := sr.tokens.NewSessionSecret()
	if err != nil {
		return "", err
	}
	expiresAt := time.Now().Add(sr.ttl)
	if err := sr.repo.ReplaceSession(ctx, userID, sessionToken, expiresAt); err != nil {
		return "", err
	}
	return sessionToken, nil
}

// Validate reports whether the presented session token matches the single
// live session for the user. Expired rows are deleted on sight.
func (sr *SessionRegistry) Validate(ctx context.Context, userID int64, sessionToken string) (bool, error) {
	sess, err := sr.repo.GetSession(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if sess.SessionToken != sessionToken {
		return false, nil
	}
	if sess.ExpiresAt.Before(time.Now()) {
		_ = sr.repo.DeleteSession(ctx, userID)
		return false, nil
	}
	return true, nil
}

// Remove ends the user's session. Explicit logout path.
func (sr *SessionRegistry) Remove(ctx context.Context, userID int64) error {
	return sr.repo.DeleteSession(ctx, userID)
}

// SweepExpired bulk-deletes sessions past expiry. Idempotent; safe to run
// concurrently with live traffic and with itself.
func (sr *SessionRegistry) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	return sr.repo.DeleteExpiredSessions(ctx, now)
}
