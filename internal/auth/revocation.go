package auth

import (
	"context"
	"time"
)

// RevocationStore records fingerprints of tokens invalidated before their
// natural expiry, typically on logout. Only the digest is stored.
type RevocationStore struct {
	repo   Repository
	tokens *TokenService
}

// NewRevocationStore constructs a RevocationStore.
func NewRevocationStore(repo Repository, tokens *TokenService) *RevocationStore {
	return &RevocationStore{repo: repo, tokens: tokens}
}

// Revoke blacklists a token until its embedded expiry. A structurally
// invalid token is a no-op: it can never authenticate anyway.
func (rs *RevocationStore) Revoke(ctx context.Context, rawToken string) error {
	claims, err := rs.tokens.Verify(rawToken)
	if err != nil {
		return nil
	}
	expiredAt := time.Now().Add(rs.tokens.TTL())
	if claims.ExpiresAt != nil {
		expiredAt = claims.ExpiresAt.Time
	}
	return rs.repo.InsertRevocation(ctx, rs.tokens.Fingerprint(rawToken), expiredAt)
}

// IsRevoked reports whether the token's fingerprint is blacklisted.
func (rs *RevocationStore) IsRevoked(ctx context.Context, rawToken string) (bool, error) {
	return rs.repo.FingerprintRevoked(ctx, rs.tokens.Fingerprint(rawToken))
}

// SweepExpired drops records for tokens that have expired on their own.
func (rs *RevocationStore) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	return rs.repo.DeleteExpiredRevocations(ctx, now)
}
