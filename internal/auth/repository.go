package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/namhatta/namhatta/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	UserDistricts(ctx context.Context, userID int64) ([]string, error)

	ReplaceSession(ctx context.Context, userID int64, sessionToken string, expiresAt time.Time) error
	GetSession(ctx context.Context, userID int64) (*Session, error)
	DeleteSession(ctx context.Context, userID int64) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	InsertRevocation(ctx context.Context, fingerprint string, expiredAt time.Time) error
	FingerprintRevoked(ctx context.Context, fingerprint string) (bool, error)
	DeleteExpiredRevocations(ctx context.Context, now time.Time) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByUsername fetches a user by username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.scanUser(r.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, role, is_active, created_at, updated_at FROM users WHERE username = $1`,
		username))
}

// FindByID fetches a user by primary key.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	return r.scanUser(r.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, role, is_active, created_at, updated_at FROM users WHERE id = $1`,
		id))
}

func (r *PGRepository) scanUser(row pgx.Row) (*User, error) {
	var user User
	var role string
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	parsed, err := ParseRole(role)
	if err != nil {
		return nil, err
	}
	user.Role = parsed
	return &user, nil
}

// UserDistricts returns the current district assignment for a user.
func (r *PGRepository) UserDistricts(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT district_code FROM user_districts WHERE user_id = $1 ORDER BY district_code`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// ReplaceSession upserts the user's single session row. The upsert rides the
// user_id unique constraint, so two racing logins both succeed and the loser's
// token simply fails session validation afterwards.
func (r *PGRepository) ReplaceSession(ctx context.Context, userID int64, sessionToken string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_sessions (id, user_id, session_token, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET session_token = EXCLUDED.session_token, expires_at = EXCLUDED.expires_at, created_at = NOW()`,
		uuid.NewString(), userID, sessionToken, expiresAt.UTC())
	return err
}

// GetSession returns the live session row for a user, if any.
func (r *PGRepository) GetSession(ctx context.Context, userID int64) (*Session, error) {
	var sess Session
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, session_token, expires_at, created_at FROM user_sessions WHERE user_id = $1`,
		userID).Scan(&sess.ID, &sess.UserID, &sess.SessionToken, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sess, nil
}

// DeleteSession removes the session row for a user.
func (r *PGRepository) DeleteSession(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_sessions WHERE user_id = $1`, userID)
	return err
}

// DeleteExpiredSessions bulk-deletes sessions past their expiry.
func (r *PGRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_sessions WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// InsertRevocation records a token fingerprint until the token's natural expiry.
func (r *PGRepository) InsertRevocation(ctx context.Context, fingerprint string, expiredAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO jwt_blacklist (token_hash, expired_at) VALUES ($1, $2) ON CONFLICT (token_hash) DO NOTHING`,
		fingerprint, expiredAt.UTC())
	return err
}

// FingerprintRevoked reports whether a fingerprint is on the blacklist.
func (r *PGRepository) FingerprintRevoked(ctx context.Context, fingerprint string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM jwt_blacklist WHERE token_hash = $1)`, fingerprint).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// DeleteExpiredRevocations drops blacklist rows for tokens that expired on
// their own. Storage hygiene only; an expired token is unusable regardless.
func (r *PGRepository) DeleteExpiredRevocations(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM jwt_blacklist WHERE expired_at < $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)
