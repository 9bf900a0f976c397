package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/namhatta/namhatta/internal/platform/db"
	"github.com/namhatta/namhatta/internal/platform/httpx"
	"github.com/namhatta/namhatta/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	CreateUser(ctx context.Context, u User, passwordHash string) (int64, error)
	SetActive(ctx context.Context, id int64, active bool) error
	ReplaceDistricts(ctx context.Context, userID int64, districts []string) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `u.id, u.username, COALESCE(u.full_name, ''), COALESCE(u.email, ''), u.role, u.is_active, u.created_at, u.updated_at`

// ListUsers returns all users with their district assignments.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+`,
		COALESCE(array_agg(ud.district_code ORDER BY ud.district_code) FILTER (WHERE ud.district_code IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_districts ud ON ud.user_id = u.id
		GROUP BY u.id
		ORDER BY u.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.FullName, &u.Email, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &u.Districts); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetUser loads one user with districts.
func (r *Repository) GetUser(ctx context.Context, id int64) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `SELECT `+userColumns+`,
		COALESCE(array_agg(ud.district_code ORDER BY ud.district_code) FILTER (WHERE ud.district_code IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_districts ud ON ud.user_id = u.id
		WHERE u.id = $1
		GROUP BY u.id`, id).
		Scan(&u.ID, &u.Username, &u.FullName, &u.Email, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &u.Districts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts the account and its district rows in one transaction.
// Unique violations on username or email surface as httpx.ErrDuplicate.
func (r *Repository) CreateUser(ctx context.Context, u User, passwordHash string) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO users (username, password_hash, full_name, email, role, is_active, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, TRUE, NOW(), NOW()) RETURNING id`,
			u.Username, passwordHash, u.FullName, u.Email, u.Role).Scan(&id)
		if err != nil {
			return translateUnique(err)
		}
		for _, code := range u.Districts {
			if _, err := tx.Exec(ctx,
				`INSERT INTO user_districts (user_id, district_code) VALUES ($1, $2)`, id, code); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// SetActive toggles the account. Deactivated accounts fail authentication
// on the next request even if they hold a live session.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ReplaceDistricts swaps the full district assignment set.
func (r *Repository) ReplaceDistricts(ctx context.Context, userID int64, districts []string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_districts WHERE user_id = $1`, userID); err != nil {
			return err
		}
		for _, code := range districts {
			if _, err := tx.Exec(ctx,
				`INSERT INTO user_districts (user_id, district_code) VALUES ($1, $2)`, userID, code); err != nil {
				return err
			}
		}
		return nil
	})
}

func translateUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return httpx.ErrDuplicate
	}
	return err
}

var _ RepositoryPort = (*Repository)(nil)
