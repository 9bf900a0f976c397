package namhattas

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/namhatta/namhatta/internal/platform/httpx"
	"github.com/namhatta/namhatta/internal/shared"
)

// RepositoryPort defines data access methods for namhattas.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter) (Page, error)
	Get(ctx context.Context, id int64) (*Namhatta, error)
	Create(ctx context.Context, n Namhatta) (int64, error)
	SetStatus(ctx context.Context, id int64, status string, registrationNo *string) error
	RegistrationNoTaken(ctx context.Context, registrationNo string) (bool, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const namhattaSelect = `SELECT n.id, n.code, n.name, n.status, n.registration_no, a.district_code, n.secretary_id, n.created_at, n.updated_at
	FROM namhattas n
	LEFT JOIN namhatta_addresses na ON n.id = na.namhatta_id
	LEFT JOIN addresses a ON na.address_id = a.id`

// List pages namhattas under the caller's district scope.
func (r *Repository) List(ctx context.Context, filter ListFilter) (Page, error) {
	where, args := buildWhere(filter)

	var total int64
	countQuery := `SELECT COUNT(DISTINCT n.id) FROM namhattas n
		LEFT JOIN namhatta_addresses na ON n.id = na.namhatta_id
		LEFT JOIN addresses a ON na.address_id = a.id` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return Page{}, err
	}

	page, size := normalizePage(filter.Page, filter.PageSize)
	args = append(args, size, (page-1)*size)
	query := fmt.Sprintf(namhattaSelect+where+` ORDER BY n.id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return Page{}, err
	}
	defer rows.Close()

	items := []Namhatta{}
	for rows.Next() {
		var n Namhatta
		if err := rows.Scan(&n.ID, &n.Code, &n.Name, &n.Status, &n.RegistrationNo, &n.DistrictCode, &n.SecretaryID, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return Page{}, err
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return Page{}, err
	}
	return Page{Items: items, Total: total, Page: page, PageSize: size}, nil
}

// Get loads one namhatta by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Namhatta, error) {
	var n Namhatta
	err := r.pool.QueryRow(ctx, namhattaSelect+` WHERE n.id = $1`, id).
		Scan(&n.ID, &n.Code, &n.Name, &n.Status, &n.RegistrationNo, &n.DistrictCode, &n.SecretaryID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

// Create inserts a namhatta in PENDING_APPROVAL state. Duplicate codes
// surface as httpx.ErrDuplicate.
func (r *Repository) Create(ctx context.Context, n Namhatta) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO namhattas (code, name, status, secretary_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING id`,
		n.Code, n.Name, StatusPendingApproval, n.SecretaryID).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, httpx.ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

// SetStatus moves a namhatta through the approval workflow.
func (r *Repository) SetStatus(ctx context.Context, id int64, status string, registrationNo *string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE namhattas SET status = $2, registration_no = COALESCE($3, registration_no), updated_at = NOW() WHERE id = $1`,
		id, status, registrationNo)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return httpx.ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// RegistrationNoTaken reports whether a registration number is in use.
func (r *Repository) RegistrationNoTaken(ctx context.Context, registrationNo string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM namhattas WHERE registration_no = $1)`, registrationNo).Scan(&exists)
	return exists, err
}

func buildWhere(filter ListFilter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Search != "" {
		add(`(n.name ILIKE $%[1]d OR n.code ILIKE $%[1]d)`, "%"+filter.Search+"%")
	}
	if filter.Status != "" {
		add(`n.status = $%d`, filter.Status)
	}
	if filter.Restricted {
		add(`a.district_code = ANY($%d)`, filter.Districts)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	return page, size
}

var _ RepositoryPort = (*Repository)(nil)
