package devotees

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/namhatta/namhatta/internal/shared"
)

// RepositoryPort defines data access methods for devotees.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter) (Page, error)
	Get(ctx context.Context, id int64) (*Devotee, error)
	Create(ctx context.Context, d Devotee) (int64, error)
	Update(ctx context.Context, d Devotee) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const devoteeSelect = `SELECT d.id, d.legal_name, COALESCE(d.name, ''), COALESCE(d.email, ''), COALESCE(d.phone, ''),
	d.leadership_role, d.reporting_to_devotee_id, d.namhatta_id, a.district_code, d.created_at, d.updated_at
	FROM devotees d
	LEFT JOIN namhattas n ON d.namhatta_id = n.id
	LEFT JOIN namhatta_addresses na ON n.id = na.namhatta_id
	LEFT JOIN addresses a ON na.address_id = a.id`

// List pages devotees under the caller's district scope. The restricted
// branch filters in SQL so out-of-scope rows never reach the process.
func (r *Repository) List(ctx context.Context, filter ListFilter) (Page, error) {
	where, args := buildWhere(filter)

	var total int64
	countQuery := `SELECT COUNT(DISTINCT d.id) FROM devotees d
		LEFT JOIN namhattas n ON d.namhatta_id = n.id
		LEFT JOIN namhatta_addresses na ON n.id = na.namhatta_id
		LEFT JOIN addresses a ON na.address_id = a.id` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return Page{}, err
	}

	page, size := normalizePage(filter.Page, filter.PageSize)
	args = append(args, size, (page-1)*size)
	query := fmt.Sprintf(devoteeSelect+where+` ORDER BY d.id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return Page{}, err
	}
	defer rows.Close()

	items := []Devotee{}
	for rows.Next() {
		d, err := scanDevotee(rows)
		if err != nil {
			return Page{}, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return Page{}, err
	}
	return Page{Items: items, Total: total, Page: page, PageSize: size}, nil
}

// Get loads one devotee by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Devotee, error) {
	d, err := scanDevotee(r.pool.QueryRow(ctx, devoteeSelect+` WHERE d.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

// Create inserts a devotee.
func (r *Repository) Create(ctx context.Context, d Devotee) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO devotees (legal_name, name, email, phone, namhatta_id, created_at, updated_at)
		 VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5, NOW(), NOW()) RETURNING id`,
		d.LegalName, d.Name, d.Email, d.Phone, d.NamhattaID).Scan(&id)
	return id, err
}

// Update rewrites the mutable profile fields. Leadership fields are owned
// by the hierarchy subsystem and deliberately excluded here.
func (r *Repository) Update(ctx context.Context, d Devotee) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE devotees SET legal_name = $2, name = NULLIF($3, ''), email = NULLIF($4, ''), phone = NULLIF($5, ''), namhatta_id = $6, updated_at = NOW()
		 WHERE id = $1`,
		d.ID, d.LegalName, d.Name, d.Email, d.Phone, d.NamhattaID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func buildWhere(filter ListFilter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Search != "" {
		add(`(d.legal_name ILIKE $%[1]d OR d.name ILIKE $%[1]d)`, "%"+filter.Search+"%")
	}
	if filter.DistrictCode != "" {
		add(`a.district_code = $%d`, filter.DistrictCode)
	}
	if filter.NamhattaID != nil {
		add(`d.namhatta_id = $%d`, *filter.NamhattaID)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevotee(row rowScanner) (*Devotee, error) {
	var d Devotee
	if err := row.Scan(&d.ID, &d.LegalName, &d.Name, &d.Email, &d.Phone,
		&d.LeadershipRole, &d.ReportingTo, &d.NamhattaID, &d.DistrictCode, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

var _ RepositoryPort = (*Repository)(nil)
