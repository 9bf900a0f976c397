package hierarchy

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/namhatta/namhatta/internal/platform/db"
	"github.com/namhatta/namhatta/internal/shared"
)

// RepositoryPort defines data access for the hierarchy subsystem. RunInTx
// hands the callback a port bound to one transaction, which is the snapshot
// the cycle detector requires while the graph is under concurrent edit.
type RepositoryPort interface {
	ReportingGraph

	GetMember(ctx context.Context, id int64) (*Member, error)
	MemberDistricts(ctx context.Context, devoteeID int64) ([]string, error)
	DirectSubordinates(ctx context.Context, supervisorID int64) ([]Member, error)
	MembersByDistrictAndRole(ctx context.Context, districtCode string, role *SenapotiRole) ([]Member, error)
	UpdateLeadership(ctx context.Context, memberID int64, role *SenapotiRole, reportingTo *int64) error
	ReassignSubordinates(ctx context.Context, fromSupervisorID int64, toSupervisorID *int64) (int64, error)
	RecordRoleChange(ctx context.Context, req RoleChangeRequest, newReportingTo *int64) error

	RunInTx(ctx context.Context, fn func(RepositoryPort) error) error
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGRepository implements RepositoryPort using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
	q    querier
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool, q: pool}
}

// RunInTx executes fn against a repository bound to a RepeatableRead
// transaction, so every read inside sees one snapshot of the graph.
func (r *PGRepository) RunInTx(ctx context.Context, fn func(RepositoryPort) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&PGRepository{pool: r.pool, q: tx})
	})
}

const memberColumns = `id, COALESCE(name, legal_name), leadership_role, reporting_to_devotee_id, namhatta_id`

func scanMember(row pgx.Row) (*Member, error) {
	var m Member
	var role *string
	if err := row.Scan(&m.ID, &m.Name, &role, &m.ReportingTo, &m.NamhattaID); err != nil {
		if err == pgx.ErrNoRows {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if role != nil {
		parsed, err := ParseSenapotiRole(*role)
		if err != nil {
			return nil, err
		}
		m.LeadershipRole = &parsed
	}
	return &m, nil
}

// GetMember loads one devotee with its leadership fields.
func (r *PGRepository) GetMember(ctx context.Context, id int64) (*Member, error) {
	return scanMember(r.q.QueryRow(ctx, `SELECT `+memberColumns+` FROM devotees WHERE id = $1`, id))
}

// ReportingTo returns the member's supervisor edge for graph walks.
func (r *PGRepository) ReportingTo(ctx context.Context, memberID int64) (*int64, error) {
	var supervisor *int64
	err := r.q.QueryRow(ctx, `SELECT reporting_to_devotee_id FROM devotees WHERE id = $1`, memberID).Scan(&supervisor)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return supervisor, nil
}

// MemberDistricts lists the district codes a devotee belongs to through
// the namhatta address chain.
func (r *PGRepository) MemberDistricts(ctx context.Context, devoteeID int64) ([]string, error) {
	rows, err := r.q.Query(ctx,
		`SELECT DISTINCT a.district_code
		 FROM devotees d
		 JOIN namhattas n ON d.namhatta_id = n.id
		 JOIN namhatta_addresses na ON n.id = na.namhatta_id
		 JOIN addresses a ON na.address_id = a.id
		 WHERE d.id = $1 AND a.district_code IS NOT NULL`, devoteeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var districts []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		districts = append(districts, code)
	}
	return districts, rows.Err()
}

// DirectSubordinates lists devotees reporting directly to a supervisor.
func (r *PGRepository) DirectSubordinates(ctx context.Context, supervisorID int64) ([]Member, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+memberColumns+` FROM devotees WHERE reporting_to_devotee_id = $1 ORDER BY id`, supervisorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMembers(rows)
}

// MembersByDistrictAndRole lists leaders in a district, optionally filtered
// to one role. District membership follows the namhatta address chain.
func (r *PGRepository) MembersByDistrictAndRole(ctx context.Context, districtCode string, role *SenapotiRole) ([]Member, error) {
	query := `SELECT d.id, COALESCE(d.name, d.legal_name), d.leadership_role, d.reporting_to_devotee_id, d.namhatta_id
		FROM devotees d
		JOIN namhattas n ON d.namhatta_id = n.id
		JOIN namhatta_addresses na ON n.id = na.namhatta_id
		JOIN addresses a ON na.address_id = a.id
		WHERE a.district_code = $1 AND d.leadership_role IS NOT NULL`
	args := []any{districtCode}
	if role != nil {
		query += ` AND d.leadership_role = $2`
		args = append(args, string(*role))
	}
	query += ` ORDER BY d.id`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMembers(rows)
}

// UpdateLeadership sets a member's role and reporting edge in one statement.
func (r *PGRepository) UpdateLeadership(ctx context.Context, memberID int64, role *SenapotiRole, reportingTo *int64) error {
	var roleValue *string
	if role != nil {
		s := string(*role)
		roleValue = &s
	}
	tag, err := r.q.Exec(ctx,
		`UPDATE devotees SET leadership_role = $2, reporting_to_devotee_id = $3, updated_at = NOW() WHERE id = $1`,
		memberID, roleValue, reportingTo)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ReassignSubordinates re-points every direct report of one supervisor.
func (r *PGRepository) ReassignSubordinates(ctx context.Context, fromSupervisorID int64, toSupervisorID *int64) (int64, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE devotees SET reporting_to_devotee_id = $2, updated_at = NOW() WHERE reporting_to_devotee_id = $1`,
		fromSupervisorID, toSupervisorID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RecordRoleChange appends to the role change history.
func (r *PGRepository) RecordRoleChange(ctx context.Context, req RoleChangeRequest, newReportingTo *int64) error {
	var prev, next *string
	if req.CurrentRole != nil {
		s := string(*req.CurrentRole)
		prev = &s
	}
	if req.TargetRole != nil {
		s := string(*req.TargetRole)
		next = &s
	}
	_, err := r.q.Exec(ctx,
		`INSERT INTO role_change_history (devotee_id, previous_role, new_role, change_type, reporting_to_devotee_id, reason, changed_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
		req.DevoteeID, prev, next, string(req.ChangeType), newReportingTo, req.Reason, req.ChangedBy)
	return err
}

func collectMembers(rows pgx.Rows) ([]Member, error) {
	var members []Member
	for rows.Next() {
		var m Member
		var role *string
		if err := rows.Scan(&m.ID, &m.Name, &role, &m.ReportingTo, &m.NamhattaID); err != nil {
			return nil, err
		}
		if role != nil {
			parsed, err := ParseSenapotiRole(*role)
			if err != nil {
				return nil, err
			}
			m.LeadershipRole = &parsed
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

var _ RepositoryPort = (*PGRepository)(nil)
