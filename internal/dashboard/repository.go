package dashboard

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed aggregate queries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CountSummary builds the dashboard aggregates. An empty districts slice
// means an unrestricted scope.
func (r *Repository) CountSummary(ctx context.Context, districts []string) (Summary, error) {
	summary := Summary{
		NamhattasByState: map[string]int64{},
		LeadersByRole:    map[string]int64{},
	}
	scoped := len(districts) > 0

	devoteeQuery := `SELECT COUNT(DISTINCT d.id) FROM devotees d`
	namhattaQuery := `SELECT n.status, COUNT(DISTINCT n.id) FROM namhattas n`
	leaderQuery := `SELECT d.leadership_role, COUNT(DISTINCT d.id) FROM devotees d`
	join := ` LEFT JOIN namhattas n ON d.namhatta_id = n.id
		LEFT JOIN namhatta_addresses na ON n.id = na.namhatta_id
		LEFT JOIN addresses a ON na.address_id = a.id`
	namhattaJoin := ` LEFT JOIN namhatta_addresses na ON n.id = na.namhatta_id
		LEFT JOIN addresses a ON na.address_id = a.id`

	var args []any
	scopeCond := ""
	if scoped {
		args = append(args, districts)
		scopeCond = ` WHERE a.district_code = ANY($1)`
		devoteeQuery += join
		namhattaQuery += namhattaJoin
		leaderQuery += join
	}

	if err := r.pool.QueryRow(ctx, devoteeQuery+scopeCond, args...).Scan(&summary.TotalDevotees); err != nil {
		return Summary{}, err
	}

	rows, err := r.pool.Query(ctx, namhattaQuery+scopeCond+` GROUP BY n.status`, args...)
	if err != nil {
		return Summary{}, err
	}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return Summary{}, err
		}
		summary.NamhattasByState[status] = count
		summary.TotalNamhattas += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}

	leaderCond := scopeCond
	if leaderCond == "" {
		leaderCond = ` WHERE d.leadership_role IS NOT NULL`
	} else {
		leaderCond += ` AND d.leadership_role IS NOT NULL`
	}
	rows, err = r.pool.Query(ctx, leaderQuery+leaderCond+` GROUP BY d.leadership_role`, args...)
	if err != nil {
		return Summary{}, err
	}
	for rows.Next() {
		var role string
		var count int64
		if err := rows.Scan(&role, &count); err != nil {
			rows.Close()
			return Summary{}, err
		}
		summary.LeadersByRole[role] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}

	districtQuery := `SELECT a.district_code, COUNT(DISTINCT d.id), COUNT(DISTINCT n.id)
		FROM addresses a
		JOIN namhatta_addresses na ON na.address_id = a.id
		JOIN namhattas n ON n.id = na.namhatta_id
		LEFT JOIN devotees d ON d.namhatta_id = n.id
		WHERE a.district_code IS NOT NULL`
	if scoped {
		districtQuery += ` AND a.district_code = ANY($1)`
	}
	districtQuery += ` GROUP BY a.district_code ORDER BY a.district_code`

	rows, err = r.pool.Query(ctx, districtQuery, args...)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var dc DistrictCount
		if err := rows.Scan(&dc.DistrictCode, &dc.Devotees, &dc.Namhattas); err != nil {
			return Summary{}, err
		}
		summary.Districts = append(summary.Districts, dc)
	}
	return summary, rows.Err()
}

var _ RepositoryPort = (*Repository)(nil)
