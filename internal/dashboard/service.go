package dashboard

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/namhatta/namhatta/internal/shared"
)

// Summary is the dashboard payload. Restricted callers see only their
// districts' rows.
type Summary struct {
	TotalDevotees    int64            `json:"totalDevotees"`
	TotalNamhattas   int64            `json:"totalNamhattas"`
	NamhattasByState map[string]int64 `json:"namhattasByStatus"`
	LeadersByRole    map[string]int64 `json:"leadersByRole"`
	Districts        []DistrictCount  `json:"districts"`
}

// DistrictCount is one district row in the summary.
type DistrictCount struct {
	DistrictCode string `json:"districtCode"`
	Devotees     int64  `json:"devotees"`
	Namhattas    int64  `json:"namhattas"`
}

// RepositoryPort defines the aggregate queries behind the dashboard.
type RepositoryPort interface {
	CountSummary(ctx context.Context, districts []string) (Summary, error)
}

// Service serves dashboard summaries through the cache. The singleflight
// group collapses concurrent cache misses into one database pass per scope.
type Service struct {
	repo  RepositoryPort
	cache *Cache
	group singleflight.Group
}

// NewService wires a RepositoryPort with a Cache helper.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Summary returns the dashboard for the caller's district scope.
func (s *Service) Summary(ctx context.Context, constraint shared.DistrictConstraint) (Summary, error) {
	scope := scopeToken(constraint)
	key, err := s.cache.BuildKey(ctx, keySummary(scope))
	if err != nil {
		return Summary{}, err
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		var summary Summary
		err := s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (interface{}, error) {
			var districts []string
			if constraint.Restricted {
				districts = constraint.Codes
			}
			return s.repo.CountSummary(ctx, districts)
		})
		return summary, err
	})
	if err != nil {
		return Summary{}, err
	}
	return v.(Summary), nil
}

// Invalidate bumps the cache version after writes elsewhere.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// scopeToken derives a stable cache key fragment from the constraint.
// Sorted so two supervisors with the same districts share an entry.
func scopeToken(constraint shared.DistrictConstraint) string {
	if !constraint.Restricted {
		return "all"
	}
	codes := append([]string(nil), constraint.Codes...)
	sort.Strings(codes)
	return strings.Join(codes, ",")
}
