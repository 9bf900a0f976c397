package devotees

import (
	"context"

	"github.com/namhatta/namhatta/internal/shared"
)

// Invalidator bumps dependent caches after a committed write. Satisfied by
// dashboard.Service.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service handles devotee business logic.
type Service struct {
	repo  RepositoryPort
	inval Invalidator
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// WithInvalidator registers the cache to bump after writes.
func (s *Service) WithInvalidator(inval Invalidator) *Service {
	s.inval = inval
	return s
}

func (s *Service) invalidate(ctx context.Context) {
	if s.inval != nil {
		// The write already committed; a failed bump only delays freshness.
		_ = s.inval.Invalidate(ctx)
	}
}

// List pages devotees under the caller's district constraint. A foreign
// district filter from a restricted caller is discarded, not honored: the
// caller's own district set takes its place.
func (s *Service) List(ctx context.Context, constraint shared.DistrictConstraint, filter ListFilter) (Page, error) {
	filter.Restricted = constraint.Restricted
	filter.Districts = constraint.Codes
	if constraint.Restricted && filter.DistrictCode != "" && !constraint.Allows(filter.DistrictCode) {
		filter.DistrictCode = ""
	}
	return s.repo.List(ctx, filter)
}

// Get loads one devotee, enforcing the caller's district constraint.
func (s *Service) Get(ctx context.Context, constraint shared.DistrictConstraint, id int64) (*Devotee, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if constraint.Restricted {
		if d.DistrictCode == nil || !constraint.Allows(*d.DistrictCode) {
			return nil, shared.ErrForbidden
		}
	}
	return d, nil
}

// Create inserts a devotee and returns the stored record.
func (s *Service) Create(ctx context.Context, d Devotee) (*Devotee, error) {
	id, err := s.repo.Create(ctx, d)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return s.repo.Get(ctx, id)
}

// Update rewrites profile fields under the caller's district constraint.
func (s *Service) Update(ctx context.Context, constraint shared.DistrictConstraint, d Devotee) (*Devotee, error) {
	if _, err := s.Get(ctx, constraint, d.ID); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return s.repo.Get(ctx, d.ID)
}
