package namhattas

import (
	"context"
	"fmt"

	"github.com/namhatta/namhatta/internal/platform/httpx"
	"github.com/namhatta/namhatta/internal/shared"
)

// Invalidator bumps dependent caches after a committed write. Satisfied by
// dashboard.Service.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service handles namhatta business logic.
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

// List pages namhattas under the caller's district constraint.
func (s *Service) List(ctx context.Context, constraint shared.DistrictConstraint, filter ListFilter) (Page, error) {
	filter.Restricted = constraint.Restricted
	filter.Districts = constraint.Codes
	return s.repo.List(ctx, filter)
}

// Get loads one namhatta, enforcing the caller's district constraint.
func (s *Service) Get(ctx context.Context, constraint shared.DistrictConstraint, id int64) (*Namhatta, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if constraint.Restricted {
		if n.DistrictCode == nil || !constraint.Allows(*n.DistrictCode) {
			return nil, shared.ErrForbidden
		}
	}
	return n, nil
}

// Create registers a new center in PENDING_APPROVAL state.
func (s *Service) Create(ctx context.Context, n Namhatta) (*Namhatta, error) {
	id, err := s.repo.Create(ctx, n)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return s.repo.Get(ctx, id)
}

// Approve moves a pending center to APPROVED and stamps its registration
// number. The number must be unused; approving twice is an error.
func (s *Service) Approve(ctx context.Context, id int64, registrationNo string) (*Namhatta, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Status != StatusPendingApproval {
		return nil, fmt.Errorf("%w: namhatta is %s, only pending centers can be approved", httpx.ErrValidation, n.Status)
	}
	taken, err := s.repo.RegistrationNoTaken(ctx, registrationNo)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: registration number already in use", httpx.ErrDuplicate)
	}
	if err := s.repo.SetStatus(ctx, id, StatusApproved, &registrationNo); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return s.repo.Get(ctx, id)
}

// Reject moves a pending center to REJECTED.
func (s *Service) Reject(ctx context.Context, id int64) (*Namhatta, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Status != StatusPendingApproval {
		return nil, fmt.Errorf("%w: namhatta is %s, only pending centers can be rejected", httpx.ErrValidation, n.Status)
	}
	if err := s.repo.SetStatus(ctx, id, StatusRejected, nil); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return s.repo.Get(ctx, id)
}
