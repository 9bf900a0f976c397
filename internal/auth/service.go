package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/namhatta/namhatta/internal/shared"
)

// OutcomeRecorder counts authentication outcomes. Satisfied by
// observability.Metrics.
type OutcomeRecorder interface {
	RecordAuthOutcome(outcome string)
}

// Service wraps authentication business rules.
type Service struct {
	repo        Repository
	tokens      *TokenService
	sessions    *SessionRegistry
	revocations *RevocationStore
	metrics     OutcomeRecorder
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenService) *Service {
	return &Service{
		repo:        repo,
		tokens:      tokens,
		sessions:    NewSessionRegistry(repo, tokens),
		revocations: NewRevocationStore(repo, tokens),
	}
}

// WithMetrics registers the outcome counter. Workers skip it.
func (s *Service) WithMetrics(m OutcomeRecorder) *Service {
	s.metrics = m
	return s
}

func (s *Service) record(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordAuthOutcome(outcome)
	}
}

// Sessions exposes the session registry for background sweeps.
func (s *Service) Sessions() *SessionRegistry {
	return s.sessions
}

// Revocations exposes the revocation store for background sweeps.
func (s *Service) Revocations() *RevocationStore {
	return s.revocations
}

// Login validates credentials, rotates the user's single session and issues
// a signed token. Every failure collapses to ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (*shared.Principal, string, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		s.record("invalid")
		return nil, "", shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		s.record("invalid")
		return nil, "", shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.record("invalid")
		return nil, "", shared.ErrInvalidCredentials
	}

	districts, err := s.repo.UserDistricts(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	sessionToken, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(user.ID, user.Username, user.Role, districts, sessionToken)
	if err != nil {
		return nil, "", err
	}

	s.record("success")
	principal := &shared.Principal{
		ID:        user.ID,
		Username:  user.Username,
		Role:      string(user.Role),
		Districts: districts,
	}
	return principal, token, nil
}

// Logout ends the session and blacklists the presented token so it cannot
// be replayed for the remainder of its lifetime.
func (s *Service) Logout(ctx context.Context, userID int64, rawToken string) error {
	if err := s.sessions.Remove(ctx, userID); err != nil {
		return err
	}
	return s.revocations.Revoke(ctx, rawToken)
}

// Authenticate runs the full request-time verification chain on a raw token
// and returns the hydrated principal. Districts come from the directory, not
// the token, since assignments can change after issuance.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (*shared.Principal, error) {
	revoked, err := s.revocations.IsRevoked(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	if revoked {
		s.record("revoked")
		return nil, shared.ErrAuthRequired
	}

	claims, err := s.tokens.Verify(rawToken)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			s.record("expired")
		} else {
			s.record("invalid")
		}
		return nil, shared.ErrAuthRequired
	}

	ok, err := s.sessions.Validate(ctx, claims.UserID, claims.SessionToken)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Expired or superseded by a newer login.
		s.record("expired")
		return nil, shared.ErrAuthRequired
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.record("invalid")
			return nil, shared.ErrAuthRequired
		}
		return nil, err
	}
	if !user.IsActive {
		s.record("invalid")
		return nil, shared.ErrAuthRequired
	}

	districts, err := s.repo.UserDistricts(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.record("success")
	return &shared.Principal{
		ID:        user.ID,
		Username:  user.Username,
		Role:      string(user.Role),
		Districts: districts,
	}, nil
}
