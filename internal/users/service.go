package users

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/namhatta/namhatta/internal/auth"
	"github.com/namhatta/namhatta/internal/platform/httpx"
)

// CreateUserInput carries the fields for a new account.
type CreateUserInput struct {
	Username  string   `json:"username" validate:"required,min=3"`
	Password  string   `json:"password" validate:"required,min=8"`
	FullName  string   `json:"fullName"`
	Email     string   `json:"email" validate:"omitempty,email"`
	Role      string   `json:"role" validate:"required"`
	Districts []string `json:"districts"`
}

// Service handles user management business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser returns one user by id.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateUser validates the role and district invariants, hashes the
// password and persists the account.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	role, err := auth.ParseRole(in.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, in.Role)
	}
	if role == auth.RoleDistrictSupervisor && len(in.Districts) == 0 {
		return nil, fmt.Errorf("%w: district supervisor requires at least one district", httpx.ErrValidation)
	}
	if role != auth.RoleDistrictSupervisor && len(in.Districts) > 0 {
		return nil, fmt.Errorf("%w: only district supervisors carry district assignments", httpx.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := User{
		Username:  in.Username,
		FullName:  in.FullName,
		Email:     in.Email,
		Role:      string(role),
		Districts: in.Districts,
	}
	id, err := s.repo.CreateUser(ctx, user, string(hash))
	if err != nil {
		return nil, err
	}
	return s.repo.GetUser(ctx, id)
}

// Deactivate disables an account without deleting its history.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, false)
}

// Activate re-enables an account.
func (s *Service) Activate(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, true)
}

// AssignDistricts replaces a supervisor's district set.
func (s *Service) AssignDistricts(ctx context.Context, id int64, districts []string) (*User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != string(auth.RoleDistrictSupervisor) {
		return nil, fmt.Errorf("%w: only district supervisors carry district assignments", httpx.ErrValidation)
	}
	if len(districts) == 0 {
		return nil, fmt.Errorf("%w: district supervisor requires at least one district", httpx.ErrValidation)
	}
	if err := s.repo.ReplaceDistricts(ctx, id, districts); err != nil {
		return nil, err
	}
	return s.repo.GetUser(ctx, id)
}
