package employees

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-hr/meridian-hr/internal/identity"
	"github.com/meridian-hr/meridian-hr/internal/shared"
)

// ErrSetupTokenInvalid marks an unknown or expired setup token.
var ErrSetupTokenInvalid = errors.New("employees: setup token invalid or expired")

// RepositoryPort defines data access methods for employees.
type RepositoryPort interface {
	GetByID(ctx context.Context, id int64) (Employee, error)
	GetByEmail(ctx context.Context, email string) (Employee, error)
	GetBySetupToken(ctx context.Context, token string) (Employee, error)
	FirstActiveWithRole(ctx context.Context, role string) (Employee, error)
	List(ctx context.Context) ([]Employee, error)
	ChangeRole(ctx context.Context, id int64, role string) error
	ChangeDivision(ctx context.Context, id int64, divisionID int64) error
	Terminate(ctx context.Context, id int64, at time.Time) error
	Invite(ctx context.Context, emp Employee) (int64, error)
	Reactivate(ctx context.Context, id int64, role string, divisionID *int64) error
	Activate(ctx context.Context, id int64, passwordHash string) error
	ClearExpiredSetupTokens(ctx context.Context, now time.Time) (int64, error)
}

// Service handles employee record business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// GetByID returns an employee by id.
func (s *Service) GetByID(ctx context.Context, id int64) (Employee, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByEmail returns an employee by email.
func (s *Service) GetByEmail(ctx context.Context, email string) (Employee, error) {
	return s.repo.GetByEmail(ctx, email)
}

// Account projects an employee into the session middleware's account view.
func (s *Service) Account(ctx context.Context, id int64) (identity.Account, error) {
	emp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return identity.Account{}, err
	}
	return identity.Account{
		ID:         emp.ID,
		Name:       emp.Name,
		Email:      emp.Email,
		RoleName:   emp.RoleName,
		DivisionID: emp.DivisionID,
		Active:     emp.Active(),
	}, nil
}

// FirstActiveWithRole returns the first active holder of a role.
func (s *Service) FirstActiveWithRole(ctx context.Context, role string) (Employee, error) {
	return s.repo.FirstActiveWithRole(ctx, role)
}

// List returns all employees.
func (s *Service) List(ctx context.Context) ([]Employee, error) {
	return s.repo.List(ctx)
}

// ChangeRole updates the employee's role.
func (s *Service) ChangeRole(ctx context.Context, id int64, role string) error {
	return s.repo.ChangeRole(ctx, id, role)
}

// ChangeDivision moves the employee to a new division.
func (s *Service) ChangeDivision(ctx context.Context, id int64, divisionID int64) error {
	return s.repo.ChangeDivision(ctx, id, divisionID)
}

// Terminate marks the employee terminated.
func (s *Service) Terminate(ctx context.Context, id int64, at time.Time) error {
	return s.repo.Terminate(ctx, id, at)
}

// Invite creates an account awaiting registration.
func (s *Service) Invite(ctx context.Context, emp Employee) (int64, error) {
	return s.repo.Invite(ctx, emp)
}

// Reactivate restores an existing account with a new role and division.
func (s *Service) Reactivate(ctx context.Context, id int64, role string, divisionID *int64) error {
	return s.repo.Reactivate(ctx, id, role, divisionID)
}

// CompleteSetup finishes registration for an invited account: the token must
// exist and still be within its validity window.
func (s *Service) CompleteSetup(ctx context.Context, token, password string) (Employee, error) {
	emp, err := s.repo.GetBySetupToken(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Employee{}, ErrSetupTokenInvalid
		}
		return Employee{}, err
	}
	if emp.SetupTokenExpiresAt == nil || emp.SetupTokenExpiresAt.Before(time.Now()) {
		return Employee{}, ErrSetupTokenInvalid
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Employee{}, err
	}
	if err := s.repo.Activate(ctx, emp.ID, string(hash)); err != nil {
		return Employee{}, err
	}
	emp.Status = StatusActive
	emp.SetupToken = nil
	emp.SetupTokenExpiresAt = nil
	return emp, nil
}

// ClearExpiredSetupTokens annuls stale invitations.
func (s *Service) ClearExpiredSetupTokens(ctx context.Context, now time.Time) (int64, error) {
	return s.repo.ClearExpiredSetupTokens(ctx, now)
}
