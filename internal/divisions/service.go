package divisions

import "context"

// RepositoryPort defines data access methods for divisions.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Division, error)
	List(ctx context.Context) ([]Division, error)
	ManagedBy(ctx context.Context, userID int64) (*Division, error)
}

// Service handles division business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Get returns a division by id.
func (s *Service) Get(ctx context.Context, id int64) (Division, error) {
	return s.repo.Get(ctx, id)
}

// List returns all divisions.
func (s *Service) List(ctx context.Context) ([]Division, error) {
	return s.repo.List(ctx)
}

// ManagedBy returns the division managed by the user, if any.
func (s *Service) ManagedBy(ctx context.Context, userID int64) (*Division, error) {
	return s.repo.ManagedBy(ctx, userID)
}
