package divisions

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-hr/meridian-hr/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const divisionColumns = `id, name, manager_id, active_general_id, created_at, updated_at`

// Get returns a division by id.
func (r *Repository) Get(ctx context.Context, id int64) (Division, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+divisionColumns+` FROM divisions WHERE id=$1`, id)
	return scanDivision(row)
}

// List returns all divisions ordered by id.
func (r *Repository) List(ctx context.Context) ([]Division, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+divisionColumns+` FROM divisions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []Division
	for rows.Next() {
		division, err := scanDivision(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, division)
	}
	return result, rows.Err()
}

// ManagedBy returns the division managed by the given user, or nil when the
// user manages none.
func (r *Repository) ManagedBy(ctx context.Context, userID int64) (*Division, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+divisionColumns+` FROM divisions WHERE manager_id=$1 LIMIT 1`, userID)
	division, err := scanDivision(row)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &division, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDivision(row rowScanner) (Division, error) {
	var d Division
	if err := row.Scan(&d.ID, &d.Name, &d.ManagerID, &d.ActiveGeneralID, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Division{}, shared.ErrNotFound
		}
		return Division{}, err
	}
	return d, nil
}
