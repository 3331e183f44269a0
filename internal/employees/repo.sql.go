package employees

import (
	"context"
	"errors"
	"time"

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

const employeeColumns = `id, name, email, role_name, division_id, status, password_hash,
terminated_at, setup_token, setup_token_expires_at, created_at, updated_at`

// GetByID returns an employee by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (Employee, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id=$1`, id)
	return scanEmployee(row)
}

// GetByEmail returns an employee by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (Employee, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE email=$1`, email)
	return scanEmployee(row)
}

// FirstActiveWithRole returns the first active holder of a role, ordered by id.
// The platform does not support multiple simultaneous holders of an approval
// role, so the first match is authoritative.
func (r *Repository) FirstActiveWithRole(ctx context.Context, role string) (Employee, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees
WHERE role_name=$1 AND status=$2 ORDER BY id LIMIT 1`, role, StatusActive)
	return scanEmployee(row)
}

// List returns all employees ordered by id.
func (r *Repository) List(ctx context.Context) ([]Employee, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, emp)
	}
	return result, rows.Err()
}

// ChangeRole updates the employee's role.
func (r *Repository) ChangeRole(ctx context.Context, id int64, role string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE employees SET role_name=$2, updated_at=NOW() WHERE id=$1`, id, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ChangeDivision moves the employee to a new division.
func (r *Repository) ChangeDivision(ctx context.Context, id int64, divisionID int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE employees SET division_id=$2, updated_at=NOW() WHERE id=$1`, id, divisionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Terminate marks the employee terminated at the given time.
func (r *Repository) Terminate(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE employees
SET status=$2, terminated_at=$3, updated_at=NOW() WHERE id=$1`, id, StatusTerminated, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Invite creates an employee record awaiting registration via setup token.
func (r *Repository) Invite(ctx context.Context, emp Employee) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO employees
(name, email, role_name, division_id, status, password_hash, setup_token, setup_token_expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, '', $6, $7, NOW(), NOW())
RETURNING id`,
		emp.Name, emp.Email, emp.RoleName, emp.DivisionID, StatusInvited, emp.SetupToken, emp.SetupTokenExpiresAt).Scan(&id)
	return id, err
}

// Reactivate switches an existing account back to active with a new
// role and division.
func (r *Repository) Reactivate(ctx context.Context, id int64, role string, divisionID *int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE employees
SET status=$2, role_name=$3, division_id=$4, terminated_at=NULL, updated_at=NOW() WHERE id=$1`,
		id, StatusActive, role, divisionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GetBySetupToken returns the invited employee holding the token.
func (r *Repository) GetBySetupToken(ctx context.Context, token string) (Employee, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees
WHERE setup_token=$1 AND status=$2`, token, StatusInvited)
	return scanEmployee(row)
}

// Activate completes registration: stores the password hash, clears the
// setup token and switches the account to active.
func (r *Repository) Activate(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE employees
SET status=$2, password_hash=$3, setup_token=NULL, setup_token_expires_at=NULL, updated_at=NOW()
WHERE id=$1 AND status=$4`, id, StatusActive, passwordHash, StatusInvited)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ClearExpiredSetupTokens annuls invitations whose token passed its deadline.
func (r *Repository) ClearExpiredSetupTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE employees
SET setup_token=NULL, setup_token_expires_at=NULL, updated_at=NOW()
WHERE setup_token IS NOT NULL AND setup_token_expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (Employee, error) {
	var e Employee
	var status string
	err := row.Scan(&e.ID, &e.Name, &e.Email, &e.RoleName, &e.DivisionID, &status, &e.PasswordHash,
		&e.TerminatedAt, &e.SetupToken, &e.SetupTokenExpiresAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, shared.ErrNotFound
		}
		return Employee{}, err
	}
	e.Status = EmployeeStatus(status)
	return e, nil
}
