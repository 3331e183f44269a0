// Package history persists the append-only employee change log. Entries are
// written once, when an approved request takes effect, and never mutated.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Event types recorded in the employee history.
const (
	EventAccountCreated     = "ACCOUNT_CREATED"
	EventAccountReactivated = "ACCOUNT_REACTIVATED"
	EventPromotion          = "PROMOTION"
	EventTransfer           = "TRANSFER"
	EventTermination        = "TERMINATION"
)

// Entry represents one effected change on an employee record.
type Entry struct {
	EmployeeID    int64
	Event         string
	OldRole       *string
	NewRole       *string
	OldDivisionID *int64
	NewDivisionID *int64
	OldStatus     *string
	NewStatus     *string
	OldSalary     *float64
	NewSalary     *float64
	EffectiveDate time.Time
	Reason        string
	CreatedBy     int64
}

// Recorder writes records into employee_history.
type Recorder struct {
	pool *pgxpool.Pool
}

// NewRecorder returns a new Recorder.
func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

// Record persists the entry.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if r == nil {
		return errors.New("history recorder not initialised")
	}
	if entry.EmployeeID == 0 {
		return errors.New("history entry requires employee id")
	}
	if entry.Event == "" {
		return errors.New("history entry requires event type")
	}
	if entry.EffectiveDate.IsZero() {
		entry.EffectiveDate = time.Now()
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO employee_history
(employee_id, event, old_role, new_role, old_division_id, new_division_id,
 old_status, new_status, old_salary, new_salary, effective_date, reason, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())`,
		entry.EmployeeID, entry.Event, entry.OldRole, entry.NewRole,
		entry.OldDivisionID, entry.NewDivisionID, entry.OldStatus, entry.NewStatus,
		entry.OldSalary, entry.NewSalary, entry.EffectiveDate, entry.Reason, entry.CreatedBy)
	return err
}

// ListForEmployee returns the change log for one employee, oldest first.
func (r *Recorder) ListForEmployee(ctx context.Context, employeeID int64) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT employee_id, event, old_role, new_role,
old_division_id, new_division_id, old_status, new_status, old_salary, new_salary,
effective_date, reason, created_by
FROM employee_history WHERE employee_id=$1 ORDER BY created_at ASC`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.EmployeeID, &e.Event, &e.OldRole, &e.NewRole,
			&e.OldDivisionID, &e.NewDivisionID, &e.OldStatus, &e.NewStatus,
			&e.OldSalary, &e.NewSalary, &e.EffectiveDate, &e.Reason, &e.CreatedBy); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
