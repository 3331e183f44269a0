package workflow

import (
	"context"
	"time"

	"github.com/meridian-hr/meridian-hr/internal/divisions"
	"github.com/meridian-hr/meridian-hr/internal/employees"
	"github.com/meridian-hr/meridian-hr/internal/history"
	"github.com/meridian-hr/meridian-hr/internal/shared"
)

// DirectoryPort exposes the employee lookups the engine needs.
type DirectoryPort interface {
	GetByID(ctx context.Context, id int64) (employees.Employee, error)
	GetByEmail(ctx context.Context, email string) (employees.Employee, error)
	FirstActiveWithRole(ctx context.Context, role string) (employees.Employee, error)
}

// RecordsPort issues the employee record mutations performed by the effect
// applier. The workflow does not own the employee schema.
type RecordsPort interface {
	ChangeRole(ctx context.Context, id int64, role string) error
	ChangeDivision(ctx context.Context, id int64, divisionID int64) error
	Terminate(ctx context.Context, id int64, at time.Time) error
	Invite(ctx context.Context, emp employees.Employee) (int64, error)
	Reactivate(ctx context.Context, id int64, role string, divisionID *int64) error
}

// DivisionsPort exposes division lookups for approver resolution and the
// transfer guard.
type DivisionsPort interface {
	Get(ctx context.Context, id int64) (divisions.Division, error)
	ManagedBy(ctx context.Context, userID int64) (*divisions.Division, error)
}

// NotifierPort delivers best-effort notifications.
type NotifierPort interface {
	Notify(ctx context.Context, userID int64, category, title, body string) error
	Email(ctx context.Context, address, subject, body string) error
}

// HistoryPort appends to the employee change log.
type HistoryPort interface {
	Record(ctx context.Context, entry history.Entry) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}
