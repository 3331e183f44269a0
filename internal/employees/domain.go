package employees

import "time"

// EmployeeStatus enumerates account lifecycle states.
type EmployeeStatus string

const (
	// StatusActive marks a working employee.
	StatusActive EmployeeStatus = "ACTIVE"
	// StatusInvited marks an account awaiting registration via setup token.
	StatusInvited EmployeeStatus = "INVITED"
	// StatusTerminated marks an employee whose employment has ended.
	StatusTerminated EmployeeStatus = "TERMINATED"
)

// Employee represents a person record owned by the HR platform.
type Employee struct {
	ID                  int64
	Name                string
	Email               string
	RoleName            string
	DivisionID          *int64
	Status              EmployeeStatus
	PasswordHash        string
	TerminatedAt        *time.Time
	SetupToken          *string
	SetupTokenExpiresAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Active reports whether the employee can act in the system.
func (e Employee) Active() bool {
	return e.Status == StatusActive
}
