package divisions

import "time"

// Division represents an organisational unit. Its manager reference supplies
// the concrete approver whenever an approval chain routes through "the
// manager of the relevant division".
type Division struct {
	ID              int64
	Name            string
	ManagerID       *int64
	ActiveGeneralID *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
