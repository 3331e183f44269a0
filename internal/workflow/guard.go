package workflow

import (
	"context"
	"fmt"

	"github.com/meridian-hr/meridian-hr/internal/employees"
	"github.com/meridian-hr/meridian-hr/internal/hierarchy"
	"github.com/meridian-hr/meridian-hr/internal/identity"
)

// Guard enforces the hierarchy-based submission rules. Decision ownership
// (who may approve a given step) is enforced by the engine's conditional
// updates; the guard covers submissions only.
type Guard struct {
	table     hierarchy.Table
	divisions DivisionsPort
}

// NewGuard constructs a Guard with an injected hierarchy table.
func NewGuard(table hierarchy.Table, divs DivisionsPort) *Guard {
	return &Guard{table: table, divisions: divs}
}

// CheckSubmit validates the submitter's authority over the proposed change.
// target is non-nil when the request names an existing employee.
func (g *Guard) CheckSubmit(ctx context.Context, submitter identity.Principal, input SubmitInput, target *employees.Employee) error {
	if !g.table.Known(input.RequestedRole) {
		return fmt.Errorf("%w: unknown role %q", ErrValidation, input.RequestedRole)
	}

	// A submitter may only request roles at or below their own authority,
	// unless they hold the top Superadmin role.
	if submitter.RoleName != hierarchy.RoleSuperadmin {
		requestedLevel := g.table.LevelOf(input.RequestedRole)
		if submitter.Level > requestedLevel {
			return fmt.Errorf("%w: cannot request role %q above own authority", ErrForbidden, input.RequestedRole)
		}
	}

	// Changes to a named employee require strictly more authority than the
	// subject currently holds.
	if target != nil {
		targetLevel := g.table.LevelOf(target.RoleName)
		if submitter.Level >= targetLevel {
			return fmt.Errorf("%w: insufficient authority over target employee", ErrForbidden)
		}
	}

	// Division managers are moved by reassigning management, never through
	// the transfer flow.
	if input.Type == TypeTransfer && target != nil {
		managed, err := g.divisions.ManagedBy(ctx, target.ID)
		if err != nil {
			return err
		}
		if managed != nil {
			return fmt.Errorf("%w: target manages division %q", ErrForbidden, managed.Name)
		}
	}

	return nil
}

// Escalates reports whether the submitter's authority collapses the chain:
// a Director-level submitter needs no further sign-off.
func (g *Guard) Escalates(submitter identity.Principal) bool {
	return submitter.Level <= g.table.LevelOf(hierarchy.RoleDirector)
}
