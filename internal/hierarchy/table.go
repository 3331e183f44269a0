// Package hierarchy holds the role authority ladder used by every
// authorization decision. Lower level means more authority.
package hierarchy

import (
	"fmt"
	"strconv"
	"strings"
)

// Well-known role names.
const (
	RoleSuperadmin = "Superadmin"
	RoleDirector   = "Director"
	RoleHRManager  = "HR Manager"
	RoleManager    = "Manager"
	RoleStaff      = "Staff"
)

// UnknownLevel is assigned to roles missing from the table, which ranks
// them below every configured role.
const UnknownLevel = 999

// Table maps role names to authority levels. It is a plain value injected
// at construction time so deployments and tests can swap the ladder.
type Table struct {
	levels map[string]int
}

// New builds a Table from an explicit role→level mapping.
func New(levels map[string]int) Table {
	copied := make(map[string]int, len(levels))
	for role, level := range levels {
		copied[role] = level
	}
	return Table{levels: copied}
}

// Defaults returns the standard ladder shipped with the product.
func Defaults() Table {
	return New(map[string]int{
		RoleSuperadmin:    1,
		RoleDirector:      2,
		"General Manager": 3,
		RoleHRManager:     4,
		RoleManager:       5,
		"Supervisor":      6,
		RoleStaff:         7,
	})
}

// Parse reads a "Role:level,Role:level" specification, e.g. from an
// environment variable. An empty spec yields the default ladder.
func Parse(spec string) (Table, error) {
	if strings.TrimSpace(spec) == "" {
		return Defaults(), nil
	}
	levels := make(map[string]int)
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		idx := strings.LastIndex(pair, ":")
		if idx <= 0 || idx == len(pair)-1 {
			return Table{}, fmt.Errorf("hierarchy: malformed entry %q", pair)
		}
		role := strings.TrimSpace(pair[:idx])
		level, err := strconv.Atoi(strings.TrimSpace(pair[idx+1:]))
		if err != nil {
			return Table{}, fmt.Errorf("hierarchy: level for %q: %w", role, err)
		}
		levels[role] = level
	}
	return New(levels), nil
}

// LevelOf returns the authority level for a role, or UnknownLevel when the
// role is not in the table.
func (t Table) LevelOf(role string) int {
	if level, ok := t.levels[role]; ok {
		return level
	}
	return UnknownLevel
}

// Known reports whether the role exists in the table.
func (t Table) Known(role string) bool {
	_, ok := t.levels[role]
	return ok
}

// TopLevel returns the most authoritative level in the table.
func (t Table) TopLevel() int {
	top := UnknownLevel
	for _, level := range t.levels {
		if level < top {
			top = level
		}
	}
	return top
}

// Roles lists configured role names, useful for diagnostics.
func (t Table) Roles() []string {
	names := make([]string, 0, len(t.levels))
	for role := range t.levels {
		names = append(names, role)
	}
	return names
}
