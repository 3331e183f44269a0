package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultsLadder(t *testing.T) {
	table := Defaults()
	require.Equal(t, 1, table.LevelOf(RoleSuperadmin))
	require.Equal(t, 2, table.LevelOf(RoleDirector))
	require.Equal(t, 5, table.LevelOf(RoleManager))
	require.Equal(t, 7, table.LevelOf(RoleStaff))
}

func TestUnknownRoleRanksLast(t *testing.T) {
	table := Defaults()
	require.Equal(t, UnknownLevel, table.LevelOf("Intern"))
	require.False(t, table.Known("Intern"))
}

func TestParse(t *testing.T) {
	table, err := Parse("Superadmin:1, Director:2, Branch Lead:4")
	require.NoError(t, err)
	require.Equal(t, 4, table.LevelOf("Branch Lead"))
	require.Equal(t, 1, table.TopLevel())
}

func TestParseEmptyFallsBackToDefaults(t *testing.T) {
	table, err := Parse("  ")
	require.NoError(t, err)
	require.Equal(t, 2, table.LevelOf(RoleDirector))
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse("Director")
	require.Error(t, err)

	_, err = Parse("Director:x")
	require.Error(t, err)
}
