package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-hr/meridian-hr/internal/divisions"
	"github.com/meridian-hr/meridian-hr/internal/employees"
	"github.com/meridian-hr/meridian-hr/internal/hierarchy"
)

func TestResolveSkipsUnfilledRoleAndRenumbers(t *testing.T) {
	directory := &fakeDirectory{byID: map[int64]employees.Employee{
		2: {ID: 2, RoleName: hierarchy.RoleDirector, Status: employees.StatusActive},
		5: {ID: 5, RoleName: hierarchy.RoleManager, DivisionID: int64Ptr(1), Status: employees.StatusActive},
	}}
	divs := &fakeDivisions{byID: map[int64]divisions.Division{
		1: {ID: 1, Name: "Engineering", ManagerID: int64Ptr(5)},
	}}
	templates := Templates{
		TypePromotion: {
			{Level: 1, Approver: RoleApprover(hierarchy.RoleHRManager)},
			{Level: 2, Approver: RoleApprover(hierarchy.RoleDirector)},
		},
	}
	resolver := NewApproverResolver(templates, directory, divs, testLogger())

	steps, err := resolver.Resolve(context.Background(), Request{Type: TypePromotion})
	require.NoError(t, err)
	// No HR manager exists, so the chain shrinks and the surviving step is
	// renumbered to level 1.
	require.Len(t, steps, 1)
	require.Equal(t, 1, steps[0].Level)
	require.Equal(t, int64(2), steps[0].ApproverID)
}

func TestResolveSkipsDivisionWithoutManager(t *testing.T) {
	directory := &fakeDirectory{byID: map[int64]employees.Employee{
		2: {ID: 2, RoleName: hierarchy.RoleDirector, Status: employees.StatusActive},
		7: {ID: 7, RoleName: hierarchy.RoleStaff, DivisionID: int64Ptr(3), Status: employees.StatusActive},
	}}
	divs := &fakeDivisions{byID: map[int64]divisions.Division{
		3: {ID: 3, Name: "Facilities"}, // no manager assigned
	}}
	resolver := NewApproverResolver(DefaultTemplates(), directory, divs, testLogger())

	steps, err := resolver.Resolve(context.Background(), Request{
		Type:             TypeTransfer,
		TargetUserID:     int64Ptr(7),
		TargetDivisionID: int64Ptr(3),
	})
	require.NoError(t, err)
	require.Len(t, steps, 1)
	require.Equal(t, int64(2), steps[0].ApproverID)
	require.Equal(t, 1, steps[0].Level)
}

func TestResolveSubjectWithoutDivision(t *testing.T) {
	directory := &fakeDirectory{byID: map[int64]employees.Employee{
		2: {ID: 2, RoleName: hierarchy.RoleDirector, Status: employees.StatusActive},
		7: {ID: 7, RoleName: hierarchy.RoleStaff, Status: employees.StatusActive},
	}}
	divs := &fakeDivisions{byID: map[int64]divisions.Division{}}
	resolver := NewApproverResolver(DefaultTemplates(), directory, divs, testLogger())

	steps, err := resolver.Resolve(context.Background(), Request{
		Type:             TypeTransfer,
		TargetUserID:     int64Ptr(7),
		TargetDivisionID: int64Ptr(9),
	})
	require.NoError(t, err)
	require.Len(t, steps, 1)
}

func TestResolveUnsupportedType(t *testing.T) {
	resolver := NewApproverResolver(DefaultTemplates(), &fakeDirectory{}, &fakeDivisions{}, testLogger())
	_, err := resolver.Resolve(context.Background(), Request{Type: TypeSalaryChange})
	require.ErrorIs(t, err, ErrUnsupportedType)
}
