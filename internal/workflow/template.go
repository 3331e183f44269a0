package workflow

import (
	"fmt"
	"sort"

	"github.com/meridian-hr/meridian-hr/internal/hierarchy"
)

// ApproverKind tags how an abstract approver is specified.
type ApproverKind string

const (
	// KindRole binds the step to the first active holder of a named role.
	KindRole ApproverKind = "ROLE"
	// KindDivisionManager binds the step to the manager of a division
	// referenced by the request.
	KindDivisionManager ApproverKind = "DIVISION_MANAGER"
)

// DivisionRef selects which division a manager step refers to.
type DivisionRef string

const (
	// DivisionCurrent is the subject's current division.
	DivisionCurrent DivisionRef = "CURRENT"
	// DivisionTarget is the division the request moves the subject into.
	DivisionTarget DivisionRef = "TARGET"
)

// ApproverSpec describes an abstract approver before resolution.
type ApproverSpec struct {
	Kind     ApproverKind
	Role     string
	Division DivisionRef
}

// RoleApprover builds a role-bound spec.
func RoleApprover(role string) ApproverSpec {
	return ApproverSpec{Kind: KindRole, Role: role}
}

// DivisionManagerApprover builds a division-manager spec.
func DivisionManagerApprover(ref DivisionRef) ApproverSpec {
	return ApproverSpec{Kind: KindDivisionManager, Division: ref}
}

// TemplateStep is one abstract step of an approval chain. Template levels
// are ordered but not necessarily contiguous; levels are renumbered densely
// when the chain is resolved to concrete approvers.
type TemplateStep struct {
	Level    int
	Approver ApproverSpec
}

// Templates holds the approval chain per request type. It is configuration
// data injected at construction so chains can change without code changes.
type Templates map[RequestType][]TemplateStep

// DefaultTemplates returns the chains currently in force. Steps kept as
// commented entries were part of a richer review flow and can be restored
// by uncommenting.
func DefaultTemplates() Templates {
	return Templates{
		TypeAccountRequest: {
			// {Level: 1, Approver: RoleApprover(hierarchy.RoleHRManager)},
			{Level: 2, Approver: RoleApprover(hierarchy.RoleDirector)},
		},
		TypePromotion: {
			// {Level: 1, Approver: RoleApprover(hierarchy.RoleHRManager)},
			{Level: 2, Approver: RoleApprover(hierarchy.RoleDirector)},
		},
		TypeTermination: {
			// {Level: 1, Approver: RoleApprover(hierarchy.RoleHRManager)},
			{Level: 2, Approver: RoleApprover(hierarchy.RoleDirector)},
		},
		TypeTransfer: {
			{Level: 1, Approver: DivisionManagerApprover(DivisionCurrent)},
			// {Level: 2, Approver: DivisionManagerApprover(DivisionTarget)},
			{Level: 3, Approver: RoleApprover(hierarchy.RoleDirector)},
		},
	}
}

// StepsFor returns the abstract chain for a request type, ordered by level.
func (t Templates) StepsFor(requestType RequestType) ([]TemplateStep, error) {
	steps, ok := t[requestType]
	if !ok || len(steps) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, requestType)
	}
	ordered := append([]TemplateStep(nil), steps...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Level < ordered[j].Level })
	return ordered, nil
}
