// Package workflow implements the approval engine for HR lifecycle
// requests: it derives the approval chain for a request, enforces who may
// submit and decide each step, advances the chain as decisions arrive, and
// applies the business effect exactly once when the chain completes.
package workflow

import (
	"errors"
	"time"
)

// RequestType enumerates supported lifecycle changes.
type RequestType string

const (
	// TypeAccountRequest provisions an account for a new hire.
	TypeAccountRequest RequestType = "account_request"
	// TypePromotion changes an employee's role.
	TypePromotion RequestType = "promotion"
	// TypeTransfer moves an employee between divisions.
	TypeTransfer RequestType = "transfer"
	// TypeTermination ends an employment.
	TypeTermination RequestType = "termination"
	// TypeSalaryChange is reserved. No approval chain exists for it yet, so
	// submissions fail at template resolution.
	TypeSalaryChange RequestType = "salary_change"
)

// Valid reports whether the type is a known request type.
func (t RequestType) Valid() bool {
	switch t {
	case TypeAccountRequest, TypePromotion, TypeTransfer, TypeTermination, TypeSalaryChange:
		return true
	}
	return false
}

// Status is shared by requests and approval steps. Terminal states are never
// left once entered.
type Status string

const (
	// StatusPending awaits one or more decisions.
	StatusPending Status = "PENDING"
	// StatusApproved is terminal.
	StatusApproved Status = "APPROVED"
	// StatusRejected is terminal.
	StatusRejected Status = "REJECTED"
)

// Request represents one proposed change. Requests are append-only: they are
// mutated only by the engine and never deleted.
type Request struct {
	ID               int64
	Type             RequestType
	Status           Status
	TargetUserID     *int64
	RequesterName    string
	Email            string
	RequestedRole    string
	TargetDivisionID *int64
	RequestedBy      int64
	ApprovedBy       *int64
	Notes            string
	SubmittedAt      time.Time
	ProcessedAt      *time.Time
}

// ApprovalStep is one required sign-off, owned by exactly one approver.
// Levels are dense and 1-based after resolution; a step may only leave
// PENDING once every lower level is APPROVED.
type ApprovalStep struct {
	ID          int64
	RequestID   int64
	Level       int
	ApproverID  int64
	Status      Status
	Comments    string
	ProcessedAt *time.Time
}

// Synthetic comments written by the engine.
const (
	// CascadeComment marks steps force-rejected after an earlier rejection.
	CascadeComment = "rejected automatically after an earlier rejection"
	// AutoApproveComment marks steps collapsed by the top-authority shortcut.
	AutoApproveComment = "auto-approved: submitted with top authority"
)

// Sentinel errors surfaced by the engine and service.
var (
	ErrUnsupportedType  = errors.New("workflow: unsupported request type")
	ErrValidation       = errors.New("workflow: validation failed")
	ErrForbidden        = errors.New("workflow: forbidden")
	ErrNotFound         = errors.New("workflow: not found")
	ErrAlreadyProcessed = errors.New("workflow: step already processed")
	ErrStepLocked       = errors.New("workflow: earlier approval levels still pending")
	ErrNotApprover      = errors.New("workflow: actor does not own this step")
)
