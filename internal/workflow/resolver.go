package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/meridian-hr/meridian-hr/internal/shared"
)

// ApproverResolver binds abstract template steps to concrete approvers.
type ApproverResolver struct {
	templates Templates
	directory DirectoryPort
	divisions DivisionsPort
	logger    *slog.Logger
}

// NewApproverResolver constructs a resolver.
func NewApproverResolver(templates Templates, directory DirectoryPort, divs DivisionsPort, logger *slog.Logger) *ApproverResolver {
	return &ApproverResolver{templates: templates, directory: directory, divisions: divs, logger: logger}
}

// Templates exposes the configured chains.
func (r *ApproverResolver) Templates() Templates {
	return r.templates
}

// Resolve derives the concrete ledger for a request. Steps that cannot be
// bound to a person (no role holder, subject without a division, division
// without a manager) are skipped with a warning rather than failing the
// submission. Surviving steps are renumbered densely starting at 1, which
// the level-gating rule depends on.
func (r *ApproverResolver) Resolve(ctx context.Context, req Request) ([]ApprovalStep, error) {
	specs, err := r.templates.StepsFor(req.Type)
	if err != nil {
		return nil, err
	}

	var steps []ApprovalStep
	level := 0
	for _, spec := range specs {
		approverID, ok, err := r.resolveSpec(ctx, spec.Approver, req)
		if err != nil {
			return nil, err
		}
		if !ok {
			r.logger.Warn("approval step skipped",
				slog.String("request_type", string(req.Type)),
				slog.Int("template_level", spec.Level),
				slog.String("kind", string(spec.Approver.Kind)))
			continue
		}
		level++
		steps = append(steps, ApprovalStep{
			RequestID:  req.ID,
			Level:      level,
			ApproverID: approverID,
			Status:     StatusPending,
		})
	}
	return steps, nil
}

func (r *ApproverResolver) resolveSpec(ctx context.Context, spec ApproverSpec, req Request) (int64, bool, error) {
	switch spec.Kind {
	case KindRole:
		emp, err := r.directory.FirstActiveWithRole(ctx, spec.Role)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return 0, false, nil
			}
			return 0, false, err
		}
		return emp.ID, true, nil

	case KindDivisionManager:
		divisionID, err := r.divisionFor(ctx, spec.Division, req)
		if err != nil {
			return 0, false, err
		}
		if divisionID == nil {
			return 0, false, nil
		}
		division, err := r.divisions.Get(ctx, *divisionID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return 0, false, nil
			}
			return 0, false, err
		}
		if division.ManagerID == nil {
			return 0, false, nil
		}
		return *division.ManagerID, true, nil

	default:
		return 0, false, fmt.Errorf("workflow: unknown approver kind %q", spec.Kind)
	}
}

func (r *ApproverResolver) divisionFor(ctx context.Context, ref DivisionRef, req Request) (*int64, error) {
	switch ref {
	case DivisionTarget:
		return req.TargetDivisionID, nil
	case DivisionCurrent:
		if req.TargetUserID == nil {
			return nil, nil
		}
		subject, err := r.directory.GetByID(ctx, *req.TargetUserID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return subject.DivisionID, nil
	default:
		return nil, fmt.Errorf("workflow: unknown division reference %q", ref)
	}
}
