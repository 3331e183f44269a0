package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/meridian-hr/meridian-hr/internal/employees"
	"github.com/meridian-hr/meridian-hr/internal/identity"
	"github.com/meridian-hr/meridian-hr/internal/notify"
	"github.com/meridian-hr/meridian-hr/internal/shared"
)

// SubmitInput carries a validated submission.
type SubmitInput struct {
	Type             RequestType
	TargetUserID     *int64
	RequesterName    string
	Email            string
	RequestedRole    string
	TargetDivisionID *int64
	Notes            string
}

// Service orchestrates submissions and exposes read paths. Decisions go
// through the Engine.
type Service struct {
	repo      RepositoryPort
	resolver  *ApproverResolver
	guard     *Guard
	engine    *Engine
	directory DirectoryPort
	notifier  NotifierPort
	audit     AuditPort
	logger    *slog.Logger
}

// NewService builds the workflow service.
func NewService(repo RepositoryPort, resolver *ApproverResolver, guard *Guard, engine *Engine,
	directory DirectoryPort, notifier NotifierPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		resolver:  resolver,
		guard:     guard,
		engine:    engine,
		directory: directory,
		notifier:  notifier,
		audit:     audit,
		logger:    logger,
	}
}

// Submit validates a request, persists it with its resolved approval ledger
// and, for submitters whose authority needs no further sign-off, collapses
// the chain immediately.
func (s *Service) Submit(ctx context.Context, submitter identity.Principal, input SubmitInput) (Request, []ApprovalStep, error) {
	if !input.Type.Valid() {
		return Request{}, nil, fmt.Errorf("%w: %s", ErrUnsupportedType, input.Type)
	}
	if err := validateShape(input); err != nil {
		return Request{}, nil, err
	}

	var target *employees.Employee
	if input.TargetUserID != nil {
		subject, err := s.directory.GetByID(ctx, *input.TargetUserID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return Request{}, nil, fmt.Errorf("%w: target employee %d", ErrNotFound, *input.TargetUserID)
			}
			return Request{}, nil, err
		}
		if !subject.Active() {
			return Request{}, nil, fmt.Errorf("%w: target employee is not active", ErrValidation)
		}
		target = &subject
		// Types that leave the role untouched evaluate authority against the
		// subject's current role.
		if input.RequestedRole == "" {
			input.RequestedRole = subject.RoleName
		}
		if input.RequesterName == "" {
			input.RequesterName = subject.Name
		}
		if input.Email == "" {
			input.Email = subject.Email
		}
	}

	if err := s.guard.CheckSubmit(ctx, submitter, input, target); err != nil {
		return Request{}, nil, err
	}

	req := Request{
		Type:             input.Type,
		Status:           StatusPending,
		TargetUserID:     input.TargetUserID,
		RequesterName:    input.RequesterName,
		Email:            input.Email,
		RequestedRole:    input.RequestedRole,
		TargetDivisionID: input.TargetDivisionID,
		RequestedBy:      submitter.EmployeeID,
		Notes:            input.Notes,
	}

	steps, err := s.resolver.Resolve(ctx, req)
	if err != nil {
		return Request{}, nil, err
	}
	if len(steps) == 0 {
		return Request{}, nil, fmt.Errorf("%w: no approvers available for %s", ErrValidation, input.Type)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.CreateRequest(ctx, &req); err != nil {
			return err
		}
		for i := range steps {
			steps[i].RequestID = req.ID
		}
		steps, err = tx.CreateSteps(ctx, steps)
		return err
	})
	if err != nil {
		return Request{}, nil, err
	}

	s.auditAction(ctx, submitter.EmployeeID, "workflow.submit", req.ID, map[string]any{
		"type": string(req.Type), "requested_role": req.RequestedRole,
	})

	if s.guard.Escalates(submitter) {
		req, err = s.engine.Escalate(ctx, req, submitter.EmployeeID)
		if err != nil {
			return Request{}, nil, err
		}
		steps, err = s.repo.ListSteps(ctx, req.ID)
		return req, steps, err
	}

	s.notifyApprover(ctx, req, steps[0])
	return req, steps, nil
}

// Approve records the actor's approval on a step.
func (s *Service) Approve(ctx context.Context, actor identity.Principal, stepID int64, comment string) (Request, error) {
	req, err := s.engine.Approve(ctx, actor.EmployeeID, stepID, comment)
	if err != nil {
		return Request{}, err
	}
	s.auditAction(ctx, actor.EmployeeID, "workflow.approve", req.ID, map[string]any{"step_id": stepID})

	// The next pending approver, if any, gets a heads-up.
	if req.Status == StatusPending {
		if steps, err := s.repo.ListSteps(ctx, req.ID); err == nil {
			for _, step := range steps {
				if step.Status == StatusPending {
					s.notifyApprover(ctx, req, step)
					break
				}
			}
		}
	}
	return req, nil
}

// Reject records the actor's rejection on a step.
func (s *Service) Reject(ctx context.Context, actor identity.Principal, stepID int64, comment string) (Request, error) {
	req, err := s.engine.Reject(ctx, actor.EmployeeID, stepID, comment)
	if err != nil {
		return Request{}, err
	}
	s.auditAction(ctx, actor.EmployeeID, "workflow.reject", req.ID, map[string]any{"step_id": stepID})
	return req, nil
}

// Request returns a request by id.
func (s *Service) Request(ctx context.Context, id int64) (Request, error) {
	return s.repo.GetRequest(ctx, id)
}

// Steps returns the approval ledger of a request, ordered by level.
func (s *Service) Steps(ctx context.Context, requestID int64) ([]ApprovalStep, error) {
	return s.repo.ListSteps(ctx, requestID)
}

// List returns requests matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Request, error) {
	return s.repo.ListRequests(ctx, filter)
}

// Inbox returns the requests the approver can act on right now.
func (s *Service) Inbox(ctx context.Context, approver identity.Principal) ([]Request, error) {
	return s.repo.ListActionableForApprover(ctx, approver.EmployeeID)
}

func validateShape(input SubmitInput) error {
	switch input.Type {
	case TypeAccountRequest:
		if input.RequesterName == "" || input.Email == "" || input.RequestedRole == "" {
			return fmt.Errorf("%w: account requests need name, email and role", ErrValidation)
		}
		if input.TargetDivisionID == nil {
			return fmt.Errorf("%w: account requests need a division", ErrValidation)
		}
	case TypePromotion:
		if input.TargetUserID == nil {
			return fmt.Errorf("%w: promotion needs a target employee", ErrValidation)
		}
		if input.RequestedRole == "" {
			return fmt.Errorf("%w: promotion needs a requested role", ErrValidation)
		}
	case TypeTransfer:
		if input.TargetUserID == nil || input.TargetDivisionID == nil {
			return fmt.Errorf("%w: transfer needs a target employee and division", ErrValidation)
		}
	case TypeTermination:
		if input.TargetUserID == nil {
			return fmt.Errorf("%w: termination needs a target employee", ErrValidation)
		}
	}
	return nil
}

func (s *Service) notifyApprover(ctx context.Context, req Request, step ApprovalStep) {
	title := fmt.Sprintf("Approval needed: %s", req.Type)
	body := fmt.Sprintf("Request #%d (%s) for %s awaits your decision at level %d.",
		req.ID, req.Type, req.RequesterName, step.Level)
	if err := s.notifier.Notify(ctx, step.ApproverID, notify.CategoryApprovalPending, title, body); err != nil {
		s.logger.Warn("notify approver",
			slog.Int64("request_id", req.ID),
			slog.Int64("approver_id", step.ApproverID),
			slog.Any("error", err))
	}
}

func (s *Service) auditAction(ctx context.Context, actorID int64, action string, requestID int64, meta map[string]any) {
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "request",
		EntityID: strconv.FormatInt(requestID, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
