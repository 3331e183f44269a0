package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-hr/meridian-hr/internal/employees"
	"github.com/meridian-hr/meridian-hr/internal/history"
	"github.com/meridian-hr/meridian-hr/internal/shared"
)

const effectModule = "workflow.effect"

// IdempotencyPort fences effect application. Satisfied by
// shared.IdempotencyStore.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// EffectApplier mutates employee records for approved requests. Each request
// is fenced by an idempotency key so an operator retry after a partial
// failure cannot apply the same change twice.
type EffectApplier struct {
	directory   DirectoryPort
	records     RecordsPort
	history     HistoryPort
	notifier    NotifierPort
	idempotency IdempotencyPort
	tokenTTL    time.Duration
	logger      *slog.Logger
}

// NewEffectApplier constructs the applier. tokenTTL bounds account setup
// tokens issued for provisioned accounts.
func NewEffectApplier(directory DirectoryPort, records RecordsPort, hist HistoryPort,
	notifier NotifierPort, idempotency IdempotencyPort, tokenTTL time.Duration, logger *slog.Logger) *EffectApplier {
	return &EffectApplier{
		directory:   directory,
		records:     records,
		history:     hist,
		notifier:    notifier,
		idempotency: idempotency,
		tokenTTL:    tokenTTL,
		logger:      logger,
	}
}

// Apply performs the business effect of an approved request.
func (a *EffectApplier) Apply(ctx context.Context, req Request) error {
	key := fmt.Sprintf("request:%d", req.ID)
	if err := a.idempotency.CheckAndInsert(ctx, key, effectModule); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			a.logger.Info("request effect already applied", slog.Int64("request_id", req.ID))
			return nil
		}
		return err
	}

	var err error
	switch req.Type {
	case TypeAccountRequest:
		err = a.provisionAccount(ctx, req)
	case TypePromotion:
		err = a.promote(ctx, req)
	case TypeTransfer:
		err = a.transfer(ctx, req)
	case TypeTermination:
		err = a.terminate(ctx, req)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedType, req.Type)
	}
	if err != nil {
		// Release the fence so the effect can be retried.
		if delErr := a.idempotency.Delete(ctx, key); delErr != nil {
			a.logger.Error("release idempotency key", slog.String("key", key), slog.Any("error", delErr))
		}
		return err
	}
	return nil
}

// provisionAccount invites a new account or reactivates a terminated one for
// the same email address.
func (a *EffectApplier) provisionAccount(ctx context.Context, req Request) error {
	existing, err := a.directory.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
		if existing.Status != employees.StatusTerminated {
			return fmt.Errorf("%w: account for %s already exists", ErrValidation, req.Email)
		}
		if err := a.records.Reactivate(ctx, existing.ID, req.RequestedRole, req.TargetDivisionID); err != nil {
			return fmt.Errorf("reactivate employee %d: %w", existing.ID, err)
		}
		a.record(ctx, history.Entry{
			EmployeeID:    existing.ID,
			Event:         history.EventAccountReactivated,
			OldRole:       &existing.RoleName,
			NewRole:       &req.RequestedRole,
			OldDivisionID: existing.DivisionID,
			NewDivisionID: req.TargetDivisionID,
			OldStatus:     statusPtr(existing.Status),
			NewStatus:     statusPtr(employees.StatusActive),
			Reason:        req.Notes,
			CreatedBy:     effectActor(req),
		})
		return nil

	case errors.Is(err, shared.ErrNotFound):
		token := uuid.NewString()
		expiry := time.Now().Add(a.tokenTTL)
		id, err := a.records.Invite(ctx, employees.Employee{
			Name:                req.RequesterName,
			Email:               req.Email,
			RoleName:            req.RequestedRole,
			DivisionID:          req.TargetDivisionID,
			SetupToken:          &token,
			SetupTokenExpiresAt: &expiry,
		})
		if err != nil {
			return fmt.Errorf("invite employee: %w", err)
		}
		a.record(ctx, history.Entry{
			EmployeeID: id,
			Event:      history.EventAccountCreated,
			NewRole:    &req.RequestedRole,
			NewStatus:  statusPtr(employees.StatusInvited),
			Reason:     req.Notes,
			CreatedBy:  effectActor(req),
		})
		if err := a.notifier.Email(ctx, req.Email, "Set up your account",
			fmt.Sprintf("Welcome %s. Use token %s to finish your registration. The token expires on %s.",
				req.RequesterName, token, expiry.Format(time.RFC1123))); err != nil {
			a.logger.Error("send setup email", slog.Int64("request_id", req.ID), slog.Any("error", err))
		}
		return nil

	default:
		return err
	}
}

func (a *EffectApplier) promote(ctx context.Context, req Request) error {
	subject, err := a.subject(ctx, req)
	if err != nil {
		return err
	}
	if err := a.records.ChangeRole(ctx, subject.ID, req.RequestedRole); err != nil {
		return fmt.Errorf("change role for employee %d: %w", subject.ID, err)
	}
	a.record(ctx, history.Entry{
		EmployeeID: subject.ID,
		Event:      history.EventPromotion,
		OldRole:    &subject.RoleName,
		NewRole:    &req.RequestedRole,
		Reason:     req.Notes,
		CreatedBy:  effectActor(req),
	})
	return nil
}

func (a *EffectApplier) transfer(ctx context.Context, req Request) error {
	subject, err := a.subject(ctx, req)
	if err != nil {
		return err
	}
	if req.TargetDivisionID == nil {
		return fmt.Errorf("%w: transfer without target division", ErrValidation)
	}
	if err := a.records.ChangeDivision(ctx, subject.ID, *req.TargetDivisionID); err != nil {
		return fmt.Errorf("change division for employee %d: %w", subject.ID, err)
	}
	a.record(ctx, history.Entry{
		EmployeeID:    subject.ID,
		Event:         history.EventTransfer,
		OldDivisionID: subject.DivisionID,
		NewDivisionID: req.TargetDivisionID,
		Reason:        req.Notes,
		CreatedBy:     effectActor(req),
	})
	return nil
}

func (a *EffectApplier) terminate(ctx context.Context, req Request) error {
	subject, err := a.subject(ctx, req)
	if err != nil {
		return err
	}
	now := time.Now()
	if err := a.records.Terminate(ctx, subject.ID, now); err != nil {
		return fmt.Errorf("terminate employee %d: %w", subject.ID, err)
	}
	a.record(ctx, history.Entry{
		EmployeeID:    subject.ID,
		Event:         history.EventTermination,
		OldStatus:     statusPtr(subject.Status),
		NewStatus:     statusPtr(employees.StatusTerminated),
		EffectiveDate: now,
		Reason:        req.Notes,
		CreatedBy:     effectActor(req),
	})
	return nil
}

func (a *EffectApplier) subject(ctx context.Context, req Request) (employees.Employee, error) {
	if req.TargetUserID == nil {
		return employees.Employee{}, fmt.Errorf("%w: request %d has no target employee", ErrValidation, req.ID)
	}
	subject, err := a.directory.GetByID(ctx, *req.TargetUserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return employees.Employee{}, fmt.Errorf("%w: target employee %d", ErrNotFound, *req.TargetUserID)
		}
		return employees.Employee{}, err
	}
	return subject, nil
}

// record appends to the change log. The mutation already committed, so a
// failed history write is logged rather than undoing the effect.
func (a *EffectApplier) record(ctx context.Context, entry history.Entry) {
	if err := a.history.Record(ctx, entry); err != nil {
		a.logger.Error("record employee history",
			slog.Int64("employee_id", entry.EmployeeID),
			slog.String("event", entry.Event),
			slog.Any("error", err))
	}
}

func effectActor(req Request) int64 {
	if req.ApprovedBy != nil {
		return *req.ApprovedBy
	}
	return req.RequestedBy
}

func statusPtr(s employees.EmployeeStatus) *string {
	v := string(s)
	return &v
}
