package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// EffectPort applies the business effect of an approved request. Apply must
// be idempotent per request; the engine guarantees it is invoked by at most
// one completing transaction but cannot stop operators from retrying.
type EffectPort interface {
	Apply(ctx context.Context, req Request) error
}

// DecisionRecorder observes decision outcomes for metrics. May be nil.
type DecisionRecorder interface {
	RecordWorkflowDecision(requestType, action string)
}

// Engine advances approval chains. All state transitions go through
// conditional updates inside one transaction, so two approvers racing on the
// same request can never both complete it.
type Engine struct {
	repo     RepositoryPort
	effects  EffectPort
	approved []ApprovedHandler
	rejected []RejectedHandler
	metrics  DecisionRecorder
	logger   *slog.Logger
}

// NewEngine constructs the engine.
func NewEngine(repo RepositoryPort, effects EffectPort, metrics DecisionRecorder, logger *slog.Logger) *Engine {
	return &Engine{repo: repo, effects: effects, metrics: metrics, logger: logger}
}

// OnApproved registers a handler for completed approvals.
func (e *Engine) OnApproved(h ApprovedHandler) {
	e.approved = append(e.approved, h)
}

// OnRejected registers a handler for rejections.
func (e *Engine) OnRejected(h RejectedHandler) {
	e.rejected = append(e.rejected, h)
}

// Approve records an approval on a step. When the step was the last one, the
// same transaction flips the request to APPROVED; the winner then applies the
// business effect and notifies handlers.
func (e *Engine) Approve(ctx context.Context, actorID, stepID int64, comment string) (Request, error) {
	var (
		requestID int64
		completed bool
	)
	err := e.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.ApproveStepGated(ctx, stepID, actorID, comment)
		if err != nil {
			return err
		}
		if !ok {
			return e.diagnoseApprove(ctx, tx, stepID, actorID)
		}
		step, err := tx.GetStep(ctx, stepID)
		if err != nil {
			return err
		}
		requestID = step.RequestID

		remaining, err := tx.CountNotApproved(ctx, requestID)
		if err != nil {
			return err
		}
		if remaining > 0 {
			return nil
		}
		completed, err = tx.MarkRequestProcessed(ctx, requestID, StatusApproved, actorID)
		return err
	})
	if err != nil {
		return Request{}, err
	}

	// The terminal transition already committed, so one fetch serves both
	// the completed and the mid-chain case.
	req, err := e.repo.GetRequest(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	if e.metrics != nil {
		e.metrics.RecordWorkflowDecision(string(req.Type), "approve")
	}
	if completed {
		e.complete(ctx, req, actorID)
	}
	return req, nil
}

// Reject records a rejection on a step, force-closes the remaining pending
// steps and flips the request to REJECTED in the same transaction.
func (e *Engine) Reject(ctx context.Context, actorID, stepID int64, comment string) (Request, error) {
	var (
		requestID int64
		won       bool
	)
	err := e.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.RejectStepPending(ctx, stepID, actorID, comment)
		if err != nil {
			return err
		}
		if !ok {
			return e.diagnoseReject(ctx, tx, stepID, actorID)
		}
		step, err := tx.GetStep(ctx, stepID)
		if err != nil {
			return err
		}
		requestID = step.RequestID

		if _, err := tx.CascadeRejectPending(ctx, requestID); err != nil {
			return err
		}
		won, err = tx.MarkRequestProcessed(ctx, requestID, StatusRejected, actorID)
		return err
	})
	if err != nil {
		return Request{}, err
	}

	req, err := e.repo.GetRequest(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	if e.metrics != nil {
		e.metrics.RecordWorkflowDecision(string(req.Type), "reject")
	}
	if won {
		step, err := e.repo.GetStep(ctx, stepID)
		if err != nil {
			e.logger.Error("load rejected step", slog.Int64("step_id", stepID), slog.Any("error", err))
		}
		evt := RejectedEvent{Request: req, Step: step, ActorID: actorID, Comment: comment}
		for _, h := range e.rejected {
			if err := h.HandleRequestRejected(ctx, evt); err != nil {
				e.logger.Error("rejected handler", slog.Int64("request_id", requestID), slog.Any("error", err))
			}
		}
	}
	return req, nil
}

// Escalate collapses the whole chain for a submitter whose authority needs no
// further sign-off. The effect is applied first; if it fails the ledger stays
// pending and the chain proceeds through ordinary approvals.
func (e *Engine) Escalate(ctx context.Context, req Request, actorID int64) (Request, error) {
	if err := e.effects.Apply(ctx, req); err != nil {
		e.logger.Error("escalation effect failed, leaving request pending",
			slog.Int64("request_id", req.ID),
			slog.String("type", string(req.Type)),
			slog.Any("error", err))
		return e.repo.GetRequest(ctx, req.ID)
	}

	var won bool
	err := e.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.ApproveAllPending(ctx, req.ID, AutoApproveComment); err != nil {
			return err
		}
		var err error
		won, err = tx.MarkRequestProcessed(ctx, req.ID, StatusApproved, actorID)
		return err
	})
	if err != nil {
		return Request{}, err
	}

	if e.metrics != nil {
		e.metrics.RecordWorkflowDecision(string(req.Type), "escalate")
	}
	if won {
		e.emitApproved(ctx, req.ID, actorID)
	}
	return e.repo.GetRequest(ctx, req.ID)
}

// complete runs once per request, by the transaction that won the terminal
// transition: apply the effect, then fan out to handlers.
func (e *Engine) complete(ctx context.Context, req Request, actorID int64) {
	if err := e.effects.Apply(ctx, req); err != nil {
		e.logger.Error("apply request effect",
			slog.Int64("request_id", req.ID),
			slog.String("type", string(req.Type)),
			slog.Any("error", err))
		return
	}
	e.emitApproved(ctx, req.ID, actorID)
}

func (e *Engine) emitApproved(ctx context.Context, requestID, actorID int64) {
	req, err := e.repo.GetRequest(ctx, requestID)
	if err != nil {
		e.logger.Error("load approved request", slog.Int64("request_id", requestID), slog.Any("error", err))
		return
	}
	steps, err := e.repo.ListSteps(ctx, requestID)
	if err != nil {
		e.logger.Error("load approved steps", slog.Int64("request_id", requestID), slog.Any("error", err))
	}
	evt := ApprovedEvent{Request: req, Steps: steps, ActorID: actorID}
	for _, h := range e.approved {
		if err := h.HandleRequestApproved(ctx, evt); err != nil {
			e.logger.Error("approved handler", slog.Int64("request_id", requestID), slog.Any("error", err))
		}
	}
}

// diagnoseApprove explains why the gated update matched nothing.
func (e *Engine) diagnoseApprove(ctx context.Context, tx TxRepository, stepID, actorID int64) error {
	step, err := tx.GetStep(ctx, stepID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: step %d", ErrNotFound, stepID)
		}
		return err
	}
	switch {
	case step.ApproverID != actorID:
		return ErrNotApprover
	case step.Status != StatusPending:
		return ErrAlreadyProcessed
	default:
		return ErrStepLocked
	}
}

func (e *Engine) diagnoseReject(ctx context.Context, tx TxRepository, stepID, actorID int64) error {
	step, err := tx.GetStep(ctx, stepID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: step %d", ErrNotFound, stepID)
		}
		return err
	}
	if step.ApproverID != actorID {
		return ErrNotApprover
	}
	return ErrAlreadyProcessed
}

