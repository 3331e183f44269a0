package workflow

import "context"

// ListFilter narrows request listings.
type ListFilter struct {
	Status      Status
	Type        RequestType
	RequestedBy int64
}

// RepositoryPort defines persistence for requests and their approval ledger.
// Decision paths run inside WithTx so the step update, the completion check
// and the request transition commit or roll back together.
type RepositoryPort interface {
	GetRequest(ctx context.Context, id int64) (Request, error)
	ListRequests(ctx context.Context, filter ListFilter) ([]Request, error)
	ListSteps(ctx context.Context, requestID int64) ([]ApprovalStep, error)
	GetStep(ctx context.Context, stepID int64) (ApprovalStep, error)
	// ListActionableForApprover returns pending requests holding a pending
	// step owned by the approver whose lower levels are all approved.
	ListActionableForApprover(ctx context.Context, approverID int64) ([]Request, error)
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
}

// TxRepository is the transactional slice of the repository. The conditional
// updates return false instead of an error when their predicate did not hold,
// so callers can diagnose the cause without racing the losing writer.
type TxRepository interface {
	CreateRequest(ctx context.Context, req *Request) error
	CreateSteps(ctx context.Context, steps []ApprovalStep) ([]ApprovalStep, error)
	GetRequest(ctx context.Context, id int64) (Request, error)
	GetStep(ctx context.Context, stepID int64) (ApprovalStep, error)
	ListSteps(ctx context.Context, requestID int64) ([]ApprovalStep, error)
	// ApproveStepGated approves the step only while it is pending, owned by
	// the approver, and no lower level is still unapproved.
	ApproveStepGated(ctx context.Context, stepID, approverID int64, comment string) (bool, error)
	// RejectStepPending rejects the step only while it is pending and owned
	// by the approver. Rejection is not level-gated.
	RejectStepPending(ctx context.Context, stepID, approverID int64, comment string) (bool, error)
	// CascadeRejectPending force-rejects every remaining pending step of the
	// request with the cascade comment.
	CascadeRejectPending(ctx context.Context, requestID int64) (int64, error)
	// ApproveAllPending approves every remaining pending step with the given
	// comment. Used by the top-authority shortcut.
	ApproveAllPending(ctx context.Context, requestID int64, comment string) (int64, error)
	// CountNotApproved counts steps of the request not yet in APPROVED.
	CountNotApproved(ctx context.Context, requestID int64) (int, error)
	// MarkRequestProcessed transitions the request out of PENDING. It returns
	// false when the request already left PENDING; exactly one caller wins.
	MarkRequestProcessed(ctx context.Context, requestID int64, status Status, actorID int64) (bool, error)
}
