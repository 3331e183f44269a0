package workflow

import "context"

// ApprovedEvent is emitted exactly once, by the transaction that completed
// the request's approval chain.
type ApprovedEvent struct {
	Request Request
	Steps   []ApprovalStep
	ActorID int64
}

// RejectedEvent is emitted once when a request is rejected. Step is the
// explicitly rejected step; the remaining pending steps were cascade-closed.
type RejectedEvent struct {
	Request Request
	Step    ApprovalStep
	ActorID int64
	Comment string
}

// ApprovedHandler consumes approval completions. Handler failures are
// logged and never roll back the committed transition.
type ApprovedHandler interface {
	HandleRequestApproved(ctx context.Context, evt ApprovedEvent) error
}

// RejectedHandler consumes rejections.
type RejectedHandler interface {
	HandleRequestRejected(ctx context.Context, evt RejectedEvent) error
}
