package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/meridian-hr/meridian-hr/internal/notify"
)

// RequestNotifier consumes engine events and tells the requester (and, for
// rejections, the subject) what happened. Delivery is best-effort.
type RequestNotifier struct {
	directory DirectoryPort
	notifier  NotifierPort
	logger    *slog.Logger
}

// NewRequestNotifier constructs the notifier.
func NewRequestNotifier(directory DirectoryPort, notifier NotifierPort, logger *slog.Logger) *RequestNotifier {
	return &RequestNotifier{directory: directory, notifier: notifier, logger: logger}
}

var (
	_ ApprovedHandler = (*RequestNotifier)(nil)
	_ RejectedHandler = (*RequestNotifier)(nil)
)

// HandleRequestApproved notifies the requester that the chain completed.
func (n *RequestNotifier) HandleRequestApproved(ctx context.Context, evt ApprovedEvent) error {
	req := evt.Request
	title := fmt.Sprintf("Request approved: %s", req.Type)
	body := fmt.Sprintf("Request #%d (%s) for %s has been approved and applied.",
		req.ID, req.Type, req.RequesterName)
	if err := n.notifier.Notify(ctx, req.RequestedBy, notify.CategoryRequestApproved, title, body); err != nil {
		return err
	}
	n.emailRequester(ctx, req, title, body)
	return nil
}

// HandleRequestRejected notifies the requester of the rejection, including
// the deciding approver's comment.
func (n *RequestNotifier) HandleRequestRejected(ctx context.Context, evt RejectedEvent) error {
	req := evt.Request
	title := fmt.Sprintf("Request rejected: %s", req.Type)
	body := fmt.Sprintf("Request #%d (%s) for %s was rejected at level %d.",
		req.ID, req.Type, req.RequesterName, evt.Step.Level)
	if evt.Comment != "" {
		body += " Reason: " + evt.Comment
	}
	if err := n.notifier.Notify(ctx, req.RequestedBy, notify.CategoryRequestRejected, title, body); err != nil {
		return err
	}
	n.emailRequester(ctx, req, title, body)
	return nil
}

func (n *RequestNotifier) emailRequester(ctx context.Context, req Request, subject, body string) {
	requester, err := n.directory.GetByID(ctx, req.RequestedBy)
	if err != nil {
		n.logger.Warn("lookup requester for email",
			slog.Int64("request_id", req.ID), slog.Any("error", err))
		return
	}
	if err := n.notifier.Email(ctx, requester.Email, subject, body); err != nil {
		n.logger.Warn("email requester",
			slog.Int64("request_id", req.ID), slog.Any("error", err))
	}
}
