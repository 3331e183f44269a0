// Package notify delivers best-effort notifications. Failures are logged and
// swallowed; the workflow never rolls back because a notification failed.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-hr/meridian-hr/jobs"
)

// Notification categories.
const (
	CategoryApprovalPending = "approval.pending"
	CategoryRequestApproved = "request.approved"
	CategoryRequestRejected = "request.rejected"
	CategoryAccountSetup    = "account.setup"
)

// Service writes in-app notifications and enqueues outbound email.
type Service struct {
	pool   *pgxpool.Pool
	client *asynq.Client
	logger *slog.Logger
}

// NewService constructs the notification service. The asynq client may be
// nil, in which case email delivery is skipped.
func NewService(pool *pgxpool.Pool, client *asynq.Client, logger *slog.Logger) *Service {
	return &Service{pool: pool, client: client, logger: logger}
}

// Notify stores an in-app notification for a user.
func (s *Service) Notify(ctx context.Context, userID int64, category, title, body string) error {
	if s == nil || s.pool == nil {
		return errors.New("notify service not initialised")
	}
	if userID == 0 {
		return errors.New("notify requires user id")
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO notifications (user_id, category, title, body, created_at)
VALUES ($1, $2, $3, $4, NOW())`, userID, category, title, body)
	if err != nil {
		s.logger.Error("store notification", slog.Int64("user_id", userID), slog.Any("error", err))
	}
	return err
}

// Email enqueues an outbound email for the worker to deliver.
func (s *Service) Email(ctx context.Context, address, subject, body string) error {
	if s == nil {
		return errors.New("notify service not initialised")
	}
	if address == "" {
		return errors.New("email requires recipient address")
	}
	if s.client == nil {
		s.logger.Warn("email skipped, queue not configured", slog.String("to", address))
		return nil
	}
	task, err := jobs.NewSendEmailTask(jobs.SendEmailPayload{To: address, Subject: subject, Body: body})
	if err != nil {
		return err
	}
	if _, err := s.client.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault)); err != nil {
		s.logger.Error("enqueue email", slog.String("to", address), slog.Any("error", err))
		return err
	}
	return nil
}

// ListForUser returns notifications for a user, newest first.
func (s *Service) ListForUser(ctx context.Context, userID int64, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `SELECT id, user_id, category, title, body, created_at
FROM notifications WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Category, &n.Title, &n.Body, &n.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}
