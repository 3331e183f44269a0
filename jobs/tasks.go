package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeSetupTokenSweep is the task type that annuls expired account
	// setup tokens.
	TaskTypeSetupTokenSweep = "account:setup_sweep"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewSetupTokenSweepTask constructs the periodic token sweep task.
func NewSetupTokenSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeSetupTokenSweep, nil)
}

// Mailer sends a single message.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer delivers mail over plain SMTP.
type SMTPMailer struct {
	Addr string
	From string
}

// Send writes the message to the configured SMTP relay.
func (m SMTPMailer) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", m.From, to, subject, body)
	return smtp.SendMail(m.Addr, nil, m.From, []string{to}, []byte(msg))
}

// NewSendEmailHandler processes TaskTypeSendEmail tasks with the given mailer.
func NewSendEmailHandler(mailer Mailer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if err := mailer.Send(payload.To, payload.Subject, payload.Body); err != nil {
			logger.Error("send email", slog.String("to", payload.To), slog.Any("error", err))
			return err
		}
		logger.Info("email sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
		return nil
	}
}

// TokenStore is the subset of the employee repository used by the sweep job.
type TokenStore interface {
	ClearExpiredSetupTokens(ctx context.Context, now time.Time) (int64, error)
}

// NewSetupTokenSweepHandler processes TaskTypeSetupTokenSweep tasks.
func NewSetupTokenSweepHandler(store TokenStore, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		cleared, err := store.ClearExpiredSetupTokens(ctx, time.Now())
		if err != nil {
			logger.Error("setup token sweep", slog.Any("error", err))
			return err
		}
		if cleared > 0 {
			logger.Info("setup tokens cleared", slog.Int64("count", cleared))
		}
		return nil
	}
}
