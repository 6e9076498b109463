package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
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

// EmailSender delivers one message. The worker owns retry policy, so a sender
// should just attempt delivery and report the error.
type EmailSender func(ctx context.Context, payload SendEmailPayload) error

// HandleSendEmailTask returns the asynq handler for TaskTypeSendEmail. A nil
// sender logs the message instead of delivering it.
func HandleSendEmailTask(logger *slog.Logger, sender EmailSender) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if sender == nil {
			logger.Info("email delivery skipped, no sender configured",
				slog.String("to", payload.To), slog.String("subject", payload.Subject))
			return nil
		}
		return sender(ctx, payload)
	}
}
