package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/hris-payments-go/internal/domain/payment"
	"github.com/cmlabs-hris/hris-payments-go/internal/pkg/validator"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypePaymentsCalculated carries a calculation notice to the mail worker.
	TaskTypePaymentsCalculated = "payment:calculated"
)

// PaymentsCalculatedSender delivers a calculation notice to one recipient.
type PaymentsCalculatedSender interface {
	SendPaymentsCalculated(to string, event payment.PaymentsCalculatedEvent) error
}

// NewPaymentsCalculatedTask constructs an Asynq task.
func NewPaymentsCalculatedTask(event payment.PaymentsCalculatedEvent) (*asynq.Task, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment notification: %w", err)
	}
	return asynq.NewTask(TaskTypePaymentsCalculated, data), nil
}

// NewPaymentsCalculatedHandler processes TaskTypePaymentsCalculated tasks.
func NewPaymentsCalculatedHandler(sender PaymentsCalculatedSender) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var event payment.PaymentsCalculatedEvent
		if err := json.Unmarshal(t.Payload(), &event); err != nil {
			slog.Error("Discarding malformed payment notification", "error", err)
			return asynq.SkipRetry
		}
		if !validator.IsValidEmail(event.Recipient) {
			slog.Warn("Discarding payment notification without a valid recipient",
				"company_id", event.CompanyID,
				"run_id", event.RunID,
			)
			return asynq.SkipRetry
		}

		if err := sender.SendPaymentsCalculated(event.Recipient, event); err != nil {
			return fmt.Errorf("failed to send payment notification: %w", err)
		}

		slog.Info("Payment notification delivered",
			"company_id", event.CompanyID,
			"run_id", event.RunID,
			"recipient", event.Recipient,
		)
		return nil
	}
}
