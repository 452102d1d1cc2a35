package services

import (
	"context"

	"fintrack/internal/amqp"
)

// EventPublisher is satisfied by *amqp.Client. A nil publisher skips events.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error
}
