package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/juvenxu/account-service/internal/core/domain"
	"github.com/juvenxu/account-service/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, accountID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("account_id", accountID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishAccountCreated logs account.created events.
func (p *StubPublisher) PublishAccountCreated(_ context.Context, event domain.AccountCreatedEvent) error {
	payload := map[string]any{
		"account_id": event.AccountID,
		"name":       event.Name,
		"email":      event.Email,
		"created_at": event.CreatedAt,
		"metadata":   event.Metadata,
	}
	p.logEvent("account.created", event.AccountID, event.CreatedAt, payload)
	return nil
}

// PublishAccountActivated logs account.activated events.
func (p *StubPublisher) PublishAccountActivated(_ context.Context, event domain.AccountActivatedEvent) error {
	payload := map[string]any{
		"account_id":   event.AccountID,
		"activated_at": event.ActivatedAt,
		"metadata":     event.Metadata,
	}
	p.logEvent("account.activated", event.AccountID, event.ActivatedAt, payload)
	return nil
}

// PublishAccountDeleted logs account.deleted events.
func (p *StubPublisher) PublishAccountDeleted(_ context.Context, event domain.AccountDeletedEvent) error {
	payload := map[string]any{
		"account_id": event.AccountID,
		"deleted_at": event.DeletedAt,
		"metadata":   event.Metadata,
	}
	p.logEvent("account.deleted", event.AccountID, event.DeletedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
