package port

import (
	"context"

	"github.com/juvenxu/account-service/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishAccountCreated(ctx context.Context, event domain.AccountCreatedEvent) error
	PublishAccountActivated(ctx context.Context, event domain.AccountActivatedEvent) error
	PublishAccountDeleted(ctx context.Context, event domain.AccountDeletedEvent) error
}
