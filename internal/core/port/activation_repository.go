package port

import (
	"context"

	"github.com/juvenxu/account-service/internal/core/domain"
)

// ActivationRepository manages the activation code to account id mapping.
// Codes are stored hashed; lookups are by hash only.
type ActivationRepository interface {
	Create(ctx context.Context, token domain.ActivationToken) error
	GetByHash(ctx context.Context, hash string) (*domain.ActivationToken, error)
	Consume(ctx context.Context, id string) error
}
