package port

import (
	"context"

	"github.com/juvenxu/account-service/internal/core/domain"
)

// AccountRepository exposes persistence behavior for accounts, keyed by id.
//
// Read and Update report a missing id with repository.ErrNotFound; Create
// reports an existing id with repository.ErrDuplicate. Any other storage
// fault is returned wrapped with its cause.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	Read(ctx context.Context, id string) (*domain.Account, error)
	Update(ctx context.Context, account domain.Account) error
	Delete(ctx context.Context, id string) error
}
