package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/juvenxu/account-service/internal/core/domain"
	"github.com/juvenxu/account-service/internal/core/port"
	"github.com/juvenxu/account-service/internal/repository"
)

// ActivationRepository implements port.ActivationRepository backed by PostgreSQL.
type ActivationRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

// NewActivationRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewActivationRepository(exec pgExecutor) *ActivationRepository {
	repo := &ActivationRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:     func() time.Time { return time.Now().UTC() },
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *ActivationRepository) WithTx(tx pgx.Tx) *ActivationRepository {
	if tx == nil {
		return r
	}
	return &ActivationRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
		now:     r.now,
	}
}

// Create inserts a new activation token row.
func (r *ActivationRepository) Create(ctx context.Context, token domain.ActivationToken) error {
	stmt, args, err := r.builder.Insert("activation_tokens").
		Columns(
			"id",
			"account_id",
			"token_hash",
			"created_at",
			"expires_at",
			"used_at",
		).
		Values(
			token.ID,
			token.AccountID,
			token.TokenHash,
			token.CreatedAt,
			token.ExpiresAt,
			token.UsedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert activation token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert activation token: %w", err)
	}

	return nil
}

// GetByHash retrieves an activation token by its hashed code.
func (r *ActivationRepository) GetByHash(ctx context.Context, hash string) (*domain.ActivationToken, error) {
	stmt, args, err := r.builder.
		Select(
			"id",
			"account_id",
			"token_hash",
			"created_at",
			"expires_at",
			"used_at",
		).
		From("activation_tokens").
		Where(squirrel.Eq{"token_hash": hash}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select activation token sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var token domain.ActivationToken
	if err := row.Scan(
		&token.ID,
		&token.AccountID,
		&token.TokenHash,
		&token.CreatedAt,
		&token.ExpiresAt,
		&token.UsedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan activation token: %w", err)
	}

	return &token, nil
}

// Consume marks an activation token as used. Tokens already consumed are
// left untouched and reported as not found.
func (r *ActivationRepository) Consume(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update("activation_tokens").
		Set("used_at", r.now()).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"used_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build consume activation token sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("consume activation token: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.ActivationRepository = (*ActivationRepository)(nil)
