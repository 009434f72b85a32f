package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/juvenxu/account-service/internal/repository"
)

const (
	defaultCaptchaPrefix = "captcha"

	fieldAnswer    = "answer"
	fieldCreatedAt = "created_at"
	fieldExpiresAt = "expires_at"
)

// CaptchaRecord represents a stored challenge answer entry.
type CaptchaRecord struct {
	Key       string
	Answer    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// CaptchaRepository persists challenge answers in Redis, keyed by the opaque
// challenge key handed to the caller.
type CaptchaRepository struct {
	client *red.Client
	prefix string
	now    func() time.Time
}

// NewCaptchaRepository constructs a captcha answer repository with the provided Redis client and key prefix.
func NewCaptchaRepository(client *red.Client, keyPrefix string) *CaptchaRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultCaptchaPrefix
	}

	return &CaptchaRepository{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// Store persists a challenge answer under the supplied key with a TTL.
func (r *CaptchaRepository) Store(ctx context.Context, key, answer string, ttl time.Duration) (*CaptchaRecord, error) {
	key = strings.TrimSpace(key)
	answer = strings.TrimSpace(answer)

	switch {
	case key == "":
		return nil, errors.New("key is required")
	case answer == "":
		return nil, errors.New("answer is required")
	case ttl <= 0:
		return nil, errors.New("ttl must be positive")
	}

	now := r.now().UTC()
	expiresAt := now.Add(ttl)

	redisKey := r.key(key)

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, redisKey, map[string]any{
		fieldAnswer:    answer,
		fieldCreatedAt: strconv.FormatInt(now.Unix(), 10),
		fieldExpiresAt: strconv.FormatInt(expiresAt.Unix(), 10),
	})
	pipe.Expire(ctx, redisKey, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis store captcha: %w", err)
	}

	return &CaptchaRecord{
		Key:       key,
		Answer:    answer,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}, nil
}

// Fetch retrieves the answer record for the provided challenge key.
func (r *CaptchaRepository) Fetch(ctx context.Context, key string) (*CaptchaRecord, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("key is required")
	}

	values, err := r.client.HGetAll(ctx, r.key(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall captcha: %w", err)
	}
	if len(values) == 0 {
		return nil, repository.ErrNotFound
	}

	answer := strings.TrimSpace(values[fieldAnswer])
	if answer == "" {
		return nil, repository.ErrNotFound
	}

	createdAt, err := parseUnix(values[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	expiresAt, err := parseUnix(values[fieldExpiresAt])
	if err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}

	return &CaptchaRecord{
		Key:       key,
		Answer:    answer,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Delete removes the challenge entry, enforcing single-use semantics after a
// successful verification.
func (r *CaptchaRepository) Delete(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("key is required")
	}

	deleted, err := r.client.Del(ctx, r.key(key)).Result()
	if err != nil {
		return fmt.Errorf("redis delete captcha: %w", err)
	}
	if deleted == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// WithClock overrides the internal clock, used in tests.
func (r *CaptchaRepository) WithClock(clock func() time.Time) {
	if clock != nil {
		r.now = clock
	}
}

func (r *CaptchaRepository) key(key string) string {
	return fmt.Sprintf("%s:%s", r.prefix, key)
}

func parseUnix(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, errors.New("timestamp is empty")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(v, 0).UTC(), nil
}
