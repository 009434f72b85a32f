package captcha

import (
	"context"
	"sync"
	"time"

	"github.com/juvenxu/account-service/internal/repository"
	redisrepo "github.com/juvenxu/account-service/internal/repository/redis"
)

// RedisStore adapts the Redis captcha repository to the AnswerStore interface.
type RedisStore struct {
	repo *redisrepo.CaptchaRepository
}

// NewRedisStore wraps a Redis-backed captcha repository.
func NewRedisStore(repo *redisrepo.CaptchaRepository) *RedisStore {
	return &RedisStore{repo: repo}
}

func (s *RedisStore) Set(ctx context.Context, key, answer string, ttl time.Duration) error {
	_, err := s.repo.Store(ctx, key, answer, ttl)
	return err
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	record, err := s.repo.Fetch(ctx, key)
	if err != nil {
		return "", err
	}
	return record.Answer, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.repo.Delete(ctx, key)
}

type memoryEntry struct {
	answer    string
	expiresAt time.Time
}

// MemoryStore keeps challenge answers in process memory. Suitable for
// development and tests; answers do not survive restarts.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore constructs an empty in-memory answer store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Set(_ context.Context, key, answer string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{
		answer:    answer,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return "", repository.ErrNotFound
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return "", repository.ErrNotFound
	}

	return entry.answer, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return repository.ErrNotFound
	}
	delete(s.entries, key)
	return nil
}
