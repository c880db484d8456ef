package quiz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotFound is returned by Storage when a key holds no value.
var ErrNotFound = errors.New("quiz: key not found")

// DefaultStateTTL bounds how long abandoned quiz state survives.
const DefaultStateTTL = 30 * 24 * time.Hour

// Storage is the durable key/value backend for quiz progress and sessions.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// RedisStorage keeps quiz state in Redis with a sliding TTL.
type RedisStorage struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisStorage wraps a Redis client. A non-positive ttl uses DefaultStateTTL.
func NewRedisStorage(client *redis.Client, ttl time.Duration) *RedisStorage {
	if client == nil {
		panic("quiz: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &RedisStorage{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("cleaning.internal.quiz.storage"),
	}
}

func (s *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := s.tracer.Start(ctx, "quiz.storage.get", trace.WithAttributes(attribute.String("quiz.key", key)))
	defer span.End()

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("quiz: failed to load %s: %w", key, err)
	}
	return data, nil
}

func (s *RedisStorage) Set(ctx context.Context, key string, value []byte) error {
	ctx, span := s.tracer.Start(ctx, "quiz.storage.set", trace.WithAttributes(attribute.String("quiz.key", key)))
	defer span.End()

	if err := s.redis.Set(ctx, key, value, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("quiz: failed to persist %s: %w", key, err)
	}
	return nil
}

func (s *RedisStorage) Delete(ctx context.Context, key string) error {
	ctx, span := s.tracer.Start(ctx, "quiz.storage.delete", trace.WithAttributes(attribute.String("quiz.key", key)))
	defer span.End()

	if err := s.redis.Del(ctx, key).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("quiz: failed to delete %s: %w", key, err)
	}
	return nil
}

// MemoryStorage is an in-process Storage for development and tests.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (s *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStorage) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.data[key] = append([]byte(nil), value...)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}
