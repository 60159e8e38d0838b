package auth

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RevocationStore records, per user, the instant before which issued tokens
// are no longer accepted. Entries only need to outlive the refresh TTL.
type RevocationStore interface {
	RevokeBefore(ctx context.Context, userID string, cutoff time.Time) error
	RevokedBefore(ctx context.Context, userID string) (time.Time, error)
}

// MemoryRevocations is the in-process fallback used when Redis is not
// configured. Suitable for single-instance deployments and tests.
type MemoryRevocations struct {
	mu      sync.RWMutex
	cutoffs map[string]time.Time
}

// NewMemoryRevocations creates an empty in-memory revocation store.
func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{cutoffs: make(map[string]time.Time)}
}

func (s *MemoryRevocations) RevokeBefore(ctx context.Context, userID string, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.cutoffs[userID]; !ok || cutoff.After(existing) {
		s.cutoffs[userID] = cutoff
	}
	return nil
}

func (s *MemoryRevocations) RevokedBefore(ctx context.Context, userID string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cutoffs[userID], nil
}

// RedisRevocations shares revocation cutoffs across instances.
type RedisRevocations struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRevocations wraps a Redis client. ttl should be at least the
// refresh token lifetime.
func NewRedisRevocations(client *redis.Client, ttl time.Duration) *RedisRevocations {
	return &RedisRevocations{client: client, ttl: ttl}
}

func revocationKey(userID string) string {
	return "auth:revoked_before:" + userID
}

func (s *RedisRevocations) RevokeBefore(ctx context.Context, userID string, cutoff time.Time) error {
	return s.client.Set(ctx, revocationKey(userID), cutoff.UnixNano(), s.ttl).Err()
}

func (s *RedisRevocations) RevokedBefore(ctx context.Context, userID string) (time.Time, error) {
	value, err := s.client.Get(ctx, revocationKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	nanos, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, nanos).UTC(), nil
}
