package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList answers whether a token ID has been revoked before expiry
type RevocationList interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// DefaultRevocationPrefix is the redis key prefix the identity service writes revoked JTIs under
const DefaultRevocationPrefix = "portal:revoked:"

// RedisRevocationList reads revoked token IDs from redis
type RedisRevocationList struct {
	client *redis.Client
	prefix string
}

// NewRedisRevocationList creates a RedisRevocationList sharing client
func NewRedisRevocationList(client *redis.Client, prefix string) *RedisRevocationList {
	if prefix == "" {
		prefix = DefaultRevocationPrefix
	}
	return &RedisRevocationList{client: client, prefix: prefix}
}

// Revoke marks jti revoked for ttl
func (l *RedisRevocationList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if err := l.client.Set(ctx, l.prefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked implements RevocationList
func (l *RedisRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := l.client.Exists(ctx, l.prefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return n > 0, nil
}

// MemoryRevocationList keeps revoked IDs in process memory.
// Only suitable for single-instance deployments and tests.
type MemoryRevocationList struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationList creates an empty MemoryRevocationList
func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{revoked: make(map[string]time.Time), now: time.Now}
}

// Revoke marks jti revoked for ttl
func (l *MemoryRevocationList) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[jti] = l.now().Add(ttl)
	return nil
}

// IsRevoked implements RevocationList; expired entries are dropped
func (l *MemoryRevocationList) IsRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	until, ok := l.revoked[jti]
	if !ok {
		return false, nil
	}
	if l.now().After(until) {
		delete(l.revoked, jti)
		return false, nil
	}
	return true, nil
}

var (
	_ RevocationList = (*RedisRevocationList)(nil)
	_ RevocationList = (*MemoryRevocationList)(nil)
)
