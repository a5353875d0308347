package siesa

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// PageCursor remembers the last discovered frontier page between discovery runs.
// Load returns 0 when nothing has been remembered yet.
type PageCursor interface {
	Load(ctx context.Context) (int, error)
	Store(ctx context.Context, page int) error
}

// MemoryPageCursor keeps the frontier page in process memory
type MemoryPageCursor struct {
	mu   sync.RWMutex
	page int
}

// NewMemoryPageCursor creates an empty in-memory cursor
func NewMemoryPageCursor() *MemoryPageCursor {
	return &MemoryPageCursor{}
}

// Load returns the remembered page
func (c *MemoryPageCursor) Load(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.page, nil
}

// Store remembers the page
func (c *MemoryPageCursor) Store(_ context.Context, page int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page = page
	return nil
}

// DefaultCursorKey is the redis key holding the frontier page
const DefaultCursorKey = "siesa:frontier_page"

// RedisPageCursor keeps the frontier page in Redis so it survives restarts
type RedisPageCursor struct {
	client *redis.Client
	key    string
}

// NewRedisPageCursor creates a cursor backed by an existing Redis client
func NewRedisPageCursor(client *redis.Client, key string) *RedisPageCursor {
	if key == "" {
		key = DefaultCursorKey
	}
	return &RedisPageCursor{
		client: client,
		key:    key,
	}
}

// Load returns the remembered page, or 0 if the key does not exist
func (c *RedisPageCursor) Load(ctx context.Context) (int, error) {
	val, err := c.client.Get(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load frontier page: %w", err)
	}
	page, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid frontier page %q: %w", val, err)
	}
	return page, nil
}

// Store remembers the page without expiry
func (c *RedisPageCursor) Store(ctx context.Context, page int) error {
	if err := c.client.Set(ctx, c.key, strconv.Itoa(page), 0).Err(); err != nil {
		return fmt.Errorf("failed to store frontier page: %w", err)
	}
	return nil
}

var (
	_ PageCursor = (*MemoryPageCursor)(nil)
	_ PageCursor = (*RedisPageCursor)(nil)
)
