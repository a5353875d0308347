// Package lock provides the Redis lease that keeps sync passes of the
// server and the one-shot sync binary from overlapping.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appprocurement "github.com/erp/supplier-portal/internal/application/procurement"
)

const (
	DefaultKey = "portal:lock:sync"
	DefaultTTL = 2 * time.Minute
)

// RedisPassLock holds a Redis lease for the length of a sync pass.
// The lease is refreshed every TTL/2 until released, so a pass may outlive
// the TTL while a crashed holder frees the key within one TTL.
type RedisPassLock struct {
	locker *redislock.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisPassLock uses DefaultKey and DefaultTTL when key or ttl are zero
func NewRedisPassLock(client redis.UniversalClient, key string, ttl time.Duration, logger *zap.Logger) *RedisPassLock {
	if key == "" {
		key = DefaultKey
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPassLock{
		locker: redislock.New(client),
		key:    key,
		ttl:    ttl,
		logger: logger.Named("lock"),
	}
}

// Acquire obtains the lease without waiting
func (l *RedisPassLock) Acquire(ctx context.Context) (func(context.Context) error, error) {
	lease, err := l.locker.Obtain(ctx, l.key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, appprocurement.ErrSyncLocked
	}
	if err != nil {
		return nil, fmt.Errorf("obtain %s: %w", l.key, err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(lease, stop, done)

	return func(ctx context.Context) error {
		close(stop)
		<-done
		err := lease.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("Sync lease expired before release", zap.String("key", l.key))
			return nil
		}
		return err
	}, nil
}

func (l *RedisPassLock) keepAlive(lease *redislock.Lock, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.ttl/2)
			err := lease.Refresh(ctx, l.ttl, nil)
			cancel()
			if err != nil {
				l.logger.Warn("Failed to refresh sync lease", zap.String("key", l.key), zap.Error(err))
			}
		}
	}
}

var _ appprocurement.PassLock = (*RedisPassLock)(nil)
