package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sealdoc/sealdoc/internal/database"
)

// KeyLocker serializes provider sessions per key. Sign and delete against
// the same hardware handle must never run concurrently; the lock is scoped
// to one key, never global.
type KeyLocker interface {
	// Acquire blocks until the key's lock is held or ctx is done.
	// The returned release function must be called exactly once.
	Acquire(ctx context.Context, keyID string) (release func(), err error)
}

// LocalKeyLock is the in-process implementation used when the service runs
// as a single instance.
type LocalKeyLock struct {
	mu   sync.Mutex
	sems map[string]chan struct{}
}

// NewLocalKeyLock creates an in-process per-key lock.
func NewLocalKeyLock() *LocalKeyLock {
	return &LocalKeyLock{sems: make(map[string]chan struct{})}
}

// Acquire takes the key's semaphore, honoring ctx cancellation.
func (l *LocalKeyLock) Acquire(ctx context.Context, keyID string) (func(), error) {
	sem := l.sem(keyID)
	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire key lock: %w", ctx.Err())
	}
}

func (l *LocalKeyLock) sem(keyID string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	sem, ok := l.sems[keyID]
	if !ok {
		sem = make(chan struct{}, 1)
		l.sems[keyID] = sem
	}
	return sem
}

// RedisKeyLock serializes provider sessions across instances sharing the
// same hardware provider. The TTL bounds how long a crashed holder can
// block other instances.
type RedisKeyLock struct {
	rdb   *database.Redis
	ttl   time.Duration
	retry time.Duration
}

// NewRedisKeyLock creates a Redis-backed per-key lock. The TTL should
// exceed the longest provider operation timeout.
func NewRedisKeyLock(rdb *database.Redis, ttl time.Duration) *RedisKeyLock {
	return &RedisKeyLock{
		rdb:   rdb,
		ttl:   ttl,
		retry: 100 * time.Millisecond,
	}
}

// Acquire polls SET NX until the lock is taken or ctx is done.
func (l *RedisKeyLock) Acquire(ctx context.Context, keyID string) (func(), error) {
	name := "sealdoc:keylock:" + keyID
	owner := uuid.New().String()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.rdb.AcquireLock(ctx, name, owner, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("acquire key lock: %w", err)
		}
		if ok {
			release := func() {
				relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = l.rdb.ReleaseLock(relCtx, name, owner)
			}
			return release, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire key lock: %w", ctx.Err())
		}
	}
}
