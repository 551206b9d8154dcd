package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrLockNotAcquired is returned by Locker implementations that fail fast on
// contention instead of queueing.
var ErrLockNotAcquired = errors.New("slot lock not acquired")

// Locker guards the critical section around a slot reservation. Production
// wiring uses the Redis implementation; memory-store mode and tests use
// KeyedMutexLocker.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// SlotLockKey is the serialization point for one bookable slot. Both the
// create and reschedule paths must take this exact key before touching the
// ledger.
func SlotLockKey(blockID uuid.UUID, slotStart string) string {
	return fmt.Sprintf("lock:slot:%s:%s", blockID, slotStart)
}

// KeyedMutexLocker serializes callers per key with in-process mutexes.
// Only valid when a single process owns the ledger.
type KeyedMutexLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyedMutexLocker() *KeyedMutexLocker {
	return &KeyedMutexLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *KeyedMutexLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
