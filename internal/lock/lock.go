package lock

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Registry is an in-process table of named locks. The engines use it to
// serialize the validate-then-apply section of a ledger post and to guard
// per-intent state transitions, so a capture and a void racing on the same
// intent cannot both observe the predecessor state.
type Registry struct {
	mu   sync.Mutex
	held map[string]string // key -> holder value
}

func NewRegistry() *Registry {
	return &Registry{held: make(map[string]string)}
}

// Locker acquires and releases one named lock. The value identifies the
// holder; only the holder can unlock.
type Locker struct {
	registry *Registry
	key      string
	value    string
}

func NewLocker(registry *Registry, key, value string) *Locker {
	return &Locker{
		registry: registry,
		key:      key,
		value:    value,
	}
}

// Lock attempts to acquire the lock without waiting.
func (l *Locker) Lock(_ context.Context) error {
	l.registry.mu.Lock()
	defer l.registry.mu.Unlock()
	if _, taken := l.registry.held[l.key]; taken {
		return fmt.Errorf("lock for key %s is already held", l.key)
	}
	l.registry.held[l.key] = l.value
	return nil
}

// Unlock releases the lock. Fails if the lock is not held by this locker.
func (l *Locker) Unlock(_ context.Context) error {
	l.registry.mu.Lock()
	defer l.registry.mu.Unlock()
	if holder, taken := l.registry.held[l.key]; !taken || holder != l.value {
		return fmt.Errorf("unlock failed, you're not the lock holder for key %s", l.key)
	}
	delete(l.registry.held, l.key)
	return nil
}

// WaitLock acquires the lock, polling with jitter until waitTimeout elapses
// or the context is cancelled.
func (l *Locker) WaitLock(ctx context.Context, waitTimeout time.Duration) error {
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if err := l.Lock(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(rand.Intn(5)+1) * time.Millisecond):
		}
	}
	return fmt.Errorf("failed to acquire lock for key %s within the wait timeout", l.key)
}
