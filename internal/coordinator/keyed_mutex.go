package coordinator

import (
	"context"
	"errors"
	"sync"
	"time"

	"meetsync/internal/observability"
)

// ErrLockTimeout is returned when a critical section could not be
// acquired within the caller's wait budget.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// waiter is one parked caller in a key's FIFO queue.
type waiter struct {
	ready chan struct{}
}

// lockState tracks the holder and queued waiters for one key.
type lockState struct {
	held  bool
	queue []*waiter
}

// KeyedMutex serializes work per key. Callers with the same key queue in
// FIFO order; different keys never contend. Keys hold no state while
// unlocked, so the map stays small.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockState
}

// NewKeyedMutex returns an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*lockState)}
}

// Acquire blocks until the key's lock is free or ctx is done. On success
// it returns a release function that must be called exactly once.
// Context expiry maps to ErrLockTimeout for deadlines and to ctx.Err()
// for cancellation.
func (m *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	start := time.Now()

	m.mu.Lock()
	st, ok := m.locks[key]
	if !ok {
		st = &lockState{}
		m.locks[key] = st
	}
	if !st.held {
		st.held = true
		m.mu.Unlock()
		observability.ObserveLockWait(keyKind(key), start)
		return m.releaseFunc(key), nil
	}

	w := &waiter{ready: make(chan struct{})}
	st.queue = append(st.queue, w)
	m.mu.Unlock()

	select {
	case <-w.ready:
		observability.ObserveLockWait(keyKind(key), start)
		return m.releaseFunc(key), nil
	case <-ctx.Done():
		m.mu.Lock()
		select {
		case <-w.ready:
			// The lock was handed over before we could withdraw.
			// Give it back so the next waiter is not wedged.
			m.mu.Unlock()
			m.release(key)
		default:
			m.removeWaiter(st, w)
			m.mu.Unlock()
		}
		observability.LockTimeouts.WithLabelValues(keyKind(key)).Inc()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrLockTimeout
		}
		return nil, ctx.Err()
	}
}

// WithLock runs fn inside the key's critical section. A positive timeout
// bounds the acquisition wait; zero waits as long as ctx allows. The
// lock is released on every exit path of fn, including panics. Errors
// from fn pass through unchanged; ErrLockTimeout is the only error the
// coordinator itself originates.
func (m *KeyedMutex) WithLock(ctx context.Context, key string, timeout time.Duration, fn func(ctx context.Context) error) error {
	acquireCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	release, err := m.Acquire(acquireCtx, key)
	if err != nil {
		return err
	}
	defer release()

	return fn(ctx)
}

// releaseFunc wraps release so each grant can be released exactly once.
func (m *KeyedMutex) releaseFunc(key string) func() {
	var once sync.Once
	return func() {
		once.Do(func() { m.release(key) })
	}
}

// release hands the lock to the head of the queue, or frees the key.
func (m *KeyedMutex) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.locks[key]
	if !ok {
		return
	}
	if len(st.queue) > 0 {
		next := st.queue[0]
		st.queue = st.queue[1:]
		close(next.ready)
		return
	}
	st.held = false
	delete(m.locks, key)
}

// removeWaiter must be called with m.mu held.
func (m *KeyedMutex) removeWaiter(st *lockState, w *waiter) {
	for i, queued := range st.queue {
		if queued == w {
			st.queue = append(st.queue[:i], st.queue[i+1:]...)
			return
		}
	}
}
