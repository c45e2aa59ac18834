package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithLockMutualExclusion(t *testing.T) {
	m := NewKeyedMutex()
	key := PairKey(1, 2)

	var inFlight int32
	var maxInFlight int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.WithLock(context.Background(), key, 0, func(context.Context) error {
				current := atomic.AddInt32(&inFlight, 1)
				for {
					max := atomic.LoadInt32(&maxInFlight)
					if current <= max || atomic.CompareAndSwapInt32(&maxInFlight, max, current) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight),
		"critical section bodies must never overlap for one key")
}

func TestWithLockDifferentKeysDoNotContend(t *testing.T) {
	m := NewKeyedMutex()

	release1, err := m.Acquire(context.Background(), UserKey(1))
	require.NoError(t, err)
	defer release1()

	done := make(chan struct{})
	go func() {
		defer close(done)
		err := m.WithLock(context.Background(), UserKey(2), 0, func(context.Context) error {
			return nil
		})
		assert.NoError(t, err)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestWithLockFIFOOrder(t *testing.T) {
	m := NewKeyedMutex()
	key := SyncKey(7)

	release, err := m.Acquire(context.Background(), key)
	require.NoError(t, err)

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := m.WithLock(context.Background(), key, 0, func(context.Context) error {
				mu.Lock()
				order = append(order, n)
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}(i)
		// Give each goroutine time to enqueue before the next starts.
		time.Sleep(20 * time.Millisecond)
	}

	release()
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order, "waiters must run in acquisition order")
}

func TestWithLockTimeout(t *testing.T) {
	m := NewKeyedMutex()
	key := PairKey(3, 4)

	release, err := m.Acquire(context.Background(), key)
	require.NoError(t, err)
	defer release()

	err = m.WithLock(context.Background(), key, 50*time.Millisecond, func(context.Context) error {
		t.Fatal("body must not run when acquisition times out")
		return nil
	})
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestWithLockTimedOutWaiterDoesNotWedgeQueue(t *testing.T) {
	m := NewKeyedMutex()
	key := PairKey(5, 6)

	release, err := m.Acquire(context.Background(), key)
	require.NoError(t, err)

	// First waiter gives up.
	err = m.WithLock(context.Background(), key, 30*time.Millisecond, func(context.Context) error { return nil })
	require.ErrorIs(t, err, ErrLockTimeout)

	// Second waiter must still get the lock once the holder releases.
	done := make(chan error, 1)
	go func() {
		done <- m.WithLock(context.Background(), key, time.Second, func(context.Context) error { return nil })
	}()

	time.Sleep(20 * time.Millisecond)
	release()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("queue wedged after a waiter timed out")
	}
}

func TestWithLockReleasesOnError(t *testing.T) {
	m := NewKeyedMutex()
	key := UserKey(9)
	boom := errors.New("boom")

	err := m.WithLock(context.Background(), key, 0, func(context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom, "caller sees the original error, not a lock error")

	// The lock must be free again.
	err = m.WithLock(context.Background(), key, 50*time.Millisecond, func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestWithLockReleasesOnPanic(t *testing.T) {
	m := NewKeyedMutex()
	key := UserKey(10)

	func() {
		defer func() { _ = recover() }()
		_ = m.WithLock(context.Background(), key, 0, func(context.Context) error {
			panic("handler blew up")
		})
	}()

	err := m.WithLock(context.Background(), key, 50*time.Millisecond, func(context.Context) error { return nil })
	assert.NoError(t, err, "lock must be released even when the body panics")
}

func TestWithLockCancellation(t *testing.T) {
	m := NewKeyedMutex()
	key := PairKey(11, 12)

	release, err := m.Acquire(context.Background(), key)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err = m.WithLock(ctx, key, 0, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPairKeyCanonical(t *testing.T) {
	assert.Equal(t, PairKey(2, 1), PairKey(1, 2))
	assert.Equal(t, "rel:1:2", PairKey(2, 1))
	assert.Equal(t, "user:5", UserKey(5))
	assert.Equal(t, "sync:5", SyncKey(5))
}
