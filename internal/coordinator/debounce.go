package coordinator

import (
	"sync"
	"time"

	"meetsync/internal/observability"
)

// pendingRun is a debounced execution waiting for its quiet window.
type pendingRun struct {
	timer *time.Timer
	fn    func()
}

// Debouncer collapses rapid repeated triggers with the same key into a
// single execution once the quiet window elapses. The latest fn for a
// key wins; earlier triggers within the window only reset the timer.
type Debouncer struct {
	mu      sync.Mutex
	pending map[string]*pendingRun
	stopped bool
}

// NewDebouncer returns an empty Debouncer.
func NewDebouncer() *Debouncer {
	return &Debouncer{pending: make(map[string]*pendingRun)}
}

// Trigger schedules fn to run after window of quiet for the key. A
// trigger that lands inside an open window replaces the pending fn and
// restarts the window.
func (d *Debouncer) Trigger(key string, window time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if p, ok := d.pending[key]; ok {
		p.fn = fn
		p.timer.Reset(window)
		observability.DebounceCollapsed.Inc()
		return
	}

	p := &pendingRun{fn: fn}
	p.timer = time.AfterFunc(window, func() { d.fire(key) })
	d.pending[key] = p
}

// fire runs the pending fn for key outside the debouncer's own mutex.
func (d *Debouncer) fire(key string) {
	d.mu.Lock()
	p, ok := d.pending[key]
	if ok {
		delete(d.pending, key)
	}
	d.mu.Unlock()

	if ok && p.fn != nil {
		p.fn()
	}
}

// Stop cancels all pending runs. Used on shutdown; triggers after Stop
// are dropped.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for key, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, key)
	}
}
