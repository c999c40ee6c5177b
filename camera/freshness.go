package camera

import (
	"context"
	"sync"
)

// freshness counts published frames and wakes goroutines waiting for a newer one.
type freshness struct {
	mu      sync.Mutex
	version uint64
	// closed and replaced on every advance
	changed chan struct{}
	closed  bool
}

func newFreshness() *freshness {
	return &freshness{changed: make(chan struct{})}
}

func (f *freshness) current() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.version
}

// advance records that version was published and wakes all waiters.
func (f *freshness) advance(version uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.version = version
	close(f.changed)
	f.changed = make(chan struct{})
}

// waitAfter blocks until the version exceeds observed and returns it.
func (f *freshness) waitAfter(ctx context.Context, observed uint64) (uint64, error) {
	for {
		f.mu.Lock()
		version, changed, closed := f.version, f.changed, f.closed
		f.mu.Unlock()

		if version > observed {
			return version, nil
		}
		if closed {
			return version, ErrClosed
		}
		select {
		case <-ctx.Done():
			return version, ctx.Err()
		case <-changed:
		}
	}
}

// close releases every waiter with ErrClosed.
func (f *freshness) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.changed)
}
