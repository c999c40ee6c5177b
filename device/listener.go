package device

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// ErrListenerClosed is returned by WaitForNewFrame once the listener is closed.
var ErrListenerClosed = errors.New("frame listener is closed")

// SyncFrameListener collects the color and depth frames a device pushes and hands them out as pairs.
// While a consumer holds a pair, between WaitForNewFrame and Release, incoming frames are refused.
type SyncFrameListener struct {
	mu      sync.Mutex
	pending [2]*Frame
	holding bool
	closed  bool

	ready    chan struct{}
	closedCh chan struct{}
	dropped  atomic.Uint64
}

// NewSyncFrameListener returns an open listener.
func NewSyncFrameListener() *SyncFrameListener {
	return &SyncFrameListener{
		ready:    make(chan struct{}, 1),
		closedCh: make(chan struct{}),
	}
}

// OnNewFrame implements FrameSink. A frame replaces a pending frame of the same type. A pending frame of
// the other type from an earlier cycle is discarded; a frame older than the pending one of the other type is
// refused.
func (l *SyncFrameListener) OnNewFrame(frame Frame) bool {
	if frame.Type != FrameTypeColor && frame.Type != FrameTypeDepth {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.holding {
		l.dropped.Inc()
		return false
	}

	other := frameTypeOther(frame.Type)
	if p := l.pending[other]; p != nil {
		switch {
		case p.Sequence < frame.Sequence:
			l.pending[other] = nil
			l.dropped.Inc()
		case p.Sequence > frame.Sequence:
			l.dropped.Inc()
			return false
		}
	}
	if l.pending[frame.Type] != nil {
		l.dropped.Inc()
	}
	f := frame
	l.pending[frame.Type] = &f

	if l.pending[other] != nil {
		select {
		case l.ready <- struct{}{}:
		default:
		}
	}
	return true
}

func frameTypeOther(ft FrameType) FrameType {
	if ft == FrameTypeColor {
		return FrameTypeDepth
	}
	return FrameTypeColor
}

// WaitForNewFrame blocks until a complete pair is available, the listener is closed, or ctx is done.
// The caller owns the returned pair until it calls Release.
func (l *SyncFrameListener) WaitForNewFrame(ctx context.Context) (FrameSet, error) {
	for {
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return FrameSet{}, ErrListenerClosed
		}
		color, depth := l.pending[FrameTypeColor], l.pending[FrameTypeDepth]
		if color != nil && depth != nil {
			l.pending = [2]*Frame{}
			l.holding = true
			l.mu.Unlock()
			return FrameSet{Sequence: color.Sequence, Color: color.Color, Depth: depth.Depth}, nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return FrameSet{}, ctx.Err()
		case <-l.closedCh:
		case <-l.ready:
		}
	}
}

// Release hands the pair back and lets the listener accept frames again.
func (l *SyncFrameListener) Release(FrameSet) {
	l.mu.Lock()
	l.holding = false
	l.mu.Unlock()
}

// Dropped returns how many frames were refused or overwritten before a consumer took them.
func (l *SyncFrameListener) Dropped() uint64 {
	return l.dropped.Load()
}

// Close wakes any waiter with ErrListenerClosed. It is safe to call more than once.
func (l *SyncFrameListener) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.pending = [2]*Frame{}
	close(l.closedCh)
}
