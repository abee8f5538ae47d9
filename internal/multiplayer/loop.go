package multiplayer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Loop is a single-goroutine actor. All room state is touched only by
// functions run through Do or Call, or by the tick callback, so rooms need
// no locks of their own.
type Loop struct {
	inbox    chan func()
	done     chan struct{}
	doneOnce sync.Once

	// owned by the Run goroutine
	ticker *time.Ticker
	tickC  <-chan time.Time
}

// NewLoop creates a loop with an inbox of the given capacity.
func NewLoop(buffer int) *Loop {
	if buffer < 1 {
		buffer = 256
	}
	return &Loop{
		inbox: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Do enqueues fn. Returns false once the loop has stopped.
func (l *Loop) Do(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.inbox <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call runs fn on the loop and waits for it to finish. Returns false if fn
// did not run because the loop stopped first.
func (l *Loop) Call(fn func()) bool {
	var state atomic.Int32 // 0 queued, 1 running, 2 abandoned
	finished := make(chan struct{})
	if !l.Do(func() {
		if !state.CompareAndSwap(0, 1) {
			return
		}
		defer close(finished)
		fn()
	}) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-l.done:
		if state.CompareAndSwap(0, 2) {
			return false
		}
		<-finished
		return true
	}
}

// StartTicker begins delivering ticks at the given interval. Must be called
// from inside the loop. Restarting replaces the previous ticker.
func (l *Loop) StartTicker(d time.Duration) {
	l.StopTicker()
	l.ticker = time.NewTicker(d)
	l.tickC = l.ticker.C
}

// StopTicker halts tick delivery. Must be called from inside the loop.
func (l *Loop) StopTicker() {
	if l.ticker != nil {
		l.ticker.Stop()
		l.ticker = nil
	}
	l.tickC = nil
}

// Ticking reports whether a ticker is active. Must be called from inside the loop.
func (l *Loop) Ticking() bool {
	return l.ticker != nil
}

// Run processes the inbox and ticks until Stop is called.
func (l *Loop) Run(onTick func(now time.Time)) {
	defer l.StopTicker()
	for {
		select {
		case <-l.done:
			return
		case fn := <-l.inbox:
			fn()
		case now := <-l.tickC:
			if onTick != nil {
				onTick(now)
			}
		}
	}
}

// Stop ends the loop. Safe to call multiple times and from inside the loop.
func (l *Loop) Stop() {
	l.doneOnce.Do(func() {
		close(l.done)
	})
}

// Done closes when the loop stops.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
