// Package interrupt provides the cooperative cancellation latch polled by the
// engine run loop. A latch is owned by one engine; there is no process-wide
// state beyond the os/signal subscription held between Start and Stop.
package interrupt

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// Latch records that an interrupt was raised. It is safe for concurrent use.
type Latch struct {
	received atomic.Bool

	mu      sync.Mutex
	sigCh   chan os.Signal
	done    chan struct{}
	signals []os.Signal
}

// New creates a latch that intercepts SIGINT and SIGTERM while started.
func New() *Latch {
	return &Latch{signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM}}
}

// NewManual creates a latch that only reacts to Trigger.
func NewManual() *Latch {
	return &Latch{}
}

// Start clears the latch and begins intercepting process signals.
func (l *Latch) Start() {
	l.received.Store(false)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sigCh != nil || len(l.signals) == 0 {
		return
	}
	l.sigCh = make(chan os.Signal, 1)
	l.done = make(chan struct{})
	signal.Notify(l.sigCh, l.signals...)

	go func(sigCh <-chan os.Signal, done <-chan struct{}) {
		select {
		case <-sigCh:
			l.received.Store(true)
		case <-done:
		}
	}(l.sigCh, l.done)
}

// Stop releases the signal subscription. The latched value is kept until the
// next Start so callers can still inspect it.
func (l *Latch) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sigCh == nil {
		return
	}
	signal.Stop(l.sigCh)
	close(l.done)
	l.sigCh = nil
	l.done = nil
}

// Trigger raises the latch.
func (l *Latch) Trigger() {
	l.received.Store(true)
}

// Received reports whether the latch was raised since the last Start.
func (l *Latch) Received() bool {
	return l.received.Load()
}
