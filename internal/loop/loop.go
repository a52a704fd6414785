// Package loop provides the foreground dispatcher: a single goroutine that
// owns all externally visible state and runs closures posted from
// background goroutines one at a time, in the order they were posted.
package loop

import (
	"context"
	"sync"
)

// Dispatcher accepts closures to run on the foreground goroutine.
// Post must never block the caller.
type Dispatcher interface {
	Post(fn func()) bool
}

// Loop is an unbounded FIFO of closures drained by Run.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	done    chan struct{}
	stopped bool
	once    sync.Once
}

// New creates a loop that is ready to accept posts before Run starts.
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post schedules fn on the loop goroutine. It is safe to call from any
// goroutine, including the loop itself, and never blocks.
// Returns false if the loop has been stopped; fn is then dropped.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}

	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Run executes posted closures until Stop is called or ctx is done.
// It must be called from exactly one goroutine; that goroutine becomes
// the foreground context.
func (l *Loop) Run(ctx context.Context) error {
	for {
		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			fn()
			if l.isStopped() {
				return nil
			}
		}

		select {
		case <-l.wake:
		case <-l.done:
			return nil
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		}
	}
}

// Stop ends Run after the closure currently executing (if any).
// Pending closures are discarded. Idempotent.
func (l *Loop) Stop() {
	l.once.Do(func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
		close(l.done)
	})
}

// Done is closed once Stop has been called.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Len returns the number of closures waiting to run.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped || len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

func (l *Loop) isStopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

// Call posts fn and blocks until it has run on the loop goroutine.
// Returns false if the loop stopped first. Must not be called from the
// loop goroutine itself.
func Call(d Dispatcher, fn func()) bool {
	ran := make(chan struct{})
	if !d.Post(func() {
		fn()
		close(ran)
	}) {
		return false
	}
	if l, ok := d.(*Loop); ok {
		select {
		case <-ran:
			return true
		case <-l.Done():
			select {
			case <-ran:
				return true
			default:
				return false
			}
		}
	}
	<-ran
	return true
}
