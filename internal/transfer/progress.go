package transfer

import (
	"sync"
	"sync/atomic"
)

// progressTracker builds the per-job progress callback. It checks the
// job's cancellation flag on every call and forwards a notification only
// when the integer percentage changes.
type progressTracker struct {
	cancelled *atomic.Bool
	aborted   atomic.Bool // callback has returned ErrAborted at least once
	emit      func(fraction float64)

	mu      sync.Mutex
	lastPct int64
}

func newProgressTracker(cancelled *atomic.Bool, emit func(fraction float64)) *progressTracker {
	return &progressTracker{
		cancelled: cancelled,
		emit:      emit,
		lastPct:   -1,
	}
}

// report is the ProgressFunc handed to the work closure.
func (p *progressTracker) report(done, total int64) error {
	if p.cancelled.Load() {
		p.aborted.Store(true)
		return ErrAborted
	}
	// Unknown size: indeterminate progress, nothing to forward.
	if total <= 0 {
		return nil
	}

	pct := done * 100 / total

	p.mu.Lock()
	if pct == p.lastPct {
		p.mu.Unlock()
		return nil
	}
	p.lastPct = pct
	p.mu.Unlock()

	fraction := float64(done) / float64(total)
	if fraction < 0 {
		fraction = 0
	} else if fraction > 1 {
		fraction = 1
	}
	p.emit(fraction)
	return nil
}

// signalledAbort reports whether the callback ever told the work to stop.
func (p *progressTracker) signalledAbort() bool {
	return p.aborted.Load()
}
