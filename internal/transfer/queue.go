package transfer

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edith-sftp/edith/internal/events"
	"github.com/edith-sftp/edith/internal/logging"
	"github.com/edith-sftp/edith/internal/loop"
	"github.com/edith-sftp/edith/internal/metrics"
)

// Queue runs jobs one at a time, in enqueue order, on a single worker
// goroutine that exists only while there is work.
//
// Architecture:
//   - Enqueue/Cancel/Clear are called from the foreground loop
//   - The worker pops the head job, marks it active and runs its closure
//   - Every notification and callback is posted back to the loop; nothing
//     user-visible runs on the worker goroutine
//   - Cancellation is cooperative: the active job's flag is observed the
//     next time its progress callback fires
type Queue struct {
	mu        sync.Mutex
	pending   []*Job
	nextID    JobID
	running   bool  // a worker goroutine exists
	active    JobID // valid only when hasActive
	hasActive bool
	cancelled *atomic.Bool // flag of the active job

	dispatcher loop.Dispatcher
	eventBus   *events.EventBus
	logger     *logging.Logger

	// workerStarts counts worker goroutines started, for tests.
	workerStarts atomic.Int64
}

// NewQueue creates an idle queue. Notifications are published on eventBus
// from closures posted to dispatcher.
func NewQueue(dispatcher loop.Dispatcher, eventBus *events.EventBus, logger *logging.Logger) *Queue {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if eventBus == nil {
		eventBus = events.NewEventBus()
	}
	return &Queue{
		dispatcher: dispatcher,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Events returns the bus the queue publishes on.
func (q *Queue) Events() *events.EventBus {
	return q.eventBus
}

// Enqueue appends a job and returns its id. Must be called from the
// foreground loop: the queued notification is published synchronously.
// onSuccess and onError are optional.
func (q *Queue) Enqueue(label string, work WorkFunc, onSuccess func(any), onError func(error)) JobID {
	q.mu.Lock()
	id := q.nextID
	q.nextID++
	q.pending = append(q.pending, &Job{
		ID:        id,
		Label:     label,
		work:      work,
		onSuccess: onSuccess,
		onError:   onError,
	})
	pending := len(q.pending)
	start := !q.running
	if start {
		q.running = true
	}
	q.mu.Unlock()

	metrics.SetPending(pending)
	q.logger.Debug().Int64("job", int64(id)).Str("label", label).Msg("Job queued")
	q.eventBus.Publish(events.NewQueued(label, int64(id)))

	if start {
		q.workerStarts.Add(1)
		go q.run()
	}
	return id
}

// Cancel aborts the active job cooperatively, or silently drops a pending
// one (its closure never runs and onError is not called). Returns whether
// a job with that id was found.
func (q *Queue) Cancel(id JobID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.hasActive && q.active == id {
		q.cancelled.Store(true)
		q.logger.Debug().Int64("job", int64(id)).Msg("Cancellation requested for active job")
		return true
	}

	for i, job := range q.pending {
		if job.ID == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			metrics.SetPending(len(q.pending))
			q.logger.Debug().Int64("job", int64(id)).Msg("Pending job removed")
			return true
		}
	}
	return false
}

// Clear discards all pending jobs. The active job is not touched.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = nil
	metrics.SetPending(0)
}

// CancelAll clears pending jobs and cancels the active one.
func (q *Queue) CancelAll() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = nil
	metrics.SetPending(0)
	if q.hasActive {
		q.cancelled.Store(true)
	}
}

// Pending returns the number of jobs waiting (not counting the active one).
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Busy reports whether a worker is running (a job is active or waiting).
func (q *Queue) Busy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Active returns the id of the job currently running, if any.
func (q *Queue) Active() (JobID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active, q.hasActive
}

// run is the worker goroutine. It exits once the queue is empty.
func (q *Queue) run() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			q.hasActive = false
			q.cancelled = nil
			// Posted under the lock: a worker started by a later Enqueue
			// cannot publish "started" ahead of this idle.
			q.post(func() { q.eventBus.Publish(events.NewIdle()) })
			q.mu.Unlock()
			q.logger.Debug().Msg("Transfer queue idle")
			return
		}

		job := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		pending := len(q.pending)
		q.active = job.ID
		q.hasActive = true
		cancelled := new(atomic.Bool)
		q.cancelled = cancelled
		q.mu.Unlock()

		metrics.SetPending(pending)
		q.execute(job, pending, cancelled)
	}
}

// execute runs one job and reports its outcome on the loop.
func (q *Queue) execute(job *Job, pending int, cancelled *atomic.Bool) {
	label := job.Label
	q.post(func() { q.eventBus.Publish(events.NewStarted(label, int64(job.ID), pending)) })

	tracker := newProgressTracker(cancelled, func(fraction float64) {
		q.post(func() { q.eventBus.Publish(events.NewProgress(label, fraction, pending)) })
	})

	start := time.Now()
	result, err := q.invoke(job, tracker.report)
	elapsed := time.Since(start)

	// Cleared before any outcome is posted, so a Cancel issued from a
	// done/failed handler no longer sees this job as active.
	q.mu.Lock()
	q.hasActive = false
	q.cancelled = nil
	q.mu.Unlock()

	state := JobDone
	switch {
	case err == nil:
	case errors.Is(err, ErrAborted) || tracker.signalledAbort():
		state = JobAborted
	default:
		state = JobFailed
	}
	metrics.RecordJob(state.outcomeMetric(), elapsed)

	switch state {
	case JobDone:
		q.logger.Debug().Str("label", label).Dur("elapsed", elapsed).Msg("Job done")
		q.post(func() { q.eventBus.Publish(events.NewDone(label)) })
		if job.onSuccess != nil {
			q.post(func() { job.onSuccess(result) })
		}
	case JobAborted:
		q.logger.Info().Str("label", label).Msg("Job aborted")
		q.post(func() { q.eventBus.Publish(events.NewFailed(label, events.AbortedMessage)) })
		if job.onError != nil {
			q.post(func() { job.onError(ErrAborted) })
		}
	default:
		// Logged here so failures stay visible without an onError.
		q.logger.Error().Err(err).Str("label", label).Int64("job", int64(job.ID)).Msg("Job failed")
		msg := err.Error()
		q.post(func() { q.eventBus.Publish(events.NewFailed(label, msg)) })
		if job.onError != nil {
			q.post(func() { job.onError(err) })
		}
	}
}

// invoke calls the work closure, converting a panic into an error.
func (q *Queue) invoke(job *Job, progress ProgressFunc) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %q panicked: %v", job.Label, r)
		}
	}()
	return job.work(progress)
}

func (q *Queue) post(fn func()) {
	if !q.dispatcher.Post(fn) {
		q.logger.Debug().Msg("Foreground loop stopped, dropping notification")
	}
}
