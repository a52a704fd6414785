// Package transfer provides the serialized job queue for uploads, downloads
// and other long-running session work.
package transfer

import (
	"errors"

	"github.com/edith-sftp/edith/internal/metrics"
)

// JobID identifies a queued job. IDs increase strictly with each Enqueue.
type JobID int64

// JobState represents where a job is in its lifecycle.
type JobState string

const (
	JobPending JobState = "pending" // Waiting behind the active job
	JobActive  JobState = "active"  // Work closure is running
	JobDone    JobState = "done"    // Work returned without error
	JobFailed  JobState = "failed"  // Work returned an error
	JobAborted JobState = "aborted" // Work stopped by cooperative cancellation
)

// ErrAborted is the cancellation marker. The progress callback returns it
// once the job has been cancelled, and onError receives it when the job
// ends aborted.
var ErrAborted = errors.New("transfer aborted")

// ProgressFunc is handed to a job's work closure. It must be called as
// bytes move; a non-nil return means the job was cancelled and the work
// should stop and return that error.
type ProgressFunc = func(done, total int64) error

// WorkFunc is the unit of work executed on the queue's worker goroutine.
type WorkFunc func(progress ProgressFunc) (any, error)

// Job is one queued unit of work. Created by Enqueue and consumed once.
type Job struct {
	ID        JobID
	Label     string
	work      WorkFunc
	onSuccess func(any)
	onError   func(error)
}

// outcomeMetric maps a terminal state to its metrics label.
func (s JobState) outcomeMetric() string {
	switch s {
	case JobDone:
		return metrics.OutcomeDone
	case JobAborted:
		return metrics.OutcomeAborted
	default:
		return metrics.OutcomeFailed
	}
}
