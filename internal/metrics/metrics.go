// Package metrics provides Prometheus metrics for transfer jobs and session traffic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Job outcomes
const (
	OutcomeDone    = "done"
	OutcomeFailed  = "failed"
	OutcomeAborted = "aborted"
)

// Byte directions
const (
	DirectionDownload = "download"
	DirectionUpload   = "upload"
	DirectionCopy     = "copy"
)

var (
	jobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edith_transfer_jobs_total",
			Help: "Total number of finished transfer jobs by outcome",
		},
		[]string{"outcome"},
	)

	jobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edith_transfer_job_duration_seconds",
			Help:    "Transfer job run time in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	queuePending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "edith_transfer_queue_pending",
			Help: "Jobs waiting behind the active one",
		},
	)

	bytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edith_session_bytes_total",
			Help: "Bytes moved over the SFTP session",
		},
		[]string{"direction"},
	)

	connectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edith_session_connects_total",
			Help: "Connect attempts by result",
		},
		[]string{"result"},
	)
)

// RecordJob records a finished job.
func RecordJob(outcome string, duration time.Duration) {
	jobsTotal.WithLabelValues(outcome).Inc()
	jobDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// SetPending records the current number of pending jobs.
func SetPending(n int) {
	queuePending.Set(float64(n))
}

// AddBytes records bytes moved in one direction.
func AddBytes(direction string, n int64) {
	if n <= 0 {
		return
	}
	bytesTotal.WithLabelValues(direction).Add(float64(n))
}

// RecordConnect records a connect attempt.
func RecordConnect(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	connectsTotal.WithLabelValues(result).Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
