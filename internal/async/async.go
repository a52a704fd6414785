// Package async runs one-off blocking calls off the foreground loop and
// hands the outcome back to it.
package async

import (
	"fmt"

	"github.com/edith-sftp/edith/internal/logging"
	"github.com/edith-sftp/edith/internal/loop"
)

type settings struct {
	logger *logging.Logger
	label  string
}

// Option configures a single Run call.
type Option func(*settings)

// WithLogger sets the logger used to report task errors.
func WithLogger(logger *logging.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLabel names the task in log lines.
func WithLabel(label string) Option {
	return func(s *settings) { s.label = label }
}

// Run starts task on a new goroutine. Exactly one of onSuccess or onError
// is posted to d when the task finishes; either may be nil. A panic in
// task is reported to onError. The returned channel is closed once the
// callback has been posted (not necessarily run).
//
// Calls made through Run are not serialized against the transfer queue.
func Run[T any](d loop.Dispatcher, task func() (T, error), onSuccess func(T), onError func(error), opts ...Option) <-chan struct{} {
	s := settings{logger: logging.NewNopLogger(), label: "async task"}
	for _, opt := range opts {
		opt(&s)
	}

	posted := make(chan struct{})
	go func() {
		defer close(posted)

		result, err := call(task)
		if err != nil {
			s.logger.Error().Err(err).Str("task", s.label).Msg("Async task failed")
			if onError != nil {
				post(d, s, func() { onError(err) })
			}
			return
		}
		if onSuccess != nil {
			post(d, s, func() { onSuccess(result) })
		}
	}()
	return posted
}

func call[T any](task func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task()
}

func post(d loop.Dispatcher, s settings, fn func()) {
	if !d.Post(fn) {
		s.logger.Debug().Str("task", s.label).Msg("Foreground loop stopped, dropping result")
	}
}
