package progress

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/edith-sftp/edith/internal/constants"
)

// Spinner shows an indeterminate spinner while a one-off remote call runs.
// On a non-terminal it renders nothing.
type Spinner struct {
	bar  *progressbar.ProgressBar
	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// StartSpinner starts a spinner on stderr with the given description.
func StartSpinner(description string) *Spinner {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return startSpinner(description, io.Discard)
	}
	return startSpinner(description, os.Stderr)
}

func startSpinner(description string, w io.Writer) *Spinner {
	s := &Spinner{
		bar: progressbar.NewOptions64(-1,
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWriter(w),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionThrottle(constants.SpinnerThrottle),
			progressbar.OptionClearOnFinish(),
		),
		stop: make(chan struct{}),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(constants.SpinnerThrottle)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				_ = s.bar.Add(1)
			}
		}
	}()
	return s
}

// Stop halts and clears the spinner. Safe to call more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.stop)
		s.wg.Wait()
		_ = s.bar.Finish()
	})
}
