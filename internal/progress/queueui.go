// Package progress renders transfer queue activity in the terminal: mpb
// bars for queued jobs and a spinner for one-off remote calls.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"

	"github.com/edith-sftp/edith/internal/constants"
	"github.com/edith-sftp/edith/internal/events"
)

// barScale is the bar total; queue progress arrives as a fraction.
const barScale = 1000

// QueueUI shows one bar per queued job, driven entirely by queue events.
// The queue runs one job at a time, so at most one bar is active.
type QueueUI struct {
	progress   *mpb.Progress
	out        io.Writer
	isTerminal bool

	mu      sync.Mutex
	active  *jobBar
	done    int
	failed  int
	aborted int
}

type jobBar struct {
	bar     *mpb.Bar
	label   string
	started time.Time
}

// NewQueueUI creates a UI writing to stderr, with bars only when stderr
// is a terminal.
func NewQueueUI() *QueueUI {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))
	if isTerminal {
		enableANSI(os.Stderr)
	}
	return newQueueUI(os.Stderr, isTerminal)
}

func newQueueUI(out io.Writer, isTerminal bool) *QueueUI {
	var p *mpb.Progress
	if isTerminal {
		p = mpb.New(
			mpb.WithOutput(out),
			mpb.WithRefreshRate(constants.ProgressRefreshRate),
			mpb.WithWidth(80),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}
	return &QueueUI{progress: p, out: out, isTerminal: isTerminal}
}

// Attach subscribes the UI to bus.
func (u *QueueUI) Attach(bus *events.EventBus) {
	bus.OnStarted(u.onStarted)
	bus.OnProgress(u.onProgress)
	bus.OnDone(u.onDone)
	bus.OnFailed(u.onFailed)
}

func (u *QueueUI) onStarted(e *events.StartedEvent) {
	u.mu.Lock()
	defer u.mu.Unlock()

	jb := &jobBar{label: e.Label, started: time.Now()}
	if u.isTerminal {
		pending := e.Pending
		jb.bar = u.progress.New(barScale,
			mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]"),
			mpb.PrependDecorators(
				decor.Any(func(decor.Statistics) string {
					if pending > 0 {
						return fmt.Sprintf("%s (+%d queued)", e.Label, pending)
					}
					return e.Label
				}, decor.WCSyncSpaceR),
			),
			mpb.AppendDecorators(
				decor.Percentage(decor.WCSyncSpace),
				decor.Name("  "),
				decor.Elapsed(decor.ET_STYLE_GO),
			),
			mpb.BarRemoveOnComplete(),
		)
	} else {
		fmt.Fprintf(u.out, "Started: %s\n", e.Label)
	}
	u.active = jb
}

func (u *QueueUI) onProgress(e *events.ProgressEvent) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.active == nil || u.active.bar == nil {
		return
	}
	u.active.bar.SetCurrent(int64(e.Fraction * barScale))
}

func (u *QueueUI) onDone(e *events.DoneEvent) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.done++
	elapsed := u.finishActive(true)
	u.println(fmt.Sprintf("✓ %s (%s)", e.Label, elapsed.Round(time.Millisecond)))
}

func (u *QueueUI) onFailed(e *events.FailedEvent) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.finishActive(false)
	if e.Aborted() {
		u.aborted++
		u.println(fmt.Sprintf("- %s (cancelled)", e.Label))
		return
	}
	u.failed++
	u.println(fmt.Sprintf("✗ %s: %s", e.Label, e.Message))
}

// finishActive completes or aborts the active bar.
func (u *QueueUI) finishActive(ok bool) time.Duration {
	jb := u.active
	u.active = nil
	if jb == nil {
		return 0
	}
	if jb.bar != nil {
		if ok {
			jb.bar.SetCurrent(barScale)
			jb.bar.SetTotal(barScale, true)
		} else {
			jb.bar.Abort(true)
		}
	}
	return time.Since(jb.started)
}

// println writes above the bars in terminal mode.
func (u *QueueUI) println(msg string) {
	if u.isTerminal {
		u.progress.Write([]byte(msg + "\n"))
		return
	}
	fmt.Fprintln(u.out, msg)
}

// Counts returns how many jobs finished in each outcome.
func (u *QueueUI) Counts() (done, failed, aborted int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.done, u.failed, u.aborted
}

// Wait blocks until every bar has completed and the renderer has stopped.
func (u *QueueUI) Wait() {
	u.progress.Wait()
}

// Writer returns an io.Writer that safely prints above the bars.
func (u *QueueUI) Writer() io.Writer {
	if u.isTerminal {
		return u.progress
	}
	return u.out
}

// IsTerminal returns whether bars are being drawn.
func (u *QueueUI) IsTerminal() bool {
	return u.isTerminal
}
