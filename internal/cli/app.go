package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/spf13/afero"

	"github.com/edith-sftp/edith/internal/async"
	"github.com/edith-sftp/edith/internal/config"
	"github.com/edith-sftp/edith/internal/events"
	"github.com/edith-sftp/edith/internal/logging"
	"github.com/edith-sftp/edith/internal/loop"
	"github.com/edith-sftp/edith/internal/metrics"
	"github.com/edith-sftp/edith/internal/notify"
	"github.com/edith-sftp/edith/internal/progress"
	"github.com/edith-sftp/edith/internal/remote"
	"github.com/edith-sftp/edith/internal/staging"
	"github.com/edith-sftp/edith/internal/transfer"
)

// errCancelled is returned when the user interrupts a command.
var errCancelled = errors.New("cancelled")

// app wires the foreground loop, transfer queue, session and staging for
// one command invocation. Every field except the loop itself is touched
// only from the loop goroutine once run starts.
type app struct {
	ctx         context.Context
	cfg         *config.Config
	logger      *logging.Logger
	loop        *loop.Loop
	bus         *events.EventBus
	queue       *transfer.Queue
	ui          *progress.QueueUI
	stage       *staging.Stage
	notifier    *notify.Notifier // nil when notifications are off
	session     *remote.Session
	cwd         string
	editor      string
	outstanding int
	err         error
}

// runWithSession connects, then calls start on the loop goroutine. The
// command finishes once every queued job and async call started through
// the app has reported back.
func runWithSession(start func(a *app)) error {
	ctx := GetContext()
	log := GetLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	target, err := resolveTarget(cfg, conn)
	if err != nil {
		return err
	}
	if err := fillSecrets(&target, terminalPrompt); err != nil {
		return err
	}

	a := newApp(ctx, cfg, log)
	defer a.shutdown()

	stopMetrics := a.serveMetrics()
	defer stopMetrics()

	a.begin()
	a.loop.Post(func() {
		callAsync(a, "Connecting to "+target.label, func() (connected, error) {
			s, err := remote.Connect(ctx, target.options,
				remote.WithLogger(log.Named("remote")),
				remote.WithLocalFs(afero.NewOsFs()))
			if err != nil {
				return connected{}, explainConnectError(err)
			}
			log.Info().Str("endpoint", s.Endpoint()).Msg("Connected")
			cwd := target.initialDir
			if cwd == "" || cwd == "/" {
				if wd, err := s.WorkingDir(); err == nil && wd != "" {
					cwd = wd
				} else {
					cwd = "/"
				}
			}
			return connected{session: s, cwd: cwd}, nil
		}, func(c connected) {
			a.session = c.session
			a.cwd = c.cwd
			start(a)
		})
		a.end()
	})

	go a.watchInterrupt()

	a.loop.Run(context.Background())
	a.ui.Wait()

	done, failed, aborted := a.ui.Counts()
	log.Debug().Int("done", done).Int("failed", failed).Int("aborted", aborted).Msg("Command finished")
	return a.err
}

// explainConnectError adds a hint for errors the user can fix locally.
func explainConnectError(err error) error {
	switch {
	case remote.IsPassphraseMissing(err):
		return fmt.Errorf("%w: set %s or save the server with --auth key+passphrase", err, envKeyPassphrase)
	case remote.IsAuthentication(err):
		return fmt.Errorf("%w: use --key or set %s", err, envPassword)
	default:
		return err
	}
}

type connected struct {
	session *remote.Session
	cwd     string
}

func newApp(ctx context.Context, cfg *config.Config, log *logging.Logger) *app {
	l := loop.New()
	bus := events.NewEventBus()
	ui := progress.NewQueueUI()
	ui.Attach(bus)
	if ui.IsTerminal() {
		log.SetOutput(ui.Writer())
	}

	var notifier *notify.Notifier
	if notifyFlag || cfg.General.Notifications {
		notifier = notify.NewNotifier(notify.DefaultConfig(), log.Named("notify"))
		notify.Attach(bus, notifier)
	}

	return &app{
		notifier: notifier,
		ctx:      ctx,
		cfg:      cfg,
		logger:   log,
		loop:     l,
		bus:      bus,
		queue:    transfer.NewQueue(l, bus, log.Named("queue")),
		ui:       ui,
		stage:    staging.New(afero.NewOsFs(), staging.WithLogger(log.Named("staging"))),
		editor:   cfg.General.Editor,
	}
}

// begin and end bracket every outstanding piece of work. They run on the
// loop goroutine; the command ends when the count returns to zero.
func (a *app) begin() {
	a.outstanding++
}

func (a *app) end() {
	a.outstanding--
	if a.outstanding <= 0 {
		a.loop.Stop()
	}
}

// fail records the first error of the command.
func (a *app) fail(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, transfer.ErrAborted) {
		err = errCancelled
	}
	if a.err == nil {
		a.err = err
	}
}

// enqueue adds a job whose completion counts toward the command's end.
func (a *app) enqueue(label string, work transfer.WorkFunc, onSuccess func(any)) {
	a.begin()
	a.queue.Enqueue(label, work, func(v any) {
		if onSuccess != nil {
			onSuccess(v)
		}
		a.end()
	}, func(err error) {
		a.fail(err)
		a.end()
	})
}

// callAsync runs task off the loop with a spinner and delivers the result
// back on the loop.
func callAsync[T any](a *app, label string, task func() (T, error), onSuccess func(T)) {
	spinner := progress.StartSpinner(label)
	callAsyncQuiet(a, label, func() (T, error) {
		defer spinner.Stop()
		return task()
	}, onSuccess)
}

// callAsyncQuiet is callAsync without the spinner, for tasks that own the
// terminal (the editor).
func callAsyncQuiet[T any](a *app, label string, task func() (T, error), onSuccess func(T)) {
	a.begin()
	async.Run(a.loop, task, func(v T) {
		if onSuccess != nil {
			onSuccess(v)
		}
		a.end()
	}, func(err error) {
		a.fail(err)
		a.end()
	}, async.WithLogger(a.logger), async.WithLabel(label))
}

// watchInterrupt cancels transfers when the root context is cancelled.
// With no transfer running the command ends immediately.
func (a *app) watchInterrupt() {
	select {
	case <-a.ctx.Done():
	case <-a.loop.Done():
		return
	}
	a.loop.Post(func() {
		a.fail(errCancelled)
		if a.queue.Busy() {
			a.queue.CancelAll()
			return
		}
		a.loop.Stop()
	})
}

// shutdown releases the session and the scratch tree.
func (a *app) shutdown() {
	a.loop.Stop()
	if a.session != nil {
		if err := a.session.Close(); err != nil {
			a.logger.Debug().Err(err).Msg("Error closing session")
		}
	}
	if root := a.stage.Root(); root != "" {
		a.logger.Debug().Str("root", root).Msg("Removing staging directory")
	}
	if err := a.stage.Cleanup(); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to remove staging directory")
	}
}

// serveMetrics starts the Prometheus endpoint if one was requested.
func (a *app) serveMetrics() func() {
	addr := metricsAddr
	if addr == "" {
		addr = a.cfg.General.MetricsAddr
	}
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn().Err(err).Str("addr", addr).Msg("Metrics server stopped")
		}
	}()
	a.logger.Debug().Str("addr", addr).Msg("Serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

// abs resolves p against the session's starting directory.
func (a *app) abs(p string) string {
	return resolveRemote(a.cwd, p)
}

func resolveRemote(cwd, p string) string {
	if p == "" {
		return cwd
	}
	if path.IsAbs(p) {
		return path.Clean(p)
	}
	return path.Join(cwd, p)
}
