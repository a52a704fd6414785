// Package notify provides desktop notifications for transfer outcomes.
// It uses github.com/gen2brain/beeep for cross-platform notification support.
package notify

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/edith-sftp/edith/internal/events"
	"github.com/edith-sftp/edith/internal/logging"
)

// Notifier handles desktop notifications.
type Notifier struct {
	logger  *logging.Logger
	cfg     Config
	mu      sync.RWMutex
	sendFn  func(title, message string) error
	summary queueSummary
}

// Config holds notification configuration.
type Config struct {
	// Enabled determines if notifications are sent.
	Enabled bool

	// ShowTransferFailed shows a notification for each failed job.
	// Cancelled jobs never notify.
	ShowTransferFailed bool

	// ShowQueueComplete shows a summary when the queue drains.
	ShowQueueComplete bool
}

type queueSummary struct {
	done   int
	failed int
}

// DefaultConfig returns the default notification configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:            true,
		ShowTransferFailed: true,
		ShowQueueComplete:  false,
	}
}

// NewNotifier creates a new notifier with the given configuration.
func NewNotifier(cfg *Config, logger *logging.Logger) *Notifier {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Notifier{
		logger: logger,
		cfg:    *cfg,
		sendFn: func(title, message string) error {
			// Windows toast, macOS notification center, Linux D-Bus.
			return beeep.Notify(title, message, "")
		},
	}
}

// SetEnabled enables or disables notifications.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cfg.Enabled = enabled
}

// IsEnabled returns whether notifications are enabled.
func (n *Notifier) IsEnabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.cfg.Enabled
}

// TransferFailed sends a notification for a failed job.
func (n *Notifier) TransferFailed(label, errorMsg string) {
	if !n.IsEnabled() || !n.cfg.ShowTransferFailed {
		return
	}

	title := "Transfer Failed"
	message := fmt.Sprintf("%s\n%s", truncate(label, 60), truncate(errorMsg, 100))

	if err := n.send(title, message); err != nil {
		n.logger.Warn().Err(err).Str("label", label).Msg("Failed to send transfer failed notification")
	}
}

// DownloadComplete sends a notification naming where a file landed.
func (n *Notifier) DownloadComplete(remotePath, localPath string) {
	if !n.IsEnabled() {
		return
	}

	title := "Download Complete"
	message := fmt.Sprintf("%s saved to:\n%s", truncate(filepath.Base(remotePath), 40), shortenPath(localPath))

	if err := n.send(title, message); err != nil {
		n.logger.Warn().Err(err).Str("remote", remotePath).Msg("Failed to send download complete notification")
	}
}

// QueueComplete sends a summary once the queue has drained.
func (n *Notifier) QueueComplete(done, failed int) {
	if !n.IsEnabled() || !n.cfg.ShowQueueComplete || done+failed == 0 {
		return
	}

	title := "Transfers Finished"
	message := fmt.Sprintf("%d completed, %d failed.", done, failed)

	if err := n.send(title, message); err != nil {
		n.logger.Warn().Err(err).Msg("Failed to send queue complete notification")
	}
}

// Attach subscribes n to queue events on bus. Aborted jobs are counted
// as neither done nor failed and never notify.
func Attach(bus *events.EventBus, n *Notifier) {
	bus.OnDone(func(*events.DoneEvent) {
		n.mu.Lock()
		n.summary.done++
		n.mu.Unlock()
	})
	bus.OnFailed(func(e *events.FailedEvent) {
		if e.Aborted() {
			return
		}
		n.mu.Lock()
		n.summary.failed++
		n.mu.Unlock()
		n.TransferFailed(e.Label, e.Message)
	})
	bus.OnIdle(func(*events.IdleEvent) {
		n.mu.Lock()
		s := n.summary
		n.summary = queueSummary{}
		n.mu.Unlock()
		n.QueueComplete(s.done, s.failed)
	})
}

func (n *Notifier) send(title, message string) error {
	return n.sendFn(title, message)
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// shortenPath abbreviates a long path for display in notifications.
func shortenPath(path string) string {
	const maxLen = 60

	if len(path) <= maxLen {
		return path
	}

	_, file := filepath.Split(path)
	parentDir := filepath.Base(filepath.Dir(path))
	short := filepath.Join("...", parentDir, file)

	if len(short) > maxLen {
		return "..." + path[len(path)-(maxLen-3):]
	}
	return short
}
