package notify

import (
	"testing"

	"github.com/edith-sftp/edith/internal/events"
)

type sent struct{ title, message string }

func newTestNotifier(cfg *Config) (*Notifier, *[]sent) {
	var out []sent
	n := NewNotifier(cfg, nil)
	n.sendFn = func(title, message string) error {
		out = append(out, sent{title, message})
		return nil
	}
	return n, &out
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.Enabled {
		t.Error("Expected Enabled to be true by default")
	}
	if !cfg.ShowTransferFailed {
		t.Error("Expected ShowTransferFailed to be true by default")
	}
	if cfg.ShowQueueComplete {
		t.Error("Expected ShowQueueComplete to be false by default")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly10c", 10, "exactly10c"},
		{"this is a long string", 10, "this is..."},
		{"", 10, ""},
		{"abcd", 3, "..."},
	}

	for _, tt := range tests {
		result := truncate(tt.input, tt.maxLen)
		if result != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, result, tt.expected)
		}
	}
}

func TestShortenPath(t *testing.T) {
	long := "/a/very/long/path/that/exceeds/the/maximum/length/for/notification/display/file.txt"
	if got := shortenPath(long); len(got) >= len(long) {
		t.Errorf("shortenPath(%q) was not shortened: %q", long, got)
	}
	if got := shortenPath("/short/path"); got != "/short/path" {
		t.Errorf("short path changed: %q", got)
	}
}

func TestAttachSkipsAborted(t *testing.T) {
	n, out := newTestNotifier(DefaultConfig())
	bus := events.NewEventBus()
	Attach(bus, n)

	bus.Publish(events.NewFailed("upload a.txt", events.AbortedMessage))
	if len(*out) != 0 {
		t.Fatalf("aborted job must not notify, got %v", *out)
	}

	bus.Publish(events.NewFailed("upload b.txt", "permission denied"))
	if len(*out) != 1 || (*out)[0].title != "Transfer Failed" {
		t.Fatalf("expected one failure notification, got %v", *out)
	}
}

func TestAttachQueueSummary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ShowTransferFailed = false
	cfg.ShowQueueComplete = true
	n, out := newTestNotifier(cfg)
	bus := events.NewEventBus()
	Attach(bus, n)

	bus.Publish(events.NewDone("a"))
	bus.Publish(events.NewDone("b"))
	bus.Publish(events.NewFailed("c", "boom"))
	bus.Publish(events.NewFailed("d", events.AbortedMessage))
	bus.Publish(events.NewIdle())

	if len(*out) != 1 {
		t.Fatalf("expected a single summary, got %v", *out)
	}
	if (*out)[0].message != "2 completed, 1 failed." {
		t.Errorf("unexpected summary %q", (*out)[0].message)
	}

	// Counters reset after idle.
	bus.Publish(events.NewIdle())
	if len(*out) != 1 {
		t.Errorf("empty batch should not notify, got %v", *out)
	}
}

func TestDisabledNotifierIsSilent(t *testing.T) {
	n, out := newTestNotifier(DefaultConfig())
	n.SetEnabled(false)

	n.TransferFailed("x", "y")
	n.DownloadComplete("/r/x", "/l/x")
	n.QueueComplete(3, 0)

	if len(*out) != 0 {
		t.Errorf("disabled notifier sent %v", *out)
	}
	if n.IsEnabled() {
		t.Error("IsEnabled should report false")
	}
}
