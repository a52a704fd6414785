package remote

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestErrorHelpers(t *testing.T) {
	stop := errors.New("stop")
	aborted := &TransferAbortedError{Path: "/a", Err: stop}

	if !IsAborted(fmt.Errorf("job: %w", aborted)) {
		t.Error("IsAborted should see through wrapping")
	}
	if !errors.Is(aborted, stop) {
		t.Error("TransferAbortedError should unwrap to the callback error")
	}
	if !IsAlreadyExists(fmt.Errorf("put: %w", &AlreadyExistsError{Name: "x"})) {
		t.Error("IsAlreadyExists should see through wrapping")
	}
	if IsAlreadyExists(os.ErrExist) {
		t.Error("plain os.ErrExist is not an AlreadyExistsError")
	}

	connErr := &ConnectionError{Host: "h", Err: os.ErrDeadlineExceeded}
	if !errors.Is(connErr, os.ErrDeadlineExceeded) {
		t.Error("ConnectionError should unwrap")
	}
}

func TestJoinRemote(t *testing.T) {
	tests := []struct{ parent, name, want string }{
		{"/", "a", "/a"},
		{"", "a", "/a"},
		{"/data", "a", "/data/a"},
		{"/data/", "a", "/data/a"},
	}
	for _, tt := range tests {
		if got := joinRemote(tt.parent, tt.name); got != tt.want {
			t.Errorf("joinRemote(%q, %q) = %q, want %q", tt.parent, tt.name, got, tt.want)
		}
	}
}
