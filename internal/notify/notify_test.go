package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/clouddrive/drive/internal/events"
)

// syncBuffer is a bytes.Buffer safe for the notifier goroutine and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.Enabled {
		t.Error("Expected Enabled to be true by default")
	}
	if cfg.ShowErrors {
		t.Error("Expected ShowErrors to be false by default")
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
		{"abc", 3, "abc"},
		{"abcd", 3, "..."},
		{"ééééééé", 5, "éé..."},
	}

	for _, tt := range tests {
		result := truncate(tt.input, tt.maxLen)
		if result != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, result, tt.expected)
		}
	}
}

func TestRender(t *testing.T) {
	n := NewNotifier(&bytes.Buffer{}, nil, nil)

	got := n.Render(&events.NotificationEvent{Level: events.LevelSuccess, Message: "Renamed"})
	if got != "✓ Renamed" {
		t.Errorf("Render success = %q", got)
	}

	got = n.Render(&events.NotificationEvent{Level: events.LevelError, Message: "Delete failed", Err: errors.New("503")})
	if got != "✗ Delete failed" {
		t.Errorf("Render error = %q", got)
	}

	verbose := NewNotifier(&bytes.Buffer{}, &Config{Enabled: true, ShowErrors: true}, nil)
	got = verbose.Render(&events.NotificationEvent{Level: events.LevelError, Message: "Delete failed", Err: errors.New("503")})
	if got != "✗ Delete failed: 503" {
		t.Errorf("Render verbose error = %q", got)
	}
}

func TestShowDisabled(t *testing.T) {
	var out bytes.Buffer
	n := NewNotifier(&out, nil, nil)
	n.SetEnabled(false)

	n.Show(&events.NotificationEvent{Message: "hidden"})
	if out.Len() != 0 {
		t.Errorf("disabled notifier printed %q", out.String())
	}
	if n.IsEnabled() {
		t.Error("IsEnabled should be false")
	}
}

func TestRunPrintsBusNotifications(t *testing.T) {
	bus := events.NewEventBus(8)
	defer bus.Close()
	out := &syncBuffer{}
	n := NewNotifier(out, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	wait := n.Run(ctx, bus)

	bus.Notify(events.LevelInfo, "upload", "Uploaded to Home", nil)

	deadline := time.Now().Add(time.Second)
	for !strings.Contains(out.String(), "Uploaded to Home") {
		if time.Now().After(deadline) {
			t.Fatalf("notification not printed, output %q", out.String())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	wait()
}
