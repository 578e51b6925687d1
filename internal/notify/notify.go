// Package notify renders transient notifications from the event bus as
// one-line messages on a terminal.
package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/clouddrive/drive/internal/events"
	"github.com/clouddrive/drive/internal/logging"
)

// maxMessageLen bounds a rendered line, error detail included.
const maxMessageLen = 120

// Notifier prints NotificationEvents to a writer.
type Notifier struct {
	out     io.Writer
	logger  *logging.Logger
	enabled bool
	// ShowErrors appends the underlying error to error notifications.
	showErrors bool
	mu         sync.RWMutex
}

// Config holds notification configuration.
type Config struct {
	// Enabled determines if notifications are printed.
	Enabled bool

	// ShowErrors appends error details to failure notifications.
	ShowErrors bool
}

// DefaultConfig returns the default notification configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:    true,
		ShowErrors: false,
	}
}

// NewNotifier creates a notifier writing to out.
func NewNotifier(out io.Writer, cfg *Config, logger *logging.Logger) *Notifier {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Notifier{
		out:        out,
		logger:     logger,
		enabled:    cfg.Enabled,
		showErrors: cfg.ShowErrors,
	}
}

// SetEnabled enables or disables notifications.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// IsEnabled returns whether notifications are enabled.
func (n *Notifier) IsEnabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled
}

// Render formats one notification.
func (n *Notifier) Render(ev *events.NotificationEvent) string {
	var prefix string
	switch ev.Level {
	case events.LevelSuccess:
		prefix = "✓"
	case events.LevelError:
		prefix = "✗"
	default:
		prefix = "•"
	}
	msg := ev.Message
	if n.showErrors && ev.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, ev.Err)
	}
	return prefix + " " + truncate(msg, maxMessageLen)
}

// Show prints ev unless notifications are disabled.
func (n *Notifier) Show(ev *events.NotificationEvent) {
	if !n.IsEnabled() {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := fmt.Fprintln(n.out, n.Render(ev)); err != nil {
		n.logger.Warn().Err(err).Str("notification_id", ev.ID).Msg("Failed to print notification")
	}
}

// Run prints every notification published on bus until ctx is done or the
// bus is closed. Notifications already queued when ctx ends are still
// printed. It returns a function that waits for the loop to exit.
func (n *Notifier) Run(ctx context.Context, bus *events.EventBus) (wait func()) {
	ch := bus.Subscribe(events.EventNotification)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer bus.Unsubscribe(events.EventNotification, ch)
		for {
			select {
			case <-ctx.Done():
				n.drain(ch)
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if note, ok := ev.(*events.NotificationEvent); ok {
					n.Show(note)
				}
			}
		}
	}()

	return func() { <-done }
}

func (n *Notifier) drain(ch <-chan events.Event) {
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if note, ok := ev.(*events.NotificationEvent); ok {
				n.Show(note)
			}
		default:
			return
		}
	}
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
