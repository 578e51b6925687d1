// Package tour implements the one-shot onboarding overlay shown on first use.
package tour

import (
	"sync"

	"github.com/clouddrive/drive/internal/events"
	"github.com/clouddrive/drive/internal/logging"
)

// Step is one page of the tour.
type Step struct {
	Title string
	Text  string
}

// Steps are shown in order; the last Advance finishes the tour.
var Steps = [...]Step{
	{Title: "Folders", Text: "Your folders are listed in the sidebar. Pick one to open it, or Home to go back to the top."},
	{Title: "Upload", Text: "Upload files into the folder you are looking at."},
	{Title: "File actions", Text: "Open, download, rename or delete any file from its row."},
}

// lastStep is the index at which Advance finishes.
const lastStep = len(Steps) - 1

// FlagStore persists the "seen" flag.
type FlagStore interface {
	TourSeen() (bool, error)
	MarkTourSeen() error
}

// Tour is the onboarding automaton: step in 0..2, visible, and the persisted
// seen flag. Thread-safe.
type Tour struct {
	store    FlagStore
	eventBus *events.EventBus
	logger   *logging.Logger

	mu      sync.Mutex
	mounted bool
	step    int
	visible bool
}

// New creates a tour over store.
func New(store FlagStore, eventBus *events.EventBus, logger *logging.Logger) *Tour {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Tour{store: store, eventBus: eventBus, logger: logger}
}

// Mount computes visibility: visible iff the seen flag is absent.
// Only the first call reads the flag; later calls return the current state.
func (t *Tour) Mount() bool {
	t.mu.Lock()
	if t.mounted {
		visible := t.visible
		t.mu.Unlock()
		return visible
	}
	t.mounted = true

	seen, err := t.store.TourSeen()
	if err != nil {
		t.logger.Warn().Err(err).Msg("Failed to read tour flag")
		seen = true
	}
	t.visible = !seen
	t.step = 0
	step, visible := t.step, t.visible
	t.mu.Unlock()

	t.publish(step, visible)
	return visible
}

// Advance moves to the next step; on the last step it finishes the tour.
func (t *Tour) Advance() error {
	t.mu.Lock()
	if !t.visible {
		t.mu.Unlock()
		return nil
	}
	if t.step >= lastStep {
		t.mu.Unlock()
		return t.Finish()
	}
	t.step++
	step := t.step
	t.mu.Unlock()

	t.publish(step, true)
	return nil
}

// Finish persists the seen flag, hides the overlay and resets the step.
func (t *Tour) Finish() error {
	err := t.store.MarkTourSeen()

	t.mu.Lock()
	t.visible = false
	t.step = 0
	t.mu.Unlock()

	t.publish(0, false)
	return err
}

// Skip is Finish from any step.
func (t *Tour) Skip() error {
	return t.Finish()
}

// State returns the current step index and visibility.
func (t *Tour) State() (step int, visible bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.step, t.visible
}

// Current returns the step being shown, if the tour is visible.
func (t *Tour) Current() (Step, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.visible {
		return Step{}, false
	}
	return Steps[t.step], true
}

func (t *Tour) publish(step int, visible bool) {
	if t.eventBus != nil {
		t.eventBus.PublishTour(step, visible)
	}
}
