// Package events provides the in-process event bus connecting the browser
// controller to whatever front end renders it.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/clouddrive/drive/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventNotification  EventType = "notification"   // user-visible toast
	EventPhaseChanged  EventType = "phase_changed"  // controller state machine transition
	EventTourChanged   EventType = "tour_changed"   // onboarding overlay step/visibility
	EventSessionDenied EventType = "session_denied" // guard rejected a navigation
)

// Level is the severity of a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelSuccess:
		return "SUCCESS"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// NotificationEvent is a transient message shown to the user.
type NotificationEvent struct {
	BaseEvent
	ID      string
	Level   Level
	Op      string // "upload", "rename", "open", ...
	Message string
	Err     error
}

// PhaseChangedEvent reports a controller transition (Idle, Loading, Ready, Mutating).
type PhaseChangedEvent struct {
	BaseEvent
	Old string
	New string
}

// TourChangedEvent reports the onboarding overlay state.
type TourChangedEvent struct {
	BaseEvent
	Step    int
	Visible bool
}

// SessionDeniedEvent is published when the session guard refuses entry.
type SessionDeniedEvent struct {
	BaseEvent
	Reason string
}

// EventBus manages event subscriptions and publishing
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event // Subscribers to all events
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64 // Count of dropped events due to full buffers
}

// NewEventBus creates a new event bus with specified buffer size
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		all:         make([]chan Event, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers without blocking.
// Events for a full subscriber are dropped and counted.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}

	for _, ch := range eb.all {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}
}

// Close shuts down the event bus and closes all channels
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}

	for _, ch := range eb.all {
		close(ch)
	}
}

// Notify publishes a notification event and returns its ID.
func (eb *EventBus) Notify(level Level, op, message string, err error) string {
	id := uuid.NewString()
	eb.Publish(&NotificationEvent{
		BaseEvent: BaseEvent{
			EventType: EventNotification,
			Time:      time.Now(),
		},
		ID:      id,
		Level:   level,
		Op:      op,
		Message: message,
		Err:     err,
	})
	return id
}

// PublishPhase is a convenience method for publishing phase transitions
func (eb *EventBus) PublishPhase(oldPhase, newPhase string) {
	eb.Publish(&PhaseChangedEvent{
		BaseEvent: BaseEvent{
			EventType: EventPhaseChanged,
			Time:      time.Now(),
		},
		Old: oldPhase,
		New: newPhase,
	})
}

// PublishTour reports the onboarding overlay state.
func (eb *EventBus) PublishTour(step int, visible bool) {
	eb.Publish(&TourChangedEvent{
		BaseEvent: BaseEvent{
			EventType: EventTourChanged,
			Time:      time.Now(),
		},
		Step:    step,
		Visible: visible,
	})
}

// PublishSessionDenied reports a guard rejection.
func (eb *EventBus) PublishSessionDenied(reason string) {
	eb.Publish(&SessionDeniedEvent{
		BaseEvent: BaseEvent{
			EventType: EventSessionDenied,
			Time:      time.Now(),
		},
		Reason: reason,
	})
}

// Unsubscribe removes a subscription channel from a specific event type
func (eb *EventBus) Unsubscribe(eventType EventType, ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	subscribers := eb.subscribers[eventType]
	for i, subCh := range subscribers {
		if subCh == ch {
			subscribers[i] = subscribers[len(subscribers)-1]
			eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
			break
		}
	}
}

// UnsubscribeAll removes a subscription channel from all event types
func (eb *EventBus) UnsubscribeAll(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	for eventType, subscribers := range eb.subscribers {
		for i, subCh := range subscribers {
			if subCh == ch {
				subscribers[i] = subscribers[len(subscribers)-1]
				eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
				break
			}
		}
	}

	for i, subCh := range eb.all {
		if subCh == ch {
			eb.all[i] = eb.all[len(eb.all)-1]
			eb.all = eb.all[:len(eb.all)-1]
			break
		}
	}
}

// GetDroppedEventCount returns the total number of events dropped due to full buffers
func (eb *EventBus) GetDroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}
