// Package events defines the transfer-queue lifecycle events and a listener
// registry that delivers them to subscribers in registration order.
package events

import (
	"sync"
	"time"

	"github.com/edith-sftp/edith/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventQueued   EventType = "transfer_queued"   // Job added to the queue
	EventStarted  EventType = "transfer_started"  // Job became active
	EventProgress EventType = "transfer_progress" // Percentage changed
	EventDone     EventType = "transfer_done"     // Job returned normally
	EventFailed   EventType = "transfer_failed"   // Job failed or was aborted
	EventIdle     EventType = "transfer_idle"     // Queue drained
)

// AbortedMessage is the failure message reported for cooperative cancellation.
// Listeners compare against it to tell a user abort from a real failure.
const AbortedMessage = "Aborted"

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

func newBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, Time: time.Now()}
}

// QueuedEvent is published synchronously by Enqueue.
type QueuedEvent struct {
	BaseEvent
	Label string
	JobID int64
}

// StartedEvent is published when a job becomes active.
// Pending counts jobs still waiting behind it.
type StartedEvent struct {
	BaseEvent
	Label   string
	JobID   int64
	Pending int
}

// ProgressEvent carries byte progress as a fraction in [0,1].
type ProgressEvent struct {
	BaseEvent
	Label    string
	Fraction float64
	Pending  int
}

// DoneEvent is published when a job's work returned without error.
type DoneEvent struct {
	BaseEvent
	Label string
}

// FailedEvent is published when a job failed; Message is AbortedMessage
// for cancellation, the error text otherwise.
type FailedEvent struct {
	BaseEvent
	Label   string
	Message string
}

// Aborted reports whether the failure was a user cancellation.
func (e *FailedEvent) Aborted() bool {
	return e.Message == AbortedMessage
}

// IdleEvent is published once the queue has drained.
type IdleEvent struct {
	BaseEvent
}

// NewQueued builds a queued event.
func NewQueued(label string, jobID int64) *QueuedEvent {
	return &QueuedEvent{BaseEvent: newBase(EventQueued), Label: label, JobID: jobID}
}

// NewStarted builds a started event.
func NewStarted(label string, jobID int64, pending int) *StartedEvent {
	return &StartedEvent{BaseEvent: newBase(EventStarted), Label: label, JobID: jobID, Pending: pending}
}

// NewProgress builds a progress event.
func NewProgress(label string, fraction float64, pending int) *ProgressEvent {
	return &ProgressEvent{BaseEvent: newBase(EventProgress), Label: label, Fraction: fraction, Pending: pending}
}

// NewDone builds a done event.
func NewDone(label string) *DoneEvent {
	return &DoneEvent{BaseEvent: newBase(EventDone), Label: label}
}

// NewFailed builds a failed event.
func NewFailed(label, message string) *FailedEvent {
	return &FailedEvent{BaseEvent: newBase(EventFailed), Label: label, Message: message}
}

// NewIdle builds an idle event.
func NewIdle() *IdleEvent {
	return &IdleEvent{BaseEvent: newBase(EventIdle)}
}

// Handler receives an event on the publishing goroutine.
type Handler func(Event)

// SubscriptionID identifies a registered handler for Unsubscribe.
type SubscriptionID uint64

type subscription struct {
	id      SubscriptionID
	handler Handler
}

// EventBus is a listener registry. Publish calls handlers synchronously
// in registration order, typed and catch-all handlers interleaved. The transfer queue only publishes from the
// foreground loop, so handlers always run there.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]subscription
	all         []subscription
	nextID      SubscriptionID
}

// NewEventBus creates an empty registry.
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]subscription),
	}
}

// Subscribe registers h for one event type.
func (eb *EventBus) Subscribe(eventType EventType, h Handler) SubscriptionID {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.nextID++
	subs := eb.subscribers[eventType]
	if subs == nil {
		subs = make([]subscription, 0, constants.EventBusInitialCapacity)
	}
	eb.subscribers[eventType] = append(subs, subscription{id: eb.nextID, handler: h})
	return eb.nextID
}

// SubscribeAll registers h for every event type.
func (eb *EventBus) SubscribeAll(h Handler) SubscriptionID {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.nextID++
	eb.all = append(eb.all, subscription{id: eb.nextID, handler: h})
	return eb.nextID
}

// Unsubscribe removes a handler. Order of the remaining handlers is kept.
func (eb *EventBus) Unsubscribe(id SubscriptionID) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for eventType, subs := range eb.subscribers {
		eb.subscribers[eventType] = removeSubscription(subs, id)
	}
	eb.all = removeSubscription(eb.all, id)
}

func removeSubscription(subs []subscription, id SubscriptionID) []subscription {
	for i, s := range subs {
		if s.id == id {
			return append(subs[:i:i], subs[i+1:]...)
		}
	}
	return subs
}

// Publish delivers event to all matching handlers.
// The handler list is snapshotted so handlers may (un)subscribe.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	typed := eb.subscribers[event.Type()]
	all := eb.all
	handlers := make([]Handler, 0, len(typed)+len(all))
	// Both lists are sorted by id; merge them.
	i, j := 0, 0
	for i < len(typed) || j < len(all) {
		if j >= len(all) || (i < len(typed) && typed[i].id < all[j].id) {
			handlers = append(handlers, typed[i].handler)
			i++
		} else {
			handlers = append(handlers, all[j].handler)
			j++
		}
	}
	eb.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

// OnQueued registers a typed handler for queued events.
func (eb *EventBus) OnQueued(fn func(*QueuedEvent)) SubscriptionID {
	return eb.Subscribe(EventQueued, func(e Event) { fn(e.(*QueuedEvent)) })
}

// OnStarted registers a typed handler for started events.
func (eb *EventBus) OnStarted(fn func(*StartedEvent)) SubscriptionID {
	return eb.Subscribe(EventStarted, func(e Event) { fn(e.(*StartedEvent)) })
}

// OnProgress registers a typed handler for progress events.
func (eb *EventBus) OnProgress(fn func(*ProgressEvent)) SubscriptionID {
	return eb.Subscribe(EventProgress, func(e Event) { fn(e.(*ProgressEvent)) })
}

// OnDone registers a typed handler for done events.
func (eb *EventBus) OnDone(fn func(*DoneEvent)) SubscriptionID {
	return eb.Subscribe(EventDone, func(e Event) { fn(e.(*DoneEvent)) })
}

// OnFailed registers a typed handler for failed events.
func (eb *EventBus) OnFailed(fn func(*FailedEvent)) SubscriptionID {
	return eb.Subscribe(EventFailed, func(e Event) { fn(e.(*FailedEvent)) })
}

// OnIdle registers a typed handler for idle events.
func (eb *EventBus) OnIdle(fn func(*IdleEvent)) SubscriptionID {
	return eb.Subscribe(EventIdle, func(e Event) { fn(e.(*IdleEvent)) })
}
