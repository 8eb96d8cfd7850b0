// Package events publishes entity change notifications. Every create, update
// and removal of a user or boat becomes an EntityChanged event that is kept in
// a bounded ring buffer and handed to subscribers synchronously, in
// subscription order.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/marina/internal/logging"
)

// Action is the kind of change.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionRemoved Action = "removed"
)

// Entities.
const (
	EntityUsers = "users"
	EntityBoats = "boats"
)

// DefaultBufferSize is used when NewBus receives a non-positive size.
const DefaultBufferSize = 1000

// EntityChanged describes one change. Type is "<entity>.<action>".
type EntityChanged struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Entity    string    `json:"entity"`
	Action    Action    `json:"action"`
	EntityID  string    `json:"entityID,omitempty"`
	Count     int64     `json:"count,omitempty"`
	UserID    string    `json:"userID,omitempty"`
	TraceID   string    `json:"traceID,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// String returns the event as JSON.
func (e EntityChanged) String() string {
	data, _ := json.Marshal(e)
	return string(data)
}

// Handler processes events as they are published.
type Handler func(context.Context, EntityChanged)

// Publisher emits entity changes.
type Publisher interface {
	Publish(ctx context.Context, ev EntityChanged)
}

// Bus is a thread-safe ring buffer of events with synchronous subscribers.
type Bus struct {
	mu       sync.RWMutex
	events   []EntityChanged
	size     int
	head     int
	count    int
	handlers []handlerEntry
	nextID   int64
}

type handlerEntry struct {
	id      int64
	handler Handler
}

var _ Publisher = (*Bus)(nil)

// NewBus creates a bus retaining the last size events.
func NewBus(size int) *Bus {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Bus{
		events: make([]EntityChanged, size),
		size:   size,
	}
}

// Changed builds an event for entity and action.
func Changed(entity string, action Action, entityID string) EntityChanged {
	return EntityChanged{
		Type:     entity + "." + string(action),
		Entity:   entity,
		Action:   action,
		EntityID: entityID,
	}
}

// Publish records ev and notifies subscribers outside the lock. Missing id,
// timestamp, trace and user fields are filled from ctx.
func (b *Bus) Publish(ctx context.Context, ev EntityChanged) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if ev.Type == "" {
		ev.Type = ev.Entity + "." + string(ev.Action)
	}
	if ev.TraceID == "" {
		ev.TraceID = logging.GetTraceID(ctx)
	}
	if ev.UserID == "" {
		ev.UserID = logging.GetUserID(ctx)
	}

	b.mu.Lock()
	b.events[b.head] = ev
	b.head = (b.head + 1) % b.size
	if b.count < b.size {
		b.count++
	}
	handlers := make([]handlerEntry, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()

	for _, h := range handlers {
		h.handler(ctx, ev)
	}
}

// Subscribe registers a handler and returns a function that removes it.
func (b *Bus) Subscribe(handler Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers = append(b.handlers, handlerEntry{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, h := range b.handlers {
			if h.id == id {
				b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
				return
			}
		}
	}
}

// Recent returns the most recent n events, newest first.
func (b *Bus) Recent(n int) []EntityChanged {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 || b.count == 0 {
		return []EntityChanged{}
	}
	if n > b.count {
		n = b.count
	}

	result := make([]EntityChanged, n)
	for i := 0; i < n; i++ {
		idx := (b.head - 1 - i + b.size) % b.size
		result[i] = b.events[idx]
	}
	return result
}

// Count returns the number of retained events.
func (b *Bus) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// LogChanges returns a handler that logs every event at debug level.
func LogChanges(log *logging.Logger) Handler {
	return func(ctx context.Context, ev EntityChanged) {
		log.WithContext(ctx).WithFields(map[string]interface{}{
			"event":     ev.Type,
			"entity_id": ev.EntityID,
		}).Debug("Entity changed")
	}
}

// Noop discards events.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, EntityChanged) {}
