// Package events carries record mutation events between the CRUD services
// and their observers (the websocket change feed, metrics, audit logs).
package events

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Actions published by the CRUD services.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Event represents a published event.
type Event struct {
	// Name is "{module}.{action}", e.g. "nhan_su.created".
	Name string `json:"name"`

	Module string `json:"module"`
	Action string `json:"action"`

	// IDs are the affected record ids.
	IDs []int64 `json:"ids,omitempty"`

	// Data is the stored record for creates and updates.
	Data map[string]any `json:"data,omitempty"`
}

// NewEvent builds an event named after module and action.
func NewEvent(module, action string, data map[string]any, ids ...int64) Event {
	return Event{
		Name:   module + "." + action,
		Module: module,
		Action: action,
		IDs:    ids,
		Data:   data,
	}
}

// Handler is a function that processes an event.
type Handler func(ctx context.Context, event Event) error

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is a simple publish/subscribe event bus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]subscription
	nextID   uint64
	logger   zerolog.Logger
}

// NewBus creates a new event bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]subscription),
		logger:   logger,
	}
}

// Subscribe registers a handler and returns a function that removes it.
// Supports wildcard subscriptions:
//   - "nhan_su.created" - exact match
//   - "nhan_su.*" - all events of a module
//   - "*" - all events
func (b *Bus) Subscribe(event string, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[event] = append(b.handlers[event], subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(event, id) })
	}
}

func (b *Bus) remove(event string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[event]
	for i, s := range subs {
		if s.id == id {
			b.handlers[event] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.handlers[event]) == 0 {
		delete(b.handlers, event)
	}
}

// Publish emits an event to all matching handlers.
// Handlers are called synchronously in registration order, exact matches
// first. Handler errors are logged and do not stop delivery.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	var matched []Handler
	for _, key := range matchKeys(event.Name) {
		for _, s := range b.handlers[key] {
			matched = append(matched, s.handler)
		}
	}
	b.mu.RUnlock()

	b.logger.Debug().
		Str("event", event.Name).
		Str("module", event.Module).
		Str("ids", joinIDs(event.IDs)).
		Int("handlers", len(matched)).
		Msg("event emitted")

	for _, handler := range matched {
		if err := handler(ctx, event); err != nil {
			b.logger.Error().
				Err(err).
				Str("event", event.Name).
				Msg("event handler error")
		}
	}
}

// PublishAsync emits an event asynchronously.
// The function returns immediately; handlers run in a goroutine.
func (b *Bus) PublishAsync(ctx context.Context, event Event) {
	go b.Publish(context.WithoutCancel(ctx), event)
}

// HasSubscribers checks if any handlers are registered for an event.
func (b *Bus) HasSubscribers(event string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, key := range matchKeys(event) {
		if len(b.handlers[key]) > 0 {
			return true
		}
	}
	return false
}

// matchKeys lists the subscription keys an event name matches.
func matchKeys(name string) []string {
	keys := []string{name}
	if module, _, ok := strings.Cut(name, "."); ok && module != "" {
		keys = append(keys, module+".*")
	}
	if name != "*" {
		keys = append(keys, "*")
	}
	return keys
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
