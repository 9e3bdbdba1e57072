// Package events provides an in-process event source.
package events

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/Veraticus/not-idle/pkg/interfaces"
)

// Emitter is a named-event dispatcher that implements interfaces.EventSource.
// A handler subscribed twice to the same event is delivered to twice.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[string][]interfaces.Handler
}

// Ensure Emitter implements EventSource
var _ interfaces.EventSource = (*Emitter)(nil)

// NewEmitter creates an emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{
		handlers: make(map[string][]interfaces.Handler),
	}
}

// Subscribe registers h for event.
func (e *Emitter) Subscribe(event string, h interfaces.Handler) error {
	if h == nil {
		return fmt.Errorf("subscribe %q: nil handler", event)
	}
	if event == "" {
		return fmt.Errorf("subscribe: empty event name")
	}
	if !isComparable(h) {
		return fmt.Errorf("subscribe %q: handler type %T is not comparable", event, h)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handlers == nil {
		e.handlers = make(map[string][]interfaces.Handler)
	}
	e.handlers[event] = append(e.handlers[event], h)
	return nil
}

// Unsubscribe removes one registration of h for event.
// Removing a handler that is not registered is not an error.
func (e *Emitter) Unsubscribe(event string, h interfaces.Handler) error {
	if h == nil {
		return fmt.Errorf("unsubscribe %q: nil handler", event)
	}
	if !isComparable(h) {
		return fmt.Errorf("unsubscribe %q: handler type %T is not comparable", event, h)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	list := e.handlers[event]
	for i, registered := range list {
		if registered == h {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(e.handlers, event)
	} else {
		e.handlers[event] = list
	}
	return nil
}

// Emit delivers event to every current subscriber, in subscription order.
// Handlers run on the caller's goroutine, outside the emitter's lock.
func (e *Emitter) Emit(event string) {
	e.mu.RLock()
	list := e.handlers[event]
	snapshot := make([]interfaces.Handler, len(list))
	copy(snapshot, list)
	e.mu.RUnlock()

	for _, h := range snapshot {
		h.HandleEvent(event)
	}
}

// Subscribers returns how many registrations exist for event.
func (e *Emitter) Subscribers(event string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers[event])
}

// Total returns the number of registrations across all events.
func (e *Emitter) Total() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	total := 0
	for _, list := range e.handlers {
		total += len(list)
	}
	return total
}

// isComparable reports whether h can be matched with ==, which Unsubscribe needs.
func isComparable(h interfaces.Handler) bool {
	return reflect.TypeOf(h).Comparable()
}
