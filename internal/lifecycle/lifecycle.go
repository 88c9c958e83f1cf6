// Package lifecycle delivers foreground/background transitions of the host
// application to subscribers.
package lifecycle

import (
	"fmt"
	"sync"
)

// State is an application lifecycle state.
type State string

const (
	StateActive     State = "active"
	StateBackground State = "background"
	StateInactive   State = "inactive"
)

// ParseState converts a state name into a State.
func ParseState(s string) (State, error) {
	switch State(s) {
	case StateActive, StateBackground, StateInactive:
		return State(s), nil
	default:
		return "", fmt.Errorf("unknown lifecycle state: %s", s)
	}
}

// Source emits lifecycle transitions. Subscribe returns a function that
// removes the handler.
type Source interface {
	Subscribe(handler func(State)) (unsubscribe func())
}

// ManualSource is a Source driven by explicit Emit calls.
type ManualSource struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func(State)
}

// NewManualSource creates an empty ManualSource.
func NewManualSource() *ManualSource {
	return &ManualSource{handlers: make(map[int]func(State))}
}

// Subscribe registers handler.
func (m *ManualSource) Subscribe(handler func(State)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.handlers[id] = handler
	return func() {
		m.mu.Lock()
		delete(m.handlers, id)
		m.mu.Unlock()
	}
}

// Emit delivers state to every subscriber synchronously.
func (m *ManualSource) Emit(state State) {
	m.mu.Lock()
	handlers := make([]func(State), 0, len(m.handlers))
	for _, h := range m.handlers {
		handlers = append(handlers, h)
	}
	m.mu.Unlock()

	for _, h := range handlers {
		h(state)
	}
}

// Subscribers returns the number of registered handlers.
func (m *ManualSource) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}
