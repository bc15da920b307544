package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/collab/internal/bus"
)

// EventStatusChanged is the bus kind published on every transition.
const EventStatusChanged = "daemon.status_changed"

// State represents a daemon runtime state.
type State string

const (
	Booting  State = "BOOTING"
	Ready    State = "READY"
	Degraded State = "DEGRADED"
	Stopping State = "STOPPING"
	Error    State = "ERROR"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Booting:  {Ready, Degraded, Stopping, Error},
	Ready:    {Degraded, Stopping, Error},
	Degraded: {Ready, Stopping, Error},
	Error:    {Booting, Stopping},
	Stopping: {},
}

// Machine tracks and enforces daemon runtime state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	since   time.Time
	reason  string
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Booting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		since:   time.Now(),
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Snapshot returns the current state, when it was entered and the reason
// given for the last transition.
func (m *Machine) Snapshot() (State, time.Time, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.since, m.reason
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	return m.TransitionWithReason(to, "")
}

// TransitionWithReason is Transition with a human readable cause attached to
// the published event.
func (m *Machine) TransitionWithReason(to State, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	m.apply(to, reason)
	return nil
}

// Ensure moves to state to unless the machine is already there. It is used
// by health watchers that report the same condition repeatedly.
func (m *Machine) Ensure(to State, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == to {
		return nil
	}
	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	m.apply(to, reason)
	return nil
}

func (m *Machine) apply(to State, reason string) {
	from := m.current
	m.current = to
	m.since = time.Now()
	m.reason = reason
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      EventStatusChanged,
			Timestamp: m.since,
			Payload: StatusChange{
				From:   from,
				To:     to,
				Reason: reason,
			},
		})
	}
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From   State
	To     State
	Reason string
}
