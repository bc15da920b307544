package status

import (
	"testing"
	"time"

	"github.com/matheus3301/collab/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Booting {
		t.Errorf("initial state = %s, want BOOTING", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Booting, Ready},
		{Booting, Degraded},
		{Booting, Error},
		{Ready, Degraded},
		{Degraded, Ready},
		{Ready, Stopping},
		{Degraded, Stopping},
		{Error, Booting},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Stopping)
	if err := m.Transition(Ready); err == nil {
		t.Error("Transition(STOPPING -> READY) should fail")
	}
	if m.Current() != Stopping {
		t.Errorf("state = %s, want STOPPING (should not have changed)", m.Current())
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("daemon.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.TransitionWithReason(Degraded, "redis unreachable"); err != nil {
		t.Fatal(err)
	}

	select {
	case evt := <-ch:
		if evt.Kind != EventStatusChanged {
			t.Errorf("event kind = %q, want %s", evt.Kind, EventStatusChanged)
		}
		change, ok := evt.Payload.(StatusChange)
		if !ok {
			t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
		}
		if change.From != Booting || change.To != Degraded || change.Reason != "redis unreachable" {
			t.Errorf("change = %+v", change)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for status event")
	}
}

// TestEnsureIsIdempotent verifies repeated health reports do not flood the
// bus with duplicate transitions.
func TestEnsureIsIdempotent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("daemon.", 10)
	defer unsub()

	m := NewMachine(b)
	walkTo(t, m, Ready)
	<-ch

	for i := 0; i < 3; i++ {
		if err := m.Ensure(Degraded, "flaky"); err != nil {
			t.Fatal(err)
		}
	}
	if got := len(ch); got != 1 {
		t.Errorf("got %d events, want 1", got)
	}

	state, since, reason := m.Snapshot()
	if state != Degraded || reason != "flaky" || since.IsZero() {
		t.Errorf("Snapshot() = %s %v %q", state, since, reason)
	}
}

// TestDegradeRecoverCycle walks the lifecycle of a daemon whose cross-instance
// feed drops and comes back: BOOTING → READY → DEGRADED → READY → STOPPING
func TestDegradeRecoverCycle(t *testing.T) {
	m := NewMachine(nil)

	for _, s := range []State{Ready, Degraded, Ready, Stopping} {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.Current() != Stopping {
		t.Errorf("final state = %s, want STOPPING", m.Current())
	}
}

// walkTo is a helper that transitions the machine to a target state.
func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		Booting:  {},
		Ready:    {Ready},
		Degraded: {Degraded},
		Stopping: {Stopping},
		Error:    {Error},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walkTo(%s): %v", target, err)
		}
	}
}
