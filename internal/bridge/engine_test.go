package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/collab/internal/bus"
	"github.com/matheus3301/collab/internal/status"
	"github.com/matheus3301/collab/internal/store"
)

// fakeTransport loops nothing back; tests feed inbound payloads by hand.
type fakeTransport struct {
	mu         sync.Mutex
	published  [][]byte
	publishErr error

	receiveErrs int
	in          chan []byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{in: make(chan []byte, 16)}
}

func (f *fakeTransport) Publish(_ context.Context, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, payload)
	return nil
}

func (f *fakeTransport) Receive(context.Context) (<-chan []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.receiveErrs > 0 {
		f.receiveErrs--
		return nil, errors.New("connection refused")
	}
	return f.in, nil
}

func (f *fakeTransport) sent() []store.Change {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]store.Change, 0, len(f.published))
	for _, p := range f.published {
		var c store.Change
		_ = json.Unmarshal(p, &c)
		out = append(out, c)
	}
	return out
}

func testLive(t *testing.T, b *bus.Bus, origin string) *store.Live {
	t.Helper()
	db, err := store.Open(store.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return store.NewLive(db, b, origin)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestForwardsLocalChanges(t *testing.T) {
	b := bus.New()
	live := testLive(t, b, "node-a")
	tr := newFakeTransport()
	e := NewEngine(live, tr, nil, nil, nil)
	e.Start(context.Background())
	defer e.Stop()

	// Only changes tagged with the local origin leave the instance.
	live.Announce(store.Change{Table: store.TableMessages, Op: store.OpInsert, ChatID: "c1", Origin: "node-b"})
	live.Announce(store.Change{Table: store.TableMessages, Op: store.OpInsert, ChatID: "c1", RowID: "m1", Origin: "node-a"})

	waitFor(t, func() bool { return len(tr.sent()) == 1 })
	got := tr.sent()[0]
	if got.RowID != "m1" || got.Origin != "node-a" {
		t.Errorf("forwarded %+v", got)
	}
}

func TestAnnouncesRemoteChanges(t *testing.T) {
	b := bus.New()
	live := testLive(t, b, "node-a")
	tr := newFakeTransport()
	e := NewEngine(live, tr, nil, nil, nil)

	ch, unsub := b.Subscribe(store.MessagesTopic("c1"), 10)
	defer unsub()

	e.Start(context.Background())
	defer e.Stop()

	remote, _ := json.Marshal(store.Change{Table: store.TableMessages, Op: store.OpInsert, ChatID: "c1", RowID: "m9", Origin: "node-b"})
	tr.in <- remote

	select {
	case evt := <-ch:
		c := evt.Payload.(store.Change)
		if c.RowID != "m9" || c.Origin != "node-b" {
			t.Errorf("announced %+v", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("remote change not announced")
	}

	// A remote change must not be sent back out.
	time.Sleep(50 * time.Millisecond)
	if n := len(tr.sent()); n != 0 {
		t.Errorf("re-forwarded %d remote changes", n)
	}
}

func TestHandleDropsEchoesAndGarbage(t *testing.T) {
	b := bus.New()
	live := testLive(t, b, "node-a")
	e := NewEngine(live, newFakeTransport(), nil, nil, nil)

	echo, _ := json.Marshal(store.Change{Table: store.TableMessages, ChatID: "c1", Origin: "node-a"})
	noChat, _ := json.Marshal(store.Change{Table: store.TableMessages, Origin: "node-b"})
	tests := map[string][]byte{
		"echo":    echo,
		"no chat": noChat,
		"garbage": []byte("{"),
	}
	for name, payload := range tests {
		if e.handle(payload) {
			t.Errorf("%s: handled, want dropped", name)
		}
	}
}

func TestSubscribeFailureDegradesThenRecovers(t *testing.T) {
	b := bus.New()
	live := testLive(t, b, "node-a")
	m := status.NewMachine(b)
	if err := m.Transition(status.Ready); err != nil {
		t.Fatal(err)
	}

	changes, unsub := b.Subscribe(status.EventStatusChanged, 10)
	defer unsub()

	tr := newFakeTransport()
	tr.receiveErrs = 1
	e := NewEngine(live, tr, m, nil, nil)
	e.retryDelay = 10 * time.Millisecond
	e.Start(context.Background())
	defer e.Stop()

	for _, want := range []status.State{status.Degraded, status.Ready} {
		select {
		case evt := <-changes:
			if got := evt.Payload.(status.StatusChange).To; got != want {
				t.Fatalf("transition to %s, want %s", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("no transition to %s", want)
		}
	}
}

func TestPublishFailureDegrades(t *testing.T) {
	b := bus.New()
	live := testLive(t, b, "node-a")
	m := status.NewMachine(b)
	if err := m.Transition(status.Ready); err != nil {
		t.Fatal(err)
	}

	tr := newFakeTransport()
	tr.publishErr = errors.New("broken pipe")
	e := NewEngine(live, tr, m, nil, nil)
	e.Start(context.Background())
	defer e.Stop()

	live.Announce(store.Change{Table: store.TableChats, Op: store.OpInsert, ChatID: "c1", Origin: "node-a"})
	waitFor(t, func() bool { return m.Current() == status.Degraded })
}

func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("COLLAB_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("COLLAB_TEST_REDIS_ADDR not set")
	}
	channel := "collab.test." + t.Name()
	ctx := context.Background()

	busA, busB := bus.New(), bus.New()
	liveA := testLive(t, busA, "node-a")
	liveB := testLive(t, busB, "node-b")

	trA := NewRedisTransport(addr, channel)
	trB := NewRedisTransport(addr, channel)
	defer func() { _ = trA.Close() }()
	defer func() { _ = trB.Close() }()
	if err := trA.Ping(ctx); err != nil {
		t.Fatal(err)
	}

	a := NewEngine(liveA, trA, nil, nil, nil)
	bEng := NewEngine(liveB, trB, nil, nil, nil)
	a.Start(ctx)
	defer a.Stop()
	bEng.Start(ctx)
	defer bEng.Stop()

	ch, unsub := busB.Subscribe(store.MessagesTopic("c1"), 10)
	defer unsub()

	// Give both subscriptions time to be confirmed.
	time.Sleep(200 * time.Millisecond)
	liveA.Announce(store.Change{Table: store.TableMessages, Op: store.OpInsert, ChatID: "c1", RowID: "m1", Origin: "node-a"})

	select {
	case evt := <-ch:
		if c := evt.Payload.(store.Change); c.RowID != "m1" {
			t.Errorf("received %+v", c)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("change did not cross redis")
	}
}
