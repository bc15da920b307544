package channel

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheus3301/collab/internal/bus"
	"github.com/matheus3301/collab/internal/store"
)

type fixture struct {
	live   *store.Live
	bus    *bus.Bus
	ch     *Channel
	chatID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := store.Open(store.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	_, err = db.Migrate()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	for _, u := range []store.User{
		{ID: "brand1-id", Username: "brand1", Avatar: "https://ui-avatars.com/api/?name=Brand+Company", IsVisible: true},
		{ID: "influencer1-id", Username: "influencer1", IsVisible: true},
	} {
		_, err := db.PutUser(ctx, &u)
		require.NoError(t, err)
	}
	b := bus.New()
	live := store.NewLive(db, b, "test")
	c, _, err := live.CreateChat(ctx, "brand1-id", "influencer1-id")
	require.NoError(t, err)

	return &fixture{live: live, bus: b, ch: New(live, live, nil, 0, nil), chatID: c.ID}
}

// snapshots collects callback invocations.
type snapshots chan []store.Message

func (s snapshots) record(msgs []store.Message) { s <- msgs }

func (s snapshots) next(t *testing.T) []store.Message {
	t.Helper()
	select {
	case msgs := <-s:
		return msgs
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for snapshot")
		return nil
	}
}

// until waits for a snapshot satisfying ok, skipping intermediate ones.
func (s snapshots) until(t *testing.T, ok func([]store.Message) bool) []store.Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msgs := <-s:
			if ok(msgs) {
				return msgs
			}
		case <-deadline:
			t.Fatal("timeout waiting for matching snapshot")
			return nil
		}
	}
}

func contents(msgs []store.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

// countingStore counts store calls to prove validation happens first.
type countingStore struct {
	Store
	calls atomic.Int32
}

func (c *countingStore) GetChat(ctx context.Context, id string) (*store.Chat, error) {
	c.calls.Add(1)
	return c.Store.GetChat(ctx, id)
}

func (c *countingStore) InsertMessage(ctx context.Context, m *store.Message) (*store.Message, error) {
	c.calls.Add(1)
	return c.Store.InsertMessage(ctx, m)
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t)
	cs := &countingStore{Store: f.live}
	ch := New(cs, f.live, nil, 0, nil)
	ctx := context.Background()

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := ch.Send(ctx, f.chatID, "brand1-id", content)
		assert.ErrorIs(t, err, ErrInvalidMessage, "content %q", content)
	}
	_, err := ch.Send(ctx, "", "brand1-id", "hi")
	assert.ErrorIs(t, err, ErrInvalidMessage)
	_, err = ch.Send(ctx, f.chatID, " ", "hi")
	assert.ErrorIs(t, err, ErrInvalidMessage)
	assert.Zero(t, cs.calls.Load(), "validation must not reach the store")

	msg, err := ch.Send(ctx, f.chatID, "brand1-id", "  hi ")
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Content)
	assert.NotEmpty(t, msg.ID)
	assert.NotZero(t, msg.CreatedAt)
	assert.False(t, msg.IsRead)

	history, err := ch.History(ctx, f.chatID)
	require.NoError(t, err)
	assert.Equal(t, []string{"hi"}, contents(history))
}

func TestSendUnknownChat(t *testing.T) {
	f := newFixture(t)

	_, err := f.ch.Send(context.Background(), "no-such-chat", "brand1-id", "hello")
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestSendTouchesChat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before, err := f.live.GetChat(ctx, f.chatID)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	msg, err := f.ch.Send(ctx, f.chatID, "brand1-id", "Hello!")
	require.NoError(t, err)

	after, err := f.live.GetChat(ctx, f.chatID)
	require.NoError(t, err)
	assert.Greater(t, after.UpdatedAt, before.UpdatedAt)
	assert.Equal(t, msg.CreatedAt, after.UpdatedAt)
}

// touchFailStore fails the secondary activity update.
type touchFailStore struct{ *store.Live }

func (touchFailStore) TouchChat(context.Context, string, int64) (bool, error) {
	return false, errors.New("timeout")
}

func TestSendSurvivesTouchFailure(t *testing.T) {
	f := newFixture(t)
	ch := New(touchFailStore{f.live}, f.live, nil, 0, nil)

	msg, err := ch.Send(context.Background(), f.chatID, "brand1-id", "still delivered")
	require.NoError(t, err)
	assert.Equal(t, "still delivered", msg.Content)
}

func TestSubscribeDeliversExistingHistoryFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, text := range []string{"one", "two", "three"} {
		_, err := f.ch.Send(ctx, f.chatID, "brand1-id", text)
		require.NoError(t, err)
	}

	got := make(snapshots, 16)
	sub, err := f.ch.Subscribe(ctx, f.chatID, got.record)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	// The first snapshot is delivered before Subscribe returns.
	require.Len(t, got, 1)
	first := got.next(t)
	assert.Equal(t, []string{"one", "two", "three"}, contents(first))
	assert.Equal(t, "brand1", first[0].SenderName)
	assert.Equal(t, "https://ui-avatars.com/api/?name=Brand+Company", first[0].SenderAvatar)
}

func TestSubscribeSeesNewMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.ch.Send(ctx, f.chatID, "influencer1-id", "hey")
	require.NoError(t, err)

	got := make(snapshots, 16)
	sub, err := f.ch.Subscribe(ctx, f.chatID, got.record)
	require.NoError(t, err)
	defer sub.Unsubscribe()
	got.next(t)

	_, err = f.ch.Send(ctx, f.chatID, "brand1-id", "Hello!")
	require.NoError(t, err)

	msgs := got.until(t, func(m []store.Message) bool { return len(m) == 2 })
	assert.Equal(t, []string{"hey", "Hello!"}, contents(msgs))
}

func TestSubscribeSeesReadUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.ch.Send(ctx, f.chatID, "influencer1-id", "unread")
	require.NoError(t, err)

	got := make(snapshots, 16)
	sub, err := f.ch.Subscribe(ctx, f.chatID, got.record)
	require.NoError(t, err)
	defer sub.Unsubscribe()
	assert.False(t, got.next(t)[0].IsRead)

	n, err := f.ch.MarkRead(ctx, f.chatID, "brand1-id")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got.until(t, func(m []store.Message) bool { return len(m) == 1 && m[0].IsRead })
}

func TestUnsubscribeSilencesCallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got := make(snapshots, 16)
	sub, err := f.ch.Subscribe(ctx, f.chatID, got.record)
	require.NoError(t, err)
	got.next(t)

	sub.Unsubscribe()
	sub.Unsubscribe()
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription did not stop")
	}
	assert.Zero(t, f.bus.Subscribers(), "feed subscription must be released")

	_, err = f.ch.Send(ctx, f.chatID, "brand1-id", "after unsubscribe")
	require.NoError(t, err)

	select {
	case msgs := <-got:
		t.Fatalf("callback after unsubscribe: %v", contents(msgs))
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNoCallbackStartsAfterConcurrentUnsubscribe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	change := store.Change{Table: store.TableMessages, ChatID: f.chatID, Op: store.OpInsert}

	var late atomic.Int32
	for i := 0; i < 200; i++ {
		var returned atomic.Bool
		sub, err := f.ch.Subscribe(ctx, f.chatID, func([]store.Message) {
			if returned.Load() {
				late.Add(1)
			}
		})
		require.NoError(t, err)

		stop := make(chan struct{})
		go func() {
			for {
				select {
				case <-stop:
					return
				default:
					f.bus.Publish(bus.Event{Kind: change.Kind(), Timestamp: time.Now(), Payload: change})
				}
			}
		}()

		unsubscribed := make(chan struct{})
		go func() {
			defer close(unsubscribed)
			time.Sleep(time.Duration(i%5) * 100 * time.Microsecond)
			sub.Unsubscribe()
			returned.Store(true)
		}()

		<-unsubscribed
		select {
		case <-sub.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("subscription did not stop")
		}
		close(stop)
	}
	assert.Zero(t, late.Load(), "callback started after Unsubscribe returned")
}

func TestSubscriptionsAreIndependent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := make(snapshots, 16)
	second := make(snapshots, 16)
	s1, err := f.ch.Subscribe(ctx, f.chatID, first.record)
	require.NoError(t, err)
	s2, err := f.ch.Subscribe(ctx, f.chatID, second.record)
	require.NoError(t, err)
	defer s2.Unsubscribe()
	first.next(t)
	second.next(t)

	s1.Unsubscribe()
	_, err = f.ch.Send(ctx, f.chatID, "brand1-id", "only for s2")
	require.NoError(t, err)

	msgs := second.until(t, func(m []store.Message) bool { return len(m) == 1 })
	assert.Equal(t, "only for s2", msgs[0].Content)
	select {
	case <-first:
		t.Fatal("cancelled subscription received a snapshot")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeScopedToChat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.live.PutUser(ctx, &store.User{ID: "demo-id", Username: "demo_user", IsVisible: true})
	require.NoError(t, err)
	other, _, err := f.live.CreateChat(ctx, "brand1-id", "demo-id")
	require.NoError(t, err)

	got := make(snapshots, 16)
	sub, err := f.ch.Subscribe(ctx, f.chatID, got.record)
	require.NoError(t, err)
	defer sub.Unsubscribe()
	got.next(t)

	_, err = f.ch.Send(ctx, other.ID, "brand1-id", "elsewhere")
	require.NoError(t, err)
	select {
	case msgs := <-got:
		t.Fatalf("snapshot for unrelated chat: %v", contents(msgs))
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribeCoalescesBursts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	release := make(chan struct{})
	var calls atomic.Int32
	got := make(snapshots, 64)
	sub, err := f.ch.Subscribe(ctx, f.chatID, func(msgs []store.Message) {
		if calls.Add(1) == 2 {
			<-release
		}
		got <- msgs
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()
	got.next(t)

	// The first refresh blocks in the callback while ten more events queue up.
	for i := 0; i < 10; i++ {
		_, err := f.ch.Send(ctx, f.chatID, "brand1-id", "burst")
		require.NoError(t, err)
	}
	close(release)

	got.until(t, func(m []store.Message) bool { return len(m) == 10 })
	assert.Less(t, int(calls.Load()), 12, "bursts must be coalesced")
}

func TestSubscribeEndsWithContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	got := make(snapshots, 16)
	sub, err := f.ch.Subscribe(ctx, f.chatID, got.record)
	require.NoError(t, err)
	got.next(t)

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription survived context cancellation")
	}
	assert.Zero(t, f.bus.Subscribers())
}

func TestUnsubscribeFromCallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var sub *Subscription
	var calls atomic.Int32
	ready := make(chan struct{})
	s, err := f.ch.Subscribe(ctx, f.chatID, func([]store.Message) {
		if calls.Add(1) > 1 {
			<-ready
			sub.Unsubscribe()
		}
	})
	require.NoError(t, err)
	sub = s
	close(ready)

	_, err = f.ch.Send(ctx, f.chatID, "brand1-id", "trigger")
	require.NoError(t, err)

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("unsubscribe from callback did not stop the subscription")
	}
}

// flakyStore fails history reads once armed.
type flakyStore struct {
	*store.Live
	fail atomic.Bool
}

func (s *flakyStore) ListMessages(ctx context.Context, chatID string) ([]store.Message, error) {
	if s.fail.Load() {
		return nil, errors.New("backend unavailable")
	}
	return s.Live.ListMessages(ctx, chatID)
}

func TestRefreshFailureKeepsSubscription(t *testing.T) {
	f := newFixture(t)
	fs := &flakyStore{Live: f.live}
	ch := New(fs, f.live, nil, 0, nil)
	ctx := context.Background()

	got := make(snapshots, 16)
	sub, err := ch.Subscribe(ctx, f.chatID, got.record)
	require.NoError(t, err)
	defer sub.Unsubscribe()
	got.next(t)

	fs.fail.Store(true)
	_, err = f.ch.Send(ctx, f.chatID, "brand1-id", "lost refresh")
	require.NoError(t, err)
	select {
	case <-got:
		t.Fatal("failed refresh must not invoke the callback")
	case <-time.After(100 * time.Millisecond):
	}

	fs.fail.Store(false)
	_, err = f.ch.Send(ctx, f.chatID, "brand1-id", "recovered")
	require.NoError(t, err)
	msgs := got.until(t, func(m []store.Message) bool { return len(m) == 2 })
	assert.Equal(t, []string{"lost refresh", "recovered"}, contents(msgs))
}

func TestSubscribeInitialFetchFailure(t *testing.T) {
	f := newFixture(t)
	fs := &flakyStore{Live: f.live}
	fs.fail.Store(true)

	_, err := New(fs, f.live, nil, 0, nil).Subscribe(context.Background(), f.chatID, func([]store.Message) {})
	assert.Error(t, err)
	assert.Zero(t, f.bus.Subscribers(), "failed setup must release the feed")
}

func TestMarkReadRequiresParticipant(t *testing.T) {
	f := newFixture(t)

	_, err := f.ch.MarkRead(context.Background(), f.chatID, "stranger")
	assert.ErrorIs(t, err, ErrNotParticipant)
	_, err = f.ch.MarkRead(context.Background(), "missing", "brand1-id")
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestHistoryUnknownChat(t *testing.T) {
	f := newFixture(t)

	_, err := f.ch.History(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrChatNotFound)
}
