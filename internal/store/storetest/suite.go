// Package storetest holds a behavioural suite every row store driver must
// pass.
package storetest

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheus3301/collab/internal/store"
)

// Run exercises users, chats, messages and the outbox against a migrated
// store. open must return a clean or shared database; the suite only relies
// on rows it creates itself.
func Run(t *testing.T, open func(t *testing.T) *store.DB) {
	t.Helper()

	db := open(t)
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	alice, err := db.PutUser(ctx, &store.User{
		Username:  "alice_" + suffix,
		Email:     "alice_" + suffix + "@example.test",
		Role:      "influencer",
		IsVisible: true,
		Interests: []string{"fashion", "travel"},
	})
	require.NoError(t, err)
	require.NotNil(t, alice)
	assert.NotEmpty(t, alice.ID)
	assert.Equal(t, []string{"fashion", "travel"}, alice.Interests)

	bob, err := db.PutUser(ctx, &store.User{Username: "bob_" + suffix, IsVisible: true})
	require.NoError(t, err)
	assert.Empty(t, bob.Interests)

	t.Run("users", func(t *testing.T) {
		got, err := db.GetUser(ctx, alice.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, alice.Username, got.Username)

		missing, err := db.GetUser(ctx, "missing-"+suffix)
		require.NoError(t, err)
		assert.Nil(t, missing)

		updated := *alice
		updated.Bio = "updated"
		updated.CreatedAt = 1
		out, err := db.PutUser(ctx, &updated)
		require.NoError(t, err)
		assert.Equal(t, "updated", out.Bio)
		assert.Equal(t, alice.CreatedAt, out.CreatedAt, "created_at must survive updates")

		ids, err := db.ExistingUserIDs(ctx, alice.ID, bob.ID, "missing-"+suffix)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{alice.ID, bob.ID}, ids)

		inserted, err := db.InsertUserIfAbsent(ctx, &store.User{Username: alice.Username})
		require.NoError(t, err)
		assert.False(t, inserted, "duplicate username must not insert")

		visible, err := db.ListVisibleUsers(ctx, alice.ID)
		require.NoError(t, err)
		for _, u := range visible {
			assert.NotEqual(t, alice.ID, u.ID)
			assert.True(t, u.IsVisible)
		}
	})

	t.Run("chats", func(t *testing.T) {
		c1, created, err := db.CreateChat(ctx, bob.ID, alice.ID)
		require.NoError(t, err)
		assert.True(t, created)
		first, second := store.Canonical(alice.ID, bob.ID)
		assert.Equal(t, [2]string{first, second}, c1.Participants)

		c2, created, err := db.CreateChat(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, c1.ID, c2.ID)

		found, err := db.FindChat(ctx, bob.ID, alice.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, c1.ID, found.ID)

		changed, err := db.TouchChat(ctx, c1.ID, c1.UpdatedAt+1000)
		require.NoError(t, err)
		assert.True(t, changed)
		changed, err = db.TouchChat(ctx, c1.ID, c1.UpdatedAt)
		require.NoError(t, err)
		assert.False(t, changed, "touch must never move updated_at backwards")

		list, err := db.ListChats(ctx, alice.ID, 10)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, c1.ID, list[0].ID)
	})

	t.Run("concurrent chat creation", func(t *testing.T) {
		carol, err := db.PutUser(ctx, &store.User{Username: "carol_" + suffix, IsVisible: true})
		require.NoError(t, err)

		const workers = 8
		ids := make([]string, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				a, b := alice.ID, carol.ID
				if i%2 == 1 {
					a, b = b, a
				}
				c, _, err := db.CreateChat(ctx, a, b)
				if assert.NoError(t, err) {
					ids[i] = c.ID
				}
			}(i)
		}
		wg.Wait()
		for _, id := range ids {
			assert.Equal(t, ids[0], id)
		}
	})

	t.Run("messages", func(t *testing.T) {
		c, _, err := db.CreateChat(ctx, alice.ID, bob.ID)
		require.NoError(t, err)

		m1, err := db.InsertMessage(ctx, &store.Message{ChatID: c.ID, SenderID: alice.ID, Content: "hello", CreatedAt: 1000})
		require.NoError(t, err)
		assert.NotEmpty(t, m1.ID)
		assert.False(t, m1.IsRead)
		_, err = db.InsertMessage(ctx, &store.Message{ChatID: c.ID, SenderID: bob.ID, Content: "hi", CreatedAt: 1000})
		require.NoError(t, err)
		_, err = db.InsertMessage(ctx, &store.Message{ChatID: c.ID, SenderID: "ghost-" + suffix, Content: "boo", CreatedAt: 2000})
		require.NoError(t, err)

		msgs, err := db.ListMessages(ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, "hello", msgs[0].Content, "equal timestamps keep insertion order")
		assert.Equal(t, "hi", msgs[1].Content)
		assert.Equal(t, alice.Username, msgs[0].SenderName)
		assert.Equal(t, "", msgs[2].SenderName, "unknown sender has no joined name")

		n, err := db.MarkRead(ctx, c.ID, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		n, err = db.MarkRead(ctx, c.ID, bob.ID)
		require.NoError(t, err)
		assert.Zero(t, n)

		empty, err := db.ListMessages(ctx, "missing-"+suffix)
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})

	t.Run("stats", func(t *testing.T) {
		s, err := db.Stats(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, s.Users, int64(2))
		assert.GreaterOrEqual(t, s.Messages, int64(3))
	})
}
