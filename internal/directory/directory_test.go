package directory

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheus3301/collab/internal/store"
)

func testStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(store.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	_, err = db.Migrate()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func putUsers(t *testing.T, db *store.DB, users ...store.User) {
	t.Helper()
	for i := range users {
		_, err := db.PutUser(context.Background(), &users[i])
		require.NoError(t, err)
	}
}

type failingStore struct{}

func (failingStore) ListVisibleUsers(context.Context, string) ([]store.User, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) PutUser(context.Context, *store.User) (*store.User, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) InsertUserIfAbsent(context.Context, *store.User) (bool, error) {
	return false, errors.New("connection refused")
}

func TestSearchExcludesCallerAndInvisible(t *testing.T) {
	db := testStore(t)
	putUsers(t, db,
		store.User{ID: "caller", Username: "fashion_caller", IsVisible: true, CreatedAt: 3},
		store.User{ID: "hidden", Username: "fashion_hidden", IsVisible: false, CreatedAt: 2},
		store.User{ID: "visible", Username: "fashion_visible", IsVisible: true, CreatedAt: 1},
	)
	svc := New(db, nil)

	for _, q := range []string{"", "fashion", "FASHION", "  fash ", "nomatch"} {
		got := svc.Search(context.Background(), q, "caller")
		for _, u := range got {
			assert.NotEqual(t, "caller", u.ID, "query %q returned the caller", q)
			assert.True(t, u.IsVisible, "query %q returned invisible user %s", q, u.ID)
		}
	}

	got := svc.Search(context.Background(), "fashion", "caller")
	require.Len(t, got, 1)
	assert.Equal(t, "visible", got[0].ID)
}

func TestSearchBoundedToTwenty(t *testing.T) {
	db := testStore(t)
	for i := 0; i < 30; i++ {
		putUsers(t, db, store.User{ID: fmt.Sprintf("u%02d", i), Username: fmt.Sprintf("user%02d", i), IsVisible: true, CreatedAt: int64(i + 1)})
	}
	svc := New(db, nil)

	all := svc.Search(context.Background(), "", "someone")
	require.Len(t, all, 20)
	assert.Equal(t, "u29", all[0].ID, "empty query lists newest first")
	assert.Equal(t, "u10", all[19].ID)

	assert.LessOrEqual(t, len(svc.Search(context.Background(), "user", "someone")), 20)
}

func TestSearchLimitOption(t *testing.T) {
	db := testStore(t)
	for i := 0; i < 5; i++ {
		putUsers(t, db, store.User{ID: fmt.Sprintf("u%d", i), Username: fmt.Sprintf("user%d", i), IsVisible: true, CreatedAt: int64(i + 1)})
	}

	assert.Len(t, New(db, nil, WithLimit(3)).Search(context.Background(), "", "x"), 3)
	assert.Len(t, New(db, nil, WithLimit(500)).Search(context.Background(), "", "x"), 5)
	assert.Len(t, New(db, nil, WithLimit(0)).Search(context.Background(), "", "x"), 1)
}

func TestSearchExactMatchRanksFirst(t *testing.T) {
	db := testStore(t)
	putUsers(t, db,
		store.User{ID: "partial", Username: "brand100", Bio: "brand agency", IsVisible: true, CreatedAt: 2},
		store.User{ID: "exact", Username: "Brand", IsVisible: true, CreatedAt: 1},
	)
	svc := New(db, nil)

	got := svc.Search(context.Background(), "brand", "caller")
	require.Len(t, got, 2)
	assert.Equal(t, "exact", got[0].ID)
	assert.Equal(t, 100, got[0].MatchScore)
	assert.Equal(t, 60, got[1].MatchScore)
}

func TestSearchTieBreak(t *testing.T) {
	users := []store.User{
		{ID: "b", Username: "bob_fit", IsVisible: true, CreatedAt: 10},
		{ID: "a", Username: "ann_fit", IsVisible: true, CreatedAt: 10},
		{ID: "c", Username: "cat_fit", IsVisible: true, CreatedAt: 20},
	}
	got := Rank(users, "fit", "", 20)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestSearchEmptyCaller(t *testing.T) {
	db := testStore(t)
	putUsers(t, db, store.User{ID: "u1", Username: "alice", IsVisible: true})

	got := New(db, nil).Search(context.Background(), "", "  ")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSearchBackendFailureDegradesToEmpty(t *testing.T) {
	got := New(failingStore{}, nil).Search(context.Background(), "x", "caller")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestScore(t *testing.T) {
	u := store.User{
		Username:  "FashionHub",
		Bio:       "All about fashion",
		Role:      "fashion brand",
		Interests: []string{"Fashion", "travel"},
	}
	tests := []struct {
		query string
		want  int
	}{
		{"fashionhub", 100},
		{"fashion", 50 + 10 + 15 + 20},
		{"hub", 25},
		{"travel", 20},
		{"brand", 15},
		{"about", 10},
		{"zzz", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(u, tt.query))
		})
	}
}

func TestMatches(t *testing.T) {
	u := store.User{Username: "alice", Bio: "Photographer", Role: "influencer", Interests: []string{"Food"}}
	assert.True(t, Matches(u, ""))
	assert.True(t, Matches(u, "ALI"))
	assert.True(t, Matches(u, "photo"))
	assert.True(t, Matches(u, "influ"))
	assert.True(t, Matches(u, " food "))
	assert.False(t, Matches(u, "brand"))
}

func TestPutUser(t *testing.T) {
	db := testStore(t)
	svc := New(db, nil)
	ctx := context.Background()

	_, err := svc.PutUser(ctx, &store.User{Username: "  "})
	assert.ErrorIs(t, err, ErrInvalidUser)

	u, err := svc.PutUser(ctx, &store.User{ID: "ext-1", Username: " carol ", IsVisible: true, Interests: []string{"tech"}})
	require.NoError(t, err)
	assert.Equal(t, "carol", u.Username)

	_, err = svc.PutUser(ctx, &store.User{ID: "ext-2", Username: "carol"})
	assert.Error(t, err, "usernames are unique")

	_, err = New(failingStore{}, nil).PutUser(ctx, &store.User{Username: "dave"})
	assert.Error(t, err)
}

func TestSeedDemoUsersIsIdempotent(t *testing.T) {
	db := testStore(t)
	svc := New(db, nil)
	ctx := context.Background()

	n, err := svc.SeedDemoUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = svc.SeedDemoUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	got := svc.Search(ctx, "influencer1", "nobody")
	require.NotEmpty(t, got)
	assert.Equal(t, "influencer1", got[0].Username)
	assert.Equal(t, "influencer", got[0].Role)
}
