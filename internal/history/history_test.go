package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func TestRecordAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 2, 27, 8, 15, 0, 0, time.UTC)

	id, err := s.Record(ctx, Event{
		EntryKey: "n-12", NotificationID: 12, UserID: 3, Kind: EventRead,
		Type: "MESSAGE", Sender: "Dr Diallo", Preview: "Bonjour", Destination: "/medecin/chat",
		CreatedAt: at,
	})
	require.NoError(t, err)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "n-12", got.EntryKey)
	assert.Equal(t, EventRead, got.Kind)
	assert.Equal(t, "/medecin/chat", got.Destination)
	assert.False(t, got.Temporary)
	assert.True(t, got.CreatedAt.Equal(at))

	_, err = s.Get(ctx, id+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordValidates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Record(ctx, Event{EntryKey: "k", Kind: "bogus"})
	assert.Error(t, err)

	_, err = s.Record(ctx, Event{Kind: EventShown})
	assert.Error(t, err)
}

func TestListFiltersAndOrders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	events := []Event{
		{EntryKey: "a", UserID: 1, Kind: EventShown, Temporary: true, CreatedAt: base},
		{EntryKey: "a", UserID: 1, Kind: EventExpired, Temporary: true, CreatedAt: base.Add(5 * time.Second)},
		{EntryKey: "n-1", UserID: 2, Kind: EventShown, CreatedAt: base.Add(time.Minute)},
		{EntryKey: "n-1", UserID: 2, Kind: EventClosed, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range events {
		_, err := s.Record(ctx, e)
		require.NoError(t, err)
	}

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, EventClosed, all[0].Kind, "newest first")
	assert.True(t, all[3].Temporary)

	shown, err := s.List(ctx, Filter{Kind: EventShown})
	require.NoError(t, err)
	assert.Len(t, shown, 2)

	user1, err := s.List(ctx, Filter{UserID: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, user1, 1)
	assert.Equal(t, EventExpired, user1[0].Kind)
}

func TestPrune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := s.Record(ctx, Event{EntryKey: "k", Kind: EventShown, CreatedAt: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}

	n, err := s.Prune(ctx, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Record(context.Background(), Event{EntryKey: "k", Kind: EventShown})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	events, err := s.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestParseEventKind(t *testing.T) {
	k, err := ParseEventKind(" Read ")
	require.NoError(t, err)
	assert.Equal(t, EventRead, k)

	_, err = ParseEventKind("nope")
	assert.Error(t, err)
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
	assert.Equal(t, filepath.Join("state", "history.db"), DefaultPath("state"))
}
