package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stardust/internal/analytics"
	"stardust/internal/nowplaying"
)

func TestStableSourceHashDeterministic(t *testing.T) {
	h1 := StableSourceHash(123, "artist", "track", "release")
	h2 := StableSourceHash(123, "artist", "track", "release")
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, StableSourceHash(124, "artist", "track", "release"))
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), OpenOptions{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertListenDedupes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ev := analytics.PlayEvent{
		Artist:        "David Bowie",
		Track:         "Heroes",
		Release:       "Heroes",
		ListenedAt:    1_700_000_000,
		RecordingMBID: "rec-heroes",
		DurationMS:    371_000,
	}

	res, err := s.InsertListen(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)

	res, err = s.InsertListen(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Ignored)

	count, minTS, maxTS, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, int64(1_700_000_000), minTS)
	assert.Equal(t, int64(1_700_000_000), maxTS)
}

func TestInsertListenIgnoresTimestampless(t *testing.T) {
	s := openTestStore(t)

	res, err := s.InsertListen(context.Background(), analytics.PlayEvent{Artist: "David Bowie", Track: "Heroes"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Ignored)
}

func TestAllEventsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, ev := range []analytics.PlayEvent{
		{Artist: "David Bowie", Track: "Heroes", ListenedAt: 300, RecordingMBID: "rec-b"},
		{Artist: "David Bowie", Track: "Speed of Life", ListenedAt: 100},
	} {
		_, err := s.InsertListen(ctx, ev)
		require.NoError(t, err)
	}

	events, err := s.AllEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Speed of Life", events[0].Track)
	assert.Equal(t, "Heroes", events[1].Track)
	assert.Equal(t, "rec-b", events[1].RecordingMBID)

	max, err := s.MaxListenedAt(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(300), max)
}

func TestMaxListenedAtEmpty(t *testing.T) {
	s := openTestStore(t)
	max, err := s.MaxListenedAt(context.Background())
	require.NoError(t, err)
	assert.Zero(t, max)
}

func TestPlaybackRecordRoundTrip(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.LoadPlayback()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SavePlayback(nowplaying.Record{Identity: "rec-heroes", StartedAt: 42}))
	rec, ok, err := s.LoadPlayback()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, nowplaying.Record{Identity: "rec-heroes", StartedAt: 42}, rec)

	// Overwrite keeps a single row.
	require.NoError(t, s.SavePlayback(nowplaying.Record{Identity: "rec-speed", StartedAt: 99}))
	rec, ok, err = s.LoadPlayback()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "rec-speed", rec.Identity)

	require.NoError(t, s.ClearPlayback())
	_, ok, err = s.LoadPlayback()
	require.NoError(t, err)
	assert.False(t, ok)
}
