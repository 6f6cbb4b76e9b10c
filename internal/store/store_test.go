package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plextuner/iptv-collector/internal/speedtest"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "probes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewRunID(t *testing.T) {
	id := NewRunID()
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, NewRunID())
}

func TestRuns(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	_, err := s.LastRun(ctx)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	start := time.UnixMilli(1_700_000_000_000)
	require.NoError(t, s.BeginRun(ctx, "r1", start))
	require.NoError(t, s.FinishRun(ctx, Run{ID: "r1", FinishedAt: start.Add(time.Minute), Sources: 3, FailedSources: 1, Channels: 40, SlowURLs: 5}))
	assert.ErrorIs(t, s.FinishRun(ctx, Run{ID: "nope", FinishedAt: start}), sql.ErrNoRows)

	r, err := s.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r1", r.ID)
	assert.True(t, r.StartedAt.Equal(start))
	assert.True(t, r.FinishedAt.Equal(start.Add(time.Minute)))
	assert.Equal(t, 40, r.Channels)
	assert.Empty(t, r.Err)
}

func TestFresh(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)

	old := []speedtest.Result{{URL: "http://a/x.m3u8", Success: false, Err: "timeout"}}
	require.NoError(t, s.RecordProbes(ctx, "r0", now.Add(-3*time.Hour), old))
	recent := []speedtest.Result{
		{URL: "http://a/x.m3u8", Success: true, Score: 0.82, Status: 200, Connect: 120 * time.Millisecond, Playlist: "media"},
		{URL: "http://b/y", Success: false, Err: "HTTP 404", Status: 404},
		{URL: "http://c/z", Success: true, Score: 0.5, Cached: true},
	}
	require.NoError(t, s.RecordProbes(ctx, "r1", now.Add(-time.Hour), recent))

	got, err := s.Fresh(ctx, []string{"http://a/x.m3u8", "http://b/y", "http://c/z", "http://d/none"}, now, 2*time.Hour)
	require.NoError(t, err)
	require.Len(t, got, 2)
	a := got["http://a/x.m3u8"]
	assert.True(t, a.Success)
	assert.True(t, a.Cached)
	assert.InDelta(t, 0.82, a.Score, 1e-9)
	assert.Equal(t, 120*time.Millisecond, a.Connect)
	assert.Equal(t, "media", a.Playlist)
	assert.Equal(t, "HTTP 404", got["http://b/y"].Err)
	assert.NotContains(t, got, "http://c/z", "cached results are not re-recorded")

	none, err := s.Fresh(ctx, []string{"http://a/x.m3u8"}, now, 30*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, none)

	none, err = s.Fresh(ctx, []string{"http://a/x.m3u8"}, now, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestHistoryAndPrune(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)
	for i := 0; i < 3; i++ {
		r := []speedtest.Result{{URL: "http://a/x", Success: i%2 == 0, Score: float64(i) / 10}}
		require.NoError(t, s.RecordProbes(ctx, "r", now.Add(time.Duration(i)*time.Hour), r))
	}
	h, err := s.History(ctx, "http://a/x", 2)
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.True(t, h[0].ProbedAt.After(h[1].ProbedAt))
	assert.InDelta(t, 0.2, h[0].Result.Score, 1e-9)

	n, err := s.Prune(ctx, now.Add(90*time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	h, err = s.History(ctx, "http://a/x", 0)
	require.NoError(t, err)
	assert.Len(t, h, 1)
}
