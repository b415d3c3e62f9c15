package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liondevhq/weather-tomorrow/internal/weather"
)

func runAt(id string, ts time.Time) weather.RunResult {
	return weather.RunResult{ID: id, StartedAt: ts, Units: weather.UnitsMetric}
}

func TestMemoryStoreLatestAndRange(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10, 0)

	_, err := s.GetLatest()
	assert.ErrorIs(t, err, ErrNotFound)

	base := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Present(ctx, runAt(id, base.Add(time.Duration(i)*time.Hour))))
	}

	latest, err := s.GetLatest()
	require.NoError(t, err)
	assert.Equal(t, "c", latest.ID)

	runs, err := s.GetRange(base.Add(time.Hour), base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].ID)
	assert.Equal(t, "c", runs[1].ID)

	_, err = s.GetRange(base.Add(-2*time.Hour), base.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreRetention(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	byCount := NewMemoryStore(2, 0)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, byCount.Present(ctx, runAt(id, now.Add(time.Duration(i)*time.Minute))))
	}
	runs, err := byCount.GetRange(now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].ID)

	byAge := NewMemoryStore(0, time.Hour)
	byAge.now = func() time.Time { return now }
	require.NoError(t, byAge.Present(ctx, runAt("old", now.Add(-3*time.Hour))))
	require.NoError(t, byAge.Present(ctx, runAt("new", now.Add(-time.Minute))))
	runs, err = byAge.GetRange(now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "new", runs[0].ID)

	// The newest run survives even when it is already past the cutoff.
	stale := NewMemoryStore(0, time.Hour)
	stale.now = func() time.Time { return now }
	require.NoError(t, stale.Present(ctx, runAt("only", now.Add(-5*time.Hour))))
	latest, err := stale.GetLatest()
	require.NoError(t, err)
	assert.Equal(t, "only", latest.ID)
}
