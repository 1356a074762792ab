package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/maintenance-engine/internal/core/domain"
)

func TestMemoryCache_Claims(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)

	ok, err := c.SetIdempotency(ctx, "reminder:s1:7")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetIdempotency(ctx, "reminder:s1:7")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.ReleaseIdempotency(ctx, "reminder:s1:7"))
	ok, err = c.SetIdempotency(ctx, "reminder:s1:7")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCache_StatsExpire(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 4, 15, 9, 0, 0, 0, time.UTC)
	c := NewMemoryCache(time.Minute)
	c.now = func() time.Time { return now }

	got, gen, err := c.GetStats(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.SetStats(ctx, gen, domain.ScheduleStats{Total: 3, Overdue: 1}))
	got, _, err = c.GetStats(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.Total)

	now = now.Add(2 * time.Minute)
	got, _, err = c.GetStats(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.SetStats(ctx, gen, domain.ScheduleStats{Total: 4}))
	require.NoError(t, c.InvalidateStats(ctx))
	got, _, err = c.GetStats(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryCache_StatsFromBeforeInvalidationDropped(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)

	_, gen, err := c.GetStats(ctx)
	require.NoError(t, err)

	// a mutation lands while the counts are being computed
	require.NoError(t, c.InvalidateStats(ctx))
	require.NoError(t, c.SetStats(ctx, gen, domain.ScheduleStats{Total: 1}))

	got, newGen, err := c.GetStats(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, gen+1, newGen)

	require.NoError(t, c.SetStats(ctx, newGen, domain.ScheduleStats{Total: 2}))
	got, _, err = c.GetStats(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.Total)
}
