package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FloodMonitorAPI/internal/config"
	"FloodMonitorAPI/internal/models"
)

func TestStatsKey(t *testing.T) {
	assert.Equal(t, "stats:0:*:24", statsKey(0, "", 24))
	assert.Equal(t, "stats:3:river-1:0.5", statsKey(3, "river-1", 0.5))
}

// Needs a live server: REDIS_ADDR=localhost:6379 go test ./internal/cache/
func TestRedisStatsRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	rc, err := NewRedisClient(&config.RedisConfig{Addr: addr, StatsTTL: time.Minute})
	require.NoError(t, err)
	defer rc.Close()

	ctx := context.Background()
	gen, err := rc.Generation(ctx)
	require.NoError(t, err)

	miss, err := rc.GetStats(ctx, gen, "river-1", 6)
	require.NoError(t, err)
	assert.Nil(t, miss)

	want := models.StatsResult{Count: 2, Current: 40, Mean: 35, Max: 40, Min: 30, Std: 7.0710678}
	require.NoError(t, rc.SaveStats(ctx, gen, "river-1", 6, want))

	got, err := rc.GetStats(ctx, gen, "river-1", 6)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)

	require.NoError(t, rc.Invalidate(ctx))
	next, err := rc.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, gen+1, next)

	gone, err := rc.GetStats(ctx, next, "river-1", 6)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
