package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FloodMonitorAPI/internal/logger"
	"FloodMonitorAPI/internal/models"
)

type mapCache struct {
	gen     int64
	entries map[string]models.StatsResult
	saves   int
}

func (c *mapCache) key(gen int64, deviceID string, hours float64) string {
	return fmt.Sprintf("%d|%s|%g", gen, deviceID, hours)
}

func (c *mapCache) Generation(ctx context.Context) (int64, error) {
	return c.gen, nil
}

func (c *mapCache) GetStats(ctx context.Context, gen int64, deviceID string, hours float64) (*models.StatsResult, error) {
	if s, ok := c.entries[c.key(gen, deviceID, hours)]; ok {
		return &s, nil
	}
	return nil, nil
}

func (c *mapCache) SaveStats(ctx context.Context, gen int64, deviceID string, hours float64, s models.StatsResult) error {
	c.saves++
	c.entries[c.key(gen, deviceID, hours)] = s
	return nil
}

func (c *mapCache) Invalidate(ctx context.Context) error {
	c.gen++
	return nil
}

func TestGetStatsQueriesWindow(t *testing.T) {
	store := &memoryStore{}
	for _, level := range []int{70, 80, 90} {
		require.NoError(t, store.Append(context.Background(), &models.Reading{DeviceID: "a", LevelPercent: level}))
	}
	s := NewStatsService(store, logger.Discard())

	result, err := s.GetStats(context.Background(), "", 24)

	require.NoError(t, err)
	assert.Equal(t, 3, result.Count)
	assert.Equal(t, 90, result.Current)
	assert.Equal(t, 80.0, result.Mean)
	assert.InDelta(t, 10.0, result.Std, 1e-9)

	require.Len(t, store.queries, 1)
	assert.Equal(t, models.StatsQueryLimit, store.queries[0].Limit)
	require.NotNil(t, store.queries[0].SinceHours)
	assert.Equal(t, 24.0, *store.queries[0].SinceHours)
}

func TestGetStatsEmpty(t *testing.T) {
	s := NewStatsService(&memoryStore{}, logger.Discard())

	result, err := s.GetStats(context.Background(), "a", 1)

	require.NoError(t, err)
	assert.Equal(t, 0, result.Count)
}

func TestGetStatsStoreError(t *testing.T) {
	s := NewStatsService(&memoryStore{failWith: errors.New("locked")}, logger.Discard())

	_, err := s.GetStats(context.Background(), "", 24)

	assert.Error(t, err)
}

func TestGetStatsUsesCache(t *testing.T) {
	store := &memoryStore{}
	require.NoError(t, store.Append(context.Background(), &models.Reading{LevelPercent: 50}))
	cache := &mapCache{entries: map[string]models.StatsResult{}}
	s := NewStatsService(store, logger.Discard())
	s.SetCache(cache)

	first, err := s.GetStats(context.Background(), "", 24)
	require.NoError(t, err)
	second, err := s.GetStats(context.Background(), "", 24)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, store.queries, 1)
	assert.Equal(t, 1, cache.saves)
}

func TestGetStatsInvalidationDuringQueryIsNotOvertaken(t *testing.T) {
	cache := &mapCache{entries: map[string]models.StatsResult{}}
	store := &memoryStore{}
	require.NoError(t, store.Append(context.Background(), &models.Reading{LevelPercent: 40}))
	s := NewStatsService(store, logger.Discard())
	s.SetCache(cache)

	// A reading lands while the first computation is still reading the store.
	store.afterQuery = func() {
		store.afterQuery = nil
		require.NoError(t, store.Append(context.Background(), &models.Reading{LevelPercent: 95}))
		require.NoError(t, cache.Invalidate(context.Background()))
	}

	stale, err := s.GetStats(context.Background(), "", 24)
	require.NoError(t, err)
	assert.Equal(t, 1, stale.Count)

	fresh, err := s.GetStats(context.Background(), "", 24)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Count)
	assert.Equal(t, 95, fresh.Current)
	assert.Len(t, store.queries, 2)
}
