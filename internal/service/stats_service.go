package service

import (
	"context"

	"FloodMonitorAPI/internal/analytics"
	"FloodMonitorAPI/internal/cache"
	"FloodMonitorAPI/internal/logger"
	"FloodMonitorAPI/internal/metrics"
	"FloodMonitorAPI/internal/models"
	"FloodMonitorAPI/internal/repository"
)

type StatsService struct {
	store repository.ReadingStore
	cache cache.StatsCache
	log   *logger.Logger
}

func NewStatsService(store repository.ReadingStore, log *logger.Logger) *StatsService {
	return &StatsService{store: store, log: log}
}

func (s *StatsService) SetCache(c cache.StatsCache) {
	s.cache = c
}

// GetStats aggregates the newest readings inside the trailing window of hours.
// An empty deviceID covers every device.
func (s *StatsService) GetStats(ctx context.Context, deviceID string, hours float64) (models.StatsResult, error) {
	gen, cacheOK := s.cacheGeneration(ctx)
	if cacheOK {
		cached, err := s.cache.GetStats(ctx, gen, deviceID, hours)
		switch {
		case err != nil:
			metrics.StatsCacheLookups.WithLabelValues("error").Inc()
			s.log.Warn("Stats cache read failed: %v", err)
		case cached != nil:
			metrics.StatsCacheLookups.WithLabelValues("hit").Inc()
			return *cached, nil
		default:
			metrics.StatsCacheLookups.WithLabelValues("miss").Inc()
		}
	}

	readings, err := s.store.Query(ctx, models.ReadingQuery{
		Limit:      models.StatsQueryLimit,
		DeviceID:   deviceID,
		SinceHours: &hours,
	})
	if err != nil {
		return models.StatsResult{}, err
	}

	result := analytics.Compute(readings)

	// Saved under the generation read before the query; an ingest that lands
	// in between has already moved readers to the next generation.
	if cacheOK {
		if err := s.cache.SaveStats(ctx, gen, deviceID, hours, result); err != nil {
			s.log.Warn("Stats cache write failed: %v", err)
		}
	}

	return result, nil
}

func (s *StatsService) cacheGeneration(ctx context.Context) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		metrics.StatsCacheLookups.WithLabelValues("error").Inc()
		s.log.Warn("Stats cache generation read failed: %v", err)
		return 0, false
	}
	return gen, true
}

// Recent returns readings newest first.
func (s *StatsService) Recent(ctx context.Context, q models.ReadingQuery) ([]models.Reading, error) {
	return s.store.Query(ctx, q)
}
