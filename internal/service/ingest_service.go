package service

import (
	"context"
	"errors"
	"time"

	"FloodMonitorAPI/internal/logger"
	"FloodMonitorAPI/internal/metrics"
	"FloodMonitorAPI/internal/models"
	"FloodMonitorAPI/internal/repository"
)

// ReadingBroadcaster fans a stored reading out to live subscribers.
type ReadingBroadcaster interface {
	BroadcastReading(reading models.Reading)
}

// CacheInvalidator is told whenever the store gains a reading.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

type IngestService struct {
	store       repository.ReadingStore
	policy      *AlertPolicy
	broadcaster ReadingBroadcaster
	cache       CacheInvalidator
	now         func() time.Time
	log         *logger.Logger
}

func NewIngestService(store repository.ReadingStore, policy *AlertPolicy, log *logger.Logger) *IngestService {
	return &IngestService{
		store:  store,
		policy: policy,
		now:    time.Now,
		log:    log,
	}
}

func (s *IngestService) SetBroadcaster(b ReadingBroadcaster) {
	s.broadcaster = b
}

func (s *IngestService) SetCache(c CacheInvalidator) {
	s.cache = c
}

func (s *IngestService) SetClock(now func() time.Time) {
	s.now = now
}

// Ingest decodes a raw body, stores the reading and evaluates the alert policy.
func (s *IngestService) Ingest(ctx context.Context, payload []byte, source string) (*models.Reading, error) {
	s.log.Debug("Processing %s reading: %d bytes", source, len(payload))

	raw, err := ParsePayload(payload)
	if err != nil {
		metrics.ReadingsRejected.WithLabelValues("invalid_json").Inc()
		return nil, err
	}
	return s.IngestMap(ctx, raw, source)
}

// IngestMap is Ingest for a payload that is already decoded.
func (s *IngestService) IngestMap(ctx context.Context, raw map[string]interface{}, source string) (*models.Reading, error) {
	reading, err := ValidatePayload(raw, s.now())
	if err != nil {
		metrics.ReadingsRejected.WithLabelValues("validation").Inc()
		s.log.Warn("Rejected %s reading: %v", source, err)
		return nil, err
	}

	if err := s.store.Append(ctx, reading); err != nil {
		metrics.ReadingsRejected.WithLabelValues("store").Inc()
		s.log.Error("Failed to store reading from %s: %v", reading.DeviceID, err)
		var storeErr *models.StoreError
		if !errors.As(err, &storeErr) {
			err = &models.StoreError{Op: "append", Err: err}
		}
		return nil, err
	}

	metrics.ReadingsIngested.WithLabelValues(source).Inc()
	metrics.LastLevelPercent.WithLabelValues(reading.DeviceID).Set(float64(reading.LevelPercent))
	s.log.Info("Reading stored: device=%s, level=%d%%, ultrasonic=%.1fcm",
		reading.DeviceID, reading.LevelPercent, reading.UltrasonicCM)

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log.Warn("Failed to invalidate stats cache: %v", err)
		}
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastReading(*reading)
	}

	if s.policy != nil {
		s.policy.Evaluate(ctx, reading.LevelPercent, reading.DeviceID, reading.Timestamp)
	}

	return reading, nil
}
