package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"FloodMonitorAPI/internal/config"
	"FloodMonitorAPI/internal/models"
)

// StatsCache stores computed window statistics for a short TTL. Entries are
// namespaced by a generation that Invalidate advances, so a result computed
// before an invalidation can never be served after it.
type StatsCache interface {
	Generation(ctx context.Context) (int64, error)
	GetStats(ctx context.Context, gen int64, deviceID string, hours float64) (*models.StatsResult, error)
	SaveStats(ctx context.Context, gen int64, deviceID string, hours float64, stats models.StatsResult) error
	Invalidate(ctx context.Context) error
}

const generationKey = "stats:gen"

type RedisClient struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClient(cfg *config.RedisConfig) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return NewWithClient(rdb, cfg.StatsTTL), nil
}

func NewWithClient(client *redis.Client, ttl time.Duration) *RedisClient {
	return &RedisClient{client: client, ttl: ttl}
}

func (rc *RedisClient) Close() error {
	return rc.client.Close()
}

func (rc *RedisClient) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

func statsKey(gen int64, deviceID string, hours float64) string {
	if deviceID == "" {
		deviceID = "*"
	}
	return "stats:" + strconv.FormatInt(gen, 10) + ":" + deviceID + ":" + strconv.FormatFloat(hours, 'f', -1, 64)
}

// Generation returns the current cache generation, 0 before the first
// invalidation.
func (rc *RedisClient) Generation(ctx context.Context) (int64, error) {
	gen, err := rc.client.Get(ctx, generationKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

// GetStats returns nil, nil on a miss.
func (rc *RedisClient) GetStats(ctx context.Context, gen int64, deviceID string, hours float64) (*models.StatsResult, error) {
	val, err := rc.client.Get(ctx, statsKey(gen, deviceID, hours)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var result models.StatsResult
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (rc *RedisClient) SaveStats(ctx context.Context, gen int64, deviceID string, hours float64, stats models.StatsResult) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return rc.client.Set(ctx, statsKey(gen, deviceID, hours), data, rc.ttl).Err()
}

// Invalidate advances the generation. Entries of older generations are no
// longer addressed and expire with their TTL.
func (rc *RedisClient) Invalidate(ctx context.Context) error {
	return rc.client.Incr(ctx, generationKey).Err()
}
