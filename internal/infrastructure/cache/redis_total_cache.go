package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/assettrack/backend/internal/domain/history"
)

// RedisTotalCache caches resolved monthly totals in Redis, suitable for
// deployments where several instances answer reporting queries. Lookups are
// best effort: a Redis failure degrades to a cache miss and the resolver
// recomputes from the database.
type RedisTotalCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisTotalCache creates a Redis-backed total cache and verifies the
// connection before returning
func NewRedisTotalCache(cfg RedisConfig, ttl time.Duration, logger *zap.Logger) (*RedisTotalCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisTotalCacheWithClient(client, ttl, logger), nil
}

// NewRedisTotalCacheWithClient creates a cache over an existing client.
// Useful for testing or when sharing a client across components.
func NewRedisTotalCacheWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisTotalCache {
	if ttl <= 0 {
		ttl = defaultTotalTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisTotalCache{
		client:    client,
		keyPrefix: "report:total:",
		ttl:       ttl,
		logger:    logger,
	}
}

func (c *RedisTotalCache) key(assetID uuid.UUID, month history.Month) string {
	return c.keyPrefix + assetID.String() + ":" + month.String()
}

// Get retrieves a cached total for the asset and month
func (c *RedisTotalCache) Get(ctx context.Context, assetID uuid.UUID, month history.Month) (history.HistoricalTotal, bool) {
	data, err := c.client.Get(ctx, c.key(assetID, month)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("total cache read failed",
				zap.String("asset_id", assetID.String()),
				zap.String("month", month.String()),
				zap.Error(err))
		}
		return history.HistoricalTotal{}, false
	}

	var total history.HistoricalTotal
	if err := json.Unmarshal(data, &total); err != nil {
		c.logger.Warn("total cache entry corrupt, dropping",
			zap.String("asset_id", assetID.String()),
			zap.String("month", month.String()),
			zap.Error(err))
		c.client.Del(ctx, c.key(assetID, month))
		return history.HistoricalTotal{}, false
	}

	return total, true
}

// Set stores a resolved total for the asset and month
func (c *RedisTotalCache) Set(ctx context.Context, assetID uuid.UUID, month history.Month, total history.HistoricalTotal) {
	data, err := json.Marshal(total)
	if err != nil {
		c.logger.Warn("total cache marshal failed", zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, c.key(assetID, month), data, c.ttl).Err(); err != nil {
		c.logger.Warn("total cache write failed",
			zap.String("asset_id", assetID.String()),
			zap.String("month", month.String()),
			zap.Error(err))
	}
}

// Invalidate removes the cached total for one asset and month
func (c *RedisTotalCache) Invalidate(ctx context.Context, assetID uuid.UUID, month history.Month) error {
	return c.client.Del(ctx, c.key(assetID, month)).Err()
}

// Close closes the Redis client
func (c *RedisTotalCache) Close() error {
	return c.client.Close()
}

// Ensure RedisTotalCache implements TotalCache
var _ history.TotalCache = (*RedisTotalCache)(nil)
