package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/assettrack/backend/internal/domain/history"
)

const (
	defaultTotalTTL        = time.Hour
	defaultCleanupInterval = 30 * time.Second
)

// InMemoryTotalCache caches resolved monthly totals in process memory.
// Keys carry the month, so stale entries can only ever answer for the
// month they were resolved in; TTL exists to bound memory, not correctness.
type InMemoryTotalCache struct {
	entries sync.Map // map[string]*totalEntry
	ttl     time.Duration
	logger  *zap.Logger
	stopCh  chan struct{}
	stopped int32

	hits   int64
	misses int64
}

type totalEntry struct {
	total     history.HistoricalTotal
	expiresAt time.Time
}

func (e *totalEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// InMemoryTotalCacheOption is a functional option for configuring the cache
type InMemoryTotalCacheOption func(*InMemoryTotalCache)

// WithMemoryTTL sets the entry lifetime
func WithMemoryTTL(ttl time.Duration) InMemoryTotalCacheOption {
	return func(c *InMemoryTotalCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMemoryLogger sets the logger for the cache
func WithMemoryLogger(logger *zap.Logger) InMemoryTotalCacheOption {
	return func(c *InMemoryTotalCache) {
		c.logger = logger
	}
}

// NewInMemoryTotalCache creates a new in-memory total cache
func NewInMemoryTotalCache(opts ...InMemoryTotalCacheOption) *InMemoryTotalCache {
	cache := &InMemoryTotalCache{
		ttl:    defaultTotalTTL,
		logger: zap.NewNop(),
		stopCh: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(cache)
	}

	go cache.cleanupExpired()

	return cache
}

func totalCacheKey(assetID uuid.UUID, month history.Month) string {
	return assetID.String() + ":" + month.String()
}

// Get retrieves a cached total for the asset and month
func (c *InMemoryTotalCache) Get(ctx context.Context, assetID uuid.UUID, month history.Month) (history.HistoricalTotal, bool) {
	key := totalCacheKey(assetID, month)

	if value, ok := c.entries.Load(key); ok {
		entry := value.(*totalEntry)
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			return entry.total, true
		}
		c.entries.Delete(key)
	}

	atomic.AddInt64(&c.misses, 1)
	return history.HistoricalTotal{}, false
}

// Set stores a resolved total for the asset and month
func (c *InMemoryTotalCache) Set(ctx context.Context, assetID uuid.UUID, month history.Month, total history.HistoricalTotal) {
	c.entries.Store(totalCacheKey(assetID, month), &totalEntry{
		total:     total,
		expiresAt: time.Now().Add(c.ttl),
	})
}

// Invalidate removes the cached total for one asset and month
func (c *InMemoryTotalCache) Invalidate(ctx context.Context, assetID uuid.UUID, month history.Month) {
	c.entries.Delete(totalCacheKey(assetID, month))
}

// Stats returns hit and miss counters
func (c *InMemoryTotalCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Count returns the number of live entries
func (c *InMemoryTotalCache) Count() int {
	var n int
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close stops the background cleanup goroutine
func (c *InMemoryTotalCache) Close() error {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

func (c *InMemoryTotalCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.doCleanup()
		}
	}
}

func (c *InMemoryTotalCache) doCleanup() {
	var removed int

	c.entries.Range(func(key, value any) bool {
		if value.(*totalEntry).isExpired() {
			c.entries.Delete(key)
			removed++
		}
		return true
	})

	if removed > 0 {
		c.logger.Debug("cleaned up expired total cache entries",
			zap.Int("removed", removed))
	}
}

// Ensure InMemoryTotalCache implements TotalCache
var _ history.TotalCache = (*InMemoryTotalCache)(nil)
