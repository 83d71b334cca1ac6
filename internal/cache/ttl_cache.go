package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/bbernstein/waterlab/backend-go/internal/metrics"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Entry wraps a cached value with its load and expiry times
type Entry[V any] struct {
	Value     V
	LoadedAt  time.Time
	ExpiresAt time.Time
}

// SecondLevel is a slower, shared store consulted when the in-memory entry is missing or stale.
type SecondLevel[V any] interface {
	Get(ctx context.Context, key string) (value V, expiresAt time.Time, ok bool, err error)
	Put(ctx context.Context, key string, value V, expiresAt time.Time) error
}

// Loader produces a fresh value for a key on a cache miss.
type Loader[V any] func(ctx context.Context) (V, error)

// TTLCache is a keyed get-or-load store with a fixed freshness window per cache.
type TTLCache[V any] struct {
	name    string
	ttl     time.Duration
	lru     *lru.Cache[string, *Entry[V]]
	clock   clockwork.Clock
	group   singleflight.Group
	isCold  func(V) bool
	l2      SecondLevel[V]
	metrics *metrics.Metrics
}

type Option[V any] func(*TTLCache[V])

func WithClock[V any](clock clockwork.Clock) Option[V] {
	return func(c *TTLCache[V]) {
		c.clock = clock
	}
}

// WithColdCheck marks values that must never be served from cache, such as empty lists.
func WithColdCheck[V any](isCold func(V) bool) Option[V] {
	return func(c *TTLCache[V]) {
		c.isCold = isCold
	}
}

func WithSecondLevel[V any](store SecondLevel[V]) Option[V] {
	return func(c *TTLCache[V]) {
		c.l2 = store
	}
}

func WithMetrics[V any](m *metrics.Metrics) Option[V] {
	return func(c *TTLCache[V]) {
		c.metrics = m
	}
}

// NewTTLCache creates a cache holding up to size keys, each fresh for ttl.
func NewTTLCache[V any](name string, size int, ttl time.Duration, opts ...Option[V]) (*TTLCache[V], error) {
	lruCache, err := lru.New[string, *Entry[V]](size)
	if err != nil {
		return nil, fmt.Errorf("creating LRU cache %s: %w", name, err)
	}

	c := &TTLCache[V]{
		name:  name,
		ttl:   ttl,
		lru:   lruCache,
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns a fresh, non-cold value for key.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V

	entry, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	// stale entries stay until the next Set overwrites them
	if !c.clock.Now().Before(entry.ExpiresAt) {
		return zero, false
	}
	if c.cold(entry.Value) {
		return zero, false
	}
	return entry.Value, true
}

// Set stores value under key for one TTL window and writes it through to the second level.
func (c *TTLCache[V]) Set(ctx context.Context, key string, value V) {
	now := c.clock.Now()
	entry := &Entry[V]{
		Value:     value,
		LoadedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}
	c.lru.Add(key, entry)

	if c.l2 == nil || c.cold(value) {
		return
	}
	if err := c.l2.Put(ctx, key, value, entry.ExpiresAt); err != nil {
		log.Warn().Err(err).Str("cache", c.name).Str("key", key).Msg("Failed to write second-level cache")
	}
}

// GetOrLoad returns the cached value for key, calling load at most once per key concurrently
// when the entry is missing, stale or cold. Load errors are returned and never cached.
//
// The shared load runs detached from any single caller's cancellation; a cancelled caller
// stops waiting and gets ctx.Err() while the others still receive the loaded value.
func (c *TTLCache[V]) GetOrLoad(ctx context.Context, key string, load Loader[V]) (V, error) {
	if value, ok := c.Get(key); ok {
		log.Debug().Str("cache", c.name).Str("key", key).Msg("Cache HIT")
		c.metrics.CacheHit(c.name)
		return value, nil
	}
	log.Debug().Str("cache", c.name).Str("key", key).Msg("Cache MISS")
	c.metrics.CacheMiss(c.name)

	var zero V
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	if value, ok := c.fromSecondLevel(ctx, key); ok {
		return value, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	results := c.group.DoChan(key, func() (any, error) {
		value, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.Set(loadCtx, key, value)
		return value, nil
	})

	select {
	case <-ctx.Done():
		log.Debug().Str("cache", c.name).Str("key", key).Msg("Caller gave up waiting for load")
		return zero, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return zero, res.Err
		}
		value, _ := res.Val.(V)
		return value, nil
	}
}

func (c *TTLCache[V]) fromSecondLevel(ctx context.Context, key string) (V, bool) {
	var zero V
	if c.l2 == nil {
		return zero, false
	}

	value, expiresAt, ok, err := c.l2.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("cache", c.name).Str("key", key).Msg("Failed to read second-level cache")
		return zero, false
	}
	if !ok || !c.clock.Now().Before(expiresAt) || c.cold(value) {
		return zero, false
	}

	c.lru.Add(key, &Entry[V]{
		Value:     value,
		LoadedAt:  c.clock.Now(),
		ExpiresAt: expiresAt,
	})
	c.metrics.CacheSecondLevelHit(c.name)
	return value, true
}

func (c *TTLCache[V]) cold(value V) bool {
	return c.isCold != nil && c.isCold(value)
}
