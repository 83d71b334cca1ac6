package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bbernstein/waterlab/backend-go/internal/metrics"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)

func countingLoader(calls *int32, values ...[]string) Loader[[]string] {
	return func(ctx context.Context) ([]string, error) {
		n := atomic.AddInt32(calls, 1)
		idx := int(n) - 1
		if idx >= len(values) {
			idx = len(values) - 1
		}
		return values[idx], nil
	}
}

func TestTTLCache_GetOrLoad(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testStart)
	m := metrics.NewMetricsForTesting()
	c, err := NewTTLCache[[]string]("snapshot", 16, 15*time.Minute,
		WithClock[[]string](clock),
		WithMetrics[[]string](m),
	)
	require.NoError(t, err)

	var calls int32
	load := countingLoader(&calls, []string{"a"}, []string{"b"})
	ctx := context.Background()

	got, err := c.GetOrLoad(ctx, "all", load)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got)

	clock.Advance(14 * time.Minute)
	got, err = c.GetOrLoad(ctx, "all", load)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got, "still fresh")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	clock.Advance(time.Minute)
	got, err = c.GetOrLoad(ctx, "all", load)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, got, "reloaded once the window elapsed")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("snapshot", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("snapshot", "miss")))
}

func TestTTLCache_ColdEntriesReload(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testStart)
	c, err := NewTTLCache[[]string]("news", 4, 10*time.Minute,
		WithClock[[]string](clock),
		WithColdCheck(func(v []string) bool { return len(v) == 0 }),
	)
	require.NoError(t, err)

	var calls int32
	load := countingLoader(&calls, []string{}, []string{"story"})

	got, err := c.GetOrLoad(context.Background(), "latest", load)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = c.GetOrLoad(context.Background(), "latest", load)
	require.NoError(t, err)
	assert.Equal(t, []string{"story"}, got, "empty result is never served from cache")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	_, err = c.GetOrLoad(context.Background(), "latest", load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestTTLCache_ErrorsAreNotCached(t *testing.T) {
	c, err := NewTTLCache[string]("socrata", 4, time.Minute)
	require.NoError(t, err)

	boom := errors.New("upstream down")
	_, err = c.GetOrLoad(context.Background(), "2106", func(ctx context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.lru.Len())

	got, err := c.GetOrLoad(context.Background(), "2106", func(ctx context.Context) (string, error) {
		return "payload", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "payload", got)
}

func TestTTLCache_KeysAreIndependent(t *testing.T) {
	c, err := NewTTLCache[string]("socrata", 4, time.Minute)
	require.NoError(t, err)

	ctx := context.Background()
	a, _ := c.GetOrLoad(ctx, "a", func(ctx context.Context) (string, error) { return "A", nil })
	b, _ := c.GetOrLoad(ctx, "b", func(ctx context.Context) (string, error) { return "B", nil })

	assert.Equal(t, "A", a)
	assert.Equal(t, "B", b)
	assert.Equal(t, 2, c.lru.Len())

	c.lru.Purge()
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestTTLCache_ConcurrentLoadsCollapse(t *testing.T) {
	c, err := NewTTLCache[string]("socrata", 4, time.Minute)
	require.NoError(t, err)

	var calls int32
	release := make(chan struct{})
	load := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "payload", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.GetOrLoad(context.Background(), "2106", load)
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "payload", r)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(8))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestTTLCache_CancelledCallerDoesNotFailOthers(t *testing.T) {
	c, err := NewTTLCache[string]("news", 4, time.Minute)
	require.NoError(t, err)

	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	load := func(ctx context.Context) (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "payload", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.GetOrLoad(ctx, "latest", load)
		firstErr <- err
	}()
	<-started

	second := make(chan string, 1)
	secondErr := make(chan error, 1)
	go func() {
		v, err := c.GetOrLoad(context.Background(), "latest", load)
		second <- v
		secondErr <- err
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	assert.Equal(t, "payload", <-second)
	assert.NoError(t, <-secondErr)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	got, ok := c.Get("latest")
	require.True(t, ok, "the detached load still fills the cache")
	assert.Equal(t, "payload", got)
}

func TestTTLCache_CancelledCallerSkipsLoad(t *testing.T) {
	c, err := NewTTLCache[string]("news", 4, time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.GetOrLoad(ctx, "latest", func(ctx context.Context) (string, error) {
		t.Error("no load expected for a cancelled caller")
		return "", nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTTLCache_StaleReadKeepsEntry(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testStart)
	c, err := NewTTLCache[string]("socrata", 4, time.Minute, WithClock[string](clock))
	require.NoError(t, err)

	ctx := context.Background()
	c.Set(ctx, "2106", "old")
	clock.Advance(2 * time.Minute)

	_, ok := c.Get("2106")
	assert.False(t, ok)
	assert.Equal(t, 1, c.lru.Len(), "stale reads do not evict")

	c.Set(ctx, "2106", "new")
	got, ok := c.Get("2106")
	require.True(t, ok)
	assert.Equal(t, "new", got)
}

type memorySecondLevel struct {
	mu      sync.Mutex
	values  map[string]string
	expires map[string]time.Time
	getErr  error
}

func newMemorySecondLevel() *memorySecondLevel {
	return &memorySecondLevel{values: map[string]string{}, expires: map[string]time.Time{}}
}

func (m *memorySecondLevel) Get(_ context.Context, key string) (string, time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", time.Time{}, false, m.getErr
	}
	v, ok := m.values[key]
	return v, m.expires[key], ok, nil
}

func (m *memorySecondLevel) Put(_ context.Context, key, value string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.expires[key] = expiresAt
	return nil
}

func TestTTLCache_SecondLevel(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testStart)
	l2 := newMemorySecondLevel()
	m := metrics.NewMetricsForTesting()

	newCache := func() *TTLCache[string] {
		c, err := NewTTLCache[string]("socrata", 4, 5*time.Minute,
			WithClock[string](clock),
			WithSecondLevel[string](l2),
			WithMetrics[string](m),
		)
		require.NoError(t, err)
		return c
	}

	first := newCache()
	_, err := first.GetOrLoad(context.Background(), "2106", func(ctx context.Context) (string, error) {
		return "from upstream", nil
	})
	require.NoError(t, err)
	assert.Equal(t, testStart.Add(5*time.Minute), l2.expires["2106"])

	// A second process with a cold in-memory cache is served from the shared level.
	second := newCache()
	got, err := second.GetOrLoad(context.Background(), "2106", func(ctx context.Context) (string, error) {
		t.Fatal("loader must not run on a second-level hit")
		return "", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "from upstream", got)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("socrata", "l2_hit")))

	clock.Advance(5 * time.Minute)
	third := newCache()
	got, err = third.GetOrLoad(context.Background(), "2106", func(ctx context.Context) (string, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", got, "expired second-level entries are ignored")

	l2.getErr = errors.New("throttled")
	fourth := newCache()
	got, err = fourth.GetOrLoad(context.Background(), "2106", func(ctx context.Context) (string, error) {
		return "after error", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "after error", got)
}

func TestNewTTLCache_InvalidSize(t *testing.T) {
	_, err := NewTTLCache[string]("bad", 0, time.Minute)
	assert.Error(t, err)
}
