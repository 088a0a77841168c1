package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/tansaku/internal/models"
)

type brokenStore struct {
	getErr, setErr error
	data           []byte
}

func (b *brokenStore) Get(ctx context.Context, key string) ([]byte, error) {
	if b.getErr != nil {
		return nil, b.getErr
	}
	if b.data == nil {
		return nil, ErrMiss
	}
	return b.data, nil
}

func (b *brokenStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.setErr
}

func (b *brokenStore) Close() error { return nil }

func docs() []models.ScoredDocument {
	return []models.ScoredDocument{
		{Document: models.NewDocument("unemployment rose", "s1", "Labour", 0), Score: 0.9},
		{Document: models.NewDocument("wages flat", "s2", "Wages", 3), Score: 0.4},
	}
}

func TestGetOrCompute_RoundTrip(t *testing.T) {
	c := New(NewMemoryStore())
	ctx := context.Background()
	var calls int
	compute := func(context.Context) ([]models.ScoredDocument, error) {
		calls++
		return docs(), nil
	}

	first, err := GetOrCompute(ctx, c, "k", time.Hour, compute)
	require.NoError(t, err)
	second, err := GetOrCompute(ctx, c, "k", time.Hour, compute)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestGetOrCompute_StoreErrorsFallThrough(t *testing.T) {
	store := &brokenStore{}
	c := New(store)
	ctx := context.Background()
	var calls int
	compute := func(context.Context) (string, error) {
		calls++
		return "fresh", nil
	}

	v, err := GetOrCompute(ctx, c, "k", time.Hour, compute)
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)

	store.getErr = errors.New("connection reset")
	store.setErr = errors.New("read-only replica")
	v, err = GetOrCompute(ctx, c, "k", time.Hour, compute)
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, 2, calls)
}

func TestGetOrCompute_UndecodableEntryIsMiss(t *testing.T) {
	c := New(&brokenStore{data: []byte("{not json")})
	v, err := GetOrCompute(context.Background(), c, "k", time.Hour, func(context.Context) ([]string, error) {
		return []string{"ok"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, v)
}

func TestGetOrCompute_ComputeErrorNotCached(t *testing.T) {
	store := NewMemoryStore()
	c := New(store)
	ctx := context.Background()
	boom := errors.New("vector store down")

	_, err := GetOrCompute(ctx, c, "k", time.Hour, func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.Len())

	v, err := GetOrCompute(ctx, c, "k", time.Hour, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestGetOrCompute_NilCacheComputes(t *testing.T) {
	var c *Cache
	v, err := GetOrCompute(context.Background(), c, "k", time.Hour, func(context.Context) (string, error) { return "x", nil })
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestGetOrCompute_ExpiredEntryRecomputes(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	c := New(store)
	ctx := context.Background()
	var calls int
	compute := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	_, _ = GetOrCompute(ctx, c, "k", time.Minute, compute)
	now = now.Add(30 * time.Second)
	v, _ := GetOrCompute(ctx, c, "k", time.Minute, compute)
	assert.Equal(t, 1, v)

	now = now.Add(time.Minute)
	v, _ = GetOrCompute(ctx, c, "k", time.Minute, compute)
	assert.Equal(t, 2, v)
}

func TestGetOrCompute_ConcurrentMissesShareComputation(t *testing.T) {
	c := New(NewMemoryStore())
	var calls int32
	release := make(chan struct{})
	compute := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "v", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := GetOrCompute(context.Background(), c, "k", time.Hour, compute)
			assert.NoError(t, err)
			assert.Equal(t, "v", v)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(8))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestGetOrCompute_CancelledCallerDoesNotFailOthers(t *testing.T) {
	c := New(NewMemoryStore())
	var calls int32
	release := make(chan struct{})
	compute := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "v", nil
	}

	first, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := GetOrCompute(first, c, "k", time.Hour, compute)
		firstErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	type result struct {
		v   string
		err error
	}
	second := make(chan result, 1)
	go func() {
		v, err := GetOrCompute(context.Background(), c, "k", time.Hour, compute)
		second <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(release)
	select {
	case r := <-second:
		require.NoError(t, r.err)
		assert.Equal(t, "v", r.v)
	case <-time.After(time.Second):
		t.Fatal("live caller did not return")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	cached, err := GetOrCompute(context.Background(), c, "k", time.Hour, func(context.Context) (string, error) {
		return "", errors.New("should be cached")
	})
	require.NoError(t, err)
	assert.Equal(t, "v", cached)
}

func TestGetOrCompute_ComputeTimeoutBoundsSharedWork(t *testing.T) {
	c := New(NewMemoryStore(), WithComputeTimeout(30*time.Millisecond))
	_, err := GetOrCompute(context.Background(), c, "slow", time.Hour, func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, HybridSearchKey("  Youth Unemployment ", 10), HybridSearchKey("youth unemployment", 10))
	assert.NotEqual(t, HybridSearchKey("youth unemployment", 10), HybridSearchKey("youth unemployment", 5))
	assert.Contains(t, HybridSearchKey("q", 1), "hybrid_search:")

	p := models.DemographicProfile{AgeGroup: "18-24", Location: " Lisbon", Education: "Secondary", Gender: ""}
	assert.Equal(t, "graph_context:18-24:lisbon:secondary:", GraphContextKey(p))
}

func TestOpenStore(t *testing.T) {
	s, err := OpenStore(StoreOptions{Backend: BackendNone})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = OpenStore(StoreOptions{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = OpenStore(StoreOptions{Backend: BackendRedis})
	assert.Error(t, err)
	_, err = OpenStore(StoreOptions{Backend: "memcached"})
	assert.Error(t, err)
}

func TestGetOrComputeIf_SkipsUncacheable(t *testing.T) {
	store := NewMemoryStore()
	c := New(store)
	ctx := context.Background()
	var calls int
	compute := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}
	onlyEven := func(v int) bool { return v%2 == 0 }

	v, _ := GetOrComputeIf(ctx, c, "k", time.Hour, compute, onlyEven)
	assert.Equal(t, 1, v)
	assert.Equal(t, 0, store.Len())

	v, _ = GetOrComputeIf(ctx, c, "k", time.Hour, compute, onlyEven)
	assert.Equal(t, 2, v)
	v, _ = GetOrComputeIf(ctx, c, "k", time.Hour, compute, onlyEven)
	assert.Equal(t, 2, v, "even result should now be served from the cache")
}
