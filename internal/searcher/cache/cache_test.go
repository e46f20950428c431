package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/searchdb"
)

type memoryBackend struct {
	mu      sync.Mutex
	data    map[string]string
	failGet bool
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{data: make(map[string]string)}
}

func (m *memoryBackend) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return "", errors.New("connection refused")
	}
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryBackend) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	return nil
}

func (m *memoryBackend) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func (m *memoryBackend) CountByPattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			n++
		}
	}
	return n, nil
}

func results(gen uint64, ids ...string) *searchdb.Results {
	r := &searchdb.Results{Generation: gen, TotalCandidates: len(ids)}
	for _, id := range ids {
		hit := searchdb.Hit{Name: id, Class: "Tenant"}
		hit.ID = id
		hit.PrimaryScore = 2
		r.Hits = append(r.Hits, hit)
	}
	return r
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "#Tenant =APP1", Normalize("  =APP1   #Tenant "))
	assert.Equal(t, Normalize("leaf #Node"), Normalize("#Node leaf"))
	assert.Equal(t, "leaf leaf", Normalize("leaf  leaf"))
	assert.NotEqual(t, Normalize("Leaf"), Normalize("leaf"))
	assert.Equal(t, "", Normalize("   "))
}

func TestKeyIncludesGeneration(t *testing.T) {
	assert.Equal(t, Key(3, "a b"), Key(3, "b  a"))
	assert.NotEqual(t, Key(3, "a b"), Key(4, "a b"))
	assert.Contains(t, Key(7, "x"), keyPrefix+"g7:")
}

func TestGetOrComputeCachesResult(t *testing.T) {
	qc := New(newMemoryBackend(), time.Minute, nil)
	ctx := context.Background()
	var calls atomic.Int32
	compute := func() (*searchdb.Results, error) {
		calls.Add(1)
		return results(1, "uni/tn-a"), nil
	}

	first, hit, err := qc.GetOrCompute(ctx, 1, "#Tenant", compute)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := qc.GetOrCompute(ctx, 1, " #Tenant ", compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.Hits, second.Hits)
	assert.Equal(t, " #Tenant ", second.Query)
	assert.Equal(t, int32(1), calls.Load())

	_, hit, err = qc.GetOrCompute(ctx, 2, "#Tenant", func() (*searchdb.Results, error) {
		calls.Add(1)
		return results(2, "uni/tn-b"), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int32(2), calls.Load())

	stats := qc.Stats(ctx)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, int64(2), stats.Keys)
}

func TestGetOrComputePropagatesError(t *testing.T) {
	qc := New(newMemoryBackend(), time.Minute, nil)
	boom := errors.New("boom")
	_, _, err := qc.GetOrCompute(context.Background(), 1, "x", func() (*searchdb.Results, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, qc.Stats(context.Background()).Keys)
}

func TestBackendErrorsDegradeToMiss(t *testing.T) {
	backend := newMemoryBackend()
	backend.failGet = true
	qc := New(backend, time.Minute, nil)
	res, hit, err := qc.GetOrCompute(context.Background(), 1, "x", func() (*searchdb.Results, error) {
		return results(1, "a"), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, res.Hits, 1)
}

func TestInvalidateAndOnRebuild(t *testing.T) {
	backend := newMemoryBackend()
	qc := New(backend, time.Minute, nil)
	ctx := context.Background()
	qc.Set(ctx, "a", results(1, "x"))
	qc.Set(ctx, "b", results(1, "y"))
	backend.data["unrelated"] = "keep"

	n, err := qc.Invalidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Contains(t, backend.data, "unrelated")

	qc.Set(ctx, "a", results(1, "x"))
	qc.OnRebuild(ctx, searchdb.RebuildInfo{Generation: 2})
	_, ok := qc.Get(ctx, 1, "a")
	assert.False(t, ok)
}
