package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/searcher/fusion"
)

type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	failGet bool
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, errors.New("connection refused")
	}
	v, ok := m.data[key]
	if !ok {
		return nil, goredis.Nil
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func sampleResponse() *fusion.Response {
	return &fusion.Response{
		Query:      "fever",
		Provenance: fusion.ProvenanceLexical,
		Results:    []fusion.Result{{DocID: 3, Score: 1.2, Lexical: 1.2}},
		IndexGen:   1,
	}
}

func TestGetOrComputeCachesResponse(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	k := Key{Query: "Fever", Limit: 10, Mode: fusion.ModeFallback, Generation: 1}
	var calls atomic.Int32
	compute := func() (*fusion.Response, error) {
		calls.Add(1)
		return sampleResponse(), nil
	}

	resp, hit, err := c.GetOrCompute(context.Background(), k, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []int{3}, resp.DocIDs())

	k.Query = "  fever "
	resp, hit, err = c.GetOrCompute(context.Background(), k, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, fusion.ProvenanceLexical, resp.Provenance)
	assert.Equal(t, int32(1), calls.Load())

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestKeyIncludesGenerationAndMode(t *testing.T) {
	base := Key{Query: "fever", Limit: 10, Mode: fusion.ModeFallback, Generation: 1}
	other := base
	other.Generation = 2
	assert.NotEqual(t, buildKey(base), buildKey(other))
	other = base
	other.Mode = fusion.ModeHybrid
	assert.NotEqual(t, buildKey(base), buildKey(other))
	other = base
	other.Alpha = 0.5
	assert.NotEqual(t, buildKey(base), buildKey(other))
	other = base
	other.Query = "pain fever"
	assert.NotEqual(t, buildKey(base), buildKey(other))
}

func TestDegradedResponsesNotCached(t *testing.T) {
	store := newMemStore()
	c := New(store, time.Minute, nil)
	resp := sampleResponse()
	resp.Degraded = true
	c.Set(context.Background(), Key{Query: "x"}, resp)
	assert.Empty(t, store.data)
}

func TestComputeErrorPropagates(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	_, _, err := c.GetOrCompute(context.Background(), Key{Query: "x"}, func() (*fusion.Response, error) {
		return nil, errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
}

func TestStoreErrorCountsAsMiss(t *testing.T) {
	store := newMemStore()
	store.failGet = true
	c := New(store, time.Minute, nil)
	_, ok := c.Get(context.Background(), Key{Query: "x"})
	assert.False(t, ok)
	_, misses := c.Stats()
	assert.Equal(t, int64(1), misses)
}

func TestInvalidate(t *testing.T) {
	store := newMemStore()
	c := New(store, time.Minute, nil)
	c.Set(context.Background(), Key{Query: "a"}, sampleResponse())
	c.Set(context.Background(), Key{Query: "b"}, sampleResponse())

	n, err := c.Invalidate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	_, ok := c.Get(context.Background(), Key{Query: "a"})
	assert.False(t, ok)
}
