// internal/store/store_test.go
package store

import (
	"context"
	"testing"
	"time"

	"scoring-api/internal/common/apperrors"
	"scoring-api/internal/common/config"
	"scoring-api/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

// fakeBackend fails a configurable number of attempts per operation before
// succeeding, and records every call.
type fakeBackend struct {
	data map[string]interface{}

	failGets int
	failSets int
	failErr  error

	getCalls int
	setCalls int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		data:    make(map[string]interface{}),
		failErr: apperrors.NewStoreConnectionError(assert.AnError),
	}
}

func (f *fakeBackend) Get(ctx context.Context, key string) (interface{}, error) {
	f.getCalls++
	if f.failGets > 0 {
		f.failGets--
		return nil, f.failErr
	}
	return f.data[key], nil
}

func (f *fakeBackend) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.setCalls++
	if f.failSets > 0 {
		f.failSets--
		return f.failErr
	}
	f.data[key] = value
	return nil
}

func testStoreConfig() config.StoreConfig {
	return config.StoreConfig{
		MaxRetries: 5,
		RetryDelay: 1, // keep backoff negligible in tests
		CacheTTL:   3600,
	}
}

func newTestStore(backend Backend) *Store {
	return New(backend, testStoreConfig(), logger.NewNoOpLogger())
}

// ==========================
// Retry Semantics
// ==========================

func TestStore_SetRetriesTransientFailures(t *testing.T) {
	backend := newFakeBackend()
	backend.failSets = 2

	st := newTestStore(backend)
	err := st.Set(context.Background(), "k", "v")

	assert.NoError(t, err)
	assert.Equal(t, 3, backend.setCalls, "two failures plus the success")
	assert.Equal(t, "v", backend.data["k"])
}

func TestStore_SetSurfacesLastErrorAfterExhaustion(t *testing.T) {
	backend := newFakeBackend()
	backend.failSets = 100

	st := newTestStore(backend)
	err := st.Set(context.Background(), "k", "v")

	require.Error(t, err)
	assert.Equal(t, 5, backend.setCalls, "bounded at maxRetries attempts")
	assert.True(t, apperrors.IsRetryable(err))
}

func TestStore_GetRetriesThenSucceeds(t *testing.T) {
	backend := newFakeBackend()
	backend.data["k"] = "stored"
	backend.failGets = 4

	st := newTestStore(backend)
	value, err := st.Get(context.Background(), "k", false)

	assert.NoError(t, err)
	assert.Equal(t, "stored", value)
	assert.Equal(t, 5, backend.getCalls)
}

func TestStore_GetWithoutFallbackPropagates(t *testing.T) {
	backend := newFakeBackend()
	backend.failGets = 100

	st := newTestStore(backend)
	_, err := st.Get(context.Background(), "k", false)

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeStoreConnection, apperrors.CodeOf(err))
}

// ==========================
// Cache Fallback
// ==========================

func TestStore_GetFallsBackToCacheAfterExhaustion(t *testing.T) {
	backend := newFakeBackend()
	backend.data["k"] = "cached value"
	// 5 retried attempts fail; the single cache attempt succeeds.
	backend.failGets = 5

	st := newTestStore(backend)
	value, err := st.Get(context.Background(), "k", true)

	assert.NoError(t, err)
	assert.Equal(t, "cached value", value)
	assert.Equal(t, 6, backend.getCalls)
}

func TestStore_GetFallbackMayBeEmpty(t *testing.T) {
	backend := newFakeBackend()
	backend.failGets = 100 // backend down for good, cache attempt fails too

	st := newTestStore(backend)
	value, err := st.Get(context.Background(), "missing", true)

	assert.NoError(t, err, "fallback never raises")
	assert.Nil(t, value)
}

// ==========================
// Best-Effort Cache Operations
// ==========================

func TestStore_CacheGetSingleAttempt(t *testing.T) {
	backend := newFakeBackend()
	backend.data["k"] = float64(3)

	st := newTestStore(backend)
	value, ok := st.CacheGet(context.Background(), "k")

	assert.True(t, ok)
	assert.Equal(t, float64(3), value)
	assert.Equal(t, 1, backend.getCalls)
}

func TestStore_CacheGetSuppressesErrors(t *testing.T) {
	backend := newFakeBackend()
	backend.failGets = 1

	st := newTestStore(backend)
	value, ok := st.CacheGet(context.Background(), "k")

	assert.False(t, ok)
	assert.Nil(t, value)
	assert.Equal(t, 1, backend.getCalls, "no retry on cache reads")
}

func TestStore_CacheGetMiss(t *testing.T) {
	st := newTestStore(newFakeBackend())
	_, ok := st.CacheGet(context.Background(), "absent")
	assert.False(t, ok)
}

func TestStore_CacheSetSwallowsErrors(t *testing.T) {
	backend := newFakeBackend()
	backend.failSets = 1

	st := newTestStore(backend)
	// must not panic or surface anything
	st.CacheSet(context.Background(), "k", 1.5, time.Hour)

	assert.Equal(t, 1, backend.setCalls)
	assert.NotContains(t, backend.data, "k")
}

func TestWithJitter_StaysAroundBase(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 50; i++ {
		d := withJitter(base)
		assert.GreaterOrEqual(t, d, base/2)
		assert.Less(t, d, base*3/2)
	}
	assert.Equal(t, time.Duration(0), withJitter(0))
}
