// internal/store/store.go
package store

import (
	"context"
	"math/rand"
	"time"

	"scoring-api/internal/common/config"
	"scoring-api/internal/common/logger"
	"scoring-api/internal/common/metrics"
)

// Backend is the raw key-value client the facade wraps.
type Backend interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Store is the resilient facade over a Backend: bounded retries with jittered
// backoff for get/set, and best-effort single-attempt cache operations whose
// errors are suppressed. It owns no state beyond the backend connection and is
// safe for concurrent use.
type Store struct {
	backend    Backend
	maxRetries int
	retryDelay time.Duration
	logger     logger.Logger
}

func New(backend Backend, cfg config.StoreConfig, log logger.Logger) *Store {
	return &Store{
		backend:    backend,
		maxRetries: cfg.MaxRetries,
		retryDelay: time.Duration(cfg.RetryDelay) * time.Millisecond,
		logger:     log,
	}
}

// Set writes key, retrying on any backend failure. Exhausting the retry
// budget surfaces the last failure to the caller.
func (s *Store) Set(ctx context.Context, key string, value interface{}) error {
	return s.withRetry(ctx, "set", func() error {
		return s.backend.Set(ctx, key, value, 0)
	})
}

// Get reads key with the same retry budget as Set. When every attempt fails
// and useCacheOnError is set, it degrades to a best-effort cache read instead
// of propagating the failure: availability over consistency.
func (s *Store) Get(ctx context.Context, key string, useCacheOnError bool) (interface{}, error) {
	var value interface{}
	err := s.withRetry(ctx, "get", func() error {
		var opErr error
		value, opErr = s.backend.Get(ctx, key)
		return opErr
	})
	if err != nil {
		if useCacheOnError {
			cached, _ := s.CacheGet(ctx, key)
			return cached, nil
		}
		return nil, err
	}
	return value, nil
}

// CacheGet is a single-attempt read whose failures are part of the contract:
// the ok result is false both for a miss and for a backend error.
func (s *Store) CacheGet(ctx context.Context, key string) (interface{}, bool) {
	value, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).Debug("cache get failed", map[string]interface{}{"key": key})
		return nil, false
	}
	if value == nil {
		return nil, false
	}
	return value, true
}

// CacheSet is a single-attempt write; a failure only costs a future cache miss.
func (s *Store) CacheSet(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if err := s.backend.Set(ctx, key, value, ttl); err != nil {
		s.logger.WithError(err).Warn("cache set failed", map[string]interface{}{"key": key})
	}
}

func (s *Store) withRetry(ctx context.Context, operation string, fn func() error) error {
	var err error
	delay := s.retryDelay

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}

		if attempt < s.maxRetries {
			metrics.StoreRetriesTotal.WithLabelValues(operation).Inc()
			s.logger.WithError(err).Warn("store operation failed, retrying", map[string]interface{}{
				"operation":   operation,
				"attempt":     attempt,
				"maxRetries":  s.maxRetries,
				"nextRetryIn": delay,
			})
			sleep(ctx, withJitter(delay))
			delay *= 2
		}
	}

	metrics.StoreFailuresTotal.WithLabelValues(operation).Inc()
	return err
}

// withJitter spreads retries over [d/2, 3d/2) to avoid retry storms against a
// struggling backend.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d/2 + time.Duration(rand.Int63n(int64(d)))
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
