// internal/store/storage.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"

	"scoring-api/internal/common/apperrors"

	"github.com/redis/go-redis/v9"
)

// Storage is the raw backend client: single-attempt get/set against the
// key-value service, with backend failures mapped onto the store error
// taxonomy (timeout vs connection).
type Storage struct {
	client *redis.Client
}

func NewStorage(client *redis.Client) *Storage {
	return &Storage{client: client}
}

// Get fetches key and decodes stored JSON values when possible, otherwise
// returns the raw text. A missing key is (nil, nil), not an error.
func (s *Storage) Get(ctx context.Context, key string) (interface{}, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, mapBackendError(err)
	}

	var decoded interface{}
	if json.Unmarshal([]byte(val), &decoded) == nil {
		return decoded, nil
	}
	return val, nil
}

// Set writes key with an optional TTL (0 means no expiry). Values are stored
// JSON-encoded so Get round-trips them as structured data.
func (s *Storage) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return mapBackendError(err)
	}
	return nil
}

func mapBackendError(err error) error {
	var netErr net.Error
	if (errors.As(err, &netErr) && netErr.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewStoreTimeoutError(err)
	}
	return apperrors.NewStoreConnectionError(err)
}
