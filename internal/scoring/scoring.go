// Package scoring holds the business logic behind the online_score and
// clients_interests methods.
package scoring

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"time"
)

// DefaultCacheTTL is how long a computed score stays cached.
const DefaultCacheTTL = 3600 * time.Second

// Store is the slice of the store facade scoring needs: a retried read with
// cache fallback for interests, and best-effort cache operations for scores.
type Store interface {
	Get(ctx context.Context, key string, useCacheOnError bool) (interface{}, error)
	CacheGet(ctx context.Context, key string) (interface{}, bool)
	CacheSet(ctx context.Context, key string, value interface{}, ttl time.Duration)
}

// Params are the validated online_score arguments. Empty strings mean the
// field was absent; Gender is a pointer because 0 is a legitimate value.
type Params struct {
	Phone     string
	Email     string
	Birthday  string
	Gender    *int64
	FirstName string
	LastName  string
}

// CacheKey derives the deterministic cache key for a score computation. It is
// a pure function of the identity fields and stable across processes.
func CacheKey(p Params) string {
	sum := md5.Sum([]byte(p.FirstName + p.LastName + p.Phone + p.Birthday))
	return "uid:" + hex.EncodeToString(sum[:])
}

// Score returns the score for the given identity, memoized through the cache.
// A cached non-zero value short-circuits the computation. A computed zero is
// returned but never cached, so a later call with the same key can recompute
// in case the underlying signals changed externally.
func Score(ctx context.Context, st Store, ttl time.Duration, p Params) float64 {
	key := CacheKey(p)

	if cached, ok := st.CacheGet(ctx, key); ok {
		if score, ok := toFloat(cached); ok && score != 0 {
			return score
		}
	}

	score := 0.0
	if p.Phone != "" {
		score += 1.5
	}
	if p.Email != "" {
		score += 1.5
	}
	// Gender 0 (unknown) contributes nothing even though it is a valid value.
	if p.Birthday != "" && p.Gender != nil && *p.Gender != 0 {
		score += 1.5
	}
	if p.FirstName != "" && p.LastName != "" {
		score += 0.5
	}

	if score != 0 {
		st.CacheSet(ctx, key, score, ttl)
	}
	return score
}

// Interests returns the interests recorded for a client id, or an empty list
// when nothing is stored. Backend failures degrade to the cache fallback
// inside the store facade rather than failing the lookup.
func Interests(ctx context.Context, st Store, clientID int64) ([]interface{}, error) {
	value, err := st.Get(ctx, "i:"+strconv.FormatInt(clientID, 10), true)
	if err != nil {
		return nil, err
	}
	list, _ := value.([]interface{})
	if list == nil {
		list = []interface{}{}
	}
	return list, nil
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}
