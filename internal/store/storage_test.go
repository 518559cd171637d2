// internal/store/storage_test.go
package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"scoring-api/internal/common/apperrors"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisStorage(t *testing.T) (*Storage, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStorage(client), mr
}

func TestStorage_SetGetRoundTripsStructuredValues(t *testing.T) {
	storage, _ := newMiniredisStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.Set(ctx, "i:1", []string{"books", "travel"}, 0))

	value, err := storage.Get(ctx, "i:1")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"books", "travel"}, value)
}

func TestStorage_GetDecodesNumbers(t *testing.T) {
	storage, _ := newMiniredisStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.Set(ctx, "uid:abc", 3.5, 0))

	value, err := storage.Get(ctx, "uid:abc")
	require.NoError(t, err)
	assert.Equal(t, 3.5, value)
}

func TestStorage_GetReturnsRawTextWhenNotJSON(t *testing.T) {
	storage, mr := newMiniredisStorage(t)

	mr.Set("raw", "plain text written by someone else")

	value, err := storage.Get(context.Background(), "raw")
	require.NoError(t, err)
	assert.Equal(t, "plain text written by someone else", value)
}

func TestStorage_MissingKeyIsNotAnError(t *testing.T) {
	storage, _ := newMiniredisStorage(t)

	value, err := storage.Get(context.Background(), "absent")
	assert.NoError(t, err)
	assert.Nil(t, value)
}

func TestStorage_TTLExpiryEnforcedByBackend(t *testing.T) {
	storage, mr := newMiniredisStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.Set(ctx, "uid:abc", 3.0, time.Hour))

	value, err := storage.Get(ctx, "uid:abc")
	require.NoError(t, err)
	assert.Equal(t, 3.0, value)

	mr.FastForward(2 * time.Hour)

	value, err = storage.Get(ctx, "uid:abc")
	assert.NoError(t, err)
	assert.Nil(t, value, "expired entries read as misses")
}

// ==========================
// Backend Error Mapping
// ==========================

func TestStorage_GetMapsConnectionErrors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	storage := NewStorage(client)

	mock.ExpectGet("k").SetErr(errors.New("connection refused"))

	_, err := storage.Get(context.Background(), "k")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeStoreConnection, apperrors.CodeOf(err))
	assert.True(t, apperrors.IsRetryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_GetMapsDeadlineToTimeout(t *testing.T) {
	client, mock := redismock.NewClientMock()
	storage := NewStorage(client)

	mock.ExpectGet("k").SetErr(context.DeadlineExceeded)

	_, err := storage.Get(context.Background(), "k")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeStoreTimeout, apperrors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_SetMapsErrors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	storage := NewStorage(client)

	mock.ExpectSet("k", []byte(`"v"`), 0).SetErr(errors.New("broken pipe"))

	err := storage.Set(context.Background(), "k", "v", 0)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeStoreConnection, apperrors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// fakeNetError simulates a socket timeout.
type fakeNetError struct{ timeout bool }

func (e *fakeNetError) Error() string   { return "i/o timeout" }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return true }

func TestMapBackendError(t *testing.T) {
	timeoutErr := mapBackendError(&fakeNetError{timeout: true})
	assert.Equal(t, apperrors.ErrCodeStoreTimeout, apperrors.CodeOf(timeoutErr))

	connErr := mapBackendError(&fakeNetError{timeout: false})
	assert.Equal(t, apperrors.ErrCodeStoreConnection, apperrors.CodeOf(connErr))

	plainErr := mapBackendError(errors.New("boom"))
	assert.Equal(t, apperrors.ErrCodeStoreConnection, apperrors.CodeOf(plainErr))
}
