package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newIdempotencyStore(t *testing.T) (*IdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewIdempotencyStore(client, time.Hour), mr
}

func TestIdempotencyCheckAndInsert(t *testing.T) {
	store, mr := newIdempotencyStore(t)
	ctx := context.Background()

	require.NoError(t, store.CheckAndInsert(ctx, "abc", "procurement"))
	require.ErrorIs(t, store.CheckAndInsert(ctx, "abc", "procurement"), ErrIdempotencyConflict)
	require.NoError(t, store.CheckAndInsert(ctx, "abc", "inventory"))

	require.NoError(t, store.Delete(ctx, "abc", "procurement"))
	require.NoError(t, store.CheckAndInsert(ctx, "abc", "procurement"))

	mr.FastForward(2 * time.Hour)
	require.NoError(t, store.CheckAndInsert(ctx, "abc", "procurement"))

	require.Error(t, store.CheckAndInsert(ctx, "", "procurement"))
}

func TestIdempotencyMiddleware(t *testing.T) {
	store, _ := newIdempotencyStore(t)
	calls := 0
	status := http.StatusCreated
	handler := store.Middleware("procurement", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	}))

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/procurement/requisitions", nil)
		req.Header.Set(IdempotencyHeader, "key-1")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	require.Equal(t, http.StatusCreated, send())
	require.Equal(t, http.StatusConflict, send())
	require.Equal(t, 1, calls)

	status = http.StatusBadRequest
	store2, _ := newIdempotencyStore(t)
	handler = store2.Middleware("procurement", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	}))
	require.Equal(t, http.StatusBadRequest, send())
	require.Equal(t, http.StatusBadRequest, send())
	require.Equal(t, 3, calls)
}

func TestIdempotencyMiddlewareWithoutStore(t *testing.T) {
	var store *IdempotencyStore
	handler := store.Middleware("procurement", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(IdempotencyHeader, "k")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusAccepted, rr.Code)
}
