package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kirinyoku/tix-ledger/internal/clock"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, rdb
}

type view struct {
	Title string `json:"title"`
}

func TestGetOrSetJSONCachesLoaderResult(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	cache := New(rdb)

	var loads atomic.Int32
	loader := func(context.Context) (view, error) {
		loads.Add(1)
		return view{Title: "Launch"}, nil
	}

	for range 3 {
		v, err := GetOrSetJSON(ctx, cache, KeyEventView(0), time.Minute, loader)
		require.NoError(t, err)
		assert.Equal(t, "Launch", v.Title)
	}

	assert.Equal(t, int32(1), loads.Load())
	assert.True(t, mr.Exists(KeyEventView(0)))
	assert.Equal(t, time.Minute, mr.TTL(KeyEventView(0)))
}

func TestGetOrSetJSONDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	cache := New(rdb)
	missing := errors.New("missing")

	_, err := GetOrSetJSON(ctx, cache, KeyCatalogView(), time.Minute, func(context.Context) (view, error) {
		return view{}, missing
	})
	assert.ErrorIs(t, err, missing)
	assert.False(t, mr.Exists(KeyCatalogView()))
}

func TestNilCacheCallsLoader(t *testing.T) {
	var cache *Cache

	v, err := GetOrSetJSON(context.Background(), cache, KeyCatalogView(), time.Minute, func(context.Context) (view, error) {
		return view{Title: "direct"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "direct", v.Title)
	assert.NoError(t, cache.Invalidate(context.Background(), CatalogChanged("x")))
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	cache := New(rdb)

	var owner domain.Key
	owner[0] = 7

	for _, k := range []string{KeyCatalogView(), KeyEventView(3), KeyTicketView(3, owner)} {
		require.NoError(t, mr.Set(k, "{}"))
	}

	require.NoError(t, cache.Invalidate(ctx, TicketChanged("t", 3, owner)))
	assert.False(t, mr.Exists(KeyTicketView(3, owner)))
	assert.True(t, mr.Exists(KeyEventView(3)))

	require.NoError(t, cache.Invalidate(ctx, EventChanged("e", 3)))
	assert.False(t, mr.Exists(KeyEventView(3)))
	assert.True(t, mr.Exists(KeyCatalogView()))

	require.NoError(t, cache.Invalidate(ctx, CatalogChanged("c")))
	assert.False(t, mr.Exists(KeyCatalogView()))
}

func TestIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	store := NewIdempotencyStore(rdb, time.Hour)

	ok, err := store.AcquireLock(ctx, "abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.AcquireLock(ctx, "abc", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	lock, err := mr.Get(KeyIdempotency("abc"))
	require.NoError(t, err)
	assert.Equal(t, "LOCK", lock)

	_, found, err := store.GetResult(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, found)

	want := StoredResponse{Status: 201, Body: json.RawMessage(`{"op":"initialize"}`)}
	require.NoError(t, store.SaveResult(ctx, "abc", want))
	assert.Equal(t, time.Hour, mr.TTL(KeyIdempotency("abc")))

	got, found, err := store.GetResult(ctx, "abc")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want.Status, got.Status)
	assert.JSONEq(t, string(want.Body), string(got.Body))

	require.NoError(t, store.Release(ctx, "abc"))
	assert.False(t, mr.Exists(KeyIdempotency("abc")))
}

func TestSlidingWindowLimiter(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestRedis(t)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewSlidingWindowLimiter(rdb, "tx", 2, time.Minute, clock.NewFixed(start))

	for i := 1; i <= 2; i++ {
		d, err := limiter.Allow(ctx, "signer")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, int64(i), d.Hits)
	}

	// Rejected hits are not counted against the window.
	for range 2 {
		d, err := limiter.Allow(ctx, "signer")
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, int64(2), d.Hits)
		assert.Equal(t, time.Minute, d.RetryAfter)
	}

	d, err := limiter.Allow(ctx, "someone-else")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	halfway := NewSlidingWindowLimiter(rdb, "tx", 2, time.Minute, clock.NewFixed(start.Add(15*time.Second)))
	d, err = halfway.Allow(ctx, "signer")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 45*time.Second, d.RetryAfter)

	later := NewSlidingWindowLimiter(rdb, "tx", 2, time.Minute, clock.NewFixed(start.Add(2*time.Minute)))
	d, err = later.Allow(ctx, "signer")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, int64(1), d.Hits)
}

func TestRecordsPubSub(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, rdb := newTestRedis(t)
	ps := NewRecordsPubSub(rdb, clock.NewFixed(time.Unix(1700000000, 0)))

	got := make(chan RecordChange, 1)
	done := make(chan error, 1)
	go func() {
		done <- ps.Subscribe(ctx, func(_ context.Context, change RecordChange) {
			got <- change
		})
	}()

	require.Eventually(t, func() bool {
		n, err := rdb.PubSubNumSub(ctx, ChannelRecordsChanged()).Result()
		return err == nil && n[ChannelRecordsChanged()] == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, ps.PublishRecordChanged(ctx, EventChanged("addr", 5)))

	select {
	case change := <-got:
		assert.Equal(t, domain.KindEvent, change.Kind)
		assert.Equal(t, "addr", change.Address)
		require.NotNil(t, change.EventID)
		assert.Equal(t, uint32(5), *change.EventID)
		assert.Nil(t, change.Owner)
		assert.Equal(t, int64(1700000000), change.TsUnix)
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	var nilPubSub *RecordsPubSub
	assert.NoError(t, nilPubSub.PublishRecordChanged(ctx, CatalogChanged("c")))
}
