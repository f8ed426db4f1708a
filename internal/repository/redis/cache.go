package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache stores JSON read views. A nil *Cache is valid and caches nothing.
type Cache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func New(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}

	return c.rdb.Del(ctx, keys...).Err()
}

// readView decodes the view cached at key. A miss is (zero, false, nil).
func readView[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	var view T

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return view, false, nil
	case err != nil:
		return view, false, err
	}

	if err := json.Unmarshal(raw, &view); err != nil {
		return view, false, err
	}

	return view, true, nil
}

func writeView(ctx context.Context, c *Cache, key string, view any, ttl time.Duration) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, key, raw, ttl).Err()
}

// GetOrSetJSON returns the view cached at key, or calls loader once per key
// across concurrent callers and caches what it returns. Loader errors are
// never cached. A cache read failure falls through to the loader.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	if c == nil {
		return loader(ctx)
	}

	if view, ok, err := readView[T](ctx, c, key); err == nil && ok {
		return view, nil
	}

	shared, err, _ := c.sf.Do(key, func() (any, error) {
		if view, ok, err := readView[T](ctx, c, key); err == nil && ok {
			return view, nil
		}

		view, err := loader(ctx)
		if err != nil {
			return nil, err
		}

		_ = writeView(ctx, c, key, view, ttl)
		return view, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	view, ok := shared.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("redisrepo.GetOrSetJSON: unexpected %T for %s", shared, key)
	}

	return view, nil
}

// Invalidate drops the cached view of the record a change describes.
func (c *Cache) Invalidate(ctx context.Context, change RecordChange) error {
	if c == nil {
		return nil
	}

	switch {
	case change.Owner != nil && change.EventID != nil:
		return c.Del(ctx, KeyTicketView(*change.EventID, *change.Owner))
	case change.EventID != nil:
		return c.Del(ctx, KeyEventView(*change.EventID))
	default:
		return c.Del(ctx, KeyCatalogView())
	}
}
