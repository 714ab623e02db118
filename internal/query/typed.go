package query

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
)

// Fetch is the typed form of Cache.Fetch. When the cache has a second-level
// store, fn only runs on a store miss and its result is written back.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(ctx context.Context) (T, error), opts ...Option) Result[T] {
	return Typed[T](c.Fetch(ctx, key, c.wrap(key, erase(fn)), opts...))
}

// Peek is the typed form of Cache.Peek
func Peek[T any](c *Cache, key Key) Result[T] {
	return Typed[T](c.Peek(key))
}

// Refetch is the typed form of Cache.Refetch
func Refetch[T any](ctx context.Context, c *Cache, key Key) Result[T] {
	return Typed[T](c.Refetch(ctx, key))
}

// Reload is the typed form of Cache.Reload. The result is still written to
// the second-level store.
func Reload[T any](ctx context.Context, c *Cache, key Key, fn func(ctx context.Context) (T, error), opts ...Option) Result[T] {
	return Typed[T](c.Reload(ctx, key, c.wrap(key, erase(fn)), opts...))
}

type skipStoreReadKey struct{}

// withoutStoreRead marks ctx so wrapped fetches go to the network even when
// the store holds an entry.
func withoutStoreRead(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipStoreReadKey{}, true)
}

func storeReadAllowed(ctx context.Context) bool {
	skip, _ := ctx.Value(skipStoreReadKey{}).(bool)
	return !skip
}

func erase[T any](fn func(ctx context.Context) (T, error)) typedFetch {
	return typedFetch{
		run: func(ctx context.Context) (any, error) { return fn(ctx) },
		decode: func(b []byte) (any, error) {
			var v T
			if err := json.Unmarshal(b, &v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

type typedFetch struct {
	run    FetchFunc
	decode func([]byte) (any, error)
}

func (c *Cache) wrap(key Key, tf typedFetch) FetchFunc {
	if c.store == nil {
		return tf.run
	}
	id := key.String()
	return func(ctx context.Context) (any, error) {
		if storeReadAllowed(ctx) {
			b, err := c.store.Get(ctx, id)
			switch {
			case err == nil:
				if v, derr := tf.decode(b); derr == nil {
					return v, nil
				}
			case !errors.Is(err, ErrMiss):
				c.logger.Warn("query store read failed", zap.String("key", id), zap.Error(err))
			}
		}

		v, err := tf.run(ctx)
		if err != nil {
			return nil, err
		}
		if b, merr := json.Marshal(v); merr == nil {
			if serr := c.store.Set(ctx, id, b, c.storeTTL); serr != nil {
				c.logger.Warn("query store write failed", zap.String("key", id), zap.Error(serr))
			}
		}
		return v, nil
	}
}
