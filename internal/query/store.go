package query

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by a Store that holds nothing for a key
var ErrMiss = errors.New("query: store miss")

// Store is a second-level cache shared between processes. Values are the
// JSON encoding of a query result.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
