package query

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/pageza/recipebook/internal/logger"
)

// FetchFunc loads the data for one key
type FetchFunc func(ctx context.Context) (any, error)

type options struct {
	enabled   bool
	staleTime time.Duration
}

// Option tunes a single query
type Option func(*options)

// Enabled gates the query. A disabled query never fetches and reports
// StatusIdle.
func Enabled(enabled bool) Option {
	return func(o *options) { o.enabled = enabled }
}

// StaleTime makes cached data older than d trigger a new fetch. Zero keeps
// data until it is refetched or invalidated.
func StaleTime(d time.Duration) Option {
	return func(o *options) { o.staleTime = d }
}

func buildOptions(opts []Option) options {
	o := options{enabled: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type entry struct {
	key     Key
	state   State
	fetch   FetchFunc
	subs    map[int]chan State
	nextSub int
	// gen counts started fetches; only the newest may settle
	gen uint64
}

// Cache deduplicates and caches fetches by Key
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	group   singleflight.Group

	store    Store
	storeTTL time.Duration
	logger   *zap.Logger
}

// CacheOption configures a Cache
type CacheOption func(*Cache)

// WithStore adds a second-level store consulted before the network. Entries
// are written with ttl.
func WithStore(store Store, ttl time.Duration) CacheOption {
	return func(c *Cache) {
		c.store = store
		c.storeTTL = ttl
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) CacheOption {
	return func(c *Cache) { c.logger = logger.OrNop(l) }
}

// New creates an empty cache
func New(opts ...CacheOption) *Cache {
	c := &Cache{
		entries: make(map[string]*entry),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) entryLocked(id string, key Key) *entry {
	e, ok := c.entries[id]
	if !ok {
		e = &entry{key: key, subs: make(map[int]chan State)}
		c.entries[id] = e
	}
	return e
}

// Fetch returns the cached result for key, running fn when nothing usable
// is cached. Concurrent calls for the same key share one fn invocation.
// The shared fetch is not cancelled with ctx; a caller whose ctx ends gets
// ctx.Err() while the result still lands in the cache.
func (c *Cache) Fetch(ctx context.Context, key Key, fn FetchFunc, opts ...Option) State {
	o := buildOptions(opts)
	if !o.enabled {
		return State{Status: StatusIdle}
	}

	id := key.String()
	c.mu.Lock()
	e := c.entryLocked(id, key)
	e.fetch = fn
	if e.state.Status == StatusSuccess && !isStale(e.state, o.staleTime) {
		st := e.state
		c.mu.Unlock()
		return st
	}
	c.mu.Unlock()

	return c.run(ctx, id, fn)
}

// Refetch discards the cached result for key and runs its most recent
// fetch function again. Other keys are untouched. Without a registered
// fetch function it returns the idle state.
func (c *Cache) Refetch(ctx context.Context, key Key) State {
	id := key.String()
	c.mu.Lock()
	e, ok := c.entries[id]
	if !ok || e.fetch == nil {
		c.mu.Unlock()
		return State{Status: StatusIdle}
	}
	fn := e.fetch
	c.mu.Unlock()

	return c.reload(ctx, id, fn)
}

// Reload registers fn for key and runs it at once, ignoring both cache
// levels. Use it after a mutation when the key may never have been fetched
// by this cache.
func (c *Cache) Reload(ctx context.Context, key Key, fn FetchFunc, opts ...Option) State {
	if !buildOptions(opts).enabled {
		return State{Status: StatusIdle}
	}
	id := key.String()
	c.mu.Lock()
	c.entryLocked(id, key).fetch = fn
	c.mu.Unlock()
	return c.reload(ctx, id, fn)
}

func (c *Cache) reload(ctx context.Context, id string, fn FetchFunc) State {
	c.dropStored(ctx, id)
	// a fetch already in flight may predate the change being refreshed
	c.group.Forget(id)
	return c.run(withoutStoreRead(ctx), id, fn)
}

// Invalidate removes key from the cache
func (c *Cache) Invalidate(ctx context.Context, key Key) {
	id := key.String()
	c.mu.Lock()
	if e, ok := c.entries[id]; ok {
		e.state = State{Status: StatusIdle}
		e.fetch = nil
		c.notifyLocked(e)
	}
	c.mu.Unlock()

	c.dropStored(ctx, id)
	c.group.Forget(id)
}

// Peek returns the current state of key without fetching
func (c *Cache) Peek(key Key) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key.String()]; ok {
		return e.state
	}
	return State{Status: StatusIdle}
}

// Subscribe streams state changes of key. The channel keeps only the
// latest state. Call the returned function to unsubscribe.
func (c *Cache) Subscribe(key Key) (<-chan State, func()) {
	id := key.String()
	ch := make(chan State, 1)

	c.mu.Lock()
	e := c.entryLocked(id, key)
	n := e.nextSub
	e.nextSub++
	e.subs[n] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(e.subs, n)
			c.mu.Unlock()
		})
	}
}

func (c *Cache) run(ctx context.Context, id string, fn FetchFunc) State {
	ch := c.group.DoChan(id, func() (any, error) {
		gen := c.markFetching(id)
		data, err := fn(context.WithoutCancel(ctx))
		c.settle(id, gen, data, err)
		return data, err
	})

	select {
	case <-ch:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.entries[id].state
	case <-ctx.Done():
		return State{Status: StatusError, Err: ctx.Err()}
	}
}

func (c *Cache) markFetching(id string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return 0
	}
	e.gen++
	e.state.Fetching = true
	if e.state.Status != StatusSuccess {
		e.state.Status = StatusLoading
		e.state.Err = nil
	}
	c.notifyLocked(e)
	return e.gen
}

// settle records the result of fetch gen. Results of a fetch overtaken by
// a newer one are dropped.
func (c *Cache) settle(id string, gen uint64, data any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok || e.gen != gen {
		return
	}
	e.state.Fetching = false
	if err != nil {
		e.state.Status = StatusError
		e.state.Err = err
		c.logger.Debug("query failed", zap.String("key", id), zap.Error(err))
	} else {
		e.state.Status = StatusSuccess
		e.state.Data = data
		e.state.Err = nil
		e.state.UpdatedAt = time.Now()
	}
	c.notifyLocked(e)
}

func (c *Cache) notifyLocked(e *entry) {
	for _, ch := range e.subs {
		select {
		case <-ch:
		default:
		}
		ch <- e.state
	}
}

func (c *Cache) dropStored(ctx context.Context, id string) {
	if c.store == nil {
		return
	}
	if err := c.store.Delete(ctx, id); err != nil {
		c.logger.Warn("failed to drop stored query", zap.String("key", id), zap.Error(err))
	}
}

func isStale(s State, staleTime time.Duration) bool {
	return staleTime > 0 && time.Since(s.UpdatedAt) > staleTime
}
