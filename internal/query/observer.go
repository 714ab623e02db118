package query

import (
	"context"
	"sync"
)

// Observer follows one key the way a mounted view does: it starts a fetch
// on creation and receives every later state change until closed.
type Observer struct {
	cache *Cache
	key   Key

	mu      sync.Mutex
	state   State
	closed  bool
	updates chan State
	cancel  func()
	stop    context.CancelFunc
}

// Observe starts fetching key in the background and returns an Observer
// tracking it. A gated query stays idle and never fetches.
func (c *Cache) Observe(ctx context.Context, key Key, fn FetchFunc, opts ...Option) *Observer {
	o := &Observer{
		cache:   c,
		key:     key,
		updates: make(chan State, 1),
	}
	if !buildOptions(opts).enabled {
		o.state = State{Status: StatusIdle}
		o.cancel = func() {}
		o.stop = func() {}
		return o
	}

	ch, unsubscribe := c.Subscribe(key)
	o.cancel = unsubscribe
	o.state = c.Peek(key)
	if o.state.Status == StatusIdle {
		o.state.Status = StatusLoading
		o.state.Fetching = true
	}

	ctx, stop := context.WithCancel(ctx)
	o.stop = stop
	go o.forward(ctx, ch)
	go c.Fetch(ctx, key, fn, opts...)
	return o
}

func (o *Observer) forward(ctx context.Context, ch <-chan State) {
	for {
		select {
		case <-ctx.Done():
			return
		case st := <-ch:
			o.mu.Lock()
			if o.closed {
				o.mu.Unlock()
				return
			}
			o.state = st
			select {
			case <-o.updates:
			default:
			}
			o.updates <- st
			o.mu.Unlock()
		}
	}
}

// State returns the latest state seen by the observer
func (o *Observer) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Updates delivers state changes. Only the most recent undelivered change
// is kept.
func (o *Observer) Updates() <-chan State {
	return o.updates
}

// Refetch re-runs the observed query
func (o *Observer) Refetch(ctx context.Context) State {
	return o.cache.Refetch(ctx, o.key)
}

// Close stops delivery. Results that arrive afterwards still update the
// cache but are not seen by this observer.
func (o *Observer) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.cancel()
	o.stop()
}
