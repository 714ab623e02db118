package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyIdentityByValue(t *testing.T) {
	assert.Equal(t, NewKey("recipe", int64(7)).String(), NewKey("recipe", int64(7)).String())
	assert.NotEqual(t, NewKey("recipe", int64(7)).String(), NewKey("recipe", int64(8)).String())
	assert.Equal(t, "recipe", NewKey("recipe", 1).Resource())
}

func TestFetchCoalescesConcurrentCallers(t *testing.T) {
	c := New()
	key := NewKey("recipe", 7)
	var calls int32
	release := make(chan struct{})
	fn := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "pie", nil
	}

	var wg sync.WaitGroup
	results := make([]State, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Fetch(context.Background(), key, fn)
		}(i)
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, StatusSuccess, r.Status)
		assert.Equal(t, "pie", r.Data)
	}
}

func TestFetchServesCachedResult(t *testing.T) {
	c := New()
	key := NewKey("categories")
	calls := 0
	fn := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	first := c.Fetch(context.Background(), key, fn)
	second := c.Fetch(context.Background(), key, fn)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, first.Data)
	assert.Equal(t, 1, second.Data)
}

func TestFetchDistinctKeysFetchSeparately(t *testing.T) {
	c := New()
	calls := 0
	fn := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	c.Fetch(context.Background(), NewKey("recipe", 1), fn)
	c.Fetch(context.Background(), NewKey("recipe", 2), fn)

	assert.Equal(t, 2, calls)
}

func TestFetchGatedQueryIsIdle(t *testing.T) {
	c := New()
	called := false
	st := c.Fetch(context.Background(), NewKey("recipe", 0), func(ctx context.Context) (any, error) {
		called = true
		return nil, nil
	}, Enabled(false))

	assert.False(t, called)
	assert.Equal(t, StatusIdle, st.Status)
	assert.False(t, st.IsLoading())
	assert.NoError(t, st.Err)
}

func TestFetchRecordsError(t *testing.T) {
	c := New()
	boom := errors.New("boom")
	st := c.Fetch(context.Background(), NewKey("recipe", 1), func(ctx context.Context) (any, error) {
		return nil, boom
	})

	assert.Equal(t, StatusError, st.Status)
	assert.ErrorIs(t, st.Err, boom)
	assert.Equal(t, StatusError, c.Peek(NewKey("recipe", 1)).Status)
}

func TestFetchStaleTimeTriggersFetch(t *testing.T) {
	c := New()
	key := NewKey("recipes")
	calls := 0
	fn := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	c.Fetch(context.Background(), key, fn, StaleTime(time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	st := c.Fetch(context.Background(), key, fn, StaleTime(time.Millisecond))

	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, st.Data)
}

func TestRefetchOnlyTouchesOneKey(t *testing.T) {
	c := New()
	counts := map[string]int{}
	fnFor := func(name string) FetchFunc {
		return func(ctx context.Context) (any, error) {
			counts[name]++
			return counts[name], nil
		}
	}

	c.Fetch(context.Background(), NewKey("recipe", 1), fnFor("a"))
	c.Fetch(context.Background(), NewKey("recipe", 2), fnFor("b"))

	st := c.Refetch(context.Background(), NewKey("recipe", 1))

	assert.Equal(t, 2, st.Data)
	assert.Equal(t, 2, counts["a"])
	assert.Equal(t, 1, counts["b"])
	assert.Equal(t, 1, c.Peek(NewKey("recipe", 2)).Data)
}

func TestRefetchUnknownKeyIsIdle(t *testing.T) {
	c := New()
	assert.Equal(t, StatusIdle, c.Refetch(context.Background(), NewKey("nothing")).Status)
}

func TestInvalidateClearsEntry(t *testing.T) {
	c := New()
	key := NewKey("recipe", 3)
	calls := 0
	fn := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	c.Fetch(context.Background(), key, fn)
	c.Invalidate(context.Background(), key)
	assert.Equal(t, StatusIdle, c.Peek(key).Status)

	st := c.Fetch(context.Background(), key, fn)
	assert.Equal(t, 2, st.Data)
}

func TestCallerCancellationDoesNotAbortSharedFetch(t *testing.T) {
	c := New()
	key := NewKey("recipe", 9)
	release := make(chan struct{})
	fn := func(ctx context.Context) (any, error) {
		<-release
		return "done", ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	st := c.Fetch(ctx, key, fn)
	assert.ErrorIs(t, st.Err, context.Canceled)

	close(release)
	require.Eventually(t, func() bool {
		return c.Peek(key).Status == StatusSuccess
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "done", c.Peek(key).Data)
}

func TestTypedFetch(t *testing.T) {
	c := New()
	r := Fetch(context.Background(), c, NewKey("titles"), func(ctx context.Context) ([]string, error) {
		return []string{"pie", "soup"}, nil
	})

	assert.Equal(t, StatusSuccess, r.Status)
	assert.Equal(t, []string{"pie", "soup"}, r.Data)
	assert.Equal(t, []string{"pie", "soup"}, Peek[[]string](c, NewKey("titles")).Data)
}

func TestObserverReceivesUpdates(t *testing.T) {
	c := New()
	key := NewKey("recipe", 4)
	release := make(chan struct{})
	o := c.Observe(context.Background(), key, func(ctx context.Context) (any, error) {
		<-release
		return "ready", nil
	})
	defer o.Close()

	assert.True(t, o.State().IsLoading())
	close(release)

	require.Eventually(t, func() bool {
		return o.State().Status == StatusSuccess
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "ready", o.State().Data)
}

func TestObserverGatedStaysIdle(t *testing.T) {
	c := New()
	o := c.Observe(context.Background(), NewKey("recipe", 0), func(ctx context.Context) (any, error) {
		t.Fatal("gated query fetched")
		return nil, nil
	}, Enabled(false))
	defer o.Close()

	assert.Equal(t, StatusIdle, o.State().Status)
	assert.False(t, o.State().IsLoading())
}

func TestObserverCloseDiscardsLateResults(t *testing.T) {
	c := New()
	key := NewKey("recipe", 5)
	release := make(chan struct{})
	o := c.Observe(context.Background(), key, func(ctx context.Context) (any, error) {
		<-release
		return "late", nil
	})

	o.Close()
	close(release)

	require.Eventually(t, func() bool {
		return c.Peek(key).Status == StatusSuccess
	}, time.Second, 5*time.Millisecond)
	assert.NotEqual(t, StatusSuccess, o.State().Status)
}

func TestRefetchDropsOvertakenResult(t *testing.T) {
	c := New()
	key := NewKey("recipe", 6)
	var calls int32
	release := make(chan struct{})
	fn := func(ctx context.Context) (any, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			<-release
			return "before", nil
		}
		return "after", nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Fetch(context.Background(), key, fn)
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)

	st := c.Refetch(context.Background(), key)
	assert.Equal(t, "after", st.Data)

	close(release)
	<-done
	assert.Equal(t, "after", c.Peek(key).Data)
	assert.False(t, c.Peek(key).Fetching)
}

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (s *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return b, nil
}

func (s *memStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func TestReloadBypassesSharedStore(t *testing.T) {
	store := newMemStore()
	key := NewKey("recipe", 7)
	rating := 0
	fn := func(ctx context.Context) (int, error) { return rating, nil }

	first := New(WithStore(store, time.Minute))
	assert.Equal(t, 0, Fetch(context.Background(), first, key, fn).Data)

	rating = 3
	second := New(WithStore(store, time.Minute))
	assert.Equal(t, 0, Fetch(context.Background(), second, key, fn).Data)

	third := New(WithStore(store, time.Minute))
	assert.Equal(t, 3, Reload(context.Background(), third, key, fn).Data)

	fourth := New(WithStore(store, time.Minute))
	assert.Equal(t, 3, Fetch(context.Background(), fourth, key, fn).Data)
}

func TestReloadGatedIsIdle(t *testing.T) {
	c := New()
	st := c.Reload(context.Background(), NewKey("recipe", 0), func(ctx context.Context) (any, error) {
		t.Fatal("gated query fetched")
		return nil, nil
	}, Enabled(false))
	assert.Equal(t, StatusIdle, st.Status)
}
