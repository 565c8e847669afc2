package query

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestCache(staleTime time.Duration) (*Cache, *clock) {
	clk := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New(slog.Default(), NewMemory(), staleTime)
	c.now = clk.now
	return c, clk
}

type counter struct {
	calls atomic.Int32
}

func (c *counter) fetch(v string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		c.calls.Add(1)
		return v, nil
	}
}

func TestFetchCachesWithinWindow(t *testing.T) {
	c, clk := newTestCache(2 * time.Minute)
	ctx := context.Background()
	var n counter
	key := K("platform", "tenants", 1, 10)

	v, err := Fetch(ctx, c, "s1", key, n.fetch("a"))
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	clk.advance(time.Minute)
	v, err = Fetch(ctx, c, "s1", key, n.fetch("b"))
	require.NoError(t, err)
	assert.Equal(t, "a", v, "fresh entry must be served from cache")
	assert.EqualValues(t, 1, n.calls.Load())

	clk.advance(2 * time.Minute)
	v, err = Fetch(ctx, c, "s1", key, n.fetch("c"))
	require.NoError(t, err)
	assert.Equal(t, "c", v, "stale entry must be refetched")
	assert.EqualValues(t, 2, n.calls.Load())
}

func TestFetchDistinctParamsDoNotCollide(t *testing.T) {
	c, _ := newTestCache(2 * time.Minute)
	ctx := context.Background()
	var n counter

	_, _ = Fetch(ctx, c, "s1", K("platform", "tenants", 1, 10), n.fetch("p1"))
	v, err := Fetch(ctx, c, "s1", K("platform", "tenants", 2, 10), n.fetch("p2"))
	require.NoError(t, err)
	assert.Equal(t, "p2", v)

	f1 := Params(url.Values{"action": {"tenant.created"}})
	f2 := Params(url.Values{"action": {"plan.created"}})
	_, _ = Fetch(ctx, c, "s1", K("platform", "audit-logs", 1, 20, f1), n.fetch("f1"))
	v, err = Fetch(ctx, c, "s1", K("platform", "audit-logs", 1, 20, f2), n.fetch("f2"))
	require.NoError(t, err)
	assert.Equal(t, "f2", v)
	assert.EqualValues(t, 4, n.calls.Load())
}

func TestFetchScopesArePartitioned(t *testing.T) {
	c, _ := newTestCache(2 * time.Minute)
	ctx := context.Background()
	var n counter
	key := K("platform", "dashboard")

	_, _ = Fetch(ctx, c, Scope("tok-a"), key, n.fetch("a"))
	v, _ := Fetch(ctx, c, Scope("tok-b"), key, n.fetch("b"))
	assert.Equal(t, "b", v)
	assert.EqualValues(t, 2, n.calls.Load())
}

func TestInvalidateByFamilyPrefix(t *testing.T) {
	c, _ := newTestCache(2 * time.Minute)
	ctx := context.Background()
	var n counter

	_, _ = Fetch(ctx, c, "s1", K("platform", "tenants", 1, 10), n.fetch("list"))
	_, _ = Fetch(ctx, c, "s2", K("platform", "tenants", 2, 10), n.fetch("list2"))
	_, _ = Fetch(ctx, c, "s1", K("platform", "tenant", "t-1"), n.fetch("detail"))
	_, _ = Fetch(ctx, c, "s1", K("platform", "plans"), n.fetch("plans"))

	require.NoError(t, c.Invalidate(ctx, K("platform", "tenants")))

	e, ok := c.Peek(ctx, "s1", K("platform", "tenants", 1, 10))
	require.True(t, ok)
	assert.True(t, e.Invalidated)
	e, _ = c.Peek(ctx, "s2", K("platform", "tenants", 2, 10))
	assert.True(t, e.Invalidated, "invalidation applies to every scope")

	e, _ = c.Peek(ctx, "s1", K("platform", "tenant", "t-1"))
	assert.False(t, e.Invalidated, "tenant must not match tenants")
	e, _ = c.Peek(ctx, "s1", K("platform", "plans"))
	assert.False(t, e.Invalidated)

	v, _ := Fetch(ctx, c, "s1", K("platform", "tenants", 1, 10), n.fetch("fresh"))
	assert.Equal(t, "fresh", v)
}

func TestInvalidateTenantCoversAdmins(t *testing.T) {
	c, _ := newTestCache(2 * time.Minute)
	ctx := context.Background()
	var n counter

	_, _ = Fetch(ctx, c, "s1", K("platform", "tenant", "t-1", "admins"), n.fetch("admins"))
	_, _ = Fetch(ctx, c, "s1", K("platform", "tenant", "t-10"), n.fetch("other"))
	require.NoError(t, c.Invalidate(ctx, K("platform", "tenant", "t-1")))

	e, _ := c.Peek(ctx, "s1", K("platform", "tenant", "t-1", "admins"))
	assert.True(t, e.Invalidated)
	e, _ = c.Peek(ctx, "s1", K("platform", "tenant", "t-10"))
	assert.False(t, e.Invalidated, "t-1 must not match t-10")
}

func TestFetchErrorKeepsCachedData(t *testing.T) {
	c, clk := newTestCache(time.Minute)
	ctx := context.Background()
	key := K("platform", "settings")

	_, err := Fetch(ctx, c, "s1", key, func(context.Context) (string, error) { return "v1", nil })
	require.NoError(t, err)
	clk.advance(2 * time.Minute)

	boom := errors.New("backend down")
	_, err = Fetch(ctx, c, "s1", key, func(context.Context) (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)

	e, ok := c.Peek(ctx, "s1", key)
	require.True(t, ok)
	assert.Equal(t, `"v1"`, string(e.Data))
	assert.Equal(t, "backend down", e.Err)

	v, err := Fetch(ctx, c, "s1", key, func(context.Context) (string, error) { return "v2", nil })
	require.NoError(t, err)
	assert.Equal(t, "v2", v, "errored entry is refetched")
}

func TestFetchCoalescesConcurrentCalls(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	ctx := context.Background()
	var calls atomic.Int32
	release := make(chan struct{})

	fn := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Fetch(ctx, c, "s1", K("platform", "dashboard"), fn)
			if err == nil {
				results[i] = v
			}
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, v := range results {
		assert.Equal(t, 42, v)
	}
}

func TestFetchRacingInvalidationStoresStale(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	ctx := context.Background()
	key := K("platform", "tenants", 1, 10)

	_, err := Fetch(ctx, c, "s1", key, func(ctx context.Context) (string, error) {
		require.NoError(t, c.Invalidate(ctx, K("platform", "tenants")))
		return "pre-mutation", nil
	})
	require.NoError(t, err)

	e, ok := c.Peek(ctx, "s1", key)
	require.True(t, ok)
	assert.True(t, e.Invalidated)
}

// hookStore runs beforeSet once, right before the first write reaches the
// underlying store.
type hookStore struct {
	Store
	once      sync.Once
	beforeSet func()
}

func (h *hookStore) Set(ctx context.Context, key string, e Entry) error {
	h.once.Do(h.beforeSet)
	return h.Store.Set(ctx, key, e)
}

func TestFetchInvalidationBetweenCheckAndWrite(t *testing.T) {
	hs := &hookStore{Store: NewMemory()}
	c := New(slog.Default(), hs, time.Minute)
	ctx := context.Background()
	key := K("platform", "tenants", 1, 10)
	hs.beforeSet = func() {
		require.NoError(t, c.Invalidate(ctx, K("platform", "tenants")))
	}

	var n counter
	v, err := Fetch(ctx, c, "s1", key, n.fetch("pre-mutation"))
	require.NoError(t, err)
	assert.Equal(t, "pre-mutation", v)

	e, ok := c.Peek(ctx, "s1", key)
	require.True(t, ok)
	assert.True(t, e.Invalidated)

	v, err = Fetch(ctx, c, "s1", key, n.fetch("post-mutation"))
	require.NoError(t, err)
	assert.Equal(t, "post-mutation", v)
	assert.EqualValues(t, 2, n.calls.Load())
}

func TestFetchCancelledCallerDoesNotFailOthers(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	key := K("platform", "dashboard")
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	fn := func(ctx context.Context) (string, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		select {
		case <-release:
			return "metrics", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := Fetch(first, c, "s1", key, fn)
		firstErr <- err
	}()
	<-started

	type result struct {
		v   string
		err error
	}
	second := make(chan result, 1)
	go func() {
		v, err := Fetch(context.Background(), c, "s1", key, fn)
		second <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "metrics", got.v)
	assert.EqualValues(t, 1, calls.Load())

	e, ok := c.Peek(context.Background(), "s1", key)
	require.True(t, ok)
	assert.Empty(t, e.Err)
	assert.True(t, e.Fresh(c.now(), c.StaleTime()))
}

func TestClearScope(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	ctx := context.Background()
	var n counter

	_, _ = Fetch(ctx, c, "s1", K("platform", "plans"), n.fetch("a"))
	_, _ = Fetch(ctx, c, "s2", K("platform", "plans"), n.fetch("b"))
	require.NoError(t, c.Clear(ctx, "s1"))

	_, ok := c.Peek(ctx, "s1", K("platform", "plans"))
	assert.False(t, ok)
	_, ok = c.Peek(ctx, "s2", K("platform", "plans"))
	assert.True(t, ok)
}

func TestWithStaleTimeSharesStore(t *testing.T) {
	c, clk := newTestCache(2 * time.Minute)
	session := c.WithStaleTime(5 * time.Minute)
	ctx := context.Background()
	var n counter

	_, _ = Fetch(ctx, session, "s1", K("auth", "session"), n.fetch("u"))
	clk.advance(4 * time.Minute)
	_, _ = Fetch(ctx, session, "s1", K("auth", "session"), n.fetch("u2"))
	assert.EqualValues(t, 1, n.calls.Load())

	_, ok := c.Peek(ctx, "s1", K("auth", "session"))
	assert.True(t, ok)
}

func TestKeyEncoding(t *testing.T) {
	assert.Equal(t, "platform/tenants/1/10/", K("platform", "tenants", 1, 10).String())
	assert.Equal(t, "a%2Fb/", Key{"a/b"}.String())
	assert.True(t, K("platform", "tenant", "t-1", "admins").HasPrefix(K("platform", "tenant", "t-1")))
	assert.False(t, K("platform", "tenants").HasPrefix(K("platform", "tenant")))
	assert.Equal(t, "action=x&tenant_id=y", Params(url.Values{"tenant_id": {"y"}, "action": {"x"}, "date_to": {""}}))
	assert.NotContains(t, Scope("secret-token"), "secret")
}
