// Package query is the panel's query cache: results of backend reads keyed
// by resource family and parameters, with a shared freshness window and
// invalidation by key prefix.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache is safe for concurrent use. Create one per process and pass it to
// the components that need it.
type Cache struct {
	logger    *slog.Logger
	store     Store
	staleTime time.Duration

	group *singleflight.Group
	gen   *atomic.Uint64
	now   func() time.Time
}

// New creates a Cache over store with the given freshness window.
func New(logger *slog.Logger, store Store, staleTime time.Duration) *Cache {
	return &Cache{
		logger:    logger,
		store:     store,
		staleTime: staleTime,
		group:     &singleflight.Group{},
		gen:       &atomic.Uint64{},
		now:       time.Now,
	}
}

// WithStaleTime returns a view of c with a different freshness window. The
// view shares the store and the invalidation state.
func (c *Cache) WithStaleTime(d time.Duration) *Cache {
	cp := *c
	cp.staleTime = d
	return &cp
}

// StaleTime returns the freshness window.
func (c *Cache) StaleTime() time.Duration {
	return c.staleTime
}

// Store returns the backing store.
func (c *Cache) Store() Store {
	return c.store
}

// Fetch returns the cached value for key in scope if it is fresh, otherwise
// calls fn and caches its result. Concurrent fetches of the same key share one
// call to fn. Errors from fn are returned as is and never replace cached data.
func Fetch[T any](ctx context.Context, c *Cache, scope string, key Key, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	full := scopedKey(scope, key)

	e, ok, err := c.store.Get(ctx, full)
	if err != nil {
		c.logger.Warn("query cache read failed", "key", key.String(), "error", err)
	} else if ok && e.Fresh(c.now(), c.staleTime) {
		var v T
		if err := json.Unmarshal(e.Data, &v); err == nil {
			return v, nil
		}
		c.logger.Warn("query cache entry unreadable, refetching", "key", key.String())
	}

	gen := c.gen.Load()
	flight := full + "#" + strconv.FormatUint(gen, 10)
	ch := c.group.DoChan(flight, func() (any, error) {
		// The flight is shared; one caller going away must not cancel it
		// for the others.
		fctx := context.WithoutCancel(ctx)
		val, err := fn(fctx)
		if err != nil {
			c.recordError(fctx, full, err)
			return nil, err
		}

		data, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		entry := Entry{
			Data:      data,
			FetchedAt: c.now(),
			// An invalidation raced with this fetch; keep the result for
			// this caller only.
			Invalidated: c.gen.Load() != gen,
		}
		c.put(fctx, full, entry)

		// Invalidate bumps the generation before touching the store, so an
		// invalidation that missed the write above shows up here.
		if !entry.Invalidated && c.gen.Load() != gen {
			entry.Invalidated = true
			c.put(fctx, full, entry)
		}
		return val, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func (c *Cache) put(ctx context.Context, full string, e Entry) {
	if err := c.store.Set(ctx, full, e); err != nil {
		c.logger.Warn("query cache write failed", "key", full, "error", err)
	}
}

func (c *Cache) recordError(ctx context.Context, full string, fetchErr error) {
	e, ok, err := c.store.Get(ctx, full)
	if err != nil {
		return
	}
	if !ok {
		e = Entry{FetchedAt: c.now()}
	}
	e.Err = fetchErr.Error()
	c.put(ctx, full, e)
}

// Invalidate marks every entry under each prefix as stale, across all scopes.
func (c *Cache) Invalidate(ctx context.Context, prefixes ...Key) error {
	c.gen.Add(1)

	var errs []error
	for _, p := range prefixes {
		n, err := c.store.Invalidate(ctx, p.String())
		if err != nil {
			errs = append(errs, fmt.Errorf("invalidate %s: %w", p, err))
			continue
		}
		c.logger.Debug("query cache invalidated", "prefix", p.String(), "entries", n)
	}
	return errors.Join(errs...)
}

// Clear drops every entry of one scope.
func (c *Cache) Clear(ctx context.Context, scope string) error {
	c.gen.Add(1)
	if err := c.store.DeleteScope(ctx, scope); err != nil {
		return fmt.Errorf("clear scope: %w", err)
	}
	return nil
}

// Peek returns the raw entry for key without fetching.
func (c *Cache) Peek(ctx context.Context, scope string, key Key) (Entry, bool) {
	e, ok, err := c.store.Get(ctx, scopedKey(scope, key))
	if err != nil {
		return Entry{}, false
	}
	return e, ok
}
