package ships

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchFunc loads every observation grouped by author identity.
type FetchFunc func(ctx context.Context) (map[string][]Observation, error)

// Cache serves observations from memory while they are younger than ttl.
// Concurrent misses share one fetch, bounded by timeout and detached from the
// caller that started it.
type Cache struct {
	fetch   FetchFunc
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	data      map[string][]Observation
	fetchedAt time.Time
}

var _ Source = (*Cache)(nil)

func NewCache(fetch FetchFunc, ttl, timeout time.Duration) *Cache {
	return &Cache{fetch: fetch, ttl: ttl, timeout: timeout, now: time.Now}
}

func (c *Cache) ForUser(ctx context.Context, identity string) ([]Observation, error) {
	all, err := c.All(ctx)
	if err != nil {
		return nil, err
	}

	return slices.Clone(all[identity]), nil
}

func (c *Cache) All(ctx context.Context) (map[string][]Observation, error) {
	c.mu.RLock()
	data, at := c.data, c.fetchedAt
	c.mu.RUnlock()

	if data != nil && c.now().Sub(at) <= c.ttl {
		return data, nil
	}

	return c.Refresh(ctx)
}

// Refresh fetches unconditionally and replaces the cached data. A caller
// whose ctx ends stops waiting; the shared fetch carries on for the others.
func (c *Cache) Refresh(ctx context.Context) (map[string][]Observation, error) {
	ch := c.group.DoChan("all", func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		data, err := c.fetch(fctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.data = data
		c.fetchedAt = c.now()
		c.mu.Unlock()

		slog.Info("ships refreshed", "authors", len(data))

		return data, nil
	})

	var res singleflight.Result

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("refresh ships: %w", ctx.Err())
	case res = <-ch:
	}

	if res.Err != nil {
		return nil, fmt.Errorf("refresh ships: %w", res.Err)
	}

	if res.Shared {
		slog.Debug("ships refresh shared with concurrent caller")
	}

	return res.Val.(map[string][]Observation), nil
}
