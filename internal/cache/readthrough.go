// Package cache holds table snapshots between reloads.
//
// A ReadThrough keeps the last successful load of one logical table and
// serves it until its TTL passes or it is invalidated. Loads are full-table
// and the stored snapshot is replaced in one step, so readers see either the
// old or the new value, never a mix.
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader fetches a complete snapshot.
type Loader[T any] func(ctx context.Context) (T, error)

// ReadThrough caches the result of a Loader for a fixed TTL.
type ReadThrough[T any] struct {
	key  string
	ttl  time.Duration
	load Loader[T]

	mu        sync.Mutex
	now       func() time.Time
	value     T
	loaded    bool
	expiresAt time.Time
	// gen is bumped on every invalidation; a load started under an older
	// generation is returned to its callers but not stored.
	gen uint64

	flight singleflight.Group
}

// NewReadThrough returns an empty cache for key.
func NewReadThrough[T any](key string, ttl time.Duration, load Loader[T]) *ReadThrough[T] {
	return &ReadThrough[T]{key: key, ttl: ttl, load: load, now: time.Now}
}

// Key names the cached table.
func (c *ReadThrough[T]) Key() string { return c.key }

// TTL returns how long a snapshot stays fresh.
func (c *ReadThrough[T]) TTL() time.Duration { return c.ttl }

// SetClock replaces the time source; used by tests.
func (c *ReadThrough[T]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get returns the cached snapshot when fresh, otherwise reloads it.
// Concurrent callers share one reload.
func (c *ReadThrough[T]) Get(ctx context.Context) (T, error) {
	c.mu.Lock()
	if c.loaded && c.now().Before(c.expiresAt) {
		v := c.value
		c.mu.Unlock()
		return v, nil
	}
	gen := c.gen
	c.mu.Unlock()
	return c.reload(ctx, gen)
}

// Refresh discards the cached snapshot and loads a new one.
func (c *ReadThrough[T]) Refresh(ctx context.Context) (T, error) {
	return c.reload(ctx, c.invalidate())
}

// Invalidate forces the next Get to reload.
func (c *ReadThrough[T]) Invalidate() {
	c.invalidate()
}

func (c *ReadThrough[T]) invalidate() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.drop()
	return c.gen
}

func (c *ReadThrough[T]) drop() {
	var zero T
	c.value = zero
	c.loaded = false
	c.expiresAt = time.Time{}
}

// Peek returns the cached snapshot without loading. ok is false when the
// cache is empty or expired.
func (c *ReadThrough[T]) Peek() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded && c.now().Before(c.expiresAt) {
		return c.value, true
	}
	var zero T
	return zero, false
}

// CleanExpired drops an expired snapshot and reports how many were dropped.
func (c *ReadThrough[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded && !c.now().Before(c.expiresAt) {
		c.drop()
		return 1
	}
	return 0
}

func (c *ReadThrough[T]) reload(ctx context.Context, gen uint64) (T, error) {
	// The flight key carries the generation so callers that arrive after an
	// invalidation never join a load that started before it.
	ch := c.flight.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		v, err := c.load(context.WithoutCancel(ctx))
		if err != nil {
			return v, err
		}
		c.mu.Lock()
		if c.gen == gen {
			c.value = v
			c.loaded = true
			c.expiresAt = c.now().Add(c.ttl)
		}
		c.mu.Unlock()
		return v, nil
	})

	var zero T
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

// Invalidator is the part of a cache a Group needs.
type Invalidator interface {
	Key() string
	Invalidate()
}

// Group invalidates caches by key.
type Group struct {
	mu      sync.RWMutex
	members map[string][]Invalidator
	order   []string
}

func NewGroup(members ...Invalidator) *Group {
	g := &Group{members: make(map[string][]Invalidator)}
	for _, m := range members {
		g.Add(m)
	}
	return g
}

// Add registers m under its key.
func (g *Group) Add(m Invalidator) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.members[m.Key()]; !ok {
		g.order = append(g.order, m.Key())
	}
	g.members[m.Key()] = append(g.members[m.Key()], m)
}

// Invalidate invalidates every member registered under one of keys.
// Unknown keys are ignored.
func (g *Group) Invalidate(keys ...string) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, k := range keys {
		for _, m := range g.members[k] {
			m.Invalidate()
		}
	}
}

// InvalidateAll invalidates every member.
func (g *Group) InvalidateAll() {
	g.Invalidate(g.Keys()...)
}

// Keys returns the registered keys in registration order.
func (g *Group) Keys() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.order...)
}

// CleanExpired cleans every member that supports it.
func (g *Group) CleanExpired() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, k := range g.order {
		for _, m := range g.members[k] {
			if c, ok := m.(Cleaner); ok {
				n += c.CleanExpired()
			}
		}
	}
	return n
}
