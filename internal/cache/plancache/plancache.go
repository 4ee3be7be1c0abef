// Package plancache is the typed result cache for fuel plans: 7-day TTL,
// order-sensitive normalized coordinate keys, and at most one computation
// in flight per key.
package plancache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mohammed-shakir/fuel-route-optimizer/internal/cache"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/cache/keys"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/domain"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/observability"
)

// DefaultTTL is the contract staleness bound for a cached plan.
const DefaultTTL = 7 * 24 * time.Hour

// ComputeFunc produces a plan on a cache miss. Errors are returned to every
// in-flight waiter and never stored.
type ComputeFunc func(ctx context.Context) (*domain.FuelPlan, error)

type Cache struct {
	store  cache.Interface
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

func New(store cache.Interface, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{store: store, ttl: ttl, logger: logger}
}

// envelope is the stored form; CreatedAt is informational, expiry itself is
// enforced by the backend TTL.
type envelope struct {
	CreatedAt time.Time        `json:"created_at"`
	Plan      *domain.FuelPlan `json:"plan"`
}

// Get returns the cached plan for the normalized (start, end) pair, if any.
// Backend errors degrade to a miss: a flaky cache must not fail requests.
func (c *Cache) Get(ctx context.Context, start, end domain.Coordinate) (*domain.FuelPlan, bool) {
	key := keys.Plan(start, end)
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("plan cache read failed, treating as miss", "key", key, "err", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Plan == nil {
		c.logger.Warn("plan cache entry corrupt, dropping", "key", key, "err", err)
		_ = c.store.Del(ctx, key)
		return nil, false
	}
	return env.Plan, true
}

// GetOrCompute returns the cached plan or runs fn once per key, sharing the
// result with concurrent callers of the same normalized key. The boolean
// reports whether the plan came from the cache.
//
// A waiter whose context is canceled detaches and gets ctx.Err(); the
// computation keeps running for the remaining waiters and its result is
// still stored.
func (c *Cache) GetOrCompute(ctx context.Context, start, end domain.Coordinate, fn ComputeFunc) (*domain.FuelPlan, bool, error) {
	if plan, ok := c.Get(ctx, start, end); ok {
		observability.AddPlanCacheHit()
		return plan, true, nil
	}
	observability.AddPlanCacheMiss()

	key := keys.Plan(start, end)
	ch := c.group.DoChan(key, func() (any, error) {
		// The computation must not die with the first waiter that leaves.
		bg := context.WithoutCancel(ctx)

		// A concurrent flight may have stored the plan between our miss
		// and this claim.
		if plan, ok := c.Get(bg, start, end); ok {
			return plan, nil
		}

		plan, err := fn(bg)
		if err != nil {
			return nil, err
		}
		if err := c.put(bg, key, plan); err != nil {
			c.logger.Warn("plan cache write failed", "key", key, "err", err)
		}
		return plan, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		plan, ok := res.Val.(*domain.FuelPlan)
		if !ok {
			return nil, false, fmt.Errorf("plan cache: unexpected flight value %T", res.Val)
		}
		return plan, false, nil
	}
}

// Invalidate drops the entry for one normalized pair.
func (c *Cache) Invalidate(ctx context.Context, start, end domain.Coordinate) error {
	return c.store.Del(ctx, keys.Plan(start, end))
}

func (c *Cache) put(ctx context.Context, key string, plan *domain.FuelPlan) error {
	raw, err := json.Marshal(envelope{CreatedAt: time.Now().UTC(), Plan: plan})
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	return c.store.Set(ctx, key, raw, c.ttl)
}
