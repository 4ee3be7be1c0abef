// Package optimizer orchestrates a single optimize request: normalize the
// endpoints, consult the plan cache, and on a miss fetch the route, segment
// it, plan the fuel stops and store the result.
package optimizer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mohammed-shakir/fuel-route-optimizer/internal/cache/keys"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/cache/plancache"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/cache/stateindex"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/domain"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/observability"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/planner"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/routing"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/segment"
)

type Optimizer struct {
	resolver  routing.Resolver
	fetcher   routing.Fetcher
	segmenter *segment.Segmenter
	cache     *plancache.Cache
	index     *stateindex.Index
	params    planner.Params
	logger    *slog.Logger
}

func New(
	resolver routing.Resolver,
	fetcher routing.Fetcher,
	segmenter *segment.Segmenter,
	cache *plancache.Cache,
	index *stateindex.Index,
	params planner.Params,
	logger *slog.Logger,
) *Optimizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Optimizer{
		resolver:  resolver,
		fetcher:   fetcher,
		segmenter: segmenter,
		cache:     cache,
		index:     index,
		params:    params,
		logger:    logger,
	}
}

// Result carries the plan plus whether it was served from the cache.
type Result struct {
	Plan     *domain.FuelPlan
	CacheHit bool
}

// Optimize resolves both locations, then serves from the cache or computes.
// Component failures propagate unchanged; nothing failed is ever cached.
func (o *Optimizer) Optimize(ctx context.Context, startLoc, endLoc string) (Result, error) {
	if err := o.params.Validate(); err != nil {
		return Result{}, err
	}

	start, err := o.resolver.Resolve(ctx, startLoc)
	if err != nil {
		return Result{}, err
	}
	end, err := o.resolver.Resolve(ctx, endLoc)
	if err != nil {
		return Result{}, err
	}

	plan, hit, err := o.cache.GetOrCompute(ctx, start, end, func(ctx context.Context) (*domain.FuelPlan, error) {
		return o.compute(ctx, start, end)
	})
	if err != nil {
		observability.ObservePlan(outcomeLabel(err), 0)
		return Result{}, err
	}
	if !hit {
		observability.ObservePlan("ok", len(plan.Stops))
	}
	return Result{Plan: plan, CacheHit: hit}, nil
}

func (o *Optimizer) compute(ctx context.Context, start, end domain.Coordinate) (*domain.FuelPlan, error) {
	g, err := o.fetcher.FetchRoute(ctx, start, end)
	if err != nil {
		return nil, err
	}

	segs, err := o.segmenter.Segment(ctx, g)
	if err != nil {
		return nil, err
	}

	plan, err := planner.Plan(segs, g.TotalMiles, o.params)
	if err != nil {
		return nil, err
	}

	if o.index != nil {
		if err := o.index.Add(ctx, plan.States, keys.Plan(start, end)); err != nil {
			o.logger.Warn("state index update failed", "err", err)
		}
	}

	o.logger.Info("computed fuel plan",
		"total_miles", plan.TotalMiles,
		"stops", len(plan.Stops),
		"total_cost", plan.TotalCost,
		"states", len(plan.States),
	)
	return plan, nil
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoReachableFuel):
		return "no_reachable_fuel"
	case errors.Is(err, domain.ErrInvalidRoute):
		return "invalid_route"
	case errors.Is(err, domain.ErrInvalidParameters):
		return "invalid_parameters"
	case errors.Is(err, domain.ErrUpstreamRouteUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, domain.ErrReferenceUnavailable):
		return "reference_unavailable"
	default:
		return "error"
	}
}
