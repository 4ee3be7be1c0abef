// Package planner implements the greedy gas-station walk over a segmented
// route: pure in-memory computation, no I/O, no suspension.
package planner

import (
	"fmt"
	"math"
	"sort"

	"github.com/mohammed-shakir/fuel-route-optimizer/internal/domain"
)

// Params are the vehicle constants. Tank capacity is implied:
// MaxRangeMiles / MPG gallons.
type Params struct {
	MaxRangeMiles       float64
	MPG                 float64
	StartingFuelGallons float64
}

// DefaultParams matches the reference vehicle: 500 mi range, 10 mpg,
// full 50-gallon tank at departure.
func DefaultParams() Params {
	return Params{MaxRangeMiles: 500, MPG: 10, StartingFuelGallons: 50}
}

func (p Params) Validate() error {
	if p.MaxRangeMiles <= 0 || p.MPG <= 0 || p.StartingFuelGallons <= 0 {
		return fmt.Errorf("%w: range, mpg and starting fuel must be positive", domain.ErrInvalidParameters)
	}
	if p.StartingFuelGallons > p.TankCapacityGallons() {
		return fmt.Errorf("%w: starting fuel exceeds tank capacity", domain.ErrInvalidParameters)
	}
	return nil
}

func (p Params) TankCapacityGallons() float64 { return p.MaxRangeMiles / p.MPG }

// Plan walks the segments in route order, refueling to a full tank at the
// entry point of the cheapest priced segment reachable within the current
// range. Ties on price break toward the earliest offset: refueling earlier
// at the same price never costs more and cannot strand the vehicle. (The
// alternative last-possible-moment policy picks different stations but the
// same total in well-separated price zones.)
func Plan(segs []domain.RouteSegment, totalMiles float64, p Params) (*domain.FuelPlan, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := validateSegments(segs, totalMiles); err != nil {
		return nil, err
	}

	plan := &domain.FuelPlan{
		Stops:      []domain.FuelStop{},
		TotalMiles: totalMiles,
		States:     statesOf(segs),
	}

	remainingRange := p.StartingFuelGallons * p.MPG
	offset := 0.0
	cost := 0.0
	gallonsBought := 0.0

	for {
		reachable := offset + remainingRange
		if reachable >= totalMiles-epsilon {
			break
		}

		stop, ok := cheapestReachable(segs, offset, reachable)
		if !ok {
			return nil, fmt.Errorf("%w: no priced segment enters the window (%.1f, %.1f] mi",
				domain.ErrNoReachableFuel, offset, reachable)
		}

		// Drive to the stop, then fill from whatever is left up to capacity.
		driven := stop.StartMiles - offset
		remainingRange -= driven
		inTank := remainingRange / p.MPG
		gallons := p.TankCapacityGallons() - inTank
		stopCost := gallons * stop.Price.PricePerGallon

		plan.Stops = append(plan.Stops, domain.FuelStop{
			OffsetMiles:    stop.StartMiles,
			Location:       stop.Entry,
			State:          stop.State,
			PricePerGallon: stop.Price.PricePerGallon,
			Gallons:        gallons,
			Cost:           stopCost,
			StationID:      stop.Price.StationID,
			StationName:    stop.Price.StationName,
			City:           stop.Price.City,
		})

		cost += stopCost
		gallonsBought += gallons
		offset = stop.StartMiles
		remainingRange = p.MaxRangeMiles
	}

	// Cents rounding happens once here, not per stop, to avoid compounding.
	plan.TotalCost = math.Round(cost*100) / 100
	plan.TotalGallons = gallonsBought
	return plan, nil
}

// Purchases at a stop are only possible at the segment's entry point, so a
// candidate must start strictly ahead of the current position and within
// the reachable window.
func cheapestReachable(segs []domain.RouteSegment, offset, reachable float64) (domain.RouteSegment, bool) {
	best := domain.RouteSegment{}
	found := false
	for _, s := range segs {
		if !s.Priced() {
			continue
		}
		if s.StartMiles <= offset+epsilon || s.StartMiles > reachable+epsilon {
			continue
		}
		if !found || s.Price.PricePerGallon < best.Price.PricePerGallon-epsilon {
			best = s
			found = true
		}
	}
	return best, found
}

func validateSegments(segs []domain.RouteSegment, totalMiles float64) error {
	if len(segs) == 0 {
		return fmt.Errorf("%w: empty segmentation", domain.ErrInvalidRoute)
	}
	if segs[0].StartMiles > epsilon {
		return fmt.Errorf("%w: segments do not start at 0", domain.ErrInvalidRoute)
	}
	for i := 1; i < len(segs); i++ {
		if math.Abs(segs[i].StartMiles-segs[i-1].EndMiles) > epsilon {
			return fmt.Errorf("%w: gap between segments %d and %d", domain.ErrInvalidRoute, i-1, i)
		}
		if segs[i].StartMiles < segs[i-1].StartMiles {
			return fmt.Errorf("%w: non-monotonic segments", domain.ErrInvalidRoute)
		}
	}
	if math.Abs(segs[len(segs)-1].EndMiles-totalMiles) > epsilon {
		return fmt.Errorf("%w: segments do not cover the route", domain.ErrInvalidRoute)
	}
	return nil
}

func statesOf(segs []domain.RouteSegment) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, s := range segs {
		if s.State == domain.StateUnknown {
			continue
		}
		if _, ok := seen[s.State]; ok {
			continue
		}
		seen[s.State] = struct{}{}
		out = append(out, s.State)
	}
	sort.Strings(out)
	return out
}

const epsilon = 1e-6
