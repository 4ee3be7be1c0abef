// Package reference defines the read-only Spatial Reference Store contract:
// which states a route crosses, and the cheapest fuel price per state.
// Implementations live in the h3index (in-memory) and postgres subpackages.
package reference

import (
	"context"

	"github.com/mohammed-shakir/fuel-route-optimizer/internal/domain"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/geo"
)

// StateSpan is a contiguous offset range of the route attributed to one
// state, in route order. State is domain.StateUnknown for ranges outside
// every loaded boundary. Entry is the route point where the span begins.
type StateSpan struct {
	StartMiles float64
	EndMiles   float64
	State      string
	Entry      domain.Coordinate
}

// Store is read-only at request time; writes happen only through the bulk
// loader, never interleaved with live traffic.
type Store interface {
	// StatesCrossedBy returns spans in the order the route crosses them,
	// including re-entry. Consecutive spans for the same state are merged.
	StatesCrossedBy(ctx context.Context, g domain.RouteGeometry) ([]StateSpan, error)

	// CheapestPrice returns nil when no price is known for the state.
	CheapestPrice(ctx context.Context, state string) (*domain.StateFuelPrice, error)
}

// SpansFromWaypoints folds per-waypoint state lookups into merged spans.
// Each waypoint's state is taken to hold until the next waypoint; the last
// span is extended to endMiles. Both store implementations share this walk.
func SpansFromWaypoints(wps []geo.Waypoint, states []string, endMiles float64) []StateSpan {
	if len(wps) == 0 || len(wps) != len(states) {
		return nil
	}

	var out []StateSpan
	for i, wp := range wps {
		st := states[i]
		if st == "" {
			st = domain.StateUnknown
		}
		if n := len(out); n > 0 && out[n-1].State == st {
			continue
		}
		out = append(out, StateSpan{
			StartMiles: wp.CumulativeMiles,
			State:      st,
			Entry:      wp.Coord,
		})
	}

	for i := range out {
		if i+1 < len(out) {
			out[i].EndMiles = out[i+1].StartMiles
		} else {
			out[i].EndMiles = endMiles
		}
	}
	// Route offsets derived from sampled waypoints can overshoot the
	// reported route distance slightly; clamp so spans partition
	// [0, endMiles] exactly.
	for i := range out {
		if out[i].EndMiles > endMiles {
			out[i].EndMiles = endMiles
		}
		if out[i].StartMiles > endMiles {
			out[i].StartMiles = endMiles
		}
	}
	j := 0
	for _, s := range out {
		if s.EndMiles > s.StartMiles || s.StartMiles == 0 {
			out[j] = s
			j++
		}
	}
	return out[:j]
}
