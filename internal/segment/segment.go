// Package segment partitions a route geometry into ordered, state-tagged
// segments carrying each state's cheapest fuel price.
package segment

import (
	"context"
	"fmt"

	"github.com/mohammed-shakir/fuel-route-optimizer/internal/domain"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/reference"
)

// Segmenter attaches prices from the reference store to the state spans the
// route crosses. The output covers [0, TotalMiles] with no gaps or overlaps.
type Segmenter struct {
	ref reference.Store
}

func New(ref reference.Store) *Segmenter {
	return &Segmenter{ref: ref}
}

func (s *Segmenter) Segment(ctx context.Context, g domain.RouteGeometry) ([]domain.RouteSegment, error) {
	if len(g.Points) < 2 || g.TotalMiles < 0 {
		return nil, fmt.Errorf("%w: need at least 2 points", domain.ErrInvalidRoute)
	}

	spans, err := s.ref.StatesCrossedBy(ctx, g)
	if err != nil {
		return nil, err
	}
	if len(spans) == 0 {
		return nil, fmt.Errorf("%w: no state spans for route", domain.ErrInvalidRoute)
	}

	// Prices are fetched once per distinct state; re-entered states reuse
	// the same lookup.
	prices := map[string]*domain.StateFuelPrice{}
	out := make([]domain.RouteSegment, 0, len(spans))
	for _, sp := range spans {
		seg := domain.RouteSegment{
			StartMiles: sp.StartMiles,
			EndMiles:   sp.EndMiles,
			State:      sp.State,
			Entry:      sp.Entry,
		}
		if sp.State != domain.StateUnknown {
			p, ok := prices[sp.State]
			if !ok {
				p, err = s.ref.CheapestPrice(ctx, sp.State)
				if err != nil {
					return nil, err
				}
				prices[sp.State] = p
			}
			seg.Price = p
		}
		out = append(out, seg)
	}
	return out, nil
}
