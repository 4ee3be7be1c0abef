// Package h3index is an in-memory Spatial Reference Store: state boundary
// polygons are rasterized into H3 cells once at load time, and point-in-state
// lookups become a map probe on the containing cell.
package h3index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/fuel-route-optimizer/internal/domain"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/geo"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/reference"
)

var _ reference.Store = (*Index)(nil)

// Resolution 5 cells average ~97 mi² (edge ~5.3 mi), coarse enough to keep
// the index small for 50 states and fine enough for 50-mile route sampling.
const defaultResolution = 5

type Index struct {
	res            int
	cellState      map[h3.Cell]string
	prices         map[string]domain.StateFuelPrice
	sampleInterval float64
}

type Option func(*Index)

func WithResolution(res int) Option {
	return func(ix *Index) { ix.res = res }
}

func WithSampleInterval(miles float64) Option {
	return func(ix *Index) { ix.sampleInterval = miles }
}

func New(opts ...Option) *Index {
	ix := &Index{
		res:            defaultResolution,
		cellState:      map[h3.Cell]string{},
		prices:         map[string]domain.StateFuelPrice{},
		sampleInterval: 50,
	}
	for _, f := range opts {
		f(ix)
	}
	return ix
}

// AddState rasterizes one state boundary (GeoJSON Polygon or MultiPolygon)
// into the index. Cells claimed by an earlier state are not overwritten, so
// shared-border cells resolve to the first loader order deterministically.
func (ix *Index) AddState(code string, boundaryGeoJSON []byte) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return errors.New("state code is required")
	}

	loops, err := parseLoops(boundaryGeoJSON)
	if err != nil {
		return fmt.Errorf("state %s: %w", code, err)
	}

	for _, poly := range loops {
		cells, err := h3.PolygonToCells(poly, ix.res)
		if err != nil {
			return fmt.Errorf("state %s: h3 polyfill: %w", code, err)
		}
		for _, c := range cells {
			if _, taken := ix.cellState[c]; !taken {
				ix.cellState[c] = code
			}
		}
	}
	return nil
}

// SetPrice records the cheapest known station for a state, replacing any
// previous entry.
func (ix *Index) SetPrice(p domain.StateFuelPrice) {
	p.State = strings.ToUpper(strings.TrimSpace(p.State))
	ix.prices[p.State] = p
}

// StateAt returns the state containing the coordinate, or domain.StateUnknown.
func (ix *Index) StateAt(c domain.Coordinate) string {
	cell, err := h3.LatLngToCell(h3.LatLng{Lat: c.Lat, Lng: c.Lon}, ix.res)
	if err != nil {
		return domain.StateUnknown
	}
	if st, ok := ix.cellState[cell]; ok {
		return st
	}
	return domain.StateUnknown
}

func (ix *Index) StatesCrossedBy(ctx context.Context, g domain.RouteGeometry) ([]reference.StateSpan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wps := geo.ScaledWaypoints(g, ix.sampleInterval)
	if len(wps) == 0 {
		return nil, fmt.Errorf("%w: geometry has no waypoints", domain.ErrInvalidRoute)
	}
	states := make([]string, len(wps))
	for i, wp := range wps {
		states[i] = ix.StateAt(wp.Coord)
	}
	return reference.SpansFromWaypoints(wps, states, g.TotalMiles), nil
}

func (ix *Index) CheapestPrice(_ context.Context, state string) (*domain.StateFuelPrice, error) {
	p, ok := ix.prices[strings.ToUpper(strings.TrimSpace(state))]
	if !ok {
		return nil, nil
	}
	cp := p
	return &cp, nil
}

// parseLoops converts a GeoJSON Polygon/MultiPolygon into H3 polygons.
func parseLoops(raw []byte) ([]h3.GeoPolygon, error) {
	var hdr struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &hdr); err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}

	switch hdr.Type {
	case "Polygon":
		var tmp struct {
			Coordinates [][][]float64 `json:"coordinates"`
		}
		if err := json.Unmarshal(raw, &tmp); err != nil {
			return nil, fmt.Errorf("parse polygon coords: %w", err)
		}
		poly, err := ringsToPolygon(tmp.Coordinates)
		if err != nil {
			return nil, err
		}
		return []h3.GeoPolygon{poly}, nil

	case "MultiPolygon":
		var tmp struct {
			Coordinates [][][][]float64 `json:"coordinates"`
		}
		if err := json.Unmarshal(raw, &tmp); err != nil {
			return nil, fmt.Errorf("parse multipolygon coords: %w", err)
		}
		out := make([]h3.GeoPolygon, 0, len(tmp.Coordinates))
		for i, rings := range tmp.Coordinates {
			poly, err := ringsToPolygon(rings)
			if err != nil {
				return nil, fmt.Errorf("polygon %d: %w", i, err)
			}
			out = append(out, poly)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported GeoJSON type: %s", hdr.Type)
	}
}

func ringsToPolygon(rings [][][]float64) (h3.GeoPolygon, error) {
	if len(rings) == 0 {
		return h3.GeoPolygon{}, errors.New("empty polygon")
	}
	outer := toLoop(rings[0])
	if len(outer) < 3 {
		return h3.GeoPolygon{}, errors.New("outer ring has < 3 vertices")
	}
	var holes []h3.GeoLoop
	for i := 1; i < len(rings); i++ {
		h := toLoop(rings[i])
		if len(h) < 3 {
			return h3.GeoPolygon{}, fmt.Errorf("hole %d has < 3 vertices", i-1)
		}
		holes = append(holes, h)
	}
	return h3.GeoPolygon{GeoLoop: outer, Holes: holes}, nil
}

// toLoop converts a GeoJSON ring [[lon,lat], ...] to an h3.GeoLoop,
// dropping an explicit closing vertex.
func toLoop(coords [][]float64) h3.GeoLoop {
	loop := make(h3.GeoLoop, 0, len(coords))
	for _, xy := range coords {
		if len(xy) != 2 {
			continue
		}
		loop = append(loop, h3.LatLng{Lat: xy[1], Lng: xy[0]})
	}
	if len(loop) >= 2 {
		first, last := loop[0], loop[len(loop)-1]
		if first.Lat == last.Lat && first.Lng == last.Lng {
			loop = loop[:len(loop)-1]
		}
	}
	return loop
}
