// Package routing fetches driving routes from OpenRouteService. The rest of
// the system treats it as one atomic collaborator: resolve the endpoints,
// fetch a geometry and a distance.
package routing

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/fuel-route-optimizer/internal/domain"
)

// Resolver turns a request location ("lat, lon" or a free-text address)
// into a coordinate. Numeric pairs resolve without I/O.
type Resolver interface {
	Resolve(ctx context.Context, location string) (domain.Coordinate, error)
}

// Fetcher returns the driving route between two coordinates.
type Fetcher interface {
	FetchRoute(ctx context.Context, start, end domain.Coordinate) (domain.RouteGeometry, error)
}

// ParseCoordinatePair parses "lat, lon" and validates ranges. The second
// return is false when the text is not a numeric pair at all (an address).
func ParseCoordinatePair(text string) (domain.Coordinate, bool, error) {
	parts := strings.Split(strings.TrimSpace(text), ",")
	if len(parts) != 2 {
		return domain.Coordinate{}, false, nil
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return domain.Coordinate{}, false, nil
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return domain.Coordinate{}, true,
			fmt.Errorf("%w: coordinate out of range: %q", domain.ErrInvalidParameters, text)
	}
	return domain.Coordinate{Lat: lat, Lon: lon}, true, nil
}
