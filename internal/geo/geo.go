// Package geo provides great-circle distance and waypoint sampling along a
// route linestring.
package geo

import (
	"math"

	"github.com/mohammed-shakir/fuel-route-optimizer/internal/domain"
)

// Earth radius in miles.
const earthRadiusMiles = 3958.7613

// HaversineMiles returns the great-circle distance between two coordinates.
func HaversineMiles(a, b domain.Coordinate) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)
	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Pow(math.Sin(dLon/2), 2)
	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(h))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Waypoint is a point on the route with its cumulative distance from start.
type Waypoint struct {
	Coord           domain.Coordinate
	CumulativeMiles float64
}

// Waypoints samples the geometry roughly every intervalMiles, always keeping
// the first and last point. Dense geometries collapse to a bounded number of
// waypoints so state lookups stay cheap.
func Waypoints(g domain.RouteGeometry, intervalMiles float64) []Waypoint {
	if len(g.Points) < 2 {
		return nil
	}
	if intervalMiles <= 0 {
		intervalMiles = 50
	}

	out := []Waypoint{{Coord: g.Points[0], CumulativeMiles: 0}}
	cum := 0.0
	lastKept := 0.0
	prev := g.Points[0]

	for _, p := range g.Points[1:] {
		cum += HaversineMiles(prev, p)
		if cum-lastKept >= intervalMiles {
			out = append(out, Waypoint{Coord: p, CumulativeMiles: cum})
			lastKept = cum
		}
		prev = p
	}

	last := g.Points[len(g.Points)-1]
	tail := out[len(out)-1]
	if tail.Coord != last {
		out = append(out, Waypoint{Coord: last, CumulativeMiles: cum})
	}
	return out
}

// ScaledWaypoints samples the geometry and rescales cumulative offsets so
// the last waypoint lands exactly on g.TotalMiles. Haversine over sampled
// points understates the road distance reported by the routing provider;
// scaling keeps segment offsets and the trip total in the same unit.
func ScaledWaypoints(g domain.RouteGeometry, intervalMiles float64) []Waypoint {
	wps := Waypoints(g, intervalMiles)
	if len(wps) == 0 {
		return nil
	}
	measured := wps[len(wps)-1].CumulativeMiles
	if measured <= 0 || g.TotalMiles <= 0 {
		return wps
	}
	factor := g.TotalMiles / measured
	for i := range wps {
		wps[i].CumulativeMiles *= factor
	}
	return wps
}
