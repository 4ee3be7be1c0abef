package geo

import (
	"math"
	"testing"

	"github.com/mohammed-shakir/fuel-route-optimizer/internal/domain"
)

var (
	denver = domain.Coordinate{Lat: 39.7392, Lon: -104.9903}
	dc     = domain.Coordinate{Lat: 38.9072, Lon: -77.0369}
)

func TestHaversineMiles_KnownDistance(t *testing.T) {
	// Great-circle Denver to Washington DC is roughly 1490 miles.
	d := HaversineMiles(denver, dc)
	if d < 1450 || d > 1530 {
		t.Fatalf("distance=%v, expected ~1490", d)
	}
}

func TestHaversineMiles_ZeroAndSymmetry(t *testing.T) {
	if d := HaversineMiles(denver, denver); d != 0 {
		t.Fatalf("self distance=%v want 0", d)
	}
	ab := HaversineMiles(denver, dc)
	ba := HaversineMiles(dc, denver)
	if math.Abs(ab-ba) > 1e-9 {
		t.Fatalf("asymmetric: %v vs %v", ab, ba)
	}
}

func line(n int, stepDeg float64) []domain.Coordinate {
	pts := make([]domain.Coordinate, n)
	for i := range pts {
		pts[i] = domain.Coordinate{Lat: 39.0, Lon: -105.0 + float64(i)*stepDeg}
	}
	return pts
}

func TestWaypoints_KeepsEndpointsAndInterval(t *testing.T) {
	g := domain.RouteGeometry{Points: line(200, 0.02)}
	wps := Waypoints(g, 50)
	if len(wps) < 3 {
		t.Fatalf("too few waypoints: %d", len(wps))
	}
	if wps[0].Coord != g.Points[0] || wps[0].CumulativeMiles != 0 {
		t.Fatalf("first waypoint wrong: %+v", wps[0])
	}
	if wps[len(wps)-1].Coord != g.Points[len(g.Points)-1] {
		t.Fatalf("last waypoint is not the route end: %+v", wps[len(wps)-1])
	}
	for i := 1; i < len(wps); i++ {
		if wps[i].CumulativeMiles < wps[i-1].CumulativeMiles {
			t.Fatalf("offsets not monotonic at %d: %+v", i, wps)
		}
	}
}

func TestWaypoints_TooFewPoints(t *testing.T) {
	if wps := Waypoints(domain.RouteGeometry{Points: line(1, 0.01)}, 50); wps != nil {
		t.Fatalf("expected nil for single-point geometry, got %+v", wps)
	}
}

func TestScaledWaypoints_LastOffsetMatchesReportedTotal(t *testing.T) {
	// Reported road distance is longer than the sampled straight lines.
	g := domain.RouteGeometry{Points: line(200, 0.02), TotalMiles: 400}
	wps := ScaledWaypoints(g, 50)
	if len(wps) == 0 {
		t.Fatal("no waypoints")
	}
	last := wps[len(wps)-1].CumulativeMiles
	if math.Abs(last-400) > 1e-9 {
		t.Fatalf("last offset=%v want 400", last)
	}
	for i := 1; i < len(wps); i++ {
		if wps[i].CumulativeMiles <= wps[i-1].CumulativeMiles {
			t.Fatalf("scaled offsets not strictly increasing: %+v", wps)
		}
	}
}
