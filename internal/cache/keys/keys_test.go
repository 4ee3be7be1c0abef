package keys

import (
	"regexp"
	"strings"
	"testing"

	"github.com/mohammed-shakir/fuel-route-optimizer/internal/domain"
)

var (
	denver = domain.Coordinate{Lat: 39.7392, Lon: -104.9903}
	dc     = domain.Coordinate{Lat: 38.9072, Lon: -77.0369}
)

func TestPlan_Deterministic(t *testing.T) {
	k1 := Plan(denver, dc)
	k2 := Plan(denver, dc)
	if k1 != k2 {
		t.Fatalf("determinism failed:\n k1=%s\n k2=%s", k1, k2)
	}
}

func TestPlan_NearbyCoordinatesShareAKey(t *testing.T) {
	// 4 decimal degrees is ~11 m; a shift below half that rounds away.
	a := domain.Coordinate{Lat: denver.Lat + 0.00004, Lon: denver.Lon - 0.00004}
	if Plan(a, dc) != Plan(denver, dc) {
		t.Fatalf("sub-precision shift changed the key")
	}

	b := domain.Coordinate{Lat: denver.Lat + 0.001, Lon: denver.Lon}
	if Plan(b, dc) == Plan(denver, dc) {
		t.Fatalf("distinct coordinates collided")
	}
}

func TestPlan_OrderSensitive(t *testing.T) {
	if Plan(denver, dc) == Plan(dc, denver) {
		t.Fatalf("start and end must not be interchangeable")
	}
}

func TestPlan_KeyShape(t *testing.T) {
	k := Plan(denver, dc)
	if !strings.HasPrefix(k, "plan:") {
		t.Fatalf("missing plan: prefix: %s", k)
	}
	if !regexp.MustCompile(`:h=[0-9a-f]{16}$`).MatchString(k) {
		t.Fatalf("missing or invalid :h=<hex64> suffix: %s", k)
	}
	if !regexp.MustCompile(`^[A-Za-z0-9:.,|\-_=]+$`).MatchString(k) {
		t.Fatalf("key contains disallowed characters: %s", k)
	}
}

func TestNormalize_Rounding(t *testing.T) {
	c := Normalize(domain.Coordinate{Lat: 39.73924999, Lon: -104.99035001})
	if c.Lat != 39.7392 || c.Lon != -104.9904 {
		t.Fatalf("normalized to %+v", c)
	}
}

func TestStateIndex_CanonicalForm(t *testing.T) {
	if StateIndex(" co ") != "planidx:CO" {
		t.Fatalf("got %s", StateIndex(" co "))
	}
	if StateIndex("CO") != StateIndex("co") {
		t.Fatalf("state index keys must be case-insensitive")
	}
}
