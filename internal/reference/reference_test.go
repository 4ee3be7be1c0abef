package reference

import (
	"testing"

	"github.com/mohammed-shakir/fuel-route-optimizer/internal/domain"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/geo"
)

func wp(miles float64) geo.Waypoint {
	return geo.Waypoint{
		Coord:           domain.Coordinate{Lat: 39, Lon: -105 + miles/100},
		CumulativeMiles: miles,
	}
}

func TestSpansFromWaypoints_MergesConsecutiveSameState(t *testing.T) {
	wps := []geo.Waypoint{wp(0), wp(50), wp(100), wp(150), wp(200)}
	states := []string{"CO", "CO", "KS", "KS", "MO"}

	// The zero-length MO span at the very end carries no drivable distance
	// and is dropped.
	spans := SpansFromWaypoints(wps, states, 200)
	if len(spans) != 2 {
		t.Fatalf("spans=%d want 2: %+v", len(spans), spans)
	}
	want := []StateSpan{
		{StartMiles: 0, EndMiles: 100, State: "CO"},
		{StartMiles: 100, EndMiles: 200, State: "KS"},
	}
	for i, w := range want {
		if spans[i].State != w.State || spans[i].StartMiles != w.StartMiles || spans[i].EndMiles != w.EndMiles {
			t.Fatalf("span %d = %+v want %+v", i, spans[i], w)
		}
	}
}

func TestSpansFromWaypoints_ReentryProducesSeparateSpans(t *testing.T) {
	wps := []geo.Waypoint{wp(0), wp(50), wp(100), wp(150)}
	states := []string{"CO", "KS", "CO", "CO"}

	spans := SpansFromWaypoints(wps, states, 150)
	if len(spans) != 3 {
		t.Fatalf("spans=%d want 3: %+v", len(spans), spans)
	}
	if spans[0].State != "CO" || spans[1].State != "KS" || spans[2].State != "CO" {
		t.Fatalf("re-entered state was merged: %+v", spans)
	}
}

func TestSpansFromWaypoints_BlankStateBecomesUnknown(t *testing.T) {
	wps := []geo.Waypoint{wp(0), wp(50), wp(100)}
	states := []string{"CO", "", "KS"}

	spans := SpansFromWaypoints(wps, states, 100)
	if len(spans) != 3 {
		t.Fatalf("spans=%d want 3: %+v", len(spans), spans)
	}
	if spans[1].State != domain.StateUnknown {
		t.Fatalf("blank state mapped to %q", spans[1].State)
	}
}

func TestSpansFromWaypoints_PartitionsZeroToEnd(t *testing.T) {
	wps := []geo.Waypoint{wp(0), wp(50), wp(100), wp(150), wp(210)}
	states := []string{"CO", "KS", "KS", "MO", "MO"}

	spans := SpansFromWaypoints(wps, states, 210)
	if spans[0].StartMiles != 0 {
		t.Fatalf("first span starts at %v", spans[0].StartMiles)
	}
	for i := 1; i < len(spans); i++ {
		if spans[i].StartMiles != spans[i-1].EndMiles {
			t.Fatalf("gap between spans %d and %d: %+v", i-1, i, spans)
		}
	}
	if last := spans[len(spans)-1].EndMiles; last != 210 {
		t.Fatalf("last span ends at %v want 210", last)
	}
}

func TestSpansFromWaypoints_LengthMismatchReturnsNil(t *testing.T) {
	if got := SpansFromWaypoints([]geo.Waypoint{wp(0)}, []string{"CO", "KS"}, 100); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
	if got := SpansFromWaypoints(nil, nil, 100); got != nil {
		t.Fatalf("expected nil for empty input, got %+v", got)
	}
}
