package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammed-shakir/fuel-route-optimizer/internal/cache/memstore"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/cache/plancache"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/cache/stateindex"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/domain"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/optimizer"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/planner"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/reference"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/segment"
)

type stubRouting struct {
	resolveErr error
	fetchErr   error
}

func (s *stubRouting) Resolve(_ context.Context, location string) (domain.Coordinate, error) {
	if s.resolveErr != nil {
		return domain.Coordinate{}, s.resolveErr
	}
	var c domain.Coordinate
	if n, err := fmt.Sscanf(location, "%f,%f", &c.Lat, &c.Lon); err != nil || n != 2 {
		return domain.Coordinate{}, fmt.Errorf("%w: %q", domain.ErrInvalidParameters, location)
	}
	return c, nil
}

func (s *stubRouting) FetchRoute(_ context.Context, start, end domain.Coordinate) (domain.RouteGeometry, error) {
	if s.fetchErr != nil {
		return domain.RouteGeometry{}, s.fetchErr
	}
	return domain.RouteGeometry{
		Points:     []domain.Coordinate{start, {Lat: 39, Lon: -95}, end},
		TotalMiles: 1500,
	}, nil
}

type stubRef struct{}

func (stubRef) StatesCrossedBy(_ context.Context, g domain.RouteGeometry) ([]reference.StateSpan, error) {
	return []reference.StateSpan{
		{StartMiles: 0, EndMiles: 500, State: "CO", Entry: g.Points[0]},
		{StartMiles: 500, EndMiles: 1000, State: "KS", Entry: g.Points[1]},
		{StartMiles: 1000, EndMiles: g.TotalMiles, State: "MO", Entry: g.Points[2]},
	}, nil
}

func (stubRef) CheapestPrice(_ context.Context, state string) (*domain.StateFuelPrice, error) {
	prices := map[string]float64{"CO": 3.00, "KS": 3.10, "MO": 3.40}
	p, ok := prices[state]
	if !ok {
		return nil, nil
	}
	return &domain.StateFuelPrice{State: state, PricePerGallon: p, StationName: state + " Travel Stop"}, nil
}

func newHandler(rt *stubRouting) *Handler {
	store := memstore.New(64, time.Hour)
	opt := optimizer.New(
		rt, rt,
		segment.New(stubRef{}),
		plancache.New(store, time.Hour, nil),
		stateindex.New(store, time.Hour),
		planner.DefaultParams(),
		nil,
	)
	return NewHandler(opt, nil)
}

func post(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/routes/optimize", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.Optimize(rr, req)
	return rr
}

func TestOptimize_HappyPath(t *testing.T) {
	h := newHandler(&stubRouting{})

	rr := post(t, h, `{"start":"39.7392,-104.9903","end":"38.9072,-77.0369"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}

	var resp optimizeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.FuelStops) != 2 {
		t.Fatalf("stops=%d want 2", len(resp.FuelStops))
	}
	if resp.FuelStops[0].Order != 1 || resp.FuelStops[1].Order != 2 {
		t.Fatalf("orders=%+v", resp.FuelStops)
	}
	if resp.Summary.NumberOfStops != 2 || resp.Summary.TotalDistanceMiles != 1500 {
		t.Fatalf("summary=%+v", resp.Summary)
	}
	if resp.Summary.TotalFuelCost <= 0 || resp.Summary.AveragePricePerGallon <= 0 {
		t.Fatalf("summary=%+v", resp.Summary)
	}
	if resp.CacheHit {
		t.Fatal("first request reported a cache hit")
	}

	rr2 := post(t, h, `{"start":"39.7392,-104.9903","end":"38.9072,-77.0369"}`)
	var resp2 optimizeResponse
	if err := json.Unmarshal(rr2.Body.Bytes(), &resp2); err != nil {
		t.Fatalf("decode second: %v", err)
	}
	if !resp2.CacheHit {
		t.Fatal("second request missed the cache")
	}
	if resp2.Summary.TotalFuelCost != resp.Summary.TotalFuelCost {
		t.Fatalf("cached totals differ: %v vs %v", resp2.Summary.TotalFuelCost, resp.Summary.TotalFuelCost)
	}
}

func TestOptimize_BadRequestBodies(t *testing.T) {
	h := newHandler(&stubRouting{})

	for name, body := range map[string]string{
		"not_json":      `{{{`,
		"missing_start": `{"end":"38.9,-77.0"}`,
		"missing_end":   `{"start":"39.7,-104.9"}`,
	} {
		if rr := post(t, h, body); rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d want 400", name, rr.Code)
		}
	}
}

func TestOptimize_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		rt         *stubRouting
		wantStatus int
		retryable  bool
	}{
		{
			name:       "invalid_parameters",
			rt:         &stubRouting{resolveErr: fmt.Errorf("%w: bad place", domain.ErrInvalidParameters)},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "upstream_unavailable",
			rt:         &stubRouting{fetchErr: fmt.Errorf("%w: ors 502", domain.ErrUpstreamRouteUnavailable)},
			wantStatus: http.StatusBadGateway,
			retryable:  true,
		},
		{
			name:       "reference_unavailable",
			rt:         &stubRouting{fetchErr: fmt.Errorf("%w: db down", domain.ErrReferenceUnavailable)},
			wantStatus: http.StatusServiceUnavailable,
			retryable:  true,
		},
		{
			name:       "invalid_route",
			rt:         &stubRouting{fetchErr: fmt.Errorf("%w: no features", domain.ErrInvalidRoute)},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "no_reachable_fuel",
			rt:         &stubRouting{fetchErr: fmt.Errorf("%w: desert corridor", domain.ErrNoReachableFuel)},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHandler(tc.rt)
			rr := post(t, h, `{"start":"39.7392,-104.9903","end":"38.9072,-77.0369"}`)
			if rr.Code != tc.wantStatus {
				t.Fatalf("status=%d want %d (body=%s)", rr.Code, tc.wantStatus, rr.Body.String())
			}
			var er errorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &er); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if er.Retryable != tc.retryable {
				t.Fatalf("retryable=%v want %v", er.Retryable, tc.retryable)
			}
			if er.Error == "" {
				t.Fatal("empty error message")
			}
		})
	}
}

func TestOptimize_ResponseContentType(t *testing.T) {
	h := newHandler(&stubRouting{})
	rr := post(t, h, `{"start":"39.7392,-104.9903","end":"38.9072,-77.0369"}`)
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content-type=%q", ct)
	}
}
