package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mohammed-shakir/fuel-route-optimizer/internal/domain"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/observability"
)

const metersPerMile = 0.000621371

// ORSClient talks to the OpenRouteService API: geocoding, driving
// directions, and snap-to-road recovery when an endpoint is off the
// routable network.
type ORSClient struct {
	baseURL    string
	apiKey     string
	http       *http.Client
	logger     *slog.Logger
	snapRadius int
}

var (
	_ Resolver = (*ORSClient)(nil)
	_ Fetcher  = (*ORSClient)(nil)
)

func NewORSClient(baseURL, apiKey string, client *http.Client, logger *slog.Logger) (*ORSClient, error) {
	if apiKey == "" {
		return nil, errors.New("openrouteservice api key is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ORSClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		http:       client,
		logger:     logger,
		snapRadius: 2000,
	}, nil
}

// Resolve parses a numeric "lat, lon" pair locally or geocodes an address.
func (c *ORSClient) Resolve(ctx context.Context, location string) (domain.Coordinate, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return domain.Coordinate{}, fmt.Errorf("%w: empty location", domain.ErrInvalidParameters)
	}
	coord, isPair, err := ParseCoordinatePair(location)
	if err != nil {
		return domain.Coordinate{}, err
	}
	if isPair {
		return coord, nil
	}
	return c.geocode(ctx, location)
}

func (c *ORSClient) geocode(ctx context.Context, text string) (domain.Coordinate, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("text", text)
	q.Set("boundary.country", "US")
	q.Set("size", "1")

	body, err := c.getJSON(ctx, "/geocode/search", q, "ors_geocode")
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("%w: geocode %q: %v", domain.ErrUpstreamRouteUnavailable, text, err)
	}

	var decoded struct {
		Features []struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"` // [lon, lat]
			} `json:"geometry"`
		} `json:"features"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return domain.Coordinate{}, fmt.Errorf("%w: decode geocode response: %v", domain.ErrUpstreamRouteUnavailable, err)
	}
	if len(decoded.Features) == 0 || len(decoded.Features[0].Geometry.Coordinates) != 2 {
		return domain.Coordinate{}, fmt.Errorf("%w: could not geocode %q", domain.ErrInvalidParameters, text)
	}
	xy := decoded.Features[0].Geometry.Coordinates
	return domain.Coordinate{Lat: xy[1], Lon: xy[0]}, nil
}

// FetchRoute calls the directions endpoint; when ORS cannot find a routable
// point it snaps both endpoints to the road network once and retries.
func (c *ORSClient) FetchRoute(ctx context.Context, start, end domain.Coordinate) (domain.RouteGeometry, error) {
	g, err := c.directions(ctx, start, end)
	if err == nil {
		return g, nil
	}

	var se *statusError
	if errors.As(err, &se) && strings.Contains(se.Body, "Could not find routable point") {
		snapped, snapErr := c.snap(ctx, []domain.Coordinate{start, end})
		if snapErr != nil {
			c.logger.Warn("snap to road failed", "err", snapErr)
			return domain.RouteGeometry{}, fmt.Errorf("%w: %v", domain.ErrUpstreamRouteUnavailable, err)
		}
		if snapped[0] != nil {
			start = *snapped[0]
		}
		if snapped[1] != nil {
			end = *snapped[1]
		}
		g, err = c.directions(ctx, start, end)
		if err == nil {
			return g, nil
		}
	}
	return domain.RouteGeometry{}, fmt.Errorf("%w: %v", domain.ErrUpstreamRouteUnavailable, err)
}

func (c *ORSClient) directions(ctx context.Context, start, end domain.Coordinate) (domain.RouteGeometry, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("start", fmt.Sprintf("%g,%g", start.Lon, start.Lat))
	q.Set("end", fmt.Sprintf("%g,%g", end.Lon, end.Lat))

	body, err := c.getJSON(ctx, "/v2/directions/driving-car", q, "ors_directions")
	if err != nil {
		return domain.RouteGeometry{}, err
	}

	var decoded struct {
		Features []struct {
			Geometry struct {
				Coordinates [][]float64 `json:"coordinates"` // [lon, lat]
			} `json:"geometry"`
			Properties struct {
				Summary struct {
					Distance float64 `json:"distance"` // meters
				} `json:"summary"`
				Segments []struct {
					Distance float64 `json:"distance"`
				} `json:"segments"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return domain.RouteGeometry{}, fmt.Errorf("decode directions response: %w", err)
	}
	if len(decoded.Features) == 0 {
		return domain.RouteGeometry{}, errors.New("directions response has no features")
	}

	feat := decoded.Features[0]
	points := make([]domain.Coordinate, 0, len(feat.Geometry.Coordinates))
	for _, xy := range feat.Geometry.Coordinates {
		if len(xy) != 2 {
			continue
		}
		points = append(points, domain.Coordinate{Lat: xy[1], Lon: xy[0]})
	}

	meters := feat.Properties.Summary.Distance
	if meters == 0 && len(feat.Properties.Segments) > 0 {
		meters = feat.Properties.Segments[0].Distance
	}

	return domain.RouteGeometry{
		Points:     points,
		TotalMiles: meters * metersPerMile,
	}, nil
}

func (c *ORSClient) snap(ctx context.Context, coords []domain.Coordinate) ([]*domain.Coordinate, error) {
	locations := make([][]float64, len(coords))
	for i, p := range coords {
		locations[i] = []float64{p.Lon, p.Lat}
	}
	payload, err := json.Marshal(map[string]any{
		"locations": locations,
		"radius":    c.snapRadius,
		"id":        "snap_request",
	})
	if err != nil {
		return nil, fmt.Errorf("encode snap payload: %w", err)
	}

	body, err := c.doWithRetry(ctx, "ors_snap", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/v2/snap/driving-car/json", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Locations []*struct {
			Location []float64 `json:"location"` // [lon, lat]
		} `json:"locations"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode snap response: %w", err)
	}

	out := make([]*domain.Coordinate, len(coords))
	for i, loc := range decoded.Locations {
		if i >= len(out) {
			break
		}
		if loc == nil || len(loc.Location) != 2 {
			continue
		}
		out[i] = &domain.Coordinate{Lat: loc.Location[1], Lon: loc.Location[0]}
	}
	return out, nil
}

func (c *ORSClient) getJSON(ctx context.Context, path string, q url.Values, upstream string) ([]byte, error) {
	return c.doWithRetry(ctx, upstream, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
}

type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// doWithRetry retries transient failures (network errors, 429, 5xx) with
// exponential backoff while respecting context cancellation.
func (c *ORSClient) doWithRetry(ctx context.Context, upstream string, makeReq func() (*http.Request, error)) ([]byte, error) {
	const maxAttempts = 4
	backoff := 200 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}

		body, err := c.doOnce(req, upstream)
		if err == nil {
			return body, nil
		}
		lastErr = err

		retry := false
		var se *statusError
		if errors.As(err, &se) {
			switch se.Code {
			case 429, 500, 502, 503, 504:
				retry = true
			}
		}
		var netErr net.Error
		if !retry && errors.As(err, &netErr) {
			retry = true
		}
		if !retry || attempt == maxAttempts {
			return nil, lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
	return nil, lastErr
}

func (c *ORSClient) doOnce(req *http.Request, upstream string) ([]byte, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	observability.ObserveUpstreamLatency(upstream, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("close response body", "err", cerr)
		}
	}()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &statusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}
