// Package postgres backs the Spatial Reference Store with PostGIS: state
// membership via ST_Covers on boundary geometries, cheapest price via a
// per-state ordered lookup over the stations table.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mohammed-shakir/fuel-route-optimizer/internal/domain"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/geo"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/reference"
)

var _ reference.Store = (*Store)(nil)

type Store struct {
	db             *sql.DB
	sampleInterval float64
}

// Open connects with the pgx stdlib driver and verifies the connection.
func Open(ctx context.Context, databaseURL string, sampleIntervalMiles float64) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if sampleIntervalMiles <= 0 {
		sampleIntervalMiles = 50
	}
	return &Store{db: db, sampleInterval: sampleIntervalMiles}, nil
}

// NewWithDB wraps an existing handle (used by the loader and tests).
func NewWithDB(db *sql.DB, sampleIntervalMiles float64) *Store {
	if sampleIntervalMiles <= 0 {
		sampleIntervalMiles = 50
	}
	return &Store{db: db, sampleInterval: sampleIntervalMiles}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) StatesCrossedBy(ctx context.Context, g domain.RouteGeometry) ([]reference.StateSpan, error) {
	wps := geo.ScaledWaypoints(g, s.sampleInterval)
	if len(wps) == 0 {
		return nil, fmt.Errorf("%w: geometry has no waypoints", domain.ErrInvalidRoute)
	}

	lons := make([]float64, len(wps))
	lats := make([]float64, len(wps))
	for i, wp := range wps {
		lons[i] = wp.Coord.Lon
		lats[i] = wp.Coord.Lat
	}

	// One round trip for all sampled points; a missing join row means the
	// point is outside every loaded boundary.
	const q = `
		SELECT p.i, COALESCE(st.code, '')
		FROM unnest($1::float8[], $2::float8[]) WITH ORDINALITY AS p(lon, lat, i)
		LEFT JOIN us_states st
		  ON ST_Covers(st.geom, ST_SetSRID(ST_MakePoint(p.lon, p.lat), 4326))
		ORDER BY p.i`

	rows, err := s.db.QueryContext(ctx, q, floatArray(lons), floatArray(lats))
	if err != nil {
		return nil, fmt.Errorf("%w: query states for route: %v", domain.ErrReferenceUnavailable, err)
	}
	defer rows.Close()

	states := make([]string, len(wps))
	for rows.Next() {
		var i int
		var code string
		if err := rows.Scan(&i, &code); err != nil {
			return nil, fmt.Errorf("%w: scan state row: %v", domain.ErrReferenceUnavailable, err)
		}
		if i >= 1 && i <= len(states) {
			states[i-1] = strings.ToUpper(code)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate state rows: %v", domain.ErrReferenceUnavailable, err)
	}

	return reference.SpansFromWaypoints(wps, states, g.TotalMiles), nil
}

func (s *Store) CheapestPrice(ctx context.Context, state string) (*domain.StateFuelPrice, error) {
	const q = `
		SELECT opis_id, name, city, state, retail_price
		FROM fuel_stations
		WHERE state = $1
		ORDER BY retail_price ASC, opis_id ASC
		LIMIT 1`

	var p domain.StateFuelPrice
	err := s.db.QueryRowContext(ctx, q, strings.ToUpper(strings.TrimSpace(state))).
		Scan(&p.StationID, &p.StationName, &p.City, &p.State, &p.PricePerGallon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: cheapest price for %s: %v", domain.ErrReferenceUnavailable, state, err)
	}
	return &p, nil
}

// floatArray renders a Postgres float8[] literal; the stdlib driver has no
// native slice binding.
func floatArray(vals []float64) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, v := range vals {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%g", v)
	}
	b.WriteByte('}')
	return b.String()
}
