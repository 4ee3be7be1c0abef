// Package loader performs the bulk reference-data loads: state boundary
// geometries and fuel station prices into Postgres, followed by a reload
// event so consumers can flush stale cached plans.
package loader

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/fuel-route-optimizer/internal/domain"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/invalidation"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/stateload"
)

const schema = `
CREATE TABLE IF NOT EXISTS us_states (
	code text PRIMARY KEY,
	name text NOT NULL DEFAULT '',
	geom geometry(MultiPolygon, 4326) NOT NULL
);
CREATE INDEX IF NOT EXISTS us_states_geom_idx ON us_states USING gist (geom);

CREATE TABLE IF NOT EXISTS fuel_stations (
	opis_id bigint PRIMARY KEY,
	name text NOT NULL,
	address text NOT NULL DEFAULT '',
	city text NOT NULL DEFAULT '',
	state text NOT NULL,
	retail_price double precision NOT NULL
);
CREATE INDEX IF NOT EXISTS fuel_stations_state_price_idx
	ON fuel_stations (state, retail_price);
`

type Loader struct {
	db     *sql.DB
	logger *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{db: db, logger: logger}
}

// EnsureSchema creates the reference tables if they do not exist. The
// postgis extension itself is provisioned out of band.
func (l *Loader) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// LoadBoundaries upserts every feature of a GeoJSON FeatureCollection into
// us_states. Polygon geometries are promoted to MultiPolygon to match the
// column type.
func (l *Loader) LoadBoundaries(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any  `json:"properties"`
			Geometry   json.RawMessage `json:"geometry"`
		} `json:"features"`
	}
	if err := json.Unmarshal(raw, &fc); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	if fc.Type != "FeatureCollection" {
		return 0, fmt.Errorf("%s: expected FeatureCollection, got %q", path, fc.Type)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const q = `
		INSERT INTO us_states (code, name, geom)
		VALUES ($1, $2, ST_Multi(ST_SetSRID(ST_GeomFromGeoJSON($3), 4326)))
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, geom = EXCLUDED.geom`

	n := 0
	for i, f := range fc.Features {
		code := stateCode(f.Properties)
		if code == "" {
			return 0, fmt.Errorf("%s: feature %d has no state code property", path, i)
		}
		name, _ := f.Properties["NAME"].(string)
		if _, err := tx.ExecContext(ctx, q, code, name, string(f.Geometry)); err != nil {
			return 0, fmt.Errorf("upsert state %s: %w", code, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	l.logger.Info("loaded state boundaries", "path", path, "states", n)
	return n, nil
}

// LoadPrices replaces fuel_stations with the CSV contents and returns the
// distinct states that received new prices.
func (l *Loader) LoadPrices(ctx context.Context, path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := stateload.ParsePriceCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: no usable station rows", path)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `TRUNCATE fuel_stations`); err != nil {
		return nil, fmt.Errorf("truncate stations: %w", err)
	}

	const q = `
		INSERT INTO fuel_stations (opis_id, name, city, state, retail_price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (opis_id) DO UPDATE SET
			name = EXCLUDED.name, city = EXCLUDED.city,
			state = EXCLUDED.state, retail_price = EXCLUDED.retail_price`

	seen := map[string]bool{}
	for _, p := range rows {
		if _, err := tx.ExecContext(ctx, q, p.StationID, p.StationName, p.City, p.State, p.PricePerGallon); err != nil {
			return nil, fmt.Errorf("insert station %d: %w", p.StationID, err)
		}
		seen[p.State] = true
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	states := make([]string, 0, len(seen))
	for st := range seen {
		states = append(states, st)
	}
	sort.Strings(states)
	l.logger.Info("loaded fuel prices", "path", path, "stations", len(rows), "states", len(states))
	return states, nil
}

// PublishReload emits a prices_reloaded event for the given states.
func PublishReload(brokers []string, topic string, states []string, source string) error {
	if len(states) == 0 {
		return nil
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return fmt.Errorf("create producer: %w", err)
	}
	defer func() { _ = producer.Close() }()

	ev := invalidation.Event{
		Version: 1,
		Op:      invalidation.OpPricesReloaded,
		States:  states,
		TS:      time.Now().UTC(),
		Source:  source,
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	_, _, err = producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(invalidation.OpPricesReloaded),
		Value: sarama.ByteEncoder(raw),
	})
	if err != nil {
		return fmt.Errorf("send reload event: %w", err)
	}
	return nil
}

// CheapestPerStateFromCSV mirrors the in-memory loader path, used to verify
// a feed file without touching the database.
func CheapestPerStateFromCSV(path string) (map[string]domain.StateFuelPrice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return stateload.CheapestPerState(f)
}

func stateCode(props map[string]any) string {
	for _, k := range []string{"STUSPS", "stusps", "state", "STATE", "abbr", "postal"} {
		if v, ok := props[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.ToUpper(strings.TrimSpace(v))
		}
	}
	return ""
}
