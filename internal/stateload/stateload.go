// Package stateload populates a reference store from the bundled data files:
// state boundaries from a GeoJSON FeatureCollection and fuel prices from an
// OPIS-style CSV export.
package stateload

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/fuel-route-optimizer/internal/domain"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/reference/h3index"
)

type feature struct {
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

// BoundariesFromGeoJSON loads every feature of a FeatureCollection into the
// index. The state code is read from the first of the STUSPS, state, or
// abbr properties.
func BoundariesFromGeoJSON(ix *h3index.Index, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var fc featureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if fc.Type != "FeatureCollection" {
		return fmt.Errorf("%s: expected FeatureCollection, got %q", path, fc.Type)
	}

	loaded := 0
	for i, f := range fc.Features {
		code := stateCode(f.Properties)
		if code == "" {
			return fmt.Errorf("%s: feature %d has no state code property", path, i)
		}
		if err := ix.AddState(code, f.Geometry); err != nil {
			return fmt.Errorf("%s: feature %d: %w", path, i, err)
		}
		loaded++
	}
	if loaded == 0 {
		return fmt.Errorf("%s: no features", path)
	}
	return nil
}

// PricesFromCSV loads station rows and keeps the cheapest station per state.
// Expected columns: opis_id, name, address, city, state, rack_id, retail_price.
func PricesFromCSV(ix *h3index.Index, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cheapest, err := CheapestPerState(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for _, p := range cheapest {
		ix.SetPrice(p)
	}
	return nil
}

// CheapestPerState parses the price CSV and reduces it to the lowest-priced
// station in each state.
func CheapestPerState(r io.Reader) (map[string]domain.StateFuelPrice, error) {
	rows, err := ParsePriceCSV(r)
	if err != nil {
		return nil, err
	}
	out := map[string]domain.StateFuelPrice{}
	for _, p := range rows {
		cur, ok := out[p.State]
		if !ok || p.PricePerGallon < cur.PricePerGallon {
			out[p.State] = p
		}
	}
	return out, nil
}

// ParsePriceCSV reads every valid station row. Rows with a malformed price
// or a blank state are skipped, not fatal; a price feed export routinely
// carries a few junk lines.
func ParsePriceCSV(r io.Reader) ([]domain.StateFuelPrice, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := columnIndex(header)
	if col["state"] < 0 || col["retail_price"] < 0 {
		return nil, fmt.Errorf("csv header missing state or retail_price column")
	}

	var out []domain.StateFuelPrice
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}

		state := strings.ToUpper(strings.TrimSpace(field(rec, col["state"])))
		price, perr := strconv.ParseFloat(strings.TrimSpace(field(rec, col["retail_price"])), 64)
		if state == "" || perr != nil || price <= 0 {
			continue
		}

		p := domain.StateFuelPrice{
			State:          state,
			PricePerGallon: price,
			StationName:    strings.TrimSpace(field(rec, col["name"])),
			City:           strings.TrimSpace(field(rec, col["city"])),
		}
		if id, err := strconv.ParseInt(strings.TrimSpace(field(rec, col["opis_id"])), 10, 64); err == nil {
			p.StationID = id
		}
		out = append(out, p)
	}
	return out, nil
}

func columnIndex(header []string) map[string]int {
	names := []string{"opis_id", "name", "address", "city", "state", "rack_id", "retail_price"}
	col := map[string]int{}
	for _, n := range names {
		col[n] = -1
	}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		// Tolerate the feed's header variants.
		switch key {
		case "opis truckstop id":
			key = "opis_id"
		case "truckstop name":
			key = "name"
		case "retail price":
			key = "retail_price"
		}
		if _, ok := col[key]; ok {
			col[key] = i
		}
	}
	return col
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func stateCode(props map[string]any) string {
	for _, k := range []string{"STUSPS", "stusps", "state", "STATE", "abbr", "postal"} {
		if v, ok := props[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.ToUpper(strings.TrimSpace(v))
		}
	}
	return ""
}
