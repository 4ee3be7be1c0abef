package stateload

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mohammed-shakir/fuel-route-optimizer/internal/domain"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/reference/h3index"
)

const priceCSV = `opis_id,name,address,city,state,rack_id,retail_price
100,Flying J,123 Road,Denver,CO,7,3.25
101,Loves,456 Ave,Limon,CO,7,3.05
102,TA Travel,789 Hwy,Salina,KS,8,3.40
103,Broken Row,1 St,Topeka,KS,8,not-a-price
104,Blank State,2 St,Nowhere,,9,2.00
`

func TestParsePriceCSV_SkipsJunkRows(t *testing.T) {
	rows, err := ParsePriceCSV(strings.NewReader(priceCSV))
	if err != nil {
		t.Fatalf("ParsePriceCSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows=%d want 3 (junk rows skipped): %+v", len(rows), rows)
	}
	if rows[0].StationID != 100 || rows[0].State != "CO" || rows[0].PricePerGallon != 3.25 {
		t.Fatalf("row 0 = %+v", rows[0])
	}
}

func TestCheapestPerState_KeepsLowestPrice(t *testing.T) {
	cheapest, err := CheapestPerState(strings.NewReader(priceCSV))
	if err != nil {
		t.Fatalf("CheapestPerState: %v", err)
	}
	co, ok := cheapest["CO"]
	if !ok || co.PricePerGallon != 3.05 || co.StationName != "Loves" {
		t.Fatalf("CO cheapest = %+v", co)
	}
	ks, ok := cheapest["KS"]
	if !ok || ks.PricePerGallon != 3.40 {
		t.Fatalf("KS cheapest = %+v", ks)
	}
}

func TestParsePriceCSV_HeaderVariants(t *testing.T) {
	csv := "OPIS Truckstop ID,Truckstop Name,Address,City,State,Rack ID,Retail Price\n" +
		"200,Pilot,9 Rd,Ogallala,NE,3,2.95\n"
	rows, err := ParsePriceCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParsePriceCSV: %v", err)
	}
	if len(rows) != 1 || rows[0].State != "NE" || rows[0].PricePerGallon != 2.95 {
		t.Fatalf("rows=%+v", rows)
	}
}

func TestParsePriceCSV_MissingRequiredColumns(t *testing.T) {
	if _, err := ParsePriceCSV(strings.NewReader("a,b,c\n1,2,3\n")); err == nil {
		t.Fatal("expected header validation error")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const statesGeoJSON = `{
	"type": "FeatureCollection",
	"features": [
		{
			"properties": {"STUSPS": "AA", "NAME": "Alpha"},
			"geometry": {"type": "Polygon", "coordinates": [[[-106,38],[-104,38],[-104,40],[-106,40],[-106,38]]]}
		},
		{
			"properties": {"STUSPS": "BB", "NAME": "Beta"},
			"geometry": {"type": "Polygon", "coordinates": [[[-104,38],[-102,38],[-102,40],[-104,40],[-104,38]]]}
		}
	]
}`

func TestBoundariesFromGeoJSON_LoadsAllFeatures(t *testing.T) {
	path := writeFile(t, "states.geojson", statesGeoJSON)
	ix := h3index.New()
	if err := BoundariesFromGeoJSON(ix, path); err != nil {
		t.Fatalf("BoundariesFromGeoJSON: %v", err)
	}
	if st := ix.StateAt(domain.Coordinate{Lat: 39, Lon: -105}); st != "AA" {
		t.Fatalf("point in AA resolved to %q", st)
	}
	if st := ix.StateAt(domain.Coordinate{Lat: 39, Lon: -103}); st != "BB" {
		t.Fatalf("point in BB resolved to %q", st)
	}
}

func TestBoundariesFromGeoJSON_RejectsNonCollection(t *testing.T) {
	path := writeFile(t, "bad.geojson", `{"type":"Polygon","coordinates":[]}`)
	if err := BoundariesFromGeoJSON(h3index.New(), path); err == nil {
		t.Fatal("expected error for non-FeatureCollection input")
	}
}

func TestPricesFromCSV_PopulatesIndex(t *testing.T) {
	path := writeFile(t, "prices.csv", priceCSV)
	ix := h3index.New()
	if err := PricesFromCSV(ix, path); err != nil {
		t.Fatalf("PricesFromCSV: %v", err)
	}
	p, err := ix.CheapestPrice(context.Background(), "CO")
	if err != nil {
		t.Fatalf("CheapestPrice: %v", err)
	}
	if p == nil || p.PricePerGallon != 3.05 {
		t.Fatalf("CO price = %+v", p)
	}
}
