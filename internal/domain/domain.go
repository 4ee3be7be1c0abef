// Package domain holds the core value types shared by the segmenter,
// planner, cache and API layers.
package domain

// Coordinate is a WGS84 (latitude, longitude) pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RouteGeometry is an ordered drive path from start to end plus its total
// length in miles. It is produced by the external routing collaborator and
// consumed read-only everywhere else. A valid geometry has at least 2 points
// and is traversed monotonically start to end.
type RouteGeometry struct {
	Points     []Coordinate `json:"points"`
	TotalMiles float64      `json:"total_miles"`
}

// StateUnknown tags route segments that fall outside every loaded state
// boundary. Unknown segments consume range but cannot host a fuel stop.
const StateUnknown = "UNKNOWN"

// StateFuelPrice is the cheapest known price for one state and the station
// it came from. Refreshed only by the bulk loader, never by the optimizer.
type StateFuelPrice struct {
	State          string  `json:"state"`
	PricePerGallon float64 `json:"price_per_gallon"`
	StationID      int64   `json:"station_id"`
	StationName    string  `json:"station_name"`
	City           string  `json:"city"`
}

// RouteSegment is a contiguous slice of the route tagged with the state it
// passes through. Segments partition [0, TotalMiles] in route order with no
// gaps or overlaps. Price is nil for unknown segments.
type RouteSegment struct {
	StartMiles float64         `json:"start_miles"`
	EndMiles   float64         `json:"end_miles"`
	State      string          `json:"state"`
	Entry      Coordinate      `json:"entry"`
	Price      *StateFuelPrice `json:"price,omitempty"`
}

// Miles returns the segment length.
func (s RouteSegment) Miles() float64 { return s.EndMiles - s.StartMiles }

// Priced reports whether the segment can host a fuel stop.
func (s RouteSegment) Priced() bool { return s.Price != nil }

// FuelStop is a chosen refueling point along the route.
type FuelStop struct {
	OffsetMiles    float64    `json:"offset_miles"`
	Location       Coordinate `json:"location"`
	State          string     `json:"state"`
	PricePerGallon float64    `json:"price_per_gallon"`
	Gallons        float64    `json:"gallons"`
	Cost           float64    `json:"cost"`
	StationID      int64      `json:"station_id"`
	StationName    string     `json:"station_name"`
	City           string     `json:"city"`
}

// FuelPlan is the unit returned to callers and stored in the cache. Stops
// are in strictly increasing offset order. TotalCost is rounded to cents;
// per-stop costs are kept at full precision to avoid compounding rounding.
type FuelPlan struct {
	Stops        []FuelStop `json:"stops"`
	TotalCost    float64    `json:"total_cost"`
	TotalMiles   float64    `json:"total_miles"`
	TotalGallons float64    `json:"total_gallons"`
	States       []string   `json:"states"`
}
