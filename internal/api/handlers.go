// Package api implements the inbound HTTP handlers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/mohammed-shakir/fuel-route-optimizer/internal/domain"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/optimizer"
)

type Handler struct {
	opt    *optimizer.Optimizer
	logger *slog.Logger
}

func NewHandler(opt *optimizer.Optimizer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{opt: opt, logger: logger}
}

type optimizeRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type stopResponse struct {
	Order          int     `json:"order"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	MileMarker     float64 `json:"mile_marker"`
	State          string  `json:"state"`
	PricePerGallon float64 `json:"price_per_gallon"`
	GallonsBought  float64 `json:"gallons_bought"`
	Cost           float64 `json:"cost"`
	StationID      int64   `json:"station_id,omitempty"`
	StationName    string  `json:"station_name,omitempty"`
	City           string  `json:"city,omitempty"`
}

type summaryResponse struct {
	TotalDistanceMiles    float64 `json:"total_distance_miles"`
	TotalFuelGallons      float64 `json:"total_fuel_gallons"`
	TotalFuelCost         float64 `json:"total_fuel_cost"`
	NumberOfStops         int     `json:"number_of_stops"`
	AveragePricePerGallon float64 `json:"average_price_per_gallon"`
}

type optimizeResponse struct {
	Start             string          `json:"start"`
	End               string          `json:"end"`
	States            []string        `json:"states"`
	FuelStops         []stopResponse  `json:"fuel_stops"`
	Summary           summaryResponse `json:"summary"`
	ComputationTimeMS int64           `json:"computation_time_ms"`
	CacheHit          bool            `json:"cache_hit"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

// Optimize handles POST /routes/optimize.
func (h *Handler) Optimize(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", false)
		return
	}
	if req.Start == "" || req.End == "" {
		writeError(w, http.StatusBadRequest, "both start and end locations are required", false)
		return
	}

	res, err := h.opt.Optimize(r.Context(), req.Start, req.End)
	if err != nil {
		h.writeOptimizeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, buildResponse(req, res, time.Since(start)))
}

func buildResponse(req optimizeRequest, res optimizer.Result, elapsed time.Duration) optimizeResponse {
	plan := res.Plan
	stops := make([]stopResponse, 0, len(plan.Stops))
	for i, s := range plan.Stops {
		stops = append(stops, stopResponse{
			Order:          i + 1,
			Latitude:       s.Location.Lat,
			Longitude:      s.Location.Lon,
			MileMarker:     round2(s.OffsetMiles),
			State:          s.State,
			PricePerGallon: s.PricePerGallon,
			GallonsBought:  round4(s.Gallons),
			Cost:           round2(s.Cost),
			StationID:      s.StationID,
			StationName:    s.StationName,
			City:           s.City,
		})
	}

	avg := 0.0
	if plan.TotalGallons > 0 {
		avg = plan.TotalCost / plan.TotalGallons
	}

	return optimizeResponse{
		Start:     req.Start,
		End:       req.End,
		States:    plan.States,
		FuelStops: stops,
		Summary: summaryResponse{
			TotalDistanceMiles:    round2(plan.TotalMiles),
			TotalFuelGallons:      round2(plan.TotalGallons),
			TotalFuelCost:         plan.TotalCost,
			NumberOfStops:         len(plan.Stops),
			AveragePricePerGallon: round4(avg),
		},
		ComputationTimeMS: elapsed.Milliseconds(),
		CacheHit:          res.CacheHit,
	}
}

func (h *Handler) writeOptimizeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidParameters):
		writeError(w, http.StatusBadRequest, err.Error(), false)
	case errors.Is(err, domain.ErrNoReachableFuel):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), false)
	case errors.Is(err, domain.ErrInvalidRoute):
		writeError(w, http.StatusBadGateway, err.Error(), false)
	case errors.Is(err, domain.ErrUpstreamRouteUnavailable):
		writeError(w, http.StatusBadGateway, err.Error(), true)
	case errors.Is(err, domain.ErrReferenceUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error(), true)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// the caller abandoned the request
		writeError(w, http.StatusRequestTimeout, "request canceled", false)
	default:
		h.logger.Error("optimize failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error", false)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, retryable bool) {
	writeJSON(w, status, errorResponse{Error: msg, Retryable: retryable})
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
