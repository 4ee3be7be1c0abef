package domain

import "errors"

// Failure taxonomy. All component failures are wrapped around one of these
// sentinels so the API layer can map them without knowing the component.
var (
	// ErrInvalidParameters rejects malformed coordinates or non-positive
	// vehicle constants before any I/O happens.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrUpstreamRouteUnavailable means the external route fetch failed or
	// timed out. Retryable by the caller; the optimizer does not retry.
	ErrUpstreamRouteUnavailable = errors.New("upstream route unavailable")

	// ErrReferenceUnavailable means the spatial reference store could not
	// be queried. Retryable by the caller.
	ErrReferenceUnavailable = errors.New("reference store unavailable")

	// ErrNoReachableFuel is a planning outcome, not a transient fault: the
	// route cannot be completed under the range constraints with the known
	// price coverage.
	ErrNoReachableFuel = errors.New("no reachable fuel")

	// ErrInvalidRoute marks a degenerate fetched geometry (fewer than 2
	// points or non-monotonic offsets). An upstream data defect.
	ErrInvalidRoute = errors.New("invalid route")
)
