package routing

import (
	"github.com/apexgps/apexgps/internal/geo"
	"github.com/apexgps/apexgps/internal/graph"
)

// SanityResult is the outcome of the route circuitousness check.
type SanityResult struct {
	IsSane           bool
	CircuitousFactor float64
	RouteKm          float64
	StraightLineKm   float64
}

// CheckRouteSanity compares route length against straight-line distance
// between the endpoints. A ratio above MaxCircuitousFactor marks the route as
// pathological: the cost function wandered instead of going somewhere.
// Coincident endpoints (loop rides) always pass, since there is no meaningful
// straight-line reference.
func CheckRouteSanity(segments []graph.Segment, start, end geo.Point) SanityResult {
	routeKm := ComputeMetrics(segments).DistanceKm
	straightKm := geo.DistanceKm(start, end)

	if straightKm == 0 {
		return SanityResult{IsSane: true, CircuitousFactor: 1.0, RouteKm: routeKm}
	}

	factor := routeKm / straightKm
	return SanityResult{
		IsSane:           factor <= MaxCircuitousFactor,
		CircuitousFactor: factor,
		RouteKm:          routeKm,
		StraightLineKm:   straightKm,
	}
}
