// Package routing implements the scenic route planner: cost profiles, POI
// discovery and scoring, the candidate search over POI subsets, and the
// fastest-vs-scenic comparison orchestration.
package routing

import (
	"errors"
	"fmt"

	"github.com/apexgps/apexgps/internal/geo"
)

// Sentinel errors for routing operations.
var (
	// ErrNoRoute indicates no path exists between the resolved vertices.
	ErrNoRoute = errors.New("no route found between the given points")
	// ErrRouteNotSane indicates the route failed the circuitousness check
	// under both cost profiles.
	ErrRouteNotSane = errors.New("route is disproportionate to straight-line distance")
	// ErrUnknownPreference indicates an unrecognized preference name.
	ErrUnknownPreference = errors.New("unknown routing preference")
)

// Stage names used in structured errors.
const (
	StageCoordinateValidation = "coordinate_validation"
	StageDistanceValidation   = "distance_validation"
	StagePreferenceValidation = "preference_validation"
	StageFastestRoute         = "fastest_route_calculation"
)

// StructuredError is a calculation failure the API surfaces verbatim: which
// stage failed plus enough context to diagnose it.
type StructuredError struct {
	Stage   string
	Message string
	Details map[string]any
}

func (e *StructuredError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

// POIStop is a Point of Interest selected as a stop along a scenic route.
// Built transiently per calculation; never persisted.
type POIStop struct {
	ID          int64     `json:"poi_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Location    geo.Point `json:"location"`
	ScenicValue float64   `json:"scenic_value"`
}

// PathMetrics are the aggregate distance/time figures for a segment list.
type PathMetrics struct {
	DistanceM    float64 `json:"total_distance_m"`
	DistanceKm   float64 `json:"total_distance_km"`
	TimeSeconds  float64 `json:"total_time_seconds"`
	TimeMinutes  float64 `json:"total_time_minutes"`
	SegmentCount int     `json:"segment_count"`
}

// ScenicMetrics summarize the scenic quality of a route, length-weighted so
// longer segments count more.
type ScenicMetrics struct {
	Score                float64 `json:"scenic_score"`
	AvgScenicRating      float64 `json:"avg_scenic_rating"`
	AvgPOIDensity        float64 `json:"avg_poi_density"`
	AvgCurvature         float64 `json:"avg_curvature"`
	SecondaryRoadPercent float64 `json:"secondary_road_percent"`
}

// TimeConstraint reports how a scenic route compares against the fastest
// route reference.
type TimeConstraint struct {
	MaxExcessMinutes        float64 `json:"max_excess_minutes"`
	ActualExcessMinutes     float64 `json:"actual_excess_minutes"`
	IsWithinConstraint      bool    `json:"is_within_constraint"`
	ReferenceFastestMinutes float64 `json:"reference_fastest_minutes"`
}

// FastestSummary is the fastest-route half of a comparison result.
type FastestSummary struct {
	TimeMinutes  float64 `json:"time_minutes"`
	DistanceKm   float64 `json:"distance_km"`
	Polyline     string  `json:"polyline"`
	SegmentCount int     `json:"segment_count"`
}

// ScenicSummary is the scenic-route half of a comparison result.
type ScenicSummary struct {
	TimeMinutes     float64        `json:"time_minutes"`
	DistanceKm      float64        `json:"distance_km"`
	ScenicScore     float64        `json:"scenic_score"`
	AvgScenicRating float64        `json:"avg_scenic_rating"`
	AvgCurvature    float64        `json:"avg_curvature"`
	POICount        int            `json:"poi_count"`
	POIStops        []POIStop      `json:"poi_stops"`
	Polyline        string         `json:"polyline"`
	SegmentCount    int            `json:"segment_count"`
	TimeConstraint  TimeConstraint `json:"time_constraint"`
}

// Comparison is the fastest-vs-scenic verdict.
type Comparison struct {
	TimeExcessMinutes float64 `json:"time_excess_minutes"`
	TimeExcessPercent float64 `json:"time_excess_percent"`
	ScenicScore       float64 `json:"scenic_score"`
	Recommendation    string  `json:"recommendation"`
}

// Result is the full payload of one orchestrated route comparison.
type Result struct {
	Success          bool           `json:"success"`
	Preference       Preference     `json:"preference"`
	ProcessingTimeMs float64        `json:"processing_time_ms"`
	FastestRoute     FastestSummary `json:"fastest_route"`
	ScenicRoute      ScenicSummary  `json:"scenic_route"`
	Comparison       Comparison     `json:"comparison"`
}
