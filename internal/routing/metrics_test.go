package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexgps/apexgps/internal/geo"
	"github.com/apexgps/apexgps/internal/graph"
)

func TestComputeMetrics_EmptyPathYieldsZeros(t *testing.T) {
	m := ComputeMetrics(nil)
	assert.Zero(t, m.DistanceM)
	assert.Zero(t, m.DistanceKm)
	assert.Zero(t, m.TimeSeconds)
	assert.Zero(t, m.TimeMinutes)
	assert.Zero(t, m.SegmentCount)
}

func TestComputeMetrics_Aggregates(t *testing.T) {
	m := ComputeMetrics([]graph.Segment{
		{LengthM: 1500, CostTime: 90},
		{LengthM: 2500, CostTime: 150},
	})
	assert.InDelta(t, 4000.0, m.DistanceM, 0.001)
	assert.InDelta(t, 4.0, m.DistanceKm, 0.001)
	assert.InDelta(t, 240.0, m.TimeSeconds, 0.001)
	assert.InDelta(t, 4.0, m.TimeMinutes, 0.001)
	assert.Equal(t, 2, m.SegmentCount)
}

func TestRouteGeometry_DropsSeamDuplicates(t *testing.T) {
	a := geo.Point{Lat: 45.00, Lon: 9.00}
	b := geo.Point{Lat: 45.01, Lon: 9.01}
	c := geo.Point{Lat: 45.02, Lon: 9.02}

	route := RouteGeometry([]graph.Segment{
		{Geometry: []geo.Point{a, b}},
		{Geometry: []geo.Point{b, c}},
	})
	assert.Equal(t, []geo.Point{a, b, c}, route)
}

func TestRouteGeometry_FlipsReversedSegments(t *testing.T) {
	a := geo.Point{Lat: 45.00, Lon: 9.00}
	b := geo.Point{Lat: 45.01, Lon: 9.01}
	c := geo.Point{Lat: 45.02, Lon: 9.02}

	// Second segment stored end-to-start.
	route := RouteGeometry([]graph.Segment{
		{Geometry: []geo.Point{a, b}},
		{Geometry: []geo.Point{c, b}},
	})
	assert.Equal(t, []geo.Point{a, b, c}, route)
}

func TestRouteGeometry_SkipsMissingGeometry(t *testing.T) {
	a := geo.Point{Lat: 45.00, Lon: 9.00}
	b := geo.Point{Lat: 45.01, Lon: 9.01}

	route := RouteGeometry([]graph.Segment{
		{Geometry: nil},
		{Geometry: []geo.Point{a, b}},
	})
	assert.Equal(t, []geo.Point{a, b}, route)
}

func TestScenicMetricsFor_LengthWeighted(t *testing.T) {
	// A long scenic secondary and a short dull primary; the long one
	// dominates every average.
	segments := []graph.Segment{
		{Highway: "secondary", LengthM: 3000, ScenicRating: 9, Curvature: 1.8, WeightedPOIDensity: 6},
		{Highway: "primary", LengthM: 1000, ScenicRating: 3, Curvature: 1.0, WeightedPOIDensity: 0},
	}

	m := ScenicMetricsFor(segments)
	assert.InDelta(t, 7.5, m.AvgScenicRating, 0.001)
	assert.InDelta(t, 4.5, m.AvgPOIDensity, 0.001)
	assert.InDelta(t, 1.6, m.AvgCurvature, 0.001)
	assert.InDelta(t, 75.0, m.SecondaryRoadPercent, 0.001)

	// 26.25 + 15.75 + 12 + 7.5
	assert.InDelta(t, 61.5, m.Score, 0.001)
}

func TestScenicMetricsFor_EmptyYieldsZeros(t *testing.T) {
	m := ScenicMetricsFor(nil)
	assert.Zero(t, m.Score)
	assert.Zero(t, m.AvgScenicRating)
}

func TestScenicMetricsFor_ScoreIsClamped(t *testing.T) {
	perfect := ScenicMetricsFor([]graph.Segment{
		{Highway: "secondary", LengthM: 1000, ScenicRating: 10, Curvature: 5.0, WeightedPOIDensity: 100},
	})
	assert.InDelta(t, 100.0, perfect.Score, 0.001)

	dull := ScenicMetricsFor([]graph.Segment{
		{Highway: "motorway", LengthM: 1000, ScenicRating: 0, Curvature: 1.0, WeightedPOIDensity: 0},
	})
	assert.Zero(t, dull.Score)
}

func TestEncodeRoute(t *testing.T) {
	encoded := EncodeRoute([]graph.Segment{
		{Geometry: []geo.Point{{Lat: 38.5, Lon: -120.2}, {Lat: 40.7, Lon: -120.95}}},
	})
	require.NotEmpty(t, encoded)
	assert.Empty(t, EncodeRoute(nil))
}
