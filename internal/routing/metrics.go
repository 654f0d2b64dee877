package routing

import (
	"math"

	"github.com/samber/lo"

	"github.com/apexgps/apexgps/internal/geo"
	"github.com/apexgps/apexgps/internal/graph"
	"github.com/apexgps/apexgps/pkg/polyline"
)

// ComputeMetrics aggregates distance and time over a segment list. An empty
// list yields all zeros, not an error.
func ComputeMetrics(segments []graph.Segment) PathMetrics {
	distanceM := lo.SumBy(segments, func(s graph.Segment) float64 { return s.LengthM })
	timeSeconds := lo.SumBy(segments, func(s graph.Segment) float64 { return s.CostTime })

	return PathMetrics{
		DistanceM:    distanceM,
		DistanceKm:   distanceM / 1000.0,
		TimeSeconds:  timeSeconds,
		TimeMinutes:  timeSeconds / 60.0,
		SegmentCount: len(segments),
	}
}

// RouteGeometry concatenates segment geometries into one traversal-ordered
// coordinate list. Segment linestrings are stored in arbitrary orientation, so
// each one is flipped when its far end sits closer to the path so far.
// Consecutive duplicate points at the seams are dropped.
func RouteGeometry(segments []graph.Segment) []geo.Point {
	var route []geo.Point
	for _, seg := range segments {
		coords := seg.Geometry
		if len(coords) == 0 {
			continue
		}
		if len(route) > 0 && len(coords) > 1 {
			last := route[len(route)-1]
			if flatDistance(last, coords[len(coords)-1]) < flatDistance(last, coords[0]) {
				coords = reversed(coords)
			}
		}
		for _, c := range coords {
			if len(route) > 0 && route[len(route)-1] == c {
				continue
			}
			route = append(route, c)
		}
	}
	return route
}

// EncodeRoute renders the route geometry as a Google encoded polyline.
func EncodeRoute(segments []graph.Segment) string {
	coords := RouteGeometry(segments)
	points := make([]polyline.Point, len(coords))
	for i, c := range coords {
		points[i] = polyline.Point{Lat: c.Lat, Lon: c.Lon}
	}
	return polyline.Encode(points)
}

// ScenicMetricsFor computes the scenic quality summary of a route. Averages
// are weighted by segment length; the composite score combines scenic rating
// (up to 35), POI density (up to 35), curvature (up to 20), and the share of
// secondary roads (up to 10), clamped to [0, 100].
func ScenicMetricsFor(segments []graph.Segment) ScenicMetrics {
	totalLen := lo.SumBy(segments, func(s graph.Segment) float64 { return s.LengthM })
	if totalLen <= 0 {
		return ScenicMetrics{}
	}

	var scenicSum, densitySum, curvatureSum, secondaryLen float64
	for _, s := range segments {
		scenicSum += s.ScenicRating * s.LengthM
		densitySum += s.WeightedPOIDensity * s.LengthM
		curvatureSum += s.Curvature * s.LengthM
		if isSecondaryHighway(s.Highway) {
			secondaryLen += s.LengthM
		}
	}

	avgScenic := scenicSum / totalLen
	avgDensity := densitySum / totalLen
	avgCurvature := curvatureSum / totalLen
	secondaryPct := secondaryLen / totalLen * 100.0

	score := (avgScenic/10.0)*35.0 +
		math.Min(avgDensity*3.5, 35.0) +
		math.Min((avgCurvature-1.0)*20.0, 20.0) +
		math.Min(secondaryPct*0.1, 10.0)

	return ScenicMetrics{
		Score:                clamp(score, 0, 100),
		AvgScenicRating:      avgScenic,
		AvgPOIDensity:        avgDensity,
		AvgCurvature:         avgCurvature,
		SecondaryRoadPercent: secondaryPct,
	}
}

// flatDistance is a cheap coordinate-space distance used only to pick
// segment orientation, where relative order is all that matters.
func flatDistance(a, b geo.Point) float64 {
	return math.Abs(a.Lat-b.Lat) + math.Abs(a.Lon-b.Lon)
}

func reversed(points []geo.Point) []geo.Point {
	out := make([]geo.Point, len(points))
	for i, p := range points {
		out[len(points)-1-i] = p
	}
	return out
}

func clamp(v, low, high float64) float64 {
	return math.Max(low, math.Min(high, v))
}
