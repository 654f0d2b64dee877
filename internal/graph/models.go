// Package graph provides access to the routable road network stored in
// PostGIS/pgRouting: vertex snapping, shortest-path search with a caller
// supplied cost expression, segment lookups and POI corridor queries.
package graph

import (
	"context"
	"errors"

	"github.com/apexgps/apexgps/internal/geo"
)

// Sentinel errors for graph store operations.
var (
	// ErrNoVertexFound indicates no network vertex exists within the snap threshold.
	ErrNoVertexFound = errors.New("no vertex found within threshold")
	// ErrStoreUnavailable indicates the graph store is down or the circuit breaker is open.
	ErrStoreUnavailable = errors.New("graph store unavailable")
)

// Segment is one road arc of the network with its static and derived
// attributes. Nullable metric columns are normalized at the store boundary:
// a missing scenic rating reads as 5.0, a missing curvature as 1.0 and a
// missing POI density as 0.0, matching the defaults baked into the cost SQL.
type Segment struct {
	ID                int64
	OSMID             int64
	Name              string
	Highway           string
	LengthM           float64
	CostTime          float64 // travel time in seconds
	ScenicRating      float64 // 0-10
	Curvature         float64 // sinuosity ratio, >= 1.0 in practice
	WeightedPOIDensity float64
	Geometry          []geo.Point
}

// PathStep is one row of a shortest-path result. Edge is -1 on the terminal
// row, the primitive's "no edge" sentinel.
type PathStep struct {
	Seq     int
	Node    int64
	Edge    int64
	Cost    float64
	AggCost float64
}

// POICandidate is a Point of Interest found near a route corridor, before
// scenic scoring.
type POICandidate struct {
	ID                 int64
	Name               string
	Category           string
	Location           geo.Point
	ImportanceScore    float64
	NearbySegmentCount int
	MinDistanceM       float64
}

// POIQuery bounds a POI corridor search.
type POIQuery struct {
	// SearchRadiusM is the ST_DWithin radius around route segments.
	SearchRadiusM float64
	// MaxDistanceM filters out POIs whose minimum distance to the route
	// exceeds this value.
	MaxDistanceM float64
	// MinImportance filters out low-importance POIs.
	MinImportance float64
	// Limit caps the number of candidates returned.
	Limit int
}

// Store is the capability boundary to the road network. Implementations must
// be safe for concurrent use.
type Store interface {
	// NearestVertex snaps a point to the nearest usable network vertex within
	// thresholdDeg degrees. Returns ErrNoVertexFound when nothing qualifies.
	NearestVertex(ctx context.Context, p geo.Point, thresholdDeg float64) (int64, error)

	// ShortestPath runs the shortest-path primitive between two vertices with
	// the given per-edge cost expression. An empty result means the target is
	// unreachable; that is not an error.
	ShortestPath(ctx context.Context, from, to int64, costExpr string, directed bool) ([]PathStep, error)

	// SegmentsByIDs fetches full segment records preserving the input order.
	SegmentsByIDs(ctx context.Context, ids []int64) ([]Segment, error)

	// POIsNearSegments finds POIs near any of the given segments, grouped per
	// POI with the count of nearby segments and the minimum distance.
	POIsNearSegments(ctx context.Context, segmentIDs []int64, q POIQuery) ([]POICandidate, error)
}

// EdgeIDs extracts the traversed edge IDs from a shortest-path result,
// dropping the -1 terminal sentinel.
func EdgeIDs(steps []PathStep) []int64 {
	if len(steps) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(steps))
	for _, s := range steps {
		if s.Edge >= 0 {
			ids = append(ids, s.Edge)
		}
	}
	return ids
}
