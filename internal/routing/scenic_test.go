package routing

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexgps/apexgps/internal/geo"
	"github.com/apexgps/apexgps/internal/graph"
)

// Test network: start snaps to vertex 1, end to vertex 2, the POI to vertex 3.
// Edge 10 is the motorway fastest path, edge 11 the basic scenic path, edge 12
// an absurdly long alternative, edges 20/21 the legs through the POI.
var (
	testStart = geo.Point{Lat: 45.0, Lon: 9.0}
	testEnd   = geo.Point{Lat: 45.1, Lon: 9.1}
	testPOI   = geo.Point{Lat: 45.05, Lon: 9.06}
)

// stubStore is an in-memory Store serving a fixed network. Path choice keys
// off the cost expression: raw cost_time means fastest, the binary-bonus
// fallback marker means secondary, anything else primary.
type stubStore struct {
	vertices       map[geo.Point]int64
	fastestEdges   []int64
	primaryEdges   []int64
	secondaryEdges []int64
	legEdges       map[[2]int64][]int64
	segments       map[int64]graph.Segment
	pois           []graph.POICandidate
	poisErr        error

	nearestCalls atomic.Int32
	pathCalls    atomic.Int32
	segmentCalls atomic.Int32
	poiCalls     atomic.Int32
}

func (s *stubStore) NearestVertex(_ context.Context, p geo.Point, _ float64) (int64, error) {
	s.nearestCalls.Add(1)
	if v, ok := s.vertices[p]; ok {
		return v, nil
	}
	return 0, graph.ErrNoVertexFound
}

func (s *stubStore) ShortestPath(_ context.Context, from, to int64, costExpr string, _ bool) ([]graph.PathStep, error) {
	s.pathCalls.Add(1)

	var edges []int64
	direct := from == 1 && to == 2
	switch {
	case costExpr == "cost_time":
		if direct {
			edges = s.fastestEdges
		}
	case strings.Contains(costExpr, "ELSE 1.3"):
		if direct {
			edges = s.secondaryEdges
		} else {
			edges = s.legEdges[[2]int64{from, to}]
		}
	default:
		if direct {
			edges = s.primaryEdges
		} else {
			edges = s.legEdges[[2]int64{from, to}]
		}
	}
	if len(edges) == 0 {
		return nil, nil
	}

	steps := make([]graph.PathStep, 0, len(edges)+1)
	for i, e := range edges {
		steps = append(steps, graph.PathStep{Seq: i + 1, Node: from, Edge: e, Cost: 1, AggCost: float64(i)})
	}
	steps = append(steps, graph.PathStep{Seq: len(edges) + 1, Node: to, Edge: -1, AggCost: float64(len(edges))})
	return steps, nil
}

func (s *stubStore) SegmentsByIDs(_ context.Context, ids []int64) ([]graph.Segment, error) {
	s.segmentCalls.Add(1)
	out := make([]graph.Segment, 0, len(ids))
	for _, id := range ids {
		if seg, ok := s.segments[id]; ok {
			out = append(out, seg)
		}
	}
	return out, nil
}

func (s *stubStore) POIsNearSegments(_ context.Context, _ []int64, _ graph.POIQuery) ([]graph.POICandidate, error) {
	s.poiCalls.Add(1)
	if s.poisErr != nil {
		return nil, s.poisErr
	}
	return s.pois, nil
}

func testSegment(id int64, highway string, lengthM, costTime, scenic, curvature, density float64) graph.Segment {
	return graph.Segment{
		ID:                 id,
		OSMID:              id * 100,
		Highway:            highway,
		LengthM:            lengthM,
		CostTime:           costTime,
		ScenicRating:       scenic,
		Curvature:          curvature,
		WeightedPOIDensity: density,
		Geometry:           []geo.Point{testStart, testEnd},
	}
}

func newTestNetwork() *stubStore {
	return &stubStore{
		vertices: map[geo.Point]int64{
			testStart: 1,
			testEnd:   2,
			testPOI:   3,
		},
		fastestEdges:   []int64{10},
		primaryEdges:   []int64{11},
		secondaryEdges: []int64{11},
		legEdges: map[[2]int64][]int64{
			{1, 3}: {20},
			{3, 2}: {21},
		},
		segments: map[int64]graph.Segment{
			10: testSegment(10, "motorway", 15000, 600, 3, 1.0, 0),
			11: testSegment(11, "secondary", 14000, 900, 8, 1.5, 4),
			12: testSegment(12, "secondary", 30000, 2400, 8, 1.5, 4),
			20: testSegment(20, "secondary", 8000, 500, 8, 1.6, 4),
			21: testSegment(21, "secondary", 8000, 500, 8, 1.6, 4),
		},
		pois: []graph.POICandidate{
			{
				ID: 7, Name: "Passo del Vento", Category: "viewpoint",
				Location: testPOI, ImportanceScore: 3,
				NearbySegmentCount: 3, MinDistanceM: 500,
			},
		},
	}
}

func newTestScenicService(store graph.Store) *ScenicService {
	return NewScenicService(ScenicConfig{Store: store, Logger: zerolog.Nop()})
}

func TestScenicService_PicksBestPOICandidate(t *testing.T) {
	store := newTestNetwork()
	svc := newTestScenicService(store)

	ref := 10.0
	route, err := svc.Calculate(context.Background(), ScenicRequest{
		Start:                   testStart,
		End:                     testEnd,
		Preference:              PreferenceBalanced,
		ReferenceFastestMinutes: &ref,
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{20, 21}, route.EdgeIDs)
	require.Len(t, route.POIStops, 1)
	assert.Equal(t, int64(7), route.POIStops[0].ID)
	assert.InDelta(t, 6.75, route.POIStops[0].ScenicValue, 0.001)
	assert.InDelta(t, 64.0, route.Scenic.Score, 0.001)
	assert.InDelta(t, 16.0, route.Metrics.DistanceKm, 0.001)
	assert.Equal(t, CostPrimary, route.CostVariant)
	assert.NotEmpty(t, route.Polyline)

	// 1000s scenic vs the 10 minute reference.
	assert.InDelta(t, 6.667, route.TimeConstraint.ActualExcessMinutes, 0.01)
	assert.True(t, route.TimeConstraint.IsWithinConstraint)
}

func TestScenicService_NoPOIsFallsBackToBasicRoute(t *testing.T) {
	store := newTestNetwork()
	store.pois = nil
	svc := newTestScenicService(store)

	route, err := svc.Calculate(context.Background(), ScenicRequest{
		Start: testStart, End: testEnd, Preference: PreferenceBalanced,
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{11}, route.EdgeIDs)
	assert.Empty(t, route.POIStops)
	assert.InDelta(t, 62.0, route.Scenic.Score, 0.001)
}

func TestScenicService_RejectsExcessiveDetour(t *testing.T) {
	store := newTestNetwork()
	// Slow the POI legs without changing their length: 1200s through the POI
	// against the 900s basic route is past the 1.2x time detour cap, even
	// though both rides cover 14 km.
	store.segments[20] = testSegment(20, "secondary", 7000, 600, 8, 1.6, 4)
	store.segments[21] = testSegment(21, "secondary", 7000, 600, 8, 1.6, 4)
	svc := newTestScenicService(store)

	route, err := svc.Calculate(context.Background(), ScenicRequest{
		Start: testStart, End: testEnd, Preference: PreferenceBalanced,
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{11}, route.EdgeIDs)
	assert.Empty(t, route.POIStops)
}

func TestScenicService_RejectsCandidateOverTimeBudget(t *testing.T) {
	store := newTestNetwork()
	// A slow basic route keeps the candidate inside the relative detour cap
	// (3100s vs 3000s) while its absolute excess over the 10 minute fastest
	// reference blows the 40 minute budget.
	store.segments[11] = testSegment(11, "secondary", 14000, 3000, 8, 1.5, 4)
	store.segments[20] = testSegment(20, "secondary", 8000, 1550, 8, 1.6, 4)
	store.segments[21] = testSegment(21, "secondary", 8000, 1550, 8, 1.6, 4)
	svc := newTestScenicService(store)

	ref := 10.0
	route, err := svc.Calculate(context.Background(), ScenicRequest{
		Start: testStart, End: testEnd, Preference: PreferenceBalanced,
		ReferenceFastestMinutes: &ref,
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{11}, route.EdgeIDs)
	assert.Empty(t, route.POIStops)
}

func TestScenicService_RetriesWithSecondaryCosts(t *testing.T) {
	store := newTestNetwork()
	store.primaryEdges = []int64{12} // 30 km for a 13.6 km crow-flight: insane
	store.pois = nil
	svc := newTestScenicService(store)

	route, err := svc.Calculate(context.Background(), ScenicRequest{
		Start: testStart, End: testEnd, Preference: PreferenceMostWinding,
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{11}, route.EdgeIDs)
	assert.Equal(t, CostSecondary, route.CostVariant)
}

func TestScenicService_BothVariantsInsane(t *testing.T) {
	store := newTestNetwork()
	store.primaryEdges = []int64{12}
	store.secondaryEdges = []int64{12}
	svc := newTestScenicService(store)

	_, err := svc.Calculate(context.Background(), ScenicRequest{
		Start: testStart, End: testEnd, Preference: PreferenceBalanced,
	})
	require.ErrorIs(t, err, ErrRouteNotSane)
}

func TestScenicService_UnreachableRoute(t *testing.T) {
	store := newTestNetwork()
	store.primaryEdges = nil
	svc := newTestScenicService(store)

	_, err := svc.Calculate(context.Background(), ScenicRequest{
		Start: testStart, End: testEnd, Preference: PreferenceBalanced,
	})
	require.ErrorIs(t, err, ErrNoRoute)
}

func TestScenicService_UnknownPreference(t *testing.T) {
	svc := newTestScenicService(newTestNetwork())

	_, err := svc.Calculate(context.Background(), ScenicRequest{
		Start: testStart, End: testEnd, Preference: "turbo",
	})
	require.ErrorIs(t, err, ErrUnknownPreference)
}

func TestScenicService_TooFewPOIsForProfileMinimum(t *testing.T) {
	store := newTestNetwork()
	svc := newTestScenicService(store)

	// most_winding wants at least 3 stops; the network only has one POI, so
	// no candidate is even attempted and the basic route stands.
	route, err := svc.Calculate(context.Background(), ScenicRequest{
		Start: testStart, End: testEnd, Preference: PreferenceMostWinding,
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{11}, route.EdgeIDs)
	assert.Empty(t, route.POIStops)
	assert.Equal(t, int32(1), store.pathCalls.Load(), "only the basic route should hit the store")
}

func TestScenicService_UnsnappablePOIIsSkipped(t *testing.T) {
	store := newTestNetwork()
	store.pois = []graph.POICandidate{
		{
			ID: 9, Name: "Lost Lake", Category: "lake",
			Location:           geo.Point{Lat: 44.0, Lon: 8.0}, // no vertex
			ImportanceScore:    3,
			NearbySegmentCount: 3, MinDistanceM: 500,
		},
	}
	svc := newTestScenicService(store)

	route, err := svc.Calculate(context.Background(), ScenicRequest{
		Start: testStart, End: testEnd, Preference: PreferenceBalanced,
	})
	require.NoError(t, err)

	// The only candidate lost its only stop, so the basic route stands.
	assert.Equal(t, []int64{11}, route.EdgeIDs)
	assert.Empty(t, route.POIStops)
}
