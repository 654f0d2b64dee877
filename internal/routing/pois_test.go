package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexgps/apexgps/internal/graph"
)

func TestCategoryWeight(t *testing.T) {
	assert.Equal(t, 4.0, CategoryWeight("twisty_road"))
	assert.Equal(t, 3.5, CategoryWeight("mountain_pass"))
	assert.Equal(t, 1.0, CategoryWeight("petrol_station"))
}

func TestPOIScenicValue_DistancePenaltyCapsAtHalf(t *testing.T) {
	c := graph.POICandidate{
		Category:           "viewpoint",
		ImportanceScore:    4,
		NearbySegmentCount: 3,
		MinDistanceM:       2000,
	}

	// At exactly the max distance the penalty bottoms out at 0.5.
	atMax := POIScenicValue(c, 2000)
	assert.InDelta(t, 3.0*4*1.0*0.5, atMax, 0.001)

	c.MinDistanceM = 4000
	assert.InDelta(t, atMax, POIScenicValue(c, 2000), 0.001)

	c.MinDistanceM = 0
	assert.InDelta(t, 3.0*4*1.0, POIScenicValue(c, 2000), 0.001)
}

func TestPOIScenicValue_ProximityBoostCapsAtTwo(t *testing.T) {
	c := graph.POICandidate{
		Category:           "lake",
		ImportanceScore:    2,
		NearbySegmentCount: 30,
		MinDistanceM:       0,
	}
	assert.InDelta(t, 2.5*2*2.0, POIScenicValue(c, 2000), 0.001)
}

func TestPOIFinder_RanksAndTruncates(t *testing.T) {
	store := &stubStore{
		pois: []graph.POICandidate{
			{ID: 1, Category: "castle", ImportanceScore: 2, NearbySegmentCount: 3},      // 4.0
			{ID: 2, Category: "twisty_road", ImportanceScore: 3, NearbySegmentCount: 3}, // 12.0
			{ID: 3, Category: "viewpoint", ImportanceScore: 2, NearbySegmentCount: 3},   // 6.0
			{ID: 4, Category: "lake", ImportanceScore: 4, NearbySegmentCount: 3},        // 10.0
			{ID: 5, Category: "waterfall", ImportanceScore: 3, NearbySegmentCount: 3},   // 8.4
			{ID: 6, Category: "castle", ImportanceScore: 2, NearbySegmentCount: 3},      // 4.0
		},
	}

	profile, err := ProfileFor(PreferenceBalanced) // max 4 stops
	require.NoError(t, err)
	finder := newPOIFinder(store, profile, zerolog.Nop())

	stops := finder.FindAlongRoute(context.Background(), []int64{10, 11})
	require.Len(t, stops, 4)
	assert.Equal(t, int64(2), stops[0].ID)
	assert.Equal(t, int64(4), stops[1].ID)
	assert.Equal(t, int64(5), stops[2].ID)
	assert.Equal(t, int64(3), stops[3].ID)
}

func TestPOIFinder_CachesPerEdgeSet(t *testing.T) {
	store := &stubStore{
		pois: []graph.POICandidate{
			{ID: 1, Category: "viewpoint", ImportanceScore: 3, NearbySegmentCount: 3},
		},
	}
	profile, err := ProfileFor(PreferenceBalanced)
	require.NoError(t, err)
	finder := newPOIFinder(store, profile, zerolog.Nop())

	first := finder.FindAlongRoute(context.Background(), []int64{3, 1, 2})
	second := finder.FindAlongRoute(context.Background(), []int64{2, 3, 1})

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), store.poiCalls.Load())
}

func TestPOIFinder_StoreFailureDegradesToNoStops(t *testing.T) {
	store := &stubStore{poisErr: errors.New("connection reset")}
	profile, err := ProfileFor(PreferenceFast)
	require.NoError(t, err)
	finder := newPOIFinder(store, profile, zerolog.Nop())

	assert.Empty(t, finder.FindAlongRoute(context.Background(), []int64{1}))
}

func TestPOIFinder_EmptyEdgeList(t *testing.T) {
	store := &stubStore{}
	profile, err := ProfileFor(PreferenceFast)
	require.NoError(t, err)
	finder := newPOIFinder(store, profile, zerolog.Nop())

	assert.Empty(t, finder.FindAlongRoute(context.Background(), nil))
	assert.Zero(t, store.poiCalls.Load())
}

func TestEdgeSetKey_OrderInsensitive(t *testing.T) {
	assert.Equal(t, edgeSetKey([]int64{3, 1, 2}), edgeSetKey([]int64{2, 3, 1}))
	assert.NotEqual(t, edgeSetKey([]int64{1, 2}), edgeSetKey([]int64{1, 2, 3}))
	// Keys must not be ambiguous across digit boundaries.
	assert.NotEqual(t, edgeSetKey([]int64{1, 23}), edgeSetKey([]int64{12, 3}))
}
