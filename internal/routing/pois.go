package routing

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"

	"github.com/apexgps/apexgps/internal/graph"
)

// categoryWeights bias POI scenic value toward categories motorcyclists
// detour for. Unlisted categories get weight 1.
var categoryWeights = map[string]float64{
	"panoramic":     3.0,
	"mountain_pass": 3.5,
	"twisty_road":   4.0,
	"viewpoint":     3.0,
	"lake":          2.5,
	"waterfall":     2.8,
	"castle":        2.0,
	"vineyard":      1.8,
}

// CategoryWeight returns the scenic weight for a POI category.
func CategoryWeight(category string) float64 {
	if w, ok := categoryWeights[category]; ok {
		return w
	}
	return 1.0
}

// POIScenicValue scores a candidate: category weight times importance, boosted
// by how many route segments pass nearby (capped at 2x) and discounted by
// distance from the route (up to half off at maxDistanceM).
func POIScenicValue(c graph.POICandidate, maxDistanceM float64) float64 {
	proximity := math.Min(float64(c.NearbySegmentCount)/3.0, 2.0)
	penalty := 1.0 - math.Min(c.MinDistanceM/maxDistanceM, 0.5)
	return CategoryWeight(c.Category) * c.ImportanceScore * proximity * penalty
}

// poiFinder discovers and ranks POIs along a route, memoizing per edge-ID
// set so candidate loops that revisit the same corridor hit the store once.
type poiFinder struct {
	store   graph.Store
	profile Profile
	logger  zerolog.Logger
	cache   *xsync.MapOf[string, []POIStop]
}

func newPOIFinder(store graph.Store, profile Profile, logger zerolog.Logger) *poiFinder {
	return &poiFinder{
		store:   store,
		profile: profile,
		logger:  logger,
		cache:   xsync.NewMapOf[string, []POIStop](),
	}
}

// FindAlongRoute returns the top POI stops along the given edges, best first.
// Store failures degrade to an empty list: a scenic route without stops beats
// no route.
func (f *poiFinder) FindAlongRoute(ctx context.Context, edgeIDs []int64) []POIStop {
	if len(edgeIDs) == 0 {
		return nil
	}

	key := edgeSetKey(edgeIDs)
	stops, _ := f.cache.LoadOrCompute(key, func() []POIStop {
		return f.discover(ctx, edgeIDs)
	})
	return stops
}

func (f *poiFinder) discover(ctx context.Context, edgeIDs []int64) []POIStop {
	candidates, err := f.store.POIsNearSegments(ctx, edgeIDs, graph.POIQuery{
		SearchRadiusM: f.profile.MaxPOIDistanceM * 2,
		MaxDistanceM:  f.profile.MaxPOIDistanceM,
		MinImportance: MinPOIImportance,
		Limit:         f.profile.MaxPOIs * 3,
	})
	if err != nil {
		f.logger.Warn().Err(err).Int("edges", len(edgeIDs)).Msg("poi discovery failed, continuing without stops")
		return nil
	}
	if len(candidates) == 0 {
		return nil
	}

	stops := make([]POIStop, 0, len(candidates))
	for _, c := range candidates {
		stops = append(stops, POIStop{
			ID:          c.ID,
			Name:        c.Name,
			Category:    c.Category,
			Location:    c.Location,
			ScenicValue: POIScenicValue(c, f.profile.MaxPOIDistanceM),
		})
	}

	// Best first; ties broken by ID so results are deterministic.
	sort.SliceStable(stops, func(i, j int) bool {
		if stops[i].ScenicValue != stops[j].ScenicValue {
			return stops[i].ScenicValue > stops[j].ScenicValue
		}
		return stops[i].ID < stops[j].ID
	})

	if len(stops) > f.profile.MaxPOIs {
		stops = stops[:f.profile.MaxPOIs]
	}
	return stops
}

// edgeSetKey builds an order-insensitive cache key from edge IDs.
func edgeSetKey(edgeIDs []int64) string {
	ids := make([]int64, len(edgeIDs))
	copy(ids, edgeIDs)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}
