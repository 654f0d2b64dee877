package routing

import (
	"context"
	"fmt"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"

	"github.com/apexgps/apexgps/internal/geo"
	"github.com/apexgps/apexgps/internal/graph"
)

// ScenicConfig holds configuration for the scenic route service.
type ScenicConfig struct {
	Store  graph.Store
	Logger zerolog.Logger

	// MaxDetourFactor caps candidate travel time relative to the basic
	// scenic route. Default: MaxDetourFactor.
	MaxDetourFactor float64

	// MaxTimeExcessMinutes caps candidate time over the fastest reference.
	// Default: MaxTimeExcessMinutes.
	MaxTimeExcessMinutes float64

	// CandidateWorkers bounds concurrent candidate construction.
	// Default: 4.
	CandidateWorkers int
}

// ScenicService builds scenic routes: a profile-weighted base route, POI
// stops threaded onto it, and the best POI count selected by scenic score.
type ScenicService struct {
	store     graph.Store
	logger    zerolog.Logger
	maxDetour float64
	maxExcess float64
	workers   int
}

// NewScenicService creates a scenic route service.
func NewScenicService(cfg ScenicConfig) *ScenicService {
	if cfg.MaxDetourFactor == 0 {
		cfg.MaxDetourFactor = MaxDetourFactor
	}
	if cfg.MaxTimeExcessMinutes == 0 {
		cfg.MaxTimeExcessMinutes = MaxTimeExcessMinutes
	}
	if cfg.CandidateWorkers <= 0 {
		cfg.CandidateWorkers = 4
	}
	return &ScenicService{
		store:     cfg.Store,
		logger:    cfg.Logger,
		maxDetour: cfg.MaxDetourFactor,
		maxExcess: cfg.MaxTimeExcessMinutes,
		workers:   cfg.CandidateWorkers,
	}
}

// ScenicRequest describes one scenic route calculation.
type ScenicRequest struct {
	Start      geo.Point
	End        geo.Point
	Preference Preference

	// VertexThresholdDeg bounds endpoint snapping; zero means the default.
	VertexThresholdDeg float64

	// ReferenceFastestMinutes, when set, enables the time-excess constraint
	// against the fastest route.
	ReferenceFastestMinutes *float64
}

// ScenicRoute is a scenic route with its quality metrics and POI stops.
type ScenicRoute struct {
	Route
	Scenic         ScenicMetrics
	POIStops       []POIStop
	TimeConstraint TimeConstraint
	CostVariant    CostVariant
}

// calcState is the per-calculation working set: resolved endpoints, the
// active cost expression, and memoization caches shared by the parallel
// candidate builders.
type calcState struct {
	profile     Profile
	costExpr    string
	variant     CostVariant
	threshold   float64
	startVertex int64
	endVertex   int64

	legs     *xsync.MapOf[legKey, legResult]
	vertices *xsync.MapOf[int64, vertexResult]
}

type legKey struct {
	from int64
	to   int64
}

type legResult struct {
	edges []int64
	ok    bool
}

type vertexResult struct {
	id int64
	ok bool
}

// candidate is one scenic route alternative visiting a prefix of the ranked
// POI list.
type candidate struct {
	poiCount int
	edgeIDs  []int64
	segments []graph.Segment
	metrics  PathMetrics
	scenic   ScenicMetrics
	stops    []POIStop
}

// Calculate builds the scenic route between start and end.
//
// The basic route comes from the profile's primary cost expression; if it
// fails the circuitousness check the secondary expression is tried once.
// POIs discovered along the sane basic route are ranked and candidate routes
// threading the top 1..N stops are built concurrently; the best-scoring
// candidate within the detour and time bounds wins, with the basic route as
// the fallback.
func (s *ScenicService) Calculate(ctx context.Context, req ScenicRequest) (*ScenicRoute, error) {
	profile, err := ProfileFor(req.Preference)
	if err != nil {
		return nil, err
	}

	threshold := req.VertexThresholdDeg
	if threshold <= 0 {
		threshold = DefaultVertexThresholdDeg
	}

	startVertex, err := s.store.NearestVertex(ctx, req.Start, threshold)
	if err != nil {
		return nil, fmt.Errorf("resolve start vertex: %w", err)
	}
	endVertex, err := s.store.NearestVertex(ctx, req.End, threshold)
	if err != nil {
		return nil, fmt.Errorf("resolve end vertex: %w", err)
	}

	state := &calcState{
		profile:     profile,
		costExpr:    profile.CostExpression(CostPrimary),
		variant:     CostPrimary,
		threshold:   threshold,
		startVertex: startVertex,
		endVertex:   endVertex,
		legs:        xsync.NewMapOf[legKey, legResult](),
		vertices:    xsync.NewMapOf[int64, vertexResult](),
	}

	basic, sanity, err := s.basicRoute(ctx, state, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	if !sanity.IsSane {
		// Retry once with the blunter secondary expression. Caches keyed
		// on vertex pairs must not mix cost variants, so reset them.
		s.logger.Info().
			Float64("circuitous_factor", sanity.CircuitousFactor).
			Str("preference", string(profile.Name)).
			Msg("primary scenic route failed sanity check, retrying with secondary costs")

		state.costExpr = profile.CostExpression(CostSecondary)
		state.variant = CostSecondary
		state.legs = xsync.NewMapOf[legKey, legResult]()

		basic, sanity, err = s.basicRoute(ctx, state, req.Start, req.End)
		if err != nil {
			return nil, err
		}
		if !sanity.IsSane {
			return nil, fmt.Errorf("%w: factor %.2f over %.1f km straight-line",
				ErrRouteNotSane, sanity.CircuitousFactor, sanity.StraightLineKm)
		}
	}

	finder := newPOIFinder(s.store, profile, s.logger)
	pois := finder.FindAlongRoute(ctx, basic.EdgeIDs)

	best := s.bestCandidate(ctx, state, basic, pois, req.ReferenceFastestMinutes)

	chosenSegments := basic.Segments
	chosenEdges := basic.EdgeIDs
	var stops []POIStop
	if best != nil {
		if check := CheckRouteSanity(best.segments, req.Start, req.End); check.IsSane {
			chosenSegments = best.segments
			chosenEdges = best.edgeIDs
			stops = best.stops
		} else {
			s.logger.Info().
				Int("poi_count", best.poiCount).
				Float64("circuitous_factor", check.CircuitousFactor).
				Msg("best poi candidate failed sanity check, keeping basic scenic route")
		}
	}

	metrics := ComputeMetrics(chosenSegments)
	route := &ScenicRoute{
		Route: Route{
			StartVertex: startVertex,
			EndVertex:   endVertex,
			EdgeIDs:     chosenEdges,
			Segments:    chosenSegments,
			Metrics:     metrics,
			Polyline:    EncodeRoute(chosenSegments),
		},
		Scenic:      ScenicMetricsFor(chosenSegments),
		POIStops:    stops,
		CostVariant: state.variant,
		TimeConstraint: TimeConstraint{
			MaxExcessMinutes:   s.maxExcess,
			IsWithinConstraint: true,
		},
	}
	if req.ReferenceFastestMinutes != nil {
		ref := *req.ReferenceFastestMinutes
		excess := metrics.TimeMinutes - ref
		route.TimeConstraint.ActualExcessMinutes = excess
		route.TimeConstraint.ReferenceFastestMinutes = ref
		route.TimeConstraint.IsWithinConstraint = excess <= s.maxExcess
	}

	s.logger.Info().
		Str("preference", string(profile.Name)).
		Float64("scenic_score", route.Scenic.Score).
		Int("poi_count", len(stops)).
		Float64("distance_km", metrics.DistanceKm).
		Msg("scenic route calculated")

	return route, nil
}

// basicRoute runs the plain profile-weighted shortest path and its sanity
// check.
func (s *ScenicService) basicRoute(ctx context.Context, state *calcState, start, end geo.Point) (*Route, SanityResult, error) {
	steps, err := s.store.ShortestPath(ctx, state.startVertex, state.endVertex, state.costExpr, true)
	if err != nil {
		return nil, SanityResult{}, fmt.Errorf("scenic path %d->%d: %w", state.startVertex, state.endVertex, err)
	}
	if len(steps) == 0 {
		return nil, SanityResult{}, fmt.Errorf("scenic path %d->%d: %w", state.startVertex, state.endVertex, ErrNoRoute)
	}

	edgeIDs := graph.EdgeIDs(steps)
	segments, err := s.store.SegmentsByIDs(ctx, edgeIDs)
	if err != nil {
		return nil, SanityResult{}, fmt.Errorf("fetch scenic segments: %w", err)
	}

	route := &Route{
		StartVertex: state.startVertex,
		EndVertex:   state.endVertex,
		EdgeIDs:     edgeIDs,
		Segments:    segments,
		Metrics:     ComputeMetrics(segments),
	}
	return route, CheckRouteSanity(segments, start, end), nil
}

// bestCandidate builds candidates for every admissible POI count and returns
// the highest-scoring valid one, or nil when none qualifies. Ties on score go
// to the candidate with fewer stops.
func (s *ScenicService) bestCandidate(ctx context.Context, state *calcState, basic *Route, pois []POIStop, refMinutes *float64) *candidate {
	maxCount := state.profile.MaxPOIs
	if len(pois) < maxCount {
		maxCount = len(pois)
	}
	if maxCount < state.profile.MinPOIs {
		return nil
	}

	counts := make([]int, 0, maxCount-state.profile.MinPOIs+1)
	for n := state.profile.MinPOIs; n <= maxCount; n++ {
		counts = append(counts, n)
	}

	results := make([]*candidate, len(counts))
	jobs := make(chan int)
	var wg sync.WaitGroup
	workers := s.workers
	if workers > len(counts) {
		workers = len(counts)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.buildCandidate(ctx, state, basic, pois[:counts[i]], refMinutes)
			}
		}()
	}
	for i := range counts {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var best *candidate
	for _, c := range results {
		if c == nil {
			continue
		}
		if best == nil || c.scenic.Score > best.scenic.Score {
			best = c
		}
	}
	return best
}

// buildCandidate chains shortest-path legs start -> poi_1 -> ... -> poi_n ->
// end. A POI whose location cannot be snapped to the network is skipped; an
// unreachable leg abandons the whole candidate. Candidates beyond the detour
// or time bounds are rejected.
func (s *ScenicService) buildCandidate(ctx context.Context, state *calcState, basic *Route, stops []POIStop, refMinutes *float64) *candidate {
	current := state.startVertex
	var edgeIDs []int64
	included := make([]POIStop, 0, len(stops))

	for _, stop := range stops {
		v, ok := s.poiVertex(ctx, state, stop)
		if !ok {
			continue
		}
		if v == current {
			included = append(included, stop)
			continue
		}
		leg, ok := s.leg(ctx, state, current, v)
		if !ok {
			return nil
		}
		edgeIDs = append(edgeIDs, leg...)
		included = append(included, stop)
		current = v
	}
	if len(included) == 0 {
		return nil
	}

	if current != state.endVertex {
		leg, ok := s.leg(ctx, state, current, state.endVertex)
		if !ok {
			return nil
		}
		edgeIDs = append(edgeIDs, leg...)
	}
	if len(edgeIDs) == 0 {
		return nil
	}

	segments, err := s.store.SegmentsByIDs(ctx, edgeIDs)
	if err != nil {
		s.logger.Warn().Err(err).Int("poi_count", len(stops)).Msg("candidate segment fetch failed")
		return nil
	}

	metrics := ComputeMetrics(segments)
	detourFactor := 1.0
	if basic.Metrics.TimeMinutes > 0 {
		detourFactor = metrics.TimeMinutes / basic.Metrics.TimeMinutes
	}
	if detourFactor > s.maxDetour {
		return nil
	}
	if refMinutes != nil && metrics.TimeMinutes-*refMinutes > s.maxExcess {
		return nil
	}

	return &candidate{
		poiCount: len(stops),
		edgeIDs:  edgeIDs,
		segments: segments,
		metrics:  metrics,
		scenic:   ScenicMetricsFor(segments),
		stops:    included,
	}
}

// poiVertex memoizes POI-to-vertex resolution across candidates.
func (s *ScenicService) poiVertex(ctx context.Context, state *calcState, stop POIStop) (int64, bool) {
	res, _ := state.vertices.LoadOrCompute(stop.ID, func() vertexResult {
		v, err := s.store.NearestVertex(ctx, stop.Location, state.threshold)
		if err != nil {
			s.logger.Debug().Err(err).Int64("poi_id", stop.ID).Msg("poi vertex resolution failed, skipping stop")
			return vertexResult{}
		}
		return vertexResult{id: v, ok: true}
	})
	return res.id, res.ok
}

// leg memoizes shortest-path legs between vertex pairs under the active cost
// expression.
func (s *ScenicService) leg(ctx context.Context, state *calcState, from, to int64) ([]int64, bool) {
	res, _ := state.legs.LoadOrCompute(legKey{from: from, to: to}, func() legResult {
		steps, err := s.store.ShortestPath(ctx, from, to, state.costExpr, true)
		if err != nil {
			s.logger.Warn().Err(err).Int64("from", from).Int64("to", to).Msg("candidate leg failed")
			return legResult{}
		}
		if len(steps) == 0 {
			return legResult{}
		}
		return legResult{edges: graph.EdgeIDs(steps), ok: true}
	})
	return res.edges, res.ok
}
