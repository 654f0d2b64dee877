package routing

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/apexgps/apexgps/internal/geo"
	"github.com/apexgps/apexgps/internal/graph"
)

// OrchestratorConfig holds configuration for the route comparison
// orchestrator.
type OrchestratorConfig struct {
	Store  graph.Store
	Logger zerolog.Logger

	// VertexThresholdDeg bounds endpoint snapping. Default:
	// DefaultVertexThresholdDeg.
	VertexThresholdDeg float64

	// MinSeparationKm is the minimum straight-line distance between the
	// endpoints. Default: MinEndpointSeparationKm.
	MinSeparationKm float64

	// MaxTimeExcessMinutes caps the scenic route's time over the fastest.
	// Default: MaxTimeExcessMinutes.
	MaxTimeExcessMinutes float64

	// ScenicTimeout bounds the scenic calculation; on expiry the fastest
	// route is reused as a neutral scenic fallback. Default: 25s.
	ScenicTimeout time.Duration

	// CandidateWorkers is forwarded to the scenic service.
	CandidateWorkers int
}

// Orchestrator runs the full comparison: validate the request, compute the
// fastest route, compute the scenic route against it, and produce the
// side-by-side verdict. The fastest route is the hard dependency; a scenic
// failure degrades to a neutral fallback instead of failing the request.
type Orchestrator struct {
	store     graph.Store
	logger    zerolog.Logger
	fastest   *FastestService
	scenic    *ScenicService
	threshold float64
	minSepKm  float64
	maxExcess float64
	timeout   time.Duration
}

// NewOrchestrator creates a route comparison orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.VertexThresholdDeg <= 0 {
		cfg.VertexThresholdDeg = DefaultVertexThresholdDeg
	}
	if cfg.MinSeparationKm <= 0 {
		cfg.MinSeparationKm = MinEndpointSeparationKm
	}
	if cfg.MaxTimeExcessMinutes <= 0 {
		cfg.MaxTimeExcessMinutes = MaxTimeExcessMinutes
	}
	if cfg.ScenicTimeout <= 0 {
		cfg.ScenicTimeout = 25 * time.Second
	}

	return &Orchestrator{
		store:   cfg.Store,
		logger:  cfg.Logger,
		fastest: NewFastestService(cfg.Store, cfg.Logger),
		scenic: NewScenicService(ScenicConfig{
			Store:                cfg.Store,
			Logger:               cfg.Logger,
			MaxTimeExcessMinutes: cfg.MaxTimeExcessMinutes,
			CandidateWorkers:     cfg.CandidateWorkers,
		}),
		threshold: cfg.VertexThresholdDeg,
		minSepKm:  cfg.MinSeparationKm,
		maxExcess: cfg.MaxTimeExcessMinutes,
		timeout:   cfg.ScenicTimeout,
	}
}

// Calculate runs a fastest-vs-scenic comparison between two points. Failures
// before the comparison can be produced are returned as *StructuredError.
func (o *Orchestrator) Calculate(ctx context.Context, start, end geo.Point, pref Preference) (*Result, error) {
	began := time.Now()

	if err := geo.Validate(start); err != nil {
		return nil, &StructuredError{
			Stage:   StageCoordinateValidation,
			Message: err.Error(),
			Details: map[string]any{"point": "start", "lat": start.Lat, "lon": start.Lon},
		}
	}
	if err := geo.Validate(end); err != nil {
		return nil, &StructuredError{
			Stage:   StageCoordinateValidation,
			Message: err.Error(),
			Details: map[string]any{"point": "end", "lat": end.Lat, "lon": end.Lon},
		}
	}
	if _, err := ProfileFor(pref); err != nil {
		return nil, &StructuredError{
			Stage:   StagePreferenceValidation,
			Message: err.Error(),
			Details: map[string]any{"preference": string(pref)},
		}
	}

	// Reject endpoint pairs too close to compare before touching the store.
	straightKm := geo.DistanceKm(start, end)
	if straightKm < o.minSepKm {
		return nil, &StructuredError{
			Stage:   StageDistanceValidation,
			Message: "start and end points are too close for a route comparison",
			Details: map[string]any{
				"straight_line_km": straightKm,
				"min_km":           o.minSepKm,
				"start":            start,
				"end":              end,
			},
		}
	}

	fastest, err := o.fastest.Calculate(ctx, start, end, o.threshold)
	if err != nil {
		o.logger.Error().Err(err).Msg("fastest route calculation failed")
		return nil, &StructuredError{
			Stage:   StageFastestRoute,
			Message: err.Error(),
			Details: map[string]any{"start": start, "end": end},
		}
	}

	scenicSummary := o.scenicRoute(ctx, start, end, pref, fastest)

	excess := scenicSummary.TimeMinutes - fastest.Metrics.TimeMinutes
	var excessPct float64
	if fastest.Metrics.TimeMinutes > 0 {
		excessPct = excess / fastest.Metrics.TimeMinutes * 100.0
	}
	recommendation := "fastest"
	if scenicSummary.TimeConstraint.IsWithinConstraint && scenicSummary.ScenicScore > 60.0 {
		recommendation = "scenic"
	}

	result := &Result{
		Success:          true,
		Preference:       pref,
		ProcessingTimeMs: float64(time.Since(began).Microseconds()) / 1000.0,
		FastestRoute: FastestSummary{
			TimeMinutes:  fastest.Metrics.TimeMinutes,
			DistanceKm:   fastest.Metrics.DistanceKm,
			Polyline:     fastest.Polyline,
			SegmentCount: fastest.Metrics.SegmentCount,
		},
		ScenicRoute: scenicSummary,
		Comparison: Comparison{
			TimeExcessMinutes: excess,
			TimeExcessPercent: excessPct,
			ScenicScore:       scenicSummary.ScenicScore,
			Recommendation:    recommendation,
		},
	}

	o.logger.Info().
		Str("preference", string(pref)).
		Str("recommendation", recommendation).
		Float64("scenic_score", scenicSummary.ScenicScore).
		Float64("time_excess_minutes", excess).
		Float64("processing_ms", result.ProcessingTimeMs).
		Msg("route comparison complete")

	return result, nil
}

// scenicRoute computes the scenic half under a deadline, falling back to the
// fastest route's geometry with a neutral score when the scenic calculation
// fails or times out.
func (o *Orchestrator) scenicRoute(ctx context.Context, start, end geo.Point, pref Preference, fastest *Route) ScenicSummary {
	scenicCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	ref := fastest.Metrics.TimeMinutes
	scenic, err := o.scenic.Calculate(scenicCtx, ScenicRequest{
		Start:                   start,
		End:                     end,
		Preference:              pref,
		VertexThresholdDeg:      o.threshold,
		ReferenceFastestMinutes: &ref,
	})
	if err != nil {
		o.logger.Warn().Err(err).
			Str("preference", string(pref)).
			Msg("scenic route failed, falling back to fastest geometry")
		return o.fallbackSummary(fastest)
	}

	stops := scenic.POIStops
	if stops == nil {
		stops = []POIStop{}
	}
	return ScenicSummary{
		TimeMinutes:     scenic.Metrics.TimeMinutes,
		DistanceKm:      scenic.Metrics.DistanceKm,
		ScenicScore:     scenic.Scenic.Score,
		AvgScenicRating: scenic.Scenic.AvgScenicRating,
		AvgCurvature:    scenic.Scenic.AvgCurvature,
		POICount:        len(stops),
		POIStops:        stops,
		Polyline:        scenic.Polyline,
		SegmentCount:    scenic.Metrics.SegmentCount,
		TimeConstraint:  scenic.TimeConstraint,
	}
}

// fallbackSummary reuses the fastest route as a scenic stand-in with a
// neutral score, so the comparison still renders both halves.
func (o *Orchestrator) fallbackSummary(fastest *Route) ScenicSummary {
	scenic := ScenicMetricsFor(fastest.Segments)
	return ScenicSummary{
		TimeMinutes:     fastest.Metrics.TimeMinutes,
		DistanceKm:      fastest.Metrics.DistanceKm,
		ScenicScore:     50.0,
		AvgScenicRating: scenic.AvgScenicRating,
		AvgCurvature:    scenic.AvgCurvature,
		POICount:        0,
		POIStops:        []POIStop{},
		Polyline:        fastest.Polyline,
		SegmentCount:    fastest.Metrics.SegmentCount,
		TimeConstraint: TimeConstraint{
			MaxExcessMinutes:        o.maxExcess,
			ActualExcessMinutes:     0,
			IsWithinConstraint:      true,
			ReferenceFastestMinutes: fastest.Metrics.TimeMinutes,
		},
	}
}
