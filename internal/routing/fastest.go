package routing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/apexgps/apexgps/internal/geo"
	"github.com/apexgps/apexgps/internal/graph"
)

// Route is a resolved path through the road network with its metrics.
type Route struct {
	StartVertex int64
	EndVertex   int64
	EdgeIDs     []int64
	Segments    []graph.Segment
	Metrics     PathMetrics
	Polyline    string
}

// FastestService computes pure time-optimal routes. It is the reference the
// scenic comparison measures detours against.
type FastestService struct {
	store  graph.Store
	logger zerolog.Logger
}

// NewFastestService creates a fastest-route service.
func NewFastestService(store graph.Store, logger zerolog.Logger) *FastestService {
	return &FastestService{store: store, logger: logger}
}

// Calculate resolves both endpoints to network vertices and runs a directed
// shortest path on raw travel time.
func (s *FastestService) Calculate(ctx context.Context, start, end geo.Point, thresholdDeg float64) (*Route, error) {
	if thresholdDeg <= 0 {
		thresholdDeg = DefaultVertexThresholdDeg
	}

	fromVertex, err := s.store.NearestVertex(ctx, start, thresholdDeg)
	if err != nil {
		return nil, fmt.Errorf("resolve start vertex: %w", err)
	}
	toVertex, err := s.store.NearestVertex(ctx, end, thresholdDeg)
	if err != nil {
		return nil, fmt.Errorf("resolve end vertex: %w", err)
	}

	steps, err := s.store.ShortestPath(ctx, fromVertex, toVertex, FastestCostExpression(), true)
	if err != nil {
		return nil, fmt.Errorf("fastest path %d->%d: %w", fromVertex, toVertex, err)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("fastest path %d->%d: %w", fromVertex, toVertex, ErrNoRoute)
	}

	edgeIDs := graph.EdgeIDs(steps)
	segments, err := s.store.SegmentsByIDs(ctx, edgeIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch fastest segments: %w", err)
	}

	metrics := ComputeMetrics(segments)
	s.logger.Debug().
		Float64("distance_km", metrics.DistanceKm).
		Float64("time_minutes", metrics.TimeMinutes).
		Int("segments", metrics.SegmentCount).
		Msg("fastest route calculated")

	return &Route{
		StartVertex: fromVertex,
		EndVertex:   toVertex,
		EdgeIDs:     edgeIDs,
		Segments:    segments,
		Metrics:     metrics,
		Polyline:    EncodeRoute(segments),
	}, nil
}
