package graph

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/apexgps/apexgps/internal/geo"
)

// ResilientConfig holds configuration for the resilient store wrapper.
type ResilientConfig struct {
	// Name identifies the circuit breaker for logging.
	Name string

	// MaxRetries is the maximum number of retry attempts per query.
	// Default: 2
	MaxRetries uint64

	// InitialInterval is the initial retry backoff interval.
	// Default: 50ms
	InitialInterval time.Duration

	// MaxInterval is the maximum retry backoff interval.
	// Default: 1 second
	MaxInterval time.Duration

	// BreakerTimeout is the period of open state before half-open.
	// Default: 30 seconds
	BreakerTimeout time.Duration

	// Logger for wrapper operations.
	Logger zerolog.Logger
}

// ResilientStore wraps a Store with a circuit breaker and retry-with-backoff
// around every query. Domain outcomes (unreachable path, no vertex found) pass
// through untouched; only transport failures are retried and counted by the
// breaker.
type ResilientStore struct {
	inner   Store
	breaker *gobreaker.CircuitBreaker[any]
	config  ResilientConfig
	logger  zerolog.Logger
}

// NewResilientStore wraps the given store.
func NewResilientStore(inner Store, cfg ResilientConfig) *ResilientStore {
	if cfg.Name == "" {
		cfg.Name = "graph-store"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 50 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 1 * time.Second
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
	})

	return &ResilientStore{
		inner:   inner,
		breaker: breaker,
		config:  cfg,
		logger:  cfg.Logger,
	}
}

// execute runs op through the breaker with exponential backoff retries.
func (r *ResilientStore) execute(ctx context.Context, name string, op func() (any, error)) (any, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.config.InitialInterval
	bo.MaxInterval = r.config.MaxInterval
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, r.config.MaxRetries), ctx)

	var result any
	attempt := func() error {
		v, err := r.breaker.Execute(op)
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrStoreUnavailable)
			}
			if errors.Is(err, ErrNoVertexFound) {
				// Domain outcome, not a transport failure.
				return backoff.Permanent(err)
			}
			r.logger.Warn().Err(err).Str("op", name).Msg("graph store query failed, retrying")
			return err
		}
		result = v
		return nil
	}

	if err := backoff.Retry(attempt, policy); err != nil {
		return nil, err
	}
	return result, nil
}

// NearestVertex implements Store.
func (r *ResilientStore) NearestVertex(ctx context.Context, p geo.Point, thresholdDeg float64) (int64, error) {
	v, err := r.execute(ctx, "nearest_vertex", func() (any, error) {
		return r.inner.NearestVertex(ctx, p, thresholdDeg)
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// ShortestPath implements Store.
func (r *ResilientStore) ShortestPath(ctx context.Context, from, to int64, costExpr string, directed bool) ([]PathStep, error) {
	v, err := r.execute(ctx, "shortest_path", func() (any, error) {
		return r.inner.ShortestPath(ctx, from, to, costExpr, directed)
	})
	if err != nil {
		return nil, err
	}
	return v.([]PathStep), nil
}

// SegmentsByIDs implements Store.
func (r *ResilientStore) SegmentsByIDs(ctx context.Context, ids []int64) ([]Segment, error) {
	v, err := r.execute(ctx, "segments_by_ids", func() (any, error) {
		return r.inner.SegmentsByIDs(ctx, ids)
	})
	if err != nil {
		return nil, err
	}
	return v.([]Segment), nil
}

// POIsNearSegments implements Store.
func (r *ResilientStore) POIsNearSegments(ctx context.Context, segmentIDs []int64, q POIQuery) ([]POICandidate, error) {
	v, err := r.execute(ctx, "pois_near_segments", func() (any, error) {
		return r.inner.POIsNearSegments(ctx, segmentIDs, q)
	})
	if err != nil {
		return nil, err
	}
	return v.([]POICandidate), nil
}

// BreakerState returns the current circuit breaker state.
func (r *ResilientStore) BreakerState() gobreaker.State {
	return r.breaker.State()
}
