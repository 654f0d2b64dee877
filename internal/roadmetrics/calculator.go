// Package roadmetrics recomputes the derived road segment columns the cost
// expressions depend on: geographic length, curvature, travel time, POI
// density and scenic ratings. Runs offline in the worker, never per-request.
package roadmetrics

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Calculator runs the metric refresh statements against the road network.
type Calculator struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCalculator creates a metrics calculator.
func NewCalculator(pool *pgxpool.Pool, logger zerolog.Logger) *Calculator {
	return &Calculator{pool: pool, logger: logger}
}

// CoreResult reports a physical-metrics refresh pass.
type CoreResult struct {
	LengthsUpdated     int64
	CurvatureUpdated   int64
	TravelTimesUpdated int64

	AvgLengthM       float64
	AvgCurvature     float64
	AvgTravelTimeSec float64
}

// ScenicResult reports a scenic-scores refresh pass.
type ScenicResult struct {
	POIDensityUpdated      int64
	WeightedDensityUpdated int64
	BaseRatingsAssigned    int64
	RatingsEnhanced        int64

	AvgScenicRating float64
	AvgPOIDensity   float64
	HighlyScenic    int64
	LowScenic       int64
}

// RefreshCoreMetrics recalculates segment lengths, curvature (sinuosity) and
// travel times. Lengths and travel times are only filled where missing;
// curvature is always recomputed since geometry edits invalidate it.
func (c *Calculator) RefreshCoreMetrics(ctx context.Context) (*CoreResult, error) {
	var res CoreResult
	var err error

	res.LengthsUpdated, err = c.exec(ctx, "lengths", `
		UPDATE road_segments
		SET length_m = ST_Length(geometry::geography)
		WHERE geometry IS NOT NULL
		AND (length_m = 0 OR length_m IS NULL)
	`)
	if err != nil {
		return nil, err
	}

	res.CurvatureUpdated, err = c.exec(ctx, "curvature", `
		UPDATE road_segments
		SET curvature = CASE
			WHEN ST_Length(geometry::geography) > 0
			THEN ST_Length(geometry::geography) /
				NULLIF(
					ST_Distance(
						ST_StartPoint(geometry)::geography,
						ST_EndPoint(geometry)::geography
					),
					0
				)
			ELSE 1.0
		END
		WHERE geometry IS NOT NULL
	`)
	if err != nil {
		return nil, err
	}

	// Fall back to 50 km/h where no speed limit is tagged.
	res.TravelTimesUpdated, err = c.exec(ctx, "travel_times", `
		UPDATE road_segments
		SET cost_time = CASE
			WHEN maxspeed > 0 THEN length_m / (maxspeed / 3.6)
			ELSE length_m / (50 / 3.6)
		END
		WHERE length_m > 0
		AND (cost_time = 0 OR cost_time IS NULL)
	`)
	if err != nil {
		return nil, err
	}

	row := c.pool.QueryRow(ctx, `
		SELECT
			COALESCE(AVG(length_m), 0),
			COALESCE(AVG(curvature), 1.0),
			COALESCE(AVG(cost_time), 0)
		FROM road_segments
		WHERE length_m > 0
	`)
	if err := row.Scan(&res.AvgLengthM, &res.AvgCurvature, &res.AvgTravelTimeSec); err != nil {
		return nil, fmt.Errorf("core metric statistics: %w", err)
	}

	c.logger.Info().
		Int64("lengths", res.LengthsUpdated).
		Int64("curvature", res.CurvatureUpdated).
		Int64("travel_times", res.TravelTimesUpdated).
		Float64("avg_curvature", res.AvgCurvature).
		Msg("core road metrics refreshed")

	return &res, nil
}

// RefreshScenicScores recalculates POI densities and scenic ratings. Base
// ratings come from the road class; segments with nearby POIs get a density
// bonus capped at 10.
func (c *Calculator) RefreshScenicScores(ctx context.Context) (*ScenicResult, error) {
	var res ScenicResult
	var err error

	res.POIDensityUpdated, err = c.exec(ctx, "poi_density", `
		UPDATE road_segments rs
		SET poi_density = (
			SELECT COUNT(*)::float / GREATEST(rs.length_m, 1000)
			FROM points_of_interest poi
			WHERE ST_DWithin(
				rs.geometry::geography,
				poi.location::geography,
				1000
			)
		)
		WHERE rs.geometry IS NOT NULL
	`)
	if err != nil {
		return nil, err
	}

	res.WeightedDensityUpdated, err = c.exec(ctx, "weighted_poi_density", `
		UPDATE road_segments rs
		SET weighted_poi_density = (
			SELECT COALESCE(SUM(poi.importance_score), 0)
			/ GREATEST(rs.length_m, 1000)
			FROM points_of_interest poi
			WHERE ST_DWithin(
				rs.geometry::geography,
				poi.location::geography,
				1000
			)
		)
		WHERE rs.geometry IS NOT NULL
	`)
	if err != nil {
		return nil, err
	}

	res.BaseRatingsAssigned, err = c.exec(ctx, "base_scenic_ratings", `
		UPDATE road_segments
		SET scenic_rating = CASE
			WHEN highway IN ('motorway', 'trunk', 'primary') THEN 3.0
			WHEN highway IN ('secondary', 'tertiary') THEN 5.0
			WHEN highway IN ('unclassified', 'residential') THEN 4.0
			WHEN highway IN ('track', 'path', 'footway') THEN 7.0
			ELSE 5.0
		END
		WHERE scenic_rating = 0 OR scenic_rating IS NULL
	`)
	if err != nil {
		return nil, err
	}

	res.RatingsEnhanced, err = c.exec(ctx, "scenic_poi_bonus", `
		UPDATE road_segments
		SET scenic_rating = LEAST(10.0,
			scenic_rating + (poi_density * 0.5)
		)
		WHERE poi_density > 0
	`)
	if err != nil {
		return nil, err
	}

	row := c.pool.QueryRow(ctx, `
		SELECT
			COALESCE(AVG(scenic_rating), 0),
			COALESCE(AVG(poi_density), 0),
			COUNT(CASE WHEN scenic_rating >= 8 THEN 1 END),
			COUNT(CASE WHEN scenic_rating <= 3 THEN 1 END)
		FROM road_segments
		WHERE scenic_rating > 0
	`)
	if err := row.Scan(&res.AvgScenicRating, &res.AvgPOIDensity, &res.HighlyScenic, &res.LowScenic); err != nil {
		return nil, fmt.Errorf("scenic statistics: %w", err)
	}

	c.logger.Info().
		Int64("poi_density", res.POIDensityUpdated).
		Int64("base_ratings", res.BaseRatingsAssigned).
		Float64("avg_scenic", res.AvgScenicRating).
		Msg("scenic scores refreshed")

	return &res, nil
}

// Summary holds the aggregate state of the derived metric columns.
type Summary struct {
	TotalSegments    int64   `json:"total_segments"`
	MeasuredSegments int64   `json:"measured_segments"`
	AvgLengthM       float64 `json:"average_length_m"`
	AvgCurvature     float64 `json:"average_curvature"`
	AvgScenicRating  float64 `json:"average_scenic_rating"`
	AvgPOIDensity    float64 `json:"average_poi_density"`
	MinScenicRating  float64 `json:"min_scenic_rating"`
	MaxScenicRating  float64 `json:"max_scenic_rating"`
}

// GetSummary reads the comprehensive metrics summary.
func (c *Calculator) GetSummary(ctx context.Context) (*Summary, error) {
	row := c.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(CASE WHEN length_m > 0 THEN 1 END),
			COALESCE(AVG(length_m), 0),
			COALESCE(AVG(curvature), 1.0),
			COALESCE(AVG(scenic_rating), 0),
			COALESCE(AVG(poi_density), 0),
			COALESCE(MIN(scenic_rating), 0),
			COALESCE(MAX(scenic_rating), 0)
		FROM road_segments
		WHERE geometry IS NOT NULL
	`)

	var s Summary
	if err := row.Scan(
		&s.TotalSegments, &s.MeasuredSegments,
		&s.AvgLengthM, &s.AvgCurvature,
		&s.AvgScenicRating, &s.AvgPOIDensity,
		&s.MinScenicRating, &s.MaxScenicRating,
	); err != nil {
		return nil, fmt.Errorf("metrics summary: %w", err)
	}
	return &s, nil
}

func (c *Calculator) exec(ctx context.Context, name, query string) (int64, error) {
	tag, err := c.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("refresh %s: %w", name, err)
	}
	return tag.RowsAffected(), nil
}
