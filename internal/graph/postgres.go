package graph

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/apexgps/apexgps/internal/geo"
)

// Highway classes excluded when snapping to a "usable" vertex: a start point
// snapped onto a footpath junction produces routes a motorcycle cannot ride.
var nonMotorHighways = []string{"footway", "path", "cycleway", "steps", "service"}

// PostgresStore implements Store over a PostGIS/pgRouting database.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresStore creates a new PostgreSQL graph store.
func NewPostgresStore(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

// NearestVertex snaps a point to the road network in two phases: first to the
// nearest vertex with at least two active motor-road connections, then, if
// none qualifies within the threshold, to the nearest vertex of any kind.
func (s *PostgresStore) NearestVertex(ctx context.Context, p geo.Point, thresholdDeg float64) (int64, error) {
	connected := `
		SELECT v.id
		FROM road_segments_vertices_pgr v
		JOIN road_segments r
			ON (r.source = v.id OR r.target = v.id)
			AND r.is_active = true
			AND r.highway <> ALL($4)
		WHERE ST_DWithin(v.the_geom, ST_SetSRID(ST_MakePoint($1, $2), 4326), $3)
		GROUP BY v.id, v.the_geom
		HAVING COUNT(r.id) >= 2
		ORDER BY ST_Distance(v.the_geom, ST_SetSRID(ST_MakePoint($1, $2), 4326))
		LIMIT 1
	`

	var vertexID int64
	err := s.pool.QueryRow(ctx, connected, p.Lon, p.Lat, thresholdDeg, nonMotorHighways).Scan(&vertexID)
	if err == nil {
		return vertexID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("nearest connected vertex: %w", err)
	}

	// Fallback: any vertex within threshold, connectivity ignored.
	fallback := `
		SELECT v.id
		FROM road_segments_vertices_pgr v
		WHERE ST_DWithin(v.the_geom, ST_SetSRID(ST_MakePoint($1, $2), 4326), $3)
		ORDER BY ST_Distance(v.the_geom, ST_SetSRID(ST_MakePoint($1, $2), 4326))
		LIMIT 1
	`

	err = s.pool.QueryRow(ctx, fallback, p.Lon, p.Lat, thresholdDeg).Scan(&vertexID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNoVertexFound
	}
	if err != nil {
		return 0, fmt.Errorf("nearest fallback vertex: %w", err)
	}

	s.logger.Debug().
		Int64("vertex_id", vertexID).
		Float64("lat", p.Lat).
		Float64("lon", p.Lon).
		Msg("snapped to poorly connected vertex")

	return vertexID, nil
}

// ShortestPath runs pgr_dijkstra with the given cost expression. The
// expression comes from the routing profile table, never from user input;
// single quotes are doubled anyway since it is spliced into the inner query
// literal.
func (s *PostgresStore) ShortestPath(ctx context.Context, from, to int64, costExpr string, directed bool) ([]PathStep, error) {
	escaped := strings.ReplaceAll(costExpr, "'", "''")

	query := fmt.Sprintf(`
		SELECT seq, node, edge, cost, agg_cost
		FROM pgr_dijkstra(
			'SELECT id, source, target, %s AS cost, %s AS reverse_cost
			 FROM road_segments
			 WHERE geometry IS NOT NULL
			 AND source IS NOT NULL
			 AND target IS NOT NULL
			 AND is_active = true',
			$1, $2, directed := %t
		)
		ORDER BY seq
	`, escaped, escaped, directed)

	rows, err := s.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("pgr_dijkstra %d->%d: %w", from, to, err)
	}
	defer rows.Close()

	var steps []PathStep
	for rows.Next() {
		var st PathStep
		if err := rows.Scan(&st.Seq, &st.Node, &st.Edge, &st.Cost, &st.AggCost); err != nil {
			return nil, fmt.Errorf("scan path step: %w", err)
		}
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read path steps: %w", err)
	}

	return steps, nil
}

// SegmentsByIDs fetches full segment records in the same order as ids.
func (s *PostgresStore) SegmentsByIDs(ctx context.Context, ids []int64) ([]Segment, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT
			id, osm_id, COALESCE(name, ''), COALESCE(highway, ''),
			length_m, cost_time,
			COALESCE(scenic_rating, 5.0),
			COALESCE(curvature, 1.0),
			COALESCE(weighted_poi_density, 0.0),
			ST_AsText(geometry)
		FROM road_segments
		WHERE id = ANY($1::bigint[])
		ORDER BY array_position($1::bigint[], id)
	`

	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("segments by ids: %w", err)
	}
	defer rows.Close()

	segments := make([]Segment, 0, len(ids))
	for rows.Next() {
		var seg Segment
		var wkt string
		if err := rows.Scan(
			&seg.ID, &seg.OSMID, &seg.Name, &seg.Highway,
			&seg.LengthM, &seg.CostTime,
			&seg.ScenicRating, &seg.Curvature, &seg.WeightedPOIDensity,
			&wkt,
		); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		seg.Geometry = parseLineString(wkt)
		segments = append(segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read segments: %w", err)
	}

	return segments, nil
}

// POIsNearSegments finds active POIs within q.SearchRadiusM of any of the
// given segments, grouped per POI, keeping those whose minimum distance and
// importance pass the query bounds.
func (s *PostgresStore) POIsNearSegments(ctx context.Context, segmentIDs []int64, q POIQuery) ([]POICandidate, error) {
	if len(segmentIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT
			poi.id,
			poi.name,
			poi.category,
			ST_AsText(poi.location),
			poi.importance_score,
			COUNT(*),
			MIN(ST_Distance(poi.location::geography, seg.geometry::geography))
		FROM points_of_interest poi
		JOIN road_segments seg
			ON ST_DWithin(poi.location::geography, seg.geometry::geography, $1)
		WHERE seg.id = ANY($2::bigint[])
			AND poi.is_active = true
		GROUP BY poi.id, poi.name, poi.category, poi.location, poi.importance_score
		HAVING MIN(ST_Distance(poi.location::geography, seg.geometry::geography)) <= $3
			AND poi.importance_score >= $4
		ORDER BY poi.importance_score DESC, MIN(ST_Distance(poi.location::geography, seg.geometry::geography)) ASC
		LIMIT $5
	`

	rows, err := s.pool.Query(ctx, query,
		q.SearchRadiusM, segmentIDs, q.MaxDistanceM, q.MinImportance, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("pois near segments: %w", err)
	}
	defer rows.Close()

	var pois []POICandidate
	for rows.Next() {
		var poi POICandidate
		var wkt string
		if err := rows.Scan(
			&poi.ID, &poi.Name, &poi.Category, &wkt,
			&poi.ImportanceScore, &poi.NearbySegmentCount, &poi.MinDistanceM,
		); err != nil {
			return nil, fmt.Errorf("scan poi: %w", err)
		}
		if p, ok := parsePoint(wkt); ok {
			poi.Location = p
			pois = append(pois, poi)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read pois: %w", err)
	}

	return pois, nil
}

// parseLineString parses a WKT LINESTRING into lon/lat points. Anything else
// yields nil; a segment without geometry still contributes to metrics.
func parseLineString(wkt string) []geo.Point {
	body, ok := wktBody(wkt, "LINESTRING")
	if !ok {
		return nil
	}

	pairs := strings.Split(body, ",")
	points := make([]geo.Point, 0, len(pairs))
	for _, pair := range pairs {
		fields := strings.Fields(strings.TrimSpace(pair))
		if len(fields) != 2 {
			return nil
		}
		lon, err1 := strconv.ParseFloat(fields[0], 64)
		lat, err2 := strconv.ParseFloat(fields[1], 64)
		if err1 != nil || err2 != nil {
			return nil
		}
		points = append(points, geo.Point{Lat: lat, Lon: lon})
	}
	return points
}

// parsePoint parses a WKT POINT.
func parsePoint(wkt string) (geo.Point, bool) {
	body, ok := wktBody(wkt, "POINT")
	if !ok {
		return geo.Point{}, false
	}
	fields := strings.Fields(body)
	if len(fields) != 2 {
		return geo.Point{}, false
	}
	lon, err1 := strconv.ParseFloat(fields[0], 64)
	lat, err2 := strconv.ParseFloat(fields[1], 64)
	if err1 != nil || err2 != nil {
		return geo.Point{}, false
	}
	return geo.Point{Lat: lat, Lon: lon}, true
}

// wktBody returns the text between the parentheses of a WKT literal with the
// expected geometry keyword.
func wktBody(wkt, keyword string) (string, bool) {
	trimmed := strings.TrimSpace(wkt)
	if !strings.HasPrefix(trimmed, keyword) {
		return "", false
	}
	open := strings.IndexByte(trimmed, '(')
	end := strings.LastIndexByte(trimmed, ')')
	if open < 0 || end < open {
		return "", false
	}
	return trimmed[open+1 : end], true
}
