package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/apexgps/apexgps/internal/api/middleware"
	"github.com/apexgps/apexgps/internal/api/models"
	"github.com/apexgps/apexgps/internal/api/response"
	"github.com/apexgps/apexgps/internal/geo"
	"github.com/apexgps/apexgps/internal/routing"
)

// RouteHandler handles routing endpoints.
type RouteHandler struct {
	orchestrator *routing.Orchestrator
	metrics      *middleware.CalculationMetrics
	logger       zerolog.Logger
}

// NewRouteHandler creates a new RouteHandler. metrics may be nil when
// telemetry is disabled.
func NewRouteHandler(orchestrator *routing.Orchestrator, metrics *middleware.CalculationMetrics, logger zerolog.Logger) *RouteHandler {
	return &RouteHandler{
		orchestrator: orchestrator,
		metrics:      metrics,
		logger:       logger,
	}
}

// CompareRoutes handles POST /v1/routes:compare - calculate fastest and
// scenic routes between two points and compare them.
func (h *RouteHandler) CompareRoutes(w http.ResponseWriter, r *http.Request) {
	var input models.RouteCompareRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if fieldErrs := input.Validate(); len(fieldErrs) > 0 {
		response.BadRequest(w, r, "start and end coordinates are required", fieldErrs)
		return
	}

	preference := routing.Preference(input.Preference)
	if input.Preference == "" {
		preference = routing.PreferenceBalanced
	}

	start := geo.Point{Lat: input.Start.Lat, Lon: input.Start.Lon}
	end := geo.Point{Lat: input.End.Lat, Lon: input.End.Lon}

	began := time.Now()
	result, err := h.orchestrator.Calculate(r.Context(), start, end, preference)
	if h.metrics != nil {
		h.metrics.RecordCalculation(string(preference), time.Since(began), err)
	}

	if err != nil {
		h.writeCalculationError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=60")
	response.JSON(w, r, http.StatusOK, result)
}

// writeCalculationError maps a routing error to an HTTP response. Validation
// stages map to 400; upstream routing failures map to 502.
func (h *RouteHandler) writeCalculationError(w http.ResponseWriter, r *http.Request, err error) {
	var sErr *routing.StructuredError
	if !errors.As(err, &sErr) {
		h.logger.Error().Err(err).Msg("route comparison failed")
		response.InternalError(w, r, "route calculation failed")
		return
	}

	status := http.StatusBadRequest
	if sErr.Stage == routing.StageFastestRoute {
		status = http.StatusBadGateway
	}

	details := map[string]any{"stage": sErr.Stage}
	for k, v := range sErr.Details {
		details[k] = v
	}

	h.logger.Warn().
		Str("stage", sErr.Stage).
		Str("error", sErr.Message).
		Msg("route comparison rejected")

	response.JSON(w, r, status, models.RouteCompareError{
		Success:      false,
		Error:        sErr.Message,
		ErrorDetails: details,
	})
}
