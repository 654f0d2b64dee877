// Package handler provides HTTP handlers for the ApexGPS API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/apexgps/apexgps/internal/api/models"
	"github.com/apexgps/apexgps/internal/api/response"
)

// Pinger checks connectivity to a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerReporter exposes the state of a circuit breaker.
type BreakerReporter interface {
	BreakerState() gobreaker.State
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	db        Pinger
	store     BreakerReporter
}

// NewOpsHandler creates a new OpsHandler. db and store may be nil when the
// corresponding checks are not wired (e.g. in tests).
func NewOpsHandler(version, buildTime string, db Pinger, store BreakerReporter) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		db:        db,
		store:     store,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check. Fails when the
// routing database is unreachable.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatusOK
	code := http.StatusOK

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.db.Ping(ctx); err != nil {
			status = models.HealthStatusFail
			code = http.StatusServiceUnavailable
		}
	}

	health := models.Health{
		Status: status,
		Time:   models.Timestamp(time.Now()),
	}
	response.JSON(w, r, code, health)
}

// SystemStatus handles GET /v1/ops/status - subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	now := models.Timestamp(time.Now())

	subsystems := make([]models.SubsystemStatus, 0, 2)

	dbStatus := models.HealthStatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.db.Ping(ctx); err != nil {
			dbStatus = models.HealthStatusFail
		}
	}
	subsystems = append(subsystems, models.SubsystemStatus{Name: "routing-db", Status: dbStatus})

	if h.store != nil {
		graphStatus := models.HealthStatusOK
		state := h.store.BreakerState().String()
		switch h.store.BreakerState() {
		case gobreaker.StateOpen:
			graphStatus = models.HealthStatusFail
		case gobreaker.StateHalfOpen:
			graphStatus = models.HealthStatusDegraded
		}
		subsystems = append(subsystems, models.SubsystemStatus{
			Name:   "graph-store",
			Status: graphStatus,
			Detail: &state,
		})
	}

	overall := models.HealthStatusOK
	for _, s := range subsystems {
		if s.Status == models.HealthStatusFail {
			overall = models.HealthStatusFail
			break
		}
		if s.Status == models.HealthStatusDegraded {
			overall = models.HealthStatusDegraded
		}
	}

	status := models.SystemStatus{
		Status:     overall,
		Time:       now,
		Subsystems: subsystems,
	}
	response.JSON(w, r, http.StatusOK, status)
}
