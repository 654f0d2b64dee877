package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/apexgps/apexgps/internal/roadmetrics"
)

// MetricsCalculator is the slice of the roadmetrics calculator the job needs.
type MetricsCalculator interface {
	RefreshCoreMetrics(ctx context.Context) (*roadmetrics.CoreResult, error)
	RefreshScenicScores(ctx context.Context) (*roadmetrics.ScenicResult, error)
	GetSummary(ctx context.Context) (*roadmetrics.Summary, error)
}

// RefreshJob runs road metric refresh passes and tracks their statistics.
type RefreshJob struct {
	config     RefreshConfig
	logger     zerolog.Logger
	calculator MetricsCalculator
	metrics    *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics across runs.
type RefreshMetrics struct {
	mu sync.RWMutex

	TotalRuns      int64
	SuccessfulRuns int64
	FailedRuns     int64
	CoreRefreshes  int64
	ScenicRefreshes int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config     RefreshConfig
	Logger     zerolog.Logger
	Calculator MetricsCalculator
}

// NewRefreshJob creates a new refresh job processor.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	config := cfg.Config
	if config.Timeout == 0 {
		config = DefaultRefreshConfig()
	}

	return &RefreshJob{
		config:     config,
		logger:     cfg.Logger,
		calculator: cfg.Calculator,
		metrics:    &RefreshMetrics{},
	}
}

// RefreshResult contains the outcome of one refresh run.
type RefreshResult struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Core   *roadmetrics.CoreResult
	Scenic *roadmetrics.ScenicResult
	Errors []string
}

// Succeeded reports whether the run completed without errors.
func (r *RefreshResult) Succeeded() bool {
	return len(r.Errors) == 0
}

// Run executes the configured refresh passes. Core metrics run before scenic
// scores: the scenic POI bonus reads the densities the core pass feeds.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	startTime := time.Now()
	result := &RefreshResult{StartTime: startTime}

	j.logger.Info().
		Bool("core", j.config.RefreshCore).
		Bool("scenic", j.config.RefreshScenic).
		Msg("starting road metrics refresh")

	runCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	if j.config.RefreshCore {
		core, err := j.calculator.RefreshCoreMetrics(runCtx)
		if err != nil {
			j.logger.Error().Err(err).Msg("core metrics refresh failed")
			result.Errors = append(result.Errors, "core: "+err.Error())
		} else {
			result.Core = core
			j.metrics.mu.Lock()
			j.metrics.CoreRefreshes++
			j.metrics.mu.Unlock()
		}
	}

	if j.config.RefreshScenic {
		scenic, err := j.calculator.RefreshScenicScores(runCtx)
		if err != nil {
			j.logger.Error().Err(err).Msg("scenic scores refresh failed")
			result.Errors = append(result.Errors, "scenic: "+err.Error())
		} else {
			result.Scenic = scenic
			j.metrics.mu.Lock()
			j.metrics.ScenicRefreshes++
			j.metrics.mu.Unlock()
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)
	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("errors", len(result.Errors)).
		Msg("road metrics refresh completed")

	return result
}

// CheckHealth verifies database and metric-column health by reading the
// summary instead of running the expensive update passes.
func (j *RefreshJob) CheckHealth(ctx context.Context) error {
	summary, err := j.calculator.GetSummary(ctx)
	if err != nil {
		return err
	}

	j.logger.Debug().
		Int64("total_segments", summary.TotalSegments).
		Int64("measured_segments", summary.MeasuredSegments).
		Float64("avg_scenic", summary.AvgScenicRating).
		Msg("metrics health check passed")

	return nil
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	if result.Succeeded() {
		j.metrics.SuccessfulRuns++
	} else {
		j.metrics.FailedRuns++
	}
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRuns:       j.metrics.TotalRuns,
		SuccessfulRuns:  j.metrics.SuccessfulRuns,
		FailedRuns:      j.metrics.FailedRuns,
		CoreRefreshes:   j.metrics.CoreRefreshes,
		ScenicRefreshes: j.metrics.ScenicRefreshes,
		LastRunAt:       j.metrics.LastRunAt,
		LastRunDuration: j.metrics.LastRunDuration,
		TotalDuration:   j.metrics.TotalDuration,
	}
}
