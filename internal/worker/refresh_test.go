package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexgps/apexgps/internal/roadmetrics"
)

type fakeCalculator struct {
	coreCalls   atomic.Int32
	scenicCalls atomic.Int32
	coreErr     error
	scenicErr   error
	summaryErr  error
}

func (f *fakeCalculator) RefreshCoreMetrics(_ context.Context) (*roadmetrics.CoreResult, error) {
	f.coreCalls.Add(1)
	if f.coreErr != nil {
		return nil, f.coreErr
	}
	return &roadmetrics.CoreResult{CurvatureUpdated: 120, AvgCurvature: 1.21}, nil
}

func (f *fakeCalculator) RefreshScenicScores(_ context.Context) (*roadmetrics.ScenicResult, error) {
	f.scenicCalls.Add(1)
	if f.scenicErr != nil {
		return nil, f.scenicErr
	}
	return &roadmetrics.ScenicResult{BaseRatingsAssigned: 80, AvgScenicRating: 5.4}, nil
}

func (f *fakeCalculator) GetSummary(_ context.Context) (*roadmetrics.Summary, error) {
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	return &roadmetrics.Summary{TotalSegments: 1000, MeasuredSegments: 990}, nil
}

func TestRefreshJob_RunsBothPasses(t *testing.T) {
	calc := &fakeCalculator{}
	job := NewRefreshJob(RefreshJobConfig{
		Config:     DefaultRefreshConfig(),
		Logger:     zerolog.Nop(),
		Calculator: calc,
	})

	result := job.Run(context.Background())

	assert.True(t, result.Succeeded())
	require.NotNil(t, result.Core)
	require.NotNil(t, result.Scenic)
	assert.Equal(t, int32(1), calc.coreCalls.Load())
	assert.Equal(t, int32(1), calc.scenicCalls.Load())

	m := job.GetMetrics()
	assert.Equal(t, int64(1), m.TotalRuns)
	assert.Equal(t, int64(1), m.SuccessfulRuns)
	assert.Equal(t, int64(1), m.CoreRefreshes)
	assert.Equal(t, int64(1), m.ScenicRefreshes)
}

func TestRefreshJob_CorePassCanBeDisabled(t *testing.T) {
	calc := &fakeCalculator{}
	job := NewRefreshJob(RefreshJobConfig{
		Config:     RefreshConfig{Timeout: time.Minute, RefreshScenic: true},
		Logger:     zerolog.Nop(),
		Calculator: calc,
	})

	result := job.Run(context.Background())

	assert.True(t, result.Succeeded())
	assert.Nil(t, result.Core)
	require.NotNil(t, result.Scenic)
	assert.Zero(t, calc.coreCalls.Load())
}

func TestRefreshJob_CollectsErrorsAndContinues(t *testing.T) {
	calc := &fakeCalculator{coreErr: errors.New("deadlock detected")}
	job := NewRefreshJob(RefreshJobConfig{
		Config:     DefaultRefreshConfig(),
		Logger:     zerolog.Nop(),
		Calculator: calc,
	})

	result := job.Run(context.Background())

	assert.False(t, result.Succeeded())
	require.Len(t, result.Errors, 1)
	assert.Nil(t, result.Core)
	// Scenic pass still ran despite the core failure.
	require.NotNil(t, result.Scenic)

	m := job.GetMetrics()
	assert.Equal(t, int64(1), m.FailedRuns)
}

func TestRefreshJob_CheckHealth(t *testing.T) {
	job := NewRefreshJob(RefreshJobConfig{
		Logger:     zerolog.Nop(),
		Calculator: &fakeCalculator{},
	})
	require.NoError(t, job.CheckHealth(context.Background()))

	failing := NewRefreshJob(RefreshJobConfig{
		Logger:     zerolog.Nop(),
		Calculator: &fakeCalculator{summaryErr: errors.New("connection refused")},
	})
	require.Error(t, failing.CheckHealth(context.Background()))
}
