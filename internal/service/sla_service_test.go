package service_test

import (
	"testing"
	"time"

	"github.com/gulfsetup/crm-api/internal/config"
	"github.com/gulfsetup/crm-api/internal/domain"
	"github.com/gulfsetup/crm-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSLAService() *service.SLAService {
	return service.NewSLAService(&config.SLAConfig{
		ResponseHours:   24,
		CompletionHours: 336,
	})
}

func TestSLAReportNilBeforeAgentHandoff(t *testing.T) {
	svc := newSLAService()
	assert.Nil(t, svc.Report(&domain.TrackState{}, time.Now()))
}

func TestSLAResponsePhase(t *testing.T) {
	svc := newSLAService()
	now := time.Now()

	sent := now.Add(-10 * time.Hour)
	report := svc.Report(&domain.TrackState{SentToAgentAt: &sent}, now)
	require.NotNil(t, report)
	require.NotNil(t, report.ResponseElapsedHours)
	assert.InDelta(t, 10, *report.ResponseElapsedHours, 0.01)
	require.NotNil(t, report.ResponseOverdue)
	assert.False(t, *report.ResponseOverdue)
	assert.Nil(t, report.CompletionElapsedHours)

	late := now.Add(-30 * time.Hour)
	report = svc.Report(&domain.TrackState{SentToAgentAt: &late}, now)
	require.NotNil(t, report.ResponseOverdue)
	assert.True(t, *report.ResponseOverdue)
}

func TestSLACompletionPhase(t *testing.T) {
	svc := newSLAService()
	now := time.Now()

	sent := now.Add(-50 * time.Hour)
	feasibleAt := now.Add(-40 * time.Hour)
	feasible := true
	ts := &domain.TrackState{
		SentToAgentAt: &sent,
		Feasible:      &feasible,
		FeasibleAt:    &feasibleAt,
	}

	report := svc.Report(ts, now)
	require.NotNil(t, report)
	assert.Nil(t, report.ResponseElapsedHours)
	require.NotNil(t, report.CompletionElapsedHours)
	assert.InDelta(t, 40, *report.CompletionElapsedHours, 0.01)
	require.NotNil(t, report.CompletionOverdue)
	assert.False(t, *report.CompletionOverdue)

	longAgo := now.Add(-400 * time.Hour)
	ts.FeasibleAt = &longAgo
	report = svc.Report(ts, now)
	require.NotNil(t, report.CompletionOverdue)
	assert.True(t, *report.CompletionOverdue)
}

func TestSLAClosedCaseMetrics(t *testing.T) {
	svc := newSLAService()
	now := time.Now()

	sent := now.Add(-100 * time.Hour)
	feasibleAt := now.Add(-90 * time.Hour)
	completedAt := now.Add(-10 * time.Hour)
	ts := &domain.TrackState{
		SentToAgentAt: &sent,
		FeasibleAt:    &feasibleAt,
		CompletedAt:   &completedAt,
	}

	report := svc.Report(ts, now)
	require.NotNil(t, report)
	assert.Nil(t, report.ResponseElapsedHours)
	assert.Nil(t, report.CompletionElapsedHours)
	require.NotNil(t, report.ResponseHours)
	assert.InDelta(t, 10, *report.ResponseHours, 0.01)
	require.NotNil(t, report.CompletionHours)
	assert.InDelta(t, 80, *report.CompletionHours, 0.01)
}

func TestCompletionOverdueRequiresFeasibleVerdict(t *testing.T) {
	svc := newSLAService()
	now := time.Now()

	longAgo := now.Add(-400 * time.Hour)
	notFeasible := false

	assert.False(t, svc.CompletionOverdue(&domain.TrackState{
		FeasibleAt: &longAgo,
		Feasible:   &notFeasible,
	}, now))

	feasible := true
	assert.True(t, svc.CompletionOverdue(&domain.TrackState{
		FeasibleAt: &longAgo,
		Feasible:   &feasible,
	}, now))

	assert.False(t, svc.CompletionOverdue(&domain.TrackState{
		FeasibleAt:  &longAgo,
		Feasible:    &feasible,
		CompletedAt: &now,
	}, now))
}
