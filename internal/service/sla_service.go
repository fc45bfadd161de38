package service

import (
	"time"

	"github.com/gulfsetup/crm-api/internal/config"
	"github.com/gulfsetup/crm-api/internal/domain"
)

// SLAService derives elapsed-time and overdue metrics from a track's
// timestamps. It is a pure read path: no store access, no side effects.
type SLAService struct {
	cfg *config.SLAConfig
}

// NewSLAService creates a new SLAService
func NewSLAService(cfg *config.SLAConfig) *SLAService {
	return &SLAService{cfg: cfg}
}

// Report computes the SLA metrics for one track as of now. Returns nil
// when the track has no agent handoff yet, and leaves individual metric
// fields nil wherever the underlying timestamps are missing.
func (s *SLAService) Report(ts *domain.TrackState, now time.Time) *domain.SLAReport {
	if ts.SentToAgentAt == nil {
		return nil
	}

	report := &domain.SLAReport{}

	if ts.FeasibleAt == nil {
		elapsed := now.Sub(*ts.SentToAgentAt).Hours()
		overdue := elapsed > s.cfg.ResponseHours
		report.ResponseElapsedHours = &elapsed
		report.ResponseOverdue = &overdue
	} else if ts.CompletedAt == nil {
		elapsed := now.Sub(*ts.FeasibleAt).Hours()
		overdue := elapsed > s.cfg.CompletionHours
		report.CompletionElapsedHours = &elapsed
		report.CompletionOverdue = &overdue
	}

	// Closed-case metrics once the track is done
	if ts.CompletedAt != nil {
		if ts.FeasibleAt != nil {
			response := ts.FeasibleAt.Sub(*ts.SentToAgentAt).Hours()
			completion := ts.CompletedAt.Sub(*ts.FeasibleAt).Hours()
			report.ResponseHours = &response
			report.CompletionHours = &completion
		}
	}

	return report
}

// ResponseOverdue reports whether the track is waiting on an agent
// verdict past the response threshold.
func (s *SLAService) ResponseOverdue(ts *domain.TrackState, now time.Time) bool {
	if ts.SentToAgentAt == nil || ts.FeasibleAt != nil {
		return false
	}
	return now.Sub(*ts.SentToAgentAt).Hours() > s.cfg.ResponseHours
}

// CompletionOverdue reports whether a feasible, uncompleted track is
// past the completion threshold.
func (s *SLAService) CompletionOverdue(ts *domain.TrackState, now time.Time) bool {
	if ts.FeasibleAt == nil || ts.CompletedAt != nil {
		return false
	}
	if ts.Feasible == nil || !*ts.Feasible {
		return false
	}
	return now.Sub(*ts.FeasibleAt).Hours() > s.cfg.CompletionHours
}
