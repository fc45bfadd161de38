package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/gulfsetup/crm-api/internal/domain"
	"github.com/gulfsetup/crm-api/internal/repository"
	"github.com/gulfsetup/crm-api/internal/service"
	"go.uber.org/zap"
)

// suppressionWindow keeps the sweep from re-alerting the same overdue
// track on every run.
const suppressionWindow = 24 * time.Hour

// SLASweep walks all leads and raises operator notifications for tracks
// that blew their response or completion SLA. The deal state machine
// itself never runs background work; this sweep only reads and notifies.
type SLASweep struct {
	leadRepo         *repository.LeadRepository
	notificationRepo *repository.NotificationRepository
	slaSvc           *service.SLAService
	notifier         *service.Notifier
	logger           *zap.Logger
}

// NewSLASweep creates a new SLASweep job
func NewSLASweep(
	leadRepo *repository.LeadRepository,
	notificationRepo *repository.NotificationRepository,
	slaSvc *service.SLAService,
	notifier *service.Notifier,
	logger *zap.Logger,
) *SLASweep {
	return &SLASweep{
		leadRepo:         leadRepo,
		notificationRepo: notificationRepo,
		slaSvc:           slaSvc,
		notifier:         notifier,
		logger:           logger,
	}
}

// Run executes one sweep over all leads
func (j *SLASweep) Run() {
	ctx := context.Background()
	now := time.Now().UTC()

	leads, err := j.leadRepo.ListAll(ctx)
	if err != nil {
		j.logger.Error("sla sweep failed to list leads", zap.Error(err))
		return
	}

	flagged := 0
	for i := range leads {
		lead := &leads[i]
		for _, track := range domain.Tracks {
			ts := lead.TrackState(track)
			if j.sweepTrack(ctx, lead, track, ts, now) {
				flagged++
			}
		}
	}

	j.logger.Info("sla sweep finished",
		zap.Int("leads", len(leads)),
		zap.Int("flagged", flagged),
	)
}

func (j *SLASweep) sweepTrack(ctx context.Context, lead *domain.Lead, track domain.Track, ts *domain.TrackState, now time.Time) bool {
	var event domain.NotifyEvent
	var title, message string

	switch {
	case j.slaSvc.ResponseOverdue(ts, now):
		event = domain.EventResponseOverdue
		hours := now.Sub(*ts.SentToAgentAt).Hours()
		title = fmt.Sprintf("Agent response overdue for %s", lead.Name)
		message = fmt.Sprintf("The %s track has waited %.0f hours for a feasibility verdict.", track, hours)
	case j.slaSvc.CompletionOverdue(ts, now):
		event = domain.EventCompletionOverdue
		hours := now.Sub(*ts.FeasibleAt).Hours()
		title = fmt.Sprintf("Completion overdue for %s", lead.Name)
		message = fmt.Sprintf("The %s track has been open %.0f hours since feasibility.", track, hours)
	default:
		return false
	}

	alerted, err := j.notificationRepo.ExistsSince(ctx, event, lead.ID, track, now.Add(-suppressionWindow))
	if err != nil {
		j.logger.Error("sla sweep dedupe check failed",
			zap.String("lead_id", lead.ID.String()),
			zap.Error(err),
		)
		return false
	}
	if alerted {
		return false
	}

	j.notifier.Notify(event, lead.ID, track, title, message)
	return true
}
