package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/gulfsetup/crm-api/internal/domain"
	"github.com/gulfsetup/crm-api/internal/mapper"
	"github.com/gulfsetup/crm-api/internal/repository"
	"go.uber.org/zap"
)

// ActivityService maintains the append-only audit trail. Recording is
// best effort: a failed insert is logged and swallowed so it can never
// block the business transition it accompanies.
type ActivityService struct {
	activityRepo *repository.ActivityRepository
	logger       *zap.Logger
}

// NewActivityService creates a new ActivityService
func NewActivityService(activityRepo *repository.ActivityRepository, logger *zap.Logger) *ActivityService {
	return &ActivityService{
		activityRepo: activityRepo,
		logger:       logger,
	}
}

// Record appends one audit entry. Never returns an error.
func (s *ActivityService) Record(ctx context.Context, leadID uuid.UUID, action domain.ActionCode, message string) {
	record := &domain.ActivityRecord{
		LeadID:  leadID,
		Action:  action,
		Message: message,
	}
	if err := s.activityRepo.Append(ctx, record); err != nil {
		s.logger.Error("failed to record activity",
			zap.String("lead_id", leadID.String()),
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
}

// ListByLead returns the newest audit entries for a lead
func (s *ActivityService) ListByLead(ctx context.Context, leadID uuid.UUID, limit int) ([]domain.ActivityDTO, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	records, err := s.activityRepo.ListByLead(ctx, leadID, limit)
	if err != nil {
		return nil, err
	}
	dtos := make([]domain.ActivityDTO, len(records))
	for i := range records {
		dtos[i] = mapper.ToActivityDTO(&records[i])
	}
	return dtos, nil
}
