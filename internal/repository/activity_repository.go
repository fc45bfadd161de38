package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/gulfsetup/crm-api/internal/domain"
	"gorm.io/gorm"
)

// ActivityRepository handles the append-only activity ledger. There is
// deliberately no Update or single-record Delete: entries are immutable
// once written and only disappear with their lead.
type ActivityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Append inserts one audit entry
func (r *ActivityRepository) Append(ctx context.Context, record *domain.ActivityRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// ListByLead returns the newest entries for a lead
func (r *ActivityRepository) ListByLead(ctx context.Context, leadID uuid.UUID, limit int) ([]domain.ActivityRecord, error) {
	var records []domain.ActivityRecord
	err := r.db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
