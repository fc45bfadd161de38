package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gulfsetup/crm-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceRepository handles the append-only invoice revision ledger.
// (lead_id, track, version) carries a unique index so a concurrent
// writer that loses the version race fails closed on the constraint
// instead of silently duplicating a version.
type InvoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new InvoiceRepository
func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Upsert inserts a revision keyed on (lead_id, track, version). A retry
// of the same logical append updates the existing row in place, which
// keeps the operation idempotent for retried requests.
func (r *InvoiceRepository) Upsert(ctx context.Context, rev *domain.InvoiceRevision) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "lead_id"}, {Name: "track"}, {Name: "version"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"number", "amount", "payment_link", "content", "sent_at",
			}),
		}).
		Create(rev).Error
}

// GetRevision retrieves one revision by its natural key
func (r *InvoiceRepository) GetRevision(ctx context.Context, leadID uuid.UUID, track domain.Track, version int) (*domain.InvoiceRevision, error) {
	var rev domain.InvoiceRevision
	err := r.db.WithContext(ctx).
		Where("lead_id = ? AND track = ? AND version = ?", leadID, track, version).
		First(&rev).Error
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

// GetLatestRevision returns the revision with the highest version for
// the (lead, track), or gorm.ErrRecordNotFound when none exists.
func (r *InvoiceRepository) GetLatestRevision(ctx context.Context, leadID uuid.UUID, track domain.Track) (*domain.InvoiceRevision, error) {
	var rev domain.InvoiceRevision
	err := r.db.WithContext(ctx).
		Where("lead_id = ? AND track = ?", leadID, track).
		Order("version DESC").
		First(&rev).Error
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

// ListByLead returns all revisions for a lead, optionally filtered by
// track, oldest first.
func (r *InvoiceRepository) ListByLead(ctx context.Context, leadID uuid.UUID, track domain.Track) ([]domain.InvoiceRevision, error) {
	query := r.db.WithContext(ctx).Where("lead_id = ?", leadID)
	if track != "" {
		query = query.Where("track = ?", track)
	}
	var revs []domain.InvoiceRevision
	err := query.Order("track ASC, version ASC").Find(&revs).Error
	return revs, err
}

// MarkViewed stamps viewed_at on a revision only if it is still unset.
// Returns true when this call was the first view. The conditional WHERE
// shrinks the duplicate-notification window under concurrent reads to
// the database's row-update atomicity.
func (r *InvoiceRepository) MarkViewed(ctx context.Context, revisionID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.InvoiceRevision{}).
		Where("id = ? AND viewed_at IS NULL", revisionID).
		Update("viewed_at", at)
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark revision viewed: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}
