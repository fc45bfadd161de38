package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/gulfsetup/crm-api/internal/domain"
	"gorm.io/gorm"
)

// LeadFilters narrows lead listings
type LeadFilters struct {
	Search    string
	SetupType domain.SetupType
}

// LeadRepository handles database operations for leads
type LeadRepository struct {
	db *gorm.DB
}

// NewLeadRepository creates a new LeadRepository
func NewLeadRepository(db *gorm.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// Create inserts a new lead
func (r *LeadRepository) Create(ctx context.Context, lead *domain.Lead) error {
	return r.db.WithContext(ctx).Create(lead).Error
}

// GetByID retrieves a lead by ID
func (r *LeadRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	var lead domain.Lead
	if err := r.db.WithContext(ctx).First(&lead, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

// Update persists the full lead aggregate
func (r *LeadRepository) Update(ctx context.Context, lead *domain.Lead) error {
	return r.db.WithContext(ctx).Save(lead).Error
}

// Delete removes a lead and all child records (revisions, activities,
// notifications) in one transaction.
func (r *LeadRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lead_id = ?", id).Delete(&domain.InvoiceRevision{}).Error; err != nil {
			return fmt.Errorf("failed to delete invoice revisions: %w", err)
		}
		if err := tx.Where("lead_id = ?", id).Delete(&domain.ActivityRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete activities: %w", err)
		}
		if err := tx.Where("lead_id = ?", id).Delete(&domain.Notification{}).Error; err != nil {
			return fmt.Errorf("failed to delete notifications: %w", err)
		}
		if err := tx.Delete(&domain.Lead{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete lead: %w", err)
		}
		return nil
	})
}

// List returns a page of leads with optional filters, newest first
func (r *LeadRepository) List(ctx context.Context, page, pageSize int, filters *LeadFilters) ([]domain.Lead, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Lead{})

	if filters != nil {
		if filters.Search != "" {
			like := "%" + filters.Search + "%"
			query = query.Where("name ILIKE ? OR email ILIKE ? OR company_name ILIKE ?", like, like, like)
		}
		if filters.SetupType != "" {
			query = query.Where("setup_type = ?", filters.SetupType)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var leads []domain.Lead
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&leads).Error
	if err != nil {
		return nil, 0, err
	}

	return leads, total, nil
}

// ListAll returns every lead. Used by the SLA sweep; lead volume for a
// brokerage of this size stays in the low thousands.
func (r *LeadRepository) ListAll(ctx context.Context) ([]domain.Lead, error) {
	var leads []domain.Lead
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&leads).Error
	return leads, err
}
