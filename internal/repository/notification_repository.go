package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gulfsetup/crm-api/internal/domain"
	"gorm.io/gorm"
)

// NotificationRepository handles database operations for operator
// notifications
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a new notification
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// List returns a page of notifications, newest first. unreadOnly limits
// the page to notifications without a read stamp.
func (r *NotificationRepository) List(ctx context.Context, page, pageSize int, unreadOnly bool) ([]domain.Notification, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Notification{})
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []domain.Notification
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

// MarkRead stamps read_at on a notification. Already-read notifications
// keep their original stamp.
func (r *NotificationRepository) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", at).Error
}

// ExistsSince reports whether a notification for the same event, lead
// and track was created after the given time. The SLA sweep uses this
// to avoid re-alerting on every run.
func (r *NotificationRepository) ExistsSince(ctx context.Context, event domain.NotifyEvent, leadID uuid.UUID, track domain.Track, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("event = ? AND lead_id = ? AND track = ? AND created_at > ?", event, leadID, track, since).
		Count(&count).Error
	return count > 0, err
}
