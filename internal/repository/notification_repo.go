package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/vastu-api/internal/models"
)

// NotificationRepository stores back-office alerts per audience.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByAudience(ctx context.Context, audience string, unreadOnly bool, limit, offset int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id uint, audience string) (models.Notification, error)
	MarkAllRead(ctx context.Context, audience string) (int64, error)
	CountUnread(ctx context.Context, audience string) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository constructs a repository backed by GORM.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepository) ListByAudience(ctx context.Context, audience string, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := r.db.WithContext(ctx).Where("audience = ?", audience)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC").Order("id DESC").Offset(offset).Limit(limit).Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uint, audience string) (models.Notification, error) {
	var notification models.Notification
	if err := r.db.WithContext(ctx).Where("id = ? AND audience = ?", id, audience).First(&notification).Error; err != nil {
		return models.Notification{}, err
	}
	if notification.ReadAt != nil {
		return notification, nil
	}

	now := time.Now().UTC()
	if err := r.db.WithContext(ctx).Model(&notification).Update("read_at", now).Error; err != nil {
		return models.Notification{}, err
	}
	notification.ReadAt = &now
	return notification, nil
}

// MarkAllRead acknowledges every unread notification of audience and reports how many changed.
func (r *notificationRepository) MarkAllRead(ctx context.Context, audience string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("audience = ? AND read_at IS NULL", audience).
		Update("read_at", time.Now().UTC())
	return result.RowsAffected, result.Error
}

func (r *notificationRepository) CountUnread(ctx context.Context, audience string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("audience = ? AND read_at IS NULL", audience).
		Count(&count).Error
	return count, err
}
