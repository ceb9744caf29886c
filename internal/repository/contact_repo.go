package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/vastu-api/internal/models"
)

// ContactFilter narrows contact inbox queries.
type ContactFilter struct {
	Search   string
	Service  string
	Unread   bool
	Page     int
	PageSize int
}

// ContactRepository persists contact form submissions.
type ContactRepository interface {
	Create(ctx context.Context, submission *models.ContactSubmission) error
	UpdateStatus(ctx context.Context, id uint, status string) error
	List(ctx context.Context, filter ContactFilter) ([]models.ContactSubmission, int64, error)
	GetByID(ctx context.Context, id uint) (models.ContactSubmission, error)
	MarkRead(ctx context.Context, id uint, at time.Time) (models.ContactSubmission, error)
	Delete(ctx context.Context, id uint) error
	Counts(ctx context.Context) (total int64, unread int64, err error)
}

type contactRepository struct {
	db *gorm.DB
}

// NewContactRepository constructs a repository backed by GORM.
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) Create(ctx context.Context, submission *models.ContactSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *contactRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	updates := map[string]interface{}{"status": status}
	if status == models.ContactStatusSent {
		updates["delivered_at"] = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Model(&models.ContactSubmission{}).
		Where("id = ?", id).
		Updates(updates).
		Error
}

func (r *contactRepository) List(ctx context.Context, filter ContactFilter) ([]models.ContactSubmission, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ContactSubmission{})

	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := likePattern(search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(message) LIKE ?", like, like, like)
	}
	if filter.Service != "" {
		query = query.Where("service = ?", filter.Service)
	}
	if filter.Unread {
		query = query.Where("read_at IS NULL")
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var submissions []models.ContactSubmission
	if err := paginate(query.Order("created_at DESC"), filter.Page, filter.PageSize).Find(&submissions).Error; err != nil {
		return nil, 0, err
	}

	return submissions, total, nil
}

func (r *contactRepository) GetByID(ctx context.Context, id uint) (models.ContactSubmission, error) {
	var submission models.ContactSubmission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return models.ContactSubmission{}, err
	}
	return submission, nil
}

func (r *contactRepository) MarkRead(ctx context.Context, id uint, at time.Time) (models.ContactSubmission, error) {
	submission, err := r.GetByID(ctx, id)
	if err != nil {
		return models.ContactSubmission{}, err
	}
	if submission.ReadAt != nil {
		return submission, nil
	}

	if err := r.db.WithContext(ctx).Model(&submission).Update("read_at", at).Error; err != nil {
		return models.ContactSubmission{}, err
	}
	submission.ReadAt = &at
	return submission, nil
}

func (r *contactRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.ContactSubmission{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *contactRepository) Counts(ctx context.Context) (int64, int64, error) {
	var total, unread int64
	if err := r.db.WithContext(ctx).Model(&models.ContactSubmission{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err := r.db.WithContext(ctx).Model(&models.ContactSubmission{}).Where("read_at IS NULL").Count(&unread).Error; err != nil {
		return 0, 0, err
	}
	return total, unread, nil
}
