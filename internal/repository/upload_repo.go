package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/vastu-api/internal/models"
)

// UploadFilter narrows the media library listing.
type UploadFilter struct {
	Purpose  string
	Page     int
	PageSize int
}

// UploadRepository persists metadata about images stored on the image host.
type UploadRepository interface {
	Create(ctx context.Context, record *models.UploadRecord) error
	FindByChecksum(ctx context.Context, checksum string) (*models.UploadRecord, error)
	GetByID(ctx context.Context, id uint) (models.UploadRecord, error)
	List(ctx context.Context, filter UploadFilter) ([]models.UploadRecord, int64, error)
	DeleteByID(ctx context.Context, id uint) error
	DeleteByPublicID(ctx context.Context, publicID string) error
}

type uploadRepository struct {
	db *gorm.DB
}

// NewUploadRepository constructs a repository for upload records.
func NewUploadRepository(db *gorm.DB) UploadRepository {
	return &uploadRepository{db: db}
}

func (r *uploadRepository) Create(ctx context.Context, record *models.UploadRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindByChecksum returns the newest media upload with checksum, or nil.
func (r *uploadRepository) FindByChecksum(ctx context.Context, checksum string) (*models.UploadRecord, error) {
	var record models.UploadRecord
	err := r.db.WithContext(ctx).
		Where("checksum = ? AND purpose = ?", checksum, models.UploadPurposeMedia).
		Order("id DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *uploadRepository) GetByID(ctx context.Context, id uint) (models.UploadRecord, error) {
	var record models.UploadRecord
	err := r.db.WithContext(ctx).First(&record, id).Error
	return record, err
}

func (r *uploadRepository) List(ctx context.Context, filter UploadFilter) ([]models.UploadRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.UploadRecord{})
	if filter.Purpose != "" {
		query = query.Where("purpose = ?", filter.Purpose)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []models.UploadRecord
	if err := paginate(query.Order("created_at DESC").Order("id DESC"), filter.Page, filter.PageSize).Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *uploadRepository) DeleteByID(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.UploadRecord{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteByPublicID is a no-op when no record references publicID.
func (r *uploadRepository) DeleteByPublicID(ctx context.Context, publicID string) error {
	return r.db.WithContext(ctx).Where("public_id = ?", publicID).Delete(&models.UploadRecord{}).Error
}
