package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/vastu-api/internal/models"
)

// StudentProfileFilter defines filters for listing student profiles.
type StudentProfileFilter struct {
	Search   string
	Status   string
	City     string
	Page     int
	PageSize int
}

// StudentProfileRepository exposes persistence helpers for student profiles.
type StudentProfileRepository interface {
	List(ctx context.Context, filter StudentProfileFilter) ([]models.StudentProfile, int64, error)
	GetByID(ctx context.Context, id uint) (models.StudentProfile, error)
	GetBySlug(ctx context.Context, slug string) (models.StudentProfile, error)
	SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error)
	Create(ctx context.Context, profile *models.StudentProfile) error
	Save(ctx context.Context, profile *models.StudentProfile) error
	SoftDelete(ctx context.Context, id uint) error
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

type studentProfileRepository struct {
	db *gorm.DB
}

// NewStudentProfileRepository constructs the student profile repository.
func NewStudentProfileRepository(db *gorm.DB) StudentProfileRepository {
	return &studentProfileRepository{db: db}
}

func (r *studentProfileRepository) List(ctx context.Context, filter StudentProfileFilter) ([]models.StudentProfile, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.StudentProfile{})

	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := likePattern(search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(headline) LIKE ?", like, like)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.City != "" {
		query = query.Where("LOWER(city) = ?", strings.ToLower(filter.City))
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var profiles []models.StudentProfile
	if err := paginate(query.Order("created_at DESC"), filter.Page, filter.PageSize).Find(&profiles).Error; err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

func (r *studentProfileRepository) GetByID(ctx context.Context, id uint) (models.StudentProfile, error) {
	var profile models.StudentProfile
	if err := r.db.WithContext(ctx).First(&profile, id).Error; err != nil {
		return models.StudentProfile{}, err
	}
	return profile, nil
}

func (r *studentProfileRepository) GetBySlug(ctx context.Context, slug string) (models.StudentProfile, error) {
	var profile models.StudentProfile
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&profile).Error; err != nil {
		return models.StudentProfile{}, err
	}
	return profile, nil
}

// SlugExists checks soft deleted rows too since the unique index covers them.
func (r *studentProfileRepository) SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error) {
	query := r.db.WithContext(ctx).Unscoped().Model(&models.StudentProfile{}).Where("slug = ?", slug)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *studentProfileRepository) Create(ctx context.Context, profile *models.StudentProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *studentProfileRepository) Save(ctx context.Context, profile *models.StudentProfile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

func (r *studentProfileRepository) SoftDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		update := tx.Model(&models.StudentProfile{}).
			Where("id = ?", id).
			Update("status", models.StudentStatusDraft)
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Delete(&models.StudentProfile{}, id).Error
	})
}

func (r *studentProfileRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := r.db.WithContext(ctx).Model(&models.StudentProfile{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := map[string]int64{models.StudentStatusDraft: 0, models.StudentStatusPublished: 0}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
