package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/vastu-api/internal/models"
)

// QuestionnaireFilter narrows questionnaire result queries.
type QuestionnaireFilter struct {
	Search   string
	Grade    string
	Status   string
	Page     int
	PageSize int
}

// QuestionnaireStats aggregates stored questionnaire results.
type QuestionnaireStats struct {
	ByStatus     map[string]int64
	ByGrade      map[string]int64
	AverageScore float64
}

// QuestionnaireRepository persists scored questionnaire results.
type QuestionnaireRepository interface {
	Create(ctx context.Context, result *models.QuestionnaireResult) error
	RecordDelivery(ctx context.Context, id uint, status string, failure string) error
	MarkOperatorNotified(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (models.QuestionnaireResult, error)
	List(ctx context.Context, filter QuestionnaireFilter) ([]models.QuestionnaireResult, int64, error)
	Stats(ctx context.Context) (QuestionnaireStats, error)
}

type questionnaireRepository struct {
	db *gorm.DB
}

// NewQuestionnaireRepository constructs a repository backed by GORM.
func NewQuestionnaireRepository(db *gorm.DB) QuestionnaireRepository {
	return &questionnaireRepository{db: db}
}

func (r *questionnaireRepository) Create(ctx context.Context, result *models.QuestionnaireResult) error {
	return r.db.WithContext(ctx).Create(result).Error
}

// RecordDelivery stores the outcome of one delivery attempt.
func (r *questionnaireRepository) RecordDelivery(ctx context.Context, id uint, status string, failure string) error {
	updates := map[string]interface{}{
		"status":         status,
		"failure_reason": failure,
		"attempts":       gorm.Expr("attempts + 1"),
	}
	if status == models.QuestionnaireStatusSent {
		updates["delivered_at"] = time.Now().UTC()
	}

	result := r.db.WithContext(ctx).Model(&models.QuestionnaireResult{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkOperatorNotified stamps the first time the operator report was delivered.
func (r *questionnaireRepository) MarkOperatorNotified(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&models.QuestionnaireResult{}).
		Where("id = ? AND operator_notified_at IS NULL", id).
		Update("operator_notified_at", time.Now().UTC())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.QuestionnaireResult{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}

func (r *questionnaireRepository) GetByID(ctx context.Context, id uint) (models.QuestionnaireResult, error) {
	var result models.QuestionnaireResult
	if err := r.db.WithContext(ctx).First(&result, id).Error; err != nil {
		return models.QuestionnaireResult{}, err
	}
	return result, nil
}

func (r *questionnaireRepository) List(ctx context.Context, filter QuestionnaireFilter) ([]models.QuestionnaireResult, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.QuestionnaireResult{})

	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := likePattern(search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	if filter.Grade != "" {
		query = query.Where("grade_letter = ?", strings.ToUpper(filter.Grade))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []models.QuestionnaireResult
	if err := paginate(query.Order("created_at DESC"), filter.Page, filter.PageSize).Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *questionnaireRepository) Stats(ctx context.Context) (QuestionnaireStats, error) {
	stats := QuestionnaireStats{ByStatus: map[string]int64{}, ByGrade: map[string]int64{}}

	type bucket struct {
		Label string
		Count int64
	}

	var statuses []bucket
	if err := r.db.WithContext(ctx).Model(&models.QuestionnaireResult{}).
		Select("status AS label, COUNT(*) AS count").
		Group("status").
		Scan(&statuses).Error; err != nil {
		return QuestionnaireStats{}, err
	}
	for _, b := range statuses {
		stats.ByStatus[b.Label] = b.Count
	}

	var grades []bucket
	if err := r.db.WithContext(ctx).Model(&models.QuestionnaireResult{}).
		Select("grade_letter AS label, COUNT(*) AS count").
		Group("grade_letter").
		Scan(&grades).Error; err != nil {
		return QuestionnaireStats{}, err
	}
	for _, b := range grades {
		stats.ByGrade[b.Label] = b.Count
	}

	var avg struct{ Value *float64 }
	if err := r.db.WithContext(ctx).Model(&models.QuestionnaireResult{}).
		Select("AVG(score_percent) AS value").
		Scan(&avg).Error; err != nil {
		return QuestionnaireStats{}, err
	}
	if avg.Value != nil {
		stats.AverageScore = *avg.Value
	}

	return stats, nil
}
