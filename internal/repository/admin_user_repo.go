package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/vastu-api/internal/models"
)

// AdminUserRepository persists back-office accounts.
type AdminUserRepository interface {
	GetByEmail(ctx context.Context, email string) (models.AdminUser, error)
	GetByID(ctx context.Context, id uint) (models.AdminUser, error)
	Create(ctx context.Context, user *models.AdminUser) error
	TouchLogin(ctx context.Context, id uint, at time.Time) error
}

type adminUserRepository struct {
	db *gorm.DB
}

// NewAdminUserRepository constructs the admin user repository.
func NewAdminUserRepository(db *gorm.DB) AdminUserRepository {
	return &adminUserRepository{db: db}
}

func (r *adminUserRepository) GetByEmail(ctx context.Context, email string) (models.AdminUser, error) {
	var user models.AdminUser
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return models.AdminUser{}, err
	}
	return user, nil
}

func (r *adminUserRepository) GetByID(ctx context.Context, id uint) (models.AdminUser, error) {
	var user models.AdminUser
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.AdminUser{}, err
	}
	return user, nil
}

func (r *adminUserRepository) Create(ctx context.Context, user *models.AdminUser) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *adminUserRepository) TouchLogin(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.AdminUser{}).Where("id = ?", id).Update("last_login_at", at).Error
}
