package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/vastu-api/internal/dto"
	"github.com/noah-isme/vastu-api/internal/models"
	"github.com/noah-isme/vastu-api/internal/repository"
)

// RoleAdmin is the role granted to back-office accounts.
const RoleAdmin = "admin"

var (
	// ErrInvalidCredentials indicates the email or password did not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAdminInactive indicates the account exists but was disabled.
	ErrAdminInactive = errors.New("admin account is disabled")
	// ErrAdminNotFound indicates the authenticated admin no longer exists.
	ErrAdminNotFound = errors.New("admin not found")
)

// AuthConfig configures token issuance.
type AuthConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// AdminSeed describes the bootstrap administrator.
type AdminSeed struct {
	Email    string
	Password string
	Name     string
}

// AuthService authenticates administrators and issues access tokens.
type AuthService interface {
	Login(ctx context.Context, req dto.AdminLoginRequest) (dto.AdminLoginResponse, error)
	Me(ctx context.Context, id uint) (dto.AdminUserResponse, error)
	EnsureAdmin(ctx context.Context, seed AdminSeed) error
}

type authService struct {
	repo      repository.AdminUserRepository
	validator *validator.Validate
	activity  ActivityRecorder
	cfg       AuthConfig
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAuthService constructs the admin authentication service.
func NewAuthService(repo repository.AdminUserRepository, validate *validator.Validate, activity ActivityRecorder, cfg AuthConfig, logger zerolog.Logger) AuthService {
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "vastu-api"
	}
	return &authService{
		repo:      repo,
		validator: validate,
		activity:  activity,
		cfg:       cfg,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *authService) Login(ctx context.Context, req dto.AdminLoginRequest) (dto.AdminLoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AdminLoginResponse{}, err
	}

	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn().Str("email", maskEmail(req.Email)).Msg("login for unknown admin")
			return dto.AdminLoginResponse{}, ErrInvalidCredentials
		}
		return dto.AdminLoginResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn().Str("email", maskEmail(req.Email)).Msg("admin login rejected")
		return dto.AdminLoginResponse{}, ErrInvalidCredentials
	}
	if !user.Active {
		return dto.AdminLoginResponse{}, ErrAdminInactive
	}

	now := s.now()
	expiresAt := now.Add(s.cfg.TTL)
	token, err := s.issue(user, now, expiresAt)
	if err != nil {
		return dto.AdminLoginResponse{}, err
	}

	if err := s.repo.TouchLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn().Err(err).Uint("admin_id", user.ID).Msg("failed to record login time")
	} else {
		user.LastLoginAt = &now
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    user.ID,
		ActorRole:  user.Role,
		Action:     ActionAdminLogin,
		EntityType: "admin_user",
		EntityID:   ptrUint(user.ID),
	})
	s.logger.Info().Uint("admin_id", user.ID).Msg("admin logged in")

	return dto.AdminLoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		Admin:       dto.NewAdminUserResponse(user),
	}, nil
}

func (s *authService) Me(ctx context.Context, id uint) (dto.AdminUserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AdminUserResponse{}, ErrAdminNotFound
		}
		return dto.AdminUserResponse{}, err
	}
	return dto.NewAdminUserResponse(user), nil
}

// EnsureAdmin creates the bootstrap administrator when it does not exist yet.
func (s *authService) EnsureAdmin(ctx context.Context, seed AdminSeed) error {
	email := strings.ToLower(strings.TrimSpace(seed.Email))
	if email == "" || seed.Password == "" {
		s.logger.Debug().Msg("no bootstrap admin configured")
		return nil
	}

	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if len(seed.Password) < 8 {
		return fmt.Errorf("bootstrap admin password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	name := strings.TrimSpace(seed.Name)
	if name == "" {
		name = "Administrator"
	}
	user := models.AdminUser{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         RoleAdmin,
		Active:       true,
	}
	if err := s.repo.Create(ctx, &user); err != nil {
		return err
	}

	s.logger.Info().Str("email", maskEmail(email)).Msg("bootstrap admin created")
	return nil
}

func (s *authService) issue(user models.AdminUser, issuedAt, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":   strconv.FormatUint(uint64(user.ID), 10),
		"role":  user.Role,
		"email": user.Email,
		"iss":   s.cfg.Issuer,
		"iat":   issuedAt.Unix(),
		"exp":   expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
