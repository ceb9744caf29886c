package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/vastu-api/internal/dto"
	"github.com/noah-isme/vastu-api/internal/observability"
	"github.com/noah-isme/vastu-api/internal/repository"
)

const adminDashboardCacheKey = "dashboard:admin:summary"

// AdminDashboardService aggregates counters for the back-office landing page.
type AdminDashboardService interface {
	Summary(ctx context.Context) (dto.AdminDashboardResponse, error)
}

type adminDashboardService struct {
	contacts       repository.ContactRepository
	questionnaires repository.QuestionnaireRepository
	students       repository.StudentProfileRepository
	cache          *redis.Client
	cacheTTL       time.Duration
	logger         zerolog.Logger
	now            func() time.Time
}

// NewAdminDashboardService constructs the dashboard service. cache may be nil.
func NewAdminDashboardService(contacts repository.ContactRepository, questionnaires repository.QuestionnaireRepository, students repository.StudentProfileRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) AdminDashboardService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &adminDashboardService{
		contacts:       contacts,
		questionnaires: questionnaires,
		students:       students,
		cache:          cache,
		cacheTTL:       ttl,
		logger:         logger.With().Str("component", "admin_dashboard_service").Logger(),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *adminDashboardService) Summary(ctx context.Context) (dto.AdminDashboardResponse, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, adminDashboardCacheKey).Result(); err == nil {
			var response dto.AdminDashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				observability.DashboardCache().WithLabelValues("hit").Inc()
				response.CacheHit = true
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
		observability.DashboardCache().WithLabelValues("miss").Inc()
	}

	total, unread, err := s.contacts.Counts(ctx)
	if err != nil {
		return dto.AdminDashboardResponse{}, err
	}
	stats, err := s.questionnaires.Stats(ctx)
	if err != nil {
		return dto.AdminDashboardResponse{}, err
	}
	students, err := s.students.CountByStatus(ctx)
	if err != nil {
		return dto.AdminDashboardResponse{}, err
	}

	response := dto.AdminDashboardResponse{
		Contacts:          dto.ContactCounters{Total: total, Unread: unread},
		Questionnaires:    stats.ByStatus,
		GradeDistribution: stats.ByGrade,
		AverageScore:      math.Round(stats.AverageScore*10) / 10,
		Students:          students,
		GeneratedAt:       s.now(),
	}

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, adminDashboardCacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return response, nil
}
