package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/vastu-api/internal/dto"
	"github.com/noah-isme/vastu-api/internal/models"
	"github.com/noah-isme/vastu-api/internal/questionnaire"
	"github.com/noah-isme/vastu-api/internal/repository"
)

// ErrQuestionnaireResultNotFound indicates the stored result does not exist.
var ErrQuestionnaireResultNotFound = errors.New("questionnaire result not found")

// AdminQuestionnaireService exposes stored questionnaire results to administrators.
type AdminQuestionnaireService interface {
	List(ctx context.Context, req dto.AdminQuestionnaireListRequest) (dto.AdminQuestionnaireListResponse, error)
	Get(ctx context.Context, id uint) (dto.AdminQuestionnaireResultResponse, error)
	Resend(ctx context.Context, actor ActivityActor, id uint) (dto.AdminQuestionnaireResultResponse, error)
}

type adminQuestionnaireService struct {
	engine   *questionnaire.Engine
	repo     repository.QuestionnaireRepository
	activity ActivityRecorder
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewAdminQuestionnaireService constructs the admin questionnaire service.
func NewAdminQuestionnaireService(engine *questionnaire.Engine, repo repository.QuestionnaireRepository, activity ActivityRecorder, logger zerolog.Logger) AdminQuestionnaireService {
	return &adminQuestionnaireService{
		engine:   engine,
		repo:     repo,
		activity: activity,
		logger:   logger.With().Str("component", "admin_questionnaire_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/vastu-api/internal/service/admin_questionnaire"),
	}
}

func (s *adminQuestionnaireService) List(ctx context.Context, req dto.AdminQuestionnaireListRequest) (dto.AdminQuestionnaireListResponse, error) {
	filter := repository.QuestionnaireFilter{
		Search:   strings.TrimSpace(req.Search),
		Grade:    strings.TrimSpace(req.Grade),
		Status:   strings.TrimSpace(req.Status),
		Page:     normalizePage(req.Page),
		PageSize: clampPageSize(req.PageSize),
	}

	results, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.AdminQuestionnaireListResponse{}, err
	}

	items := make([]dto.AdminQuestionnaireResultResponse, 0, len(results))
	for _, result := range results {
		items = append(items, dto.NewAdminQuestionnaireResultResponse(result, nil))
	}

	return dto.AdminQuestionnaireListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

func (s *adminQuestionnaireService) Get(ctx context.Context, id uint) (dto.AdminQuestionnaireResultResponse, error) {
	result, err := s.load(ctx, id)
	if err != nil {
		return dto.AdminQuestionnaireResultResponse{}, err
	}
	return dto.NewAdminQuestionnaireResultResponse(result, s.engine.Bank()), nil
}

// Resend rebuilds the record from the stored answers and submits it again.
func (s *adminQuestionnaireService) Resend(ctx context.Context, actor ActivityActor, id uint) (dto.AdminQuestionnaireResultResponse, error) {
	ctx, span := s.tracer.Start(ctx, "questionnaire.resend", trace.WithAttributes(attribute.Int("questionnaire.result_id", int(id))))
	defer span.End()

	result, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		return dto.AdminQuestionnaireResultResponse{}, err
	}

	bank := s.engine.Bank()
	record := bank.BuildSubmission(
		questionnaire.Contact{Name: result.Name, Email: result.Email, Phone: result.Phone},
		questionnaire.AnswerSet(result.Answers.Data()),
	)

	var opts []questionnaire.SubmitOption
	if result.OperatorNotifiedAt != nil {
		opts = append(opts, questionnaire.SkipOperator())
	}

	submitErr := s.engine.Submit(ctx, record, opts...)
	if submitErr == nil || questionnaire.OperatorReached(submitErr) {
		if err := s.repo.MarkOperatorNotified(ctx, result.ID); err != nil {
			span.RecordError(err)
			return dto.AdminQuestionnaireResultResponse{}, err
		}
	}
	status, reason := models.QuestionnaireStatusSent, ""
	if submitErr != nil {
		span.RecordError(submitErr)
		span.SetStatus(codes.Error, "delivery failed")
		status, reason = models.QuestionnaireStatusFailed, submitErr.Error()
	}

	if err := s.repo.RecordDelivery(ctx, result.ID, status, reason); err != nil {
		span.RecordError(err)
		return dto.AdminQuestionnaireResultResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     ActionQuestionnaireResend,
		EntityType: "questionnaire_result",
		EntityID:   ptrUint(result.ID),
		Metadata:   map[string]interface{}{"status": status, "reference_id": result.ReferenceID, "operator_skipped": len(opts) > 0},
	})

	updated, err := s.load(ctx, id)
	if err != nil {
		return dto.AdminQuestionnaireResultResponse{}, err
	}
	response := dto.NewAdminQuestionnaireResultResponse(updated, bank)
	if submitErr != nil {
		return response, submitErr
	}

	s.logger.Info().Uint("result_id", id).Uint("actor_id", actor.ID).Msg("questionnaire result resent")
	return response, nil
}

func (s *adminQuestionnaireService) load(ctx context.Context, id uint) (models.QuestionnaireResult, error) {
	result, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.QuestionnaireResult{}, ErrQuestionnaireResultNotFound
		}
		return models.QuestionnaireResult{}, err
	}
	return result, nil
}
