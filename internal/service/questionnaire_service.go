package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/vastu-api/internal/dto"
	"github.com/noah-isme/vastu-api/internal/models"
	"github.com/noah-isme/vastu-api/internal/observability"
	"github.com/noah-isme/vastu-api/internal/questionnaire"
	"github.com/noah-isme/vastu-api/internal/repository"
)

var (
	// ErrQuestionnaireSpam indicates the honeypot field was filled.
	ErrQuestionnaireSpam = errors.New("questionnaire submission flagged as spam")
	// ErrQuestionnaireDuplicate indicates the same answers were submitted recently.
	ErrQuestionnaireDuplicate = errors.New("duplicate questionnaire submission")
	// ErrInvalidAnswer indicates an answer outside the question's options.
	ErrInvalidAnswer = errors.New("answer not accepted for question")
)

// InvalidAnswersError lists questions whose answer is not one of the offered options.
type InvalidAnswersError struct {
	Indices []int
}

func (e *InvalidAnswersError) Error() string {
	parts := make([]string, 0, len(e.Indices))
	for _, index := range e.Indices {
		parts = append(parts, strconv.Itoa(index))
	}
	return fmt.Sprintf("invalid answers for questions: %s", strings.Join(parts, ", "))
}

func (e *InvalidAnswersError) Is(target error) bool {
	return target == ErrInvalidAnswer
}

// QuestionnaireService runs the public questionnaire workflow.
type QuestionnaireService interface {
	Questionnaire() dto.QuestionnaireResponse
	Preview(ctx context.Context, req dto.QuestionnaireScoreRequest) (dto.QuestionnaireScoreResponse, error)
	Submit(ctx context.Context, req dto.QuestionnaireSubmitRequest) (dto.QuestionnaireSubmitResponse, error)
}

type questionnaireService struct {
	engine    *questionnaire.Engine
	repo      repository.QuestionnaireRepository
	cache     *redis.Client
	validator *validator.Validate
	alerts    NotificationPublisher
	logger    zerolog.Logger
	dedupeTTL time.Duration
	tracer    trace.Tracer
}

// NewQuestionnaireService constructs the questionnaire workflow. cache and alerts may be nil.
func NewQuestionnaireService(engine *questionnaire.Engine, repo repository.QuestionnaireRepository, cache *redis.Client, validate *validator.Validate, alerts NotificationPublisher, dedupeTTL time.Duration, logger zerolog.Logger) QuestionnaireService {
	if dedupeTTL <= 0 {
		dedupeTTL = 10 * time.Minute
	}
	return &questionnaireService{
		engine:    engine,
		repo:      repo,
		cache:     cache,
		validator: validate,
		alerts:    alerts,
		logger:    logger.With().Str("component", "questionnaire_service").Logger(),
		dedupeTTL: dedupeTTL,
		tracer:    otel.Tracer("github.com/noah-isme/vastu-api/internal/service/questionnaire"),
	}
}

func (s *questionnaireService) Questionnaire() dto.QuestionnaireResponse {
	return dto.NewQuestionnaireResponse(s.engine.Bank())
}

func (s *questionnaireService) Preview(ctx context.Context, req dto.QuestionnaireScoreRequest) (dto.QuestionnaireScoreResponse, error) {
	_, span := s.tracer.Start(ctx, "questionnaire.preview")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		return dto.QuestionnaireScoreResponse{}, err
	}

	answers := questionnaire.AnswerSet(req.Answers)
	if err := s.checkAnswers(answers); err != nil {
		span.RecordError(err)
		return dto.QuestionnaireScoreResponse{}, err
	}

	record := s.engine.Bank().BuildSubmission(questionnaire.Contact{}, answers)
	span.SetAttributes(attribute.Int("questionnaire.score", record.ScorePercent))
	return scoreResponse(record), nil
}

func (s *questionnaireService) Submit(ctx context.Context, req dto.QuestionnaireSubmitRequest) (dto.QuestionnaireSubmitResponse, error) {
	ctx, span := s.tracer.Start(ctx, "questionnaire.submit")
	defer span.End()

	if req.Honeypot != "" {
		span.SetStatus(codes.Error, "honeypot tripped")
		observability.QuestionnaireSubmissions().WithLabelValues("spam", "").Inc()
		return dto.QuestionnaireSubmitResponse{}, ErrQuestionnaireSpam
	}

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.QuestionnaireSubmitResponse{}, err
	}

	answers := questionnaire.AnswerSet(req.Answers)
	if err := s.checkAnswers(answers); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "answers rejected")
		observability.QuestionnaireSubmissions().WithLabelValues("incomplete", "").Inc()
		return dto.QuestionnaireSubmitResponse{}, err
	}

	bank := s.engine.Bank()
	record := bank.BuildSubmission(questionnaire.Contact{Name: req.Name, Email: req.Email, Phone: req.Phone}, answers)
	span.SetAttributes(
		attribute.Int("questionnaire.score", record.ScorePercent),
		attribute.String("questionnaire.grade", record.Grade.Letter),
	)

	checksum := answersChecksum(record)
	dedupeKey := fmt.Sprintf("questionnaire:dedupe:%s", checksum)
	if s.cache != nil {
		ok, err := s.cache.SetNX(ctx, dedupeKey, 1, s.dedupeTTL).Result()
		if err != nil {
			span.RecordError(err)
			return dto.QuestionnaireSubmitResponse{}, err
		}
		if !ok {
			span.SetStatus(codes.Error, "duplicate submission")
			observability.QuestionnaireSubmissions().WithLabelValues("duplicate", record.Grade.Letter).Inc()
			return dto.QuestionnaireSubmitResponse{}, ErrQuestionnaireDuplicate
		}
	}

	result := models.QuestionnaireResult{
		ReferenceID:   uuid.NewString(),
		Name:          record.Contact.Name,
		Email:         record.Contact.Email,
		Phone:         record.Contact.Phone,
		Answers:       datatypes.NewJSONType(map[int]string(record.Answers)),
		Positive:      datatypes.NewJSONType(map[int]bool(record.Classification)),
		AnsweredCount: answeredCount(record.Answers),
		ScorePercent:  record.ScorePercent,
		GradeLetter:   record.Grade.Letter,
		GradeLabel:    record.Grade.Label,
		Status:        models.QuestionnaireStatusPending,
		Checksum:      checksum,
	}
	if err := s.repo.Create(ctx, &result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		s.releaseDedupe(ctx, dedupeKey)
		observability.QuestionnaireSubmissions().WithLabelValues("error", record.Grade.Letter).Inc()
		return dto.QuestionnaireSubmitResponse{}, err
	}

	response := dto.QuestionnaireSubmitResponse{
		ReferenceID:  result.ReferenceID,
		ScorePercent: record.ScorePercent,
		Grade:        record.Grade,
	}

	submitErr := s.engine.Submit(ctx, record)
	if submitErr == nil || questionnaire.OperatorReached(submitErr) {
		if err := s.repo.MarkOperatorNotified(ctx, result.ID); err != nil {
			s.logger.Error().Err(err).Str("reference_id", result.ReferenceID).Msg("failed to record operator notification")
		}
	}
	if submitErr != nil {
		span.RecordError(submitErr)
		span.SetStatus(codes.Error, "delivery failed")
		s.logger.Warn().Err(submitErr).Str("reference_id", result.ReferenceID).Msg("questionnaire delivery failed")

		if err := s.repo.RecordDelivery(ctx, result.ID, models.QuestionnaireStatusFailed, submitErr.Error()); err != nil {
			s.logger.Error().Err(err).Str("reference_id", result.ReferenceID).Msg("failed to record delivery failure")
		}
		// the respondent may retry straight away
		s.releaseDedupe(ctx, dedupeKey)
		observability.QuestionnaireSubmissions().WithLabelValues(models.QuestionnaireStatusFailed, record.Grade.Letter).Inc()
		s.alert(ctx, models.NotificationDeliveryFailed, "Questionnaire delivery failed", result)

		response.Status = models.QuestionnaireStatusFailed
		return response, submitErr
	}

	if err := s.repo.RecordDelivery(ctx, result.ID, models.QuestionnaireStatusSent, ""); err != nil {
		s.logger.Error().Err(err).Str("reference_id", result.ReferenceID).Msg("failed to record delivery")
	}

	observability.QuestionnaireSubmissions().WithLabelValues(models.QuestionnaireStatusSent, record.Grade.Letter).Inc()
	s.alert(ctx, models.NotificationNewQuestionnaire, "New questionnaire result", result)
	s.logger.Info().
		Str("reference_id", result.ReferenceID).
		Str("email", maskEmail(result.Email)).
		Int("score", result.ScorePercent).
		Str("grade", result.GradeLetter).
		Msg("questionnaire submission processed")
	span.SetStatus(codes.Ok, "delivered")

	response.Status = models.QuestionnaireStatusSent
	return response, nil
}

// checkAnswers runs the engine validation and then rejects answers outside a question's options.
func (s *questionnaireService) checkAnswers(answers questionnaire.AnswerSet) error {
	bank := s.engine.Bank()
	if err := bank.Validate(answers); err != nil {
		return err
	}
	if invalid := bank.InvalidAnswers(answers); len(invalid) > 0 {
		return &InvalidAnswersError{Indices: invalid}
	}
	return nil
}

func (s *questionnaireService) releaseDedupe(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, key).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to release questionnaire dedupe key")
	}
}

func (s *questionnaireService) alert(ctx context.Context, kind, title string, result models.QuestionnaireResult) {
	if s.alerts == nil {
		return
	}
	_, err := s.alerts.Publish(ctx, dto.NotificationCreateRequest{
		Audience: AdminAudience,
		Type:     kind,
		Title:    title,
		Message:  fmt.Sprintf("%s scored %d%% (grade %s)", result.Name, result.ScorePercent, result.GradeLetter),
		Data: map[string]interface{}{
			"result_id":    result.ID,
			"reference_id": result.ReferenceID,
			"grade":        result.GradeLetter,
		},
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("type", kind).Msg("failed to publish admin notification")
	}
}

func scoreResponse(record questionnaire.SubmissionRecord) dto.QuestionnaireScoreResponse {
	positive := 0
	for index, ok := range record.Classification {
		if ok && strings.TrimSpace(record.Answers[index]) != "" {
			positive++
		}
	}
	return dto.QuestionnaireScoreResponse{
		ScorePercent:  record.ScorePercent,
		Grade:         record.Grade,
		PositiveCount: positive,
		AnsweredCount: answeredCount(record.Answers),
	}
}

func answeredCount(answers questionnaire.AnswerSet) int {
	count := 0
	for _, answer := range answers {
		if strings.TrimSpace(answer) != "" {
			count++
		}
	}
	return count
}

func answersChecksum(record questionnaire.SubmissionRecord) string {
	indices := make([]int, 0, len(record.Answers))
	for index := range record.Answers {
		indices = append(indices, index)
	}
	sort.Ints(indices)

	parts := make([]string, 0, len(indices)+1)
	parts = append(parts, record.Contact.Email)
	for _, index := range indices {
		parts = append(parts, strconv.Itoa(index)+"="+record.Answers[index])
	}
	return computeChecksum(parts...)
}
