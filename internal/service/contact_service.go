package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/vastu-api/internal/dto"
	"github.com/noah-isme/vastu-api/internal/models"
	"github.com/noah-isme/vastu-api/internal/observability"
	"github.com/noah-isme/vastu-api/internal/repository"
)

var (
	// ErrContactSpam indicates the honeypot field was filled.
	ErrContactSpam = errors.New("contact submission flagged as spam")
	// ErrContactDuplicate indicates a submission with the same checksum exists recently.
	ErrContactDuplicate = errors.New("duplicate contact submission")
	// ErrContactEmpty indicates the message had no text left after sanitising.
	ErrContactEmpty = errors.New("contact message empty after sanitization")
)

// ContactDelivery defines a transport to deliver contact messages.
type ContactDelivery interface {
	Deliver(ctx context.Context, submission models.ContactSubmission) error
}

// ContactService exposes the contact submission workflow.
type ContactService interface {
	Submit(ctx context.Context, req dto.ContactRequest) (dto.ContactResponse, error)
}

type contactService struct {
	repo      repository.ContactRepository
	cache     *redis.Client
	validator *validator.Validate
	delivery  ContactDelivery
	alerts    NotificationPublisher
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	dedupeTTL time.Duration
	tracer    trace.Tracer
}

// NewContactService constructs a contact submission service. cache and alerts may be nil.
func NewContactService(repo repository.ContactRepository, cache *redis.Client, validate *validator.Validate, delivery ContactDelivery, alerts NotificationPublisher, dedupeTTL time.Duration, logger zerolog.Logger) ContactService {
	if dedupeTTL <= 0 {
		dedupeTTL = 5 * time.Minute
	}
	return &contactService{
		repo:      repo,
		cache:     cache,
		validator: validate,
		delivery:  delivery,
		alerts:    alerts,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "contact_service").Logger(),
		dedupeTTL: dedupeTTL,
		tracer:    otel.Tracer("github.com/noah-isme/vastu-api/internal/service/contact"),
	}
}

func (s *contactService) Submit(ctx context.Context, req dto.ContactRequest) (dto.ContactResponse, error) {
	ctx, span := s.tracer.Start(ctx, "contact.submit")
	defer span.End()

	if req.Honeypot != "" {
		span.SetStatus(codes.Error, "honeypot tripped")
		observability.ContactSubmissions().WithLabelValues("spam").Inc()
		s.logger.Warn().Str("ip", req.IPAddress).Msg("contact honeypot tripped")
		return dto.ContactResponse{}, ErrContactSpam
	}

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.ContactResponse{}, err
	}

	message := s.clean(req.Message)
	if message == "" {
		span.SetStatus(codes.Error, "empty message")
		return dto.ContactResponse{}, ErrContactEmpty
	}

	checksum := computeChecksum(req.Name, req.Email, message)
	span.SetAttributes(attribute.String("contact.checksum", checksum))

	if s.cache != nil {
		key := fmt.Sprintf("contact:dedupe:%s", checksum)
		ok, err := s.cache.SetNX(ctx, key, 1, s.dedupeTTL).Result()
		if err != nil {
			span.RecordError(err)
			return dto.ContactResponse{}, err
		}
		if !ok {
			span.SetStatus(codes.Error, "duplicate submission")
			observability.ContactSubmissions().WithLabelValues("duplicate").Inc()
			return dto.ContactResponse{}, ErrContactDuplicate
		}
	}

	referenceID := uuid.New().String()
	submission := models.ContactSubmission{
		ReferenceID: referenceID,
		Name:        s.clean(req.Name),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:       s.clean(req.Phone),
		Service:     strings.TrimSpace(req.Service),
		Message:     message,
		Source:      s.clean(req.Source),
		Status:      models.ContactStatusQueued,
		Checksum:    checksum,
	}

	if err := s.repo.Create(ctx, &submission); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		observability.ContactSubmissions().WithLabelValues("error").Inc()
		return dto.ContactResponse{}, err
	}

	s.alert(ctx, submission)

	deliveryErr := s.delivery.Deliver(ctx, submission)
	if deliveryErr != nil {
		span.RecordError(deliveryErr)
		s.logger.Warn().Err(deliveryErr).Str("reference_id", referenceID).Msg("contact delivery failed")
		observability.ContactSubmissions().WithLabelValues(models.ContactStatusQueued).Inc()
		return dto.ContactResponse{ReferenceID: referenceID, Status: models.ContactStatusQueued}, nil
	}

	if err := s.repo.UpdateStatus(ctx, submission.ID, models.ContactStatusSent); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "status update failed")
		observability.ContactSubmissions().WithLabelValues("error").Inc()
		return dto.ContactResponse{}, err
	}

	observability.ContactSubmissions().WithLabelValues(models.ContactStatusSent).Inc()

	s.logger.Info().
		Str("reference_id", referenceID).
		Str("email", maskEmail(submission.Email)).
		Str("service", submission.Service).
		Str("ip", req.IPAddress).
		Msg("contact submission processed")
	span.SetStatus(codes.Ok, "delivered")

	return dto.ContactResponse{ReferenceID: referenceID, Status: models.ContactStatusSent}, nil
}

func (s *contactService) alert(ctx context.Context, submission models.ContactSubmission) {
	if s.alerts == nil {
		return
	}
	topic := submission.Service
	if topic == "" {
		topic = "general"
	}
	_, err := s.alerts.Publish(ctx, dto.NotificationCreateRequest{
		Audience: AdminAudience,
		Type:     models.NotificationNewContact,
		Title:    "New contact enquiry",
		Message:  fmt.Sprintf("%s asked about %s", submission.Name, topic),
		Data: map[string]interface{}{
			"contact_id":   submission.ID,
			"reference_id": submission.ReferenceID,
		},
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish contact notification")
	}
}

func (s *contactService) clean(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(value)))
}
