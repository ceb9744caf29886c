package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/vastu-api/internal/dto"
	"github.com/noah-isme/vastu-api/internal/models"
	"github.com/noah-isme/vastu-api/internal/repository"
)

const maxSlugAttempts = 20

// ErrStudentProfileNotFound indicates the profile does not exist or is not visible.
var ErrStudentProfileNotFound = errors.New("student profile not found")

// StudentProfileService manages the student showcase.
type StudentProfileService interface {
	ListPublished(ctx context.Context, req dto.StudentProfileListRequest) (dto.StudentProfileListResponse, error)
	GetPublished(ctx context.Context, slug string) (dto.StudentProfileResponse, error)
	List(ctx context.Context, req dto.StudentProfileListRequest) (dto.StudentProfileListResponse, error)
	Get(ctx context.Context, id uint) (dto.StudentProfileResponse, error)
	Create(ctx context.Context, actor ActivityActor, req dto.StudentProfileRequest) (dto.StudentProfileResponse, error)
	Update(ctx context.Context, actor ActivityActor, id uint, req dto.StudentProfileRequest) (dto.StudentProfileResponse, error)
	Delete(ctx context.Context, actor ActivityActor, id uint) error
}

type studentProfileService struct {
	repo      repository.StudentProfileRepository
	uploads   UploadService
	validator *validator.Validate
	activity  ActivityRecorder
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewStudentProfileService constructs the student profile service.
func NewStudentProfileService(repo repository.StudentProfileRepository, uploads UploadService, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) StudentProfileService {
	return &studentProfileService{
		repo:      repo,
		uploads:   uploads,
		validator: validate,
		activity:  activity,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "student_profile_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/vastu-api/internal/service/student_profile"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *studentProfileService) ListPublished(ctx context.Context, req dto.StudentProfileListRequest) (dto.StudentProfileListResponse, error) {
	req.Status = models.StudentStatusPublished
	return s.list(ctx, req, false)
}

func (s *studentProfileService) GetPublished(ctx context.Context, slug string) (dto.StudentProfileResponse, error) {
	profile, err := s.repo.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return dto.StudentProfileResponse{}, mapStudentError(err)
	}
	if profile.Status != models.StudentStatusPublished {
		return dto.StudentProfileResponse{}, ErrStudentProfileNotFound
	}
	return dto.NewStudentProfileResponse(profile, false), nil
}

func (s *studentProfileService) List(ctx context.Context, req dto.StudentProfileListRequest) (dto.StudentProfileListResponse, error) {
	return s.list(ctx, req, true)
}

func (s *studentProfileService) Get(ctx context.Context, id uint) (dto.StudentProfileResponse, error) {
	profile, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.StudentProfileResponse{}, mapStudentError(err)
	}
	return dto.NewStudentProfileResponse(profile, true), nil
}

func (s *studentProfileService) Create(ctx context.Context, actor ActivityActor, req dto.StudentProfileRequest) (dto.StudentProfileResponse, error) {
	ctx, span := s.tracer.Start(ctx, "student_profile.create")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		return dto.StudentProfileResponse{}, err
	}

	profile := models.StudentProfile{Status: models.StudentStatusDraft}
	s.apply(&profile, req)

	slug, err := s.uniqueSlug(ctx, profile.Name, 0)
	if err != nil {
		return dto.StudentProfileResponse{}, err
	}
	profile.Slug = slug

	if req.Photo != nil {
		if err := s.attachPhoto(ctx, actor, &profile, *req.Photo); err != nil {
			span.RecordError(err)
			return dto.StudentProfileResponse{}, err
		}
	}

	if err := s.repo.Create(ctx, &profile); err != nil {
		span.RecordError(err)
		s.discardPhoto(ctx, profile.PhotoPublicID)
		return dto.StudentProfileResponse{}, err
	}
	span.SetAttributes(attribute.Int("student_profile.id", int(profile.ID)))

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     ActionStudentCreate,
		EntityType: "student_profile",
		EntityID:   ptrUint(profile.ID),
		Metadata:   map[string]interface{}{"slug": profile.Slug, "status": profile.Status},
	})
	s.logger.Info().Uint("profile_id", profile.ID).Str("slug", profile.Slug).Msg("student profile created")

	return dto.NewStudentProfileResponse(profile, true), nil
}

func (s *studentProfileService) Update(ctx context.Context, actor ActivityActor, id uint, req dto.StudentProfileRequest) (dto.StudentProfileResponse, error) {
	ctx, span := s.tracer.Start(ctx, "student_profile.update", trace.WithAttributes(attribute.Int("student_profile.id", int(id))))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		return dto.StudentProfileResponse{}, err
	}

	profile, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.StudentProfileResponse{}, mapStudentError(err)
	}

	previousName := profile.Name
	previousPhoto := profile.PhotoPublicID
	s.apply(&profile, req)

	if !strings.EqualFold(previousName, profile.Name) {
		slug, err := s.uniqueSlug(ctx, profile.Name, profile.ID)
		if err != nil {
			return dto.StudentProfileResponse{}, err
		}
		profile.Slug = slug
	}

	switch {
	case req.Photo != nil:
		if err := s.attachPhoto(ctx, actor, &profile, *req.Photo); err != nil {
			span.RecordError(err)
			return dto.StudentProfileResponse{}, err
		}
	case req.RemovePhoto:
		profile.PhotoURL = ""
		profile.PhotoPublicID = ""
	}

	if err := s.repo.Save(ctx, &profile); err != nil {
		span.RecordError(err)
		if profile.PhotoPublicID != previousPhoto {
			s.discardPhoto(ctx, profile.PhotoPublicID)
		}
		return dto.StudentProfileResponse{}, err
	}

	if previousPhoto != "" && previousPhoto != profile.PhotoPublicID {
		s.discardPhoto(ctx, previousPhoto)
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     ActionStudentUpdate,
		EntityType: "student_profile",
		EntityID:   ptrUint(profile.ID),
		Metadata: map[string]interface{}{
			"slug":          profile.Slug,
			"status":        profile.Status,
			"photo_changed": previousPhoto != profile.PhotoPublicID,
		},
	})

	return dto.NewStudentProfileResponse(profile, true), nil
}

func (s *studentProfileService) Delete(ctx context.Context, actor ActivityActor, id uint) error {
	profile, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return mapStudentError(err)
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return mapStudentError(err)
	}
	s.discardPhoto(ctx, profile.PhotoPublicID)

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     ActionStudentDelete,
		EntityType: "student_profile",
		EntityID:   ptrUint(id),
		Metadata:   map[string]interface{}{"slug": profile.Slug},
	})
	s.logger.Info().Uint("profile_id", id).Uint("actor_id", actor.ID).Msg("student profile deleted")
	return nil
}

func (s *studentProfileService) list(ctx context.Context, req dto.StudentProfileListRequest, includeContact bool) (dto.StudentProfileListResponse, error) {
	filter := repository.StudentProfileFilter{
		Search:   strings.TrimSpace(req.Search),
		Status:   strings.ToLower(strings.TrimSpace(req.Status)),
		City:     strings.TrimSpace(req.City),
		Page:     normalizePage(req.Page),
		PageSize: clampPageSize(req.PageSize),
	}

	profiles, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.StudentProfileListResponse{}, err
	}

	items := make([]dto.StudentProfileResponse, 0, len(profiles))
	for _, profile := range profiles {
		items = append(items, dto.NewStudentProfileResponse(profile, includeContact))
	}

	return dto.StudentProfileListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

// apply copies sanitised form values onto the model.
func (s *studentProfileService) apply(profile *models.StudentProfile, req dto.StudentProfileRequest) {
	profile.Name = s.clean(req.Name)
	profile.Email = strings.ToLower(strings.TrimSpace(req.Email))
	profile.Phone = s.clean(req.Phone)
	profile.Headline = s.clean(req.Headline)
	profile.Bio = s.clean(req.Bio)
	profile.City = s.clean(req.City)

	if status := strings.ToLower(strings.TrimSpace(req.Status)); status != "" {
		profile.Status = status
	}
	if profile.Status == models.StudentStatusPublished && profile.PublishedAt == nil {
		now := s.now()
		profile.PublishedAt = &now
	}

	education := make([]models.EducationEntry, 0, len(req.Education))
	for _, entry := range req.Education {
		entry.Institution = s.clean(entry.Institution)
		entry.Course = s.clean(entry.Course)
		entry.Year = s.clean(entry.Year)
		if entry.Institution == "" && entry.Course == "" {
			continue
		}
		education = append(education, entry)
	}
	profile.Education = datatypes.NewJSONSlice(education)

	projects := make([]models.ProjectEntry, 0, len(req.Projects))
	for _, entry := range req.Projects {
		entry.Title = s.clean(entry.Title)
		entry.Location = s.clean(entry.Location)
		entry.Description = s.clean(entry.Description)
		if entry.Title == "" {
			continue
		}
		projects = append(projects, entry)
	}
	profile.Projects = datatypes.NewJSONSlice(projects)

	testimonials := make([]models.Testimonial, 0, len(req.Testimonials))
	for _, entry := range req.Testimonials {
		entry.Author = s.clean(entry.Author)
		entry.Quote = s.clean(entry.Quote)
		if entry.Quote == "" {
			continue
		}
		testimonials = append(testimonials, entry)
	}
	profile.Testimonials = datatypes.NewJSONSlice(testimonials)
}

func (s *studentProfileService) attachPhoto(ctx context.Context, actor ActivityActor, profile *models.StudentProfile, photo dto.PhotoUpload) error {
	if s.uploads == nil {
		return ErrUploadStorageDisabled
	}
	var adminID *uint
	if actor.ID != 0 {
		adminID = ptrUint(actor.ID)
	}
	stored, err := s.uploads.StorePhoto(ctx, photo, adminID, UploadPurposeStudentPhoto)
	if err != nil {
		return err
	}
	profile.PhotoURL = stored.URL
	profile.PhotoPublicID = stored.PublicID
	return nil
}

func (s *studentProfileService) discardPhoto(ctx context.Context, publicID string) {
	if s.uploads == nil || publicID == "" {
		return
	}
	if err := s.uploads.Remove(ctx, publicID); err != nil {
		s.logger.Warn().Err(err).Str("public_id", publicID).Msg("stale profile photo left in storage")
	}
}

func (s *studentProfileService) uniqueSlug(ctx context.Context, name string, excludeID uint) (string, error) {
	base := slugify(name)
	candidate := base
	for attempt := 2; attempt <= maxSlugAttempts+1; attempt++ {
		exists, err := s.repo.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, attempt)
	}
	return "", fmt.Errorf("no free slug for %q", base)
}

func (s *studentProfileService) clean(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(value)))
}

func slugify(value string) string {
	base := strings.ToLower(strings.TrimSpace(value))
	slug := make([]rune, 0, len(base))
	for _, r := range base {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			slug = append(slug, r)
		case r == ' ' || r == '-' || r == '_' || r == '.':
			if len(slug) == 0 || slug[len(slug)-1] == '-' {
				continue
			}
			slug = append(slug, '-')
		}
	}
	trimmed := strings.Trim(string(slug), "-")
	if trimmed == "" {
		trimmed = "student"
	}
	return trimmed
}

func mapStudentError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrStudentProfileNotFound
	}
	return err
}
