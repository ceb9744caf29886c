package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/vastu-api/internal/dto"
	"github.com/noah-isme/vastu-api/internal/repository"
)

// ErrAdminContactNotFound indicates submission missing.
var ErrAdminContactNotFound = errors.New("contact submission not found")

// AdminContactService exposes the contact inbox to administrators.
type AdminContactService interface {
	List(ctx context.Context, req dto.AdminContactListRequest) (dto.AdminContactListResponse, error)
	Get(ctx context.Context, id uint) (dto.AdminContactResponse, error)
	MarkRead(ctx context.Context, actor ActivityActor, id uint) (dto.AdminContactResponse, error)
	Delete(ctx context.Context, actor ActivityActor, id uint) error
}

type adminContactService struct {
	repo     repository.ContactRepository
	activity ActivityRecorder
	logger   zerolog.Logger
	now      func() time.Time
}

// NewAdminContactService constructs the contact admin service.
func NewAdminContactService(repo repository.ContactRepository, activity ActivityRecorder, logger zerolog.Logger) AdminContactService {
	return &adminContactService{
		repo:     repo,
		activity: activity,
		logger:   logger.With().Str("component", "admin_contact_service").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *adminContactService) List(ctx context.Context, req dto.AdminContactListRequest) (dto.AdminContactListResponse, error) {
	filter := repository.ContactFilter{
		Search:   strings.TrimSpace(req.Search),
		Service:  strings.TrimSpace(req.Service),
		Unread:   req.Unread,
		Page:     normalizePage(req.Page),
		PageSize: clampPageSize(req.PageSize),
	}

	submissions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.AdminContactListResponse{}, err
	}

	items := make([]dto.AdminContactResponse, 0, len(submissions))
	for _, submission := range submissions {
		items = append(items, dto.NewAdminContactResponse(submission))
	}

	return dto.AdminContactListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

func (s *adminContactService) Get(ctx context.Context, id uint) (dto.AdminContactResponse, error) {
	submission, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.AdminContactResponse{}, s.mapError(err)
	}
	return dto.NewAdminContactResponse(submission), nil
}

func (s *adminContactService) MarkRead(ctx context.Context, actor ActivityActor, id uint) (dto.AdminContactResponse, error) {
	submission, err := s.repo.MarkRead(ctx, id, s.now())
	if err != nil {
		return dto.AdminContactResponse{}, s.mapError(err)
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     ActionContactRead,
		EntityType: "contact_submission",
		EntityID:   ptrUint(submission.ID),
	})
	return dto.NewAdminContactResponse(submission), nil
}

func (s *adminContactService) Delete(ctx context.Context, actor ActivityActor, id uint) error {
	submission, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return s.mapError(err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapError(err)
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     ActionContactDelete,
		EntityType: "contact_submission",
		EntityID:   ptrUint(id),
		Metadata: map[string]interface{}{
			"reference_id": submission.ReferenceID,
			"email":        submission.Email,
		},
	})
	s.logger.Info().Uint("contact_id", id).Uint("actor_id", actor.ID).Msg("contact submission deleted")
	return nil
}

func (s *adminContactService) mapError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAdminContactNotFound
	}
	return err
}
