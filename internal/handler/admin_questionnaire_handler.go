package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/vastu-api/internal/dto"
	"github.com/noah-isme/vastu-api/internal/questionnaire"
	"github.com/noah-isme/vastu-api/internal/service"
	"github.com/noah-isme/vastu-api/internal/utils"
)

// AdminQuestionnaireHandler exposes stored questionnaire results.
type AdminQuestionnaireHandler struct {
	service service.AdminQuestionnaireService
	logger  zerolog.Logger
}

// NewAdminQuestionnaireHandler constructs the handler.
func NewAdminQuestionnaireHandler(service service.AdminQuestionnaireService, logger zerolog.Logger) *AdminQuestionnaireHandler {
	return &AdminQuestionnaireHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_questionnaire_handler").Logger(),
	}
}

// Register attaches routes.
func (h *AdminQuestionnaireHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("/:id/resend", h.resend)
}

func (h *AdminQuestionnaireHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := parsePagination(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	grade := strings.ToUpper(strings.TrimSpace(c.Query("grade")))
	if grade != "" {
		if _, ok := questionnaire.GradeByLetter(grade); !ok {
			return utils.Fail(c, fiber.StatusBadRequest, "invalid grade filter", fiber.Map{"grade": "oneof=A B C D E"})
		}
	}

	req := dto.AdminQuestionnaireListRequest{
		Page:     page,
		PageSize: pageSize,
		Search:   c.Query("search"),
		Grade:    grade,
		Status:   c.Query("status"),
	}

	result, err := h.service.List(c.UserContext(), req)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list questionnaire results")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list questionnaire results")
	}

	meta := fiber.Map{
		"pagination": result.Pagination,
		"filters": fiber.Map{
			"search": req.Search,
			"grade":  req.Grade,
			"status": req.Status,
		},
	}

	return utils.OK(c, result.Items, "questionnaire results retrieved", meta)
}

func (h *AdminQuestionnaireHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, service.ErrQuestionnaireResultNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "questionnaire result not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Uint("result_id", id).Msg("failed to fetch questionnaire result")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch questionnaire result")
	}

	return utils.OK(c, result, "questionnaire result retrieved", nil)
}

func (h *AdminQuestionnaireHandler) resend(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Resend(c.UserContext(), activityActorFromContext(c), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuestionnaireResultNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "questionnaire result not found")
		case errors.Is(err, questionnaire.ErrSubmission):
			return utils.FailWithData(c, fiber.StatusBadGateway, "questionnaire could not be delivered", result)
		default:
			requestLogger(h.logger, c).Error().Err(err).Uint("result_id", id).Msg("failed to resend questionnaire result")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to resend questionnaire result")
		}
	}

	return utils.SendSuccess(c, "questionnaire result resent", result)
}
