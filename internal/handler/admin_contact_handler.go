package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/vastu-api/internal/dto"
	"github.com/noah-isme/vastu-api/internal/service"
	"github.com/noah-isme/vastu-api/internal/utils"
)

// AdminContactHandler exposes admin contact endpoints.
type AdminContactHandler struct {
	service service.AdminContactService
	logger  zerolog.Logger
}

// NewAdminContactHandler constructs the handler.
func NewAdminContactHandler(service service.AdminContactService, logger zerolog.Logger) *AdminContactHandler {
	return &AdminContactHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_contact_handler").Logger(),
	}
}

// Register attaches routes.
func (h *AdminContactHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Patch("/:id/read", h.markRead)
	router.Delete("/:id", h.delete)
}

func (h *AdminContactHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := parsePagination(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	req := dto.AdminContactListRequest{
		Page:     page,
		PageSize: pageSize,
		Search:   c.Query("search"),
		Service:  c.Query("service"),
		Unread:   parseQueryBool(c, "unread"),
	}

	result, err := h.service.List(c.UserContext(), req)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list contact submissions")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list contacts")
	}

	meta := fiber.Map{
		"pagination": result.Pagination,
		"filters": fiber.Map{
			"search":  req.Search,
			"service": req.Service,
			"unread":  req.Unread,
		},
	}

	return utils.OK(c, result.Items, "contact submissions retrieved", meta)
}

func (h *AdminContactHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err, id, "failed to fetch contact submission")
	}

	return utils.OK(c, submission, "contact submission retrieved", nil)
}

func (h *AdminContactHandler) markRead(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.MarkRead(c.UserContext(), activityActorFromContext(c), id)
	if err != nil {
		return h.fail(c, err, id, "failed to update contact submission")
	}

	return utils.SendSuccess(c, "contact submission marked as read", submission)
}

func (h *AdminContactHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), activityActorFromContext(c), id); err != nil {
		return h.fail(c, err, id, "failed to delete contact submission")
	}

	return utils.SendSuccess(c, "contact submission deleted", fiber.Map{"id": id})
}

func (h *AdminContactHandler) fail(c *fiber.Ctx, err error, id uint, message string) error {
	if errors.Is(err, service.ErrAdminContactNotFound) {
		return utils.SendError(c, fiber.StatusNotFound, "contact submission not found")
	}
	requestLogger(h.logger, c).Error().Err(err).Uint("contact_id", id).Msg(message)
	return utils.SendError(c, fiber.StatusInternalServerError, message)
}
