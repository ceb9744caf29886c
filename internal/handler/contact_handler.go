package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/vastu-api/internal/dto"
	"github.com/noah-isme/vastu-api/internal/service"
	"github.com/noah-isme/vastu-api/internal/utils"
)

// ContactHandler serves the public contact form.
type ContactHandler struct {
	service service.ContactService
	logger  zerolog.Logger
}

// NewContactHandler constructs a contact handler.
func NewContactHandler(service service.ContactService, logger zerolog.Logger) *ContactHandler {
	return &ContactHandler{
		service: service,
		logger:  logger.With().Str("component", "contact_handler").Logger(),
	}
}

// Register wires contact routes. guards only wrap the submission endpoint.
func (h *ContactHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	router.Get("/services", h.services)
	router.Post("", chain(guards, h.submit)...)
}

func (h *ContactHandler) services(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	return utils.SendSuccess(c, "contact services", dto.ContactServices)
}

// submit accepts JSON or form-encoded bodies so the form also works without javascript.
func (h *ContactHandler) submit(c *fiber.Ctx) error {
	var payload dto.ContactRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	// Bots get the same answer as a malformed body.
	if payload.Honeypot != "" {
		requestLogger(h.logger, c).Warn().Str("ip", c.IP()).Msg("contact honeypot filled")
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	payload.IPAddress = c.IP()

	response, err := h.service.Submit(c.UserContext(), payload)
	switch {
	case err == nil:
		requestLogger(h.logger, c).Info().Str("reference_id", response.ReferenceID).Str("status", response.Status).Msg("contact submission stored")
		return utils.SendSuccess(c, "contact submission accepted", response)
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", validationDetails(err))
	case errors.Is(err, service.ErrContactEmpty):
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", fiber.Map{"message": "required"})
	case errors.Is(err, service.ErrContactSpam):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	case errors.Is(err, service.ErrContactDuplicate):
		return utils.SendError(c, fiber.StatusTooManyRequests, "duplicate submission")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to process contact submission")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to submit contact form")
	}
}
