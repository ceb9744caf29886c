package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/vastu-api/internal/dto"
	"github.com/noah-isme/vastu-api/internal/middleware"
	"github.com/noah-isme/vastu-api/internal/service"
	"github.com/noah-isme/vastu-api/internal/utils"
)

// AuthHandler handles admin authentication.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register wires the public login route. guards run before the handler.
func (h *AuthHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	router.Post("/login", chain(guards, h.login)...)
}

// RegisterAdmin wires routes that require an authenticated administrator.
func (h *AuthHandler) RegisterAdmin(router fiber.Router) {
	router.Get("/me", middleware.WithAuth(h.me, middleware.AuthOptions{Role: middleware.AuthRoleAdmin}))
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.AdminLoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.Login(c.UserContext(), payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", validationDetails(err))
		case errors.Is(err, service.ErrInvalidCredentials):
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid email or password")
		case errors.Is(err, service.ErrAdminInactive):
			return utils.SendError(c, fiber.StatusForbidden, "account disabled")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("login failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "login failed")
		}
	}

	return utils.SendSuccess(c, "login successful", response)
}

func (h *AuthHandler) me(c *fiber.Ctx) error {
	admin, err := h.service.Me(c.UserContext(), userIDFromContext(c))
	if err != nil {
		if errors.Is(err, service.ErrAdminNotFound) || errors.Is(err, service.ErrAdminInactive) {
			return utils.SendError(c, fiber.StatusUnauthorized, "admin not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to load admin profile")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load profile")
	}

	return utils.SendSuccess(c, "admin profile", admin)
}
