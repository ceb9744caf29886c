package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/vastu-api/internal/dto"
	"github.com/noah-isme/vastu-api/internal/service"
	"github.com/noah-isme/vastu-api/internal/utils"
)

// StudentHandler serves the public student showcase.
type StudentHandler struct {
	service service.StudentProfileService
	logger  zerolog.Logger
}

// NewStudentHandler constructs the public handler.
func NewStudentHandler(service service.StudentProfileService, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		service: service,
		logger:  logger.With().Str("component", "student_handler").Logger(),
	}
}

// Register wires the public routes.
func (h *StudentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:slug", h.get)
}

func (h *StudentHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := parsePagination(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.ListPublished(c.UserContext(), dto.StudentProfileListRequest{
		Page:     page,
		PageSize: pageSize,
		Search:   c.Query("search"),
		City:     c.Query("city"),
	})
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list student profiles")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list students")
	}

	return utils.OK(c, result.Items, "students retrieved", fiber.Map{"pagination": result.Pagination})
}

func (h *StudentHandler) get(c *fiber.Ctx) error {
	profile, err := h.service.GetPublished(c.UserContext(), c.Params("slug"))
	if err != nil {
		if errors.Is(err, service.ErrStudentProfileNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "student not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to fetch student profile")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch student")
	}

	return utils.OK(c, profile, "student retrieved", nil)
}

// AdminStudentHandler manages student profiles for administrators.
type AdminStudentHandler struct {
	service service.StudentProfileService
	logger  zerolog.Logger
}

// NewAdminStudentHandler constructs the admin handler.
func NewAdminStudentHandler(service service.StudentProfileService, logger zerolog.Logger) *AdminStudentHandler {
	return &AdminStudentHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_student_handler").Logger(),
	}
}

// Register attaches student admin routes to the router group.
func (h *AdminStudentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
}

func (h *AdminStudentHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := parsePagination(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	req := dto.StudentProfileListRequest{
		Page:     page,
		PageSize: pageSize,
		Search:   c.Query("search"),
		Status:   c.Query("status"),
		City:     c.Query("city"),
	}

	result, err := h.service.List(c.UserContext(), req)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list students")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list students")
	}

	meta := fiber.Map{
		"pagination": result.Pagination,
		"filters": fiber.Map{
			"search": req.Search,
			"status": req.Status,
			"city":   req.City,
		},
	}
	return utils.OK(c, result.Items, "students retrieved", meta)
}

func (h *AdminStudentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	profile, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return h.handleError(c, err, "failed to fetch student")
	}

	return utils.OK(c, profile, "student retrieved", nil)
}

func (h *AdminStudentHandler) create(c *fiber.Ctx) error {
	payload, err := parseStudentForm(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	profile, err := h.service.Create(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err, "failed to create student")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "student created", profile)
}

func (h *AdminStudentHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	payload, err := parseStudentForm(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	profile, err := h.service.Update(c.UserContext(), activityActorFromContext(c), id, payload)
	if err != nil {
		return h.handleError(c, err, "failed to update student")
	}

	return utils.SendSuccess(c, "student updated", profile)
}

func (h *AdminStudentHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), activityActorFromContext(c), id); err != nil {
		return h.handleError(c, err, "failed to delete student")
	}

	return utils.SendSuccess(c, "student deleted", fiber.Map{"id": id})
}

func (h *AdminStudentHandler) handleError(c *fiber.Ctx, err error, message string) error {
	switch {
	case errors.Is(err, service.ErrStudentProfileNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", validationDetails(err))
	case errors.Is(err, service.ErrUploadTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrUploadTypeNotAllowed):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUploadStorageDisabled):
		return utils.SendError(c, fiber.StatusServiceUnavailable, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(message)
		return utils.SendError(c, fiber.StatusInternalServerError, message)
	}
}

// parseStudentForm accepts either a JSON body or a multipart form whose repeated
// groups are JSON encoded fields and whose photo is a file part.
func parseStudentForm(c *fiber.Ctx) (dto.StudentProfileRequest, error) {
	var payload dto.StudentProfileRequest
	if c.Is("json") {
		if err := c.BodyParser(&payload); err != nil {
			return payload, errors.New("invalid payload")
		}
		return payload, nil
	}

	payload = dto.StudentProfileRequest{
		Name:     c.FormValue("name"),
		Email:    c.FormValue("email"),
		Phone:    c.FormValue("phone"),
		Headline: c.FormValue("headline"),
		Bio:      c.FormValue("bio"),
		City:     c.FormValue("city"),
		Status:   strings.ToLower(strings.TrimSpace(c.FormValue("status"))),
	}

	if raw := strings.TrimSpace(c.FormValue("remove_photo")); raw != "" {
		remove, err := strconv.ParseBool(raw)
		if err != nil {
			return payload, errors.New("invalid remove_photo")
		}
		payload.RemovePhoto = remove
	}

	if err := decodeFormJSON(c, "education", &payload.Education); err != nil {
		return payload, err
	}
	if err := decodeFormJSON(c, "projects", &payload.Projects); err != nil {
		return payload, err
	}
	if err := decodeFormJSON(c, "testimonials", &payload.Testimonials); err != nil {
		return payload, err
	}

	file, err := c.FormFile("photo")
	if err != nil {
		return payload, nil
	}
	reader, err := file.Open()
	if err != nil {
		return payload, errors.New("unable to read photo")
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return payload, errors.New("unable to read photo")
	}
	payload.Photo = &dto.PhotoUpload{FileName: file.Filename, Content: content}

	return payload, nil
}

func decodeFormJSON(c *fiber.Ctx, field string, target interface{}) error {
	raw := strings.TrimSpace(c.FormValue(field))
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return fmt.Errorf("invalid %s", field)
	}
	return nil
}
