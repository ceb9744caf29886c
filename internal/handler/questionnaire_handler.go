package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/vastu-api/internal/dto"
	"github.com/noah-isme/vastu-api/internal/questionnaire"
	"github.com/noah-isme/vastu-api/internal/service"
	"github.com/noah-isme/vastu-api/internal/utils"
)

// QuestionnaireHandler serves the public questionnaire.
type QuestionnaireHandler struct {
	service service.QuestionnaireService
	logger  zerolog.Logger
}

// NewQuestionnaireHandler constructs the handler.
func NewQuestionnaireHandler(service service.QuestionnaireService, logger zerolog.Logger) *QuestionnaireHandler {
	return &QuestionnaireHandler{
		service: service,
		logger:  logger.With().Str("component", "questionnaire_handler").Logger(),
	}
}

// Register wires questionnaire routes. guards run before the POST handlers.
func (h *QuestionnaireHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	router.Get("", h.questionnaire)
	router.Post("/submissions", chain(guards, h.submit)...)
	router.Post("/score", chain(guards, h.score)...)
}

func (h *QuestionnaireHandler) questionnaire(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "public, max-age=300")
	return utils.SendSuccess(c, "questionnaire retrieved", h.service.Questionnaire())
}

func (h *QuestionnaireHandler) submit(c *fiber.Ctx) error {
	var payload dto.QuestionnaireSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if payload.Honeypot != "" {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	payload.IPAddress = c.IP()

	response, err := h.service.Submit(c.UserContext(), payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuestionnaireSpam):
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		case errors.Is(err, service.ErrQuestionnaireDuplicate):
			return utils.SendError(c, fiber.StatusTooManyRequests, "duplicate submission")
		case errors.Is(err, questionnaire.ErrSubmission):
			requestLogger(h.logger, c).Warn().Err(err).Str("reference_id", response.ReferenceID).Msg("questionnaire delivery failed")
			return utils.FailWithData(c, fiber.StatusBadGateway, "questionnaire scored but could not be delivered", response)
		}
		return h.answerError(c, err, "failed to submit questionnaire")
	}

	return utils.SendSuccess(c, "questionnaire submitted", response)
}

func (h *QuestionnaireHandler) score(c *fiber.Ctx) error {
	var payload dto.QuestionnaireScoreRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.Preview(c.UserContext(), payload)
	if err != nil {
		return h.answerError(c, err, "failed to score questionnaire")
	}

	return utils.SendSuccess(c, "questionnaire scored", response)
}

func (h *QuestionnaireHandler) answerError(c *fiber.Ctx, err error, fallback string) error {
	var (
		missing *questionnaire.MissingRequiredQuestionsError
		unknown *questionnaire.UnknownQuestionsError
		invalid *service.InvalidAnswersError
	)

	switch {
	case errors.As(err, &missing):
		return utils.Fail(c, fiber.StatusUnprocessableEntity, "required questions unanswered", fiber.Map{
			"missing": h.missingQuestions(missing.Indices),
		})
	case errors.As(err, &unknown):
		return utils.Fail(c, fiber.StatusBadRequest, "answers refer to unknown questions", fiber.Map{
			"unknown": unknown.Indices,
		})
	case errors.As(err, &invalid):
		return utils.Fail(c, fiber.StatusBadRequest, "answers not accepted", fiber.Map{
			"invalid": invalid.Indices,
		})
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", validationDetails(err))
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}

func (h *QuestionnaireHandler) missingQuestions(indices []int) []dto.MissingQuestion {
	texts := make(map[int]string)
	for _, q := range h.service.Questionnaire().Questions {
		texts[q.Index] = q.Text
	}

	missing := make([]dto.MissingQuestion, 0, len(indices))
	for _, index := range indices {
		missing = append(missing, dto.MissingQuestion{Index: index, Text: texts[index]})
	}
	return missing
}
