package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/vastu-api/internal/dto"
	"github.com/noah-isme/vastu-api/internal/handler"
	"github.com/noah-isme/vastu-api/internal/questionnaire"
	"github.com/noah-isme/vastu-api/internal/service"
)

type mockQuestionnaireService struct {
	bank        *questionnaire.Bank
	lastSubmit  dto.QuestionnaireSubmitRequest
	lastPreview dto.QuestionnaireScoreRequest
	submitCalls int
	submit      dto.QuestionnaireSubmitResponse
	preview     dto.QuestionnaireScoreResponse
	err         error
}

func newMockQuestionnaireService() *mockQuestionnaireService {
	return &mockQuestionnaireService{bank: questionnaire.DefaultBank()}
}

func (m *mockQuestionnaireService) Questionnaire() dto.QuestionnaireResponse {
	return dto.NewQuestionnaireResponse(m.bank)
}

func (m *mockQuestionnaireService) Preview(_ context.Context, req dto.QuestionnaireScoreRequest) (dto.QuestionnaireScoreResponse, error) {
	m.lastPreview = req
	if m.err != nil {
		return dto.QuestionnaireScoreResponse{}, m.err
	}
	return m.preview, nil
}

func (m *mockQuestionnaireService) Submit(_ context.Context, req dto.QuestionnaireSubmitRequest) (dto.QuestionnaireSubmitResponse, error) {
	m.submitCalls++
	m.lastSubmit = req
	return m.submit, m.err
}

func newQuestionnaireApp(svc service.QuestionnaireService) *fiber.App {
	app := fiber.New()
	handler.NewQuestionnaireHandler(svc, testLogger).Register(app.Group("/api/v1/questionnaire"))
	return app
}

func submitPayload() map[string]interface{} {
	return map[string]interface{}{
		"name":    "Meera",
		"email":   "meera@example.com",
		"phone":   "+91 98765 43210",
		"answers": map[string]string{"1": "East", "3": "Yes"},
	}
}

func TestQuestionnaireHandler_Questionnaire(t *testing.T) {
	svc := newMockQuestionnaireService()
	app := newQuestionnaireApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/questionnaire", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body envelope[dto.QuestionnaireResponse]
	decodeResponse(t, resp, &body)
	assert.Len(t, body.Data.Questions, svc.bank.Len())
	assert.Equal(t, svc.bank.RequiredCount(), body.Data.RequiredCount)
	assert.Len(t, body.Data.Grades, 5)
}

func TestQuestionnaireHandler_SubmitSuccess(t *testing.T) {
	svc := newMockQuestionnaireService()
	grade := questionnaire.GradeFor(75)
	svc.submit = dto.QuestionnaireSubmitResponse{ReferenceID: "ref-9", Status: "sent", ScorePercent: 75, Grade: grade}
	app := newQuestionnaireApp(svc)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/questionnaire/submissions", submitPayload()))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body envelope[dto.QuestionnaireSubmitResponse]
	decodeResponse(t, resp, &body)
	assert.True(t, body.Success)
	assert.Equal(t, "ref-9", body.Data.ReferenceID)
	assert.Equal(t, "B", body.Data.Grade.Letter)
	assert.Equal(t, "East", svc.lastSubmit.Answers[1])
	assert.Equal(t, "Yes", svc.lastSubmit.Answers[3])
	assert.NotEmpty(t, svc.lastSubmit.IPAddress)
}

func TestQuestionnaireHandler_MissingRequiredListsQuestions(t *testing.T) {
	svc := newMockQuestionnaireService()
	svc.err = &questionnaire.MissingRequiredQuestionsError{Indices: []int{1, 4}}
	app := newQuestionnaireApp(svc)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/questionnaire/submissions", submitPayload()))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	var body struct {
		Success bool `json:"success"`
		Details struct {
			Missing []dto.MissingQuestion `json:"missing"`
		} `json:"details"`
	}
	decodeResponse(t, resp, &body)

	require.False(t, body.Success)
	require.Len(t, body.Details.Missing, 2)
	first, ok := svc.bank.Question(1)
	require.True(t, ok)
	assert.Equal(t, 1, body.Details.Missing[0].Index)
	assert.Equal(t, first.Text, body.Details.Missing[0].Text)
	assert.Equal(t, 4, body.Details.Missing[1].Index)
}

func TestQuestionnaireHandler_DeliveryFailureKeepsScore(t *testing.T) {
	svc := newMockQuestionnaireService()
	grade := questionnaire.GradeFor(50)
	svc.submit = dto.QuestionnaireSubmitResponse{ReferenceID: "ref-2", Status: "failed", ScorePercent: 50, Grade: grade}
	svc.err = &questionnaire.SubmissionError{Err: errors.New("smtp down")}
	app := newQuestionnaireApp(svc)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/questionnaire/submissions", submitPayload()))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadGateway, resp.StatusCode)

	var body envelope[dto.QuestionnaireSubmitResponse]
	decodeResponse(t, resp, &body)
	assert.False(t, body.Success)
	assert.Equal(t, 50, body.Data.ScorePercent)
	assert.Equal(t, "C", body.Data.Grade.Letter)
	assert.Equal(t, "failed", body.Data.Status)
}

func TestQuestionnaireHandler_SubmitErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
		detailKey  string
	}{
		{name: "unknown", err: &questionnaire.UnknownQuestionsError{Indices: []int{99}}, statusCode: fiber.StatusBadRequest, detailKey: "unknown"},
		{name: "invalid", err: &service.InvalidAnswersError{Indices: []int{3}}, statusCode: fiber.StatusBadRequest, detailKey: "invalid"},
		{name: "duplicate", err: service.ErrQuestionnaireDuplicate, statusCode: fiber.StatusTooManyRequests},
		{name: "spam", err: service.ErrQuestionnaireSpam, statusCode: fiber.StatusBadRequest},
		{name: "wrapped", err: fmt.Errorf("persist: %w", errors.New("db down")), statusCode: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newMockQuestionnaireService()
			svc.err = tc.err
			app := newQuestionnaireApp(svc)

			resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/questionnaire/submissions", submitPayload()))
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)

			var body envelope[interface{}]
			decodeResponse(t, resp, &body)
			if tc.detailKey != "" {
				assert.Contains(t, body.Details, tc.detailKey)
			}
		})
	}
}

func TestQuestionnaireHandler_HoneypotShortCircuits(t *testing.T) {
	svc := newMockQuestionnaireService()
	app := newQuestionnaireApp(svc)

	payload := submitPayload()
	payload["_note"] = "http://spam.example"
	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/questionnaire/submissions", payload))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Zero(t, svc.submitCalls)
}

func TestQuestionnaireHandler_ScorePreview(t *testing.T) {
	svc := newMockQuestionnaireService()
	grade := questionnaire.GradeFor(88)
	svc.preview = dto.QuestionnaireScoreResponse{ScorePercent: 88, Grade: grade, PositiveCount: 32, AnsweredCount: 36}
	app := newQuestionnaireApp(svc)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/questionnaire/score", map[string]interface{}{
		"answers": map[string]string{"1": "East"},
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body envelope[dto.QuestionnaireScoreResponse]
	decodeResponse(t, resp, &body)
	assert.Equal(t, "A", body.Data.Grade.Letter)
	assert.Equal(t, "East", svc.lastPreview.Answers[1])
}

func TestQuestionnaireHandler_MalformedBody(t *testing.T) {
	app := newQuestionnaireApp(newMockQuestionnaireService())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/questionnaire/score", nil)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
