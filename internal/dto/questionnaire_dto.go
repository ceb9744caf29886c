package dto

import (
	"time"

	"github.com/noah-isme/vastu-api/internal/models"
	"github.com/noah-isme/vastu-api/internal/questionnaire"
)

// QuestionnaireSubmitRequest is the public questionnaire payload. Answers are keyed by question index.
type QuestionnaireSubmitRequest struct {
	Name      string         `json:"name" validate:"required,min=2,max=120"`
	Email     string         `json:"email" validate:"required,email,max=160"`
	Phone     string         `json:"phone" validate:"omitempty,min=6,max=32"`
	Answers   map[int]string `json:"answers" validate:"required,dive,max=1000"`
	Honeypot  string         `json:"_note"`
	IPAddress string         `json:"-"`
}

// QuestionnaireScoreRequest previews a score without contact details.
type QuestionnaireScoreRequest struct {
	Answers map[int]string `json:"answers" validate:"required,dive,max=1000"`
}

// QuestionResponse describes one question of the bank.
type QuestionResponse struct {
	Index    int      `json:"index"`
	Section  string   `json:"section"`
	Text     string   `json:"text"`
	Kind     string   `json:"kind"`
	Options  []string `json:"options,omitempty"`
	Optional bool     `json:"optional"`
}

// QuestionnaireResponse lists the question bank and grade bands.
type QuestionnaireResponse struct {
	Sections      []string              `json:"sections"`
	Questions     []QuestionResponse    `json:"questions"`
	RequiredCount int                   `json:"required_count"`
	Grades        []questionnaire.Grade `json:"grades"`
}

// NewQuestionnaireResponse serializes a question bank.
func NewQuestionnaireResponse(bank *questionnaire.Bank) QuestionnaireResponse {
	questions := make([]QuestionResponse, 0, bank.Len())
	for _, q := range bank.Questions() {
		questions = append(questions, QuestionResponse{
			Index:    q.Index,
			Section:  q.Section,
			Text:     q.Text,
			Kind:     string(q.Kind),
			Options:  q.Options,
			Optional: q.Optional,
		})
	}
	return QuestionnaireResponse{
		Sections:      bank.Sections(),
		Questions:     questions,
		RequiredCount: bank.RequiredCount(),
		Grades:        questionnaire.Grades(),
	}
}

// MissingQuestion points the respondent to a required question left blank.
type MissingQuestion struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// QuestionnaireScoreResponse carries a computed score.
type QuestionnaireScoreResponse struct {
	ScorePercent  int                 `json:"score_percent"`
	Grade         questionnaire.Grade `json:"grade"`
	PositiveCount int                 `json:"positive_count"`
	AnsweredCount int                 `json:"answered_count"`
}

// QuestionnaireSubmitResponse is returned after a submission is processed.
type QuestionnaireSubmitResponse struct {
	ReferenceID  string              `json:"reference_id"`
	Status       string              `json:"status"`
	ScorePercent int                 `json:"score_percent"`
	Grade        questionnaire.Grade `json:"grade"`
}

// AdminQuestionnaireListRequest filters stored questionnaire results.
type AdminQuestionnaireListRequest struct {
	Page     int
	PageSize int
	Search   string
	Grade    string
	Status   string
}

// AdminQuestionnaireResultResponse serializes a stored result.
type AdminQuestionnaireResultResponse struct {
	ID                 uint                       `json:"id"`
	ReferenceID        string                     `json:"reference_id"`
	Name               string                     `json:"name"`
	Email              string                     `json:"email"`
	Phone              string                     `json:"phone"`
	ScorePercent       int                        `json:"score_percent"`
	GradeLetter        string                     `json:"grade_letter"`
	GradeLabel         string                     `json:"grade_label"`
	Status             string                     `json:"status"`
	FailureReason      string                     `json:"failure_reason,omitempty"`
	Attempts           int                        `json:"attempts"`
	AnsweredCount      int                        `json:"answered_count"`
	Report             []questionnaire.ReportLine `json:"report,omitempty"`
	DeliveredAt        *time.Time                 `json:"delivered_at"`
	OperatorNotifiedAt *time.Time                 `json:"operator_notified_at,omitempty"`
	CreatedAt          time.Time                  `json:"created_at"`
}

// AdminQuestionnaireListResponse wraps a page of results.
type AdminQuestionnaireListResponse struct {
	Items      []AdminQuestionnaireResultResponse `json:"items"`
	Pagination PaginationMeta                     `json:"pagination"`
}

// NewAdminQuestionnaireResultResponse converts a stored result. Report is only filled when bank is non-nil.
func NewAdminQuestionnaireResultResponse(model models.QuestionnaireResult, bank *questionnaire.Bank) AdminQuestionnaireResultResponse {
	response := AdminQuestionnaireResultResponse{
		ID:                 model.ID,
		ReferenceID:        model.ReferenceID,
		Name:               model.Name,
		Email:              model.Email,
		Phone:              model.Phone,
		ScorePercent:       model.ScorePercent,
		GradeLetter:        model.GradeLetter,
		GradeLabel:         model.GradeLabel,
		Status:             model.Status,
		FailureReason:      model.FailureReason,
		Attempts:           model.Attempts,
		AnsweredCount:      model.AnsweredCount,
		DeliveredAt:        model.DeliveredAt,
		OperatorNotifiedAt: model.OperatorNotifiedAt,
		CreatedAt:          model.CreatedAt,
	}
	if bank != nil {
		response.Report = bank.Report(questionnaire.SubmissionRecord{
			Answers:        questionnaire.AnswerSet(model.Answers.Data()),
			Classification: questionnaire.Classification(model.Positive.Data()),
		})
	}
	return response
}
