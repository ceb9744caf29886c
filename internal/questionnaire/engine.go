package questionnaire

import (
	"context"
	"math"
	"sort"
	"strings"
)

// NotAnswered is the report value for a question without an answer.
const NotAnswered = "Not Answered"

// AnswerSet maps a question index to the respondent's answer.
type AnswerSet map[int]string

// Classification marks, per question index, whether the answer is positive.
type Classification map[int]bool

// Contact holds the respondent's contact details.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// SubmissionRecord is the scored result of one respondent session.
type SubmissionRecord struct {
	Contact        Contact        `json:"contact"`
	Answers        AnswerSet      `json:"answers"`
	Classification Classification `json:"classification"`
	ScorePercent   int            `json:"score_percent"`
	Grade          Grade          `json:"grade"`
}

// ReportLine pairs a question with the answer given.
type ReportLine struct {
	Index    int    `json:"index"`
	Section  string `json:"section"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Optional bool   `json:"optional"`
	Answered bool   `json:"answered"`
	Positive bool   `json:"positive"`
}

// Notification is the payload handed to a Notifier.
type Notification struct {
	RespondentName  string
	RespondentEmail string
	RespondentPhone string
	ScorePercent    int
	Grade           Grade
	Report          []ReportLine
	// SkipOperator is set on retries where the operator already has the report.
	SkipOperator bool
}

// Notifier delivers a questionnaire result to the operator and the respondent.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// Validate checks that every key is a known question and every required question is answered.
func (b *Bank) Validate(answers AnswerSet) error {
	unknown := make([]int, 0)
	for index := range answers {
		if index < 0 || index >= len(b.questions) {
			unknown = append(unknown, index)
		}
	}
	if len(unknown) > 0 {
		sort.Ints(unknown)
		return &UnknownQuestionsError{Indices: unknown}
	}

	missing := make([]int, 0)
	for _, q := range b.questions {
		if q.Optional {
			continue
		}
		if strings.TrimSpace(answers[q.Index]) == "" {
			missing = append(missing, q.Index)
		}
	}
	if len(missing) > 0 {
		return &MissingRequiredQuestionsError{Indices: missing}
	}
	return nil
}

// Classify resolves each answered question to positive or negative.
func (b *Bank) Classify(answers AnswerSet) Classification {
	positive := make(Classification, len(answers))
	for index, answer := range answers {
		q, ok := b.Question(index)
		if !ok {
			continue
		}
		positive[index] = q.IsFavorable(answer)
	}
	return positive
}

// Score returns the percentage of required questions answered positively.
// Positive optional answers add to the numerator only and the result is capped at 100.
func (b *Bank) Score(answers AnswerSet, positive Classification) int {
	if b.required == 0 {
		return 0
	}

	earned := 0
	for _, q := range b.questions {
		if strings.TrimSpace(answers[q.Index]) == "" {
			continue
		}
		if positive[q.Index] {
			earned++
		}
	}

	score := int(math.Round(100 * float64(earned) / float64(b.required)))
	if score > 100 {
		return 100
	}
	return score
}

// BuildSubmission classifies, scores and grades the answers.
func (b *Bank) BuildSubmission(contact Contact, answers AnswerSet) SubmissionRecord {
	copied := make(AnswerSet, len(answers))
	for index, answer := range answers {
		copied[index] = strings.TrimSpace(answer)
	}
	positive := b.Classify(copied)
	score := b.Score(copied, positive)

	return SubmissionRecord{
		Contact: Contact{
			Name:  strings.TrimSpace(contact.Name),
			Email: strings.ToLower(strings.TrimSpace(contact.Email)),
			Phone: strings.TrimSpace(contact.Phone),
		},
		Answers:        copied,
		Classification: positive,
		ScorePercent:   score,
		Grade:          GradeFor(score),
	}
}

// Report pairs every question with its answer in bank order.
func (b *Bank) Report(record SubmissionRecord) []ReportLine {
	lines := make([]ReportLine, 0, len(b.questions))
	for _, q := range b.questions {
		answer := strings.TrimSpace(record.Answers[q.Index])
		line := ReportLine{
			Index:    q.Index,
			Section:  q.Section,
			Question: q.Text,
			Answer:   answer,
			Optional: q.Optional,
			Answered: answer != "",
			Positive: answer != "" && record.Classification[q.Index],
		}
		if !line.Answered {
			line.Answer = NotAnswered
		}
		lines = append(lines, line)
	}
	return lines
}

// Engine submits scored records to a Notifier.
type Engine struct {
	bank     *Bank
	notifier Notifier
}

// NewEngine constructs an engine over bank. A nil bank uses DefaultBank.
func NewEngine(bank *Bank, notifier Notifier) *Engine {
	if bank == nil {
		bank = DefaultBank()
	}
	return &Engine{bank: bank, notifier: notifier}
}

// Bank returns the question bank used by the engine.
func (e *Engine) Bank() *Bank {
	return e.bank
}

// SubmitOption adjusts a single Submit call.
type SubmitOption func(*Notification)

// SkipOperator leaves the operator out of the delivery.
func SkipOperator() SubmitOption {
	return func(n *Notification) {
		n.SkipOperator = true
	}
}

// Submit formats the report and hands it to the notifier. The record is not modified.
func (e *Engine) Submit(ctx context.Context, record SubmissionRecord, opts ...SubmitOption) error {
	if e.notifier == nil {
		return &SubmissionError{}
	}

	notification := Notification{
		RespondentName:  record.Contact.Name,
		RespondentEmail: record.Contact.Email,
		RespondentPhone: record.Contact.Phone,
		ScorePercent:    record.ScorePercent,
		Grade:           record.Grade,
		Report:          e.bank.Report(record),
	}
	for _, opt := range opts {
		opt(&notification)
	}

	if err := e.notifier.Notify(ctx, notification); err != nil {
		return &SubmissionError{Err: err}
	}
	return nil
}
