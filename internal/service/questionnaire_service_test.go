package service

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/vastu-api/internal/dto"
	"github.com/noah-isme/vastu-api/internal/models"
	"github.com/noah-isme/vastu-api/internal/questionnaire"
	"github.com/noah-isme/vastu-api/internal/repository"
)

type notifierStub struct {
	calls []questionnaire.Notification
	err   error
}

func (n *notifierStub) Notify(ctx context.Context, notification questionnaire.Notification) error {
	n.calls = append(n.calls, notification)
	return n.err
}

type questionnaireRepoStub struct {
	results map[uint]models.QuestionnaireResult
}

func newQuestionnaireRepoStub() *questionnaireRepoStub {
	return &questionnaireRepoStub{results: map[uint]models.QuestionnaireResult{}}
}

func (q *questionnaireRepoStub) Create(ctx context.Context, result *models.QuestionnaireResult) error {
	result.ID = uint(len(q.results) + 1)
	result.CreatedAt = time.Now()
	q.results[result.ID] = *result
	return nil
}

func (q *questionnaireRepoStub) RecordDelivery(ctx context.Context, id uint, status string, failure string) error {
	result, ok := q.results[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	result.Status = status
	result.FailureReason = failure
	result.Attempts++
	if status == models.QuestionnaireStatusSent {
		now := time.Now()
		result.DeliveredAt = &now
	}
	q.results[id] = result
	return nil
}

func (q *questionnaireRepoStub) MarkOperatorNotified(ctx context.Context, id uint) error {
	result, ok := q.results[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if result.OperatorNotifiedAt == nil {
		now := time.Now()
		result.OperatorNotifiedAt = &now
	}
	q.results[id] = result
	return nil
}

func (q *questionnaireRepoStub) GetByID(ctx context.Context, id uint) (models.QuestionnaireResult, error) {
	result, ok := q.results[id]
	if !ok {
		return models.QuestionnaireResult{}, gorm.ErrRecordNotFound
	}
	return result, nil
}

func (q *questionnaireRepoStub) List(ctx context.Context, filter repository.QuestionnaireFilter) ([]models.QuestionnaireResult, int64, error) {
	out := make([]models.QuestionnaireResult, 0, len(q.results))
	for id := uint(1); id <= uint(len(q.results)); id++ {
		result := q.results[id]
		if filter.Grade != "" && result.GradeLetter != filter.Grade {
			continue
		}
		out = append(out, result)
	}
	return out, int64(len(out)), nil
}

func (q *questionnaireRepoStub) Stats(ctx context.Context) (repository.QuestionnaireStats, error) {
	stats := repository.QuestionnaireStats{ByStatus: map[string]int64{}, ByGrade: map[string]int64{}}
	total := 0
	for _, result := range q.results {
		stats.ByStatus[result.Status]++
		stats.ByGrade[result.GradeLetter]++
		total += result.ScorePercent
	}
	if len(q.results) > 0 {
		stats.AverageScore = float64(total) / float64(len(q.results))
	}
	return stats, nil
}

// answersFor picks, for every required question, a favourable answer while
// positive is true and an unfavourable one after.
func answersFor(bank *questionnaire.Bank, positive int) map[int]string {
	answers := map[int]string{}
	given := 0
	for _, q := range bank.Questions() {
		if q.Optional {
			continue
		}
		if given < positive {
			answers[q.Index] = q.Favorable[0]
			given++
			continue
		}
		for _, option := range q.Options {
			if !q.IsFavorable(option) {
				answers[q.Index] = option
				break
			}
		}
	}
	return answers
}

func newQuestionnaireFixture(t *testing.T, notifier *notifierStub, cache *redis.Client) (QuestionnaireService, *questionnaireRepoStub, *publisherStub) {
	t.Helper()
	repo := newQuestionnaireRepoStub()
	alerts := &publisherStub{}
	engine := questionnaire.NewEngine(questionnaire.DefaultBank(), notifier)
	svc := NewQuestionnaireService(engine, repo, cache, validator.New(), alerts, time.Minute, testLogger())
	return svc, repo, alerts
}

func submitRequest(answers map[int]string) dto.QuestionnaireSubmitRequest {
	return dto.QuestionnaireSubmitRequest{
		Name:    "Asha Rao",
		Email:   "asha@example.com",
		Phone:   "9845000000",
		Answers: answers,
	}
}

func TestQuestionnaireServiceSubmitSuccess(t *testing.T) {
	notifier := &notifierStub{}
	svc, repo, alerts := newQuestionnaireFixture(t, notifier, nil)
	bank := questionnaire.DefaultBank()

	resp, err := svc.Submit(context.Background(), submitRequest(answersFor(bank, bank.RequiredCount())))
	require.NoError(t, err)
	require.Equal(t, 100, resp.ScorePercent)
	require.Equal(t, "A", resp.Grade.Letter)
	require.Equal(t, models.QuestionnaireStatusSent, resp.Status)
	require.NotEmpty(t, resp.ReferenceID)

	require.Len(t, notifier.calls, 1)
	require.Len(t, notifier.calls[0].Report, bank.Len())
	require.Equal(t, "asha@example.com", notifier.calls[0].RespondentEmail)

	stored := repo.results[1]
	require.Equal(t, models.QuestionnaireStatusSent, stored.Status)
	require.Equal(t, 1, stored.Attempts)
	require.Equal(t, bank.RequiredCount(), stored.AnsweredCount)
	require.NotNil(t, stored.DeliveredAt)

	require.Len(t, alerts.published, 1)
	require.Equal(t, models.NotificationNewQuestionnaire, alerts.published[0].Type)
}

func TestQuestionnaireServiceMissingRequired(t *testing.T) {
	notifier := &notifierStub{}
	svc, repo, _ := newQuestionnaireFixture(t, notifier, nil)
	bank := questionnaire.DefaultBank()

	answers := answersFor(bank, bank.RequiredCount())
	delete(answers, 1)
	answers[4] = "   "

	_, err := svc.Submit(context.Background(), submitRequest(answers))
	var missing *questionnaire.MissingRequiredQuestionsError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, []int{1, 4}, missing.Indices)
	require.Empty(t, notifier.calls)
	require.Empty(t, repo.results)
}

func TestQuestionnaireServiceRejectsInvalidOption(t *testing.T) {
	svc, _, _ := newQuestionnaireFixture(t, &notifierStub{}, nil)
	bank := questionnaire.DefaultBank()

	answers := answersFor(bank, bank.RequiredCount())
	answers[3] = "Maybe"

	_, err := svc.Submit(context.Background(), submitRequest(answers))
	require.ErrorIs(t, err, ErrInvalidAnswer)
	var invalid *InvalidAnswersError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, []int{3}, invalid.Indices)
}

func TestQuestionnaireServiceUnknownIndex(t *testing.T) {
	svc, _, _ := newQuestionnaireFixture(t, &notifierStub{}, nil)
	bank := questionnaire.DefaultBank()

	answers := answersFor(bank, bank.RequiredCount())
	answers[99] = "Yes"

	_, err := svc.Submit(context.Background(), submitRequest(answers))
	require.ErrorIs(t, err, questionnaire.ErrUnknownQuestion)
}

func TestQuestionnaireServiceDeliveryFailure(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	notifier := &notifierStub{err: errors.New("smtp down")}
	svc, repo, alerts := newQuestionnaireFixture(t, notifier, client)
	bank := questionnaire.DefaultBank()
	answers := answersFor(bank, 18)

	resp, err := svc.Submit(context.Background(), submitRequest(answers))
	require.ErrorIs(t, err, questionnaire.ErrSubmission)
	require.Equal(t, models.QuestionnaireStatusFailed, resp.Status)
	require.Equal(t, 50, resp.ScorePercent)
	require.Equal(t, "C", resp.Grade.Letter)

	stored := repo.results[1]
	require.Equal(t, models.QuestionnaireStatusFailed, stored.Status)
	require.Contains(t, stored.FailureReason, "smtp down")
	require.Equal(t, models.NotificationDeliveryFailed, alerts.published[0].Type)

	// the dedupe key is released so the respondent can retry
	notifier.err = nil
	resp, err = svc.Submit(context.Background(), submitRequest(answers))
	require.NoError(t, err)
	require.Equal(t, models.QuestionnaireStatusSent, resp.Status)
}

func TestQuestionnaireServiceDuplicate(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	notifier := &notifierStub{}
	svc, _, _ := newQuestionnaireFixture(t, notifier, client)
	bank := questionnaire.DefaultBank()
	req := submitRequest(answersFor(bank, 10))

	_, err = svc.Submit(context.Background(), req)
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), req)
	require.ErrorIs(t, err, ErrQuestionnaireDuplicate)
	require.Len(t, notifier.calls, 1)

	req.Email = "other@example.com"
	_, err = svc.Submit(context.Background(), req)
	require.NoError(t, err)
}

func TestQuestionnaireServiceSpam(t *testing.T) {
	notifier := &notifierStub{}
	svc, repo, _ := newQuestionnaireFixture(t, notifier, nil)
	req := submitRequest(map[int]string{})
	req.Honeypot = "bot"

	_, err := svc.Submit(context.Background(), req)
	require.ErrorIs(t, err, ErrQuestionnaireSpam)
	require.Empty(t, repo.results)
}

func TestQuestionnaireServicePreview(t *testing.T) {
	notifier := &notifierStub{}
	svc, repo, _ := newQuestionnaireFixture(t, notifier, nil)
	bank := questionnaire.DefaultBank()

	answers := answersFor(bank, 27)
	answers[40] = "Cracks in the North wall"

	resp, err := svc.Preview(context.Background(), dto.QuestionnaireScoreRequest{Answers: answers})
	require.NoError(t, err)
	require.Equal(t, 75, resp.ScorePercent)
	require.Equal(t, "B", resp.Grade.Letter)
	require.Equal(t, 27, resp.PositiveCount)
	require.Equal(t, bank.RequiredCount()+1, resp.AnsweredCount)
	require.Empty(t, notifier.calls)
	require.Empty(t, repo.results)
}

func TestQuestionnaireServiceBankView(t *testing.T) {
	svc, _, _ := newQuestionnaireFixture(t, &notifierStub{}, nil)
	view := svc.Questionnaire()
	require.Len(t, view.Questions, 41)
	require.Equal(t, 36, view.RequiredCount)
	require.Len(t, view.Grades, 5)
}
