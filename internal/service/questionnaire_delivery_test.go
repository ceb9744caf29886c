package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/vastu-api/internal/questionnaire"
	"github.com/noah-isme/vastu-api/pkg/ai"
)

type advisorStub struct {
	input ai.RemedyInput
	notes ai.RemedyNotes
	err   error
}

func (a *advisorStub) Advise(ctx context.Context, input ai.RemedyInput) (ai.RemedyNotes, error) {
	a.input = input
	return a.notes, a.err
}

func mailConfig(copyToRespondent bool) QuestionnaireMailConfig {
	return QuestionnaireMailConfig{
		SiteName:         "Vastu Consultancy",
		OperatorName:     "Consultant",
		OperatorEmail:    "office@vastu.example",
		CopyToRespondent: copyToRespondent,
	}
}

func submitThrough(t *testing.T, notifier questionnaire.Notifier, answers map[int]string) error {
	t.Helper()
	bank := questionnaire.DefaultBank()
	record := bank.BuildSubmission(questionnaire.Contact{Name: "Asha <b>Rao</b>", Email: "asha@example.com"}, answers)
	return questionnaire.NewEngine(bank, notifier).Submit(context.Background(), record)
}

func TestQuestionnaireMailNotifierSendsOperatorAndRespondent(t *testing.T) {
	sender := &recordingSender{}
	notifier, err := NewQuestionnaireMailNotifier(sender, nil, mailConfig(true), testLogger())
	require.NoError(t, err)

	bank := questionnaire.DefaultBank()
	answers := answersFor(bank, bank.RequiredCount())
	answers[40] = "Cracks & damp near the puja room"

	require.NoError(t, submitThrough(t, notifier, answers))
	require.Len(t, sender.messages, 2)

	operator := sender.messages[0]
	require.Equal(t, "office@vastu.example", operator.To[0].Address)
	require.Equal(t, "asha@example.com", operator.ReplyTo.Address)
	require.Equal(t, "Questionnaire: Asha Rao scored 100% (A)", operator.Subject)
	require.Contains(t, operator.Text, "Grade: A - Excellent")
	require.Contains(t, operator.Text, questionnaire.NotAnswered)
	require.Contains(t, operator.Text, "Cracks & damp near the puja room")
	require.Contains(t, operator.HTML, "Cracks &amp; damp near the puja room")
	require.NotContains(t, operator.HTML, "<b>Rao</b>")

	respondent := sender.messages[1]
	require.Equal(t, "asha@example.com", respondent.To[0].Address)
	require.Equal(t, "Your Vastu questionnaire result", respondent.Subject)
	require.Equal(t, "office@vastu.example", respondent.ReplyTo.Address)
}

func TestQuestionnaireMailNotifierOperatorFailure(t *testing.T) {
	sender := &recordingSender{failOn: 1}
	notifier, err := NewQuestionnaireMailNotifier(sender, nil, mailConfig(true), testLogger())
	require.NoError(t, err)

	bank := questionnaire.DefaultBank()
	err = submitThrough(t, notifier, answersFor(bank, 5))
	require.ErrorIs(t, err, questionnaire.ErrSubmission)
	require.Len(t, sender.messages, 1)
}

func TestQuestionnaireMailNotifierRespondentFailure(t *testing.T) {
	sender := &recordingSender{failOn: 2}
	notifier, err := NewQuestionnaireMailNotifier(sender, nil, mailConfig(true), testLogger())
	require.NoError(t, err)

	bank := questionnaire.DefaultBank()
	err = submitThrough(t, notifier, answersFor(bank, 5))
	require.ErrorIs(t, err, questionnaire.ErrSubmission)
	require.Contains(t, err.Error(), "respondent")
	require.True(t, questionnaire.OperatorReached(err))
}

func TestQuestionnaireMailNotifierSkipOperator(t *testing.T) {
	bank := questionnaire.DefaultBank()
	record := bank.BuildSubmission(questionnaire.Contact{Name: "Asha Rao", Email: "asha@example.com"}, answersFor(bank, 5))

	sender := &recordingSender{}
	notifier, err := NewQuestionnaireMailNotifier(sender, nil, mailConfig(true), testLogger())
	require.NoError(t, err)
	engine := questionnaire.NewEngine(bank, notifier)

	require.NoError(t, engine.Submit(context.Background(), record, questionnaire.SkipOperator()))
	require.Len(t, sender.messages, 1)
	require.Equal(t, "asha@example.com", sender.messages[0].To[0].Address)

	failing := &recordingSender{failOn: 1}
	notifier, err = NewQuestionnaireMailNotifier(failing, nil, mailConfig(true), testLogger())
	require.NoError(t, err)
	err = questionnaire.NewEngine(bank, notifier).Submit(context.Background(), record, questionnaire.SkipOperator())
	require.ErrorIs(t, err, questionnaire.ErrSubmission)
	require.False(t, questionnaire.OperatorReached(err))

	quiet := &recordingSender{}
	notifier, err = NewQuestionnaireMailNotifier(quiet, nil, mailConfig(false), testLogger())
	require.NoError(t, err)
	require.NoError(t, questionnaire.NewEngine(bank, notifier).Submit(context.Background(), record, questionnaire.SkipOperator()))
	require.Empty(t, quiet.messages)
}

func TestQuestionnaireMailNotifierOperatorOnly(t *testing.T) {
	sender := &recordingSender{}
	notifier, err := NewQuestionnaireMailNotifier(sender, nil, mailConfig(false), testLogger())
	require.NoError(t, err)

	bank := questionnaire.DefaultBank()
	require.NoError(t, submitThrough(t, notifier, answersFor(bank, 5)))
	require.Len(t, sender.messages, 1)
}

func TestQuestionnaireMailNotifierAppendsRemedies(t *testing.T) {
	sender := &recordingSender{}
	advisor := &advisorStub{notes: ai.RemedyNotes{
		Summary:  "Focus on the North-East.",
		Remedies: []string{"Move the toilet door <script>x</script>", "Keep the centre open"},
	}}
	notifier, err := NewQuestionnaireMailNotifier(sender, advisor, mailConfig(false), testLogger())
	require.NoError(t, err)

	bank := questionnaire.DefaultBank()
	require.NoError(t, submitThrough(t, notifier, answersFor(bank, bank.RequiredCount()-3)))

	require.Len(t, advisor.input.Concerns, 3)
	text := sender.messages[0].Text
	require.Contains(t, text, "Suggested remedies")
	require.Contains(t, text, "- Move the toilet door")
	require.NotContains(t, text, "<script>")
}

func TestQuestionnaireMailNotifierIgnoresAdvisorFailure(t *testing.T) {
	sender := &recordingSender{}
	advisor := &advisorStub{err: errors.New("rate limited")}
	notifier, err := NewQuestionnaireMailNotifier(sender, advisor, mailConfig(false), testLogger())
	require.NoError(t, err)

	bank := questionnaire.DefaultBank()
	require.NoError(t, submitThrough(t, notifier, answersFor(bank, 2)))
	require.NotContains(t, sender.messages[0].Text, "Suggested remedies")
}

func TestNewQuestionnaireMailNotifierValidatesConfig(t *testing.T) {
	_, err := NewQuestionnaireMailNotifier(nil, nil, mailConfig(false), testLogger())
	require.Error(t, err)

	cfg := mailConfig(false)
	cfg.OperatorEmail = "office"
	_, err = NewQuestionnaireMailNotifier(&recordingSender{}, nil, cfg, testLogger())
	require.Error(t, err)
}
