package service

import (
	"bytes"
	"context"
	"fmt"
	"html"
	htmltemplate "html/template"
	"net/mail"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/vastu-api/internal/questionnaire"
	"github.com/noah-isme/vastu-api/pkg/ai"
	"github.com/noah-isme/vastu-api/pkg/mailer"
)

const adviceTimeout = 8 * time.Second

const questionnaireTextTemplate = `{{.Heading}}

Name:  {{.Name}}
Email: {{.Email}}
Phone: {{.Phone}}

Score: {{.Score}}%
Grade: {{.GradeLetter}} - {{.GradeLabel}}
{{range .Sections}}
== {{.Name}} ==
{{range .Lines}}{{.Number}}. {{.Question}}
   {{.Answer}}{{if .Flag}} [{{.Flag}}]{{end}}
{{end}}{{end}}{{if .Remedies}}
== Suggested remedies ==
{{if .RemedySummary}}{{.RemedySummary}}
{{end}}{{range .Remedies}}- {{.}}
{{end}}{{end}}
{{.Footer}}
`

const questionnaireHTMLTemplate = `<!doctype html>
<html><body style="font-family:Arial,sans-serif;color:#222">
<h2>{{.Heading}}</h2>
<table cellpadding="4">
<tr><td><b>Name</b></td><td>{{.Name}}</td></tr>
<tr><td><b>Email</b></td><td>{{.Email}}</td></tr>
<tr><td><b>Phone</b></td><td>{{.Phone}}</td></tr>
<tr><td><b>Score</b></td><td>{{.Score}}%</td></tr>
<tr><td><b>Grade</b></td><td>{{.GradeLetter}} &middot; {{.GradeLabel}}</td></tr>
</table>
{{range .Sections}}<h3>{{.Name}}</h3>
<ol start="{{(index .Lines 0).Number}}">
{{range .Lines}}<li><div>{{.Question}}</div><div><i>{{.Answer}}</i>{{if .Flag}} <small>({{.Flag}})</small>{{end}}</div></li>
{{end}}</ol>
{{end}}{{if .Remedies}}<h3>Suggested remedies</h3>
{{if .RemedySummary}}<p>{{.RemedySummary}}</p>{{end}}
<ul>{{range .Remedies}}<li>{{.}}</li>{{end}}</ul>
{{end}}<p style="color:#777">{{.Footer}}</p>
</body></html>
`

// QuestionnaireMailConfig identifies who receives questionnaire results.
type QuestionnaireMailConfig struct {
	SiteName          string
	OperatorName      string
	OperatorEmail     string
	CopyToRespondent  bool
	RespondentSubject string
}

// QuestionnaireMailNotifier delivers questionnaire reports by email.
type QuestionnaireMailNotifier struct {
	sender    mailer.Sender
	advisor   ai.Advisor
	cfg       QuestionnaireMailConfig
	sanitizer *bluemonday.Policy
	text      *texttemplate.Template
	html      *htmltemplate.Template
	logger    zerolog.Logger
	tracer    trace.Tracer
}

type reportView struct {
	Heading       string
	Name          string
	Email         string
	Phone         string
	Score         int
	GradeLetter   string
	GradeLabel    string
	Sections      []sectionView
	RemedySummary string
	Remedies      []string
	Footer        string
}

type sectionView struct {
	Name  string
	Lines []lineView
}

type lineView struct {
	Number   int
	Question string
	Answer   string
	Flag     string
}

// NewQuestionnaireMailNotifier builds the notifier. The advisor is optional.
func NewQuestionnaireMailNotifier(sender mailer.Sender, advisor ai.Advisor, cfg QuestionnaireMailConfig, logger zerolog.Logger) (*QuestionnaireMailNotifier, error) {
	if sender == nil {
		return nil, fmt.Errorf("mail sender is required")
	}
	if _, err := mail.ParseAddress(cfg.OperatorEmail); err != nil {
		return nil, fmt.Errorf("invalid operator email: %w", err)
	}
	if cfg.SiteName == "" {
		cfg.SiteName = "Vastu Consultancy"
	}
	if cfg.RespondentSubject == "" {
		cfg.RespondentSubject = "Your Vastu questionnaire result"
	}

	textTmpl, err := texttemplate.New("questionnaire_text").Parse(questionnaireTextTemplate)
	if err != nil {
		return nil, err
	}
	htmlTmpl, err := htmltemplate.New("questionnaire_html").Parse(questionnaireHTMLTemplate)
	if err != nil {
		return nil, err
	}

	return &QuestionnaireMailNotifier{
		sender:    sender,
		advisor:   advisor,
		cfg:       cfg,
		sanitizer: bluemonday.StrictPolicy(),
		text:      textTmpl,
		html:      htmlTmpl,
		logger:    logger.With().Str("component", "questionnaire_delivery").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/vastu-api/internal/service/questionnaire_delivery"),
	}, nil
}

// Notify emails the report to the operator and, when configured, a copy to the respondent.
func (n *QuestionnaireMailNotifier) Notify(ctx context.Context, notification questionnaire.Notification) error {
	ctx, span := n.tracer.Start(ctx, "questionnaire.notify", trace.WithAttributes(
		attribute.Int("questionnaire.score", notification.ScorePercent),
		attribute.String("questionnaire.grade", notification.Grade.Letter),
	))
	defer span.End()

	view := n.buildView(notification)
	n.attachRemedies(ctx, &view, notification)

	operator := mail.Address{Name: n.cfg.OperatorName, Address: n.cfg.OperatorEmail}
	var respondent *mail.Address
	if addr, err := mail.ParseAddress(notification.RespondentEmail); err == nil {
		addr.Name = view.Name
		respondent = addr
	}

	operatorSent := false
	if !notification.SkipOperator {
		view.Heading = "New Vastu questionnaire submission"
		view.Footer = "Reply to this email to reach the respondent directly."
		operatorMsg, err := n.render(view)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "render failed")
			return err
		}
		operatorMsg.To = []mail.Address{operator}
		operatorMsg.ReplyTo = respondent
		operatorMsg.Subject = fmt.Sprintf("Questionnaire: %s scored %d%% (%s)", view.Name, view.Score, view.GradeLetter)
		operatorMsg.Category = "questionnaire-operator"

		if err := n.sender.Send(ctx, operatorMsg); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "operator delivery failed")
			return fmt.Errorf("deliver questionnaire to operator: %w", err)
		}
		operatorSent = true
	}

	if n.cfg.CopyToRespondent && respondent != nil {
		view.Heading = fmt.Sprintf("Thank you for completing the %s questionnaire", n.cfg.SiteName)
		view.Footer = "Our consultant will contact you to discuss the result."
		copyMsg, err := n.render(view)
		if err != nil {
			span.RecordError(err)
			return err
		}
		copyMsg.To = []mail.Address{*respondent}
		copyMsg.ReplyTo = &operator
		copyMsg.Subject = n.cfg.RespondentSubject
		copyMsg.Category = "questionnaire-respondent"

		if err := n.sender.Send(ctx, copyMsg); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "respondent delivery failed")
			err = fmt.Errorf("deliver questionnaire copy to respondent: %w", err)
			if operatorSent {
				return &questionnaire.PartialDeliveryError{Err: err}
			}
			return err
		}
	}

	n.logger.Info().
		Str("email", maskEmail(notification.RespondentEmail)).
		Bool("operator", operatorSent).
		Int("score", notification.ScorePercent).
		Str("grade", notification.Grade.Letter).
		Msg("questionnaire report delivered")
	span.SetStatus(codes.Ok, "delivered")
	return nil
}

func (n *QuestionnaireMailNotifier) buildView(notification questionnaire.Notification) reportView {
	view := reportView{
		Name:        n.clean(notification.RespondentName),
		Email:       n.clean(notification.RespondentEmail),
		Phone:       n.clean(notification.RespondentPhone),
		Score:       notification.ScorePercent,
		GradeLetter: notification.Grade.Letter,
		GradeLabel:  notification.Grade.Label,
	}
	if view.Phone == "" {
		view.Phone = questionnaire.NotAnswered
	}

	for _, line := range notification.Report {
		if len(view.Sections) == 0 || view.Sections[len(view.Sections)-1].Name != line.Section {
			view.Sections = append(view.Sections, sectionView{Name: line.Section})
		}

		flag := ""
		switch {
		case !line.Answered:
		case line.Positive:
			flag = "favourable"
		case !line.Optional:
			flag = "needs attention"
		}

		current := &view.Sections[len(view.Sections)-1]
		current.Lines = append(current.Lines, lineView{
			Number:   line.Index + 1,
			Question: line.Question,
			Answer:   n.clean(line.Answer),
			Flag:     flag,
		})
	}
	return view
}

func (n *QuestionnaireMailNotifier) attachRemedies(ctx context.Context, view *reportView, notification questionnaire.Notification) {
	if n.advisor == nil {
		return
	}

	concerns := make([]ai.Concern, 0)
	for _, line := range notification.Report {
		if line.Optional || !line.Answered || line.Positive {
			continue
		}
		concerns = append(concerns, ai.Concern{Section: line.Section, Question: line.Question, Answer: line.Answer})
	}
	if len(concerns) == 0 {
		return
	}

	adviceCtx, cancel := context.WithTimeout(ctx, adviceTimeout)
	defer cancel()

	notes, err := n.advisor.Advise(adviceCtx, ai.RemedyInput{
		ScorePercent: notification.ScorePercent,
		GradeLetter:  notification.Grade.Letter,
		GradeLabel:   notification.Grade.Label,
		Concerns:     concerns,
	})
	if err != nil {
		n.logger.Warn().Err(err).Msg("remedy advice unavailable")
		return
	}

	view.RemedySummary = n.clean(notes.Summary)
	for _, remedy := range notes.Remedies {
		if cleaned := n.clean(remedy); cleaned != "" {
			view.Remedies = append(view.Remedies, cleaned)
		}
	}
}

func (n *QuestionnaireMailNotifier) render(view reportView) (mailer.Message, error) {
	var textBody, htmlBody bytes.Buffer
	if err := n.text.Execute(&textBody, view); err != nil {
		return mailer.Message{}, fmt.Errorf("render questionnaire text: %w", err)
	}
	if err := n.html.Execute(&htmlBody, view); err != nil {
		return mailer.Message{}, fmt.Errorf("render questionnaire html: %w", err)
	}
	return mailer.Message{Text: textBody.String(), HTML: htmlBody.String()}, nil
}

// clean strips markup; the templates handle escaping.
func (n *QuestionnaireMailNotifier) clean(value string) string {
	return strings.TrimSpace(html.UnescapeString(n.sanitizer.Sanitize(value)))
}
