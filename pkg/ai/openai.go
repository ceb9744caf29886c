package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxRemedies = 5

var (
	adviceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vastu",
		Subsystem: "ai",
		Name:      "remedy_duration_seconds",
		Help:      "Duration of AI remedy requests",
	}, []string{"model"})

	adviceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vastu",
		Subsystem: "ai",
		Name:      "remedy_failures_total",
		Help:      "Number of AI remedy failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI advisor.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIAdvisor implements Advisor against the OpenAI chat completion API.
type OpenAIAdvisor struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIAdvisor builds a new advisor using the provided configuration.
func NewOpenAIAdvisor(cfg OpenAIConfig) (*OpenAIAdvisor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 400
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIAdvisor{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/vastu-api/pkg/ai/openai"),
		logger: cfg.Logger.With().Str("component", "openai_advisor").Logger(),
	}, nil
}

// Advise asks the model for remedies addressing the given concerns.
func (a *OpenAIAdvisor) Advise(parent context.Context, input RemedyInput) (RemedyNotes, error) {
	ctx, span := a.tracer.Start(parent, "openai.advise", trace.WithAttributes(
		attribute.String("model", a.cfg.Model),
		attribute.Int("concerns", len(input.Concerns)),
	))
	defer span.End()

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.cfg.Model,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: advisorSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: buildRemedyPrompt(input)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	adviceDuration.WithLabelValues(a.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return RemedyNotes{}, a.fail(span, fmt.Errorf("openai advise: %w", err))
	}
	if len(resp.Choices) == 0 {
		return RemedyNotes{}, a.fail(span, fmt.Errorf("no choices returned from openai"))
	}

	notes, err := parseRemedyResponse(strings.TrimSpace(resp.Choices[0].Message.Content))
	if err != nil {
		return RemedyNotes{}, a.fail(span, err)
	}

	a.logger.Debug().Int("remedies", len(notes.Remedies)).Int("total_tokens", resp.Usage.TotalTokens).Msg("remedy notes generated")
	return notes, nil
}

func (a *OpenAIAdvisor) fail(span trace.Span, err error) error {
	adviceFailures.WithLabelValues(a.cfg.Model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func advisorSystemPrompt() string {
	return "You are an assistant to a Vastu Shastra consultant. Given the concerns found in a home questionnaire, " +
		"respond with a JSON object containing summary (one or two sentences) and remedies (a list of at most five short, practical suggestions). " +
		"Do not promise outcomes. Suggest a personal consultation for structural issues."
}

func buildRemedyPrompt(input RemedyInput) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("# Result\nScore: %d%%\nGrade: %s (%s)\n", input.ScorePercent, input.GradeLetter, input.GradeLabel))
	builder.WriteString("\n## Concerns\n")
	if len(input.Concerns) == 0 {
		builder.WriteString("None.\n")
	}
	for _, concern := range input.Concerns {
		builder.WriteString("- [")
		builder.WriteString(concern.Section)
		builder.WriteString("] ")
		builder.WriteString(concern.Question)
		builder.WriteString(" -> ")
		builder.WriteString(concern.Answer)
		builder.WriteString("\n")
	}
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}

func parseRemedyResponse(content string) (RemedyNotes, error) {
	var notes RemedyNotes
	if err := json.Unmarshal([]byte(content), &notes); err != nil {
		return RemedyNotes{}, fmt.Errorf("parse remedy json: %w", err)
	}

	notes.Summary = strings.TrimSpace(notes.Summary)
	remedies := make([]string, 0, len(notes.Remedies))
	for _, remedy := range notes.Remedies {
		remedy = strings.TrimSpace(remedy)
		if remedy == "" {
			continue
		}
		remedies = append(remedies, remedy)
		if len(remedies) == maxRemedies {
			break
		}
	}
	notes.Remedies = remedies
	return notes, nil
}
