package mailer

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSender writes the message envelope to the log instead of sending it.
type LogSender struct {
	logger zerolog.Logger
}

// NewLogSender constructs a logging sender for development environments.
func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "log_mailer").Logger()}
}

// Send logs the recipients and subject and always succeeds for valid messages.
func (l *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	l.logger.Info().
		Strs("to", msg.Addresses()).
		Str("subject", msg.Subject).
		Str("category", msg.Category).
		Int("text_bytes", len(msg.Text)).
		Int("html_bytes", len(msg.HTML)).
		Msg("email delivered to log")
	return nil
}
