package mailer

import (
	"context"
	"errors"
	"net/mail"
	"strings"
)

var (
	// ErrNoRecipients indicates a message without any To address.
	ErrNoRecipients = errors.New("message has no recipients")
	// ErrNoContent indicates a message without a text or HTML body.
	ErrNoContent = errors.New("message has no content")
)

// Message is a transactional email.
type Message struct {
	To      []mail.Address
	ReplyTo *mail.Address
	Subject string
	Text    string
	HTML    string
	// Category tags the message for the relay's analytics.
	Category string
}

// Validate checks that the message can be sent.
func (m Message) Validate() error {
	if len(m.To) == 0 {
		return ErrNoRecipients
	}
	for _, to := range m.To {
		if strings.TrimSpace(to.Address) == "" {
			return ErrNoRecipients
		}
	}
	if strings.TrimSpace(m.Text) == "" && strings.TrimSpace(m.HTML) == "" {
		return ErrNoContent
	}
	return nil
}

// Sender delivers email messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Addresses returns the recipients formatted for logs.
func (m Message) Addresses() []string {
	out := make([]string, 0, len(m.To))
	for _, to := range m.To {
		out = append(out, to.Address)
	}
	return out
}
