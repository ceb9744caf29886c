package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/vastu-api/internal/models"
	"github.com/noah-isme/vastu-api/pkg/mailer"
)

// LogContactDelivery is a basic provider that logs submissions.
type LogContactDelivery struct {
	logger zerolog.Logger
}

// NewLogContactDelivery constructs a logging provider.
func NewLogContactDelivery(logger zerolog.Logger) *LogContactDelivery {
	return &LogContactDelivery{logger: logger.With().Str("component", "contact_delivery").Logger()}
}

// Deliver logs the submission and returns nil to indicate success.
func (l *LogContactDelivery) Deliver(ctx context.Context, submission models.ContactSubmission) error {
	l.logger.Info().Str("reference_id", submission.ReferenceID).Msg("contact submission delivered to inbox")
	return nil
}

// MailContactDelivery forwards submissions to the operator mailbox.
type MailContactDelivery struct {
	sender   mailer.Sender
	operator mail.Address
	logger   zerolog.Logger
}

// NewMailContactDelivery constructs a mail-backed provider.
func NewMailContactDelivery(sender mailer.Sender, operatorName, operatorEmail string, logger zerolog.Logger) (*MailContactDelivery, error) {
	if sender == nil {
		return nil, fmt.Errorf("mail sender is required")
	}
	addr, err := mail.ParseAddress(operatorEmail)
	if err != nil {
		return nil, fmt.Errorf("invalid operator email: %w", err)
	}
	addr.Name = operatorName
	return &MailContactDelivery{
		sender:   sender,
		operator: *addr,
		logger:   logger.With().Str("component", "contact_delivery").Logger(),
	}, nil
}

// Deliver emails the enquiry with reply-to set to the visitor.
func (m *MailContactDelivery) Deliver(ctx context.Context, submission models.ContactSubmission) error {
	msg := mailer.Message{
		To:       []mail.Address{m.operator},
		ReplyTo:  &mail.Address{Name: submission.Name, Address: submission.Email},
		Subject:  contactSubject(submission),
		Text:     contactBody(submission),
		Category: "contact",
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("deliver contact %s: %w", submission.ReferenceID, err)
	}
	m.logger.Info().Str("reference_id", submission.ReferenceID).Msg("contact submission emailed")
	return nil
}

func contactSubject(submission models.ContactSubmission) string {
	if submission.Service == "" {
		return fmt.Sprintf("Enquiry from %s", submission.Name)
	}
	return fmt.Sprintf("%s enquiry from %s", strings.ToUpper(submission.Service[:1])+submission.Service[1:], submission.Name)
}

func contactBody(submission models.ContactSubmission) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name:    %s\n", submission.Name)
	fmt.Fprintf(&b, "Email:   %s\n", submission.Email)
	if submission.Phone != "" {
		fmt.Fprintf(&b, "Phone:   %s\n", submission.Phone)
	}
	if submission.Service != "" {
		fmt.Fprintf(&b, "Service: %s\n", submission.Service)
	}
	if submission.Source != "" {
		fmt.Fprintf(&b, "Source:  %s\n", submission.Source)
	}
	fmt.Fprintf(&b, "Ref:     %s\n\n%s\n", submission.ReferenceID, submission.Message)
	return b.String()
}
