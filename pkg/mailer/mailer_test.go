package mailer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestMessageValidate(t *testing.T) {
	require.ErrorIs(t, Message{Text: "hi"}.Validate(), ErrNoRecipients)
	require.ErrorIs(t, Message{To: []mail.Address{{Address: " "}}, Text: "hi"}.Validate(), ErrNoRecipients)
	require.ErrorIs(t, Message{To: []mail.Address{{Address: "a@example.com"}}}.Validate(), ErrNoContent)
	require.NoError(t, Message{To: []mail.Address{{Address: "a@example.com"}}, HTML: "<p>hi</p>"}.Validate())
}

func TestNewSendGridSenderRequiresCredentials(t *testing.T) {
	_, err := NewSendGridSender(SendGridConfig{FromEmail: "noreply@example.com"}, zerolog.Nop())
	require.Error(t, err)

	_, err = NewSendGridSender(SendGridConfig{APIKey: "key"}, zerolog.Nop())
	require.Error(t, err)
}

func TestSendGridSenderPostsMessage(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		payload map[string]any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sender, err := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromName:  "Vastu Desk",
		FromEmail: "desk@example.com",
		AppName:   "Vastu",
		Host:      server.URL,
	}, zerolog.Nop())
	require.NoError(t, err)

	err = sender.Send(context.Background(), Message{
		To:       []mail.Address{{Name: "Operator", Address: "ops@example.com"}},
		ReplyTo:  &mail.Address{Name: "Asha", Address: "asha@example.com"},
		Subject:  "New questionnaire",
		Text:     "plain",
		HTML:     "<p>html</p>",
		Category: "questionnaire",
	})
	require.NoError(t, err)

	require.Equal(t, "/v3/mail/send", gotPath)
	require.Equal(t, "Bearer test-key", gotAuth)

	personalizations := payload["personalizations"].([]any)
	require.Len(t, personalizations, 1)
	first := personalizations[0].(map[string]any)
	require.Equal(t, "[Vastu] New questionnaire", first["subject"])

	replyTo := payload["reply_to"].(map[string]any)
	require.Equal(t, "asha@example.com", replyTo["email"])
	require.Len(t, payload["content"].([]any), 2)
}

func TestSendGridSenderReportsRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer server.Close()

	sender, err := NewSendGridSender(SendGridConfig{APIKey: "k", FromEmail: "desk@example.com", Host: server.URL}, zerolog.Nop())
	require.NoError(t, err)

	err = sender.Send(context.Background(), Message{To: []mail.Address{{Address: "ops@example.com"}}, Text: "x"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
}

func TestLogSender(t *testing.T) {
	sender := NewLogSender(zerolog.Nop())
	require.NoError(t, sender.Send(context.Background(), Message{To: []mail.Address{{Address: "a@example.com"}}, Text: "x"}))
	require.ErrorIs(t, sender.Send(context.Background(), Message{Text: "x"}), ErrNoRecipients)
}
