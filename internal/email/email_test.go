package email

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetLink(t *testing.T) {
	assert.Equal(t, "http://localhost:3000/reset-password/abc", ResetLink("http://localhost:3000", "abc"))
	assert.Equal(t, "http://localhost:3000/reset-password/abc", ResetLink("http://localhost:3000/", "abc"))
}

func TestNewResetPasswordMessage(t *testing.T) {
	msg := NewResetPasswordMessage("ana@example.com", "http://app/reset-password/abc?x=1&y=2")

	assert.Equal(t, "ana@example.com", msg.To)
	assert.Equal(t, ResetPasswordSubject, msg.Subject)
	assert.Contains(t, msg.HTML, `href="http://app/reset-password/abc?x=1&amp;y=2"`)
}

func TestSendGridDispatcherSend(t *testing.T) {
	var (
		gotAuth    string
		gotPayload sgMailPayload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotPayload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	d := NewSendGridDispatcher("sg-key", "noreply@example.com").WithEndpoint(srv.URL)
	err := d.Send(context.Background(), NewResetPasswordMessage("ana@example.com", "http://app/reset-password/t"))
	require.NoError(t, err)

	assert.Equal(t, "Bearer sg-key", gotAuth)
	require.Len(t, gotPayload.Personalizations, 1)
	assert.Equal(t, "ana@example.com", gotPayload.Personalizations[0].To[0].Email)
	assert.Equal(t, "noreply@example.com", gotPayload.From.Email)
	assert.Equal(t, ResetPasswordSubject, gotPayload.Subject)
	require.Len(t, gotPayload.Content, 1)
	assert.Equal(t, "text/html", gotPayload.Content[0].Type)
}

func TestSendGridDispatcherProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	d := NewSendGridDispatcher("wrong", "noreply@example.com").WithEndpoint(srv.URL)
	err := d.Send(context.Background(), Message{To: "ana@example.com", Subject: "s", HTML: "<p>x</p>"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "401"))
}

func TestSendRejectsIncompleteMessage(t *testing.T) {
	d := NewSendGridDispatcher("k", "noreply@example.com").WithEndpoint("http://127.0.0.1:0")
	assert.ErrorIs(t, d.Send(context.Background(), Message{Subject: "s"}), ErrInvalidMessage)
	assert.ErrorIs(t, d.Send(context.Background(), Message{To: "a@b.c"}), ErrInvalidMessage)
}

func TestSMTPDispatcherBuildMessage(t *testing.T) {
	d := NewSMTPDispatcher(SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "noreply@example.com"})

	m, err := d.buildMessage(NewResetPasswordMessage("ana@example.com", "http://app/reset-password/t"))
	require.NoError(t, err)
	assert.Equal(t, []string{"<noreply@example.com>"}, m.GetFromString())
	assert.Equal(t, []string{"<ana@example.com>"}, m.GetToString())

	_, err = d.buildMessage(Message{To: "not an address", Subject: "s"})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}
