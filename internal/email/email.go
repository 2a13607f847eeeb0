// Package email delivers transactional messages such as password resets.
package email

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
)

// ResetPasswordSubject is the subject line of password-reset messages.
const ResetPasswordSubject = "Reset your password"

var ErrInvalidMessage = errors.New("invalid email message")

// Message is a single HTML email addressed to one recipient.
type Message struct {
	To      string
	Subject string
	HTML    string
}

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("%w: missing recipient", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: missing subject", ErrInvalidMessage)
	}
	return nil
}

// Dispatcher sends a message and returns only after the provider accepted it.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

// ResetLink builds the frontend URL a user follows to pick a new password.
func ResetLink(frontendURL, token string) string {
	return strings.TrimRight(frontendURL, "/") + "/reset-password/" + token
}

// NewResetPasswordMessage renders the password-reset email for link.
func NewResetPasswordMessage(to, link string) Message {
	escaped := html.EscapeString(link)
	var b strings.Builder
	b.WriteString("<h1>Password reset</h1>")
	b.WriteString("<p>We received a request to reset the password for your account.</p>")
	b.WriteString(`<p><a href="` + escaped + `">Click here to choose a new password</a></p>`)
	b.WriteString("<p>This link expires in one hour. If you did not ask for a reset, ignore this email.</p>")

	return Message{
		To:      to,
		Subject: ResetPasswordSubject,
		HTML:    b.String(),
	}
}
