package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const sendgridMailEndpoint = "https://api.sendgrid.com/v3/mail/send"

// SendGridDispatcher sends mail through the SendGrid v3 Mail Send API.
type SendGridDispatcher struct {
	apiKey   string
	from     string
	endpoint string
	client   *http.Client
}

func NewSendGridDispatcher(apiKey, from string) *SendGridDispatcher {
	return &SendGridDispatcher{
		apiKey:   apiKey,
		from:     from,
		endpoint: sendgridMailEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// WithEndpoint points the dispatcher at a different Mail Send URL.
func (d *SendGridDispatcher) WithEndpoint(endpoint string) *SendGridDispatcher {
	clone := *d
	clone.endpoint = endpoint
	return &clone
}

func (d *SendGridDispatcher) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	payload := sgMailPayload{
		Personalizations: []sgPersonalization{{
			To: []sgAddress{{Email: msg.To}},
		}},
		From:    sgAddress{Email: d.from},
		Subject: msg.Subject,
		Content: []sgContent{{Type: "text/html", Value: msg.HTML}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal SendGrid payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create SendGrid request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("SendGrid request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("SendGrid returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

type sgMailPayload struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}
