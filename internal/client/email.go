// Client for the outbound transactional-email API.
//
// Environment:
//   - EMAIL_API_KEY: bearer key for the mail API; delivery is disabled when empty
//   - EMAIL_API_URL: send endpoint (default: SendGrid v3 mail/send)
//   - EMAIL_FROM: sender address

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/taskapp/backend/internal/config"
)

type EmailClient struct {
	apiKey     string
	apiURL     string
	from       string
	httpClient *http.Client
}

type emailAddress struct {
	Email string `json:"email"`
}

type emailPersonalization struct {
	To []emailAddress `json:"to"`
}

type emailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type emailMessage struct {
	Personalizations []emailPersonalization `json:"personalizations"`
	From             emailAddress           `json:"from"`
	Subject          string                 `json:"subject"`
	Content          []emailContent         `json:"content"`
}

func NewEmailClient(cfg config.EmailConfig) *EmailClient {
	return &EmailClient{
		apiKey: cfg.APIKey,
		apiURL: cfg.APIURL,
		from:   cfg.From,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *EmailClient) IsConfigured() bool {
	return c.apiKey != ""
}

func (c *EmailClient) SendWelcome(ctx context.Context, email, name string) error {
	return c.send(ctx, email,
		"Welcome to the Task App",
		fmt.Sprintf("Thanks for signing up, %s!", name))
}

func (c *EmailClient) SendCancellation(ctx context.Context, email, name string) error {
	return c.send(ctx, email,
		"Sorry to see you leave Task App",
		fmt.Sprintf("Thanks %s for using Task App, we will miss you!", name))
}

func (c *EmailClient) send(ctx context.Context, to, subject, text string) error {
	if !c.IsConfigured() {
		return nil
	}

	msg := emailMessage{
		Personalizations: []emailPersonalization{{To: []emailAddress{{Email: to}}}},
		From:             emailAddress{Email: c.from},
		Subject:          subject,
		Content:          []emailContent{{Type: "text/plain", Value: text}},
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mail API error: status %d: %s", resp.StatusCode, body)
	}

	return nil
}
