// Package email sends auth email via the SendGrid v3 mail API.
// See https://www.twilio.com/docs/sendgrid/api-reference/mail-send/mail-send.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"veo-auth-service/internal/notify"
)

const defaultTimeout = 15 * time.Second

// Client sends email via the SendGrid HTTP API.
type Client struct {
	APIKey     string
	BaseURL    string
	From       string
	HTTPClient *http.Client
}

// NewClient returns a client that uses the given API key, optional base URL, and sender address.
func NewClient(apiKey, baseURL, from string) *Client {
	if baseURL == "" {
		baseURL = "https://api.sendgrid.com/v3/mail/send"
	}
	return &Client{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		From:       from,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Name identifies the channel in dispatch summaries.
func (c *Client) Name() string { return "email" }

// Send delivers the message to msg.To. Does not log the body (it may carry a
// code or magic-link token).
func (c *Client) Send(ctx context.Context, msg notify.Message) error {
	if c.APIKey == "" {
		return fmt.Errorf("email: API key not configured")
	}
	body := map[string]interface{}{
		"personalizations": []map[string]interface{}{
			{"to": []map[string]string{{"email": msg.To}}},
		},
		"from":    map[string]string{"email": c.From},
		"subject": msg.Subject,
		"content": []map[string]string{
			{"type": "text/plain", "value": msg.Body},
		},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("email: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
