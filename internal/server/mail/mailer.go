// Package mail sends operator notifications through the transactional
// email provider's HTTP API. There is no self-service reset flow:
// forgot-password emails go to a fixed operator inbox instructing a
// manual reset, never to the requester.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Mailer is the notification side-channel consumed by the auth service.
type Mailer interface {
	// SendResetRequest notifies the operator inbox that an account
	// asked for a password reset.
	SendResetRequest(ctx context.Context, role, name, email string, at time.Time) error
}

// Client talks to the provider's JSON-over-HTTP send endpoint with a
// bearer API key.
type Client struct {
	endpoint string
	apiKey   string
	from     string
	operator string
	http     *http.Client
}

func NewClient(endpoint, apiKey, from, operator string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		from:     from,
		operator: operator,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

func (c *Client) SendResetRequest(ctx context.Context, role, name, email string, at time.Time) error {
	body := sendRequest{
		From:    c.from,
		To:      []string{c.operator},
		Subject: fmt.Sprintf("Password reset requested (%s)", role),
		Text: fmt.Sprintf(
			"A password reset was requested and needs a manual reset.\n\nRole: %s\nName: %s\nEmail: %s\nRequested at: %s\n",
			role, name, email, at.UTC().Format(time.RFC3339)),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mail provider returned %d: %s", resp.StatusCode, detail)
	}
	return nil
}

// Noop is used when no provider key is configured; sends succeed
// silently.
type Noop struct{}

func (Noop) SendResetRequest(ctx context.Context, role, name, email string, at time.Time) error {
	return nil
}
