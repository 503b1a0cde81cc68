package chat

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sendrec/vidwidget/internal/database"
)

const (
	maxResponseBodyBytes = 1024
	attemptTimeout       = 10 * time.Second
)

var defaultRetryDelays = []time.Duration{1 * time.Second, 4 * time.Second}

// deliveryBudget is the longest Deliver can run: every attempt timing out
// plus every back-off.
func deliveryBudget(delays []time.Duration) time.Duration {
	total := time.Duration(len(delays)+1) * attemptTimeout
	for _, d := range delays {
		total += d
	}
	return total
}

var ErrNotConfigured = errors.New("chat webhook not configured")

type Config struct {
	WebhookURL string
	Secret     string
}

// Handoff is the payload posted to the chat webhook when a visitor picks a
// start-chat option.
type Handoff struct {
	ID        string    `json:"handoffId"`
	WidgetID  string    `json:"widgetId"`
	SessionID string    `json:"sessionId,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Client relays handoffs to the chat webhook with retries, logging every
// attempt to chat_handoffs.
type Client struct {
	db          database.DBTX
	http        *http.Client
	cfg         Config
	retryDelays []time.Duration
}

func New(db database.DBTX, cfg Config) *Client {
	return &Client{
		db:          db,
		http:        &http.Client{Timeout: attemptTimeout},
		cfg:         cfg,
		retryDelays: defaultRetryDelays,
	}
}

func (c *Client) Enabled() bool {
	return c.cfg.WebhookURL != ""
}

// SignPayload computes HMAC-SHA256 of the payload using the secret.
func SignPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Deliver posts the handoff with up to 3 attempts and returns its id.
func (c *Client) Deliver(ctx context.Context, widgetID, sessionID, message string) (string, error) {
	if !c.Enabled() {
		return "", ErrNotConfigured
	}

	handoff := Handoff{
		ID:        uuid.NewString(),
		WidgetID:  widgetID,
		SessionID: sessionID,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	body, err := json.Marshal(handoff)
	if err != nil {
		return "", fmt.Errorf("marshal handoff: %w", err)
	}

	signature := SignPayload(c.cfg.Secret, body)
	maxAttempts := 1 + len(c.retryDelays)
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		statusCode, respBody, err := c.doPost(ctx, body, signature)
		c.logAttempt(ctx, handoff, statusCode, respBody, attempt)

		if err == nil && statusCode != nil && *statusCode >= 200 && *statusCode < 300 {
			return handoff.ID, nil
		}

		if err != nil {
			lastErr = err
		} else if statusCode != nil {
			lastErr = fmt.Errorf("chat webhook returned status %d", *statusCode)
		}

		if attempt < maxAttempts {
			select {
			case <-time.After(c.retryDelays[attempt-1]):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	return "", lastErr
}

func (c *Client) doPost(ctx context.Context, body []byte, signature string) (*int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Widget-Signature", signature)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err.Error(), err
	}
	defer func() { _ = resp.Body.Close() }()

	respBytes, _ := io.ReadAll(io.LimitReader(resp.Body, int64(maxResponseBodyBytes)+1))
	respBody := string(respBytes)
	if len(respBody) > maxResponseBodyBytes {
		respBody = respBody[:maxResponseBodyBytes]
	}

	return &resp.StatusCode, respBody, nil
}

func (c *Client) logAttempt(ctx context.Context, h Handoff, statusCode *int, responseBody string, attempt int) {
	var sessionID *string
	if h.SessionID != "" {
		sessionID = &h.SessionID
	}
	if _, err := c.db.Exec(ctx,
		`INSERT INTO chat_handoffs (handoff_id, widget_id, session_id, message, status_code, response_body, attempt)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		h.ID, h.WidgetID, sessionID, h.Message, statusCode, responseBody, attempt,
	); err != nil {
		slog.Error("chat: failed to log handoff attempt", "handoff_id", h.ID, "widget_id", h.WidgetID, "error", err)
	}
}
