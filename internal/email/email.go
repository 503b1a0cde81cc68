package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Config points at a listmonk instance. To is the support inbox that
// receives handoff alerts.
type Config struct {
	BaseURL    string
	Username   string
	Password   string
	TemplateID int
	To         string
}

type Client struct {
	config Config
	http   *http.Client
}

func New(cfg Config) *Client {
	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

type txRequest struct {
	SubscriberEmail string            `json:"subscriber_email"`
	TemplateID      int               `json:"template_id"`
	Data            map[string]string `json:"data"`
	ContentType     string            `json:"content_type"`
}

// NotifyHandoff emails the support inbox through listmonk's transactional
// API. Without a base URL the alert is only logged.
func (c *Client) NotifyHandoff(ctx context.Context, widgetID, handoffID, message string) error {
	if c.config.BaseURL == "" || c.config.To == "" {
		slog.Info("email: not configured, skipping handoff alert", "widget_id", widgetID, "handoff_id", handoffID)
		return nil
	}

	body := txRequest{
		SubscriberEmail: c.config.To,
		TemplateID:      c.config.TemplateID,
		Data: map[string]string{
			"widgetId":  widgetID,
			"handoffId": handoffID,
			"message":   message,
		},
		ContentType: "html",
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/tx", bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create email request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.config.Username, c.config.Password)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send handoff email: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("listmonk returned status %d", resp.StatusCode)
	}
	return nil
}
