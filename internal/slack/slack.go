package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Client posts chat handoff alerts to a Slack incoming webhook.
type Client struct {
	webhookURL string
	http       *http.Client
}

func New(webhookURL string) *Client {
	return &Client{
		webhookURL: webhookURL,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

type block struct {
	Type     string `json:"type"`
	Text     *text  `json:"text,omitempty"`
	Elements []text `json:"elements,omitempty"`
}

type text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type payload struct {
	Blocks []block `json:"blocks"`
}

func (c *Client) postMessage(ctx context.Context, p payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send slack message: %w", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}

// NotifyHandoff tells the support channel that a visitor asked to chat.
// Delivery failures are logged and never returned.
func (c *Client) NotifyHandoff(ctx context.Context, widgetID, handoffID, message string) error {
	p := payload{
		Blocks: []block{
			{
				Type: "section",
				Text: &text{
					Type: "mrkdwn",
					Text: fmt.Sprintf(":wave: *A visitor wants to chat*\n> %s", message),
				},
			},
			{
				Type: "context",
				Elements: []text{
					{
						Type: "mrkdwn",
						Text: fmt.Sprintf("widget `%s` · handoff `%s`", widgetID, handoffID),
					},
				},
			},
		},
	}

	if err := c.postMessage(ctx, p); err != nil {
		slog.Error("slack: failed to send handoff notification", "widget_id", widgetID, "handoff_id", handoffID, "error", err)
	}
	return nil
}
