package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sendrec/vidwidget/internal/widget"
)

// relayTimeout outlasts the server's retries so a slow but successful
// handoff is not reported as unavailable.
var relayTimeout = deliveryBudget(defaultRetryDelays) + 10*time.Second

// Remote is the widget-side chat capability. It relays opening messages
// through a vidwidget server using a session token.
type Remote struct {
	endpoint string
	widgetID string
	token    string
	http     *http.Client
}

func NewRemote(endpoint, widgetID, token string) *Remote {
	return &Remote{
		endpoint: strings.TrimRight(endpoint, "/"),
		widgetID: widgetID,
		token:    token,
		http:     &http.Client{Timeout: relayTimeout},
	}
}

// Available reports whether a relay target and a session are known. It does
// not probe the server.
func (r *Remote) Available() bool {
	return r.endpoint != "" && r.token != ""
}

func (r *Remote) Open(ctx context.Context, message string) error {
	body, err := json.Marshal(relayRequest{Message: message})
	if err != nil {
		return fmt.Errorf("marshal chat message: %w", err)
	}
	target := r.endpoint + "/api/widgets/" + url.PathEscape(r.widgetID) + "/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.token)

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("relay chat message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("relay chat message: server returned status %d", resp.StatusCode)
	}
	return nil
}

var _ widget.Chat = (*Remote)(nil)
