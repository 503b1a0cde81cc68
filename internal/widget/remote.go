package widget

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const maxRemoteBodyBytes = 1 << 20

// Fetcher looks up an option set that is not known locally.
type Fetcher interface {
	Fetch(ctx context.Context, setID string) ([]Option, error)
}

// RemoteSource fetches option sets from <endpoint>/options/<id>.
type RemoteSource struct {
	endpoint string
	http     *http.Client
}

// NewRemoteSource returns a source for endpoint. A nil client means
// http.DefaultClient; no request timeout is applied beyond ctx.
func NewRemoteSource(endpoint string, client *http.Client) *RemoteSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteSource{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     client,
	}
}

func (r *RemoteSource) Endpoint() string {
	return r.endpoint
}

func (r *RemoteSource) Fetch(ctx context.Context, setID string) ([]Option, error) {
	target := r.endpoint + "/options/" + url.PathEscape(setID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create options request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch options %q: %w", setID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch options %q: remote returned status %d", setID, resp.StatusCode)
	}

	var opts []Option
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxRemoteBodyBytes)).Decode(&opts); err != nil {
		return nil, fmt.Errorf("decode options %q: %w", setID, err)
	}
	return opts, nil
}
