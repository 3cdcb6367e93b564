package dictionary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"snaplens/internal/config"
)

// Client looks up word definitions against a collegiate-dictionary HTTP API.
// All failure modes (network errors, timeouts, non-200 statuses, malformed
// JSON, unexpected shapes) degrade to the Fallback string. No retries.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient builds a dictionary client with a fixed short request timeout.
func NewClient(cfg config.DictionaryConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}
}

// Lookup fetches a definition for word. It never returns an error: any
// failure is coerced to Fallback, which the gallery renders as-is.
func (c *Client) Lookup(ctx context.Context, word string) string {
	u := fmt.Sprintf("%s/%s?key=%s", c.baseURL, url.PathEscape(word), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Fallback
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Fallback
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Fallback
	}

	// A miss returns a list of spelling suggestions (strings) rather than
	// entry objects; both that and an empty list fall through to Fallback.
	var data []any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return Fallback
	}
	if len(data) == 0 {
		return Fallback
	}
	entry, ok := data[0].(map[string]any)
	if !ok {
		return Fallback
	}

	return Extract(entry)
}
