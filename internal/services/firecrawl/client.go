package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPDoer describes the HTTP client used by the Firecrawl service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config captures the runtime settings required to talk to Firecrawl.
type Config struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
	MaxResults     int
}

// SearchResult is one competitor page returned by a search.
type SearchResult struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Markdown    string `json:"markdown,omitempty"`
}

// Client wraps the Firecrawl search and scrape endpoints.
type Client struct {
	cfg    Config
	client HTTPDoer
}

// NewClient constructs a Firecrawl client using the supplied configuration.
func NewClient(cfg Config) *Client {
	timeout := 30 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	return &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			TimeoutSeconds: cfg.TimeoutSeconds,
			MaxResults:     cfg.MaxResults,
		},
		client: &http.Client{Timeout: timeout},
	}
}

// NewClientWithDoer constructs a client with a custom HTTP doer (used in tests).
func NewClientWithDoer(cfg Config, doer HTTPDoer) *Client {
	c := NewClient(cfg)
	if doer != nil {
		c.client = doer
	}
	return c
}

// Configured reports whether the client has a usable credential.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != "" && c.cfg.BaseURL != ""
}

// Search queries Firecrawl for pages matching the query and returns up to
// MaxResults entries.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("firecrawl search: query required")
	}
	if !c.Configured() {
		return nil, fmt.Errorf("firecrawl search: api key required")
	}

	payload := map[string]any{
		"query": query,
		"limit": c.cfg.MaxResults,
	}
	var parsed struct {
		Success bool `json:"success"`
		Data    []struct {
			URL         string `json:"url"`
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"data"`
		Error string `json:"error"`
	}
	if err := c.post(ctx, "/search", payload, &parsed); err != nil {
		return nil, err
	}
	if !parsed.Success {
		return nil, fmt.Errorf("firecrawl search: api error: %s", strings.TrimSpace(parsed.Error))
	}

	results := make([]SearchResult, 0, len(parsed.Data))
	for _, item := range parsed.Data {
		if strings.TrimSpace(item.URL) == "" {
			continue
		}
		results = append(results, SearchResult{
			URL:         item.URL,
			Title:       strings.TrimSpace(item.Title),
			Description: strings.TrimSpace(item.Description),
		})
	}
	return results, nil
}

// Scrape fetches one page as markdown.
func (c *Client) Scrape(ctx context.Context, pageURL string) (string, error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return "", fmt.Errorf("firecrawl scrape: url required")
	}
	if !c.Configured() {
		return "", fmt.Errorf("firecrawl scrape: api key required")
	}

	payload := map[string]any{
		"url":     pageURL,
		"formats": []string{"markdown"},
	}
	var parsed struct {
		Success bool `json:"success"`
		Data    struct {
			Markdown string `json:"markdown"`
		} `json:"data"`
		Error string `json:"error"`
	}
	if err := c.post(ctx, "/scrape", payload, &parsed); err != nil {
		return "", err
	}
	if !parsed.Success {
		return "", fmt.Errorf("firecrawl scrape: api error: %s", strings.TrimSpace(parsed.Error))
	}
	return parsed.Data.Markdown, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, target any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("firecrawl request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("firecrawl request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("firecrawl request: http error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("firecrawl request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("firecrawl request: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("firecrawl request: decode response: %w", err)
	}
	return nil
}
