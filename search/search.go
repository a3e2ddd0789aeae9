// Package search provides a pluggable web-search backend and a lightweight
// query-expansion + relevance rerank pass over the merged results, mirroring
// the engine-aggregation contract of the original Rust search tool without
// depending on any single search provider's SDK.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Result is a single search hit, provider-agnostic.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet,omitempty"`
	Engine  string  `json:"engine,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// Backend performs a web search and returns raw, unranked results.
type Backend interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// SearXNGBackend queries a self-hosted or public SearXNG-compatible instance
// over its JSON API. No vendor SDK exists for this, so it is implemented
// directly over net/http following the same HTTP-client conventions as
// engine.HTTPEngine.
type SearXNGBackend struct {
	BaseURL string
	Client  *http.Client
}

// NewSearXNGBackend builds a backend against baseURL (e.g.
// "https://searx.example.com"). A nil/empty baseURL is valid and simply
// yields a backend whose Search calls always fail, so callers can still
// construct the handler chain before a backend URL is configured.
func NewSearXNGBackend(baseURL string) *SearXNGBackend {
	return &SearXNGBackend{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type searxngResponse struct {
	Results []searxngResult `json:"results"`
}

type searxngResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
	Engine  string `json:"engine"`
}

// Search queries the configured SearXNG instance's /search?format=json endpoint.
func (b *SearXNGBackend) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if b.BaseURL == "" {
		return nil, fmt.Errorf("search: no backend URL configured")
	}

	endpoint := fmt.Sprintf("%s/search?q=%s&format=json", b.BaseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search: backend returned status %d", resp.StatusCode)
	}

	var parsed searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("search: decoding response: %w", err)
	}

	out := make([]Result, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.URL == "" {
			continue
		}
		out = append(out, Result{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
			Engine:  r.Engine,
		})
		if maxResults > 0 && len(out) >= maxResults {
			break
		}
	}
	return out, nil
}
