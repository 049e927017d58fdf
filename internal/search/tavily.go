// Package search wraps the Tavily web-search API.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://api.tavily.com"

// Result is one ranked search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Searcher is the narrow interface the candidate orchestrator depends on.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// Client talks to Tavily over its JSON API.
type Client struct {
	http   *resty.Client
	apiKey string
	log    *slog.Logger
}

// NewClient builds a Tavily client. baseURL overrides the production
// endpoint; pass "" outside of tests.
func NewClient(apiKey, baseURL string, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30 * time.Second),
		apiKey: apiKey,
		log:    log,
	}
}

type searchRequest struct {
	APIKey            string   `json:"api_key"`
	Query             string   `json:"query"`
	SearchDepth       string   `json:"search_depth"`
	IncludeRawContent bool     `json:"include_raw_content"`
	MaxResults        int      `json:"max_results"`
	IncludeDomains    []string `json:"include_domains"`
	ExcludeDomains    []string `json:"exclude_domains"`
}

type searchResponse struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
}

// Search issues one bounded web search and returns ranked results.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 5
	}

	// ForceContentType keeps a mislabelled 200 from silently decoding to
	// zero results.
	var out searchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetBody(searchRequest{
			APIKey:            c.apiKey,
			Query:             query,
			SearchDepth:       "advanced",
			IncludeRawContent: false,
			MaxResults:        maxResults,
			IncludeDomains:    []string{},
			ExcludeDomains:    []string{},
		}).
		SetResult(&out).
		Post("/search")
	if err != nil {
		c.log.Error("search request failed", "query", query, "err", err)
		return nil, fmt.Errorf("search: tavily request: %w", err)
	}
	if resp.IsError() {
		c.log.Error("search provider error",
			"query", query, "status", resp.StatusCode(), "body", resp.String())
		return nil, fmt.Errorf("search: tavily status %d", resp.StatusCode())
	}

	c.log.Debug("search complete", "query", query, "results", len(out.Results))
	return out.Results, nil
}
