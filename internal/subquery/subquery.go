// Package subquery expands one free-text real-estate query into structured
// web-search sub-queries via the completion provider.
package subquery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"callcast/internal/llm"
)

// Subquery is a structured, narrowed search expansion of one free-text
// query. Immutable once generated.
type Subquery struct {
	ID           int    `json:"id"`
	QueryText    string `json:"query_text"`
	Location     string `json:"location,omitempty"`
	PropertyType string `json:"property_type,omitempty"`
	PriceRange   string `json:"price_range,omitempty"`
	DateRange    string `json:"date_range,omitempty"`
	Filters      string `json:"filters,omitempty"`
	Priority     int    `json:"priority"`
	Note         string `json:"note,omitempty"`
}

const generatePrompt = `You are an assistant that converts a single free-text real-estate query into multiple structured web-search subqueries optimized for finding property dealers and their contact information.

Produce 3-8 focused subqueries covering likely variants. Each query_text should include keywords like "dealer", "agent", "contact", "phone", "broker", or "real estate" to maximize finding contact information. If no date range is specified, infer a relevant one such as "last 30 days" to find recent listings.

Your entire response MUST be a single JSON object of the form:
{"subqueries": [{"id": 1, "query_text": "...", "location": "...", "property_type": "...", "price_range": "...", "date_range": "...", "filters": null, "priority": 1, "note": "..."}]}

Unknown fields may be null. Priority runs 1-5 with 1 highest.`

type generateResponse struct {
	Subqueries []Subquery `json:"subqueries"`
}

// Generate expands query into 3-8 sub-queries. Malformed model output is
// logged with the raw text by the llm layer and surfaced as
// llm.ErrInvalidResponse; there is no repair or retry.
func Generate(ctx context.Context, c llm.Completer, log *slog.Logger, query string) ([]Subquery, error) {
	if log == nil {
		log = slog.Default()
	}
	if query == "" {
		return nil, errors.New("subquery: query is required")
	}

	resp, err := llm.JSONCompletion[generateResponse](ctx, c, log, []llm.Message{
		{Role: "system", Content: generatePrompt},
		{Role: "user", Content: "User Query: " + query},
	}, llm.Options{Temperature: 0.5})
	if err != nil {
		return nil, fmt.Errorf("subquery: generation: %w", err)
	}
	if len(resp.Subqueries) == 0 {
		log.Warn("model returned no subqueries", "query", query)
	}
	for i, sq := range resp.Subqueries {
		log.Debug("generated subquery", "n", i+1, "id", sq.ID, "query_text", sq.QueryText, "priority", sq.Priority)
	}
	return resp.Subqueries, nil
}
