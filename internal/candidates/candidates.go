// Package candidates turns sub-query search results into a ranked list of
// property-dealer leads.
package candidates

import (
	"context"
	"log/slog"
	"sort"
	"time"
	"unicode/utf8"

	"callcast/internal/extract"
	"callcast/internal/search"
	"callcast/internal/subquery"
)

// NoPhoneFound is the sentinel kept in PhoneNumbers when extraction finds
// nothing; downstream call initiation rejects it.
const NoPhoneFound = "No phone number found"

// Candidate is one property-dealer lead. Created once per unique source
// URL during a search pass; later enriched in place by call updates.
type Candidate struct {
	ID            int      `json:"id"`
	SubqueryID    int      `json:"subquery_id"`
	PropertyTitle string   `json:"property_title"`
	Address       string   `json:"address,omitempty"`
	DealerName    string   `json:"dealer_name"`
	PhoneNumbers  []string `json:"phone_numbers"`
	SourceURL     string   `json:"source_url"`
	LastSeen      string   `json:"last_seen,omitempty"`
	Snippet       string   `json:"snippet,omitempty"`
	Confidence    float64  `json:"confidence"`
	Status        Status   `json:"status"`

	LastCallSummary string `json:"last_call_summary,omitempty"`
	CallTranscript  string `json:"call_transcript,omitempty"`
	RecordingURL    string `json:"recording_url,omitempty"`
}

// Status is the UI-facing call-progress state of a lead.
type Status string

const (
	StatusNew        Status = "New"
	StatusCalling    Status = "Calling"
	StatusInterested Status = "Interested"
	StatusNoAnswer   Status = "No Answer"
	StatusError      Status = "Error"
	StatusCompleted  Status = "Completed"
)

const resultsPerSubquery = 5

// Orchestrator fans sub-queries out to the search provider and assembles a
// deduplicated, confidence-ranked candidate list.
type Orchestrator struct {
	search search.Searcher
	log    *slog.Logger
	now    func() time.Time
}

func NewOrchestrator(s search.Searcher, log *slog.Logger, now func() time.Time) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{search: s, log: log, now: now}
}

// Run searches every sub-query in order and returns ranked candidates.
// A failing sub-query is logged and skipped so the batch yields partial
// results instead of nothing.
//
// Deduplication is by exact source URL across the whole batch: the first
// occurrence wins, even if a later duplicate would have scored higher.
func (o *Orchestrator) Run(ctx context.Context, subqueries []subquery.Subquery) []Candidate {
	start := o.now()
	seen := make(map[string]struct{})
	var out []Candidate

	for _, sq := range subqueries {
		results, err := o.search.Search(ctx, sq.QueryText, resultsPerSubquery)
		if err != nil {
			o.log.Warn("subquery search failed, continuing with remaining subqueries",
				"subquery_id", sq.ID, "query_text", sq.QueryText, "err", err)
			continue
		}

		for _, r := range results {
			if _, dup := seen[r.URL]; dup {
				o.log.Debug("skipping duplicate source url", "url", r.URL)
				continue
			}
			seen[r.URL] = struct{}{}
			out = append(out, o.build(sq, r))
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	for i := range out {
		out[i].ID = i + 1
	}

	o.log.Info("candidate search complete",
		"subqueries", len(subqueries),
		"candidates", len(out),
		"duration_ms", o.now().Sub(start).Milliseconds())
	return out
}

func (o *Orchestrator) build(sq subquery.Subquery, r search.Result) Candidate {
	fullText := r.Title + " " + r.Content

	phones := extract.PhoneNumbers(fullText)
	address := extract.Address(fullText, sq.QueryText)
	if address == "" {
		address = sq.Location
	}

	// Phone presence dominates ranking: a hit with a number outranks a
	// higher-scored hit without one.
	var confidence float64
	if len(phones) > 0 {
		confidence = min(r.Score*0.7+0.3, 1)
	} else {
		confidence = min(r.Score*0.5, 0.6)
		o.log.Debug("no phone numbers found", "title", r.Title, "url", r.URL)
	}
	if len(phones) == 0 {
		phones = []string{NoPhoneFound}
	}

	return Candidate{
		SubqueryID:    sq.ID,
		PropertyTitle: r.Title,
		Address:       address,
		DealerName:    extract.DealerName(fullText, r.Title),
		PhoneNumbers:  phones,
		SourceURL:     r.URL,
		LastSeen:      o.now().UTC().Format(time.RFC3339),
		Snippet:       snippet(r.Content),
		Confidence:    confidence,
		Status:        StatusNew,
	}
}

// snippet truncates to 200 bytes on a rune boundary so multi-byte
// characters are never split into invalid UTF-8.
func snippet(content string) string {
	if len(content) <= 200 {
		return content
	}
	cut := 200
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + "..."
}
