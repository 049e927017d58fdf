package candidates

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"callcast/internal/search"
	"callcast/internal/subquery"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

type fakeSearcher struct {
	byQuery map[string][]search.Result
	errs    map[string]error
}

func (f fakeSearcher) Search(_ context.Context, query string, _ int) ([]search.Result, error) {
	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	return f.byQuery[query], nil
}

func fixedNow() time.Time { return time.Unix(1700000000, 0).UTC() }

func TestRun_DeduplicatesBySourceURL(t *testing.T) {
	f := fakeSearcher{byQuery: map[string][]search.Result{
		"q1": {
			{Title: "Listing A", URL: "https://example.com/a", Content: "Call 9876543210", Score: 0.4},
		},
		"q2": {
			// Same URL with a higher score: first occurrence still wins.
			{Title: "Listing A again", URL: "https://example.com/a", Content: "Call 9876543210", Score: 0.95},
			{Title: "Listing B", URL: "https://example.com/b", Content: "no contact info", Score: 0.5},
		},
	}}
	o := NewOrchestrator(f, nil, fixedNow)

	got := o.Run(context.Background(), []subquery.Subquery{
		{ID: 1, QueryText: "q1"},
		{ID: 2, QueryText: "q2"},
	})

	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	urls := map[string]int{}
	for _, c := range got {
		urls[c.SourceURL]++
	}
	if urls["https://example.com/a"] != 1 {
		t.Fatalf("expected exactly one candidate for duplicated url, got %d", urls["https://example.com/a"])
	}
	for _, c := range got {
		if c.SourceURL == "https://example.com/a" && c.SubqueryID != 1 {
			t.Fatalf("expected first occurrence to win, got subquery_id %d", c.SubqueryID)
		}
	}
}

func TestRun_ConfidenceFormula(t *testing.T) {
	f := fakeSearcher{byQuery: map[string][]search.Result{
		"q": {
			{Title: "With phone", URL: "https://example.com/p", Content: "Call 9876543210", Score: 0.5},
			{Title: "Without phone", URL: "https://example.com/n", Content: "nothing here", Score: 0.5},
			{Title: "Top score with phone", URL: "https://example.com/t", Content: "Call 9876543210", Score: 1.0},
			{Title: "Over-unity score no phone", URL: "https://example.com/u", Content: "nothing here", Score: 1.3},
		},
	}}
	o := NewOrchestrator(f, nil, fixedNow)

	got := o.Run(context.Background(), []subquery.Subquery{{ID: 1, QueryText: "q"}})

	byURL := map[string]Candidate{}
	for _, c := range got {
		byURL[c.SourceURL] = c
	}

	if c := byURL["https://example.com/p"]; !almostEqual(c.Confidence, 0.65) {
		t.Fatalf("phone confidence = %v", c.Confidence)
	}
	if c := byURL["https://example.com/n"]; !almostEqual(c.Confidence, 0.25) {
		t.Fatalf("no-phone confidence = %v", c.Confidence)
	}
	if c := byURL["https://example.com/t"]; !almostEqual(c.Confidence, 1) {
		t.Fatalf("capped confidence = %v", c.Confidence)
	}
	if c := byURL["https://example.com/u"]; !almostEqual(c.Confidence, 0.6) {
		t.Fatalf("no-phone cap = %v", c.Confidence)
	}

	for _, c := range got {
		if c.Confidence < 0 || c.Confidence > 1 {
			t.Fatalf("confidence out of range: %v", c.Confidence)
		}
	}
}

func TestRun_SortsByConfidenceDescending(t *testing.T) {
	f := fakeSearcher{byQuery: map[string][]search.Result{
		"q": {
			{Title: "Low", URL: "https://example.com/low", Content: "no phone", Score: 0.2},
			{Title: "High", URL: "https://example.com/high", Content: "Call 9876543210", Score: 0.9},
		},
	}}
	o := NewOrchestrator(f, nil, fixedNow)

	got := o.Run(context.Background(), []subquery.Subquery{{ID: 1, QueryText: "q"}})
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].SourceURL != "https://example.com/high" {
		t.Fatalf("expected highest confidence first, got %q", got[0].SourceURL)
	}
	if got[0].ID != 1 || got[1].ID != 2 {
		t.Fatalf("expected sequential ids after sort, got %d %d", got[0].ID, got[1].ID)
	}
}

func TestRun_ContinuesPastFailingSubquery(t *testing.T) {
	f := fakeSearcher{
		byQuery: map[string][]search.Result{
			"ok": {{Title: "Listing", URL: "https://example.com/x", Content: "Call 9876543210", Score: 0.8}},
		},
		errs: map[string]error{"broken": errors.New("provider down")},
	}
	o := NewOrchestrator(f, nil, fixedNow)

	got := o.Run(context.Background(), []subquery.Subquery{
		{ID: 1, QueryText: "broken"},
		{ID: 2, QueryText: "ok"},
	})
	if len(got) != 1 {
		t.Fatalf("expected partial results, got %d candidates", len(got))
	}
	if got[0].SubqueryID != 2 {
		t.Fatalf("expected candidate from surviving subquery")
	}
}

func TestRun_SentinelAndExtraction(t *testing.T) {
	f := fakeSearcher{byQuery: map[string][]search.Result{
		"q": {
			{Title: "2 BHK Home", URL: "https://example.com/s", Content: "Contact Prime Estates on 9876543210 located Kothrud Pune", Score: 0.7},
			{Title: "Plot", URL: "https://example.com/no", Content: "no contact details", Score: 0.7},
		},
	}}
	o := NewOrchestrator(f, nil, fixedNow)

	got := o.Run(context.Background(), []subquery.Subquery{{ID: 3, QueryText: "q", Location: "Pune"}})

	byURL := map[string]Candidate{}
	for _, c := range got {
		byURL[c.SourceURL] = c
	}

	withPhone := byURL["https://example.com/s"]
	if withPhone.DealerName != "Prime Estates" {
		t.Fatalf("unexpected dealer name: %q", withPhone.DealerName)
	}
	if withPhone.Address != "Kothrud Pune" {
		t.Fatalf("unexpected address: %q", withPhone.Address)
	}
	if withPhone.Status != StatusNew {
		t.Fatalf("expected New status, got %q", withPhone.Status)
	}

	noPhone := byURL["https://example.com/no"]
	if len(noPhone.PhoneNumbers) != 1 || noPhone.PhoneNumbers[0] != NoPhoneFound {
		t.Fatalf("expected sentinel phone entry, got %v", noPhone.PhoneNumbers)
	}
	if noPhone.Address != "Pune" {
		t.Fatalf("expected subquery location fallback, got %q", noPhone.Address)
	}
}

func TestSnippetTruncation(t *testing.T) {
	short := "short content"
	if got := snippet(short); got != short {
		t.Fatalf("short content must pass through, got %q", got)
	}

	long := strings.Repeat("a", 250)
	got := snippet(long)
	if got != strings.Repeat("a", 200)+"..." {
		t.Fatalf("unexpected ascii truncation: %d bytes", len(got))
	}

	// 199 ascii bytes then a 3-byte rune straddling the 200-byte cut.
	multibyte := strings.Repeat("a", 199) + "日本語の説明"
	got = snippet(multibyte)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "...") || len(got) > 203 {
		t.Fatalf("unexpected multibyte truncation: %q", got)
	}
}
