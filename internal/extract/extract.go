// Package extract pulls phone numbers, dealer names, and addresses out of
// unstructured search-result text.
//
// Everything here is a regex heuristic with known failure modes (any
// capitalized two-word phrase near "at"/"on" can be mistaken for a name).
// Each concern is an ordered cascade of independent patterns combined by
// first success, so individual patterns stay testable in isolation.
package extract

import (
	"regexp"
	"strings"
)

// phonePatterns is a fixed ordered set of regional formats. Order matters:
// earlier patterns claim their match string first and dedup is by the
// trimmed matched substring, not by normalized digits.
var phonePatterns = []*regexp.Regexp{
	// Indian mobile numbers with optional country code
	regexp.MustCompile(`(?:\+91[-\s]?)?[6-9]\d{9}\b`),
	regexp.MustCompile(`(?:91[-\s]?)?[6-9]\d{9}\b`),
	regexp.MustCompile(`\b[6-9]\d{2}[-\s]?\d{3}[-\s]?\d{4}\b`),
	// US-style
	regexp.MustCompile(`(?:\+1[-\s]?)?\(?\d{3}\)?[-\s]?\d{3}[-\s]?\d{4}\b`),
	// Generic international with country code
	regexp.MustCompile(`\+\d{1,3}[-\s]?\d{3,4}[-\s]?\d{3,4}[-\s]?\d{3,4}\b`),
	// Dotted: 987.654.3210
	regexp.MustCompile(`\b\d{3}\.\d{3}\.\d{4}\b`),
}

var nonDigit = regexp.MustCompile(`\D`)

// PhoneNumbers returns every distinct phone-number string found in text,
// in first-seen order. Two different-looking strings for the same number
// are NOT merged; candidates outside 10-15 digits are discarded.
func PhoneNumbers(text string) []string {
	seen := make(map[string]struct{})
	var out []string

	for _, p := range phonePatterns {
		for _, m := range p.FindAllString(text, -1) {
			m = strings.TrimSpace(m)
			digits := nonDigit.ReplaceAllString(m, "")
			if len(digits) < 10 || len(digits) > 15 {
				continue
			}
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

// DealerPlaceholder is returned when no name pattern matches.
const DealerPlaceholder = "Property Dealer"

var dealerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i:contact|call|reach)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`),
	regexp.MustCompile(`([A-Z][a-z]+\s+(?:Properties|Realty|Estates|Developers|Builders|Real\s+Estate))`),
	regexp.MustCompile(`(?i:by|from)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`),
	regexp.MustCompile(`([A-Z][a-z]+\s+[A-Z][a-z]+)\s+(?i:at|on)\b`),
}

var dealerTitlePattern = regexp.MustCompile(`([A-Z][a-z]+\s+(?:Properties|Realty|Estates))`)

// DealerName extracts the dealer or agency name from snippet text, falling
// back to a title-based pattern, then to a fixed placeholder.
func DealerName(text, title string) string {
	for _, p := range dealerPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	if m := dealerTitlePattern.FindStringSubmatch(title); m != nil {
		return strings.TrimSpace(m[1])
	}
	return DealerPlaceholder
}

var addressPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:in|at|near|located)\s+([A-Z][a-z]+(?:,?\s+[A-Z][a-z]+)*)`),
	regexp.MustCompile(`([A-Z][a-z]+,\s*[A-Z][a-z]+)`),
}

var queryLocationPattern = regexp.MustCompile(`(?i:in|at|near)\s+([A-Za-z]+(?:\s+[A-Za-z]+)?)`)

// Address extracts a location from snippet text, falling back to scanning
// the originating query, else returns "".
func Address(text, query string) string {
	for _, p := range addressPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	if m := queryLocationPattern.FindStringSubmatch(query); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}
