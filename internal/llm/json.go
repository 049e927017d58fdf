package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// ErrInvalidResponse marks structured output the model was asked for but
// did not produce. The offending raw text is logged here, not carried in
// the error.
var ErrInvalidResponse = fmt.Errorf("llm: invalid structured response")

// JSONCompletion requests a JSON-mode completion and decodes it into T.
// Malformed output is logged with the raw text, not repaired or retried.
func JSONCompletion[T any](ctx context.Context, c Completer, log *slog.Logger, messages []Message, opts Options) (T, error) {
	var out T
	if log == nil {
		log = slog.Default()
	}

	opts.JSONMode = true
	raw, err := c.ChatCompletion(ctx, messages, opts)
	if err != nil {
		return out, err
	}
	stripped := StripCodeFence(raw)
	if err := json.Unmarshal([]byte(stripped), &out); err != nil {
		log.Error("model returned malformed structured output", "raw", stripped, "err", err)
		return out, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return out, nil
}

// StripCodeFence removes a surrounding markdown code fence. Models sometimes
// wrap JSON output in one even in JSON mode.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
