package calls

import (
	"fmt"
	"strings"
	"time"
)

// Turn is one exchange unit in a call conversation, attributed to either
// the automated agent or the human dealer.
type Turn struct {
	Role    TurnRole `json:"role"`
	Content string   `json:"content"`
}

type TurnRole string

const (
	TurnRoleUser  TurnRole = "user"  // dealer speech, transcribed by the provider
	TurnRoleAgent TurnRole = "agent" // synthesized assistant line
)

// Session is the server-side state tracked for one outbound phone call
// across all of its conversational turns. It is keyed by the provider's
// opaque call identifier (Twilio CallSid).
//
// History is conversational order and is never reordered. Transcript is
// derived from History and regenerated whenever History changes.
type Session struct {
	CallSid       string    `json:"call_sid"`
	PropertyTitle string    `json:"property_title"`
	DealerName    string    `json:"dealer_name"`
	History       []Turn    `json:"history"`
	Transcript    string    `json:"transcript"`
	Status        Status    `json:"status"`
	Summary       string    `json:"summary,omitempty"`
	RecordingURL  string    `json:"recording_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Status is the call lifecycle state. Values mirror the telephony
// provider's wire vocabulary; the provider's status callback owns them.
type Status string

const (
	StatusInitiated  Status = "initiated"
	StatusQueued     Status = "queued"
	StatusRinging    Status = "ringing"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusBusy       Status = "busy"
	StatusNoAnswer   Status = "no-answer"
	StatusCanceled   Status = "canceled"
)

// ParseStatus validates a provider-sent status string against the closed
// vocabulary. Unknown strings are rejected rather than stored verbatim.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.TrimSpace(strings.ToLower(s))); st {
	case StatusInitiated, StatusQueued, StatusRinging, StatusInProgress,
		StatusCompleted, StatusFailed, StatusBusy, StatusNoAnswer, StatusCanceled:
		return st, nil
	default:
		return "", fmt.Errorf("calls: unknown call status %q", s)
	}
}

// IsTerminal reports whether the status ends summary/recording activity.
// Canceled calls never connected, so no summary is generated for them.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusBusy, StatusNoAnswer, StatusCanceled:
		return true
	default:
		return false
	}
}

// ShouldSummarize reports whether a terminal status triggers transcript
// summarization.
func (s Status) ShouldSummarize() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusBusy, StatusNoAnswer:
		return true
	default:
		return false
	}
}

// ValidTransition reports whether moving from one status to another follows
// the provider's documented lifecycle. Repeated delivery of the same status
// is valid (providers redeliver callbacks).
func ValidTransition(from, to Status) bool {
	if from == to {
		return true
	}
	if from.IsTerminal() {
		return false
	}
	switch from {
	case StatusInitiated:
		return true // anything can follow the locally-assigned initial state
	case StatusQueued:
		return to != StatusInitiated
	case StatusRinging:
		return to != StatusInitiated && to != StatusQueued
	case StatusInProgress:
		return to.IsTerminal()
	default:
		return false
	}
}

// RenderTranscript produces the human-readable form of a turn history:
// one "User: ..."/"Agent: ..." line per turn, newline separated.
func RenderTranscript(history []Turn) string {
	var b strings.Builder
	for i, t := range history {
		if i > 0 {
			b.WriteByte('\n')
		}
		if t.Role == TurnRoleUser {
			b.WriteString("User: ")
		} else {
			b.WriteString("Agent: ")
		}
		b.WriteString(t.Content)
	}
	return b.String()
}
