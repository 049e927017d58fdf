// Package reporting aggregates call sessions into summary metrics for the
// dashboard endpoints.
package reporting

import "callcast/internal/calls"

// SessionLister is the slice of the session store reporting reads from.
type SessionLister interface {
	All() []calls.Session
}

// CallsSummary is an aggregate view over every session held in memory.
type CallsSummary struct {
	TotalCalls int `json:"total_calls"`

	InitiatedCalls  int `json:"initiated_calls"`
	QueuedCalls     int `json:"queued_calls"`
	RingingCalls    int `json:"ringing_calls"`
	InProgressCalls int `json:"in_progress_calls"`
	CompletedCalls  int `json:"completed_calls"`
	FailedCalls     int `json:"failed_calls"`
	BusyCalls       int `json:"busy_calls"`
	NoAnswerCalls   int `json:"no_answer_calls"`
	CanceledCalls   int `json:"canceled_calls"`

	RecordedCalls   int `json:"recorded_calls"`
	SummarizedCalls int `json:"summarized_calls"`
}

type Service struct {
	sessions SessionLister
}

func NewService(sessions SessionLister) *Service { return &Service{sessions: sessions} }

// Summary walks every session and tallies per-status counts plus how many
// calls produced a recording and a post-call summary.
func (s *Service) Summary() CallsSummary {
	out := CallsSummary{}
	for _, session := range s.sessions.All() {
		out.TotalCalls++
		if session.RecordingURL != "" {
			out.RecordedCalls++
		}
		if session.Summary != "" {
			out.SummarizedCalls++
		}
		switch session.Status {
		case calls.StatusInitiated:
			out.InitiatedCalls++
		case calls.StatusQueued:
			out.QueuedCalls++
		case calls.StatusRinging:
			out.RingingCalls++
		case calls.StatusInProgress:
			out.InProgressCalls++
		case calls.StatusCompleted:
			out.CompletedCalls++
		case calls.StatusFailed:
			out.FailedCalls++
		case calls.StatusBusy:
			out.BusyCalls++
		case calls.StatusNoAnswer:
			out.NoAnswerCalls++
		case calls.StatusCanceled:
			out.CanceledCalls++
		}
	}
	return out
}
