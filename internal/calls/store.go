package calls

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Store is the process-local session store, keyed by provider call id.
//
// The mutex only protects map and struct memory. Webhook turns still do an
// unserialized read-modify-write of History across two Store calls; if the
// provider ever delivered two callbacks for one call concurrently, the last
// write would win. The provider serializes per-call delivery, so this gap
// is accepted.
//
// Sessions live for the process lifetime; nothing deletes them.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session

	log *slog.Logger
	now func() time.Time
}

// NewStore builds an empty session store. log and now are optional; they
// exist so tests can capture output and freeze time.
func NewStore(log *slog.Logger, now func() time.Time) *Store {
	if log == nil {
		log = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Store{
		sessions: make(map[string]*Session),
		log:      log,
		now:      now,
	}
}

// Initialize creates a session with empty history and "initiated" status.
// A prior entry for the same call id is overwritten; that reset is intended
// behavior, not a bug (the initiating action always starts a fresh call).
func (s *Store) Initialize(callSid, propertyTitle, dealerName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sessions[callSid] = &Session{
		CallSid:       callSid,
		PropertyTitle: propertyTitle,
		DealerName:    dealerName,
		History:       []Turn{},
		Status:        StatusInitiated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.log.Debug("call session initialized", "call_sid", callSid, "sessions", len(s.sessions))
}

// UpdateHistory replaces the turn history wholesale and regenerates the
// transcript. Absent sessions are a logged no-op.
func (s *Store) UpdateHistory(callSid string, history []Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[callSid]
	if !ok {
		s.log.Warn("cannot update history, session not found", "call_sid", callSid)
		return
	}
	sess.History = append([]Turn(nil), history...)
	sess.Transcript = RenderTranscript(sess.History)
	sess.UpdatedAt = s.now()
}

// UpdateStatus mirrors a provider-reported status locally. Invalid
// transitions are logged but still applied: the provider owns this field
// and last write wins.
func (s *Store) UpdateStatus(callSid string, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[callSid]
	if !ok {
		s.log.Warn("cannot update status, session not found", "call_sid", callSid)
		return
	}
	if !ValidTransition(sess.Status, status) {
		s.log.Warn("unexpected call status transition",
			"call_sid", callSid, "from", string(sess.Status), "to", string(status))
	}
	sess.Status = status
	sess.UpdatedAt = s.now()
}

// UpdateSummary records the post-call summary. Absent sessions are a
// logged no-op.
func (s *Store) UpdateSummary(callSid, summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[callSid]
	if !ok {
		s.log.Warn("cannot update summary, session not found", "call_sid", callSid)
		return
	}
	sess.Summary = summary
	sess.UpdatedAt = s.now()
}

// UpdateRecording records the provider's recording URL. Absent sessions are
// a logged no-op.
func (s *Store) UpdateRecording(callSid, recordingURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[callSid]
	if !ok {
		s.log.Warn("cannot update recording, session not found", "call_sid", callSid)
		return
	}
	sess.RecordingURL = recordingURL
	sess.UpdatedAt = s.now()
}

// Get returns a copy of the session, or false when unknown. Callers that
// expect the between-initiation-and-first-webhook window treat false as a
// soft condition, not an error.
func (s *Store) Get(callSid string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[callSid]
	if !ok {
		return Session{}, false
	}
	out := *sess
	out.History = append([]Turn(nil), sess.History...)
	return out, true
}

// All returns copies of every session, newest first.
func (s *Store) All() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		cp := *sess
		cp.History = append([]Turn(nil), sess.History...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
