package telephony

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"callcast/internal/audio"
	"callcast/internal/calls"
)

type stubAgent struct {
	reply      string
	replyErr   error
	speechErr  error
	summary    string
	summaryErr error

	gotHistory  []calls.Turn
	summarized  bool
	transcripts []string
}

func (s *stubAgent) Reply(_ context.Context, _, _ string, history []calls.Turn) (string, error) {
	s.gotHistory = append([]calls.Turn(nil), history...)
	return s.reply, s.replyErr
}

func (s *stubAgent) Speech(_ context.Context, _ string) (string, error) {
	if s.speechErr != nil {
		return "", s.speechErr
	}
	return "data:audio/wav;base64,UklGRg==", nil
}

func (s *stubAgent) Summarize(_ context.Context, transcript string) (string, error) {
	s.summarized = true
	s.transcripts = append(s.transcripts, transcript)
	return s.summary, s.summaryErr
}

func (s *stubAgent) SignOff(line string) bool {
	return strings.Contains(strings.ToLower(line), "goodbye")
}

func newTestHandler(agent *stubAgent) *WebhookHandler {
	return &WebhookHandler{
		Sessions: calls.NewStore(nil, nil),
		Audio:    audio.NewStore(time.Minute, nil, nil),
		Agent:    agent,
		BaseURL:  "https://demo.example.com",
	}
}

func performForm(h gin.HandlerFunc, target string, body url.Values) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *strings.Reader
	if body != nil {
		reader = strings.NewReader(body.Encode())
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest("POST", target, reader)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.Request = req

	h(c)
	return w
}

func TestHandleTurnGathersNextTurn(t *testing.T) {
	agent := &stubAgent{reply: "The flat is still available. Would you like a visit?"}
	h := newTestHandler(agent)

	body := url.Values{}
	body.Set("CallSid", "CA100")
	body.Set("SpeechResult", "Is the flat available?")

	w := performForm(h.HandleTurn, "/api/call/webhook?propertyTitle=2+BHK+Flat&dealerName=Prime+Estates", body)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/xml") {
		t.Fatalf("Content-Type = %q, want application/xml", ct)
	}

	xml := w.Body.String()
	if !strings.Contains(xml, "<Play>https://demo.example.com/api/call/audio/audio_") {
		t.Fatalf("expected Play with audio URL:\n%s", xml)
	}
	if !strings.Contains(xml, "<Gather") {
		t.Fatalf("expected Gather verb:\n%s", xml)
	}
	if !strings.Contains(xml, "propertyTitle=2+BHK+Flat") || !strings.Contains(xml, "dealerName=Prime+Estates") {
		t.Fatalf("gather action must carry call context:\n%s", xml)
	}

	// Agent saw the caller's line as the latest user turn.
	if len(agent.gotHistory) != 1 || agent.gotHistory[0].Content != "Is the flat available?" {
		t.Fatalf("agent history = %+v", agent.gotHistory)
	}

	session, ok := h.Sessions.Get("CA100")
	if !ok {
		t.Fatalf("session was not initialized")
	}
	if len(session.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(session.History))
	}
	wantTranscript := "User: Is the flat available?\nAgent: The flat is still available. Would you like a visit?"
	if session.Transcript != wantTranscript {
		t.Fatalf("transcript = %q, want %q", session.Transcript, wantTranscript)
	}
}

func TestHandleTurnSignOffHangsUp(t *testing.T) {
	agent := &stubAgent{reply: "Thank you, goodbye."}
	h := newTestHandler(agent)

	body := url.Values{}
	body.Set("CallSid", "CA101")
	body.Set("SpeechResult", "Not interested, sorry.")

	w := performForm(h.HandleTurn, "/api/call/webhook", body)

	xml := w.Body.String()
	if strings.Contains(xml, "<Gather") {
		t.Fatalf("sign-off must not gather another turn:\n%s", xml)
	}
	if !strings.Contains(xml, "<Hangup></Hangup>") {
		t.Fatalf("expected Hangup after sign-off:\n%s", xml)
	}
}

func TestHandleTurnInitialRequest(t *testing.T) {
	agent := &stubAgent{reply: "Hello, I am calling about the listed property."}
	h := newTestHandler(agent)

	body := url.Values{}
	body.Set("CallSid", "CA102")

	w := performForm(h.HandleTurn, "/api/call/webhook", body)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(agent.gotHistory) != 0 {
		t.Fatalf("initial turn must present empty history, got %+v", agent.gotHistory)
	}
	session, _ := h.Sessions.Get("CA102")
	if session.PropertyTitle != "the listed property" || session.DealerName != "the agency" {
		t.Fatalf("defaults not applied: %+v", session)
	}
}

func TestHandleTurnAgentFailure(t *testing.T) {
	agent := &stubAgent{replyErr: errors.New("model unavailable")}
	h := newTestHandler(agent)

	body := url.Values{}
	body.Set("CallSid", "CA103")
	body.Set("SpeechResult", "Hello")

	w := performForm(h.HandleTurn, "/api/call/webhook", body)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	xml := w.Body.String()
	if !strings.Contains(xml, "An application error occurred. Goodbye.") {
		t.Fatalf("expected spoken error message:\n%s", xml)
	}
	if !strings.Contains(xml, "<Hangup></Hangup>") {
		t.Fatalf("error response must hang up:\n%s", xml)
	}
}

func TestHandleStatusSummarizesCompletedCall(t *testing.T) {
	agent := &stubAgent{summary: "Dealer confirmed availability."}
	h := newTestHandler(agent)

	h.Sessions.Initialize("CA200", "2 BHK Flat", "Prime Estates")
	h.Sessions.UpdateHistory("CA200", []calls.Turn{
		{Role: calls.TurnRoleUser, Content: "Hi"},
		{Role: calls.TurnRoleAgent, Content: "Hello"},
	})

	body := url.Values{}
	body.Set("CallSid", "CA200")
	body.Set("CallStatus", "completed")

	w := performForm(h.HandleStatus, "/api/call/status-callback", body)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !agent.summarized {
		t.Fatalf("completed call with transcript must be summarized")
	}
	if agent.transcripts[0] != "User: Hi\nAgent: Hello" {
		t.Fatalf("summarizer got transcript %q", agent.transcripts[0])
	}

	session, _ := h.Sessions.Get("CA200")
	if session.Status != calls.StatusCompleted {
		t.Fatalf("status = %q, want completed", session.Status)
	}
	if session.Summary != "Dealer confirmed availability." {
		t.Fatalf("summary = %q", session.Summary)
	}
}

func TestHandleStatusSkipsSummaryWithoutTranscript(t *testing.T) {
	agent := &stubAgent{summary: "unused"}
	h := newTestHandler(agent)
	h.Sessions.Initialize("CA201", "Villa", "Acme Realty")

	body := url.Values{}
	body.Set("CallSid", "CA201")
	body.Set("CallStatus", "no-answer")

	performForm(h.HandleStatus, "/api/call/status-callback", body)

	if agent.summarized {
		t.Fatalf("empty transcript must not be summarized")
	}
}

func TestHandleStatusUnknownStatusIgnored(t *testing.T) {
	agent := &stubAgent{}
	h := newTestHandler(agent)
	h.Sessions.Initialize("CA202", "Villa", "Acme Realty")

	body := url.Values{}
	body.Set("CallSid", "CA202")
	body.Set("CallStatus", "teleported")

	w := performForm(h.HandleStatus, "/api/call/status-callback", body)

	if w.Code != http.StatusOK {
		t.Fatalf("unknown status must still ack with 200, got %d", w.Code)
	}
	session, _ := h.Sessions.Get("CA202")
	if session.Status != calls.StatusInitiated {
		t.Fatalf("status changed to %q on unknown input", session.Status)
	}
}

func TestHandleStatusMissingCallSid(t *testing.T) {
	h := newTestHandler(&stubAgent{})

	body := url.Values{}
	body.Set("CallStatus", "completed")

	w := performForm(h.HandleStatus, "/api/call/status-callback", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandleRecording(t *testing.T) {
	h := newTestHandler(&stubAgent{})
	h.Sessions.Initialize("CA300", "Villa", "Acme Realty")

	body := url.Values{}
	body.Set("CallSid", "CA300")
	body.Set("RecordingUrl", "https://api.twilio.com/recordings/RE1")

	w := performForm(h.HandleRecording, "/api/call/recording-callback", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	session, _ := h.Sessions.Get("CA300")
	if session.RecordingURL != "https://api.twilio.com/recordings/RE1" {
		t.Fatalf("recording URL not stored: %q", session.RecordingURL)
	}
}

func TestHandleRecordingMissingFields(t *testing.T) {
	h := newTestHandler(&stubAgent{})

	body := url.Values{}
	body.Set("CallSid", "CA301")

	w := performForm(h.HandleRecording, "/api/call/recording-callback", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
