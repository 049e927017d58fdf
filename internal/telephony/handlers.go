package telephony

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"callcast/internal/audio"
	"callcast/internal/calls"
	"callcast/pkg/logger"
)

const (
	defaultPropertyTitle = "the listed property"
	defaultDealerName    = "the agency"

	noInputMessage = "I did not hear a response. Thank you for your time. Goodbye."
	errorMessage   = "An application error occurred. Goodbye."
)

// Conversationalist produces agent replies, speech audio, and call
// summaries. Implemented by agent.Agent.
type Conversationalist interface {
	Reply(ctx context.Context, propertyTitle, dealerName string, history []calls.Turn) (string, error)
	Speech(ctx context.Context, text string) (string, error)
	Summarize(ctx context.Context, transcript string) (string, error)
	SignOff(line string) bool
}

// WebhookHandler serves the Twilio callbacks that drive a live call: the
// conversational turn loop, status updates, and recording notifications.
type WebhookHandler struct {
	Sessions *calls.Store
	Audio    *audio.Store
	Agent    Conversationalist
	BaseURL  string
}

// HandleTurn runs one turn of the conversation. Twilio posts the caller's
// transcribed speech; the handler appends it to the session history, asks
// the agent for a reply, synthesizes audio, and answers with TwiML that
// plays the reply and either gathers the next turn or hangs up.
func (h *WebhookHandler) HandleTurn(c *gin.Context) {
	log := logger.FromGin(c)

	propertyTitle := c.Query("propertyTitle")
	if propertyTitle == "" {
		propertyTitle = defaultPropertyTitle
	}
	dealerName := c.Query("dealerName")
	if dealerName == "" {
		dealerName = defaultDealerName
	}

	form, err := ParseTurnForm(c.Request)
	if err != nil {
		// The first callback of a call can arrive with an empty body.
		log.Debug("turn form parse failed, treating as initial turn", "error", err)
	}

	if form.CallSid != "" {
		if _, ok := h.Sessions.Get(form.CallSid); !ok {
			h.Sessions.Initialize(form.CallSid, propertyTitle, dealerName)
		}
	}

	history := h.history(form.CallSid)
	if form.SpeechResult != "" {
		history = append(history, calls.Turn{Role: calls.TurnRoleUser, Content: form.SpeechResult})
	}

	ctx := c.Request.Context()

	reply, err := h.Agent.Reply(ctx, propertyTitle, dealerName, history)
	if err != nil {
		log.Error("agent reply failed", "call_sid", form.CallSid, "error", err)
		h.respondError(c)
		return
	}

	history = append(history, calls.Turn{Role: calls.TurnRoleAgent, Content: reply})
	if form.CallSid != "" {
		h.Sessions.UpdateHistory(form.CallSid, history)
	}

	audioData, err := h.Agent.Speech(ctx, reply)
	if err != nil {
		log.Error("speech synthesis failed", "call_sid", form.CallSid, "error", err)
		h.respondError(c)
		return
	}
	audioID := h.Audio.Store(audioData)
	audioURL := h.BaseURL + "/api/call/audio/" + audioID

	vr := &VoiceResponse{}
	vr.Play(audioURL)

	if h.Agent.SignOff(reply) {
		vr.Hangup()
	} else {
		vr.GatherSpeech(GatherOptions{Action: h.turnAction(propertyTitle, dealerName)})
		vr.Say(noInputMessage)
		vr.Hangup()
	}

	h.respondXML(c, http.StatusOK, vr)
}

// HandleStatus records call lifecycle transitions. When a call reaches a
// terminal state with a transcript, the summary is generated inline; a
// summarization failure is logged but never surfaced to Twilio.
func (h *WebhookHandler) HandleStatus(c *gin.Context) {
	log := logger.FromGin(c)

	form, err := ParseStatusForm(c.Request)
	if err != nil || form.CallSid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "CallSid is required"})
		return
	}

	status, err := calls.ParseStatus(form.CallStatus)
	if err != nil {
		log.Warn("unknown call status ignored", "call_sid", form.CallSid, "status", form.CallStatus)
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	h.Sessions.UpdateStatus(form.CallSid, status)

	if status.ShouldSummarize() {
		if session, ok := h.Sessions.Get(form.CallSid); ok && session.Transcript != "" {
			summary, err := h.Agent.Summarize(c.Request.Context(), session.Transcript)
			if err != nil {
				log.Error("summarization failed", "call_sid", form.CallSid, "error", err)
			} else {
				h.Sessions.UpdateSummary(form.CallSid, summary)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleRecording stores the recording URL Twilio reports once a call's
// recording is ready.
func (h *WebhookHandler) HandleRecording(c *gin.Context) {
	form, err := ParseRecordingForm(c.Request)
	if err != nil || form.CallSid == "" || form.RecordingURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "CallSid and RecordingUrl are required"})
		return
	}

	h.Sessions.UpdateRecording(form.CallSid, form.RecordingURL)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *WebhookHandler) history(callSid string) []calls.Turn {
	if callSid == "" {
		return nil
	}
	session, ok := h.Sessions.Get(callSid)
	if !ok {
		return nil
	}
	return session.History
}

func (h *WebhookHandler) turnAction(propertyTitle, dealerName string) string {
	q := url.Values{}
	q.Set("propertyTitle", propertyTitle)
	q.Set("dealerName", dealerName)
	return "/api/call/webhook?" + q.Encode()
}

func (h *WebhookHandler) respondError(c *gin.Context) {
	vr := &VoiceResponse{}
	vr.Say(errorMessage)
	vr.Hangup()
	h.respondXML(c, http.StatusInternalServerError, vr)
}

func (h *WebhookHandler) respondXML(c *gin.Context, status int, vr *VoiceResponse) {
	body, err := vr.Render()
	if err != nil {
		logger.FromGin(c).Error("twiml render failed", "error", err)
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	c.Data(status, "application/xml", []byte(body))
}
