// Package httpapi exposes the REST surface: sub-query generation, dealer
// search, call placement, and call inspection endpoints.
package httpapi

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"callcast/internal/audio"
	"callcast/internal/calls"
	"callcast/internal/candidates"
	"callcast/internal/config"
	"callcast/internal/llm"
	"callcast/internal/reporting"
	"callcast/internal/subquery"
	"callcast/internal/telephony"
	"callcast/pkg/logger"
)

// Dialer places outbound calls and fetches their provider-side state.
// Implemented by telephony.Client.
type Dialer interface {
	MakeCall(ctx context.Context, params telephony.MakeCallParams) (*telephony.Call, error)
	GetCall(ctx context.Context, callSID string) (*telephony.Call, error)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Config    config.Config
	Completer llm.Completer
	Leads     *candidates.Orchestrator
	Dialer    Dialer
	Sessions  *calls.Store
	Audio     *audio.Store
	Reports   *reporting.Service
}

// --- Sub-queries ---

type subqueriesRequest struct {
	Query string `json:"query"`
}

// GenerateSubqueries expands a free-text property query into structured
// search sub-queries.
func (h Handlers) GenerateSubqueries(c *gin.Context) {
	var req subqueriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "query required"})
		return
	}

	log := logger.FromGin(c)
	subs, err := subquery.Generate(c.Request.Context(), h.Completer, log, req.Query)
	if err != nil {
		log.Error("subquery generation failed", "error", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "subquery generation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subqueries": subs})
}

// --- Search ---

type searchRequest struct {
	Subqueries []subquery.Subquery `json:"subqueries"`
}

// SearchCandidates runs every sub-query against the search provider and
// returns the deduplicated, ranked lead list.
func (h Handlers) SearchCandidates(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(req.Subqueries) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "subqueries required"})
		return
	}

	leads := h.Leads.Run(c.Request.Context(), req.Subqueries)
	c.JSON(http.StatusOK, gin.H{"candidates": leads})
}

// --- Calls ---

type placeCallRequest struct {
	PhoneNumbers  []string `json:"phone_numbers"`
	PropertyTitle string   `json:"property_title"`
	DealerName    string   `json:"dealer_name"`
}

// PlaceCall dials the first phone number of a lead and registers the call
// session. With TWILIO_TO_NUMBER set every call is redirected there, which
// keeps demos from ringing real dealers.
func (h Handlers) PlaceCall(c *gin.Context) {
	log := logger.FromGin(c)

	var req placeCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	to := h.Config.Twilio.ToNumberOverride
	if to == "" {
		if len(req.PhoneNumbers) == 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "phone_numbers required"})
			return
		}
		to = strings.TrimSpace(req.PhoneNumbers[0])
	}
	if to == "" || to == candidates.NoPhoneFound {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "candidate has no callable phone number"})
		return
	}

	q := url.Values{}
	if req.PropertyTitle != "" {
		q.Set("propertyTitle", req.PropertyTitle)
	}
	if req.DealerName != "" {
		q.Set("dealerName", req.DealerName)
	}
	webhook := h.Config.WebhookURL("/api/call/webhook")
	if encoded := q.Encode(); encoded != "" {
		webhook += "?" + encoded
	}

	call, err := h.Dialer.MakeCall(c.Request.Context(), telephony.MakeCallParams{
		To:                      to,
		From:                    h.Config.Twilio.FromNumber,
		URL:                     webhook,
		Method:                  "POST",
		StatusCallback:          h.Config.WebhookURL("/api/call/status-callback"),
		StatusCallbackMethod:    "POST",
		StatusCallbackEvents:    []string{"initiated", "ringing", "answered", "completed"},
		Record:                  true,
		RecordingStatusCallback: h.Config.WebhookURL("/api/call/recording-callback"),
	})
	if err != nil {
		if errors.Is(err, telephony.ErrInvalidNumber) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "destination number is not valid"})
			return
		}
		log.Error("call placement failed", "to", to, "error", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "call placement failed"})
		return
	}

	h.Sessions.Initialize(call.SID, req.PropertyTitle, req.DealerName)
	log.Info("call placed", "call_sid", call.SID, "to", to)

	c.JSON(http.StatusOK, gin.H{"success": true, "callSid": call.SID, "status": call.Status})
}

// ListCalls returns every session, newest first.
func (h Handlers) ListCalls(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"calls": h.Sessions.All()})
}

// CallsSummary returns aggregate metrics over all sessions.
func (h Handlers) CallsSummary(c *gin.Context) {
	c.JSON(http.StatusOK, h.Reports.Summary())
}

// CallStatus fetches the live provider-side state of one call, which can
// run ahead of the last status webhook the store has seen.
func (h Handlers) CallStatus(c *gin.Context) {
	callSid := c.Param("callSid")

	call, err := h.Dialer.GetCall(c.Request.Context(), callSid)
	if err != nil {
		logger.FromGin(c).Error("call status fetch failed", "call_sid", callSid, "error", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "could not fetch call status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"callSid": callSid, "status": call.Status})
}

// CallData is the polling endpoint the dashboard hits while a call runs.
// An unknown CallSid is not an error: the caller may poll before the first
// webhook lands, so it gets an empty shell instead of a 404.
func (h Handlers) CallData(c *gin.Context) {
	callSid := c.Query("callSid")
	if callSid == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "callSid required"})
		return
	}

	session, ok := h.Sessions.Get(callSid)
	if !ok {
		c.JSON(http.StatusOK, gin.H{
			"callSid":      callSid,
			"transcript":   "",
			"summary":      nil,
			"recordingUrl": nil,
			"status":       "unknown",
		})
		return
	}

	var summary any
	if session.Summary != "" {
		summary = session.Summary
	}
	var recordingURL any
	if session.RecordingURL != "" {
		recordingURL = session.RecordingURL
	}
	c.JSON(http.StatusOK, gin.H{
		"callSid":      session.CallSid,
		"transcript":   session.Transcript,
		"summary":      summary,
		"recordingUrl": recordingURL,
		"status":       string(session.Status),
	})
}

// --- Audio ---

const audioDataPrefix = "data:audio/wav;base64,"

// ServeAudio streams one synthesized turn's WAV bytes to Twilio. Entries
// expire shortly after creation, so a missing id is a permanent 404.
func (h Handlers) ServeAudio(c *gin.Context) {
	audioID := c.Param("audioId")
	data, ok := h.Audio.Get(audioID)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "audio not found"})
		return
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(data, audioDataPrefix))
	if err != nil {
		logger.FromGin(c).Error("audio payload corrupt", "audio_id", audioID, "error", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "audio payload corrupt"})
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.Header("Accept-Ranges", "bytes")
	c.Data(http.StatusOK, "audio/wav", raw)
}

// Healthz reports process liveness.
func (h Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
