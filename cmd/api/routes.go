package main

import (
	"github.com/gin-gonic/gin"

	"callcast/internal/httpapi"
	"callcast/internal/telephony"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, api httpapi.Handlers, webhooks *telephony.WebhookHandler) {
	r.GET("/healthz", api.Healthz)

	// Twilio-facing surface (public).
	// NOTE: These should be protected by Twilio signature validation in production.
	call := r.Group("/api/call")
	{
		call.POST("/webhook", webhooks.HandleTurn)
		call.POST("/status-callback", webhooks.HandleStatus)
		call.POST("/recording-callback", webhooks.HandleRecording)
		call.GET("/audio/:audioId", api.ServeAudio)
		call.GET("/data", api.CallData)
	}

	// Dashboard API.
	v1 := r.Group("/v1")
	{
		v1.POST("/subqueries", api.GenerateSubqueries)
		v1.POST("/search", api.SearchCandidates)

		v1.POST("/calls", api.PlaceCall)
		v1.GET("/calls", api.ListCalls)
		v1.GET("/calls/summary", api.CallsSummary)
		v1.GET("/calls/:callSid/status", api.CallStatus)
	}
}
