package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"callcast/internal/agent"
	"callcast/internal/audio"
	"callcast/internal/calls"
	"callcast/internal/candidates"
	"callcast/internal/config"
	"callcast/internal/httpapi"
	"callcast/internal/llm"
	"callcast/internal/reporting"
	"callcast/internal/search"
	"callcast/internal/telephony"
	"callcast/pkg/logger"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	groq := llm.NewClient(cfg.Groq, log)
	tavily := search.NewClient(cfg.Tavily.APIKey, "", log)
	twilio := telephony.NewClient(cfg.Twilio, "")

	sessions := calls.NewStore(log, nil)
	audioStore := audio.NewStore(cfg.App.AudioTTL, log, nil)
	callAgent := agent.New(groq, groq, log)
	leads := candidates.NewOrchestrator(tavily, log, nil)
	reports := reporting.NewService(sessions)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r,
		httpapi.Handlers{
			Config:    cfg,
			Completer: groq,
			Leads:     leads,
			Dialer:    twilio,
			Sessions:  sessions,
			Audio:     audioStore,
			Reports:   reports,
		},
		&telephony.WebhookHandler{
			Sessions: sessions,
			Audio:    audioStore,
			Agent:    callAgent,
			BaseURL:  cfg.App.BaseURL,
		},
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
