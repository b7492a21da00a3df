package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transcript-sync-service/internal/app"
	"transcript-sync-service/internal/config"
	"transcript-sync-service/internal/dedup"
	"transcript-sync-service/internal/events"
	httpapi "transcript-sync-service/internal/http"
	"transcript-sync-service/internal/meetings"
	"transcript-sync-service/internal/observability"
	"transcript-sync-service/internal/session"
	"transcript-sync-service/internal/transcript"
)

func main() {
	cfg := config.Load()
	application := app.New(cfg)
	if err := application.Start(); err != nil {
		application.Logger.Fatal().Err(err).Msg("startup failed")
	}
	logger := application.Logger

	// Kafka export with separate topics for interim and final updates
	publisher := events.New(&events.Config{
		Enabled:      cfg.Kafka.Enabled,
		Brokers:      cfg.Kafka.Brokers,
		TopicInterim: cfg.Kafka.TopicInterim,
		TopicFinal:   cfg.Kafka.TopicFinal,
		Principal:    cfg.Kafka.Principal,
	})
	defer publisher.Close()

	store := transcript.NewStore()
	filter := dedup.NewFilterWithCapacity(cfg.Dedup.Capacity)

	mgr := session.NewManager(session.Config{
		FeedURL:             cfg.Feed.URL,
		MeetingID:           cfg.Feed.MeetingID,
		ViewerID:            cfg.Feed.ViewerID,
		HeartbeatInterval:   cfg.Heartbeat.Interval,
		MaxMissedHeartbeats: cfg.Heartbeat.MaxMissed,
		Policy: session.ReconnectPolicy{
			BaseDelay:   cfg.Reconnect.BaseDelay,
			Cap:         cfg.Reconnect.MaxDelay,
			MaxAttempts: cfg.Reconnect.MaxAttempts,
		},
	}, store, filter, publisher)
	mgr.SetActiveChecker(meetings.NewClient(cfg.Meetings.BaseURL, cfg.Feed.ViewerID, cfg.Meetings.Timeout))
	mgr.Connect()
	defer mgr.Close()

	obs := observability.NewServer(":" + cfg.Observability.MetricsPort)
	obs.Start()

	apiServer := &http.Server{
		Addr:         ":" + cfg.Service.HTTPPort,
		Handler:      httpapi.NewRouter(mgr, store),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", apiServer.Addr).Msg("API server started")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("API server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info().Msg("Shutting down")
	mgr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("API server shutdown failed")
	}
	if err := obs.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Observability server shutdown failed")
	}
	application.Shutdown()
}
