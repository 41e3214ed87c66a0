package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleetwatch/internal/config"
	"fleetwatch/internal/dashboard"
	"fleetwatch/internal/domain"
	"fleetwatch/internal/feed"
	"fleetwatch/internal/logging"
	"fleetwatch/internal/render"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var view *dashboard.View
	if cfg.Variant == config.VariantTrack {
		seed := domain.Track{Lat: cfg.TrackDefaultLat, Lon: cfg.TrackDefaultLon}
		view = dashboard.NewTrackView(seed, render.DefaultIcon(), log)
	} else {
		view = dashboard.NewFleetView(render.DefaultIcon(), log)
	}

	endpoint := cfg.FeedURL
	if endpoint == "" {
		var err error
		endpoint, err = feed.Endpoint(cfg.Origin, cfg.FeedPort, cfg.FeedPath)
		if err != nil {
			log.WithError(err).Fatal("cannot derive feed endpoint")
		}
	}

	sub, err := feed.NewSubscriber(feed.Config{
		URL:              endpoint,
		MaxRetries:       cfg.FeedMaxRetries,
		InitialBackoff:   cfg.FeedInitialBackoff,
		MaxBackoff:       cfg.FeedMaxBackoff,
		HandshakeTimeout: cfg.FeedHandshake,
	}, view, log)
	if err != nil {
		log.WithError(err).Fatal("feed subscriber")
	}

	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		if err := sub.Run(ctx); err != nil {
			// The dashboard stays up showing OFFLINE.
			log.WithError(err).Error("feed subscriber stopped")
		}
	}()

	if cfg.HUDTerminal {
		go func() {
			if err := dashboard.RunTerminal(ctx, view, os.Stdout); err != nil {
				log.WithError(err).Warn("terminal HUD stopped")
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           dashboard.Handler(view, log),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("variant", cfg.Variant).
		WithField("addr", srv.Addr).
		WithField("feed", endpoint).
		Info("dashboard listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("http server")
		stop()
	}
	<-feedDone
	log.Info("dashboard stopped")
}
