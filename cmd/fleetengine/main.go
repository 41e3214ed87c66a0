package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"fleetwatch/internal/auth"
	"fleetwatch/internal/config"
	"fleetwatch/internal/domain"
	"fleetwatch/internal/hub"
	"fleetwatch/internal/logging"
	"fleetwatch/internal/metrics"
	"fleetwatch/internal/nmea"
	"fleetwatch/internal/pipeline"
	"fleetwatch/internal/source"
	"fleetwatch/internal/store"
	transport "fleetwatch/internal/transport/http"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srcCfgs, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		log.WithError(err).Fatal("load sources")
	}
	srcs, err := source.FromConfig(srcCfgs)
	if err != nil {
		log.WithError(err).Fatal("open sources")
	}

	// Optional stores
	var redisStore *store.RedisStore
	if cfg.RedisEnabled {
		redisStore, err = store.NewRedisStore(ctx, cfg)
		if err != nil {
			log.WithError(err).Fatal("redis")
		}
		defer redisStore.Close()
	}

	var (
		trackSink pipeline.TrackSink
		alertDB   pipeline.AlertRecorder
		sqliteLog *store.SQLiteLogger
	)
	if cfg.DBEnabled {
		ts, err := store.NewTimescaleStore(ctx, cfg)
		if err != nil {
			log.WithError(err).Fatal("timescale")
		}
		defer ts.Close()
		trackSink, alertDB = ts, ts
	} else {
		sqliteLog, err = store.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			log.WithError(err).Fatal("sqlite")
		}
		defer sqliteLog.Close()
		trackSink = sqliteLog
	}

	sizes := pipeline.Sizes{
		Broadcast: cfg.BroadcastChannelSize,
		Track:     cfg.TrackChannelSize,
	}
	if redisStore != nil {
		sizes.State = cfg.StateChannelSize
		sizes.Alert = cfg.AlertChannelSize
	}
	var publisher pipeline.MessagePublisher
	if cfg.NATSURL != "" {
		nc, err := pipeline.ConnectNATS(cfg.NATSURL, log)
		if err != nil {
			log.WithError(err).Fatal("nats")
		}
		defer nc.Close()
		publisher = nc
		sizes.Publish = cfg.BroadcastChannelSize
	}

	dispatcher := pipeline.NewDispatcher(sizes)
	broadcast := hub.New(log)

	// Stages drain until their channel closes, so they run on their own context.
	var stages sync.WaitGroup
	runStage := func(run func(context.Context)) {
		stages.Add(1)
		go func() {
			defer stages.Done()
			run(context.Background())
		}()
	}
	runStage(pipeline.NewBroadcastWriter(dispatcher.BroadcastChan, broadcast, log).Run)
	runStage(pipeline.NewTrackWriter(dispatcher.TrackChan, trackSink, cfg.TrackBatchSize, cfg.TrackFlushIntervalMS, log).Run)
	if redisStore != nil {
		runStage(pipeline.NewStateWriter(dispatcher.StateChan, redisStore, log).Run)
		runStage(pipeline.NewAlertEvaluator(dispatcher.AlertChan, alertDB, redisStore, domain.AlertRules(cfg.OverspeedKnots), log).Run)
	}
	if publisher != nil {
		runStage(pipeline.NewNATSPublisher(dispatcher.PublishChan, publisher, cfg.NATSSubject, log).Run)
	}

	parser := nmea.NewParser()
	parser.OnFix(dispatcher.Dispatch)

	queue := source.NewQueue(cfg.QueueSize)
	var readers sync.WaitGroup
	for _, s := range srcs {
		readers.Add(1)
		go func(s source.Source) {
			defer readers.Done()
			l := log.WithField("vessel_id", s.ID())
			l.Info("source started")
			if err := s.Run(ctx, func(line source.Line) { queue.Push(line) }); err != nil {
				l.WithError(err).Error("source stopped")
			}
		}(s)
	}

	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		for line := range queue.Lines() {
			if _, err := parser.HandleLine(line.VesselID, line.Text); err != nil {
				log.WithError(err).WithField("vessel_id", line.VesselID).Debug("dropped line")
			}
		}
	}()

	var lookup auth.KeyLookup
	if redisStore != nil {
		lookup = redisStore
	}
	authn := auth.NewAuthenticator(cfg.StaticAPIKeys, lookup, time.Duration(cfg.AuthCacheTTLSeconds)*time.Second)

	mux := http.NewServeMux()
	mux.Handle("/ws", broadcast)
	mux.Handle("/ingest", transport.NewAuthMiddleware(authn).Wrap(transport.IngestHandler(parser, log)))
	mux.HandleFunc("/metrics", metrics.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if sqliteLog != nil {
		mux.HandleFunc("/api/track", trackHandler(sqliteLog, log))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.EngineHTTPPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.WithField("addr", srv.Addr).WithField("sources", len(srcs)).Info("engine listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown incomplete, late fixes are dropped")
	}
	broadcast.Close()

	for _, s := range srcs {
		_ = s.Close()
	}
	readers.Wait()
	queue.Shutdown()
	<-consumed
	dispatcher.Close()
	stages.Wait()
	log.Info("engine stopped")
}

func trackHandler(l *store.SQLiteLogger, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vessel := r.URL.Query().Get("vessel")
		if vessel == "" {
			http.Error(w, "vessel is required", http.StatusBadRequest)
			return
		}
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || limit <= 0 {
			limit = 100
		}
		pts, err := l.Recent(r.Context(), vessel, limit)
		if err != nil {
			log.WithError(err).Error("track query")
			http.Error(w, "query failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(pts)
	}
}
