package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/seamark/hazard-relay/internal/adapter/httpapi"
	kafkaadapter "github.com/seamark/hazard-relay/internal/adapter/kafka"
	"github.com/seamark/hazard-relay/internal/adapter/mapbox"
	"github.com/seamark/hazard-relay/internal/config"
	"github.com/seamark/hazard-relay/internal/connectivity"
	"github.com/seamark/hazard-relay/internal/domain"
	"github.com/seamark/hazard-relay/internal/notify"
	"github.com/seamark/hazard-relay/internal/observability"
	"github.com/seamark/hazard-relay/internal/photo"
	"github.com/seamark/hazard-relay/internal/remote"
	"github.com/seamark/hazard-relay/internal/spool"
	"github.com/seamark/hazard-relay/internal/submit"
	"github.com/seamark/hazard-relay/internal/syncer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	if !strings.EqualFold(cfg.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := spool.New(cfg.SpoolDir, cfg.SpoolMaxPending, logger)
	if err != nil {
		logger.Error("failed to open spool", "dir", cfg.SpoolDir, "error", err)
		os.Exit(1)
	}
	metrics.PendingReports.Set(float64(store.Count()))

	client := remote.NewClient(remote.Config{
		BaseURL: cfg.RemoteBaseURL,
		APIKey:  cfg.RemoteAPIKey,
		Table:   cfg.RemoteTable,
		Bucket:  cfg.RemoteBucket,
		Timeout: cfg.RemoteTimeout,
	}, logger)

	watcher := connectivity.NewWatcher(client, cfg.ProbeInterval, cfg.ProbeTimeout, logger)

	hub := notify.NewHub(logger)
	notifier := notify.Multi{notify.NewLogNotifier(logger), hub}

	// Geocoding is display-only enrichment, feature-flagged via
	// MAPBOX_ENABLED / MAPBOX_TOKEN.
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		mb := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		geocoder = mapbox.NewCachedGeocoder(mb, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	// Accepted rows optionally mirror to Kafka for shore-side consumers.
	// The mirror wraps the backend so live submissions and sync passes
	// publish the same way.
	var backend kafkaadapter.Backend = client
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger)
		backend = kafkaadapter.NewMirror(backend, writer, logger, metrics)
		metrics.MirrorEnabled.Set(1)
		logger.Info("kafka mirroring enabled", "topic", cfg.KafkaMirrorTopic, "brokers", cfg.KafkaBrokers)
	}

	photos := photo.NewProcessor(cfg.PhotoMaxDimension, logger)

	submitter := submit.New(store, backend, watcher, photos, notifier, logger, metrics, cfg.OwnerID)
	sync := syncer.New(store, backend, watcher, notifier, logger, metrics, cfg.OwnerID)

	srv := httpapi.NewServer(cfg, httpapi.Deps{
		Submitter: submitter,
		Sync:      sync,
		Spool:     store,
		Remote:    client,
		Conn:      watcher,
		Hub:       hub,
		Geocoder:  geocoder,
		Ready:     sync,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := watcher.Run(ctx); err != nil {
			logger.Error("connectivity watcher error", "error", err)
		}
	}()

	go func() {
		if err := hub.Run(ctx); err != nil {
			logger.Error("notification hub error", "error", err)
		}
	}()

	go func() {
		if err := sync.Run(ctx); err != nil {
			logger.Error("syncer error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
