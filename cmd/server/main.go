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

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/weather-lens-service/internal/adapter/gemini"
	"github.com/couchcryptid/weather-lens-service/internal/adapter/geoip"
	httpadapter "github.com/couchcryptid/weather-lens-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-lens-service/internal/adapter/kafka"
	"github.com/couchcryptid/weather-lens-service/internal/config"
	"github.com/couchcryptid/weather-lens-service/internal/domain"
	"github.com/couchcryptid/weather-lens-service/internal/observability"
	"github.com/couchcryptid/weather-lens-service/internal/pipeline"
)

const sweepInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	client := gemini.NewClient(cfg.Gemini, metrics, logger)
	analyst := pipeline.NewAnalyst(client, metrics, logger)
	illustrator := pipeline.NewIllustrator(client, cfg.Gemini.ImageEnabled, metrics, logger)
	logger.Info("gemini client configured",
		"analysis_model", cfg.Gemini.AnalysisModel,
		"image_model", cfg.Gemini.ImageModel,
		"image_enabled", cfg.Gemini.ImageEnabled,
	)

	// Alerts always reach the log; Kafka is feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	notifiers := pipeline.Notifiers{pipeline.NewLogNotifier(logger)}
	var alertWriter *kafkaadapter.AlertWriter
	if cfg.KafkaEnabled {
		alertWriter = kafkaadapter.NewAlertWriter(cfg, logger)
		notifiers = append(notifiers, alertWriter)
		logger.Info("kafka alert publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaAlertTopic)
	} else {
		logger.Info("kafka alert publishing disabled")
	}

	// IP geolocation is feature-flagged via GEOIP_DB_PATH.
	var locator domain.Geolocator
	var geoDB *geoip.Locator
	if cfg.GeoIPDBPath != "" {
		geoDB, err = geoip.Open(cfg.GeoIPDBPath)
		if err != nil {
			logger.Error("failed to open geoip database", "error", err)
			os.Exit(1)
		}
		locator = geoDB
		logger.Info("geoip lookups enabled", "path", cfg.GeoIPDBPath, "timeout", cfg.GeolocationTimeout)
	} else {
		logger.Info("geoip lookups disabled, using default location")
	}

	registry := pipeline.NewRegistry(pipeline.Deps{
		Analyst:     analyst,
		Illustrator: illustrator,
		Notifier:    notifiers,
		Metrics:     metrics,
		Logger:      logger,
	}, cfg.SessionTTL, nil)

	srv := httpadapter.NewServer(cfg.HTTPAddr, registry, locator, cfg.GeolocationTimeout, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return registry.RunSweeper(gctx, sweepInterval)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
	}

	registry.Close()
	if alertWriter != nil {
		if err := alertWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if geoDB != nil {
		if err := geoDB.Close(); err != nil {
			logger.Error("geoip close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
