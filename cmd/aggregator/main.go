// Command aggregator runs the streaming service: it consumes raw storm
// records from Kafka, cleans them, folds them into in-memory rankings served
// over HTTP, and optionally republishes the cleaned records to a sink topic.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/storm-damage-aggregator/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/storm-damage-aggregator/internal/adapter/kafka"
	"github.com/couchcryptid/storm-damage-aggregator/internal/aggregate"
	"github.com/couchcryptid/storm-damage-aggregator/internal/config"
	"github.com/couchcryptid/storm-damage-aggregator/internal/observability"
	"github.com/couchcryptid/storm-damage-aggregator/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	reader := kafkaadapter.NewReader(cfg, logger)

	// Republishing cleaned records is feature-flagged via PUBLISH_CLEANED.
	var writer *kafkaadapter.Writer
	var publisher pipeline.BatchPublisher
	if cfg.PublishCleaned {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("publishing cleaned records", "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("publishing cleaned records disabled")
	}

	transformer := pipeline.NewTransformer(metrics, logger)
	accumulator := aggregate.NewAccumulator()

	p := pipeline.New(reader, transformer, publisher, accumulator, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, accumulator, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start aggregation pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
