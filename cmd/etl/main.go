package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/air-quality-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/air-quality-etl/internal/adapter/kafka"
	mqttadapter "github.com/couchcryptid/air-quality-etl/internal/adapter/mqtt"
	"github.com/couchcryptid/air-quality-etl/internal/adapter/station"
	"github.com/couchcryptid/air-quality-etl/internal/config"
	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
	"github.com/couchcryptid/air-quality-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	selector, err := domain.SelectorByName(cfg.ScoreSelector)
	if err != nil {
		logger.Error("invalid score selector", "error", err)
		os.Exit(1)
	}
	assessor := domain.NewAssessor(
		domain.WithIndexTable(cfg.IndexTable),
		domain.WithSelector(selector),
	)
	if cfg.IndexTableFile != "" {
		logger.Info("custom index table loaded", "file", cfg.IndexTableFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := station.NewClient(cfg, metrics, logger)
	transformer := pipeline.NewTransformer(assessor, logger)

	var loaders []pipeline.Loader
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		loaders = append(loaders, writer)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	}

	var publisher *mqttadapter.Publisher
	if cfg.MQTTEnabled() {
		publisher = mqttadapter.NewPublisher(cfg, logger)
		if err := publisher.Connect(ctx); err != nil {
			logger.Error("mqtt connect failed", "broker", cfg.MQTTBroker, "error", err)
			os.Exit(1)
		}
		loaders = append(loaders, publisher)
		logger.Info("mqtt sink enabled", "topic", publisher.Topic(cfg.StationID))
	}

	if len(loaders) == 0 {
		logger.Warn("no sinks enabled; assessments are only served over HTTP")
	}

	p := pipeline.New(client, transformer, loaders, logger, metrics, cfg.PollInterval)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, assessor, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start polling pipeline.
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
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if publisher != nil {
		publisher.Disconnect()
	}

	logger.Info("shutdown complete")
}
