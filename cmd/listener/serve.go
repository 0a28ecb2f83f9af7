package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/weather-stream-listener/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-stream-listener/internal/adapter/kafka"
	"github.com/couchcryptid/weather-stream-listener/internal/observability"
	"github.com/couchcryptid/weather-stream-listener/internal/projection"
	"github.com/couchcryptid/weather-stream-listener/internal/stream"
	"github.com/couchcryptid/weather-stream-listener/internal/window"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Ingest the stream and serve the window over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(observability.NewLogger)
	if err != nil {
		return err
	}
	cfg, logger := a.cfg, a.logger

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Kafka mirror is enabled by KAFKA_BROKERS.
	var (
		mirror    stream.Mirror
		publisher *kafkaadapter.Publisher
	)
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger, a.metrics)
		mirror = publisher
		logger.Info("kafka mirror enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	hub := stream.NewHub(window.New(cfg.WindowCapacity), stream.HubConfig{
		Transport:      a.transport,
		Mirror:         mirror,
		ReconnectDelay: cfg.ReconnectDelay,
		Logger:         logger,
		Metrics:        a.metrics,
	})

	endpoint, label, err := a.initialTarget(ctx)
	if err != nil {
		hub.Close()
		return err
	}
	if _, err := hub.Subscribe(endpoint, label); err != nil {
		hub.Close()
		return err
	}

	builder := projection.NewBuilder(cfg.ProjectionKind, cfg.DisplayTimezone)
	srv := httpadapter.NewServer(cfg.HTTPAddr, hub, a.resolver, builder, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
		}
		hub.Close()
		if publisher != nil {
			if err := publisher.Close(); err != nil {
				errs = append(errs, fmt.Errorf("kafka publisher close: %w", err))
			}
		}
		return errors.Join(errs...)
	})

	err = g.Wait()
	if err != nil {
		logger.Error("shutdown with errors", "error", err)
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
