package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/couchcryptid/weather-stream-listener/internal/adapter/mapbox"
	"github.com/couchcryptid/weather-stream-listener/internal/adapter/sse"
	"github.com/couchcryptid/weather-stream-listener/internal/config"
	"github.com/couchcryptid/weather-stream-listener/internal/domain"
	"github.com/couchcryptid/weather-stream-listener/internal/location"
	"github.com/couchcryptid/weather-stream-listener/internal/observability"
)

// app holds what every subcommand needs.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *observability.Metrics
	resolver  *location.Resolver
	transport *sse.Transport
}

func newApp(logTo func(*config.Config) *slog.Logger) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := logTo(cfg)
	metrics := observability.NewMetrics()

	catalog, err := location.LoadCatalog(cfg.LocationsFile)
	if err != nil {
		return nil, err
	}

	// Geocoding fallback is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		resolver:  location.NewResolver(catalog, geocoder, cfg.StreamURL, cfg.StreamInterval, logger),
		transport: sse.NewTransport(&http.Client{}, logger),
	}, nil
}

// initialTarget picks the first subscription: --endpoint, then --location,
// then STREAM_LOCATION, then STREAM_URL as is.
func (a *app) initialTarget(ctx context.Context) (endpoint, label string, err error) {
	if targetFlags.endpoint != "" {
		return targetFlags.endpoint, "", nil
	}
	name := a.cfg.StreamLocation
	if targetFlags.location != "" {
		name = targetFlags.location
	}
	if name == "" {
		return a.cfg.StreamURL, "", nil
	}
	endpoint, loc, err := a.resolver.Endpoint(ctx, name)
	if err != nil {
		return "", "", fmt.Errorf("resolve initial location: %w", err)
	}
	return endpoint, loc.Name, nil
}
