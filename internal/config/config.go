package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

const (
	minStreamInterval = 10
	maxWindowCapacity = 10000
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	StreamURL       string
	StreamLocation  string
	StreamInterval  int
	ReconnectDelay  time.Duration
	WindowCapacity  int
	ProjectionKind  string
	DisplayTimezone *time.Location
	LocationsFile   string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Kafka record mirror, enabled when brokers are configured.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool

	// Mapbox geocoding for location names missing from the catalog.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	reconnectDelay, err := parsePositiveDuration("RECONNECT_DELAY", "5s")
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	windowCapacity, err := strconv.Atoi(sharedcfg.EnvOrDefault("WINDOW_CAPACITY", "50"))
	if err != nil || windowCapacity < 1 || windowCapacity > maxWindowCapacity {
		return nil, fmt.Errorf("invalid WINDOW_CAPACITY: must be between 1 and %d", maxWindowCapacity)
	}

	interval, err := strconv.Atoi(sharedcfg.EnvOrDefault("STREAM_INTERVAL", "10"))
	if err != nil {
		return nil, errors.New("invalid STREAM_INTERVAL")
	}
	// The producer polls an upstream API per interval; keep it polite.
	interval = max(interval, minStreamInterval)

	tz, err := time.LoadLocation(sharedcfg.EnvOrDefault("DISPLAY_TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid DISPLAY_TIMEZONE: %w", err)
	}

	streamURL := sharedcfg.EnvOrDefault("STREAM_URL", "http://127.0.0.1:8000/api/stream_weather/")
	if err := validateStreamURL(streamURL); err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		StreamURL:       streamURL,
		StreamLocation:  os.Getenv("STREAM_LOCATION"),
		StreamInterval:  interval,
		ReconnectDelay:  reconnectDelay,
		WindowCapacity:  windowCapacity,
		ProjectionKind:  sharedcfg.EnvOrDefault("PROJECTION_KIND", "weather"),
		DisplayTimezone: tz,
		LocationsFile:   os.Getenv("LOCATIONS_FILE"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "live-stream-records"),
		KafkaEnabled: len(brokers) > 0,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}
	if _, set := os.LookupEnv("STREAM_LOCATION"); !set {
		cfg.StreamLocation = "Dhaka"
	}

	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

// validateStreamURL requires an absolute http(s) URL.
func validateStreamURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid STREAM_URL %q: must be an absolute http(s) URL", raw)
	}
	return nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
