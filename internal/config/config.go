package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all relay settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Offline spool.
	SpoolDir        string
	SpoolMaxPending int

	// Hosted backend (PostgREST-style REST plus object storage).
	OwnerID       string
	RemoteBaseURL string
	RemoteAPIKey  string
	RemoteTable   string
	RemoteBucket  string
	RemoteTimeout time.Duration

	// Connectivity probing.
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration

	// Photo intake.
	PhotoMaxDimension int

	// Local API CORS.
	CORSAllowedOrigins []string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Kafka mirror of accepted reports. Disabled when no brokers are set.
	KafkaBrokers     []string
	KafkaMirrorTopic string
}

// KafkaEnabled reports whether the accepted-report mirror is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	remoteTimeout, err := parseDuration("REMOTE_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	probeInterval, err := parseDuration("PROBE_INTERVAL", "30s")
	if err != nil {
		return nil, err
	}
	probeTimeout, err := parseDuration("PROBE_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	maxPending, err := parsePositiveInt("SPOOL_MAX_PENDING", 500)
	if err != nil {
		return nil, err
	}
	maxDimension, err := parsePositiveInt("PHOTO_MAX_DIMENSION", 1600)
	if err != nil {
		return nil, err
	}
	mapboxCacheSize, err := parsePositiveInt("MAPBOX_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SpoolDir:        envOrDefault("SPOOL_DIR", "spool"),
		SpoolMaxPending: maxPending,

		OwnerID:       os.Getenv("RELAY_OWNER_ID"),
		RemoteBaseURL: strings.TrimRight(os.Getenv("REMOTE_BASE_URL"), "/"),
		RemoteAPIKey:  os.Getenv("REMOTE_API_KEY"),
		RemoteTable:   envOrDefault("REMOTE_TABLE", "hazard_reports"),
		RemoteBucket:  envOrDefault("REMOTE_BUCKET", "hazard-photos"),
		RemoteTimeout: remoteTimeout,

		ProbeInterval: probeInterval,
		ProbeTimeout:  probeTimeout,

		PhotoMaxDimension: maxDimension,

		CORSAllowedOrigins: splitList(envOrDefault("CORS_ALLOWED_ORIGINS", "*")),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: mapboxCacheSize,

		KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaMirrorTopic: envOrDefault("KAFKA_MIRROR_TOPIC", "accepted-hazard-reports"),
	}

	if cfg.RemoteBaseURL == "" {
		return nil, errors.New("REMOTE_BASE_URL is required")
	}
	if cfg.OwnerID == "" {
		return nil, errors.New("RELAY_OWNER_ID is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if cfg.KafkaEnabled() && cfg.KafkaMirrorTopic == "" {
		return nil, errors.New("KAFKA_MIRROR_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

// splitList splits a comma-separated env value, trimming whitespace and
// dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
