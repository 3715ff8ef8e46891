package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Store backends selectable via STORE_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendFile     = "file"
)

// DefaultFeedURL is the GeoNet quake feed filtered to felt events (MMI >= 1).
const DefaultFeedURL = "https://api.geonet.org.nz/quake?MMI=1"

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Feed polling.
	FeedURL      string
	FeedTimeout  time.Duration
	PollInterval time.Duration // 0 disables the scheduler

	// Event store.
	StoreBackend string
	DatabaseURL  string
	SQLitePath   string
	SnapshotPath string
	StoreTimeout time.Duration

	// Optional sinks; each is disabled when its address is empty.
	KafkaBrokers []string
	KafkaTopic   string
	NATSURL      string
	NATSSubject  string
	S3Bucket     string
	S3Region     string
	S3Endpoint   string
	S3Prefix     string

	// Mapbox geocoding configuration.
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

	feedTimeout, err := parsePositiveDuration("FEED_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	storeTimeout, err := parsePositiveDuration("STORE_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	pollInterval, err := time.ParseDuration(sharedcfg.EnvOrDefault("POLL_INTERVAL", "5m"))
	if err != nil || pollInterval < 0 {
		return nil, errors.New("invalid POLL_INTERVAL")
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
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		FeedURL:      sharedcfg.EnvOrDefault("FEED_URL", DefaultFeedURL),
		FeedTimeout:  feedTimeout,
		PollInterval: pollInterval,

		StoreBackend: sharedcfg.EnvOrDefault("STORE_BACKEND", BackendFile),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		SQLitePath:   sharedcfg.EnvOrDefault("SQLITE_PATH", "data/quakes.db"),
		SnapshotPath: sharedcfg.EnvOrDefault("SNAPSHOT_PATH", "data/earthquakes.json"),
		StoreTimeout: storeTimeout,

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "earthquakes"),
		NATSURL:      os.Getenv("NATS_URL"),
		NATSSubject:  sharedcfg.EnvOrDefault("NATS_SUBJECT", "quakes.ingested"),
		S3Bucket:     os.Getenv("S3_BUCKET"),
		S3Region:     sharedcfg.EnvOrDefault("S3_REGION", "us-east-1"),
		S3Endpoint:   os.Getenv("S3_ENDPOINT"),
		S3Prefix:     sharedcfg.EnvOrDefault("S3_PREFIX", "quakes/"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	switch cfg.StoreBackend {
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required when STORE_BACKEND is postgres")
		}
	case BackendSQLite, BackendFile:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q (must be postgres, sqlite or file)", cfg.StoreBackend)
	}
	if cfg.FeedURL == "" {
		return nil, errors.New("FEED_URL is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
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
