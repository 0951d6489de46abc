package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Source data locations.
	BoundaryPath      string
	BoundaryFIPSField string
	BoundaryNameField string
	SeriesPath        string

	// Render defaults.
	MapTitle      string
	DefaultMetric string
	SliderStart   int // -1 selects the first observed day

	HTTPAddr           string
	CORSAllowedOrigins []string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration

	// Kafka sink configuration.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSnapshotTopic string
	KafkaRenderTopic   string
	BatchSize          int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	sliderStart, err := parseSliderStart()
	if err != nil {
		return nil, err
	}

	kafkaEnabled, err := parseBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BoundaryPath:      sharedcfg.EnvOrDefault("BOUNDARY_PATH", "data/counties.geojson"),
		BoundaryFIPSField: sharedcfg.EnvOrDefault("BOUNDARY_FIPS_FIELD", "GEOID10"),
		BoundaryNameField: sharedcfg.EnvOrDefault("BOUNDARY_NAME_FIELD", "NAME10"),
		SeriesPath:        sharedcfg.EnvOrDefault("SERIES_PATH", "data/county_cases.csv"),

		MapTitle:      sharedcfg.EnvOrDefault("MAP_TITLE", "Daily Spread of the Coronavirus Outbreak"),
		DefaultMetric: sharedcfg.EnvOrDefault("DEFAULT_METRIC", "Confirmed"),
		SliderStart:   sliderStart,

		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		CORSAllowedOrigins: splitList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,

		KafkaEnabled:       kafkaEnabled,
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSnapshotTopic: strings.TrimSpace(sharedcfg.EnvOrDefault("KAFKA_SNAPSHOT_TOPIC", "county-snapshots")),
		KafkaRenderTopic:   strings.TrimSpace(sharedcfg.EnvOrDefault("KAFKA_RENDER_TOPIC", "choropleth-renders")),
		BatchSize:          batchSize,
	}

	if cfg.BoundaryPath == "" {
		return nil, errors.New("BOUNDARY_PATH is required")
	}
	if cfg.SeriesPath == "" {
		return nil, errors.New("SERIES_PATH is required")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaSnapshotTopic == "" || cfg.KafkaRenderTopic == "" {
			return nil, errors.New("KAFKA_SNAPSHOT_TOPIC and KAFKA_RENDER_TOPIC are required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

func parseSliderStart() (int, error) {
	s := os.Getenv("SLIDER_START")
	if s == "" {
		return -1, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < -1 {
		return 0, fmt.Errorf("invalid SLIDER_START %q", s)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", key, s)
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
