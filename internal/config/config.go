package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Postgres archive configuration.
	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Near-real-time feed configuration. Out-of-sample fetching is
	// disabled when NRTBaseURL is empty.
	NRTBaseURL  string
	NRTTimeout  time.Duration
	NRTCacheTTL time.Duration

	// Kafka frame-set events. Publishing is disabled when no brokers
	// are configured.
	KafkaBrokers []string
	KafkaTopic   string

	// Frame output and GIF composition.
	FramesDir   string
	RegionsFile string
	ConvertBin  string
	GIFDelay    int
	GIFResize   int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseTimeout("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	nrtTimeout, err := parseTimeout("NRT_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	cacheTTLStr := envOrDefault("NRT_CACHE_TTL", "10m")
	cacheTTL, err2 := time.ParseDuration(cacheTTLStr)
	if err2 != nil || cacheTTL < 0 {
		return nil, errors.New("invalid NRT_CACHE_TTL")
	}

	maxOpen, err := parseIntInRange("DB_MAX_OPEN_CONNS", 8, 1, 100)
	if err != nil {
		return nil, err
	}

	maxIdle, err := parseIntInRange("DB_MAX_IDLE_CONNS", 4, 0, 100)
	if err != nil {
		return nil, err
	}

	gifDelay, err := parseIntInRange("GIF_DELAY", 40, 1, 1000)
	if err != nil {
		return nil, err
	}

	gifResize, err := parseIntInRange("GIF_RESIZE", 640, 16, 4096)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DatabaseURL:    envOrDefault("DATABASE_URL", "postgres://localhost:5432/tastracker?sslmode=disable"),
		DBMaxOpenConns: maxOpen,
		DBMaxIdleConns: maxIdle,

		NRTBaseURL:  os.Getenv("NRT_BASE_URL"),
		NRTTimeout:  nrtTimeout,
		NRTCacheTTL: cacheTTL,

		KafkaBrokers: parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "tas-frame-events"),

		FramesDir:   envOrDefault("FRAMES_DIR", "./frames"),
		RegionsFile: os.Getenv("REGIONS_FILE"),
		ConvertBin:  envOrDefault("CONVERT_BIN", "convert"),
		GIFDelay:    gifDelay,
		GIFResize:   gifResize,
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, errors.New("invalid LOG_FORMAT: must be json or text")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseTimeout(name, def string) (time.Duration, error) {
	s := envOrDefault(name, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return d, nil
}

func parseIntInRange(name string, def, min, max int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("invalid %s: must be between %d and %d", name, min, max)
	}
	return n, nil
}
