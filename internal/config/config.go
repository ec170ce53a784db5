package config

import (
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shouni/go-utils/envutil"

	"github.com/cheahjs/replicate-image-bundler/internal/fetch"
	"github.com/cheahjs/replicate-image-bundler/internal/replicate"
)

const (
	DefaultListenAddr             = ":8080"
	DefaultGenerationTimeout      = 5 * time.Minute
	DefaultRetryInterval          = 2 * time.Second
	DefaultArchiveExpiry          = time.Hour
	DefaultArchiveCleanupInterval = 5 * time.Minute
	DefaultArchiveStoreMaxMB      = 512
	DefaultLogLevel               = "info"
)

// Config holds process-wide settings. Credentials are only handed to the
// generation client.
type Config struct {
	ReplicateAPIToken string
	ModelEndpoint     string
	ReplicateBaseURL  string

	ListenAddr string
	BaseURL    string

	GenerationTimeout time.Duration
	PollInterval      time.Duration
	GenerationRetries uint64
	RetryInterval     time.Duration

	FetchTimeout      time.Duration
	FetchConcurrency  int
	FetchRateInterval time.Duration

	ArchiveExpiry          time.Duration
	ArchiveCleanupInterval time.Duration
	ArchiveStoreMaxMB      int

	LogLevel   string
	PrettyLogs bool
}

// Load reads the configuration from the environment.
func Load() *Config {
	endpoint := envutil.GetEnv("REPLICATE_MODEL_ENDPOINT", "")
	if endpoint == "" {
		endpoint = envutil.GetEnv("REPLICATE_MODEL_ENDPOINTSTABILITY", "")
	}

	return &Config{
		ReplicateAPIToken: envutil.GetEnv("REPLICATE_API_TOKEN", ""),
		ModelEndpoint:     endpoint,
		ReplicateBaseURL:  envutil.GetEnv("REPLICATE_BASE_URL", replicate.DefaultBaseURL),

		ListenAddr: envutil.GetEnv("LISTEN_ADDR", DefaultListenAddr),
		BaseURL:    envutil.GetEnv("BASE_URL", ""),

		GenerationTimeout: getDuration("GENERATION_TIMEOUT", DefaultGenerationTimeout),
		PollInterval:      getDuration("POLL_INTERVAL", replicate.DefaultPollInterval),
		GenerationRetries: uint64(getInt("GENERATION_RETRIES", 0)),
		RetryInterval:     getDuration("RETRY_INTERVAL", DefaultRetryInterval),

		FetchTimeout:      getDuration("FETCH_TIMEOUT", fetch.DefaultTimeout),
		FetchConcurrency:  getInt("FETCH_CONCURRENCY", fetch.DefaultConcurrency),
		FetchRateInterval: getDuration("FETCH_RATE_INTERVAL", 0),

		ArchiveExpiry:          getDuration("ARCHIVE_EXPIRY", DefaultArchiveExpiry),
		ArchiveCleanupInterval: getDuration("ARCHIVE_CLEANUP_INTERVAL", DefaultArchiveCleanupInterval),
		ArchiveStoreMaxMB:      getInt("ARCHIVE_STORE_MAX_MB", DefaultArchiveStoreMaxMB),

		LogLevel:   envutil.GetEnv("LOG_LEVEL", DefaultLogLevel),
		PrettyLogs: envutil.GetEnvAsBool("PRETTY_LOGS", false),
	}
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if c.ReplicateAPIToken == "" {
		return errors.New("REPLICATE_API_TOKEN is not set")
	}
	if c.ModelEndpoint == "" {
		return errors.New("REPLICATE_MODEL_ENDPOINT is not set")
	}
	if c.ArchiveCleanupInterval <= 0 {
		return errors.New("ARCHIVE_CLEANUP_INTERVAL must be positive")
	}
	if c.ArchiveExpiry <= 0 {
		return errors.New("ARCHIVE_EXPIRY must be positive")
	}
	return nil
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Str("value", raw).Msg("Invalid duration, using default")
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		log.Warn().Str("key", key).Str("value", raw).Msg("Invalid integer, using default")
		return fallback
	}
	return n
}
