package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingDB         = errors.New("DATABASE_URL is required")
	ErrInvalidMode       = errors.New("invalid search mode")
	ErrMissingForced     = errors.New("FORCED_PROVIDER is required in forced mode")
	ErrEmptyPriorityList = errors.New("PROVIDER_PRIORITY is empty")
)

const (
	ModeForced    = "forced"
	ModePriority  = "priority"
	ModeAggregate = "aggregate"
)

type Config struct {
	Database DatabaseConfig
	Google   GoogleConfig
	Pixabay  PixabayConfig
	Search   SearchConfig
	Cache    CacheConfig
	Log      LogConfig
}

type DatabaseConfig struct {
	URL string
}

type GoogleConfig struct {
	APIKey  string
	CX      string
	BaseURL string
	Timeout time.Duration
}

type PixabayConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type SearchConfig struct {
	// Mode: forced | priority | aggregate
	Mode               string
	ForcedProvider     string
	FallbackToPriority bool
	Priority           []string
	MaxPagedFetches    int
	ProviderTimeout    time.Duration
}

type CacheConfig struct {
	ResponseTTL    time.Duration
	RawTTL         time.Duration
	AggregateTTL   time.Duration
	SweepThreshold int
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Google: GoogleConfig{
			APIKey:  os.Getenv("GOOGLE_API_KEY"),
			CX:      os.Getenv("GOOGLE_CX"),
			BaseURL: os.Getenv("GOOGLE_BASE_URL"),
			Timeout: time.Duration(getEnvIntOrDefault("GOOGLE_TIMEOUT_SEC", 15)) * time.Second,
		},
		Pixabay: PixabayConfig{
			APIKey:  os.Getenv("PIXABAY_API_KEY"),
			BaseURL: os.Getenv("PIXABAY_BASE_URL"),
			Timeout: time.Duration(getEnvIntOrDefault("PIXABAY_TIMEOUT_SEC", 20)) * time.Second,
		},
		Search: SearchConfig{
			Mode:               getEnvOrDefault("SEARCH_MODE", ModeAggregate),
			ForcedProvider:     os.Getenv("FORCED_PROVIDER"),
			FallbackToPriority: getEnvBoolOrDefault("FORCED_FALLBACK", true),
			Priority:           splitList(getEnvOrDefault("PROVIDER_PRIORITY", "google,pixabay")),
			MaxPagedFetches:    getEnvIntOrDefault("MAX_PAGED_FETCHES", 5),
			ProviderTimeout:    time.Duration(getEnvIntOrDefault("PROVIDER_TIMEOUT_SEC", 30)) * time.Second,
		},
		Cache: CacheConfig{
			ResponseTTL:    time.Duration(getEnvIntOrDefault("CACHE_TTL_SEC", 3600)) * time.Second,
			RawTTL:         time.Duration(getEnvIntOrDefault("RAW_CACHE_TTL_SEC", 7*24*3600)) * time.Second,
			AggregateTTL:   time.Duration(getEnvIntOrDefault("AGGREGATE_TTL_SEC", 7*24*3600)) * time.Second,
			SweepThreshold: getEnvIntOrDefault("CACHE_SWEEP_THRESHOLD", 100),
		},
		Log: LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return ErrMissingDB
	}

	switch c.Search.Mode {
	case ModeForced:
		if c.Search.ForcedProvider == "" {
			return ErrMissingForced
		}
	case ModePriority:
		if len(c.Search.Priority) == 0 {
			return ErrEmptyPriorityList
		}
	case ModeAggregate:
	default:
		return ErrInvalidMode
	}

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
