package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Kiosk     KioskConfig
	Ratings   RatingsConfig
	Cache     CacheConfig
	Store     StoreConfig
	Matching  MatchingConfig
	Inventory InventoryConfig
	Ingest    IngestConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// KioskConfig holds kiosk operator API configuration
type KioskConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	ReservationURL string `mapstructure:"reservation_url"`
	PageSize       int    `mapstructure:"page_size"`
	MaxKiosks      int    `mapstructure:"max_kiosks"`
}

// RatingsConfig holds ratings API configuration
type RatingsConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// StoreConfig selects the catalog database
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "postgres"
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

// MatchingConfig holds title matching configuration
type MatchingConfig struct {
	Threshold float64 `mapstructure:"threshold"`
}

// InventoryConfig holds result list configuration
type InventoryConfig struct {
	MaxResults int `mapstructure:"max_results"`
}

// IngestConfig holds catalog ingestion configuration
type IngestConfig struct {
	LockPath    string        `mapstructure:"lock_path"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
	MaxPages    int           `mapstructure:"max_pages"`
	// JobRetention is how long finished jobs stay queryable.
	JobRetention time.Duration `mapstructure:"job_retention"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP    int `mapstructure:"per_ip"`   // requests per minute per client
	Upstream int `mapstructure:"upstream"` // requests per hour to upstream APIs
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console", "json" or "auto"
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	return load("")
}

// LoadFile loads configuration from the file at path, with environment
// variables still taking precedence.
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(path string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/reelscout/")
	}

	// Environment variable settings
	v.SetEnvPrefix("REELSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional when searching; required when a path was given)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads .env from the working directory without overriding
// variables that are already set. A missing file is not an error.
func loadEnvFile() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load .env: %w", err)
}

// setDefaults sets default configuration values. Every key gets a default,
// even an empty one, so environment variables are seen by Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})
	v.SetDefault("server.shutdown_timeout", "10s")

	// Upstream APIs
	v.SetDefault("kiosk.api_key", "")
	v.SetDefault("kiosk.base_url", "https://api.redbox.com")
	v.SetDefault("kiosk.reservation_url", "http://www.redbox.com/externalcart")
	v.SetDefault("kiosk.page_size", 10)
	v.SetDefault("kiosk.max_kiosks", 5)
	v.SetDefault("ratings.api_key", "")
	v.SetDefault("ratings.base_url", "http://api.rottentomatoes.com/api/public/v1.0")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "1h")

	// Catalog store
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "data/catalog.db")
	v.SetDefault("store.dsn", "")

	v.SetDefault("matching.threshold", 0.2)
	v.SetDefault("inventory.max_results", 50)

	v.SetDefault("ingest.lock_path", "data/ingest.lock")
	v.SetDefault("ingest.max_attempts", 3)
	v.SetDefault("ingest.backoff", "30s")
	v.SetDefault("ingest.max_pages", 0)
	v.SetDefault("ingest.job_retention", "1h")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.upstream", 1000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Kiosk.APIKey == "" {
		return fmt.Errorf("kiosk API key is required (set REELSCOUT_KIOSK_API_KEY)")
	}

	if config.Ratings.APIKey == "" {
		return fmt.Errorf("ratings API key is required (set REELSCOUT_RATINGS_API_KEY)")
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("redis URL is required when cache type is 'redis'")
	}

	switch config.Store.Driver {
	case "sqlite":
		if config.Store.Path == "" {
			return fmt.Errorf("store path is required when store driver is 'sqlite'")
		}
	case "postgres":
		if config.Store.DSN == "" {
			return fmt.Errorf("store DSN is required when store driver is 'postgres'")
		}
	default:
		return fmt.Errorf("store driver must be 'sqlite' or 'postgres', got: %s", config.Store.Driver)
	}

	if config.Matching.Threshold <= 0 || config.Matching.Threshold > 1 {
		return fmt.Errorf("matching threshold must be in (0, 1], got: %v", config.Matching.Threshold)
	}

	if config.Kiosk.PageSize <= 0 || config.Kiosk.MaxKiosks <= 0 || config.Inventory.MaxResults <= 0 {
		return fmt.Errorf("page_size, max_kiosks and max_results must be positive")
	}

	if config.Ingest.MaxAttempts <= 0 {
		return fmt.Errorf("ingest max attempts must be positive, got: %d", config.Ingest.MaxAttempts)
	}

	return nil
}
