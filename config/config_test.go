package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("REELSCOUT_KIOSK_API_KEY", "kiosk-key")
	t.Setenv("REELSCOUT_RATINGS_API_KEY", "ratings-key")
}

func TestLoad(t *testing.T) {
	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		t.Chdir(t.TempDir())
		setRequiredEnv(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if cfg.Kiosk.BaseURL != "https://api.redbox.com" {
			t.Errorf("Kiosk.BaseURL = %s, want https://api.redbox.com", cfg.Kiosk.BaseURL)
		}
		if cfg.Kiosk.PageSize != 10 {
			t.Errorf("Kiosk.PageSize = %d, want 10", cfg.Kiosk.PageSize)
		}
		if cfg.Kiosk.MaxKiosks != 5 {
			t.Errorf("Kiosk.MaxKiosks = %d, want 5", cfg.Kiosk.MaxKiosks)
		}
		if cfg.Cache.Type != "memory" {
			t.Errorf("Cache.Type = %s, want memory", cfg.Cache.Type)
		}
		if cfg.Cache.TTL != time.Hour {
			t.Errorf("Cache.TTL = %v, want 1h", cfg.Cache.TTL)
		}
		if cfg.Store.Driver != "sqlite" {
			t.Errorf("Store.Driver = %s, want sqlite", cfg.Store.Driver)
		}
		if cfg.Matching.Threshold != 0.2 {
			t.Errorf("Matching.Threshold = %v, want 0.2", cfg.Matching.Threshold)
		}
		if cfg.Inventory.MaxResults != 50 {
			t.Errorf("Inventory.MaxResults = %d, want 50", cfg.Inventory.MaxResults)
		}
		if cfg.Ingest.JobRetention != time.Hour {
			t.Errorf("Ingest.JobRetention = %v, want 1h", cfg.Ingest.JobRetention)
		}
		if cfg.Ingest.MaxAttempts != 3 {
			t.Errorf("Ingest.MaxAttempts = %d, want 3", cfg.Ingest.MaxAttempts)
		}
		if cfg.RateLimit.PerIP != 100 {
			t.Errorf("RateLimit.PerIP = %d, want 100", cfg.RateLimit.PerIP)
		}
		if cfg.RateLimit.Upstream != 1000 {
			t.Errorf("RateLimit.Upstream = %d, want 1000", cfg.RateLimit.Upstream)
		}
		if cfg.Log.Format != "auto" {
			t.Errorf("Log.Format = %s, want auto", cfg.Log.Format)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		t.Chdir(t.TempDir())
		setRequiredEnv(t)
		t.Setenv("REELSCOUT_SERVER_PORT", "9090")
		t.Setenv("REELSCOUT_SERVER_ENVIRONMENT", "production")
		t.Setenv("REELSCOUT_KIOSK_BASE_URL", "https://kiosk.example.com")
		t.Setenv("REELSCOUT_CACHE_TYPE", "redis")
		t.Setenv("REELSCOUT_CACHE_REDIS_URL", "redis://localhost:6379")
		t.Setenv("REELSCOUT_CACHE_TTL", "24h")
		t.Setenv("REELSCOUT_STORE_DRIVER", "postgres")
		t.Setenv("REELSCOUT_STORE_DSN", "postgres://localhost/reelscout")
		t.Setenv("REELSCOUT_MATCHING_THRESHOLD", "0.25")
		t.Setenv("REELSCOUT_RATELIMIT_PER_IP", "200")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Server.Environment != "production" {
			t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
		}
		if cfg.Kiosk.APIKey != "kiosk-key" {
			t.Errorf("Kiosk.APIKey = %s, want kiosk-key", cfg.Kiosk.APIKey)
		}
		if cfg.Kiosk.BaseURL != "https://kiosk.example.com" {
			t.Errorf("Kiosk.BaseURL = %s, want https://kiosk.example.com", cfg.Kiosk.BaseURL)
		}
		if cfg.Cache.Type != "redis" || cfg.Cache.RedisURL != "redis://localhost:6379" {
			t.Errorf("Cache = %+v, want redis at redis://localhost:6379", cfg.Cache)
		}
		if cfg.Cache.TTL != 24*time.Hour {
			t.Errorf("Cache.TTL = %v, want 24h", cfg.Cache.TTL)
		}
		if cfg.Store.Driver != "postgres" || cfg.Store.DSN != "postgres://localhost/reelscout" {
			t.Errorf("Store = %+v", cfg.Store)
		}
		if cfg.Matching.Threshold != 0.25 {
			t.Errorf("Matching.Threshold = %v, want 0.25", cfg.Matching.Threshold)
		}
		if cfg.RateLimit.PerIP != 200 {
			t.Errorf("RateLimit.PerIP = %d, want 200", cfg.RateLimit.PerIP)
		}
	})

	t.Run("fails validation when API key is missing", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("REELSCOUT_KIOSK_API_KEY", "")
		t.Setenv("REELSCOUT_RATINGS_API_KEY", "ratings-key")

		_, err := Load()
		if err == nil {
			t.Fatal("Load() error = nil, want error for missing API key")
		}
		if err.Error() != "invalid configuration: kiosk API key is required (set REELSCOUT_KIOSK_API_KEY)" {
			t.Errorf("Load() error = %v, want 'kiosk API key is required'", err)
		}
	})

	t.Run("fails validation for invalid cache type", func(t *testing.T) {
		t.Chdir(t.TempDir())
		setRequiredEnv(t)
		t.Setenv("REELSCOUT_CACHE_TYPE", "invalid")

		if _, err := Load(); err == nil {
			t.Error("Load() error = nil, want error for invalid cache type")
		}
	})

	t.Run("reads keys from .env", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		t.Setenv("REELSCOUT_KIOSK_API_KEY", "")
		t.Setenv("REELSCOUT_RATINGS_API_KEY", "")
		os.Unsetenv("REELSCOUT_KIOSK_API_KEY")
		os.Unsetenv("REELSCOUT_RATINGS_API_KEY")

		env := "REELSCOUT_KIOSK_API_KEY=from-dotenv\nREELSCOUT_RATINGS_API_KEY=also-dotenv\n"
		if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o644); err != nil {
			t.Fatalf("write .env: %v", err)
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}
		if cfg.Kiosk.APIKey != "from-dotenv" {
			t.Errorf("Kiosk.APIKey = %s, want from-dotenv", cfg.Kiosk.APIKey)
		}
		os.Unsetenv("REELSCOUT_KIOSK_API_KEY")
		os.Unsetenv("REELSCOUT_RATINGS_API_KEY")
	})
}

func TestLoadFile(t *testing.T) {
	t.Run("reads yaml and lets env override", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		path := filepath.Join(dir, "reelscout.yaml")
		yaml := strings.Join([]string{
			"server:",
			"  port: \"7000\"",
			"  allowed_origins:",
			"    - https://reelscout.example.com",
			"kiosk:",
			"  api_key: file-kiosk-key",
			"  max_kiosks: 3",
			"ratings:",
			"  api_key: file-ratings-key",
			"store:",
			"  path: /var/lib/reelscout/catalog.db",
			"",
		}, "\n")
		if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		t.Setenv("REELSCOUT_SERVER_PORT", "7001")

		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile() error = %v, want nil", err)
		}
		if cfg.Server.Port != "7001" {
			t.Errorf("Server.Port = %s, want 7001 from env", cfg.Server.Port)
		}
		if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "https://reelscout.example.com" {
			t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
		}
		if cfg.Kiosk.APIKey != "file-kiosk-key" || cfg.Kiosk.MaxKiosks != 3 {
			t.Errorf("Kiosk = %+v", cfg.Kiosk)
		}
		if cfg.Store.Path != "/var/lib/reelscout/catalog.db" {
			t.Errorf("Store.Path = %s", cfg.Store.Path)
		}
	})

	t.Run("fails when the file is missing", func(t *testing.T) {
		t.Chdir(t.TempDir())
		setRequiredEnv(t)
		if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("LoadFile() error = nil, want error for missing file")
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("returns nil when .env file doesn't exist", func(t *testing.T) {
		t.Chdir(t.TempDir())

		if err := loadEnvFile(); err != nil {
			t.Errorf("loadEnvFile() error = %v, want nil when file doesn't exist", err)
		}
	})

	t.Run("skips comments and blank lines", func(t *testing.T) {
		t.Chdir(t.TempDir())

		envContent := `
# Comment line
TEST_VAR_1=value1

# TEST_COMMENTED=should_not_load
TEST_VAR_2=value2
`
		if err := os.WriteFile(".env", []byte(envContent), 0o644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}
		t.Cleanup(func() {
			os.Unsetenv("TEST_VAR_1")
			os.Unsetenv("TEST_VAR_2")
		})

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}
		if os.Getenv("TEST_VAR_1") != "value1" {
			t.Errorf("TEST_VAR_1 = %s, want value1", os.Getenv("TEST_VAR_1"))
		}
		if os.Getenv("TEST_VAR_2") != "value2" {
			t.Errorf("TEST_VAR_2 = %s, want value2", os.Getenv("TEST_VAR_2"))
		}
		if _, ok := os.LookupEnv("TEST_COMMENTED"); ok {
			t.Errorf("TEST_COMMENTED should not be loaded from comment")
		}
	})

	t.Run("doesn't override existing environment variables", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("TEST_OVERRIDE", "existing-value")

		if err := os.WriteFile(".env", []byte("TEST_OVERRIDE=new-value"), 0o644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}
		if os.Getenv("TEST_OVERRIDE") != "existing-value" {
			t.Errorf("TEST_OVERRIDE = %s, want existing-value (should not override)", os.Getenv("TEST_OVERRIDE"))
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Kiosk:     KioskConfig{APIKey: "k", PageSize: 10, MaxKiosks: 5},
			Ratings:   RatingsConfig{APIKey: "r"},
			Cache:     CacheConfig{Type: "memory"},
			Store:     StoreConfig{Driver: "sqlite", Path: "catalog.db"},
			Matching:  MatchingConfig{Threshold: 0.2},
			Inventory: InventoryConfig{MaxResults: 50},
			Ingest:    IngestConfig{MaxAttempts: 3},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid configuration", func(c *Config) {}, false},
		{"missing kiosk key", func(c *Config) { c.Kiosk.APIKey = "" }, true},
		{"missing ratings key", func(c *Config) { c.Ratings.APIKey = "" }, true},
		{"invalid cache type", func(c *Config) { c.Cache.Type = "invalid-type" }, true},
		{"redis with URL", func(c *Config) { c.Cache = CacheConfig{Type: "redis", RedisURL: "redis://localhost:6379"} }, false},
		{"redis without URL", func(c *Config) { c.Cache.Type = "redis" }, true},
		{"postgres without DSN", func(c *Config) { c.Store = StoreConfig{Driver: "postgres"} }, true},
		{"postgres with DSN", func(c *Config) { c.Store = StoreConfig{Driver: "postgres", DSN: "postgres://x"} }, false},
		{"sqlite without path", func(c *Config) { c.Store.Path = "" }, true},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mysql" }, true},
		{"zero threshold", func(c *Config) { c.Matching.Threshold = 0 }, true},
		{"threshold above one", func(c *Config) { c.Matching.Threshold = 1.5 }, true},
		{"zero result limit", func(c *Config) { c.Inventory.MaxResults = 0 }, true},
		{"zero attempts", func(c *Config) { c.Ingest.MaxAttempts = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
