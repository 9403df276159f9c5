package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Clean up environment before tests
	cleanupEnv := func() {
		os.Unsetenv("VERISCAN_SERVER_PORT")
		os.Unsetenv("VERISCAN_SERVER_ENVIRONMENT")
		os.Unsetenv("VERISCAN_SERVER_LOG_LEVEL")
		os.Unsetenv("VERISCAN_CATALOG_PATH")
		os.Unsetenv("VERISCAN_CACHE_TYPE")
		os.Unsetenv("VERISCAN_CACHE_REDIS_URL")
		os.Unsetenv("VERISCAN_CACHE_TTL")
		os.Unsetenv("VERISCAN_NAFDAC_BASE_URL")
		os.Unsetenv("VERISCAN_NAFDAC_API_KEY")
		os.Unsetenv("VERISCAN_ADAPTERS_TIMEOUT")
		os.Unsetenv("VERISCAN_RATELIMIT_PER_IP")
	}

	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		cleanupEnv()
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		// Check defaults
		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if cfg.Server.LogLevel != "" {
			t.Errorf("Server.LogLevel = %s, want empty (environment default)", cfg.Server.LogLevel)
		}
		if cfg.Catalog.Path != "veriscan.db" {
			t.Errorf("Catalog.Path = %s, want veriscan.db", cfg.Catalog.Path)
		}
		if cfg.Cache.Type != "memory" {
			t.Errorf("Cache.Type = %s, want memory", cfg.Cache.Type)
		}
		if cfg.Cache.TTL != 24*time.Hour {
			t.Errorf("Cache.TTL = %v, want 24h", cfg.Cache.TTL)
		}
		if !cfg.NAFDAC.EnableMock {
			t.Error("NAFDAC.EnableMock = false, want true by default")
		}
		if cfg.Adapters.Timeout != 5*time.Second {
			t.Errorf("Adapters.Timeout = %v, want 5s", cfg.Adapters.Timeout)
		}
		if cfg.RateLimit.PerIP != 100 {
			t.Errorf("RateLimit.PerIP = %d, want 100", cfg.RateLimit.PerIP)
		}
	})

	t.Run("loads default adapter weights", func(t *testing.T) {
		cleanupEnv()
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		want := map[string]float64{
			"openfoodfacts": 0.8,
			"drugregistry":  0.6,
			"cosmeticsdb":   0.5,
			"barcodedb":     0.7,
			"nafdac":        0.8,
		}
		for source, weight := range want {
			if got := cfg.Adapters.Confidence[source]; got != weight {
				t.Errorf("Adapters.Confidence[%s] = %v, want %v", source, got, weight)
			}
			if !cfg.Adapters.Enabled[source] {
				t.Errorf("Adapters.Enabled[%s] = false, want true", source)
			}
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("VERISCAN_SERVER_PORT", "9090")
		os.Setenv("VERISCAN_SERVER_ENVIRONMENT", "production")
		os.Setenv("VERISCAN_SERVER_LOG_LEVEL", "warn")
		os.Setenv("VERISCAN_CATALOG_PATH", "/var/lib/veriscan/catalog.db")
		os.Setenv("VERISCAN_CACHE_TYPE", "redis")
		os.Setenv("VERISCAN_CACHE_REDIS_URL", "redis://localhost:6379")
		os.Setenv("VERISCAN_CACHE_TTL", "48h")
		os.Setenv("VERISCAN_NAFDAC_API_KEY", "custom-api-key")
		defer cleanupEnv()

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
		if cfg.Server.LogLevel != "warn" {
			t.Errorf("Server.LogLevel = %s, want warn", cfg.Server.LogLevel)
		}
		if cfg.Catalog.Path != "/var/lib/veriscan/catalog.db" {
			t.Errorf("Catalog.Path = %s, want /var/lib/veriscan/catalog.db", cfg.Catalog.Path)
		}
		if cfg.Cache.Type != "redis" {
			t.Errorf("Cache.Type = %s, want redis", cfg.Cache.Type)
		}
		if cfg.Cache.RedisURL != "redis://localhost:6379" {
			t.Errorf("Cache.RedisURL = %s, want redis://localhost:6379", cfg.Cache.RedisURL)
		}
		if cfg.Cache.TTL != 48*time.Hour {
			t.Errorf("Cache.TTL = %v, want 48h", cfg.Cache.TTL)
		}
		if cfg.NAFDAC.APIKey != "custom-api-key" {
			t.Errorf("NAFDAC.APIKey = %s, want custom-api-key", cfg.NAFDAC.APIKey)
		}
	})

	t.Run("fails when cache type is invalid", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("VERISCAN_CACHE_TYPE", "memcached")
		defer cleanupEnv()

		if _, err := Load(); err == nil {
			t.Error("Load() error = nil, want invalid cache type error")
		}
	})

	t.Run("fails when redis cache has no url", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("VERISCAN_CACHE_TYPE", "redis")
		defer cleanupEnv()

		if _, err := Load(); err == nil {
			t.Error("Load() error = nil, want missing redis url error")
		}
	})
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Catalog: CatalogConfig{Path: "test.db"},
			Cache:   CacheConfig{Type: "memory"},
			Adapters: AdaptersConfig{
				Timeout:    5 * time.Second,
				Confidence: map[string]float64{"nafdac": 0.8},
			},
		}
	}

	t.Run("accepts a valid config", func(t *testing.T) {
		if err := validate(base()); err != nil {
			t.Errorf("validate() error = %v, want nil", err)
		}
	})

	t.Run("rejects empty catalog path", func(t *testing.T) {
		cfg := base()
		cfg.Catalog.Path = ""
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want catalog path error")
		}
	})

	t.Run("rejects non-positive adapter timeout", func(t *testing.T) {
		cfg := base()
		cfg.Adapters.Timeout = 0
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want timeout error")
		}
	})

	t.Run("rejects out-of-range confidence weight", func(t *testing.T) {
		cfg := base()
		cfg.Adapters.Confidence["nafdac"] = 1.5
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want confidence range error")
		}
	})
}
