package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Catalog   CatalogConfig
	Cache     CacheConfig
	NAFDAC    NAFDACConfig
	Adapters  AdaptersConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration. LogLevel overrides
// the environment's default log level when set.
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	LogLevel       string   `mapstructure:"log_level"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CatalogConfig holds internal product catalog configuration
type CatalogConfig struct {
	Path string `mapstructure:"path"` // sqlite database file
}

// CacheConfig holds result-cache configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory", "sqlite" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// NAFDACConfig holds the regulator lookup endpoint configuration
type NAFDACConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	EnableMock bool   `mapstructure:"enable_mock"` // serve fabricated data when the live endpoint fails
}

// AdaptersConfig holds per-adapter tunables. Confidence holds the
// fixed per-source success confidence; Enabled toggles adapters off
// without redeploying.
type AdaptersConfig struct {
	Timeout    time.Duration      `mapstructure:"timeout"`
	Confidence map[string]float64 `mapstructure:"confidence"`
	Enabled    map[string]bool    `mapstructure:"enabled"`
	OpenFood   EndpointConfig     `mapstructure:"openfood"`
	Drugs      EndpointConfig     `mapstructure:"drugs"`
	Cosmetics  EndpointConfig     `mapstructure:"cosmetics"`
	Barcode    EndpointConfig     `mapstructure:"barcode"`
}

// EndpointConfig holds one registry endpoint's base URL and rate limit
type EndpointConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	RequestsPerSec float64 `mapstructure:"requests_per_sec"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/veriscan/")

	// Environment variable settings
	v.SetEnvPrefix("VERISCAN")
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.log_level", "")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Catalog defaults
	v.SetDefault("catalog.path", "veriscan.db")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "24h")

	// NAFDAC defaults
	v.SetDefault("nafdac.base_url", "https://registry.nafdac.gov.ng/api")
	v.SetDefault("nafdac.enable_mock", true)

	// Adapter defaults
	v.SetDefault("adapters.timeout", "5s")
	v.SetDefault("adapters.confidence", map[string]float64{
		"openfoodfacts": 0.8,
		"drugregistry":  0.6,
		"cosmeticsdb":   0.5,
		"barcodedb":     0.7,
		"nafdac":        0.8,
	})
	v.SetDefault("adapters.enabled", map[string]bool{
		"openfoodfacts": true,
		"drugregistry":  true,
		"cosmeticsdb":   true,
		"barcodedb":     true,
		"nafdac":        true,
	})
	v.SetDefault("adapters.openfood.base_url", "https://world.openfoodfacts.org")
	v.SetDefault("adapters.openfood.requests_per_sec", 2.0)
	v.SetDefault("adapters.drugs.base_url", "https://api.fda.gov/drug")
	v.SetDefault("adapters.drugs.requests_per_sec", 1.0)
	v.SetDefault("adapters.cosmetics.base_url", "https://cosmetics.registry.example.com")
	v.SetDefault("adapters.cosmetics.requests_per_sec", 1.0)
	v.SetDefault("adapters.barcode.base_url", "https://api.upcitemdb.com/prod")
	v.SetDefault("adapters.barcode.requests_per_sec", 0.5)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Cache.Type {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("cache type must be 'memory', 'sqlite' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	if config.Catalog.Path == "" {
		return fmt.Errorf("catalog path is required")
	}

	if config.Adapters.Timeout <= 0 {
		return fmt.Errorf("adapter timeout must be positive, got: %s", config.Adapters.Timeout)
	}

	for source, weight := range config.Adapters.Confidence {
		if weight < 0 || weight > 1 {
			return fmt.Errorf("adapter confidence for %s must be in [0,1], got: %f", source, weight)
		}
	}

	return nil
}
