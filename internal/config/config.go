// Package config loads the application configuration from environment
// variables plus the vendors.yml seed file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	VendorSeedPath string
	Store          StoreConfig
	API            APIConfig
	Identity       IdentityConfig
	Feed           FeedConfig
	Rating         RatingConfig
	Observability  ObservabilityConfig
}

// StoreConfig configures the SQLite-backed store
type StoreConfig struct {
	SQLitePath string
}

// APIConfig configures the HTTP API server
type APIConfig struct {
	Port           int
	AllowedOrigins []string
}

// IdentityConfig configures the token verifier
type IdentityConfig struct {
	Endpoint        string
	APIKey          string
	Timeout         time.Duration
	AllowTestTokens bool
}

// FeedConfig configures the NVD feed client and the batch downloader
type FeedConfig struct {
	BaseURL      string
	APIKey       string
	PageSize     int
	RequestDelay time.Duration
	Timeout      time.Duration
	UserAgent    string
}

// RatingConfig configures the relevance engine. Threshold is a CEL
// expression over the variables score, severity and vendorMatch.
type RatingConfig struct {
	ThresholdExpression string
}

// ObservabilityConfig configures logging and metrics
type ObservabilityConfig struct {
	LogLevel        string
	MetricsPort     int
	HealthCheckPort int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		VendorSeedPath: getEnv("VULNRADAR_VENDORS", "vendors.yml"),
		Store: StoreConfig{
			SQLitePath: getEnv("SQLITE_PATH", "vulnradar.db"),
		},
		API: APIConfig{
			Port:           getEnvInt("API_PORT", 8080),
			AllowedOrigins: splitList(getEnv("API_ALLOWED_ORIGINS", "*")),
		},
		Identity: IdentityConfig{
			Endpoint:        getEnv("IDENTITY_ENDPOINT", "https://identitytoolkit.googleapis.com/v1/accounts:lookup"),
			APIKey:          getEnv("IDENTITY_API_KEY", ""),
			Timeout:         getEnvDuration("IDENTITY_TIMEOUT", 10*time.Second),
			AllowTestTokens: getEnvBool("IDENTITY_ALLOW_TEST_TOKENS", false),
		},
		Feed: FeedConfig{
			BaseURL:      getEnv("NVD_BASE_URL", "https://services.nvd.nist.gov/rest/json/cves/2.0"),
			APIKey:       getEnv("NVD_API_KEY", ""),
			PageSize:     getEnvInt("NVD_PAGE_SIZE", 20),
			RequestDelay: getEnvDuration("NVD_REQUEST_DELAY", 6*time.Second),
			Timeout:      getEnvDuration("NVD_TIMEOUT", 30*time.Second),
			UserAgent:    getEnv("NVD_USER_AGENT", "vulnradar/1.0"),
		},
		Rating: RatingConfig{
			ThresholdExpression: getEnv("RATING_THRESHOLD_EXPR", "score >= 50"),
		},
		Observability: ObservabilityConfig{
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			MetricsPort:     getEnvInt("METRICS_PORT", 9090),
			HealthCheckPort: getEnvInt("HEALTH_CHECK_PORT", 8081),
		},
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Store.SQLitePath == "" {
		return fmt.Errorf("sqlite path is required")
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("invalid API port: %d", c.API.Port)
	}

	if c.Feed.BaseURL == "" {
		return fmt.Errorf("feed base URL is required")
	}

	if c.Feed.PageSize <= 0 {
		return fmt.Errorf("feed page size must be positive: %d", c.Feed.PageSize)
	}

	if c.Feed.RequestDelay < 0 {
		return fmt.Errorf("feed request delay must not be negative")
	}

	if !c.Identity.AllowTestTokens && c.Identity.APIKey == "" {
		return fmt.Errorf("identity API key is required unless test tokens are allowed")
	}

	if c.Rating.ThresholdExpression == "" {
		return fmt.Errorf("rating threshold expression is required")
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intValue int
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
