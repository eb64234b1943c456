package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Store backends selectable via STORE_BACKEND.
const (
	BackendJSON     = "json"
	BackendPostgres = "postgres"
)

// Config holds all configuration for the application.
type Config struct {
	Port string

	// Subscriber persistence
	StoreBackend    string
	SubscribersPath string
	DatabaseURL     string

	// Country catalog
	CountriesPath string

	// Optional Redis (digest queue, catalog cache)
	RedisURL string

	// Watcher pipeline
	ResultsPath   string
	SourceURLs    []string
	WatchSchedule string
	NumWorkers    int

	// Email digests (optional; disabled when credentials are absent)
	SESRegion    string
	SESAccessKey string
	SESSecretKey string
	EmailFrom    string

	// GitHub issue notifications (optional; disabled when token is absent)
	GitHubToken      string
	GitHubRepository string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		StoreBackend:     getEnv("STORE_BACKEND", BackendJSON),
		SubscribersPath:  getEnv("SUBSCRIBERS_PATH", "data/subscribers.json"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		CountriesPath:    getEnv("COUNTRIES_CONFIG_PATH", "config/countries.json"),
		RedisURL:         getEnv("REDIS_URL", ""),
		ResultsPath:      getEnv("DATA_PATH", "data/last_results.json"),
		SourceURLs:       splitList(getEnv("SCHOLARSHIP_URLS", "")),
		WatchSchedule:    getEnv("WATCH_SCHEDULE", "0 */6 * * *"),
		NumWorkers:       getEnvInt("NUM_WORKERS", 4),
		SESRegion:        getEnv("SES_REGION", "eu-north-1"),
		SESAccessKey:     getEnv("SES_ACCESS_KEY", ""),
		SESSecretKey:     getEnv("SES_SECRET_KEY", ""),
		EmailFrom:        getEnv("EMAIL_FROM", ""),
		GitHubToken:      getEnv("GITHUB_TOKEN", ""),
		GitHubRepository: getEnv("GITHUB_REPOSITORY", ""),
	}

	if cfg.StoreBackend != BackendJSON && cfg.StoreBackend != BackendPostgres {
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	if cfg.StoreBackend == BackendPostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required with STORE_BACKEND=postgres")
	}

	return cfg, nil
}

// EmailEnabled reports whether SES digest delivery is configured.
func (c *Config) EmailEnabled() bool {
	return c.SESAccessKey != "" && c.SESSecretKey != "" && c.EmailFrom != ""
}

// GitHubEnabled reports whether issue notifications are configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubToken != "" && c.GitHubRepository != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func splitList(val string) []string {
	if strings.TrimSpace(val) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
