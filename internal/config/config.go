// Package config provides configuration loading and validation for the service and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config is the runtime configuration. Values come from defaults, then an
// optional JSON file, then environment variables.
type Config struct {
	// Storage
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
	RedisURL    string `json:"redis_url,omitempty"`    // Results page cache; empty disables caching

	// Events
	KafkaBrokers []string `json:"kafka_brokers,omitempty"` // Empty disables order events
	KafkaTopic   string   `json:"kafka_topic,omitempty"`

	// Scraping
	RaceCatalogPath string  `json:"race_catalog_path,omitempty"` // Extra catalog entries merged over the embedded catalog
	ScraperRPS      float64 `json:"scraper_rps,omitempty"`       // Outbound requests per second per host
	ScraperBurst    int     `json:"scraper_burst,omitempty"`
	UseBrowser      bool    `json:"use_browser,omitempty"` // Allow headless browser rendering
	PageCacheTTL    string  `json:"page_cache_ttl,omitempty"`
	FetchTimeout    string  `json:"fetch_timeout,omitempty"`

	// Service
	ListenAddr string `json:"listen_addr,omitempty"`
	LogLevel   string `json:"log_level,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		KafkaTopic:   "race-results.orders",
		ScraperRPS:   1,
		ScraperBurst: 2,
		UseBrowser:   true,
		PageCacheTTL: "6h",
		FetchTimeout: "30s",
		ListenAddr:   ":8080",
		LogLevel:     "info",
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Load builds the effective configuration: defaults, then the file at path
// (if non-empty), then environment variables. The result is validated.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		fileCfg, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	merged := cfg.MergeWithDefaults(Defaults())
	if err := merged.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// ApplyEnv overlays environment variables onto the configuration.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("DATABASE_URL", &c.DatabaseURL)
	str("REDIS_URL", &c.RedisURL)
	str("KAFKA_TOPIC", &c.KafkaTopic)
	str("RACE_CATALOG_PATH", &c.RaceCatalogPath)
	str("PAGE_CACHE_TTL", &c.PageCacheTTL)
	str("FETCH_TIMEOUT", &c.FetchTimeout)
	str("LISTEN_ADDR", &c.ListenAddr)
	str("LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.KafkaBrokers = splitList(v)
	}
	if v, ok := lookup("SCRAPER_RPS"); ok && v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config error: SCRAPER_RPS: %w", err)
		}
		c.ScraperRPS = rps
	}
	if v, ok := lookup("SCRAPER_BURST"); ok && v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config error: SCRAPER_BURST: %w", err)
		}
		c.ScraperBurst = burst
	}
	if v, ok := lookup("USE_BROWSER"); ok && v != "" {
		use, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config error: USE_BROWSER: %w", err)
		}
		c.UseBrowser = use
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks that the configuration has valid values.
// Note: DatabaseURL is not required here; commands that need storage check it.
func (c *Config) Validate() error {
	if c.ScraperRPS < 0 {
		return fmt.Errorf("config error: 'scraper_rps' must be non-negative")
	}
	if c.ScraperBurst < 0 {
		return fmt.Errorf("config error: 'scraper_burst' must be non-negative")
	}
	if _, err := c.PageCacheTTLDuration(); err != nil {
		return fmt.Errorf("config error: 'page_cache_ttl': %w", err)
	}
	if _, err := c.FetchTimeoutDuration(); err != nil {
		return fmt.Errorf("config error: 'fetch_timeout': %w", err)
	}
	if c.LogLevel != "" {
		if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("config error: 'log_level': %w", err)
		}
	}
	for name, raw := range map[string]string{"database_url": c.DatabaseURL, "redis_url": c.RedisURL} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" {
			return fmt.Errorf("config error: '%s' is not a valid URL", name)
		}
	}

	// Validate file paths exist (if specified)
	if c.RaceCatalogPath != "" {
		if _, err := os.Stat(c.RaceCatalogPath); os.IsNotExist(err) {
			return fmt.Errorf("config error: race catalog file not found: %s", c.RaceCatalogPath)
		}
	}

	return nil
}

// RequireDatabase reports an error when no database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config error: DATABASE_URL is required")
	}
	return nil
}

// PageCacheTTLDuration parses PageCacheTTL; empty means zero (fetcher default).
func (c *Config) PageCacheTTLDuration() (time.Duration, error) {
	return parseDuration(c.PageCacheTTL)
}

// FetchTimeoutDuration parses FetchTimeout; empty means zero (fetcher default).
func (c *Config) FetchTimeoutDuration() (time.Duration, error) {
	return parseDuration(c.FetchTimeout)
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %s is negative", s)
	}
	return d, nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.RedisURL == "" {
		result.RedisURL = defaults.RedisURL
	}
	if result.KafkaTopic == "" {
		result.KafkaTopic = defaults.KafkaTopic
	}
	if result.RaceCatalogPath == "" {
		result.RaceCatalogPath = defaults.RaceCatalogPath
	}
	if result.PageCacheTTL == "" {
		result.PageCacheTTL = defaults.PageCacheTTL
	}
	if result.FetchTimeout == "" {
		result.FetchTimeout = defaults.FetchTimeout
	}
	if result.ListenAddr == "" {
		result.ListenAddr = defaults.ListenAddr
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if len(result.KafkaBrokers) == 0 {
		result.KafkaBrokers = defaults.KafkaBrokers
	}

	// Numeric fields: use default if zero
	if result.ScraperRPS == 0 {
		result.ScraperRPS = defaults.ScraperRPS
	}
	if result.ScraperBurst == 0 {
		result.ScraperBurst = defaults.ScraperBurst
	}

	// Bool fields: cannot distinguish unset from false, so an explicit false in
	// the file loses to a true default. USE_BROWSER=false still wins.
	if !result.UseBrowser {
		result.UseBrowser = defaults.UseBrowser
	}

	return result
}
