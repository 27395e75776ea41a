package ratelimit

import (
	"strconv"
	"strings"
	"time"
)

// EndpointConfig is the limit applied to one route.
type EndpointConfig struct {
	Path   string        // Exact path, or a prefix when it ends with "/"
	Method string        // HTTP method
	Limit  int           // Requests per window; zero means unlimited
	Window time.Duration // Refill window
	Burst  int           // Defaults to Limit when zero
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	IdleTTL         time.Duration
	Allowlist       map[string]bool
	Denylist        map[string]bool
	EndpointConfigs []EndpointConfig
}

// DefaultConfig returns the limits used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    600,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         time.Hour,
		Allowlist:       map[string]bool{},
		Denylist:        map[string]bool{},
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// LoadConfig builds a Config from RATE_LIMIT_* variables read through lookup,
// typically os.LookupEnv. Malformed values fall back to the defaults.
func LoadConfig(lookup func(string) (string, bool)) *Config {
	cfg := DefaultConfig()
	get := func(key string) string {
		if v, ok := lookup(key); ok {
			return strings.TrimSpace(v)
		}
		return ""
	}

	if v, err := strconv.ParseBool(get("RATE_LIMIT_ENABLED")); err == nil {
		cfg.Enabled = v
	}
	if v, err := strconv.Atoi(get("RATE_LIMIT_DEFAULT_LIMIT")); err == nil && v >= 0 {
		cfg.DefaultLimit = v
	}
	if v, err := time.ParseDuration(get("RATE_LIMIT_DEFAULT_WINDOW")); err == nil && v > 0 {
		cfg.DefaultWindow = v
	}
	if v, err := time.ParseDuration(get("RATE_LIMIT_CLEANUP_INTERVAL")); err == nil && v > 0 {
		cfg.CleanupInterval = v
	}
	if v, err := strconv.Atoi(get("RATE_LIMIT_RESEARCH_PER_HOUR")); err == nil && v >= 0 {
		for i := range cfg.EndpointConfigs {
			if cfg.EndpointConfigs[i].Window == time.Hour {
				cfg.EndpointConfigs[i].Limit = v
			}
		}
	}
	cfg.Allowlist = parseIPList(get("RATE_LIMIT_ALLOWLIST"))
	cfg.Denylist = parseIPList(get("RATE_LIMIT_DENYLIST"))
	return cfg
}

// DefaultEndpointConfigs returns the per-route limits. Routes that can reach a
// timing site or the weather archive are limited hardest.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Scrapes
		{Path: "/orders/", Method: "POST", Limit: 120, Window: time.Hour, Burst: 10},
		{Path: "/research/batch", Method: "POST", Limit: 20, Window: time.Hour, Burst: 2},
		{Path: "/race-editions/", Method: "POST", Limit: 60, Window: time.Hour, Burst: 5},

		// Database writes only
		{Path: "/orders/", Method: "PATCH", Limit: 100, Window: time.Minute, Burst: 10},
	}
}

func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
