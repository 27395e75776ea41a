// Package fetch provides generic URL fetching with optional caching.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultPageCacheTTL is how long a fetched results page is reused. Results pages
// are effectively immutable once published, but corrections do happen.
const DefaultPageCacheTTL = 6 * time.Hour

// PageCache stores fetched page bodies by URL.
type PageCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, body string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisPageCache is a PageCache backed by Redis.
type RedisPageCache struct {
	client *redis.Client
	prefix string
}

// NewRedisPageCache creates a page cache using client. Keys are namespaced with prefix.
func NewRedisPageCache(client *redis.Client, prefix string) *RedisPageCache {
	if prefix == "" {
		prefix = "race-results:page:"
	}
	return &RedisPageCache{client: client, prefix: prefix}
}

// ConnectRedis parses a redis:// URL and verifies the connection.
func ConnectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// Get returns the cached body for key.
func (c *RedisPageCache) Get(ctx context.Context, key string) (string, bool, error) {
	body, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return body, true, nil
}

// Set stores body under key for ttl.
func (c *RedisPageCache) Set(ctx context.Context, key string, body string, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, body, ttl).Err()
}

// Delete removes key.
func (c *RedisPageCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

// CachedFetcher wraps URL fetching and browser rendering with a page cache and a
// per-host request limiter. A nil cache disables caching.
type CachedFetcher struct {
	cache     PageCache
	options   *Options
	cacheTTL  time.Duration
	skipCache bool // For testing or forcing fresh fetches
	limiter   *HostLimiter
	renderer  Renderer
	logger    logrus.FieldLogger
}

// CachedFetcherConfig holds configuration for the cached fetcher.
type CachedFetcherConfig struct {
	CacheTTL  time.Duration
	SkipCache bool
	Options   *Options
	Limiter   *HostLimiter
	Renderer  Renderer
	Logger    logrus.FieldLogger
}

// DefaultCachedFetcherConfig returns sensible defaults.
func DefaultCachedFetcherConfig() *CachedFetcherConfig {
	return &CachedFetcherConfig{
		CacheTTL:  DefaultPageCacheTTL,
		SkipCache: false,
		Options:   DefaultOptions(),
	}
}

// NewCachedFetcher creates a new cached fetcher.
func NewCachedFetcher(cache PageCache, config *CachedFetcherConfig) *CachedFetcher {
	if config == nil {
		config = DefaultCachedFetcherConfig()
	}
	if config.Options == nil {
		config.Options = DefaultOptions()
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = DefaultPageCacheTTL
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	return &CachedFetcher{
		cache:     cache,
		options:   config.Options,
		cacheTTL:  config.CacheTTL,
		skipCache: config.SkipCache,
		limiter:   config.Limiter,
		renderer:  config.Renderer,
		logger:    config.Logger,
	}
}

// CachedResult extends Result with cache metadata.
type CachedResult struct {
	*Result
	FromCache bool
}

// Fetch retrieves a URL over HTTP, using the cache if available.
func (f *CachedFetcher) Fetch(ctx context.Context, urlStr string) (*CachedResult, error) {
	return f.cached(ctx, "http:"+urlStr, urlStr, func(ctx context.Context) (*Result, error) {
		return URL(ctx, urlStr, f.options)
	})
}

// Render retrieves a URL through the headless browser, using the cache if available.
func (f *CachedFetcher) Render(ctx context.Context, urlStr string, waitSelector string) (*CachedResult, error) {
	if f.renderer == nil {
		return nil, &Error{URL: urlStr, Message: "browser rendering is not configured"}
	}
	return f.cached(ctx, "browser:"+urlStr, urlStr, func(ctx context.Context) (*Result, error) {
		html, err := f.renderer.Render(ctx, urlStr, waitSelector)
		if err != nil {
			return nil, err
		}
		return &Result{URL: urlStr, HTML: html, StatusCode: 200}, nil
	})
}

// FetchJSON retrieves a URL and decodes the JSON body into v.
func (f *CachedFetcher) FetchJSON(ctx context.Context, urlStr string, v any) (*CachedResult, error) {
	result, err := f.Fetch(ctx, urlStr)
	if err != nil {
		return nil, err
	}
	if err := DecodeJSON(result.Result, v); err != nil {
		// A cached body that no longer decodes is useless; drop it so the next call refetches.
		if result.FromCache {
			_ = f.InvalidateCache(ctx, urlStr)
		}
		return nil, err
	}
	return result, nil
}

func (f *CachedFetcher) cached(ctx context.Context, key, urlStr string, load func(context.Context) (*Result, error)) (*CachedResult, error) {
	log := f.logger.WithField("url", urlStr)

	if !f.skipCache && f.cache != nil {
		body, ok, err := f.cache.Get(ctx, key)
		if err != nil {
			// Cache outages degrade to a direct fetch.
			log.WithError(err).Warn("page cache lookup failed")
		} else if ok {
			log.Debug("page cache hit")
			return &CachedResult{
				Result:    &Result{URL: urlStr, HTML: body, StatusCode: 200},
				FromCache: true,
			}, nil
		}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, urlStr); err != nil {
			return nil, &Error{URL: urlStr, Message: "rate limiter wait aborted", Cause: err}
		}
	}

	result, err := load(ctx)
	if err != nil {
		return nil, err
	}

	if !f.skipCache && f.cache != nil {
		if err := f.cache.Set(ctx, key, result.HTML, f.cacheTTL); err != nil {
			log.WithError(err).Warn("page cache store failed")
		}
	}

	return &CachedResult{Result: result}, nil
}

// InvalidateCache drops every cached variant of a URL, forcing a re-fetch on next request.
func (f *CachedFetcher) InvalidateCache(ctx context.Context, urlStr string) error {
	if f.cache == nil {
		return nil
	}
	for _, key := range []string{"http:" + urlStr, "browser:" + urlStr} {
		if err := f.cache.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
