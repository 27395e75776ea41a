package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/race-results/internal/config"
	"github.com/jonathan/race-results/internal/db"
	"github.com/jonathan/race-results/internal/events"
	"github.com/jonathan/race-results/internal/fetch"
	"github.com/jonathan/race-results/internal/logging"
	"github.com/jonathan/race-results/internal/observability"
	"github.com/jonathan/race-results/internal/registry"
	"github.com/jonathan/race-results/internal/research"
	"github.com/jonathan/race-results/internal/scraper"
	"github.com/jonathan/race-results/internal/weather"
)

// app holds the collaborators shared by the commands.
type app struct {
	cfg       *config.Config
	logger    *logrus.Logger
	db        *db.DB
	redis     *redis.Client
	publisher events.Publisher
	registry  *registry.Registry
	service   *research.Service
}

func loadConfig() (*config.Config, *logrus.Logger, error) {
	if outputFormat != "json" && outputFormat != "text" {
		return nil, nil, fmt.Errorf("invalid --output %q: must be json or text", outputFormat)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	return cfg, logger, nil
}

// newRegistry builds the race registry over the embedded catalog, merged with
// the configured catalog file.
func newRegistry(cfg *config.Config, logger logrus.FieldLogger, redisClient *redis.Client) (*registry.Registry, error) {
	cat, err := registry.DefaultCatalog()
	if err != nil {
		return nil, err
	}
	if cfg.RaceCatalogPath != "" {
		extra, err := registry.LoadCatalogFile(cfg.RaceCatalogPath)
		if err != nil {
			return nil, err
		}
		cat = cat.Merge(extra)
		logger.WithField("path", cfg.RaceCatalogPath).Info("merged race catalog")
	}

	ttl, _ := cfg.PageCacheTTLDuration()
	timeout, _ := cfg.FetchTimeoutDuration()
	opts := fetch.DefaultOptions()
	if timeout > 0 {
		opts.Timeout = timeout
	}

	fetcherCfg := &fetch.CachedFetcherConfig{
		CacheTTL: ttl,
		Options:  opts,
		Logger:   logger,
	}
	if cfg.ScraperRPS > 0 {
		fetcherCfg.Limiter = fetch.NewHostLimiter(cfg.ScraperRPS, cfg.ScraperBurst)
	}
	if cfg.UseBrowser {
		fetcherCfg.Renderer = fetch.NewBrowserRenderer(logger)
	}

	var cache fetch.PageCache
	if redisClient != nil {
		cache = fetch.NewRedisPageCache(redisClient, "")
	}

	return registry.New(cat, scraper.Deps{
		Fetcher: fetch.NewCachedFetcher(cache, fetcherCfg),
		Logger:  logger,
	})
}

// newApp connects every collaborator the research service needs.
func newApp(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, publisher: events.NopPublisher{}}

	a.db, err = db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.RedisURL != "" {
		a.redis, err = fetch.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			// The page cache is an optimization; research works without it.
			logger.WithError(err).Warn("page cache disabled")
			a.redis = nil
		}
	}

	a.registry, err = newRegistry(cfg, logger, a.redis)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to build race registry: %w", err)
	}

	if len(cfg.KafkaBrokers) > 0 {
		a.publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	}

	a.service, err = research.NewService(research.Config{
		Store:     a.db,
		Resolver:  a.registry,
		Weather:   weather.NewOpenMeteo(),
		Publisher: a.publisher,
		Logger:    logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases every connection the app opened.
func (a *app) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.WithError(err).Warn("failed to close event publisher")
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// writeResult prints a research result in the selected output format.
func writeResult(w io.Writer, result *research.Result) error {
	if outputFormat == "text" {
		observability.NewPrinter(w).PrintResult(result)
		return nil
	}
	return printJSON(w, result)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
