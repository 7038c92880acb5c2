// Package app provides the core application initialization and lifecycle
// management.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jobharbor/harvest/internal/config"
	"github.com/jobharbor/harvest/internal/crawl"
	"github.com/jobharbor/harvest/internal/dedup"
	"github.com/jobharbor/harvest/internal/ingest"
	"github.com/jobharbor/harvest/internal/notify"
	"github.com/jobharbor/harvest/internal/quota"
	"github.com/jobharbor/harvest/internal/ratelimit"
	"github.com/jobharbor/harvest/internal/source"
	"github.com/jobharbor/harvest/internal/store"
	"github.com/jobharbor/harvest/pkg/models"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands.
// Use Close() to ensure proper resource cleanup on shutdown.
type Application struct {
	Config      *config.Config
	Logger      *zerolog.Logger
	Ledger      *quota.Ledger
	Store       store.Store
	Crawler     *crawl.Crawler
	Engine      *dedup.Engine
	Coordinator *ingest.Coordinator
	Sources     []source.Client
	HTTPClient  *http.Client

	pg       *store.Postgres
	redis    *quota.RedisStore
	renderer *crawl.ChromeRenderer
}

// New creates and initializes a new Application with all dependencies.
//
// Storage selection: Postgres when HARVEST_DATABASE_URL is set, otherwise an
// in-memory store. Quota persistence: Redis when HARVEST_REDIS_URL is set,
// otherwise a JSON state file. If a configured backend cannot be reached an
// error is returned; no partial applications are handed out.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := initLogger(cfg)

	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	app := &Application{
		Config:     cfg,
		Logger:     &logger,
		HTTPClient: httpClient,
	}

	// Quota persistence
	var quotaStore quota.Store
	switch {
	case cfg.RedisURL != "":
		rs, err := quota.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect quota store: %w", err)
		}
		app.redis = rs
		quotaStore = rs
		logger.Debug().Msg("Quota ledger backed by Redis")
	default:
		path := cfg.QuotaFile
		if path == "" {
			path = defaultQuotaPath()
		}
		fs, err := quota.NewFileStore(path)
		if err != nil {
			return nil, fmt.Errorf("open quota state file: %w", err)
		}
		quotaStore = fs
		logger.Debug().Str("path", path).Msg("Quota ledger backed by state file")
	}
	app.Ledger = quota.NewLedger(quotaStore)

	// Job storage
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect job store: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("prepare job store schema: %w", err)
		}
		app.pg = pg
		app.Store = pg
		logger.Debug().Msg("Job store backed by Postgres")
	} else {
		app.Store = store.NewMemory()
		logger.Warn().Msg("No database configured, job store is in-memory only")
	}

	// Crawler with per-host politeness; headless renderer only when enabled.
	limiter := ratelimit.NewHostLimiter(cfg.MinHostDelay)
	var renderer crawl.Renderer
	if cfg.Render {
		app.renderer = crawl.NewChromeRenderer(cfg.UserAgent, cfg.ChromePath)
		renderer = app.renderer
		logger.Debug().Msg("Headless renderer enabled")
	}
	app.Crawler = crawl.New(httpClient, limiter, renderer, cfg.UserAgent, cfg.CacheMaxEntries, cfg.CacheTTL)

	app.Engine = dedup.NewEngine(app.Store)

	var sink notify.Sink = notify.LogSink{}
	if cfg.WebhookURL != "" {
		sink = notify.MultiSink{notify.LogSink{}, &notify.WebhookSink{URL: cfg.WebhookURL, Client: httpClient}}
	}
	app.Coordinator = ingest.New(app.Engine, app.Crawler, sink, cfg.Concurrency, cfg.FetchLimit)

	sources, err := buildSources(ctx, app.Ledger, httpClient, cfg)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	app.Sources = sources

	logger.Info().Msg("Application initialized successfully")
	return app, nil
}

// buildSources constructs every configured API provider. A provider with no
// credentials at all is simply not enabled; a provider with partial
// credentials is a configuration error and fatal at startup.
func buildSources(ctx context.Context, ledger *quota.Ledger, client *http.Client, cfg *config.Config) ([]source.Client, error) {
	var sources []source.Client

	appID := config.Credential("adzuna_app_id")
	appKey := config.Credential("adzuna_app_key")
	switch {
	case appID != "" && appKey != "":
		sources = append(sources, source.NewAdzuna(ctx, ledger, client, appID, appKey, cfg.AdzunaCountry, cfg.AdzunaSearch))
	case appID != "" || appKey != "":
		return nil, fmt.Errorf("adzuna is partially configured: both adzuna_app_id and adzuna_app_key are required")
	default:
		log.Debug().Msg("adzuna credentials not set, provider not enabled")
	}

	return sources, nil
}

// Targets loads the configured career-page targets.
func (a *Application) Targets() ([]models.CrawlTarget, error) {
	return config.LoadTargets(a.Config.TargetsFile)
}

// Close gracefully shuts down the application and all its resources.
// Errors during shutdown are logged but do not prevent other shutdown steps.
func (a *Application) Close(ctx context.Context) error {
	a.Logger.Info().Msg("Shutting down application")

	if a.pg != nil {
		a.pg.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing quota store")
		}
	}
	if a.HTTPClient != nil {
		a.HTTPClient.CloseIdleConnections()
	}

	a.Logger.Info().Msg("Application shutdown complete")
	return nil
}

func initLogger(cfg *config.Config) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.LogLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	var logWriter io.Writer
	if cfg.JSONLog {
		logWriter = os.Stderr
	} else {
		logWriter = zerolog.NewConsoleWriter()
	}

	logger := log.Output(logWriter).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

func defaultQuotaPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".harvest/quota.json"
	}
	return filepath.Join(home, ".harvest", "quota.json")
}
