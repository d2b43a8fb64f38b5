package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/osvaldoandrade/songbridge/internal/metrics"
	"github.com/osvaldoandrade/songbridge/internal/middleware"
	"github.com/osvaldoandrade/songbridge/internal/providers"
	"github.com/osvaldoandrade/songbridge/internal/push"
	"github.com/osvaldoandrade/songbridge/internal/ratelimit"
	"github.com/osvaldoandrade/songbridge/internal/services"
	"github.com/osvaldoandrade/songbridge/internal/tracing"
	"github.com/osvaldoandrade/songbridge/pkg/config"
	"github.com/osvaldoandrade/songbridge/pkg/persistence"
	_ "github.com/osvaldoandrade/songbridge/pkg/persistence/memory" // register memory provider
	_ "github.com/osvaldoandrade/songbridge/pkg/persistence/redis"  // register redis provider

	"github.com/gin-gonic/gin"
)

type Application struct {
	Config      *config.Config
	Engine      *gin.Engine
	Logger      *slog.Logger
	Store       persistence.PluginPersistence
	Dispatcher  services.DispatcherService
	Callbacks   services.CallbackService
	Covers      services.CoverService
	Generation  services.GenerationService
	Stats       services.StatsService
	Housekeeper services.HousekeepingService
	RateLimiter ratelimit.Limiter
	RateLimits  ratelimit.Policy

	SunoClient providers.SunoClient
	Now        func() time.Time

	TracingShutdown func(context.Context) error
	stopBackground  context.CancelFunc
}

// ApplicationOption configures the Application
type ApplicationOption func(*Application) error

// WithPersistence replaces the configured persistence provider
func WithPersistence(store persistence.PluginPersistence) ApplicationOption {
	return func(app *Application) error {
		app.Store = store
		return nil
	}
}

// WithSunoClient replaces the provider client
func WithSunoClient(client providers.SunoClient) ApplicationOption {
	return func(app *Application) error {
		app.SunoClient = client
		return nil
	}
}

// WithRateLimiter sets the limiter used on generation endpoints
func WithRateLimiter(lim ratelimit.Limiter) ApplicationOption {
	return func(app *Application) error {
		app.RateLimiter = lim
		return nil
	}
}

func WithClock(now func() time.Time) ApplicationOption {
	return func(app *Application) error {
		app.Now = now
		return nil
	}
}

func NewApplication(cfg *config.Config, opts ...ApplicationOption) (*Application, error) {
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	app := &Application{Config: cfg, Logger: logger, Now: time.Now}
	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	shutdown, err := tracing.Setup(context.Background(), tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		OTLPInsecure: cfg.Tracing.OTLPInsecure,
		SampleRatio:  cfg.Tracing.SampleRatio,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("tracing setup: %w", err)
	}
	app.TracingShutdown = shutdown

	if app.Store == nil {
		store, err := openPersistence(cfg, app.Now)
		if err != nil {
			return nil, err
		}
		app.Store = store
	}
	app.RateLimits = ratelimit.PolicyFromConfig(cfg.RateLimit)
	if app.RateLimiter == nil && app.RateLimits.Enabled() {
		app.RateLimiter = ratelimit.NewRedisLimiter(providers.NewRedisProvider(cfg.RedisAddr, cfg.RedisPassword))
	}
	if app.SunoClient == nil {
		app.SunoClient = providers.NewSunoClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey, time.Duration(cfg.ProviderTimeoutSeconds)*time.Second)
	}

	app.Dispatcher = services.NewDispatcherService(push.NewRegistry(), logger)
	app.Callbacks = services.NewCallbackService(app.Store, services.NewNormalizerService(), app.Dispatcher, logger, app.Now)
	app.Covers = services.NewCoverService(app.Store.CoverResults(), logger)
	app.Generation = services.NewGenerationService(app.SunoClient, services.CallbackURLs{
		Music:  cfg.MusicCallbackURL,
		Lyrics: cfg.LyricsCallbackURL,
		Cover:  cfg.CoverCallbackURL,
	}, cfg.ProviderMock, logger)
	app.Stats = services.NewStatsService(app.Dispatcher, app.Store)
	app.Housekeeper = services.NewHousekeepingService(app.Store, logger, cfg.ProcessedClearThreshold, cfg.ProcessedSweepIntervalSeconds)

	metrics.RegisterStateCollector(app.Stats, logger)

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.LoggerMiddleware(logger),
		middleware.TracingMiddleware(cfg.Tracing.ServiceName),
	)
	app.Engine = engine

	bg, cancel := context.WithCancel(context.Background())
	app.stopBackground = cancel
	go app.Housekeeper.Start(bg)

	logger.Info("application ready",
		"persistence", cfg.PersistenceProvider,
		"provider_mock", cfg.ProviderMock,
		"rate_limit", app.RateLimiter != nil,
	)
	return app, nil
}

// Close stops background work, waits for in-flight callback processing and releases storage.
func (a *Application) Close(ctx context.Context) error {
	if a.stopBackground != nil {
		a.stopBackground()
	}
	if err := a.Callbacks.Wait(ctx); err != nil {
		a.Logger.Warn("callback drain incomplete", "err", err)
	}
	if a.TracingShutdown != nil {
		if err := a.TracingShutdown(ctx); err != nil {
			a.Logger.Warn("tracing shutdown failed", "err", err)
		}
	}
	return a.Store.Close()
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := new(slog.LevelVar)
	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler).With("service", "songbridge", "env", cfg.Env)
}

func openPersistence(cfg *config.Config, now func() time.Time) (persistence.PluginPersistence, error) {
	var raw json.RawMessage
	if cfg.PersistenceProvider == "redis" {
		b, err := json.Marshal(map[string]string{"addr": cfg.RedisAddr, "password": cfg.RedisPassword})
		if err != nil {
			return nil, err
		}
		raw = b
	}
	store, err := persistence.NewPersistence(
		persistence.ProviderConfig{Type: cfg.PersistenceProvider, Config: raw},
		persistence.PluginConfig{
			CoverRetention: time.Duration(cfg.CoverResultRetentionSeconds) * time.Second,
			Now:            now,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("open persistence %q: %w", cfg.PersistenceProvider, err)
	}
	return store, nil
}
