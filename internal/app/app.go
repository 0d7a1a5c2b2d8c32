// Package app assembles the chat service from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/seanankenbruck/qsar-chat/internal/catalog"
	"github.com/seanankenbruck/qsar-chat/internal/chat"
	"github.com/seanankenbruck/qsar-chat/internal/config"
	"github.com/seanankenbruck/qsar-chat/internal/database"
	"github.com/seanankenbruck/qsar-chat/internal/history"
	"github.com/seanankenbruck/qsar-chat/internal/observability"
	"github.com/seanankenbruck/qsar-chat/internal/predictor"
	"github.com/seanankenbruck/qsar-chat/internal/ratelimit"
	"github.com/seanankenbruck/qsar-chat/internal/report"
)

// ServiceName identifies this service in health and logs.
const ServiceName = "qsar-chat"

// App holds the wired service and the connections it owns
type App struct {
	Config    *config.Config
	Catalog   *catalog.Catalog
	Processor *chat.Processor
	Health    *observability.HealthChecker
	Limiter   *ratelimit.Limiter

	logger  *observability.Logger
	closers []func() error
}

// New builds every component named by cfg. Redis and Postgres are only
// dialled when the config selects them.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config: cfg,
		logger: observability.NewLogger("app"),
	}

	c, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	a.Catalog = c

	a.Health = observability.NewHealthChecker(ServiceName, c.Version())
	stats := c.Stats()
	a.Health.Register("catalog", observability.CatalogHealthCheck(stats.Version, stats.KnownSubstances, stats.SupportedEndpoints))
	a.Health.Register("memory", observability.MemoryHealthCheck(observability.RuntimeMemoryUsage))

	store, err := a.reportStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	backend, recorder, err := a.historyRecorder(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Processor = chat.NewProcessor(c, a.lookup(),
		chat.WithReports(report.NewGenerator(store, report.NewSigner(cfg.Report.SigningSecret, cfg.Report.TokenTTL))),
		chat.WithHistory(backend, recorder),
		chat.WithHealthChecker(a.Health),
	)
	a.Limiter = ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window)

	a.logger.Info(ctx, "Application assembled", map[string]interface{}{
		"catalog_version": c.Version(),
		"report_store":    cfg.Report.Store,
		"history_backend": backend,
		"simulate":        cfg.Predictor.Simulate,
		"signed_reports":  cfg.Report.SigningSecret != "",
	})
	return a, nil
}

func (a *App) lookup() *predictor.Service {
	cfg := a.Config.Predictor

	var src rand.Source
	if cfg.Seed != 0 {
		src = rand.NewSource(cfg.Seed)
	}

	var p predictor.Predictor = predictor.NewTablePredictor(a.Catalog)
	if cfg.Simulate {
		p = predictor.NewDefault(a.Catalog, predictor.NewSimulatedPredictor(src))
	}

	p = predictor.NewCircuitBreakerPredictor(p, "predictor", predictor.CircuitBreakerConfig{
		MaxRequests:   cfg.Breaker.MaxRequests,
		Interval:      cfg.Breaker.Interval,
		Timeout:       cfg.Breaker.Timeout,
		ReadyToTrip:   predictor.ConsecutiveFailures(cfg.Breaker.FailureThreshold),
		OnStateChange: predictor.RecordStateChange,
	})

	return predictor.NewService(a.Catalog, p,
		predictor.WithDelay(predictor.DelayConfig{Min: cfg.DelayMin, Jitter: cfg.DelayJitter}),
	)
}

func (a *App) reportStore(ctx context.Context) (report.Store, error) {
	cfg := a.Config
	switch cfg.Report.Store {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, rdb.Close)

		store := report.NewRedisStore(rdb, cfg.Report.TTL)
		if err := store.Ping(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		a.Health.Register("redis", observability.RedisHealthCheck(store.Ping))
		return store, nil
	case "memory", "":
		return report.NewMemoryStore(cfg.Report.TTL), nil
	default:
		return nil, fmt.Errorf("unknown report store %q", cfg.Report.Store)
	}
}

func (a *App) historyRecorder(ctx context.Context) (string, history.Recorder, error) {
	cfg := a.Config
	switch cfg.History.Backend {
	case "postgres":
		db, err := database.OpenWithRetry(ctx, database.PostgresConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Database: cfg.Database.Database,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			SSLMode:  cfg.Database.SSLMode,
		}, database.DefaultRetryConfig)
		if err != nil {
			return "", nil, err
		}
		a.closers = append(a.closers, db.Close)

		if err := database.HealthCheck(ctx, db); err != nil {
			return "", nil, err
		}
		a.Health.Register("database", observability.DatabaseHealthCheck(func(ctx context.Context) error {
			return database.HealthCheck(ctx, db)
		}))
		return "postgres", history.NewPostgresRecorder(db), nil
	case "memory", "":
		return "memory", history.NewMemoryRecorder(cfg.History.Capacity), nil
	default:
		return "", nil, fmt.Errorf("unknown history backend %q", cfg.History.Backend)
	}
}

// Router builds the HTTP engine.
func (a *App) Router() (*gin.Engine, error) {
	return a.Processor.SetupRoutes(chat.RouterConfig{
		CORSOrigin:     a.Config.Server.CORSOrigin,
		TrustedProxies: a.Config.Server.TrustedProxies,
		RateLimiter:    a.Limiter,
	})
}

// Close releases connections in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

