package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seanankenbruck/qsar-chat/internal/app"
	"github.com/seanankenbruck/qsar-chat/internal/config"
	"github.com/seanankenbruck/qsar-chat/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration from env, optional config file and mounted secrets
	loader, err := config.NewDefaultLoader(os.Getenv("QSAR_CONFIG_FILE"))
	if err != nil {
		log.Fatal("Failed to read config file:", err)
	}
	cfg, err := loader.Load(ctx)
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	if err := cfg.ValidateWithContext(); err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	if err := observability.ConfigureLogging(observability.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	}); err != nil {
		log.Fatal("Failed to configure logging:", err)
	}
	defer observability.SyncLogging()

	gin.SetMode(cfg.Server.GinMode)
	logger := observability.NewLogger("main")
	logger.Info(ctx, "Configuration loaded", map[string]interface{}{
		"secret_sources":  loader.Sources(ctx, config.SensitiveKeys...),
		"report_store":    cfg.Report.Store,
		"history_backend": cfg.History.Backend,
	})

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error(ctx, "Failed to initialize application", err, nil)
		os.Exit(1)
	}
	defer application.Close()

	// Drop idle rate-limit clients in the background
	go application.Limiter.Run(ctx, 5*time.Minute)

	router, err := application.Router()
	if err != nil {
		logger.Error(ctx, "Failed to build router", err, nil)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info(ctx, "QSAR chat server starting", map[string]interface{}{
			"port":    cfg.Server.Port,
			"version": application.Catalog.Version(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "Failed to start server", err, nil)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "Graceful shutdown failed", err, nil)
	}
	logger.Info(shutdownCtx, "QSAR chat server stopped", nil)
}
