// Command apiserver serves the scenario API over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/SuburbROI-Intelligence/internal/app"
	"github.com/turtacn/SuburbROI-Intelligence/internal/config"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/turtacn/SuburbROI-Intelligence/internal/interfaces/http"
)

// Build-time variables injected via ldflags.
var version = "dev"

const startupLoadTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "", "path to configuration file (ROI_* environment variables when empty)")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, port int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logging.SetDefault(logger)

	collector, err := prometheus.NewCollectorFromConfig(cfg.Metrics, logger.Named("metrics"))
	if err != nil {
		return fmt.Errorf("failed to create metrics collector: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := app.Build(ctx, cfg, logger,
		app.WithCollector(collector),
		app.WithEventSource("suburb-roi-apiserver"))
	if err != nil {
		return err
	}
	defer components.Close()

	// The API loads metadata lazily on first use if the upstream is not up yet.
	loadCtx, cancel := context.WithTimeout(ctx, startupLoadTimeout)
	if snap, err := components.Catalog.Load(loadCtx); err != nil {
		logger.Warn("feature catalog not loaded at startup", logging.Err(err))
	} else {
		logger.Info("feature catalog loaded", logging.Int("features", snap.Len()))
	}
	cancel()

	if configPath != "" {
		if err := config.Watch(configPath, func(next *config.Config) {
			if setter, ok := logger.(logging.LevelSetter); ok {
				setter.SetLevel(next.Log.Level)
			}
			logger.Info("configuration file changed; log level applied, restart for the rest",
				logging.String("log_level", next.Log.Level),
				logging.String("upstream", next.Upstream.BaseURL),
				logging.Int("port", next.Server.Port))
		}); err != nil {
			logger.Warn("config watch disabled", logging.Err(err))
		}
	}

	gin.SetMode(cfg.Server.Mode)
	server := httpserver.NewServer(cfg.Server, httpserver.NewRouterConfig(components, version))

	logger.Info("starting scenario API server",
		logging.String("version", version),
		logging.String("upstream", cfg.Upstream.BaseURL),
		logging.Int("port", cfg.Server.Port))

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if err := server.Stop(context.Background()); err != nil {
		logger.Error("HTTP server shutdown error", logging.Err(err))
		return err
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
