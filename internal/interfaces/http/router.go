package http

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/SuburbROI-Intelligence/internal/app"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SuburbROI-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/SuburbROI-Intelligence/internal/interfaces/http/middleware"
	"github.com/turtacn/SuburbROI-Intelligence/pkg/errors"
)

// RouterConfig aggregates the handlers and middleware settings of the route
// tree.  Nil handlers leave their routes unregistered.
type RouterConfig struct {
	// Handlers
	ScenarioHandler   *handlers.ScenarioHandler
	QueryHandler      *handlers.QueryHandler
	PredictionHandler *handlers.PredictionHandler
	HealthHandler     *handlers.HealthHandler

	// Middleware
	Logging     middleware.LoggingConfig
	CORS        *middleware.CORSConfig
	RateLimiter middleware.RateLimiter

	// Infrastructure
	Logger           logging.Logger
	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
	MetricsPath      string
}

// NewRouterConfig wires handlers from the shared components.
func NewRouterConfig(c *app.Components, version string) RouterConfig {
	cfg := c.Config
	scenarios := handlers.NewScenarioHandler(c.Catalog, c.Metrics, c.Logger.Named("scenario"))

	rc := RouterConfig{
		ScenarioHandler: scenarios,
		QueryHandler: handlers.NewQueryHandler(c.Listing, c.Opportunities,
			cfg.Scenario.NearestTopN, c.Client.Suburbs()),
		PredictionHandler: handlers.NewPredictionHandler(c.Prediction, scenarios, handlers.PredictionDefaults{
			NearestTopN:    cfg.Scenario.NearestTopN,
			ActiveFeatures: cfg.Scenario.DefaultActiveFeatures,
		}, c.Logger.Named("predict")),
		HealthHandler: handlers.NewHealthHandler(version, c.Metrics, healthCheckers(c)...),
		Logging:       middleware.DefaultLoggingConfig(),
		Logger:        c.Logger.Named("http"),
		Metrics:       c.Metrics,
	}

	if cfg.Metrics.Enabled {
		rc.MetricsCollector = c.Collector
		rc.MetricsPath = cfg.Metrics.Path
		rc.Logging.SkipPaths = append(rc.Logging.SkipPaths, cfg.Metrics.Path)
	}
	if len(cfg.Server.CORSAllowedOrigins) > 0 {
		cors := middleware.DefaultCORSConfig(cfg.Server.CORSAllowedOrigins...)
		rc.CORS = &cors
	}
	if cfg.Server.RateLimitRPS > 0 {
		rc.RateLimiter = middleware.NewTokenBucketLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, 5*time.Minute)
	}
	return rc
}

// healthCheckers probes the ROI API, the feature registry and, when
// configured, the metadata cache.
func healthCheckers(c *app.Components) []handlers.HealthChecker {
	checks := []handlers.HealthChecker{
		handlers.CheckFunc{ComponentName: "upstream", Fn: func(ctx context.Context) error {
			status, err := c.Client.Metadata().Health(ctx)
			if err != nil {
				return err
			}
			if !status.ModelLoaded {
				return errors.Unavailable("upstream model is not loaded")
			}
			return nil
		}},
		handlers.CheckFunc{ComponentName: "catalog", Fn: func(context.Context) error {
			_, err := c.Registry.Ready()
			return err
		}},
	}
	if c.Cache != nil {
		checks = append(checks, handlers.CheckFunc{ComponentName: "cache", Fn: c.Cache.Ping})
	}
	return checks
}

// NewRouter builds the route tree: global middleware, probes, metrics and
// the /api/v1 scenario API.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// --- Global middleware ---
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.RequestLogging(logger, cfg.Logging))
	r.Use(middleware.Recovery(logger))
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}

	// --- Probes ---
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}

	// --- Metrics ---
	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	// --- API v1 ---
	api := r.Group("/api/v1")
	if cfg.RateLimiter != nil {
		api.Use(middleware.RateLimit(cfg.RateLimiter, middleware.DefaultRateLimitConfig()))
	}
	registerScenarioRoutes(api, cfg.ScenarioHandler)
	registerQueryRoutes(api, cfg.QueryHandler)
	registerPredictionRoutes(api, cfg.PredictionHandler)

	return r
}

// registerScenarioRoutes mounts metadata, presets and scenario engineering.
func registerScenarioRoutes(r *gin.RouterGroup, h *handlers.ScenarioHandler) {
	if h == nil {
		return
	}
	r.GET("/features", h.ListFeatures)
	r.GET("/guidance", h.ListGuidance)
	r.POST("/catalog/refresh", h.RefreshCatalog)
	r.GET("/presets", h.ListPresets)

	s := r.Group("/scenario")
	s.POST("/engineer", h.Engineer)
	s.POST("/presets/:name/apply", h.ApplyPreset)
	s.POST("/edits", h.ApplyEdits)
}

// registerQueryRoutes mounts query building and the listing proxies.
func registerQueryRoutes(r *gin.RouterGroup, h *handlers.QueryHandler) {
	if h == nil {
		return
	}
	q := r.Group("/query")
	q.GET("/listing", h.BuildListingQuery)
	q.GET("/opportunities", h.BuildOpportunitiesQuery)
	q.GET("/nearest", h.BuildNearestQuery)

	r.GET("/suburbs", h.ListSuburbs)
	r.GET("/suburbs/names", h.SuburbNames)
	r.GET("/opportunities", h.Opportunities)
	r.GET("/report-url", h.ReportURL)
}

// registerPredictionRoutes mounts the predict proxy and comparables lookup.
func registerPredictionRoutes(r *gin.RouterGroup, h *handlers.PredictionHandler) {
	if h == nil {
		return
	}
	r.POST("/predict", h.Predict)
	r.GET("/nearest", h.Nearest)
}
