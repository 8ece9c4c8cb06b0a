// Package app assembles the long-lived components shared by the roi CLI and
// the scenario API server from a loaded Config.
package app

import (
	"context"
	"fmt"

	"github.com/turtacn/SuburbROI-Intelligence/internal/application/catalog"
	"github.com/turtacn/SuburbROI-Intelligence/internal/application/notice"
	"github.com/turtacn/SuburbROI-Intelligence/internal/application/prediction"
	"github.com/turtacn/SuburbROI-Intelligence/internal/application/query"
	"github.com/turtacn/SuburbROI-Intelligence/internal/config"
	"github.com/turtacn/SuburbROI-Intelligence/internal/domain/scenario"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SuburbROI-Intelligence/pkg/client"
)

// Components is the wired object graph.
type Components struct {
	Config    *config.Config
	Logger    logging.Logger
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics

	Client        *client.Client
	Registry      *scenario.Registry
	Catalog       *catalog.Loader
	Prediction    prediction.Service
	Listing       *query.Builder
	Opportunities *query.Builder
	Banner        *notice.Banner

	// Cache is nil when redis is not configured or unreachable.
	Cache redis.Cache
	// Events is nil when kafka is disabled.
	Events *kafka.PredictionPublisher

	redisClient *redis.Client
	producer    *kafka.Producer
}

// Option adjusts Build.
type Option func(*buildOptions)

type buildOptions struct {
	collector prometheus.MetricsCollector
	source    string
	onNotice  func(notice.Notice)
}

// WithCollector registers metrics on collector instead of a no-op one.
func WithCollector(c prometheus.MetricsCollector) Option {
	return func(o *buildOptions) { o.collector = c }
}

// WithEventSource sets the envelope source of published events.
func WithEventSource(source string) Option {
	return func(o *buildOptions) { o.source = source }
}

// WithNoticeClear is called whenever a banner notice expires.
func WithNoticeClear(fn func(notice.Notice)) Option {
	return func(o *buildOptions) { o.onNotice = fn }
}

// Build wires every component from cfg.  Redis and kafka are optional: a
// cache that cannot be reached is logged and skipped.
func Build(ctx context.Context, cfg *config.Config, logger logging.Logger, opts ...Option) (*Components, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: config is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	o := buildOptions{source: "suburb-roi"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.collector == nil {
		o.collector = prometheus.NewNoopCollector()
	}

	c := &Components{
		Config:        cfg,
		Logger:        logger,
		Collector:     o.collector,
		Metrics:       prometheus.NewAppMetrics(o.collector),
		Registry:      scenario.NewRegistry(),
		Listing:       query.NewBuilder(cfg.Scenario.ListingTopN),
		Opportunities: query.NewBuilder(cfg.Scenario.OpportunitiesTopN),
		Banner:        notice.NewBanner(cfg.Scenario.NoticeTTL, o.onNotice),
	}

	sdk, err := NewClient(cfg.Upstream, logger)
	if err != nil {
		return nil, err
	}
	c.Client = sdk

	loaderOpts := []catalog.Option{catalog.WithMetrics(c.Metrics)}
	if cfg.Redis.Enabled() {
		rc, err := redis.NewClient(cfg.Redis, logger.Named("redis"))
		if err != nil {
			prometheus.RecordHealth(c.Metrics, "redis", false)
			logger.Warn("metadata cache disabled", logging.String("addr", cfg.Redis.Addr), logging.Err(err))
		} else {
			prometheus.RecordHealth(c.Metrics, "redis", true)
			c.redisClient = rc
			c.Cache = redis.NewRedisCache(rc, logger.Named("cache"),
				redis.WithPrefix(cfg.Redis.KeyPrefix),
				redis.WithDefaultTTL(cfg.Redis.MetadataTTL),
				redis.WithMetrics(c.Metrics, "catalog"),
			)
			loaderOpts = append(loaderOpts, catalog.WithCache(c.Cache, cfg.Redis.MetadataTTL))
		}
	}
	c.Catalog = catalog.NewLoader(sdk.Metadata(), c.Registry, logger.Named("catalog"), loaderOpts...)

	svcOpts := []prediction.ServiceOption{prediction.WithMetrics(c.Metrics)}
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(kafka.ProducerConfigFrom(cfg.Kafka), logger.Named("kafka"))
		if err != nil {
			c.Close()
			return nil, err
		}
		c.producer = producer
		c.Events = kafka.NewPredictionPublisher(producer, cfg.Kafka.PredictionTopic, o.source).WithMetrics(c.Metrics)
		svcOpts = append(svcOpts, prediction.WithEventPublisher(c.Events))
	}
	c.Prediction = prediction.NewService(prediction.NewClientGateway(sdk), logger.Named("prediction"), svcOpts...)

	return c, nil
}

// NewClient builds the ROI API client from the upstream settings.
func NewClient(cfg config.UpstreamConfig, logger logging.Logger) (*client.Client, error) {
	opts := []client.Option{
		client.WithTimeout(cfg.Timeout),
		client.WithRetryMax(cfg.RetryMax),
		client.WithRetryWait(cfg.RetryWaitMin, cfg.RetryWaitMax),
		client.WithLogger(SDKLogger{Logger: logger}),
	}
	if cfg.APIKey != "" {
		opts = append(opts, client.WithAPIKey(cfg.APIKey))
	}
	return client.NewClient(cfg.BaseURL, opts...)
}

// Close releases the cache connection and flushes the event producer.
func (c *Components) Close() {
	if c.Banner != nil {
		c.Banner.Clear()
	}
	if c.producer != nil {
		if err := c.producer.Close(); err != nil {
			c.Logger.Warn("kafka producer close failed", logging.Err(err))
		}
	}
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			c.Logger.Warn("redis close failed", logging.Err(err))
		}
	}
}

// SDKLogger adapts a logging.Logger to the printf-style client.Logger.
type SDKLogger struct {
	Logger logging.Logger
}

func (l SDKLogger) Debugf(format string, args ...interface{}) {
	l.Logger.Debug(fmt.Sprintf(format, args...))
}

func (l SDKLogger) Infof(format string, args ...interface{}) {
	l.Logger.Info(fmt.Sprintf(format, args...))
}

func (l SDKLogger) Errorf(format string, args ...interface{}) {
	l.Logger.Error(fmt.Sprintf(format, args...))
}
