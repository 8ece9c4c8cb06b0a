// Package catalog loads feature metadata and input guidance from the ROI
// service into the scenario registry, optionally through a Redis cache.
package catalog

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"github.com/turtacn/SuburbROI-Intelligence/internal/domain/scenario"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SuburbROI-Intelligence/pkg/client"
	"github.com/turtacn/SuburbROI-Intelligence/pkg/errors"
)

// CacheKey is the cache entry holding the catalog payload.
const CacheKey = "catalog:v1"

// Load sources reported in metrics and logs.
const (
	SourceUpstream = "upstream"
	SourceCache    = "cache"
)

// Source fetches raw metadata.  *client.MetadataClient satisfies it.
type Source interface {
	Features(ctx context.Context) (*client.FeaturesResponse, error)
	InputGuidance(ctx context.Context) (map[string]client.GuidanceRange, error)
}

// Payload is the cached form of one catalog fetch.
type Payload struct {
	Features  []scenario.FeatureMeta            `json:"features"`
	Guidance  map[string]scenario.GuidanceRange `json:"guidance"`
	Message   string                            `json:"message,omitempty"`
	FetchedAt time.Time                         `json:"fetched_at"`
}

// Option configures a Loader.
type Option func(*Loader)

// WithCache stores fetched payloads in cache for ttl.
func WithCache(cache redis.Cache, ttl time.Duration) Option {
	return func(l *Loader) {
		l.cache = cache
		l.ttl = ttl
	}
}

// WithMetrics records catalog loads.
func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(l *Loader) { l.metrics = m }
}

// Loader fills a scenario.Registry.
type Loader struct {
	source   Source
	registry *scenario.Registry
	cache    redis.Cache
	ttl      time.Duration
	logger   logging.Logger
	metrics  *prometheus.AppMetrics
	now      func() time.Time
}

// NewLoader creates a Loader.
func NewLoader(source Source, registry *scenario.Registry, logger logging.Logger, opts ...Option) *Loader {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	l := &Loader{
		source:   source,
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Registry returns the registry the loader fills.
func (l *Loader) Registry() *scenario.Registry { return l.registry }

// Load makes the cached or freshly fetched catalog current and returns the
// new snapshot.
func (l *Loader) Load(ctx context.Context) (*scenario.Snapshot, error) {
	var (
		payload *Payload
		fetched atomic.Bool
		err     error
	)
	if l.cache == nil {
		payload, err = l.fetch(ctx)
		fetched.Store(true)
	} else {
		payload = &Payload{}
		err = l.cache.GetOrSet(ctx, CacheKey, payload, l.ttl, func(ctx context.Context) (interface{}, error) {
			fetched.Store(true)
			p, err := l.fetch(ctx)
			if err == nil && len(p.Features) == 0 {
				return nil, &uncachedPayload{payload: p}
			}
			return p, err
		})
		var uncached *uncachedPayload
		if stderrors.As(err, &uncached) {
			payload, err = uncached.payload, nil
			fetched.Store(true)
		}
	}

	source := SourceCache
	if fetched.Load() {
		source = SourceUpstream
	}
	if err != nil {
		prometheus.RecordCatalogLoad(l.metrics, source, 0, err)
		l.logger.Error("catalog load failed", logging.String("source", source), logging.Err(err))
		return nil, err
	}

	snap := l.registry.Load(payload.Features, payload.Guidance)
	prometheus.RecordCatalogLoad(l.metrics, source, snap.Len(), nil)

	if snap.Len() == 0 {
		l.logger.Warn("catalog has no model features", logging.String("message", payload.Message))
	} else {
		l.logger.Info("catalog loaded",
			logging.String("source", source),
			logging.Int("features", snap.Len()),
			logging.Int("guidance", len(payload.Guidance)))
	}
	return snap, nil
}

// Refresh drops the cached payload and reloads from the source.
func (l *Loader) Refresh(ctx context.Context) (*scenario.Snapshot, error) {
	if l.cache != nil {
		if err := l.cache.Delete(ctx, CacheKey); err != nil {
			l.logger.Warn("failed to evict cached catalog", logging.Err(err))
		}
	}
	return l.Load(ctx)
}

// uncachedPayload carries a fetch result out of GetOrSet without storing it.
// A catalog with no features ("Model not loaded") must not outlive the
// upstream outage in the cache.
type uncachedPayload struct {
	payload *Payload
}

func (u *uncachedPayload) Error() string { return "catalog payload not cacheable" }

func (l *Loader) fetch(ctx context.Context) (*Payload, error) {
	features, err := l.source.Features(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceUnavailable, "failed to fetch feature metadata")
	}
	guidance, err := l.source.InputGuidance(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceUnavailable, "failed to fetch input guidance")
	}
	return toPayload(features, guidance, l.now()), nil
}

func toPayload(features *client.FeaturesResponse, guidance map[string]client.GuidanceRange, at time.Time) *Payload {
	p := &Payload{
		Guidance:  make(map[string]scenario.GuidanceRange, len(guidance)),
		FetchedAt: at.UTC(),
	}
	if features != nil {
		p.Message = features.Message
		p.Features = make([]scenario.FeatureMeta, 0, len(features.Features))
		for _, f := range features.Features {
			p.Features = append(p.Features, scenario.FeatureMeta{
				Feature: f.Feature,
				Min:     f.Min,
				Max:     f.Max,
				Median:  f.Median,
				Mean:    f.Mean,
			})
		}
	}
	for key, g := range guidance {
		p.Guidance[key] = scenario.GuidanceRange{Key: key, Min: g.Min, Max: g.Max, Median: g.Median}
	}
	return p
}
