package client

import "context"

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// HealthStatus is returned by GET /api/health.
type HealthStatus struct {
	Status        string `json:"status"`
	SuburbsLoaded int    `json:"suburbs_loaded"`
	ModelLoaded   bool   `json:"model_loaded"`
	ModelFeatures int    `json:"model_features"`
}

// FeatureStat is the observed range of one model feature.
type FeatureStat struct {
	Feature string  `json:"feature"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Median  float64 `json:"median"`
	Mean    float64 `json:"mean"`
}

// FeaturesResponse is returned by GET /api/features.  Message is set when
// the model is not loaded.
type FeaturesResponse struct {
	Features []FeatureStat `json:"features"`
	Message  string        `json:"message,omitempty"`
}

// GuidanceRange is the normal range of one human-facing input.
type GuidanceRange struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

// ModelInfo is returned by GET /api/model-info.
type ModelInfo struct {
	ModelLoaded  bool               `json:"model_loaded"`
	Target       *string            `json:"target"`
	FeatureCount int                `json:"feature_count"`
	Metrics      map[string]float64 `json:"metrics"`
}

// ---------------------------------------------------------------------------
// MetadataClient
// ---------------------------------------------------------------------------

// MetadataClient exposes service health and model metadata.
type MetadataClient struct {
	client *Client
}

// Health reports service and model readiness.
// GET /api/health
func (mc *MetadataClient) Health(ctx context.Context) (*HealthStatus, error) {
	var resp HealthStatus
	if err := mc.client.get(ctx, "/api/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Features lists per-feature ranges and medians.
// GET /api/features
func (mc *MetadataClient) Features(ctx context.Context) (*FeaturesResponse, error) {
	var resp FeaturesResponse
	if err := mc.client.get(ctx, "/api/features", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// InputGuidance returns the normal ranges of the human-facing inputs keyed by
// input name.
// GET /api/input-guidance
func (mc *MetadataClient) InputGuidance(ctx context.Context) (map[string]GuidanceRange, error) {
	var resp struct {
		Guidance map[string]GuidanceRange `json:"guidance"`
	}
	if err := mc.client.get(ctx, "/api/input-guidance", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Guidance == nil {
		resp.Guidance = map[string]GuidanceRange{}
	}
	return resp.Guidance, nil
}

// ModelInfo describes the loaded model.
// GET /api/model-info
func (mc *MetadataClient) ModelInfo(ctx context.Context) (*ModelInfo, error) {
	var resp ModelInfo
	if err := mc.client.get(ctx, "/api/model-info", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
