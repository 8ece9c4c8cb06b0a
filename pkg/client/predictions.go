package client

import "context"

// PredictRequest is the body of POST /api/predict.  A nil SuburbName is sent
// as JSON null and asks the service for its dataset-wide baseline.
type PredictRequest struct {
	SuburbName    *string            `json:"suburb_name"`
	FeatureValues map[string]float64 `json:"feature_values"`
}

// Factor is one driver of a prediction.
type Factor struct {
	Feature     string   `json:"feature"`
	Value       *float64 `json:"value,omitempty"`
	Median      *float64 `json:"median,omitempty"`
	Effect      string   `json:"effect"`
	ImpactScore *float64 `json:"impact_score,omitempty"`
}

// PredictResponse is the raw prediction payload.  The service reports model
// failures in-band through Error with HTTP 200, so callers must check it.
type PredictResponse struct {
	Error               string             `json:"error,omitempty"`
	SuburbName          *string            `json:"suburb_name,omitempty"`
	PredictedROIScore   *float64           `json:"predicted_roi_score,omitempty"`
	PredictedROIPercent *float64           `json:"predicted_roi_percent,omitempty"`
	Percentile          *float64           `json:"percentile_vs_all_suburbs,omitempty"`
	InvestmentSignal    string             `json:"investment_signal,omitempty"`
	InputFeatures       map[string]float64 `json:"input_features,omitempty"`
	TopFactors          []Factor           `json:"top_factors,omitempty"`
}

// PredictionsClient exposes the prediction endpoint.
type PredictionsClient struct {
	client *Client
}

// Predict submits a scenario.
// POST /api/predict
func (pc *PredictionsClient) Predict(ctx context.Context, req *PredictRequest) (*PredictResponse, error) {
	if req == nil {
		return nil, invalidArg("request is required")
	}
	body := *req
	if body.FeatureValues == nil {
		body.FeatureValues = map[string]float64{}
	}
	var resp PredictResponse
	if err := pc.client.post(ctx, "/api/predict", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
