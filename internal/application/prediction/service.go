package prediction

import (
	"context"
	"time"

	"github.com/turtacn/SuburbROI-Intelligence/internal/application/query"
	"github.com/turtacn/SuburbROI-Intelligence/internal/domain/scenario"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SuburbROI-Intelligence/pkg/client"
	"github.com/turtacn/SuburbROI-Intelligence/pkg/errors"
)

// EventPublisher receives one event per successful prediction.
type EventPublisher interface {
	PublishPrediction(ctx context.Context, ev *kafka.PredictionEvent) error
}

// Service defines the prediction application operations.
type Service interface {
	Run(ctx context.Context, input *RunInput) (*RunResult, error)
	Comparables(ctx context.Context, roi float64, topN int) (*client.NearestResponse, error)
}

// RunInput describes one prediction.  When Override is non-nil it is sent as
// is and Active is ignored; an empty, non-nil Override selects the suburb's
// own values.
type RunInput struct {
	Suburb   string
	Vector   scenario.FeatureVector
	Active   scenario.ActiveSet
	Override map[string]float64

	// ComparablesTopN > 0 requests nearest-ROI suburbs after a success.
	ComparablesTopN int
}

// RunResult is the outcome of a successful Run.
type RunResult struct {
	Request   *client.PredictRequest `json:"request"`
	ViewModel *ViewModel             `json:"prediction"`
	// Vector is the input vector with server-confirmed values merged in.
	Vector      scenario.FeatureVector `json:"feature_values"`
	Comparables []client.Comparable    `json:"comparables,omitempty"`
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceImpl)

// WithMetrics records prediction metrics.
func WithMetrics(m *prometheus.AppMetrics) ServiceOption {
	return func(s *serviceImpl) { s.metrics = m }
}

// WithEventPublisher publishes an event after each successful prediction.
func WithEventPublisher(p EventPublisher) ServiceOption {
	return func(s *serviceImpl) { s.events = p }
}

type serviceImpl struct {
	gateway Gateway
	logger  logging.Logger
	metrics *prometheus.AppMetrics
	events  EventPublisher
	now     func() time.Time
}

// NewService creates a new prediction service.
func NewService(gateway Gateway, logger logging.Logger, opts ...ServiceOption) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &serviceImpl{
		gateway: gateway,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run builds the request, calls the gateway, normalizes the reply and merges
// the confirmed inputs.  On failure the caller's vector is left untouched and
// the error carries a PRD_ code.
func (s *serviceImpl) Run(ctx context.Context, input *RunInput) (*RunResult, error) {
	if input == nil {
		return nil, errors.InvalidParam("run input is required")
	}

	mode := prometheus.ModeScenario
	var req *client.PredictRequest
	if input.Override != nil {
		mode = prometheus.ModeOverride
		req = BuildOverrideRequest(input.Suburb, input.Override)
	} else {
		req = BuildRequest(input.Suburb, input.Vector, input.Active)
	}

	start := s.now()
	raw, err := s.gateway.Predict(ctx, req)
	if err != nil {
		prometheus.RecordPrediction(s.metrics, mode, false, s.now().Sub(start), "")
		prometheus.RecordError(s.metrics, "prediction", "gateway")
		s.logger.Error("prediction request failed",
			logging.Suburb(input.Suburb),
			logging.String("mode", mode),
			logging.Err(err))
		return nil, errors.Wrap(err, errors.ErrCodePredictionFailed, "prediction request failed")
	}

	vm, err := Normalize(raw)
	if err != nil {
		prometheus.RecordPrediction(s.metrics, mode, false, s.now().Sub(start), "")
		prometheus.RecordError(s.metrics, "prediction", string(errors.GetCode(err)))
		s.logger.Warn("prediction rejected",
			logging.Suburb(input.Suburb),
			logging.String("mode", mode),
			logging.Err(err))
		return nil, err
	}
	prometheus.RecordPrediction(s.metrics, mode, true, s.now().Sub(start), string(vm.Signal))

	result := &RunResult{
		Request:   req,
		ViewModel: vm,
		Vector:    MergeInputFeatures(input.Vector, vm),
	}

	s.logger.Info("prediction completed",
		logging.Suburb(input.Suburb),
		logging.String("mode", mode),
		logging.Int("features_sent", len(req.FeatureValues)),
		logging.Float64("roi_percent", vm.PredictedROIPercent),
		logging.String("signal", string(vm.Signal)))

	if input.ComparablesTopN > 0 {
		nearest, err := s.Comparables(ctx, vm.ComparableROI(), input.ComparablesTopN)
		if err != nil {
			s.logger.Warn("comparables lookup failed", logging.Err(err))
		} else {
			result.Comparables = nearest.Suburbs
		}
	}

	s.publish(ctx, mode, req, vm)
	return result, nil
}

// Comparables looks up suburbs whose ROI is nearest to roi (a fraction).
func (s *serviceImpl) Comparables(ctx context.Context, roi float64, topN int) (*client.NearestResponse, error) {
	resp, err := s.gateway.NearestROI(ctx, query.BuildNearestQuery(roi, topN))
	prometheus.RecordComparables(s.metrics, err == nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeComparablesFailed, "comparables lookup failed")
	}
	if resp.Suburbs == nil {
		resp.Suburbs = []client.Comparable{}
	}
	return resp, nil
}

func (s *serviceImpl) publish(ctx context.Context, mode string, req *client.PredictRequest, vm *ViewModel) {
	if s.events == nil {
		return
	}
	ev := &kafka.PredictionEvent{
		Mode:                mode,
		FeatureCount:        len(req.FeatureValues),
		PredictedROIPercent: vm.PredictedROIPercent,
		Percentile:          vm.Percentile,
		Signal:              string(vm.Signal),
		CompletedAt:         s.now().UTC(),
	}
	if req.SuburbName != nil {
		ev.SuburbName = *req.SuburbName
	}
	if err := s.events.PublishPrediction(ctx, ev); err != nil {
		s.logger.Warn("prediction event not published", logging.Err(err))
	}
}
