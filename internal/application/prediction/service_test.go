package prediction

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/SuburbROI-Intelligence/internal/domain/scenario"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SuburbROI-Intelligence/internal/testutil"
	"github.com/turtacn/SuburbROI-Intelligence/pkg/client"
	"github.com/turtacn/SuburbROI-Intelligence/pkg/errors"
)

type fakeGateway struct {
	predictResp *client.PredictResponse
	predictErr  error
	nearestResp *client.NearestResponse
	nearestErr  error

	lastRequest *client.PredictRequest
	lastQuery   url.Values
}

func (g *fakeGateway) Predict(_ context.Context, req *client.PredictRequest) (*client.PredictResponse, error) {
	g.lastRequest = req
	return g.predictResp, g.predictErr
}

func (g *fakeGateway) NearestROI(_ context.Context, q url.Values) (*client.NearestResponse, error) {
	g.lastQuery = q
	return g.nearestResp, g.nearestErr
}

type fakePublisher struct {
	events []*kafka.PredictionEvent
	err    error
}

func (p *fakePublisher) PublishPrediction(_ context.Context, ev *kafka.PredictionEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

func okResponse() *client.PredictResponse {
	return &client.PredictResponse{
		SuburbName:          str("Parramatta"),
		PredictedROIScore:   f64(0.045),
		PredictedROIPercent: f64(4.5),
		Percentile:          f64(85),
		InvestmentSignal:    "Strong",
		InputFeatures: map[string]float64{
			scenario.FeatureIRSD:       1050,
			scenario.FeatureMedianAge:  36,
			scenario.FeaturePopulation: 25000,
		},
		TopFactors: []client.Factor{{Feature: scenario.FeatureIRSD, ImpactScore: f64(0.4)}},
	}
}

func scenarioInput() *RunInput {
	return &RunInput{
		Suburb: "Parramatta",
		Vector: scenario.FeatureVector{
			scenario.FeatureIRSD:      1000,
			scenario.FeatureMedianAge: 34,
		},
		Active: scenario.NewActiveSet(scenario.FeatureIRSD),
	}
}

func TestRun_ScenarioSuccess(t *testing.T) {
	gw := &fakeGateway{
		predictResp: okResponse(),
		nearestResp: &client.NearestResponse{TargetROI: 0.045, Suburbs: []client.Comparable{{Name: "Auburn", ROI: 0.046, ROIDiff: 0.001}}},
	}
	pub := &fakePublisher{}
	logger := testutil.NewMockLogger()
	svc := NewService(gw, logger, WithEventPublisher(pub), WithMetrics(prometheus.NewNoopAppMetrics()))

	in := scenarioInput()
	in.ComparablesTopN = 5
	res, err := svc.Run(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{scenario.FeatureIRSD: 1000}, gw.lastRequest.FeatureValues)
	assert.Equal(t, SignalStrong, res.ViewModel.Signal)
	assert.Equal(t, 1050.0, res.Vector[scenario.FeatureIRSD])
	assert.Equal(t, 36.0, res.Vector[scenario.FeatureMedianAge])
	assert.Equal(t, 25000.0, res.Vector[scenario.FeaturePopulation])
	assert.Equal(t, 1000.0, in.Vector[scenario.FeatureIRSD], "caller vector untouched")

	assert.Equal(t, "0.045", gw.lastQuery.Get("roi"))
	assert.Equal(t, "5", gw.lastQuery.Get("top_n"))
	require.Len(t, res.Comparables, 1)
	assert.Equal(t, "Auburn", res.Comparables[0].Name)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "Parramatta", pub.events[0].SuburbName)
	assert.Equal(t, prometheus.ModeScenario, pub.events[0].Mode)
	assert.Equal(t, 1, pub.events[0].FeatureCount)
	assert.True(t, logger.HasMessage("info", "prediction completed"))
}

func TestRun_OverrideMode(t *testing.T) {
	gw := &fakeGateway{predictResp: okResponse()}
	pub := &fakePublisher{}
	svc := NewService(gw, nil, WithEventPublisher(pub))

	in := scenarioInput()
	in.Override = map[string]float64{}
	res, err := svc.Run(context.Background(), in)
	require.NoError(t, err)

	assert.Empty(t, gw.lastRequest.FeatureValues)
	assert.Nil(t, gw.lastQuery, "no comparables requested")
	assert.Nil(t, res.Comparables)
	require.Len(t, pub.events, 1)
	assert.Equal(t, prometheus.ModeOverride, pub.events[0].Mode)
}

func TestRun_ErrorPayloadLeavesStateUntouched(t *testing.T) {
	gw := &fakeGateway{predictResp: &client.PredictResponse{Error: "model unavailable"}}
	pub := &fakePublisher{}
	logger := testutil.NewMockLogger()
	svc := NewService(gw, logger, WithEventPublisher(pub))

	in := scenarioInput()
	before := in.Vector.Clone()
	res, err := svc.Run(context.Background(), in)

	assert.Nil(t, res)
	assert.True(t, errors.IsCode(err, errors.ErrCodePredictionFailed))
	assert.Equal(t, before, in.Vector)
	assert.Empty(t, pub.events)
	assert.True(t, logger.HasMessage("warn", "prediction rejected"))
}

func TestRun_GatewayError(t *testing.T) {
	upstream := &client.APIError{StatusCode: 503, Message: "down"}
	svc := NewService(&fakeGateway{predictErr: upstream}, nil)

	_, err := svc.Run(context.Background(), scenarioInput())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePredictionFailed))
	assert.ErrorIs(t, err, upstream)
}

func TestRun_NilInput(t *testing.T) {
	svc := NewService(&fakeGateway{}, nil)
	_, err := svc.Run(context.Background(), nil)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestRun_ComparablesFailureIsNotFatal(t *testing.T) {
	gw := &fakeGateway{predictResp: okResponse(), nearestErr: &client.APIError{StatusCode: 500}}
	logger := testutil.NewMockLogger()
	svc := NewService(gw, logger)

	in := scenarioInput()
	in.ComparablesTopN = 3
	res, err := svc.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Nil(t, res.Comparables)
	assert.True(t, logger.HasMessage("warn", "comparables lookup failed"))
}

func TestRun_PublishFailureIsNotFatal(t *testing.T) {
	pub := &fakePublisher{err: assert.AnError}
	logger := testutil.NewMockLogger()
	svc := NewService(&fakeGateway{predictResp: okResponse()}, logger, WithEventPublisher(pub))

	_, err := svc.Run(context.Background(), scenarioInput())
	require.NoError(t, err)
	assert.True(t, logger.HasMessage("warn", "prediction event not published"))
}

func TestComparables(t *testing.T) {
	gw := &fakeGateway{nearestResp: &client.NearestResponse{TargetROI: 0.05}}
	svc := NewService(gw, nil)

	resp, err := svc.Comparables(context.Background(), 0.05, 0)
	require.NoError(t, err)
	assert.NotNil(t, resp.Suburbs)
	assert.Equal(t, "5", gw.lastQuery.Get("top_n"))

	gw.nearestErr = assert.AnError
	_, err = svc.Comparables(context.Background(), 0.05, 5)
	assert.True(t, errors.IsCode(err, errors.ErrCodeComparablesFailed))
}
