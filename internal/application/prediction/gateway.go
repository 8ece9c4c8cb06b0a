package prediction

import (
	"context"
	"net/url"

	"github.com/turtacn/SuburbROI-Intelligence/pkg/client"
)

// Gateway is the upstream surface the service needs.
type Gateway interface {
	Predict(ctx context.Context, req *client.PredictRequest) (*client.PredictResponse, error)
	NearestROI(ctx context.Context, query url.Values) (*client.NearestResponse, error)
}

type clientGateway struct {
	c *client.Client
}

// NewClientGateway adapts the SDK client to Gateway.
func NewClientGateway(c *client.Client) Gateway {
	return &clientGateway{c: c}
}

func (g *clientGateway) Predict(ctx context.Context, req *client.PredictRequest) (*client.PredictResponse, error) {
	return g.c.Predictions().Predict(ctx, req)
}

func (g *clientGateway) NearestROI(ctx context.Context, query url.Values) (*client.NearestResponse, error) {
	return g.c.Suburbs().NearestROI(ctx, query)
}
