package handlers

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/SuburbROI-Intelligence/internal/application/catalog"
	"github.com/turtacn/SuburbROI-Intelligence/internal/domain/scenario"
	"github.com/turtacn/SuburbROI-Intelligence/internal/interfaces/http/middleware"
	"github.com/turtacn/SuburbROI-Intelligence/pkg/client"
	"github.com/turtacn/SuburbROI-Intelligence/pkg/errors"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeAppError maps err to its HTTP status and aborts the request.  Errors
// without an AppError in their chain are classified first; internal failures
// are masked.
func writeAppError(c *gin.Context, err error) {
	_ = c.Error(err)

	code := classify(err)
	status := errors.HTTPStatusForCode(code)
	resp := ErrorResponse{Code: code.String(), RequestID: middleware.GetRequestID(c)}

	var ae *errors.AppError
	switch {
	case code == errors.ErrCodeInternal:
		resp.Message = errors.DefaultMessageForCode(code)
	case stderrors.As(err, &ae):
		resp.Message = ae.Message
		resp.Detail = ae.Detail
	default:
		resp.Message = errors.DefaultMessageForCode(code)
		resp.Detail = err.Error()
	}
	c.AbortWithStatusJSON(status, resp)
}

func classify(err error) errors.ErrorCode {
	if code := errors.GetCode(err); code != errors.CodeUnknown && code != errors.CodeOK {
		return code
	}
	var apiErr *client.APIError
	switch {
	case stderrors.As(err, &apiErr) && apiErr.IsRateLimited():
		return errors.ErrCodeDataSourceRateLimited
	case stderrors.As(err, &apiErr):
		return errors.ErrCodeExternalService
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.ErrCodeTimeout
	default:
		return errors.ErrCodeInternal
	}
}

// bindJSON decodes the body into dst.  An empty body leaves dst untouched.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		writeAppError(c, errors.InvalidParam("invalid request body").WithDetail(err.Error()))
		return false
	}
	return true
}

// queryInt reads an optional integer query parameter.
func queryInt(c *gin.Context, key string) (int, bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, errors.InvalidParam(key + " must be an integer").WithDetail(raw)
	}
	return n, true, nil
}

// readySnapshot returns the loaded feature registry, loading it on first use
// when startup could not.
func readySnapshot(ctx context.Context, loader *catalog.Loader) (*scenario.Snapshot, error) {
	if snap, err := loader.Registry().Ready(); err == nil {
		return snap, nil
	}
	snap, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	if snap.Len() == 0 {
		return nil, errors.New(errors.ErrCodeRegistryEmpty, "the model reports no features")
	}
	return snap, nil
}

func ok(c *gin.Context, body interface{}) {
	c.JSON(http.StatusOK, body)
}
