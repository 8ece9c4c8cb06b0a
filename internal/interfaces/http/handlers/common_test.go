package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SuburbROI-Intelligence/pkg/client"
	"github.com/turtacn/SuburbROI-Intelligence/pkg/errors"
)

func errorResponse(t *testing.T, err error) (int, ErrorResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	writeAppError(c, err)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestWriteAppError_Classification(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"app error", errors.InvalidParam("top_n must be an integer"), http.StatusBadRequest, "COMMON_002"},
		{"wrapped app error", fmt.Errorf("outer: %w", errors.New(errors.ErrCodePredictionFailed, "prediction failed")), http.StatusBadGateway, "PRD_001"},
		{"registry empty", errors.New(errors.ErrCodeRegistryEmpty, "not loaded"), http.StatusServiceUnavailable, "SCN_001"},
		{"upstream rejected", &client.APIError{StatusCode: 422, Message: "rejected"}, http.StatusBadGateway, "COMMON_014"},
		{"upstream rate limited", &client.APIError{StatusCode: 429}, http.StatusTooManyRequests, "SRC_002"},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "COMMON_009"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "COMMON_001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := errorResponse(t, tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestWriteAppError_InternalIsMasked(t *testing.T) {
	_, resp := errorResponse(t, fmt.Errorf("dial tcp 10.0.0.7:5432: secret detail"))
	assert.Empty(t, resp.Detail)
	assert.NotContains(t, resp.Message, "10.0.0.7")
}

func TestWriteAppError_KeepsDetail(t *testing.T) {
	_, resp := errorResponse(t, errors.New(errors.ErrCodePredictionFailed, "prediction failed").WithDetail("model not loaded"))
	assert.Equal(t, "prediction failed", resp.Message)
	assert.Equal(t, "model not loaded", resp.Detail)
}

func TestBindJSON(t *testing.T) {
	newCtx := func(body string) (*gin.Context, *httptest.ResponseRecorder) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		return c, w
	}

	var dst struct {
		Preset string `json:"preset"`
	}
	c, _ := newCtx("")
	assert.True(t, bindJSON(c, &dst))

	c, _ = newCtx(`{"preset":"growth"}`)
	require.True(t, bindJSON(c, &dst))
	assert.Equal(t, "growth", dst.Preset)

	c, w := newCtx(`{"preset":`)
	assert.False(t, bindJSON(c, &dst))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, c.IsAborted())
}

func TestQueryInt(t *testing.T) {
	newCtx := func(target string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, target, nil)
		return c
	}

	n, set, err := queryInt(newCtx("/?top_n=%2040%20"), "top_n")
	require.NoError(t, err)
	assert.True(t, set)
	assert.Equal(t, 40, n)

	_, set, err = queryInt(newCtx("/"), "top_n")
	require.NoError(t, err)
	assert.False(t, set)

	_, _, err = queryInt(newCtx("/?top_n=ten"), "top_n")
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}
