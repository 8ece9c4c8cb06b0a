package errors

import "net/http"

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
)

// Aliases used across the codebase.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Scenario
const (
	ErrCodeRegistryEmpty ErrorCode = "SCN_001"
)

// Prediction
const (
	ErrCodePredictionFailed    ErrorCode = "PRD_001"
	ErrCodePredictionMalformed ErrorCode = "PRD_002"
	ErrCodeComparablesFailed   ErrorCode = "PRD_003"
)

// Query
const (
	ErrCodeReportFormatInvalid ErrorCode = "QRY_001"
)

// Upstream ROI API
const (
	ErrCodeDataSourceUnavailable ErrorCode = "SRC_001"
	ErrCodeDataSourceRateLimited ErrorCode = "SRC_002"
	ErrCodeDataSourceParseError  ErrorCode = "SRC_004"
)

type codeInfo struct {
	status  int
	message string
}

var registry = map[ErrorCode]codeInfo{
	ErrCodeInternal:           {http.StatusInternalServerError, "internal server error"},
	ErrCodeBadRequest:         {http.StatusBadRequest, "bad request"},
	ErrCodeNotFound:           {http.StatusNotFound, "resource not found"},
	ErrCodeTooManyRequests:    {http.StatusTooManyRequests, "too many requests"},
	ErrCodeServiceUnavailable: {http.StatusServiceUnavailable, "service unavailable"},
	ErrCodeTimeout:            {http.StatusGatewayTimeout, "request timeout"},
	ErrCodeValidation:         {http.StatusUnprocessableEntity, "validation failed"},
	ErrCodeSerialization:      {http.StatusInternalServerError, "serialization failed"},
	ErrCodeCacheError:         {http.StatusInternalServerError, "cache error"},
	ErrCodeExternalService:    {http.StatusBadGateway, "external service error"},

	ErrCodeRegistryEmpty: {http.StatusServiceUnavailable, "feature metadata not loaded"},

	ErrCodePredictionFailed:    {http.StatusBadGateway, "prediction failed"},
	ErrCodePredictionMalformed: {http.StatusBadGateway, "malformed prediction response"},
	ErrCodeComparablesFailed:   {http.StatusBadGateway, "comparable suburbs lookup failed"},

	ErrCodeReportFormatInvalid: {http.StatusBadRequest, "unsupported report format"},

	ErrCodeDataSourceUnavailable: {http.StatusServiceUnavailable, "data source unavailable"},
	ErrCodeDataSourceRateLimited: {http.StatusTooManyRequests, "data source rate limited"},
	ErrCodeDataSourceParseError:  {http.StatusBadGateway, "failed to parse data source response"},
}

// HTTPStatusForCode returns the HTTP status for code, 500 when unregistered.
func HTTPStatusForCode(code ErrorCode) int {
	if info, ok := registry[code]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for code.
func DefaultMessageForCode(code ErrorCode) string {
	if info, ok := registry[code]; ok {
		return info.message
	}
	return "unknown error"
}
