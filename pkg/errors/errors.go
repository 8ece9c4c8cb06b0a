// Package errors provides the unified error type and factory functions for the
// SuburbROI-Intelligence toolkit.  Every layer (domain, application,
// infrastructure, interfaces) uses AppError as the single carrier for
// structured error information so HTTP responses, CLI output and logs agree
// on the failure category.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

const stackDepth = 32

// captureStack formats the call stack above the exported constructor that
// called build, without runtime frames.
func captureStack() string {
	pcs := make([]uintptr, stackDepth)
	// Skip runtime.Callers, captureStack, build and the constructor.
	n := runtime.Callers(4, pcs)
	if n == 0 {
		return ""
	}
	var sb strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for f, more := frames.Next(); ; f, more = frames.Next() {
		if !strings.Contains(f.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", f.File, f.Line, f.Function)
		}
		if !more {
			return sb.String()
		}
	}
}

func build(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause, Stack: captureStack()}
}

// AppError is the single structured error type used throughout the toolkit.
// It satisfies the standard error interface and supports errors.Is / errors.As
// traversal through Unwrap.
//
// Usage:
//
//	return errors.New(errors.ErrCodePredictionFailed, "model unavailable")
//	return errors.Wrap(err, errors.ErrCodeDataSourceUnavailable, "fetch features")
type AppError struct {
	// Code is the typed error code that identifies the failure category.
	Code ErrorCode

	// Message is the primary human-readable description.
	Message string

	// Detail carries supplementary context such as the upstream payload.
	Detail string

	// Cause is the underlying error, if any.
	Cause error

	// Stack is the call stack captured at creation.  It is not part of Error().
	Stack string
}

// Error implements the standard error interface.
// Format: "[<code>] <message>: <detail>"; the detail segment is omitted when empty.
func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail returns a shallow copy of the receiver with Detail set.
// It is safe to call on a nil pointer (returns nil).
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithCause returns a shallow copy of the receiver with Cause set to err.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Cause = err
	return &clone
}

func New(code ErrorCode, message string) *AppError {
	return build(code, message, nil)
}

func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return build(code, fmt.Sprintf(format, args...), nil)
}

// Wrap returns nil for a nil err.  CodeUnknown keeps the code of the first
// AppError already in err's chain.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		code = GetCode(err)
	}
	return build(code, message, err)
}

// IsCode reports whether any error in err's chain is an *AppError with code.
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) {
			if ae.Code == code {
				return true
			}
			err = ae.Cause
			continue
		}
		return false
	}
	return false
}

// IsNotFound reports whether err's chain carries CodeNotFound.
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// IsPredictionFailure reports whether err is an upstream prediction failure,
// either an explicit error payload or an unusable response.
func IsPredictionFailure(err error) bool {
	return IsCode(err, ErrCodePredictionFailed) || IsCode(err, ErrCodePredictionMalformed)
}

// GetCode extracts the ErrorCode from the first *AppError found in err's chain.
// nil yields CodeOK; a chain without an AppError yields CodeUnknown.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

func NotFound(message string) *AppError     { return build(CodeNotFound, message, nil) }
func InvalidParam(message string) *AppError { return build(CodeInvalidParam, message, nil) }
func Internal(message string) *AppError     { return build(CodeInternal, message, nil) }
func Unavailable(message string) *AppError  { return build(ErrCodeServiceUnavailable, message, nil) }
