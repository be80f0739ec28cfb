// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Config errors are fatal: no pipeline stage may run without valid config.
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// Provider errors
	ErrHoldingsUnavailable = &Error{Code: "HOLDINGS_UNAVAILABLE", Message: "holdings provider failed"}
	ErrMarketUnavailable   = &Error{Code: "MARKET_UNAVAILABLE", Message: "market data provider failed"}

	// LLM errors
	ErrLLMFailed  = &Error{Code: "LLM_FAILED", Message: "LLM request failed"}
	ErrLLMTimeout = &Error{Code: "LLM_TIMEOUT", Message: "LLM request timeout"}

	// Parsing errors
	ErrIdeaParseFailed = &Error{Code: "IDEA_PARSE_FAILED", Message: "no valid trade ideas in generator response"}

	// Store errors
	ErrStoreFailed     = &Error{Code: "STORE_FAILED", Message: "history store operation failed"}
	ErrNoSnapshot      = &Error{Code: "NO_SNAPSHOT", Message: "no snapshot available"}
	ErrSnapshotExists  = &Error{Code: "SNAPSHOT_EXISTS", Message: "snapshot already recorded for date"}
	ErrRecommendation  = &Error{Code: "RECOMMENDATION_NOT_FOUND", Message: "recommendation not found"}

	// Notifier errors
	ErrNotifierFailed = &Error{Code: "NOTIFIER_FAILED", Message: "notifier failed"}

	// Pipeline errors
	ErrRunInProgress = &Error{Code: "RUN_IN_PROGRESS", Message: "pipeline run already in progress"}

	// API errors
	ErrUnauthorized = &Error{Code: "UNAUTHORIZED", Message: "missing or invalid API key"}
	ErrNotFound     = &Error{Code: "NOT_FOUND", Message: "resource not found"}
)
