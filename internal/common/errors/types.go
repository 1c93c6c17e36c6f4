package errors

import (
	"fmt"
	"strings"
)

// ErrorType classifies an error for routing decisions: whether a failure is
// retried within a candidate, advances the fallback chain, or surfaces to
// the caller.
type ErrorType string

const (
	// ErrTypeValidation represents malformed or incomplete requests
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeProvider represents provider-side call failures
	ErrTypeProvider ErrorType = "provider"
	// ErrTypeTimeout represents timed-out operations
	ErrTypeTimeout ErrorType = "timeout"
	// ErrTypeCircuitOpen represents calls rejected by an open circuit breaker
	ErrTypeCircuitOpen ErrorType = "circuit_open"
	// ErrTypeRateLimit represents calls rejected by a rate limiter or bulkhead
	ErrTypeRateLimit ErrorType = "rate_limit"
	// ErrTypeStrategy represents merge-time type mismatches
	ErrTypeStrategy ErrorType = "strategy"
	// ErrTypeNotFound represents missing resources, including no matching enricher
	ErrTypeNotFound ErrorType = "not_found"
	// ErrTypeExhausted represents a fallback chain that ran out of candidates
	ErrTypeExhausted ErrorType = "exhausted"
	// ErrTypeCache represents cache store failures (always recovered locally)
	ErrTypeCache ErrorType = "cache"
	// ErrTypeLineage represents lineage sink failures (always recovered locally)
	ErrTypeLineage ErrorType = "lineage"
	// ErrTypeConflict represents duplicate registrations
	ErrTypeConflict ErrorType = "conflict"
	// ErrTypeConfig represents configuration errors
	ErrTypeConfig ErrorType = "config"
	// ErrTypeInternal represents internal system errors
	ErrTypeInternal ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`

	// Transient marks provider errors worth retrying within the same candidate.
	Transient bool `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	parts := []string{string(e.Type), e.Message}

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	if len(e.Context) > 0 {
		contextParts := make([]string, 0, len(e.Context))
		for k, v := range e.Context {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("context={%s}", strings.Join(contextParts, ", ")))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// ValidationError creates a new validation error
func ValidationError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeValidation,
		Message: msg,
	}
}

// ProviderError creates a new provider error. Transient provider errors are
// eligible for retry within the same candidate.
func ProviderError(msg string, cause error, transient bool) *AppError {
	return &AppError{
		Type:      ErrTypeProvider,
		Message:   msg,
		Cause:     cause,
		Transient: transient,
	}
}

// TimeoutError creates a new timeout error
func TimeoutError(operation string) *AppError {
	return &AppError{
		Type:      ErrTypeTimeout,
		Message:   fmt.Sprintf("timeout during %s", operation),
		Transient: true,
	}
}

// CircuitOpenError creates an error for calls rejected by an open breaker
func CircuitOpenError(provider string) *AppError {
	return &AppError{
		Type:    ErrTypeCircuitOpen,
		Message: fmt.Sprintf("circuit breaker open for provider %s", provider),
	}
}

// RateLimitError creates a new rate limit rejection error
func RateLimitError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeRateLimit,
		Message: fmt.Sprintf("rate limit exceeded for %s", resource),
	}
}

// StrategyError creates a merge strategy error
func StrategyError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeStrategy,
		Message: msg,
	}
}

// NotFoundError creates a new not found error
func NotFoundError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// ExhaustedError creates an error for an exhausted fallback chain
func ExhaustedError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeExhausted,
		Message: msg,
		Cause:   cause,
	}
}

// CacheError creates a new cache error
func CacheError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeCache,
		Message: msg,
		Cause:   cause,
	}
}

// LineageError creates a new lineage recording error
func LineageError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeLineage,
		Message: msg,
		Cause:   cause,
	}
}

// DuplicateError creates a conflict error for duplicate registrations
func DuplicateError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeConflict,
		Message: fmt.Sprintf("%s already registered", resource),
	}
}

// ConfigError creates a new configuration error
func ConfigError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeConfig,
		Message: msg,
	}
}

// InternalError creates a new internal error
func InternalError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeInternal,
		Message: msg,
		Cause:   cause,
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}

	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}

	return appErr.Type == errType
}

// GetType returns the error type if it's an AppError, otherwise returns ErrTypeInternal
func GetType(err error) ErrorType {
	if err == nil {
		return ""
	}

	appErr, ok := err.(*AppError)
	if !ok {
		return ErrTypeInternal
	}

	return appErr.Type
}

// IsTransient reports whether an error is worth retrying within the same
// candidate. Timeouts and transient provider errors qualify; rejections
// (circuit open, rate limit) and request-level errors never do.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}

	switch appErr.Type {
	case ErrTypeTimeout:
		return true
	case ErrTypeProvider:
		return appErr.Transient
	}
	return false
}

// AdvancesFallback reports whether a candidate failure should advance the
// fallback chain to the next candidate. Validation and strategy errors
// abort the chain instead.
func AdvancesFallback(err error) bool {
	switch GetType(err) {
	case ErrTypeProvider, ErrTypeTimeout, ErrTypeCircuitOpen, ErrTypeRateLimit:
		return true
	}
	return false
}
