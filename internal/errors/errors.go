// Package errors provides centralized error definitions and error handling utilities
// for the agora-math service. It defines sentinel errors for the clustering engine
// contract, typed errors carrying request context, and classification helpers.
//
// # Error Types
//
//   - EngineError: a clustering engine invocation failed (transport, status, decode)
//   - ValidationError: invalid input rejected before reaching the controller
//   - TimeoutError: an operation exceeded its deadline
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewEngineError("cluster request failed", errors.ErrEngineUnavailable).
//	    WithStatusCode(503).
//	    WithConstraint("force_group_count=3")
//
// Checking errors:
//
//	// Data insufficiency is an expected engine outcome
//	if errors.Is(err, errors.ErrInsufficientData) { ... }
//
//	var engineErr *errors.EngineError
//	if errors.As(err, &engineErr) { ... }
//
//	if errors.IsRetryable(err) { ... }
//	if errors.IsUserFacing(err) { ... }
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Engine-related sentinel errors
var (
	// ErrInsufficientData indicates the engine could not form any grouping
	// because there are too few participants or votes. Callers treat this
	// as a normal outcome.
	ErrInsufficientData = New("insufficient participants or votes to cluster")
	// ErrEngineUnavailable indicates the engine could not be reached.
	ErrEngineUnavailable = New("clustering engine unavailable")
	// ErrMalformedResult indicates the engine returned output of an unexpected shape.
	ErrMalformedResult = New("malformed clustering result")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// MathError is the base interface for all agora-math errors.
type MathError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to return
	// to API clients.
	IsUserFacing() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// EngineError
// -----------------------------------------------------------------------------

// EngineError represents a failed clustering engine invocation.
//
// Example:
//
//	err := errors.NewEngineError("cluster request failed", cause).WithStatusCode(502)
//	fmt.Println(err) // "engine error [status=502]: cluster request failed: ..."
type EngineError struct {
	baseError
	StatusCode int
	Constraint string
}

// NewEngineError creates a new EngineError.
func NewEngineError(message string, cause error) *EngineError {
	return &EngineError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: false,
		},
	}
}

// WithStatusCode records the HTTP status returned by the engine.
// Server-side statuses (5xx) mark the error retryable.
func (e *EngineError) WithStatusCode(code int) *EngineError {
	e.StatusCode = code
	if code >= 500 {
		e.retryable = true
	}
	return e
}

// WithConstraint records the group-count constraint of the failed call.
func (e *EngineError) WithConstraint(c string) *EngineError {
	e.Constraint = c
	return e
}

// Error returns the formatted error message.
func (e *EngineError) Error() string {
	var parts []string
	if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if e.Constraint != "" {
		parts = append(parts, fmt.Sprintf("constraint=%s", e.Constraint))
	}

	prefix := "engine error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("engine error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *EngineError) Is(target error) bool {
	if _, ok := target.(*EngineError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// ValidationError
// -----------------------------------------------------------------------------

// ValidationError represents invalid input.
//
// Example:
//
//	err := errors.NewValidationError("must be at least 2").WithField("max_group_count").WithValue(1)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// TimeoutError
// -----------------------------------------------------------------------------

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("waiting for a solve slot", 240*time.Second)
//	fmt.Println(err) // "timeout error: waiting for a solve slot (timeout: 4m0s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. This checks for:
//   - Errors implementing MathError with IsRetryable() returning true
//   - Errors wrapping ErrTimeout or ErrEngineUnavailable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var mathErr MathError
	if As(err, &mathErr) && mathErr.IsRetryable() {
		return true
	}

	return Is(err, ErrTimeout) || Is(err, ErrEngineUnavailable)
}

// IsUserFacing returns true if the error message is safe to return to API clients.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var mathErr MathError
	if As(err, &mathErr) {
		return mathErr.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// A canceled context means the caller went away and is only informational.
// Returns SeverityError for other errors that don't implement MathError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var mathErr MathError
	if As(err, &mathErr) {
		return mathErr.Severity()
	}
	if Is(err, context.Canceled) {
		return SeverityInfo
	}
	return SeverityError
}

// Wrap wraps an error with additional context message.
// Unlike a bare string concatenation, the wrapped chain stays inspectable with Is/As.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
