package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Connection errors (1xxx)
	ErrCodeConnectionFailed     ErrorCode = "VBZ1001"
	ErrCodeConnectionTimeout    ErrorCode = "VBZ1002"
	ErrCodeAuthenticationFailed ErrorCode = "VBZ1003"

	// Configuration errors (2xxx)
	ErrCodeConfigMissing     ErrorCode = "VBZ2001"
	ErrCodeConfigInvalid     ErrorCode = "VBZ2002"
	ErrCodeQueryFileNotFound ErrorCode = "VBZ2003"
	ErrCodeQueryFileInvalid  ErrorCode = "VBZ2004"

	// Query errors (4xxx)
	ErrCodeQueryFailed ErrorCode = "VBZ4001"
	ErrCodeScanFailed  ErrorCode = "VBZ4002"

	// Export errors (5xxx)
	ErrCodeExportFailed ErrorCode = "VBZ5001"

	// Data errors (6xxx)
	ErrCodeDataShape    ErrorCode = "VBZ6001"
	ErrCodeInvalidInput ErrorCode = "VBZ6002"

	// System errors (9xxx)
	ErrCodeInternal ErrorCode = "VBZ9001"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL" // Run cannot continue
	SeverityError    ErrorSeverity = "ERROR"    // Operation failed, run continues
	SeverityWarning  ErrorSeverity = "WARNING"  // Operation succeeded with issues
	SeverityInfo     ErrorSeverity = "INFO"
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Stack       string
	Timestamp   time.Time
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\nCaused by: %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison by code
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  SeverityError,
		Context:   make(map[string]interface{}),
		Stack:     captureStack(),
		Timestamp: time.Now(),
	}
}

// Wrap wraps an existing error with AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	// If wrapping another AppError, inherit its context
	var ae *AppError
	if errors.As(err, &ae) {
		for k, v := range ae.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithSuggestions adds recovery suggestions
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// captureStack captures the current stack trace
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			b.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return b.String()
}

// Common error constructors

// ConfigError reports a required configuration value that is absent
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigMissing, message).
		WithSeverity(SeverityCritical).
		WithContext("field", field).
		WithSuggestions(
			fmt.Sprintf("Set '%s' in the environment or the .env file", field),
			"Run 'vetbiz setup' to store the warehouse password in the keyring",
		)
}

// InvalidConfigError reports a configuration value that is present but unusable
func InvalidConfigError(field string, value interface{}, reason string) *AppError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("Invalid value for %s: %s", field, reason)).
		WithSeverity(SeverityCritical).
		WithContext("field", field).
		WithContext("value", value)
}

// ConnectionError creates a connection-related error
func ConnectionError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeConnectionFailed, message).
		WithSeverity(SeverityError).
		WithSuggestions(
			"Check your network connection",
			"Verify the warehouse host and port are reachable",
			"Check firewall settings",
		)
}

// QueryError creates a query execution error carrying the driver message
func QueryError(message string, query string, cause error) *AppError {
	err := Wrap(cause, ErrCodeQueryFailed, message).
		WithContext("query", truncateString(query, 200))

	if cause != nil && strings.Contains(strings.ToLower(cause.Error()), "syntax") {
		_ = err.WithSuggestions(
			"Check the SQL syntax in the query file",
			"Run the query directly against the warehouse to see the full error",
		)
	}

	return err
}

// DataShapeError reports a table that lacks a column a rule depends on
func DataShapeError(rule string, column string) *AppError {
	return New(ErrCodeDataShape, fmt.Sprintf("%s requires column %q", rule, column)).
		WithSeverity(SeverityWarning).
		WithContext("rule", rule).
		WithContext("column", column).
		WithSuggestions("Make sure the query selects (or aliases) the column")
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err carries the given code anywhere in its chain
func HasCode(err error, code ErrorCode) bool {
	return errors.Is(err, &AppError{Code: code})
}

// truncateString truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
