package errors

import (
	"errors"
	"fmt"
)

// LexError is the structured error type for lexsearch.
// It carries enough context for logging, CLI output and MCP error mapping.
type LexError struct {
	// Code is the unique error code (e.g., "ERR_301_STORE_UNAVAILABLE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is derived from the code.
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *LexError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *LexError) Unwrap() error {
	return e.Cause
}

// Is matches any LexError with the same code.
func (e *LexError) Is(target error) bool {
	if t, ok := target.(*LexError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *LexError) WithDetail(key, value string) *LexError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *LexError) WithSuggestion(suggestion string) *LexError {
	e.Suggestion = suggestion
	return e
}

// New creates a new LexError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *LexError {
	return &LexError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a LexError from an existing error.
// The error's message becomes the LexError message.
func Wrap(code string, err error) *LexError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// StoreUnavailable reports a failed lexicon store call made during op.
func StoreUnavailable(op string, cause error) *LexError {
	return New(ErrCodeStoreUnavailable, fmt.Sprintf("lexicon store unavailable during %s", op), cause).
		WithDetail("operation", op).
		WithSuggestion("Check that the lexicon database exists and is readable, or run 'lexsearch import'")
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *LexError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// As finds the first LexError in err's chain.
func As(err error) (*LexError, bool) {
	var le *LexError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if le, ok := As(err); ok {
		return le.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	if le, ok := As(err); ok {
		return le.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a LexError anywhere in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	if le, ok := As(err); ok {
		return le.Code
	}
	return ""
}

// GetCategory extracts the category from a LexError.
func GetCategory(err error) Category {
	if le, ok := As(err); ok {
		return le.Category
	}
	return ""
}
