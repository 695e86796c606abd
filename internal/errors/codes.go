// Package errors provides structured error handling for lexsearch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (lexicon files, database files, locks)
//   - 3XX: Store errors (lexicon store lookups)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryStore indicates a failed lexicon store lookup.
	CategoryStore Category = "STORE"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeFileNotFound     = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission   = "ERR_202_FILE_PERMISSION"
	ErrCodeLexiconMalformed = "ERR_203_LEXICON_MALFORMED"
	ErrCodeImportLocked     = "ERR_204_IMPORT_LOCKED"
	ErrCodeCorruptLexicon   = "ERR_205_CORRUPT_LEXICON"

	// Store errors (300-399)
	ErrCodeStoreUnavailable = "ERR_301_STORE_UNAVAILABLE"
	ErrCodeStoreClosed      = "ERR_302_STORE_CLOSED"

	// Validation errors (400-499)
	ErrCodeMalformedQuery = "ERR_401_MALFORMED_QUERY"
	ErrCodeInvalidEntry   = "ERR_402_INVALID_ENTRY"
	ErrCodeInvalidInput   = "ERR_403_INVALID_INPUT"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeImportFailed = "ERR_502_IMPORT_FAILED"
)

// Sentinels for errors.Is. Matching is by code, so any LexError carrying
// the same code satisfies errors.Is against these.
var (
	ErrStoreUnavailable = &LexError{Code: ErrCodeStoreUnavailable}
	ErrMalformedQuery   = &LexError{Code: ErrCodeMalformedQuery}
	ErrImportLocked     = &LexError{Code: ErrCodeImportLocked}
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// "301" from "ERR_301_STORE_UNAVAILABLE"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryStore
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptLexicon:
		return SeverityFatal
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode reports whether the caller may try again unchanged.
// The search engine itself never retries; only the importer does.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeImportLocked:
		return true
	default:
		return false
	}
}
