package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Manifest errors (MANIFEST-001 to MANIFEST-099)
	ErrCodeManifestNotFound  ErrorCode = "MANIFEST-001"
	ErrCodeManifestInvalid   ErrorCode = "MANIFEST-002"
	ErrCodeManifestUnmarshal ErrorCode = "MANIFEST-003"

	// Execution log errors (LOG-001 to LOG-099)
	ErrCodeLogHeaderInvalid ErrorCode = "LOG-001"
	ErrCodeLogNotFound      ErrorCode = "LOG-002"

	// Source resolution errors (SOURCE-001 to SOURCE-099)
	ErrCodeMainEntityUnresolved ErrorCode = "SOURCE-001"
	ErrCodeSourceInvalid        ErrorCode = "SOURCE-002"

	// Dataset errors (DATASET-001 to DATASET-099)
	ErrCodeDatasetEntryInvalid ErrorCode = "DATASET-001"
	ErrCodeDatasetUnsorted     ErrorCode = "DATASET-002"

	// Crate assembly errors (CRATE-001 to CRATE-099)
	ErrCodeCrateCopyFailed  ErrorCode = "CRATE-001"
	ErrCodeCrateWriteFailed ErrorCode = "CRATE-002"
	ErrCodeCrateMarshal     ErrorCode = "CRATE-003"

	// Run record errors (RUN-001 to RUN-099)
	ErrCodeRunRecordInvalid ErrorCode = "RUN-001"
)

// BuilderError represents an enhanced error with code, suggestions, and cause
type BuilderError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	Cause       error
}

// Error implements the error interface
func (e *BuilderError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *BuilderError) Unwrap() error {
	return e.Cause
}

// New creates a new BuilderError
func New(code ErrorCode, message string) *BuilderError {
	return &BuilderError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new BuilderError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *BuilderError {
	return &BuilderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *BuilderError) WithSuggestion(suggestion string) *BuilderError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *BuilderError) WithSuggestions(suggestions ...string) *BuilderError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// Common error constructors for frequently used errors

// NewManifestNotFoundError creates a manifest file not found error
func NewManifestNotFoundError(path string) *BuilderError {
	return New(ErrCodeManifestNotFound, fmt.Sprintf("run manifest not found: %s", path)).
		WithSuggestion("A template manifest has been generated; fill it in and re-run").
		WithSuggestion("Check if the file path is correct")
}

// NewManifestInvalidError creates a manifest decode error
func NewManifestInvalidError(path string, cause error) *BuilderError {
	return Wrap(ErrCodeManifestUnmarshal, fmt.Sprintf("run manifest could not be decoded: %s", path), cause).
		WithSuggestion("Validate the YAML syntax of the manifest").
		WithSuggestion("Compare against the generated template")
}

// NewLogHeaderError creates an execution log header error
func NewLogHeaderError(path string, cause error) *BuilderError {
	return Wrap(ErrCodeLogHeaderInvalid, fmt.Sprintf("execution log header missing or malformed: %s", path), cause).
		WithSuggestion("The first three lines must be: tool version, main entry, profile filename").
		WithSuggestion("Make sure the run finished and the log was fully flushed")
}

// NewMainEntityError creates a main entity resolution error
func NewMainEntityError() *BuilderError {
	return New(ErrCodeMainEntityUnresolved, "no main entity could be resolved from any source").
		WithSuggestion("Check the 'sources' term of your manifest").
		WithSuggestion("Set 'sources_main_file' to point at the application main file")
}

// NewDatasetEntryError creates an error for a dataset entry that is neither file nor directory
func NewDatasetEntryError(path string) *BuilderError {
	return New(ErrCodeDatasetEntryInvalid, fmt.Sprintf("declared dataset entry is neither a file nor a directory: %s", path)).
		WithSuggestion("Remove broken symlinks from 'inputs' / 'outputs'").
		WithSuggestion("Check that the path still exists after the run")
}
