package exitcode

import (
	"errors"
	"os"

	builderrors "github.com/wfrun/cratebuilder/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// ManifestError indicates the run manifest was missing or undecodable
	ManifestError = 3

	// LogError indicates the execution log header was missing or malformed
	LogError = 4

	// ResolutionError indicates no main entity could be resolved
	ResolutionError = 5

	// DatasetError indicates a declared dataset entry was invalid
	DatasetError = 6
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	Exit(DetermineExitCode(err))
}

// DetermineExitCode analyzes an error and returns the appropriate exit code
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	var builderErr *builderrors.BuilderError
	if !errors.As(err, &builderErr) {
		return GeneralError
	}

	switch builderErr.Code {
	case builderrors.ErrCodeManifestNotFound,
		builderrors.ErrCodeManifestInvalid,
		builderrors.ErrCodeManifestUnmarshal:
		return ManifestError
	case builderrors.ErrCodeLogHeaderInvalid,
		builderrors.ErrCodeLogNotFound:
		return LogError
	case builderrors.ErrCodeMainEntityUnresolved:
		return ResolutionError
	case builderrors.ErrCodeDatasetEntryInvalid:
		return DatasetError
	default:
		return GeneralError
	}
}
