package exitcode

import (
	"fmt"
	"testing"

	builderrors "github.com/wfrun/cratebuilder/internal/errors"
)

func TestDetermineExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, Success},
		{"plain error", fmt.Errorf("boom"), GeneralError},
		{"manifest missing", builderrors.NewManifestNotFoundError("info.yaml"), ManifestError},
		{"log header", builderrors.NewLogHeaderError("run.log", nil), LogError},
		{"main entity", builderrors.NewMainEntityError(), ResolutionError},
		{"dataset entry", builderrors.NewDatasetEntryError("/x"), DatasetError},
		{"wrapped builder error", fmt.Errorf("outer: %w", builderrors.NewMainEntityError()), ResolutionError},
		{"uncategorized code", builderrors.New(builderrors.ErrCodeCrateWriteFailed, "disk full"), GeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetermineExitCode(tt.err); got != tt.want {
				t.Errorf("DetermineExitCode() = %v, want %v", got, tt.want)
			}
		})
	}
}
