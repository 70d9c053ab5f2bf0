package builder

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfrun/cratebuilder/internal/crate"
	builderrors "github.com/wfrun/cratebuilder/internal/errors"
	"github.com/wfrun/cratebuilder/internal/log"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Level: log.LevelError, Format: log.FormatText, Output: log.NewOutput(&bytes.Buffer{})})
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// Lays out a complete run: sources under proj/, one input file, one output
// directory, a manifest with persistence enabled, and the runtime's log.
func setupRun(t *testing.T) Options {
	t.Helper()
	t.Setenv("SLURM_CLUSTER_NAME", "mn5")
	t.Setenv("SLURM_JOB_ID", "")

	workDir := t.TempDir()
	proj := filepath.Join(workDir, "proj")
	writeTestFile(t, filepath.Join(proj, "main.py"), "print('main')\n")
	writeTestFile(t, filepath.Join(proj, "helper.py"), "def f(): pass\n")
	writeTestFile(t, filepath.Join(workDir, "data", "in.csv"), "a,b\n1,2\n")
	writeTestFile(t, filepath.Join(workDir, "out", "result.txt"), "42\n")
	writeTestFile(t, filepath.Join(workDir, "profile.json"), "{}\n")
	writeTestFile(t, filepath.Join(workDir, "monitor", "complete_graph.svg"), "<svg/>")

	manifestPath := filepath.Join(workDir, "crate-info.yaml")
	writeTestFile(t, manifestPath, fmt.Sprintf(`name: Demo Workflow
license: Apache-2.0
sources: [%s]
data_persistence: true
Authors:
  - name: Jane Doe
    orcid: https://orcid.org/0000-0001-2345-6789
`, proj))

	logPath := filepath.Join(workDir, "dataprovenance.log")
	writeTestFile(t, logPath, fmt.Sprintf(`1.0
main.py
profile.json
2024-05-01T10:00:00.000000+00:00
file://localhost%s/data/in.csv IN
dir://localhost%s/out/ OUT
node1 main.task executions 2
2024-05-01T10:05:00.000000+00:00
`, workDir, workDir))

	return Options{
		ManifestPath: manifestPath,
		LogPath:      logPath,
		WorkDir:      workDir,
		Logger:       testLogger(),
	}
}

func TestBuildEndToEnd(t *testing.T) {
	opts := setupRun(t)
	result, err := Build(opts)
	require.NoError(t, err)

	assert.Equal(t, "application_sources/proj/main.py", result.MainEntity)
	assert.True(t, result.Persisted)
	assert.NotEmpty(t, result.RunID)

	c := result.Crate

	main, ok := c.Get("application_sources/proj/main.py")
	require.True(t, ok)
	assert.True(t, main.HasType("ComputationalWorkflow"))
	_, ok = c.Get("application_sources/proj/helper.py")
	assert.True(t, ok)

	// The input file groups under its parent folder; the output directory
	// keeps its own name
	_, ok = c.Get("dataset/data/in.csv")
	assert.True(t, ok)
	outDir, ok := c.Get("dataset/out/")
	require.True(t, ok)
	assert.Equal(t, []crate.Ref{crate.RefTo("dataset/out/result.txt")}, outDir.Properties["hasPart"])

	payload := c.PayloadPaths()
	assert.Contains(t, payload, "dataset/data/in.csv")
	assert.Contains(t, payload, "dataset/out/result.txt")
	assert.Contains(t, payload, "application_sources/proj/main.py")
	assert.Contains(t, payload, "application_sources/proj/helper.py")
	assert.Contains(t, payload, "profile.json")
	assert.Contains(t, payload, "complete_graph.svg")

	// Run record links the published dataset identifiers plus the package
	// self-reference
	mentions, ok := c.Root().Properties["mentions"].(crate.Ref)
	require.True(t, ok)
	action, ok := c.Get(mentions["@id"])
	require.True(t, ok)
	assert.Equal(t, []any{crate.RefTo("dataset/data/in.csv")}, action.Properties["object"])
	assert.Equal(t, []any{crate.RefTo("dataset/out/"), crate.RefTo("./")}, action.Properties["result"])
	assert.Equal(t, crate.RefTo("https://orcid.org/0000-0001-2345-6789"), action.Properties["agent"])

	// Governing profiles are declared last
	conforms, ok := c.Root().Properties["conformsTo"].([]any)
	require.True(t, ok)
	assert.Len(t, conforms, 3)
}

func TestBuildReferenceMode(t *testing.T) {
	opts := setupRun(t)
	content, err := os.ReadFile(opts.ManifestPath)
	require.NoError(t, err)
	updated := bytes.Replace(content, []byte("data_persistence: true"), []byte("data_persistence: false"), 1)
	require.NoError(t, os.WriteFile(opts.ManifestPath, updated, 0o644))

	result, err := Build(opts)
	require.NoError(t, err)
	assert.False(t, result.Persisted)

	// Dataset bytes stay out of the payload; only sources and artifacts go in
	for _, p := range result.Crate.PayloadPaths() {
		assert.NotContains(t, p, "dataset/")
	}
}

func TestBuildMissingManifestIsFatal(t *testing.T) {
	opts := setupRun(t)
	opts.ManifestPath = filepath.Join(t.TempDir(), "absent.yaml")

	_, err := Build(opts)
	require.Error(t, err)
	var be *builderrors.BuilderError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, builderrors.ErrCodeManifestNotFound, be.Code)
}

func TestBuildBadLogHeaderIsFatal(t *testing.T) {
	opts := setupRun(t)
	require.NoError(t, os.WriteFile(opts.LogPath, []byte("1.0\n"), 0o644))

	_, err := Build(opts)
	require.Error(t, err)
	var be *builderrors.BuilderError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, builderrors.ErrCodeLogHeaderInvalid, be.Code)
}
