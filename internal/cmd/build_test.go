package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBuildCommand(t *testing.T) {
	t.Setenv("SLURM_CLUSTER_NAME", "mn5")
	t.Setenv("SLURM_JOB_ID", "")

	workDir := t.TempDir()
	proj := filepath.Join(workDir, "proj")
	writeFixture(t, filepath.Join(proj, "main.py"), "print('main')\n")
	writeFixture(t, filepath.Join(workDir, "in.csv"), "a,b\n")

	manifestPath := filepath.Join(workDir, "crate-info.yaml")
	writeFixture(t, manifestPath, fmt.Sprintf("name: Demo\nsources: [%s]\ndata_persistence: true\n", proj))

	logPath := filepath.Join(workDir, "dataprovenance.log")
	writeFixture(t, logPath, fmt.Sprintf(`1.0
main.py
profile.json
2024-05-01T10:00:00.000000+00:00
file://localhost%s/in.csv IN
2024-05-01T10:05:00.000000+00:00
`, workDir))

	outputDir := t.TempDir()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"build",
		"--manifest", manifestPath,
		"--log", logPath,
		"--output", outputDir,
		"--work-dir", workDir,
		"--log-level", "error",
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "provenance crate generated")

	entries, err := os.ReadDir(outputDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	crateDir := filepath.Join(outputDir, entries[0].Name())

	_, err = os.Stat(filepath.Join(crateDir, "ro-crate-metadata.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(crateDir, "application_sources", "proj", "main.py"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(crateDir, "dataset", "in.csv"))
	assert.NoError(t, err)
}

func TestBuildCommandMissingManifest(t *testing.T) {
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"build",
		"--manifest", filepath.Join(t.TempDir(), "absent.yaml"),
		"--log", filepath.Join(t.TempDir(), "absent.log"),
		"--log-level", "error",
	})
	assert.Error(t, rootCmd.Execute())
}
