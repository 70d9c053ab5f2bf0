package execlog

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	builderrors "github.com/wfrun/cratebuilder/internal/errors"
	"github.com/wfrun/cratebuilder/internal/log"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Level: log.LevelError, Format: log.FormatText, Output: log.NewOutput(&bytes.Buffer{})})
}

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataprovenance.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const fullLog = `3.2
app.py
profile.json
2024-03-01T10:00:00.123456+01:00
file://node1/data/in.csv IN
file://node1/data/out.csv OUT
file://node1/data/both.bin INOUT
worker1 app.py executions 4
worker1 app.py executionTime 1500
2024-03-01T10:05:30.654321+01:00
`

func TestParseFullLog(t *testing.T) {
	parsed, err := Parse(writeLog(t, fullLog), testLogger())
	require.NoError(t, err)

	assert.Equal(t, "3.2", parsed.Version)
	assert.Equal(t, "app.py", parsed.MainEntryToken)
	assert.Equal(t, "profile.json", parsed.ProfileFilename)

	require.True(t, parsed.HasStartTime)
	require.True(t, parsed.HasEndTime)
	assert.Equal(t, 2024, parsed.StartTime.Year())
	assert.True(t, parsed.EndTime.After(parsed.StartTime))

	require.Len(t, parsed.Accesses, 3)
	assert.Equal(t, []string{"file://node1/data/in.csv", "file://node1/data/both.bin"}, parsed.InputURLs())
	assert.Equal(t, []string{"file://node1/data/out.csv", "file://node1/data/both.bin"}, parsed.OutputURLs())

	require.Len(t, parsed.Statistics, 2)
	assert.Equal(t, Statistic{Resource: "worker1", Implementation: "app.py", Name: "executions", Value: 4}, parsed.Statistics[0])
	assert.Equal(t, int64(1500), parsed.Statistics[1].Value)
}

func TestParseProfilePathReducedToBasename(t *testing.T) {
	parsed, err := Parse(writeLog(t, "3.2\napp.py\n/abs/path/profile.json\n"), testLogger())
	require.NoError(t, err)
	assert.Equal(t, "profile.json", parsed.ProfileFilename)
}

func TestParseHeaderErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"two lines only", "3.2\napp.py\n"},
		{"blank main entry", "3.2\n\nprofile.json\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(writeLog(t, tt.content), testLogger())
			require.Error(t, err)

			var builderErr *builderrors.BuilderError
			require.ErrorAs(t, err, &builderErr)
			assert.Equal(t, builderrors.ErrCodeLogHeaderInvalid, builderErr.Code)
		})
	}
}

func TestParseDegradesGracefully(t *testing.T) {
	// Header only: no timestamps, no accesses, but no error either
	parsed, err := Parse(writeLog(t, "3.2\napp.py\nprofile.json\n"), testLogger())
	require.NoError(t, err)
	assert.False(t, parsed.HasStartTime)
	assert.False(t, parsed.HasEndTime)
	assert.Empty(t, parsed.Accesses)

	// Garbage body lines are skipped with warnings
	parsed, err = Parse(writeLog(t, "3.2\napp.py\nprofile.json\nnot a timestamp\n???\nfile://h/x IN\n"), testLogger())
	require.NoError(t, err)
	assert.False(t, parsed.HasStartTime)
	require.Len(t, parsed.Accesses, 1)
	assert.Equal(t, "file://h/x", parsed.Accesses[0].URL)
}

func TestParseMissing(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "nope.log"), testLogger())
	require.Error(t, err)

	var builderErr *builderrors.BuilderError
	require.ErrorAs(t, err, &builderErr)
	assert.Equal(t, builderrors.ErrCodeLogNotFound, builderErr.Code)
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		token string
		want  Direction
		ok    bool
	}{
		{"IN", DirectionIn, true},
		{"OUT", DirectionOut, true},
		{"INOUT", DirectionInOut, true},
		{"in", 0, false},
		{"SIDEWAYS", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseDirection(tt.token)
		assert.Equal(t, tt.ok, ok, tt.token)
		if ok {
			assert.Equal(t, tt.want, got, tt.token)
		}
	}
}
