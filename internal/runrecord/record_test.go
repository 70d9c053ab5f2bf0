package runrecord

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfrun/cratebuilder/internal/crate"
	"github.com/wfrun/cratebuilder/internal/execlog"
	"github.com/wfrun/cratebuilder/internal/log"
	"github.com/wfrun/cratebuilder/internal/manifest"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Level: log.LevelError, Format: log.FormatText, Output: log.NewOutput(&bytes.Buffer{})})
}

func testExecLog() *execlog.Log {
	start, _ := time.Parse(time.RFC3339, "2024-05-01T10:00:00Z")
	end, _ := time.Parse(time.RFC3339, "2024-05-01T10:05:00Z")
	return &execlog.Log{
		Version:         "1.0",
		MainEntryToken:  "app.py",
		ProfileFilename: "App_profile.json",
		StartTime:       start,
		HasStartTime:    true,
		EndTime:         end,
		HasEndTime:      true,
		Statistics: []execlog.Statistic{
			{Resource: "node1", Implementation: "app.task", Name: "executions", Value: 3},
			{Resource: "node1", Implementation: "app.task", Name: "maxTime", Value: 120},
			{Resource: "node2", Implementation: "app.task", Name: "executions", Value: 0},
		},
	}
}

func TestResolveHostPrecedence(t *testing.T) {
	t.Setenv(envClusterName, "cluster9")
	t.Setenv(envMachineName, "mn5")
	assert.Equal(t, "cluster9", ResolveHost())

	t.Setenv(envClusterName, "")
	assert.Equal(t, "mn5", ResolveHost())

	t.Setenv(envMachineName, "")
	assert.NotEmpty(t, ResolveHost())
}

func TestSnapshotFiltersByPrefix(t *testing.T) {
	t.Setenv("SLURM_JOB_NAME", "matmul")
	t.Setenv("SLURM_SUBMIT_DIR", "/home/user")
	t.Setenv("SLURM_JOBID", "123")
	t.Setenv("COMPSS_HOME", "/opt/runtime")
	t.Setenv("HOME", "/home/user")

	vars := Snapshot()
	names := make(map[string]string, len(vars))
	for _, v := range vars {
		names[v.Name] = v.Value
	}
	assert.Equal(t, "matmul", names["SLURM_JOB_NAME"])
	assert.Equal(t, "/home/user", names["SLURM_SUBMIT_DIR"])
	assert.Equal(t, "/opt/runtime", names["COMPSS_HOME"])
	assert.NotContains(t, names, "SLURM_JOBID")
	assert.NotContains(t, names, "HOME")
}

func TestStartTimePrefersExecutionLog(t *testing.T) {
	execLog := testExecLog()
	got := StartTime(execLog, "", time.Now(), testLogger())
	assert.Equal(t, execLog.StartTime, got)
}

func TestStartTimeFallsBackToWallClock(t *testing.T) {
	buildStart, _ := time.Parse(time.RFC3339, "2024-05-01T09:00:00Z")
	got := StartTime(&execlog.Log{}, "", buildStart, testLogger())
	assert.Equal(t, buildStart, got)
}

func TestEndTimeFallsBackToWallClock(t *testing.T) {
	before := time.Now().UTC()
	got := EndTime(&execlog.Log{}, testLogger())
	assert.False(t, got.Before(before.Truncate(time.Second)))
}

func TestAddRunRecord(t *testing.T) {
	t.Setenv(envClusterName, "mn5")
	t.Setenv("SLURM_JOB_ID", "")

	c := crate.New()
	b := &Builder{Crate: c, Logger: testLogger(), WorkDir: t.TempDir(), BuildStart: time.Now()}

	m := &manifest.RunManifest{Name: "demo"}
	authorRef := crate.RefTo("https://orcid.org/0000-0001-2345-6789")
	ins := []string{"file://mn5/data/in.csv"}
	outs := []string{"dir://mn5/out/"}

	runID := b.Add(testExecLog(), m, []crate.Ref{authorRef}, "application_sources/app.py", ins, outs)
	_, err := uuid.Parse(runID)
	require.NoError(t, err)

	actionID := actionIDPrefix + "mn5_" + runID
	action, ok := c.Get(actionID)
	require.True(t, ok)
	assert.True(t, action.HasType("CreateAction"))
	assert.Equal(t, crate.RefTo("application_sources/app.py"), action.Properties["instrument"])
	assert.Equal(t, "COMPSs app.py execution at mn5", action.Properties["name"])
	assert.Equal(t, "2024-05-01T10:00:00Z", action.Properties["startTime"])
	assert.Equal(t, "2024-05-01T10:05:00Z", action.Properties["endTime"])
	assert.Equal(t, crate.RefTo(actionID), c.Root().Properties["mentions"])
	assert.NotContains(t, action.Properties, "subjectOf")

	// First author becomes the agent when no explicit one is declared
	assert.Equal(t, authorRef, action.Properties["agent"])

	assert.Equal(t, []any{crate.RefTo("file://mn5/data/in.csv")}, action.Properties["object"])
	// Directory outputs are published as file-scheme URLs; the package
	// itself closes the result list
	assert.Equal(t, []any{crate.RefTo("file://mn5/out/"), crate.RefTo("./")}, action.Properties["result"])
}

func TestAddRunRecordExplicitAgent(t *testing.T) {
	t.Setenv(envClusterName, "mn5")
	t.Setenv("SLURM_JOB_ID", "")

	c := crate.New()
	b := &Builder{Crate: c, Logger: testLogger(), WorkDir: t.TempDir(), BuildStart: time.Now()}
	m := &manifest.RunManifest{
		Name:  "demo",
		Agent: manifest.PersonList{{Name: "Op", ORCID: "https://orcid.org/0000-0002-0000-0001"}},
	}

	runID := b.Add(testExecLog(), m, nil, "application_sources/app.py", nil, nil)
	action, ok := c.Get(actionIDPrefix + "mn5_" + runID)
	require.True(t, ok)
	assert.Equal(t, crate.RefTo("https://orcid.org/0000-0002-0000-0001"), action.Properties["agent"])

	agent, ok := c.Get("https://orcid.org/0000-0002-0000-0001")
	require.True(t, ok)
	assert.True(t, agent.HasType("Person"))
}

func TestAddRunRecordNoAgent(t *testing.T) {
	t.Setenv(envClusterName, "mn5")
	t.Setenv("SLURM_JOB_ID", "")

	c := crate.New()
	b := &Builder{Crate: c, Logger: testLogger(), WorkDir: t.TempDir(), BuildStart: time.Now()}

	runID := b.Add(testExecLog(), &manifest.RunManifest{Name: "demo"}, nil, "app.py", nil, nil)
	action, _ := c.Get(actionIDPrefix + "mn5_" + runID)
	assert.NotContains(t, action.Properties, "agent")
}

func TestResourceUsageEntities(t *testing.T) {
	c := crate.New()
	b := &Builder{Crate: c, Logger: testLogger()}

	start, _ := time.Parse(time.RFC3339, "2024-05-01T10:00:00Z")
	end, _ := time.Parse(time.RFC3339, "2024-05-01T10:05:00Z")
	refs := b.addResourceUsage(testExecLog(), start, end)
	require.Len(t, refs, 4)

	ran, ok := c.Get("#node1.app.task.executions")
	require.True(t, ok)
	assert.Equal(t, "3", ran.Properties["value"])
	assert.NotContains(t, ran.Properties, "unitCode")

	// Zero executions means the implementation never ran on that resource
	never, ok := c.Get("#node2.app.task.executions")
	require.True(t, ok)
	assert.NotContains(t, never.Properties, "value")

	timed, ok := c.Get("#node1.app.task.maxTime")
	require.True(t, ok)
	assert.Equal(t, "120", timed.Properties["value"])
	assert.Equal(t, msecUnitCode, timed.Properties["unitCode"])

	overall, ok := c.Get("#overall.app.py.executionTime")
	require.True(t, ok)
	assert.Equal(t, "300000", overall.Properties["value"])
}

func TestEnvironmentEntities(t *testing.T) {
	t.Setenv("SLURM_JOB_QOS", "debug")

	c := crate.New()
	b := &Builder{Crate: c, Logger: testLogger()}
	refs := b.addEnvironment()
	assert.Contains(t, refs, crate.RefTo("#slurm_job_qos"))

	e, ok := c.Get("#slurm_job_qos")
	require.True(t, ok)
	assert.Equal(t, "SLURM_JOB_QOS", e.Properties["name"])
	assert.Equal(t, "debug", e.Properties["value"])
}
