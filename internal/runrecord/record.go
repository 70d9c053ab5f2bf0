package runrecord

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wfrun/cratebuilder/internal/crate"
	"github.com/wfrun/cratebuilder/internal/dataset"
	"github.com/wfrun/cratebuilder/internal/execlog"
	"github.com/wfrun/cratebuilder/internal/log"
	"github.com/wfrun/cratebuilder/internal/manifest"
)

// Identifier pieces of the action record
const (
	actionIDPrefix  = "#COMPSs_Workflow_Run_Crate_"
	statTermsBase   = "https://w3id.org/ro/terms/compss#"
	completedStatus = "http://schema.org/CompletedActionStatus"
	userPortalURL   = "https://userportal.bsc.es/"
	msecUnitCode    = "https://qudt.org/vocab/unit/MilliSEC"
)

// Builder assembles the run's CreateAction record into the crate
type Builder struct {
	Crate  *crate.Crate
	Logger *log.Logger

	// WorkDir is where scheduler console logs are looked up
	WorkDir string

	// BuildStart is the wall clock captured when the build began, the last
	// start-time fallback tier
	BuildStart time.Time
}

func formatTime(t time.Time) string {
	return t.Truncate(time.Second).Format(time.RFC3339)
}

// Add derives the run record and registers it: the CreateAction entity, its
// environment and resource-usage contextual entities, the agent, and the
// object/result links. mainEntityPath is the crate path of the computational
// workflow; ins and outs carry the classified entries' public URLs. Returns
// the freshly generated run identifier.
func (b *Builder) Add(execLog *execlog.Log, m *manifest.RunManifest, authorRefs []crate.Ref, mainEntityPath string, ins, outs []string) string {
	host := ResolveHost()
	jobID := JobID()
	runID := uuid.New().String()

	var actionID, name string
	appName := path.Base(mainEntityPath)
	if jobID == "" {
		actionID = actionIDPrefix + host + "_" + runID
		name = fmt.Sprintf("COMPSs %s execution at %s", appName, host)
	} else {
		actionID = actionIDPrefix + host + "_SLURM_JOB_ID_" + jobID
		name = fmt.Sprintf("COMPSs %s execution at %s with JOB_ID %s", appName, host, jobID)
	}
	b.Crate.Root().Set("mentions", crate.RefTo(actionID))

	start := StartTime(execLog, jobID, b.BuildStart, b.Logger)
	end := EndTime(execLog, b.Logger)

	props := map[string]any{
		"instrument":   crate.RefTo(mainEntityPath),
		"actionStatus": crate.RefTo(completedStatus),
		"name":         name,
		"startTime":    formatTime(start),
		"endTime":      formatTime(end),
	}
	if description := unameDescription(b.Logger); description != "" {
		props["description"] = description
	}
	if env := b.addEnvironment(); len(env) > 0 {
		props["environment"] = env
	}
	if usage := b.addResourceUsage(execLog, start, end); len(usage) > 0 {
		props["resourceUsage"] = usage
	}
	if agent, ok := b.selectAgent(m, authorRefs); ok {
		props["agent"] = agent
	}

	var objects []any
	for _, in := range ins {
		objects = append(objects, crate.RefTo(dataset.FixDirURL(in)))
	}
	if len(objects) > 0 {
		props["object"] = objects
	}
	results := make([]any, 0, len(outs)+1)
	for _, out := range outs {
		results = append(results, crate.RefTo(dataset.FixDirURL(out)))
	}
	// The produced package is itself a result of the run
	results = append(results, crate.RefTo(crate.RootID))
	props["result"] = results

	if jobID != "" {
		props["subjectOf"] = userPortalURL
	}

	b.Crate.AddContext(actionID, []string{"CreateAction"}, props)
	b.attachSchedulerLogs(jobID, actionID)

	b.Logger.Info("run record added", "run_id", runID, "host", host, "job_id", jobID)
	return runID
}

// addEnvironment registers the allow-listed environment variables as
// PropertyValue entities and returns their references
func (b *Builder) addEnvironment() []any {
	var refs []any
	for _, v := range Snapshot() {
		id := "#" + strings.ToLower(v.Name)
		b.Crate.AddContext(id, []string{"PropertyValue"}, map[string]any{
			"name":  v.Name,
			"value": v.Value,
		})
		refs = append(refs, crate.RefTo(id))
	}
	return refs
}

// addResourceUsage turns the parsed statistics, plus a synthetic overall
// execution time, into PropertyValue entities and returns their references
func (b *Builder) addResourceUsage(execLog *execlog.Log, start, end time.Time) []any {
	stats := append([]execlog.Statistic{}, execLog.Statistics...)
	stats = append(stats, execlog.Statistic{
		Resource:       "overall",
		Implementation: execLog.MainEntryToken,
		Name:           "executionTime",
		Value:          end.Sub(start).Milliseconds(),
	})

	var refs []any
	for _, stat := range stats {
		id := fmt.Sprintf("#%s.%s.%s", stat.Resource, stat.Implementation, stat.Name)
		props := map[string]any{
			"name":       stat.Name,
			"propertyID": statTermsBase + stat.Name,
		}
		if stat.Name == "executions" {
			// Zero executions means it never ran, not that it ran in no time
			if stat.Value != 0 {
				props["value"] = strconv.FormatInt(stat.Value, 10)
			}
		} else {
			props["unitCode"] = msecUnitCode
			props["value"] = strconv.FormatInt(stat.Value, 10)
		}
		b.Crate.AddContext(id, []string{"PropertyValue"}, props)
		refs = append(refs, crate.RefTo(id))
	}
	return refs
}

// selectAgent picks exactly one responsible agent: the manifest's Agent when
// validly identified, else the first registered author, else none
func (b *Builder) selectAgent(m *manifest.RunManifest, authorRefs []crate.Ref) (crate.Ref, bool) {
	if len(m.Agent) > 0 {
		if len(m.Agent) > 1 {
			b.Logger.Warn("'Agent' can only be a single person, first item selected as the submitter agent")
		}
		agent := m.Agent[0]
		if crate.AddPerson(b.Crate, agent, "Agent", b.Logger) {
			return crate.RefTo(agent.ORCID), true
		}
		b.Logger.Warn("'Agent' wrongly defined in the run manifest")
	}
	if len(authorRefs) > 0 {
		b.Logger.Warn("'Agent' missing or not correctly specified, first author selected by default")
		return authorRefs[0], true
	}
	b.Logger.Warn("no 'Authors' or 'Agent' specified in the run manifest")
	return crate.Ref{}, false
}

// attachSchedulerLogs includes the scheduler's console logs for queued runs
func (b *Builder) attachSchedulerLogs(jobID, actionID string) {
	if jobID == "" {
		return
	}
	for _, console := range []struct{ suffix, stream string }{
		{".out", "output"},
		{".err", "error"},
	} {
		name := "compss-" + jobID + console.suffix
		logPath := filepath.Join(b.WorkDir, name)
		info, err := os.Stat(logPath)
		if err != nil {
			b.Logger.Warn("scheduler console log not found", "file", name)
			continue
		}
		props := map[string]any{
			"name":           name,
			"contentSize":    info.Size(),
			"description":    "COMPSs console standard " + console.stream + " log file",
			"encodingFormat": "text/plain",
			"about":          crate.RefTo(actionID),
		}
		if _, created := b.Crate.AddFileEntity(name, props); created {
			b.Crate.AttachPayload(name, logPath)
		}
	}
}
