package runrecord

import (
	"bufio"
	"bytes"
	"os/exec"
	"strings"
	"time"

	"github.com/wfrun/cratebuilder/internal/execlog"
	"github.com/wfrun/cratebuilder/internal/log"
)

// sacctTimeLayout is the accounting system's start-time format
const sacctTimeLayout = "2006-01-02T15:04:05"

// timeStrategy is one tier of a timestamp fallback chain
type timeStrategy struct {
	name    string
	resolve func() (time.Time, bool)
}

func resolveTime(strategies []timeStrategy, logger *log.Logger, which string) time.Time {
	for _, s := range strategies {
		if ts, ok := s.resolve(); ok {
			logger.Debug("timestamp resolved", "which", which, "strategy", s.name)
			return ts
		}
	}
	// The final tier is wall clock and never fails; reaching here means a
	// misconfigured chain
	return time.Now().UTC()
}

// StartTime resolves the run's start: the execution log's recorded start
// line, else the accounting system's record for the job, else the wall clock
// captured at build start
func StartTime(execLog *execlog.Log, jobID string, buildStart time.Time, logger *log.Logger) time.Time {
	strategies := []timeStrategy{
		{name: "execution-log", resolve: func() (time.Time, bool) {
			if !execLog.HasStartTime {
				logger.Warn("no start time found in the execution log, accounting data will be used if available")
			}
			return execLog.StartTime, execLog.HasStartTime
		}},
		{name: "accounting", resolve: func() (time.Time, bool) {
			if jobID == "" {
				return time.Time{}, false
			}
			return accountingStart(jobID, logger)
		}},
		{name: "wall-clock", resolve: func() (time.Time, bool) {
			return buildStart, true
		}},
	}
	return resolveTime(strategies, logger, "start")
}

// EndTime resolves the run's end: the execution log's trailing timestamp,
// else the wall clock at build time
func EndTime(execLog *execlog.Log, logger *log.Logger) time.Time {
	strategies := []timeStrategy{
		{name: "execution-log", resolve: func() (time.Time, bool) {
			if !execLog.HasEndTime {
				logger.Warn("no end time found in the execution log, using current time")
			}
			return execLog.EndTime, execLog.HasEndTime
		}},
		{name: "wall-clock", resolve: func() (time.Time, bool) {
			return time.Now().UTC(), true
		}},
	}
	return resolveTime(strategies, logger, "end")
}

// accountingStart queries the accounting system for the job's start time.
// Best effort, attempted exactly once: any failure or unparseable output
// skips this tier.
func accountingStart(jobID string, logger *log.Logger) (time.Time, bool) {
	out, err := exec.Command("sacct", "-j", jobID, "--format=Start", "--noheader").Output()
	if err != nil {
		logger.Warn("accounting query failed, job start time unavailable", "job_id", jobID)
		return time.Time{}, false
	}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	if !scanner.Scan() {
		return time.Time{}, false
	}
	ts, err := time.ParseInLocation(sacctTimeLayout, strings.TrimSpace(scanner.Text()), time.Local)
	if err != nil {
		logger.Warn("accounting start time could not be parsed", "job_id", jobID)
		return time.Time{}, false
	}
	return ts.UTC(), true
}

// unameDescription captures the platform description. OSTYPE and friends are
// shell locals and not inherited, so the uname binary is asked directly.
func unameDescription(logger *log.Logger) string {
	out, err := exec.Command("uname", "-a").Output()
	if err != nil {
		logger.Warn("could not run uname, run record will have no platform description")
		return ""
	}
	return strings.TrimSuffix(string(out), "\n")
}
