// Package runrecord derives the run's provenance record: who ran what,
// where, when, with which inputs and outputs, and at what resource cost.
// Identity signals (host, times, job id) come from ordered fallback chains
// so a missing signal narrows the record instead of aborting the build.
package runrecord

import (
	"os"
	"sort"
	"strings"
)

// Environment variable names consulted for run identity
const (
	envClusterName = "SLURM_CLUSTER_NAME"
	envMachineName = "BSC_MACHINE"
	envJobID       = "SLURM_JOB_ID"
)

// snapshotPrefixes selects the environment variables worth recording:
// scheduler job and submission settings plus the runtime's own configuration
var snapshotPrefixes = []string{"SLURM_JOB", "SLURM_MEM", "SLURM_SUBMIT", "COMPSS"}

// snapshotExclude drops the legacy duplicate of SLURM_JOB_ID
const snapshotExclude = "SLURM_JOBID"

// hostStrategy is one tier of the host-name fallback chain
type hostStrategy struct {
	name    string
	resolve func() (string, bool)
}

func envStrategy(name, variable string) hostStrategy {
	return hostStrategy{name: name, resolve: func() (string, bool) {
		v := os.Getenv(variable)
		return v, v != ""
	}}
}

// ResolveHost returns the best available name for the machine the run
// executed on: the scheduler's cluster name, else the platform identifier,
// else the local host name.
func ResolveHost() string {
	strategies := []hostStrategy{
		envStrategy("cluster-name", envClusterName),
		envStrategy("machine-name", envMachineName),
		{name: "hostname", resolve: func() (string, bool) {
			h, err := os.Hostname()
			return h, err == nil && h != ""
		}},
	}
	for _, s := range strategies {
		if host, ok := s.resolve(); ok {
			return host
		}
	}
	return "unknown"
}

// JobID returns the scheduler job identifier, empty when the run was not
// submitted through a queuing system
func JobID() string {
	return os.Getenv(envJobID)
}

// EnvVar is one recorded environment variable
type EnvVar struct {
	Name  string
	Value string
}

// Snapshot captures the allow-listed environment variables, sorted by name
func Snapshot() []EnvVar {
	var vars []EnvVar
	for _, pair := range os.Environ() {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == snapshotExclude {
			continue
		}
		for _, prefix := range snapshotPrefixes {
			if strings.HasPrefix(name, prefix) {
				vars = append(vars, EnvVar{Name: name, Value: value})
				break
			}
		}
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })
	return vars
}
