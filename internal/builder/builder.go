// Package builder orchestrates a complete provenance build: it reads the run
// manifest and execution log, resolves the application sources, classifies
// the dataset entries, and assembles the crate graph with its run record.
// A build either yields a completed graph or fails; no partial graph is ever
// handed to the writer.
package builder

import (
	"path/filepath"
	"time"

	"github.com/wfrun/cratebuilder/internal/crate"
	"github.com/wfrun/cratebuilder/internal/dataset"
	"github.com/wfrun/cratebuilder/internal/execlog"
	"github.com/wfrun/cratebuilder/internal/log"
	"github.com/wfrun/cratebuilder/internal/manifest"
	"github.com/wfrun/cratebuilder/internal/runrecord"
	"github.com/wfrun/cratebuilder/internal/source"
)

// DiagramRelPath locates the workflow diagram relative to the execution log
var DiagramRelPath = filepath.Join("monitor", "complete_graph.svg")

// Options configures a build
type Options struct {
	// ManifestPath is the user's run manifest
	ManifestPath string

	// LogPath is the runtime's execution log
	LogPath string

	// WorkDir is the directory the run was started from; relative source
	// declarations resolve against it
	WorkDir string

	Logger *log.Logger
}

// Result is a completed build, ready for the writer
type Result struct {
	Crate *crate.Crate

	// RunID is the fresh identifier generated for this run
	RunID string

	// MainEntity is the crate path of the computational workflow
	MainEntity string

	// Persisted reports whether dataset bytes were scheduled for inclusion
	Persisted bool
}

// Build runs the full pipeline
func Build(opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	buildStart := time.Now().UTC()

	m, err := manifest.Load(opts.ManifestPath)
	if err != nil {
		return nil, err
	}

	execLog, err := execlog.Parse(opts.LogPath, logger)
	if err != nil {
		return nil, err
	}

	resolved, err := source.New(opts.WorkDir, logger).Resolve(m, execLog.MainEntryToken)
	if err != nil {
		return nil, err
	}

	c := crate.New()
	authorRefs := crate.SetRootInfo(c, m, logger)

	adder := &crate.SourceAdder{
		Crate:          c,
		Logger:         logger,
		RuntimeVersion: execLog.Version,
		WorkDir:        opts.WorkDir,
	}
	diagramPath := filepath.Join(filepath.Dir(opts.LogPath), DiagramRelPath)
	mainEntity := adder.AddApplicationSources(resolved, m, execLog.ProfileFilename, diagramPath)

	host := runrecord.ResolveHost()
	classifier := dataset.NewClassifier(opts.WorkDir, host, logger)
	ins, outs, err := classifier.Classify(execLog.InputURLs(), execLog.OutputURLs(), m)
	if err != nil {
		return nil, err
	}

	persist := m.DataPersistence
	var commonPaths []string
	if persist {
		// Grouping runs over the merged lists so shared prefixes between
		// inputs and outputs collapse to one group
		merged := make([]string, 0, len(ins)+len(outs))
		merged = append(merged, ins...)
		merged = append(merged, outs...)
		dataset.Sort(merged)
		commonPaths, err = dataset.CommonPaths(merged)
		if err != nil {
			return nil, err
		}
	}

	assembler := crate.NewAssembler(c, opts.WorkDir, logger)
	addEntries := func(entries []string) ([]string, error) {
		ids := make([]string, 0, len(entries))
		for _, entry := range entries {
			id, err := assembler.AddEntry(entry, persist, commonPaths)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	}
	inIDs, err := addEntries(ins)
	if err != nil {
		return nil, err
	}
	outIDs, err := addEntries(outs)
	if err != nil {
		return nil, err
	}
	logger.Info("dataset entries added", "inputs", len(inIDs), "outputs", len(outIDs), "persist", persist)

	record := &runrecord.Builder{
		Crate:      c,
		Logger:     logger,
		WorkDir:    opts.WorkDir,
		BuildStart: buildStart,
	}
	runID := record.Add(execLog, m, authorRefs, mainEntity, inIDs, outIDs)

	crate.SetProfileDetails(c)

	return &Result{
		Crate:      c,
		RunID:      runID,
		MainEntity: mainEntity,
		Persisted:  persist,
	}, nil
}
