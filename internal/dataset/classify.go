package dataset

import (
	"path/filepath"
	"strings"

	"github.com/wfrun/cratebuilder/internal/log"
	"github.com/wfrun/cratebuilder/internal/manifest"
)

// Classifier turns runtime-detected accesses plus manifest overrides into the
// final input and output dataset lists
type Classifier struct {
	// WorkDir anchors relative manifest declarations
	WorkDir string

	// Host is the host component stamped onto canonical local URLs
	Host string

	Logger *log.Logger
}

// NewClassifier creates a Classifier
func NewClassifier(workDir, host string, logger *log.Logger) *Classifier {
	return &Classifier{WorkDir: workDir, Host: host, Logger: logger}
}

// Classify merges manifest-declared inputs/outputs into the runtime-detected
// lists, sorts, and applies the subsumption and cross-list passes.
// Both returned lists are sorted and free of entries covered by a directory.
func (c *Classifier) Classify(runIns, runOuts []string, m *manifest.RunManifest) (ins, outs []string, err error) {
	ins = dedupe(runIns)
	outs = dedupe(runOuts)

	ins, err = c.mergeDeclared(m.Inputs, ins, "inputs")
	if err != nil {
		return nil, nil, err
	}
	outs, err = c.mergeDeclared(m.Outputs, outs, "outputs")
	if err != nil {
		return nil, nil, err
	}

	Sort(ins)
	Sort(outs)

	ins = Subsume(ins, c.Logger)
	outs = Subsume(outs, c.Logger)

	ins = RemoveShadowedInputs(ins, outs, c.Logger)

	return ins, outs, nil
}

// dedupe drops repeated URLs, keeping first-occurrence order
func dedupe(entries []string) []string {
	seen := make(map[string]bool, len(entries))
	result := make([]string, 0, len(entries))
	for _, entry := range entries {
		if seen[entry] {
			continue
		}
		seen[entry] = true
		result = append(result, entry)
	}
	return result
}

// mergeDeclared converts manifest-declared paths to canonical URLs and merges
// them into the runtime-detected list. Entries already present are warned and
// skipped; a declaration that is neither file nor directory is fatal.
func (c *Classifier) mergeDeclared(declared manifest.StringList, existing []string, direction string) ([]string, error) {
	merged := existing
	present := make(map[string]bool, len(existing))
	for _, entry := range existing {
		present[entry] = true
	}

	for _, path := range declared {
		abs := path
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(c.WorkDir, abs)
		}
		abs = filepath.Clean(abs)

		entry, err := CanonicalLocalURL(abs, c.Host)
		if err != nil {
			return nil, err
		}
		if present[entry] {
			c.Logger.Warn("a declared dataset entry was already detected at runtime, skipping",
				"direction", direction, "entry", entry)
			continue
		}
		present[entry] = true
		merged = append(merged, entry)
	}

	return merged, nil
}

// Subsume removes file entries whose path is a strict descendant of a
// directory entry in the same list. The pass only runs when the list mixes
// directories and files; an all-directory or all-file list is returned
// unchanged. Pure function: the input slice is not mutated.
func Subsume(entries []string, logger *log.Logger) []string {
	var dirPaths []string
	hasFile := false
	for _, entry := range entries {
		switch {
		case IsDir(entry):
			dirPaths = append(dirPaths, LocalPath(entry))
		case IsFile(entry):
			hasFile = true
		}
	}
	if len(dirPaths) == 0 || !hasFile {
		return entries
	}

	filtered := make([]string, 0, len(entries))
	for _, entry := range entries {
		if IsFile(entry) && coveredByDir(LocalPath(entry), dirPaths) {
			logger.Warn("a file entry is already represented by a directory entry, removing it",
				"entry", entry)
			continue
		}
		filtered = append(filtered, entry)
	}
	return filtered
}

// RemoveShadowedInputs removes input file entries that fall under an output
// directory: the produced directory supersedes the consumed file. Applies
// regardless of whether the output list mixes schemes. Pure function.
func RemoveShadowedInputs(ins, outs []string, logger *log.Logger) []string {
	var outDirPaths []string
	for _, entry := range outs {
		if IsDir(entry) {
			outDirPaths = append(outDirPaths, LocalPath(entry))
		}
	}
	if len(outDirPaths) == 0 {
		return ins
	}

	filtered := make([]string, 0, len(ins))
	for _, entry := range ins {
		if IsFile(entry) && coveredByDir(LocalPath(entry), outDirPaths) {
			logger.Warn("metadata of an input file removed, it is included at an output directory",
				"entry", entry)
			continue
		}
		filtered = append(filtered, entry)
	}
	return filtered
}

// coveredByDir reports whether path sits under any of the directory paths.
// Directory paths end with a separator, so prefix comparison respects
// segment boundaries.
func coveredByDir(path string, dirPaths []string) bool {
	for _, dir := range dirPaths {
		prefix := dir
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
