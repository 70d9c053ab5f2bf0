// Package source expands manifest-declared source paths into the resolved
// source-file set and selects the authoritative main entity for the run.
package source

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/wfrun/cratebuilder/internal/errors"
	"github.com/wfrun/cratebuilder/internal/log"
	"github.com/wfrun/cratebuilder/internal/manifest"
)

// Recognized source-code extensions, used to pick a backup main entity
var sourceExtensions = map[string]bool{
	".py":    true,
	".java":  true,
	".jar":   true,
	".class": true,
}

// Resolved is the outcome of source resolution: the flat ordered file set and
// exactly one main entity, both as absolute paths
type Resolved struct {
	// Files is the deduplicated source-file list in encounter order
	Files []string

	// MainEntity is the selected main file; it exists on disk
	MainEntity string

	// Origins maps each file to the declared source directory it was expanded
	// from; files declared individually map to the empty string
	Origins map[string]string
}

// Resolver expands sources and applies the main-entity precedence chain
type Resolver struct {
	// WorkDir is the directory the run was started from
	WorkDir string

	Logger *log.Logger
}

// New creates a Resolver rooted at workDir
func New(workDir string, logger *log.Logger) *Resolver {
	return &Resolver{WorkDir: workDir, Logger: logger}
}

// detectedApp translates the raw log main-entry token into a comparable file
// name: file-extension forms pass through, dotted-class forms become a
// sub-path ending in .java
func detectedApp(token string) string {
	if strings.Contains(token, "/") || strings.HasSuffix(token, ".py") {
		return token
	}
	if !strings.Contains(token, ".") {
		return token
	}
	return strings.ReplaceAll(token, ".", "/") + ".java"
}

// workDirCandidate is the detected app reduced to a name that can be probed
// directly in the working directory (the last class segment for dotted forms)
func workDirCandidate(token string) string {
	if strings.HasSuffix(token, ".py") || !strings.Contains(token, ".") {
		return token
	}
	parts := strings.Split(token, ".")
	return parts[len(parts)-1] + ".java"
}

// Resolve expands the manifest sources and selects the main entity.
// mainToken is the raw main-entry token from the execution log.
func (r *Resolver) Resolve(m *manifest.RunManifest, mainToken string) (*Resolved, error) {
	res := &Resolved{Origins: make(map[string]string)}

	backup := r.expand(m, res)

	strategies := []struct {
		name    string
		resolve func() (string, bool)
	}{
		{"override-direct", func() (string, bool) { return r.overrideDirect(m) }},
		{"override-suffix", func() (string, bool) { return overrideSuffix(m, res.Files) }},
		{"log-candidate", func() (string, bool) { return logCandidate(mainToken, res.Files) }},
		{"workdir-lookup", func() (string, bool) { return r.workDirLookup(mainToken) }},
		{"backup", func() (string, bool) { return backup, backup != "" }},
	}

	for _, strategy := range strategies {
		if main, ok := strategy.resolve(); ok {
			if m.SourcesMainFile != "" && !strings.HasPrefix(strategy.name, "override") {
				// The user asked for a specific file but a lower tier won
				r.Logger.Warn("the declared 'sources_main_file' could not be honoured",
					"sources_main_file", m.SourcesMainFile, "main_entity", main)
			}
			r.Logger.Debug("main entity resolved", "strategy", strategy.name, "main_entity", main)
			res.MainEntity = main
			if len(res.Files) == 0 {
				// No sources expanded; the main entity is still part of the set
				res.Files = append(res.Files, main)
			}
			return res, nil
		}
	}

	return nil, errors.NewMainEntityError()
}

// expand walks every declared source, accumulating the flat file list, and
// returns the backup main entity (first file with a recognized extension, or
// the first file at all)
func (r *Resolver) expand(m *manifest.RunManifest, res *Resolved) string {
	var backup, firstFile string
	seenFiles := make(map[string]bool)
	var addedDirs []string

	addFile := func(path, origin string) {
		if seenFiles[path] {
			r.Logger.Warn("a file addition was attempted twice", "file", path)
			return
		}
		seenFiles[path] = true
		res.Files = append(res.Files, path)
		res.Origins[path] = origin
		if firstFile == "" {
			firstFile = path
		}
		if backup == "" && sourceExtensions[filepath.Ext(path)] {
			backup = path
		}
	}

	for _, declared := range m.AllSources() {
		resolved, err := r.absPath(declared)
		if err != nil {
			r.Logger.Warn("a declared source could not be resolved", "source", declared)
			continue
		}
		info, err := os.Stat(resolved)
		if err != nil {
			r.Logger.Warn("a declared source file or directory does not exist", "source", declared)
			continue
		}

		if !info.IsDir() {
			addFile(resolved, "")
			continue
		}

		if skip := dirAlreadyCovered(resolved, addedDirs, r.Logger); skip {
			continue
		}
		addedDirs = append(addedDirs, resolved)

		_ = filepath.WalkDir(resolved, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if d.Name() == "__pycache__" {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasPrefix(d.Name(), "*") {
				// Wildcard symlink debris
				return nil
			}
			addFile(path, resolved)
			return nil
		})
	}

	if len(res.Files) == 0 && m.HasSources() {
		r.Logger.Warn("unable to find application source files, review the 'sources' term of the manifest")
	}
	if backup == "" {
		backup = firstFile
	}
	return backup
}

// dirAlreadyCovered reports whether a directory was already traversed, either
// directly or through a parent. A parent of an already-added sub-directory is
// traversed anyway; file dedup keeps that harmless.
func dirAlreadyCovered(dir string, added []string, logger *log.Logger) bool {
	for _, prev := range added {
		if prev == dir {
			logger.Warn("a directory addition was attempted twice", "directory", dir)
			return true
		}
		if strings.HasPrefix(dir+string(filepath.Separator), prev+string(filepath.Separator)) {
			logger.Warn("a sub-directory of an already added directory was skipped", "directory", dir)
			return true
		}
	}
	for _, prev := range added {
		if strings.HasPrefix(prev+string(filepath.Separator), dir+string(filepath.Separator)) {
			logger.Warn("a parent of a previously added sub-directory is being added, some files will be visited twice",
				"directory", dir)
			break
		}
	}
	return false
}

// absPath resolves a declared path: home expansion, then absolute against the
// working directory
func (r *Resolver) absPath(declared string) (string, error) {
	path := declared
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	return filepath.Abs(filepath.Join(r.WorkDir, path))
}

// overrideDirect resolves tier 1: the declared override names an existing file
func (r *Resolver) overrideDirect(m *manifest.RunManifest) (string, bool) {
	if m.SourcesMainFile == "" {
		return "", false
	}
	resolved, err := r.absPath(m.SourcesMainFile)
	if err != nil {
		return "", false
	}
	info, err := os.Stat(resolved)
	if err != nil || info.IsDir() {
		return "", false
	}
	return resolved, true
}

// overrideSuffix resolves tier 2: the override matched by suffix against the
// resolved source set
func overrideSuffix(m *manifest.RunManifest, files []string) (string, bool) {
	if m.SourcesMainFile == "" {
		return "", false
	}
	return matchBySuffix(m.SourcesMainFile, files)
}

// logCandidate resolves tier 3: the log-derived candidate matched by suffix
// against the resolved source set
func logCandidate(token string, files []string) (string, bool) {
	if token == "" {
		return "", false
	}
	return matchBySuffix(detectedApp(token), files)
}

// workDirLookup resolves tier 4: the candidate found directly in the working
// directory
func (r *Resolver) workDirLookup(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	candidate := filepath.Join(r.WorkDir, workDirCandidate(token))
	info, err := os.Stat(candidate)
	if err != nil || info.IsDir() {
		return "", false
	}
	return candidate, true
}

// matchBySuffix finds the first file whose path ends with the candidate,
// respecting path-segment boundaries
func matchBySuffix(candidate string, files []string) (string, bool) {
	candidate = filepath.ToSlash(candidate)
	for _, file := range files {
		slashed := filepath.ToSlash(file)
		if slashed == candidate || strings.HasSuffix(slashed, "/"+candidate) {
			return file, true
		}
	}
	return "", false
}
