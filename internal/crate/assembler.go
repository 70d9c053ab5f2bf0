package crate

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/wfrun/cratebuilder/internal/dataset"
	"github.com/wfrun/cratebuilder/internal/log"
)

// DatasetPrefix is the crate namespace persisted dataset files are re-rooted
// under
const DatasetPrefix = "dataset/"

// MarkerName materializes empty directories in the persisted payload
const MarkerName = ".gitkeep"

// Assembler turns classified dataset entries into crate entities, either
// referencing them by URL or physically attaching their bytes
type Assembler struct {
	Crate   *Crate
	WorkDir string
	Logger  *log.Logger

	// aliases gives each common path a stable destination name under the
	// dataset namespace; collisions on basename get an index suffix
	aliases    map[string]string
	aliasTaken map[string]bool
}

// NewAssembler creates an Assembler building into c
func NewAssembler(c *Crate, workDir string, logger *log.Logger) *Assembler {
	return &Assembler{
		Crate:      c,
		WorkDir:    workDir,
		Logger:     logger,
		aliases:    make(map[string]string),
		aliasTaken: make(map[string]bool),
	}
}

func isoNow() string {
	return time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
}

// localFileProperties stats a local path and builds the standard data-entity
// properties. Missing metadata degrades to a narrower property set.
func (a *Assembler) localFileProperties(localPath, name string, withSize bool) map[string]any {
	props := map[string]any{
		"name":            name,
		"sdDatePublished": isoNow(),
	}
	info, err := os.Stat(localPath)
	if err != nil {
		a.Logger.Warn("could not stat dataset entry, metadata will be reduced", "path", localPath)
		return props
	}
	props["dateModified"] = info.ModTime().UTC().Truncate(time.Second).Format(time.RFC3339)
	if withSize {
		props["contentSize"] = info.Size()
	}
	return props
}

// AddEntry adds one dataset entry to the crate. In reference mode the entry
// is linked by its original URL; in persist mode its bytes are scheduled for
// inclusion under the dataset namespace, re-rooted by common path. Returns
// the entry's public identifier: the crate path when persisted, the
// (dir-fixed) URL otherwise.
func (a *Assembler) AddEntry(entry string, persist bool, commonPaths []string) (string, error) {
	switch {
	case dataset.IsFile(entry):
		return a.addFileEntry(entry, persist, commonPaths)
	case dataset.IsDir(entry):
		return a.addDirEntry(entry, persist)
	default:
		name := path.Base(strings.TrimSuffix(entry, "/"))
		a.Crate.AddFileEntity(entry, map[string]any{"name": name})
		return entry, nil
	}
}

func (a *Assembler) addFileEntry(entry string, persist bool, commonPaths []string) (string, error) {
	localPath := dataset.LocalPath(entry)
	props := a.localFileProperties(localPath, path.Base(localPath), true)

	if !persist {
		a.Crate.AddFileEntity(entry, props)
		return entry, nil
	}

	cratePath := a.destinationFor(localPath, commonPaths)
	if _, created := a.Crate.AddFileEntity(cratePath, props); !created {
		a.Logger.Debug("dataset file already registered at destination", "dest", cratePath)
		return cratePath, nil
	}
	a.Crate.AttachPayload(cratePath, localPath)
	return cratePath, nil
}

// destinationFor strips the covering common path and re-roots the remainder
// under the dataset namespace. Files under the working directory root go to
// the namespace root; other groups are disambiguated by the basename of the
// common path's final segment, suffixed on collision.
func (a *Assembler) destinationFor(localPath string, commonPaths []string) string {
	common, ok := dataset.CoveringPath(localPath, commonPaths)
	if !ok {
		// Grouper guarantees coverage; a miss means the caller skipped it
		a.Logger.Warn("no common path covers a persisted file, using its basename", "path", localPath)
		return DatasetPrefix + path.Base(localPath)
	}

	rest := localPath[len(common):]
	workDirPrefix := a.WorkDir
	if !strings.HasSuffix(workDirPrefix, "/") {
		workDirPrefix += "/"
	}
	if common == workDirPrefix {
		return DatasetPrefix + rest
	}
	return DatasetPrefix + a.aliasFor(common) + "/" + rest
}

// aliasFor assigns a stable destination name to a common path. Two distinct
// common paths sharing a basename get deterministic index suffixes in
// first-use order.
func (a *Assembler) aliasFor(common string) string {
	if alias, ok := a.aliases[common]; ok {
		return alias
	}
	base := path.Base(strings.TrimSuffix(common, "/"))
	alias := base
	for i := 1; a.aliasTaken[alias]; i++ {
		alias = fmt.Sprintf("%s_%d", base, i)
	}
	a.aliases[common] = alias
	a.aliasTaken[alias] = true
	return alias
}

func (a *Assembler) addDirEntry(entry string, persist bool) (string, error) {
	dirPath := strings.TrimSuffix(dataset.LocalPath(entry), "/")
	dirName := path.Base(dirPath)
	host := dataset.Host(entry)
	props := a.localFileProperties(dirPath, dirName, false)

	children, err := a.describeDirContents(dirPath, dirName, host, persist)
	if err != nil {
		a.Logger.Warn("could not traverse dataset directory", "path", dirPath, "error", err.Error())
	}

	empty := len(children) == 0 && dirIsEmpty(dirPath)

	if persist {
		cratePath := DatasetPrefix + dirName + "/"
		if empty {
			markerPath := cratePath + MarkerName
			a.Crate.AddFileEntity(markerPath, map[string]any{
				"name":            MarkerName,
				"sdDatePublished": isoNow(),
			})
			a.Crate.AttachMarker(markerPath)
			children = append(children, RefTo(markerPath))
		}
		if len(children) > 0 {
			props["hasPart"] = children
		}
		a.Crate.AddDatasetEntity(cratePath, props)
		return cratePath, nil
	}

	if len(children) > 0 {
		props["hasPart"] = children
	}
	fixed := dataset.FixDirURL(entry)
	a.Crate.AddDatasetEntity(fixed, props)
	return fixed, nil
}

// describeDirContents walks a dataset directory, registering every file (and
// empty sub-directory) it contains, and returns the hasPart references.
// Sub-directories are not themselves registered as dataset entries: they are
// not a specific input or output of the run, but their files are.
func (a *Assembler) describeDirContents(dirPath, dirName, host string, persist bool) ([]Ref, error) {
	var children []Ref

	var walk func(current string) error
	walk = func(current string) error {
		entries, err := os.ReadDir(current)
		if err != nil {
			return err
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		for _, de := range entries {
			full := filepath.Join(current, de.Name())
			if de.IsDir() {
				if de.Name() == "__pycache__" {
					continue
				}
				if dirIsEmpty(full) {
					children = append(children, a.describeEmptySubdir(full, dirPath, dirName, host, persist)...)
					continue
				}
				if err := walk(full); err != nil {
					return err
				}
				continue
			}
			if strings.HasPrefix(de.Name(), "*") {
				continue
			}

			props := a.localFileProperties(full, de.Name(), true)
			rel := strings.TrimPrefix(full, dirPath+"/")
			if persist {
				dest := DatasetPrefix + dirName + "/" + rel
				if _, created := a.Crate.AddFileEntity(dest, props); created {
					a.Crate.AttachPayload(dest, full)
				}
				children = append(children, RefTo(dest))
			} else {
				fileURL := "file://" + host + full
				a.Crate.AddFileEntity(fileURL, props)
				children = append(children, RefTo(fileURL))
			}
		}
		return nil
	}

	err := walk(dirPath)
	return children, err
}

// describeEmptySubdir materializes an empty directory inside a dataset
// directory: a marker file in persist mode, a Dataset entity otherwise
func (a *Assembler) describeEmptySubdir(full, dirPath, dirName, host string, persist bool) []Ref {
	rel := strings.TrimPrefix(full, dirPath+"/")
	if persist {
		dest := DatasetPrefix + dirName + "/" + rel + "/" + MarkerName
		a.Crate.AddFileEntity(dest, map[string]any{
			"name":            MarkerName,
			"sdDatePublished": isoNow(),
		})
		a.Crate.AttachMarker(dest)
		return nil
	}

	dirURL := "file://" + host + full + "/"
	props := a.localFileProperties(full, path.Base(full), false)
	a.Crate.AddDatasetEntity(dirURL, props)
	return []Ref{RefTo(dirURL)}
}

func dirIsEmpty(dirPath string) bool {
	entries, err := os.ReadDir(dirPath)
	return err == nil && len(entries) == 0
}
