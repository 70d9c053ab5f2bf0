// Package dataset classifies the files a run touched into deduplicated,
// sorted input and output lists, and computes the minimal common-path set
// used to lay out persisted copies.
//
// Entries are canonical URLs: dir://host/path/ for directories (always ending
// in a separator), file://host/path for files, and any other scheme for
// remote references. Sorting puts directories first, then files, then remote
// entries; the grouping and subsumption passes depend on that order.
package dataset

import (
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/wfrun/cratebuilder/internal/errors"
)

// Scheme ranks drive the dataset sort order
const (
	rankDir = iota
	rankFile
	rankRemote
)

func schemeRank(entry string) int {
	switch {
	case strings.HasPrefix(entry, "dir://"):
		return rankDir
	case strings.HasPrefix(entry, "file://"):
		return rankFile
	default:
		return rankRemote
	}
}

// IsDir reports whether the entry is a directory URL
func IsDir(entry string) bool { return schemeRank(entry) == rankDir }

// IsFile reports whether the entry is a local file URL
func IsFile(entry string) bool { return schemeRank(entry) == rankFile }

// IsRemote reports whether the entry is a remote reference
func IsRemote(entry string) bool { return schemeRank(entry) == rankRemote }

// LocalPath extracts the filesystem path of a local (dir or file) entry
func LocalPath(entry string) string {
	u, err := url.Parse(entry)
	if err != nil {
		return ""
	}
	return u.Path
}

// Host extracts the host component of an entry
func Host(entry string) string {
	u, err := url.Parse(entry)
	if err != nil {
		return ""
	}
	return u.Host
}

// FixDirURL rewrites a dir:// URL to an equivalent file:// URL ending in a
// separator, the public-facing form used in the run record. Other URLs pass
// through unchanged.
func FixDirURL(entry string) string {
	u, err := url.Parse(entry)
	if err != nil || u.Scheme != "dir" {
		return entry
	}
	fixed := "file://" + u.Host + u.Path
	if !strings.HasSuffix(fixed, "/") {
		fixed += "/"
	}
	return fixed
}

// CanonicalLocalURL converts a local filesystem path into its canonical entry
// URL. A path that is neither a file nor a directory (e.g. a broken symlink)
// is a fatal error.
func CanonicalLocalURL(path, host string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", errors.NewDatasetEntryError(path)
	}
	if info.IsDir() {
		u := "dir://" + host + path
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		return u, nil
	}
	return "file://" + host + path, nil
}

// Sort orders entries in place: directories, then files, then remote
// references, lexicographic within each scheme
func Sort(entries []string) {
	sort.Slice(entries, func(i, j int) bool {
		ri, rj := schemeRank(entries[i]), schemeRank(entries[j])
		if ri != rj {
			return ri < rj
		}
		return entries[i] < entries[j]
	})
}

// AssertSorted enforces the sort-before-group input contract
func AssertSorted(entries []string) error {
	for i := 1; i < len(entries); i++ {
		ri, rj := schemeRank(entries[i-1]), schemeRank(entries[i])
		if ri > rj || (ri == rj && entries[i-1] > entries[i]) {
			return errors.New(errors.ErrCodeDatasetUnsorted,
				"dataset list is not sorted: "+entries[i-1]+" precedes "+entries[i])
		}
	}
	return nil
}
