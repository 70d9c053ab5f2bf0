package dataset

import (
	"path"
	"strings"
)

// CommonPaths computes the minimal set of shared path prefixes covering every
// local entry of a sorted dataset list. Directory entries are emitted as-is
// (each is already a common path); file entries are grouped by a single
// linear walk over the sorted order; remote entries never contribute.
// Every returned path ends with a separator.
//
// The input must satisfy the package sort order; violation is a programming
// error surfaced by AssertSorted.
func CommonPaths(entries []string) ([]string, error) {
	if err := AssertSorted(entries); err != nil {
		return nil, err
	}

	var commonPaths []string
	add := func(p string) {
		if !strings.HasSuffix(p, "/") {
			p += "/"
		}
		for _, existing := range commonPaths {
			if existing == p {
				return
			}
		}
		commonPaths = append(commonPaths, p)
	}

	var filePaths []string
	for _, entry := range entries {
		switch {
		case IsDir(entry):
			add(LocalPath(entry))
		case IsFile(entry):
			filePaths = append(filePaths, LocalPath(entry))
		}
	}
	if len(filePaths) == 0 {
		return commonPaths, nil
	}

	// Walk the sorted files maintaining a running candidate, initialized to
	// the parent of the first file. A file sharing a non-trivial prefix
	// shortens the candidate; one sharing nothing flushes it and starts a new
	// group at its own parent.
	candidate := path.Dir(filePaths[0])
	for _, filePath := range filePaths[1:] {
		shared := commonAncestor(candidate, filePath)
		if shared != "/" && shared != "" {
			candidate = shared
			continue
		}
		add(candidate)
		candidate = path.Dir(filePath)
	}
	add(candidate)

	return commonPaths, nil
}

// commonAncestor returns the deepest directory shared by two absolute paths,
// comparing whole segments
func commonAncestor(a, b string) string {
	segsA := strings.Split(strings.Trim(a, "/"), "/")
	segsB := strings.Split(strings.Trim(b, "/"), "/")

	var shared []string
	for i := 0; i < len(segsA) && i < len(segsB); i++ {
		if segsA[i] != segsB[i] {
			break
		}
		shared = append(shared, segsA[i])
	}
	if len(shared) == 0 {
		return "/"
	}
	return "/" + strings.Join(shared, "/")
}

// CoveringPath returns the unique common path that covers the given local
// path, or false if none does
func CoveringPath(localPath string, commonPaths []string) (string, bool) {
	for _, common := range commonPaths {
		if strings.HasPrefix(localPath, common) || localPath+"/" == common {
			return common, true
		}
	}
	return "", false
}
