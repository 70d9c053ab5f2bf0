// Package execlog parses the fixed-format execution log emitted by the
// workflow runtime: a 3-line header (tool version, main-entry token, profile
// filename), a start timestamp, accessed-file lines interleaved with
// resource-statistic lines, and a trailing end timestamp.
package execlog

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/wfrun/cratebuilder/internal/errors"
	"github.com/wfrun/cratebuilder/internal/log"
)

// Direction tags an accessed file as consumed, produced, or both
type Direction int

const (
	// DirectionIn marks a file the run read
	DirectionIn Direction = iota
	// DirectionOut marks a file the run wrote
	DirectionOut
	// DirectionInOut marks a file the run both read and wrote
	DirectionInOut
)

// ParseDirection parses a direction token from the log
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "IN":
		return DirectionIn, true
	case "OUT":
		return DirectionOut, true
	case "INOUT":
		return DirectionInOut, true
	default:
		return 0, false
	}
}

// AccessRecord is one accessed-file line: a URL plus its direction
type AccessRecord struct {
	URL       string
	Direction Direction
}

// Statistic is one resource-usage line: resource, implementation, statistic
// name and its integer value
type Statistic struct {
	Resource       string
	Implementation string
	Name           string
	Value          int64
}

// Timestamp layouts accepted for the start and end lines. The runtime writes
// fractional seconds with a numeric zone offset.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05Z07:00",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// Log holds the parsed execution log
type Log struct {
	// Path the log was read from
	Path string

	// Version is the runtime version string (line 1)
	Version string

	// MainEntryToken is the raw main-entry candidate (line 2), either a
	// file-extension form (app.py) or a dotted-class form (pkg.files.Main)
	MainEntryToken string

	// ProfileFilename is the basename of the profile file (line 3)
	ProfileFilename string

	// Accesses lists every accessed-file record in log order
	Accesses []AccessRecord

	// Statistics lists the trailing resource-usage records in log order
	Statistics []Statistic

	// StartTime is the recorded start timestamp (line 4); valid only when
	// HasStartTime is true
	StartTime    time.Time
	HasStartTime bool

	// EndTime is the recorded end-of-file timestamp; valid only when
	// HasEndTime is true
	EndTime    time.Time
	HasEndTime bool
}

// InputURLs returns the URLs accessed as inputs, in log order.
// INOUT records count as inputs too.
func (l *Log) InputURLs() []string {
	var urls []string
	for _, rec := range l.Accesses {
		if rec.Direction == DirectionIn || rec.Direction == DirectionInOut {
			urls = append(urls, rec.URL)
		}
	}
	return urls
}

// OutputURLs returns the URLs accessed as outputs, in log order.
// INOUT records count as outputs too.
func (l *Log) OutputURLs() []string {
	var urls []string
	for _, rec := range l.Accesses {
		if rec.Direction == DirectionOut || rec.Direction == DirectionInOut {
			urls = append(urls, rec.URL)
		}
	}
	return urls
}

// Parse reads and parses an execution log. The 3-line header is load-bearing
// and its absence is fatal; anything past line 3 degrades to warnings.
func Parse(path string, logger *log.Logger) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLogNotFound, "open execution log", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r\n"))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewLogHeaderError(path, err)
	}

	if len(lines) < 3 {
		return nil, errors.NewLogHeaderError(path, nil)
	}
	if strings.TrimSpace(lines[1]) == "" {
		// The main-entry line is load-bearing: without it no main entity
		// candidate exists at all
		return nil, errors.NewLogHeaderError(path, nil)
	}

	parsed := &Log{
		Path:            path,
		Version:         strings.TrimSpace(lines[0]),
		MainEntryToken:  strings.TrimSpace(lines[1]),
		ProfileFilename: filepath.Base(strings.TrimSpace(lines[2])),
	}

	if len(lines) > 3 {
		if ts, ok := parseTimestamp(strings.TrimSpace(lines[3])); ok {
			parsed.StartTime = ts
			parsed.HasStartTime = true
		} else {
			logger.Warn("no start time found in execution log, a fallback source will be used",
				"log", path)
		}
	}

	last := len(lines) - 1
	if last > 3 {
		if ts, ok := parseTimestamp(strings.TrimSpace(lines[last])); ok {
			parsed.EndTime = ts
			parsed.HasEndTime = true
		} else {
			logger.Warn("no end time found in execution log, current time will be used",
				"log", path)
		}
	}

	for i := 4; i < len(lines); i++ {
		if i == last && parsed.HasEndTime {
			break
		}
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if rec, ok := parseAccess(line); ok {
			parsed.Accesses = append(parsed.Accesses, rec)
			continue
		}
		if stat, ok := parseStatistic(line); ok {
			parsed.Statistics = append(parsed.Statistics, stat)
			continue
		}
		logger.Warn("unrecognized execution log line skipped", "log", path, "line_number", i+1)
	}

	return parsed, nil
}

// parseAccess recognizes "<url> <DIRECTION>" lines
func parseAccess(line string) (AccessRecord, bool) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return AccessRecord{}, false
	}
	dir, ok := ParseDirection(fields[1])
	if !ok || !strings.Contains(fields[0], "://") {
		return AccessRecord{}, false
	}
	return AccessRecord{URL: fields[0], Direction: dir}, true
}

// parseStatistic recognizes "resource implementation statistic value" lines
func parseStatistic(line string) (Statistic, bool) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return Statistic{}, false
	}
	value, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return Statistic{}, false
	}
	return Statistic{
		Resource:       fields[0],
		Implementation: fields[1],
		Name:           fields[2],
		Value:          value,
	}, true
}
