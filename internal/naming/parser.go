package naming

import (
	"errors"
	"path/filepath"
	"strings"
	"time"
)

// TimestampLayout is the ARU timestamp embedded in file names: YYYYMMDD_HHMMSS.
const TimestampLayout = "20060102_150405"

// ErrUnparseableTimestamp means a file name carries no valid embedded
// timestamp. Callers recover by falling back to the modification time.
var ErrUnparseableTimestamp = errors.New("no valid YYYYMMDD_HHMMSS timestamp in file name")

// Sanitize replaces the '$' characters ARUs write into file names when the
// recording quality is poor.
func Sanitize(name string) string {
	return strings.ReplaceAll(name, "$", "_")
}

// ParseTimestamp extracts the last YYYYMMDD_HHMMSS group from the stem of
// name. The group must be delimited by non-digits (or the ends of the stem)
// and must be a real calendar date and 24-hour time. The result carries the
// stamp's wall clock in UTC: recorders keep their own clock, and a stamp
// that falls in a local DST gap must still format back unchanged.
func ParseTimestamp(name string) (time.Time, error) {
	stem := Sanitize(strings.TrimSuffix(name, filepath.Ext(name)))
	const n = len(TimestampLayout)
	for i := len(stem) - n; i >= 0; i-- {
		if !timestampShape(stem, i) {
			continue
		}
		ts, err := time.Parse(TimestampLayout, stem[i:i+n])
		if err == nil {
			return ts, nil
		}
	}
	return time.Time{}, ErrUnparseableTimestamp
}

// timestampShape reports whether s[i:] starts with 8 digits, '_', 6 digits,
// bounded by non-digits on both sides.
func timestampShape(s string, i int) bool {
	const n = len(TimestampLayout)
	if i > 0 && isDigit(s[i-1]) {
		return false
	}
	if i+n < len(s) && isDigit(s[i+n]) {
		return false
	}
	for j := 0; j < n; j++ {
		c := s[i+j]
		if j == 8 {
			if c != '_' {
				return false
			}
			continue
		}
		if !isDigit(c) {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// ResolveTimestamp returns the canonical timestamp for a file: the embedded
// one when valid, otherwise modTime's local wall clock truncated to whole
// seconds. Both are returned as wall-clock values in UTC (see
// ParseTimestamp). fromName reports which source was used.
func ResolveTimestamp(name string, modTime time.Time) (ts time.Time, fromName bool) {
	if ts, err := ParseTimestamp(name); err == nil {
		return ts, true
	}
	return wallClock(modTime.Local()), false
}

// wallClock re-labels t's wall clock, to the second, as UTC.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// StationPrefix derives the station identifier from the directory holding a
// recording. For .../<grandparent>/<parent> it is "<grandparent>-<id>" where
// id is the last '_'-separated field of parent, so .../OLY_30020/Stn_1 gives
// "OLY_30020-1". A directory with a single component is used as-is.
func StationPrefix(dir string) string {
	dir = filepath.Clean(dir)
	parent := filepath.Base(dir)
	grand := filepath.Base(filepath.Dir(dir))
	if isRootLike(parent) {
		return ""
	}
	if isRootLike(grand) {
		return parent
	}
	id := parent
	if i := strings.LastIndex(parent, "_"); i >= 0 && i < len(parent)-1 {
		id = parent[i+1:]
	}
	return grand + "-" + id
}

func isRootLike(s string) bool {
	return s == "" || s == "." || s == string(filepath.Separator) || strings.HasSuffix(s, ":"+string(filepath.Separator))
}
