// Package display formats counts, sizes and durations for summaries.
package display

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatBytes returns a human-readable binary size (e.g. "1.5 MiB").
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return "-" + humanize.IBytes(uint64(-bytes))
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatCount renders n with thousands separators ("12,345").
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// FormatSeconds renders a non-negative number of seconds without a trailing
// ".0" for whole values ("12", "6.5").
func FormatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}

// FormatHours renders a recording total as hours with one decimal.
func FormatHours(d time.Duration) string {
	return fmt.Sprintf("%.1f h", d.Hours())
}
