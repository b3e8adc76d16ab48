package pipeline

import "time"

// RunStats tracks aggregate counters and totals across one command.
type RunStats struct {
	Files    int // Inputs considered: recordings, or rows for check-tags.
	Done     int // Renamed, summarized or written.
	Skipped  int
	Failed   int
	Bytes    int64
	Recorded time.Duration
	Output   string // Table written, if any.
	Elapsed  time.Duration
}
