// Package runctx carries the state of one command invocation: its ID, target
// root, logger and the non-fatal issues collected along the way. A Run is
// created per invocation and passed explicitly to every operation.
package runctx

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pnwtools/pnwtools/internal/logging"
)

// Kind classifies a recovered, non-fatal problem for the final summary.
type Kind string

const (
	KindUnparseableTimestamp Kind = "UnparseableTimestamp"
	KindNameCollision        Kind = "NameCollision"
	KindFileAccessDenied     Kind = "FileAccessDenied"
	KindFileMissing          Kind = "FileMissing"
	KindCorruptLog           Kind = "CorruptOrPartialLog"
	KindUnreadableAudio      Kind = "UnreadableAudio"
)

// Issue is one recovered problem tied to a path.
type Issue struct {
	Kind Kind
	Path string
	Err  error
}

func (i Issue) Error() string {
	if i.Err == nil {
		return string(i.Kind) + ": " + i.Path
	}
	return string(i.Kind) + ": " + i.Path + ": " + i.Err.Error()
}

func (i Issue) Unwrap() error { return i.Err }

// Run is the per-invocation context.
type Run struct {
	ID      string
	Root    string
	Started time.Time
	Log     *logging.Logger

	issues []Issue
}

// New starts a run over root. The returned Run's logger tags every event
// with the run ID.
func New(root string, log *logging.Logger) *Run {
	if log == nil {
		log = logging.Nop()
	}
	id := uuid.NewString()
	return &Run{
		ID:      id,
		Root:    root,
		Started: time.Now(),
		Log:     log.With("run_id", id),
	}
}

// Report records a non-fatal issue. Recoverable kinds that are expected in
// normal archives (timestamp fallback, collision suffixes) are logged at
// debug level; the rest as warnings.
func (r *Run) Report(kind Kind, path string, err error) {
	issue := Issue{Kind: kind, Path: path, Err: err}
	r.issues = append(r.issues, issue)
	switch kind {
	case KindUnparseableTimestamp, KindNameCollision:
		r.Log.Debug("%v", issue)
	default:
		r.Log.Warn("%v", issue)
	}
}

// Issues returns the issues recorded so far, in report order.
func (r *Run) Issues() []Issue {
	return r.issues
}

// Count returns how many issues of kind were recorded.
func (r *Run) Count(kind Kind) int {
	n := 0
	for _, i := range r.issues {
		if i.Kind == kind {
			n++
		}
	}
	return n
}

// Failures returns the issues that represent work left undone, excluding
// the recovered kinds that still produced a result.
func (r *Run) Failures() []Issue {
	var out []Issue
	for _, i := range r.issues {
		if i.Kind == KindUnparseableTimestamp || i.Kind == KindNameCollision {
			continue
		}
		out = append(out, i)
	}
	return out
}

// Has reports whether any recorded issue matches target via errors.Is.
func (r *Run) Has(target error) bool {
	for _, i := range r.issues {
		if errors.Is(i, target) {
			return true
		}
	}
	return false
}
