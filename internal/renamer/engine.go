package renamer

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/pnwtools/pnwtools/internal/config"
	"github.com/pnwtools/pnwtools/internal/naming"
	"github.com/pnwtools/pnwtools/internal/runctx"
)

// Mode is what a pass did.
type Mode string

const (
	ModeRename Mode = "rename"
	ModeUndo   Mode = "undo"
)

// Options control an Engine.
type Options struct {
	LogName string // Default: config.RenameLogName.
	DryRun  bool   // Report what would happen; touch nothing.
	KeepLog bool   // Archive the log after undo instead of deleting it.
}

// Result summarizes one pass.
type Result struct {
	Mode      Mode
	Scanned   int
	Renamed   int // Files renamed, or restored on undo.
	Unchanged int // Already canonical, or identity log entries.
	Failed    int
	Deduped   int
	Entries   []LogEntry // Applied (or, on dry run, planned) moves in order.
	LogPath   string
	Archived  string // Where the log went when it was kept on undo.
	Stopped   bool   // The context was cancelled mid-pass.
}

// Engine runs rename and undo passes over one filesystem.
type Engine struct {
	fs   afero.Fs
	opts Options
	now  func() time.Time
}

// New returns an Engine over fsys.
func New(fsys afero.Fs, opts Options) *Engine {
	if opts.LogName == "" {
		opts.LogName = config.RenameLogName
	}
	return &Engine{fs: fsys, opts: opts, now: time.Now}
}

// LogPath is where the rename log for root lives.
func (e *Engine) LogPath(root string) string {
	return filepath.Join(root, e.opts.LogName)
}

// Rename renames every recording under run.Root to its canonical name, or
// undoes the previous pass when root holds a rename log. Per-file problems
// are reported to run and do not fail the call; the returned error is
// reserved for an unusable root or a log that cannot be written.
func (e *Engine) Rename(ctx context.Context, run *runctx.Run) (Result, error) {
	fi, err := e.fs.Stat(run.Root)
	if err != nil || !fi.IsDir() {
		return Result{}, errors.Wrapf(config.ErrInvalidTargetPath, "%s is not a directory", run.Root)
	}
	logPath := e.LogPath(run.Root)
	if ok, _ := afero.Exists(e.fs, logPath); ok {
		return e.undo(ctx, run, logPath)
	}
	return e.rename(ctx, run, logPath)
}

func (e *Engine) rename(ctx context.Context, run *runctx.Run, logPath string) (Result, error) {
	res := Result{Mode: ModeRename, LogPath: logPath}

	// Collect first so renames never feed back into the walk.
	var records []Record
	for rec, err := range Scan(e.fs, run.Root) {
		if err != nil {
			run.Report(runctx.KindFileAccessDenied, rec.Path, err)
			res.Failed++
			continue
		}
		records = append(records, rec)
	}
	res.Scanned = len(records)

	var lw *logWriter
	defer func() {
		if lw != nil {
			lw.Close()
		}
	}()

	resolver := naming.NewCollisionResolver()
	for i, rec := range records {
		if ctx.Err() != nil {
			res.Stopped = true
			run.Log.Warn("interrupted after %d of %d files", i, len(records))
			break
		}
		if !rec.FromName {
			run.Report(runctx.KindUnparseableTimestamp, rec.Path, naming.ErrUnparseableTimestamp)
		}
		if rec.Canonical() {
			resolver.Resolve(rec.Path, rec.Path, nil)
			res.Unchanged++
			continue
		}

		target, dup := resolver.Resolve(rec.Path, rec.NewPath(), e.occupied)
		if target == rec.Path {
			res.Unchanged++
			continue
		}
		if dup {
			res.Deduped++
			run.Report(runctx.KindNameCollision, rec.Path,
				errors.Wrapf(ErrNameCollision, "%s taken, using %s", rec.NewName, filepath.Base(target)))
		}
		entry := LogEntry{OriginalPath: rec.Path, NewPath: target}

		if e.opts.DryRun {
			run.Log.Info("[DRY] %s -> %s", rec.OriginalName, filepath.Base(target))
			res.Entries = append(res.Entries, entry)
			res.Renamed++
			continue
		}

		if err := e.fs.Rename(rec.Path, target); err != nil {
			resolver.Release(target)
			run.Report(runctx.KindFileAccessDenied, rec.Path, errors.Wrapf(ErrFileAccessDenied, "%v", err))
			res.Failed++
			continue
		}
		if lw == nil {
			var err error
			if lw, err = createLog(e.fs, logPath); err != nil {
				e.rollback(run, entry)
				return res, err
			}
		}
		if err := lw.Append(entry); err != nil {
			e.rollback(run, entry)
			return res, err
		}
		run.Log.Debug("%s -> %s", rec.OriginalName, filepath.Base(target))
		res.Entries = append(res.Entries, entry)
		res.Renamed++
	}
	return res, nil
}

// rollback reverses a rename that could not be logged.
func (e *Engine) rollback(run *runctx.Run, entry LogEntry) {
	if err := e.fs.Rename(entry.NewPath, entry.OriginalPath); err != nil {
		run.Log.Error("could not restore %s from %s: %v", entry.OriginalPath, entry.NewPath, err)
	}
}

// occupied reports whether something already exists at path. A stat error
// other than not-exist counts as occupied.
func (e *Engine) occupied(path string) bool {
	_, err := e.fs.Stat(path)
	return err == nil || !os.IsNotExist(err)
}

func (e *Engine) undo(ctx context.Context, run *runctx.Run, logPath string) (Result, error) {
	res := Result{Mode: ModeUndo, LogPath: logPath}

	entries, problems, err := ReadLog(e.fs, logPath)
	if err != nil {
		return res, err
	}
	for _, p := range problems {
		run.Report(runctx.KindCorruptLog, logPath, p)
		res.Failed++
	}
	res.Scanned = len(entries)

	var (
		remaining int
		undone    []int // Indices of entries that failed, newest first.
	)
	for i := len(entries) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			res.Stopped = true
			remaining = i + 1
			run.Log.Warn("interrupted with %d log entries left", remaining)
			break
		}
		ent := entries[i]
		if ent.OriginalPath == ent.NewPath {
			res.Unchanged++
			continue
		}
		if ok, _ := afero.Exists(e.fs, ent.NewPath); !ok {
			run.Report(runctx.KindFileMissing, ent.NewPath, errors.Wrapf(ErrNotUndone, "cannot restore %s", ent.OriginalPath))
			res.Failed++
			undone = append(undone, i)
			continue
		}
		if e.occupied(ent.OriginalPath) {
			run.Report(runctx.KindNameCollision, ent.OriginalPath,
				errors.Wrapf(ErrNameCollision, "%s exists, leaving %s", filepath.Base(ent.OriginalPath), filepath.Base(ent.NewPath)))
			res.Failed++
			undone = append(undone, i)
			continue
		}
		restore := LogEntry{OriginalPath: ent.NewPath, NewPath: ent.OriginalPath}
		if e.opts.DryRun {
			run.Log.Info("[DRY] %s -> %s", filepath.Base(ent.NewPath), filepath.Base(ent.OriginalPath))
			res.Entries = append(res.Entries, restore)
			res.Renamed++
			continue
		}
		if err := e.fs.Rename(ent.NewPath, ent.OriginalPath); err != nil {
			run.Report(runctx.KindFileAccessDenied, ent.NewPath, errors.Wrapf(ErrFileAccessDenied, "%v", err))
			res.Failed++
			undone = append(undone, i)
			continue
		}
		run.Log.Debug("%s -> %s", filepath.Base(ent.NewPath), filepath.Base(ent.OriginalPath))
		res.Entries = append(res.Entries, restore)
		res.Renamed++
	}

	if e.opts.DryRun {
		return res, nil
	}
	// An interrupted undo leaves a log of the entries not yet replayed.
	if res.Stopped {
		left := entries[:remaining:remaining]
		for j := len(undone) - 1; j >= 0; j-- {
			left = append(left, entries[undone[j]])
		}
		// Unreadable rows are not re-written; the original log keeps them.
		if len(problems) > 0 {
			archived := e.archivePath(run, logPath)
			if err := e.fs.Rename(logPath, archived); err != nil {
				return res, errors.Wrap(err, "archive rename log")
			}
			res.Archived = archived
		}
		return res, e.rewriteLog(logPath, left)
	}
	if e.opts.KeepLog || res.Failed > 0 {
		archived := e.archivePath(run, logPath)
		if err := e.fs.Rename(logPath, archived); err != nil {
			return res, errors.Wrap(err, "archive rename log")
		}
		res.Archived = archived
		return res, nil
	}
	if err := e.fs.Remove(logPath); err != nil {
		return res, errors.Wrap(err, "remove rename log")
	}
	return res, nil
}

func (e *Engine) rewriteLog(path string, entries []LogEntry) error {
	lw, err := createLog(e.fs, path)
	if err != nil {
		return err
	}
	defer lw.Close()
	for _, ent := range entries {
		if err := lw.Append(ent); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) archivePath(run *runctx.Run, logPath string) string {
	ext := filepath.Ext(logPath)
	stem := logPath[:len(logPath)-len(ext)]
	id := run.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return stem + ".undone-" + e.now().UTC().Format("20060102T150405Z") + "-" + id + ext
}
