// Package pipeline runs the pnwtools commands end to end: it builds the run
// context, drives the domain packages over the target, writes the output
// tables and logs the batch summary.
package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/pnwtools/pnwtools/internal/config"
	"github.com/pnwtools/pnwtools/internal/display"
	"github.com/pnwtools/pnwtools/internal/logging"
	"github.com/pnwtools/pnwtools/internal/renamer"
	"github.com/pnwtools/pnwtools/internal/review"
	"github.com/pnwtools/pnwtools/internal/runctx"
	"github.com/pnwtools/pnwtools/internal/station"
	"github.com/pnwtools/pnwtools/internal/tags"
	"github.com/pnwtools/pnwtools/internal/wavfile"
)

// Runner executes commands against one filesystem.
type Runner struct {
	FS  afero.Fs
	Cfg *config.Config
	Log *logging.Logger
	Out io.Writer // Reports that are the command's output (check-tags).
}

// New returns a Runner on the OS filesystem printing reports to stdout.
func New(cfg *config.Config, log *logging.Logger) *Runner {
	return &Runner{FS: afero.NewOsFs(), Cfg: cfg, Log: log, Out: os.Stdout}
}

func (r *Runner) start() (*runctx.Run, error) {
	fi, err := r.FS.Stat(r.Cfg.Target)
	if err != nil || !fi.IsDir() {
		return nil, errors.Wrapf(config.ErrInvalidTargetPath, "%s is not a directory", r.Cfg.Target)
	}
	return runctx.New(r.Cfg.Target, r.Log), nil
}

// RenameFiles renames the recordings under the target to canonical names,
// or undoes the previous rename when a rename log is present, and then
// refreshes the station table.
func (r *Runner) RenameFiles(ctx context.Context) (RunStats, error) {
	var stats RunStats
	run, err := r.start()
	if err != nil {
		return stats, err
	}

	eng := renamer.New(r.FS, renamer.Options{DryRun: r.Cfg.DryRun, KeepLog: r.Cfg.KeepLog})
	if r.Cfg.DryRun {
		run.Log.Warn("DRY RUN: no files will be renamed")
	}
	res, err := eng.Rename(ctx, run)
	stats.Files, stats.Done, stats.Skipped, stats.Failed = res.Scanned, res.Renamed, res.Unchanged, res.Failed
	if err != nil {
		return stats, err
	}

	switch res.Mode {
	case renamer.ModeUndo:
		run.Log.Info("Found %s; restoring original names", filepath.Base(res.LogPath))
		run.Log.Success("Restored %s of %s files", display.FormatCount(res.Renamed), display.FormatCount(res.Scanned))
		if res.Archived != "" {
			run.Log.Info("Rename log kept as %s", filepath.Base(res.Archived))
		}
	default:
		run.Log.Info("Found %s .wav files", display.FormatCount(res.Scanned))
		run.Log.Success("Renamed %s files (%s already canonical)",
			display.FormatCount(res.Renamed), display.FormatCount(res.Unchanged))
		if res.Deduped > 0 {
			run.Log.Warn("%s names needed a _dupNN suffix", display.FormatCount(res.Deduped))
		}
		if res.Renamed > 0 && !r.Cfg.DryRun {
			run.Log.Info("Run again to undo; the log is %s", res.LogPath)
		}
	}
	if res.Stopped {
		run.Log.Warn("Interrupted; completed renames are logged")
	}

	if !r.Cfg.DryRun && !res.Stopped {
		out := filepath.Join(run.Root, config.StationInfoName)
		sums, err := r.writeStations(ctx, run, out)
		if err != nil {
			return stats, err
		}
		stats.Output = out
		run.Log.Info("Station table: %s stations in %s", display.FormatCount(len(sums)), config.StationInfoName)
	}

	r.logSummary(run, &stats)
	return stats, nil
}

// StationInfo writes the per-station table for the target.
func (r *Runner) StationInfo(ctx context.Context) (RunStats, error) {
	var stats RunStats
	run, err := r.start()
	if err != nil {
		return stats, err
	}

	out := filepath.Join(run.Root, config.ReportName(run.Root, "station_info.csv"))
	sums, err := r.writeStations(ctx, run, out)
	if err != nil {
		return stats, err
	}
	stats.Output = out
	for _, s := range sums {
		stats.Files += s.FileCount + s.Invalid
		stats.Done += s.FileCount
		stats.Skipped += s.Invalid
		stats.Bytes += s.Bytes
		stats.Recorded += s.Recorded
		run.Log.Info("  %s: %s files, %s to %s, serial %s",
			s.StationID, display.FormatCount(s.FileCount), s.FirstDate(), s.LastDate(), s.SerialNumber())
	}
	run.Log.Success("%s stations written to %s", display.FormatCount(len(sums)), filepath.Base(out))
	run.Log.Info("  %s of audio, %s recorded", display.FormatBytes(stats.Bytes), display.FormatHours(stats.Recorded))

	r.logSummary(run, &stats)
	return stats, nil
}

func (r *Runner) writeStations(ctx context.Context, run *runctx.Run, out string) ([]station.Summary, error) {
	b := station.NewBuilder(r.FS, wavfile.NewReader(r.FS), r.Cfg.MinValidYear)
	sums, err := b.Build(ctx, run)
	if err != nil {
		return nil, err
	}
	if err := station.WriteFile(r.FS, out, sums); err != nil {
		return nil, err
	}
	return sums, nil
}

// CheckTags prints the tag tally of the review sheet named by the target.
func (r *Runner) CheckTags(_ context.Context) (RunStats, error) {
	var stats RunStats
	fi, err := r.FS.Stat(r.Cfg.Target)
	if err != nil || fi.IsDir() {
		return stats, errors.Wrapf(config.ErrInvalidTargetPath, "%s is not a file", r.Cfg.Target)
	}

	s, err := tags.ReadFile(r.FS, r.Cfg.Target)
	if err != nil {
		return stats, err
	}
	stats.Files, stats.Done = s.TotalRows, s.TaggedRows

	if r.Cfg.JSON {
		err = tags.WriteJSON(r.Out, s)
	} else {
		err = tags.WriteReport(r.Out, s)
	}
	return stats, errors.Wrap(err, "write report")
}

// ReviewFile writes the review sheet for the target.
func (r *Runner) ReviewFile(ctx context.Context) (RunStats, error) {
	var stats RunStats
	run, err := r.start()
	if err != nil {
		return stats, err
	}

	gen := review.NewGenerator(r.FS, wavfile.NewReader(r.FS), r.Cfg.ClipLength, r.Cfg.Interval)
	sheet, err := gen.Build(ctx, run)
	if err != nil {
		return stats, err
	}
	run.Log.Info("%s .wav files found in target directory", display.FormatCount(sheet.Files))

	out := filepath.Join(run.Root, config.ReportName(run.Root, "review_full.csv"))
	if err := sheet.WriteFile(r.FS, out); err != nil {
		return stats, err
	}
	stats.Files, stats.Done, stats.Skipped, stats.Output = sheet.Files, len(sheet.Rows), sheet.Skipped, out
	run.Log.Success("%s lines written to %s", display.FormatCount(len(sheet.Rows)), filepath.Base(out))

	r.logSummary(run, &stats)
	return stats, nil
}

var issueOrder = []runctx.Kind{
	runctx.KindUnparseableTimestamp,
	runctx.KindNameCollision,
	runctx.KindFileAccessDenied,
	runctx.KindFileMissing,
	runctx.KindCorruptLog,
	runctx.KindUnreadableAudio,
}

func (r *Runner) logSummary(run *runctx.Run, stats *RunStats) {
	stats.Elapsed = logging.Since(run.Started)
	log := run.Log
	log.Info("==============================")
	log.Info("Done in %s: %d done, %d skipped, %d failed", stats.Elapsed, stats.Done, stats.Skipped, stats.Failed)
	if len(run.Issues()) == 0 {
		return
	}
	log.Info("Issues:")
	for _, k := range issueOrder {
		if n := run.Count(k); n > 0 {
			log.Info("  %s: %s", k, display.FormatCount(n))
		}
	}
}
