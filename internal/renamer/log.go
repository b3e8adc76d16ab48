package renamer

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// LogHeader is the first row of every rename log.
var LogHeader = []string{"Old_path", "New_path"}

// LogEntry records one applied rename.
type LogEntry struct {
	OriginalPath string
	NewPath      string
}

// logWriter appends entries to a rename log, flushing and syncing each one
// before the next file is touched.
type logWriter struct {
	f afero.File
	w *csv.Writer
	n int
}

func createLog(fsys afero.Fs, path string) (*logWriter, error) {
	f, err := fsys.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "create rename log")
	}
	lw := &logWriter{f: f, w: csv.NewWriter(f)}
	if err := lw.write(LogHeader); err != nil {
		f.Close()
		return nil, err
	}
	return lw, nil
}

func (l *logWriter) write(rec []string) error {
	if err := l.w.Write(rec); err != nil {
		return errors.Wrap(err, "write rename log")
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return errors.Wrap(err, "flush rename log")
	}
	return errors.Wrap(l.f.Sync(), "sync rename log")
}

// Append durably records e.
func (l *logWriter) Append(e LogEntry) error {
	if err := l.write([]string{e.OriginalPath, e.NewPath}); err != nil {
		return err
	}
	l.n++
	return nil
}

func (l *logWriter) Close() error {
	return l.f.Close()
}

// ReadLog parses a rename log. Rows that cannot be used are returned as
// problems (each wrapping ErrCorruptLog) and skipped; the remaining entries
// are still returned so a partial log can be undone as far as it goes. The
// error result is set only when the log cannot be opened at all.
//
// Besides the two-column format written by this package, three-column rows
// "dir,old_name,new_name" written by the earlier Python tool are accepted.
func ReadLog(fsys afero.Fs, path string) ([]LogEntry, []error, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open rename log")
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var (
		entries  []LogEntry
		problems []error
	)
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			problems = append(problems, errors.Wrapf(ErrCorruptLog, "row %d: %v", row, err))
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			break
		}
		if row == 1 && len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), LogHeader[0]) {
			continue
		}

		var e LogEntry
		switch len(rec) {
		case 2:
			e = LogEntry{OriginalPath: rec[0], NewPath: rec[1]}
		case 3:
			e = LogEntry{OriginalPath: filepath.Join(rec[0], rec[1]), NewPath: filepath.Join(rec[0], rec[2])}
		default:
			problems = append(problems, errors.Wrapf(ErrCorruptLog, "row %d: %d fields", row, len(rec)))
			continue
		}
		if strings.TrimSpace(rec[0]) == "" || strings.TrimSpace(rec[len(rec)-1]) == "" {
			problems = append(problems, errors.Wrapf(ErrCorruptLog, "row %d: empty path", row))
			continue
		}
		entries = append(entries, e)
	}
	return entries, problems, nil
}
