package renamer

import (
	"iter"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/pnwtools/pnwtools/internal/naming"
	"github.com/pnwtools/pnwtools/internal/wavfile"
)

// Record describes one recording and the name it should carry.
type Record struct {
	Path         string    // Current location.
	OriginalName string    // Current base name.
	Timestamp    time.Time // Canonical timestamp.
	FromName     bool      // Timestamp came from the name, not the mtime.
	Prefix       string
	NewName      string // Candidate base name, before collision handling.
}

// StationID is the station a record belongs to; it equals the prefix.
func (r Record) StationID() string { return r.Prefix }

// NewPath is the candidate path in the record's own directory.
func (r Record) NewPath() string {
	return filepath.Join(filepath.Dir(r.Path), r.NewName)
}

// Canonical reports whether the file already carries its candidate name.
func (r Record) Canonical() bool { return r.NewName == r.OriginalName }

var errStopScan = errors.New("scan stopped")

// Scan lazily yields a Record for every .wav file under root in lexical
// path order. Walk errors are yielded with a Record holding only the path
// and iteration continues past them. Each call walks the tree afresh.
func Scan(fsys afero.Fs, root string) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		err := afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				if !yield(Record{Path: path}, errors.Wrapf(err, "walk %s", path)) {
					return errStopScan
				}
				return nil
			}
			if info.IsDir() || !wavfile.IsWAV(info.Name()) {
				return nil
			}
			if !yield(NewRecord(path, info.ModTime()), nil) {
				return errStopScan
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopScan) {
			yield(Record{Path: root}, errors.Wrapf(err, "walk %s", root))
		}
	}
}

// NewRecord computes the canonical name for the file at path.
func NewRecord(path string, modTime time.Time) Record {
	name := filepath.Base(path)
	ts, fromName := naming.ResolveTimestamp(name, modTime)
	prefix := naming.StationPrefix(filepath.Dir(path))
	return Record{
		Path:         path,
		OriginalName: name,
		Timestamp:    ts,
		FromName:     fromName,
		Prefix:       prefix,
		NewName:      naming.CanonicalName(prefix, ts, filepath.Ext(name)),
	}
}
