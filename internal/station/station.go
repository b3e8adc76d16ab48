// Package station summarizes the recordings of each ARU station under a
// directory tree: how many usable files it holds, the span of dates they
// cover and the serial numbers of the recorders that made them.
package station

import (
	"context"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/pnwtools/pnwtools/internal/naming"
	"github.com/pnwtools/pnwtools/internal/runctx"
	"github.com/pnwtools/pnwtools/internal/tabular"
	"github.com/pnwtools/pnwtools/internal/wavfile"
)

// DateLayout is how first and last dates are written.
const DateLayout = "2006-01-02"

// NA fills fields that have no value.
const NA = "NA"

// Header is the station table's header row.
var Header = []string{"StationID", "FileCount", "FirstDate", "LastDate", "SerialNumber"}

// MetadataReader is the subset of wavfile.Reader the builder needs.
type MetadataReader interface {
	Valid(path string) bool
	Duration(path string) (time.Duration, error)
	Serial(path string) (string, error)
}

// Summary describes one station.
type Summary struct {
	StationID string
	FileCount int       // Valid recordings.
	Invalid   int       // Empty or unreadable .wav files.
	First     time.Time // Zero when no valid file has a usable date.
	Last      time.Time
	Serials   []string // Distinct, sorted.
	Bytes     int64
	Recorded  time.Duration
}

// SerialNumber joins the distinct serials with '+', or returns NA.
func (s Summary) SerialNumber() string {
	if len(s.Serials) == 0 {
		return NA
	}
	return strings.Join(s.Serials, "+")
}

// FirstDate is the earliest usable date, or NA.
func (s Summary) FirstDate() string { return date(s.First) }

// LastDate is the latest usable date, or NA.
func (s Summary) LastDate() string { return date(s.Last) }

// Row renders s in Header order.
func (s Summary) Row() []string {
	return []string{s.StationID, strconv.Itoa(s.FileCount), s.FirstDate(), s.LastDate(), s.SerialNumber()}
}

func date(t time.Time) string {
	if t.IsZero() {
		return NA
	}
	return t.Format(DateLayout)
}

// Builder computes station summaries.
type Builder struct {
	fs      afero.Fs
	meta    MetadataReader
	minYear int
}

// NewBuilder returns a Builder. Dates before minYear are ignored; they come
// from recorders whose clock was never set.
func NewBuilder(fsys afero.Fs, meta MetadataReader, minYear int) *Builder {
	return &Builder{fs: fsys, meta: meta, minYear: minYear}
}

// Build walks run.Root and returns one Summary per station, sorted by ID.
// Stations whose files are all invalid are still listed with a zero count.
func (b *Builder) Build(ctx context.Context, run *runctx.Run) ([]Summary, error) {
	files, err := wavfile.Discover(b.fs, run.Root)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*Summary)
	serials := make(map[string]map[string]bool)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := naming.StationPrefix(filepath.Dir(path))
		s, ok := byID[id]
		if !ok {
			s = &Summary{StationID: id}
			byID[id] = s
			serials[id] = make(map[string]bool)
		}

		if !b.meta.Valid(path) {
			s.Invalid++
			run.Log.Debug("skipping invalid recording %s", path)
			continue
		}
		s.FileCount++

		fi, err := b.fs.Stat(path)
		if err != nil {
			run.Report(runctx.KindFileAccessDenied, path, err)
			continue
		}
		s.Bytes += fi.Size()

		ts, _ := naming.ResolveTimestamp(fi.Name(), fi.ModTime())
		if ts.Year() >= b.minYear {
			if s.First.IsZero() || ts.Before(s.First) {
				s.First = ts
			}
			if s.Last.IsZero() || ts.After(s.Last) {
				s.Last = ts
			}
		}

		if d, err := b.meta.Duration(path); err == nil {
			s.Recorded += d
		} else {
			run.Report(runctx.KindUnreadableAudio, path, err)
		}

		serial, err := b.meta.Serial(path)
		switch {
		case err == nil:
			serials[id][serial] = true
		case !errors.Is(err, wavfile.ErrNoSerial):
			run.Log.Debug("serial of %s: %v", path, err)
		}
	}

	out := make([]Summary, 0, len(byID))
	for id, s := range byID {
		for serial := range serials[id] {
			s.Serials = append(s.Serials, serial)
		}
		sort.Strings(s.Serials)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StationID < out[j].StationID })
	return out, nil
}

// Write renders summaries as CSV.
func Write(w io.Writer, summaries []Summary) error {
	rows := make([][]string, len(summaries))
	for i, s := range summaries {
		rows[i] = s.Row()
	}
	return tabular.Write(w, Header, rows)
}

// WriteFile writes summaries to path on fsys, replacing any previous table.
func WriteFile(fsys afero.Fs, path string, summaries []Summary) error {
	f, err := fsys.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := Write(f, summaries); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}
