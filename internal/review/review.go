// Package review builds review sheets: tables that split every recording
// under a directory into short clips for analysts to listen to and tag.
package review

import (
	"context"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/pnwtools/pnwtools/internal/display"
	"github.com/pnwtools/pnwtools/internal/runctx"
	"github.com/pnwtools/pnwtools/internal/tabular"
	"github.com/pnwtools/pnwtools/internal/wavfile"
)

// Header is the review sheet header. It is the layout the tag tally reads.
var Header = []string{"FOLDER", "IN_FILE", "CHANNEL", "OFFSET", "DURATION", "PART", "VOCALIZATIONS", "MANUAL_ID"}

// DurationReader reports the length of a recording.
type DurationReader interface {
	Duration(path string) (time.Duration, error)
}

// Segment is one clip of a recording, in seconds.
type Segment struct {
	Offset   float64
	Duration float64
	Part     string
}

// Segments splits a recording of length seconds into clips starting every
// interval seconds while audio remains; each clip is clip seconds long or
// whatever is left. interval < clip gives overlapping clips. Clips are
// labeled part_N when clip == interval and pos_N (the offset) otherwise,
// zero-padded to the width of the segment count (part) or of the length
// (pos) so that labels sort.
func Segments(length float64, clip, interval int) []Segment {
	if length <= 0 || clip <= 0 || interval <= 0 {
		return nil
	}
	count := int(math.Ceil(length / float64(interval)))
	partDigits := len(strconv.Itoa(count))
	posDigits := int(math.Log10(length)) + 1

	out := make([]Segment, 0, count)
	for i := 1; i <= count; i++ {
		offset := float64((i - 1) * interval)
		dur := math.Min(float64(clip), length-offset)
		part := fmt.Sprintf("pos_%0*d", posDigits, int(offset))
		if clip == interval {
			part = fmt.Sprintf("part_%0*d", partDigits, i)
		}
		out = append(out, Segment{Offset: offset, Duration: dur, Part: part})
	}
	return out
}

// Row is one line of the sheet.
type Row struct {
	Folder string
	File   string
	Segment
}

// Fields renders r in Header order. CHANNEL is always 0, VOCALIZATIONS 1
// and MANUAL_ID is left for the analyst.
func (r Row) Fields() []string {
	return []string{
		r.Folder, r.File, "0",
		display.FormatSeconds(r.Offset), display.FormatSeconds(r.Duration),
		r.Part, "1", "",
	}
}

// Sheet is a generated review sheet.
type Sheet struct {
	Files   int // Recordings found.
	Skipped int // Recordings with no readable duration.
	Rows    []Row
}

// Generator builds review sheets.
type Generator struct {
	fs       afero.Fs
	durs     DurationReader
	clip     int
	interval int
}

// NewGenerator returns a Generator cutting clip-second clips every interval
// seconds.
func NewGenerator(fsys afero.Fs, durs DurationReader, clip, interval int) *Generator {
	return &Generator{fs: fsys, durs: durs, clip: clip, interval: interval}
}

// Build lists every .wav under run.Root, ordered by file name, and cuts it
// into segments. Files whose duration cannot be read or is zero produce no
// rows and are reported.
func (g *Generator) Build(ctx context.Context, run *runctx.Run) (*Sheet, error) {
	files, err := wavfile.Discover(g.fs, run.Root)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(files, func(i, j int) bool {
		return filepath.Base(files[i]) < filepath.Base(files[j])
	})

	sheet := &Sheet{Files: len(files)}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d, err := g.durs.Duration(path)
		if err == nil && d <= 0 {
			err = errors.New("zero-length recording")
		}
		if err != nil {
			run.Report(runctx.KindUnreadableAudio, path, err)
			sheet.Skipped++
			continue
		}
		folder := Folder(run.Root, filepath.Dir(path))
		for _, seg := range Segments(d.Seconds(), g.clip, g.interval) {
			sheet.Rows = append(sheet.Rows, Row{Folder: folder, File: filepath.Base(path), Segment: seg})
		}
	}
	return sheet, nil
}

// Folder is dir relative to root; files directly in root use root's name.
func Folder(root, dir string) string {
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." {
		return filepath.Base(filepath.Clean(root))
	}
	return rel
}

// Write renders the sheet as CSV.
func (s *Sheet) Write(w io.Writer) error {
	rows := make([][]string, len(s.Rows))
	for i, r := range s.Rows {
		rows[i] = r.Fields()
	}
	return tabular.Write(w, Header, rows)
}

// WriteFile writes the sheet to path on fsys.
func (s *Sheet) WriteFile(fsys afero.Fs, path string) error {
	f, err := fsys.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := s.Write(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}
