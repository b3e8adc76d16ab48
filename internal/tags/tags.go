// Package tags tallies the identification tags analysts enter in the
// MANUAL_ID column of a review sheet.
package tags

import (
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/pnwtools/pnwtools/internal/tabular"
)

// Required review sheet columns.
const (
	ColFolder   = "FOLDER"
	ColInFile   = "IN_FILE"
	ColManualID = "MANUAL_ID"
)

// NoFolder stands in for an empty FOLDER field.
const NoFolder = "NA"

// TagCount is how often one tag was used, overall and per folder.
type TagCount struct {
	Tag      string         `json:"tag"`
	Total    int            `json:"total"`
	ByFolder map[string]int `json:"by_folder"`
}

// Summary is the tally of one review sheet.
type Summary struct {
	Path       string     `json:"file_path,omitempty"`
	FileName   string     `json:"file_name,omitempty"`
	LastSaved  time.Time  `json:"last_saved"`
	TotalRows  int        `json:"total_rows"`
	TaggedRows int        `json:"tagged_rows"`
	Folders    []string   `json:"folders"`
	Tags       []TagCount `json:"tags"`
}

// UniqueTags is the number of distinct tags.
func (s *Summary) UniqueTags() int { return len(s.Tags) }

// Count returns how often tag was used in folder.
func (s *Summary) Count(tag, folder string) int {
	for _, tc := range s.Tags {
		if tc.Tag == tag {
			return tc.ByFolder[folder]
		}
	}
	return 0
}

// Tokenize splits a MANUAL_ID value on ',' and '+', trimming each tag and
// dropping empties.
func Tokenize(label string) []string {
	fields := strings.FieldsFunc(label, func(r rune) bool { return r == ',' || r == '+' })
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Read tallies the review sheet in r. A row with more fields than the
// header carries an unquoted comma inside MANUAL_ID; the surplus fields are
// folded back into it.
func Read(r io.Reader) (*Summary, error) {
	t, err := tabular.Read(r, ColFolder, ColInFile, ColManualID)
	if err != nil {
		return nil, err
	}
	folderCol, manualCol := t.Col(ColFolder), t.Col(ColManualID)

	s := &Summary{TotalRows: len(t.Rows)}
	counts := make(map[string]map[string]int)
	folders := make(map[string]bool)
	for _, row := range t.Rows {
		folder := strings.TrimSpace(tabular.Field(row, folderCol))
		if folder == "" {
			folder = NoFolder
		}
		folders[folder] = true

		label := tabular.Field(row, manualCol)
		if extra := len(row) - len(t.Header); extra > 0 && manualCol >= 0 {
			label = strings.Join(row[manualCol:manualCol+extra+1], "+")
		}
		tokens := Tokenize(label)
		if len(tokens) == 0 {
			continue
		}
		s.TaggedRows++
		for _, tag := range tokens {
			if counts[tag] == nil {
				counts[tag] = make(map[string]int)
			}
			counts[tag][folder]++
		}
	}

	s.Folders = make([]string, 0, len(folders))
	for f := range folders {
		s.Folders = append(s.Folders, f)
	}
	sort.Strings(s.Folders)

	s.Tags = make([]TagCount, 0, len(counts))
	for tag, byFolder := range counts {
		tc := TagCount{Tag: tag, ByFolder: make(map[string]int, len(s.Folders))}
		for _, f := range s.Folders {
			tc.ByFolder[f] = byFolder[f]
			tc.Total += byFolder[f]
		}
		s.Tags = append(s.Tags, tc)
	}
	sortTags(s.Tags)
	return s, nil
}

// sortTags orders tags alphabetically with uncertain ones (containing '?')
// after all certain ones.
func sortTags(tags []TagCount) {
	sort.Slice(tags, func(i, j int) bool {
		ui, uj := strings.Contains(tags[i].Tag, "?"), strings.Contains(tags[j].Tag, "?")
		if ui != uj {
			return uj
		}
		return tags[i].Tag < tags[j].Tag
	})
}

// ReadFile tallies the review sheet at path and records its name and
// last-saved time.
func ReadFile(fsys afero.Fs, path string) (*Summary, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", path)
	}
	s, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", filepath.Base(path))
	}
	s.Path = path
	s.FileName = filepath.Base(path)
	s.LastSaved = fi.ModTime()
	return s, nil
}
