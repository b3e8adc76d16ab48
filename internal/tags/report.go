package tags

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"

	"github.com/pnwtools/pnwtools/internal/display"
)

// savedLayout renders the last-saved time ("May 01 at 06:00").
const savedLayout = "Jan 02 at 15:04"

// WriteReport prints the human-readable tally: the file's last-saved time,
// tagged and total rows, then a tag by folder table.
func WriteReport(w io.Writer, s *Summary) error {
	var b strings.Builder
	if s.FileName != "" {
		fmt.Fprintf(&b, "\nFile %s was last saved %s.\n", s.FileName, s.LastSaved.Format(savedLayout))
	}
	fmt.Fprintf(&b, "%s of %s lines are tagged.\n\n", display.FormatCount(s.TaggedRows), display.FormatCount(s.TotalRows))
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}
	if s.TaggedRows == 0 {
		return nil
	}

	fmt.Fprintf(w, "%d unique tags were used:\n\n", s.UniqueTags())
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "Tag\t%s\t\n", strings.Join(s.Folders, "\t"))
	for _, tc := range s.Tags {
		cells := make([]string, len(s.Folders))
		for i, f := range s.Folders {
			cells[i] = strconv.Itoa(tc.ByFolder[f])
		}
		fmt.Fprintf(tw, "%s\t%s\t\n", tc.Tag, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// WriteJSON prints s as indented JSON.
func WriteJSON(w io.Writer, s *Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
