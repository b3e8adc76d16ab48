// Package tabular reads and writes the CSV tables exchanged with analysts.
//
// Headers are matched after normalization so that "Manual ID", "MANUAL ID*"
// and "MANUAL_ID" all name the same column. Required columns are checked
// when the table is read, never later at row access.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// ErrMissingColumn is the sentinel behind every MissingColumnError.
var ErrMissingColumn = errors.New("missing required column")

// MissingColumnError names the required column a table lacks.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%v %s", ErrMissingColumn, e.Column)
}

func (e *MissingColumnError) Unwrap() error { return ErrMissingColumn }

// NormalizeHeader trims, drops quotes and '*', maps spaces to '_' and upper-cases.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.TrimSpace(h)
	h = strings.NewReplacer(`"`, "", "*", "", " ", "_").Replace(h)
	return strings.ToUpper(h)
}

// Table is a parsed CSV with a normalized header.
type Table struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

// Read parses r, normalizes the header and verifies that every required
// column is present. Rows may be ragged; callers decide what a short or long
// row means.
func Read(r io.Reader, required ...string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &MissingColumnError{Column: strings.Join(required, ",")}
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}

	t := &Table{index: make(map[string]int, len(header))}
	for i, h := range header {
		name := NormalizeHeader(h)
		t.Header = append(t.Header, name)
		if _, dup := t.index[name]; !dup {
			t.index[name] = i
		}
	}
	for _, col := range required {
		if _, ok := t.index[NormalizeHeader(col)]; !ok {
			return nil, &MissingColumnError{Column: col}
		}
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read row")
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// Col returns the index of a column, or -1.
func (t *Table) Col(name string) int {
	if i, ok := t.index[NormalizeHeader(name)]; ok {
		return i
	}
	return -1
}

// Field returns row[col] or "" when the row is too short.
func Field(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// Write emits header and rows as CSV.
func Write(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "write header")
	}
	if err := cw.WriteAll(rows); err != nil {
		return errors.Wrap(err, "write rows")
	}
	return nil
}
