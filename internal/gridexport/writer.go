package gridexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"

	"tessera/internal/grid"
	"tessera/internal/schema"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// Writer wraps csv.Writer for exporting a session's grid as CSV: one
// row per record index, one column per schema element in schema order.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the column header row derived from the schema.
func (w *Writer) WriteHeader(sc *schema.Resolved) error {
	return w.csv.Write(headerFor(sc))
}

// WriteGrid pivots the cells into rows and writes them. Cells whose
// element is not in the schema are dropped from the pivot (they carry no
// stable column) and are only visible in the long-format export.
func (w *Writer) WriteGrid(sc *schema.Resolved, cells []grid.GridCell) error {
	for _, row := range Pivot(sc, cells) {
		if err := w.csv.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

func headerFor(sc *schema.Resolved) []string {
	elements := sc.Elements()
	header := make([]string, 0, len(elements)+1)
	header = append(header, "Record")
	for _, el := range elements {
		name := el.Name
		if el.GroupName != "" {
			name = el.GroupName + "." + el.Name
		}
		header = append(header, name)
	}
	return header
}

// Pivot arranges cells into rows ordered by record index, columns in
// schema order. The first column is the record index.
func Pivot(sc *schema.Resolved, cells []grid.GridCell) [][]string {
	elements := sc.Elements()
	colIndex := make(map[string]int, len(elements))
	for i, el := range elements {
		colIndex[el.ID.String()] = i
	}

	byRecord := make(map[int][]string)
	for i := range cells {
		cell := &cells[i]
		col, ok := colIndex[cell.ElementID.String()]
		if !ok {
			continue
		}
		row, seen := byRecord[cell.RecordIndex]
		if !seen {
			row = make([]string, len(elements)+1)
			row[0] = fmt.Sprintf("%d", cell.RecordIndex)
			byRecord[cell.RecordIndex] = row
		}
		if cell.ExtractedValue != nil {
			row[col+1] = *cell.ExtractedValue
		}
	}

	indexes := make([]int, 0, len(byRecord))
	for idx := range byRecord {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	rows := make([][]string, 0, len(indexes))
	for _, idx := range indexes {
		rows = append(rows, byRecord[idx])
	}
	return rows
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses
// consecutive underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized filename for the Content-Disposition
// header. Format: {sanitized_name}_{YYYY-MM-DD}.{ext}
func BuildFilename(name, ext string) string {
	sanitized := SanitizeFilename(name)
	date := time.Now().Format("2006-01-02")
	return fmt.Sprintf("%s_%s.%s", sanitized, date, ext)
}
