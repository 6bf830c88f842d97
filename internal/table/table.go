// Package table parses recognized table markup (HTML from layout engines,
// pipe tables from markdown OCR) into a rectangular grid of cell text.
package table

import (
	"errors"
	"strings"
)

// ErrNoTable is returned when markup contains no table rows.
var ErrNoTable = errors.New("no table in markup")

// Format tags the markup dialect.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// Table is a rectangular grid. Spanning cells are repeated into every
// position they cover so each row has Width cells.
type Table struct {
	Rows [][]string
	// Header marks rows made only of header cells (<th>, or the markdown header line).
	Header []bool
	Width  int
}

// Parse dispatches on format.
func Parse(markup string, format Format) (*Table, error) {
	switch format {
	case FormatMarkdown:
		return ParseMarkdown(markup)
	default:
		return ParseHTML(markup)
	}
}

// Detect guesses the dialect of markup: HTML when it carries a <table>
// element, markdown otherwise.
func Detect(markup string) Format {
	if strings.Contains(strings.ToLower(markup), "<table") {
		return FormatHTML
	}
	return FormatMarkdown
}

// Row returns row i with consecutive duplicates from span expansion collapsed
// and empty cells removed.
func (t *Table) Row(i int) []string {
	var out []string
	prev := ""
	for j, cell := range t.Rows[i] {
		if cell == "" {
			prev = ""
			continue
		}
		if j > 0 && cell == prev {
			continue
		}
		out = append(out, cell)
		prev = cell
	}
	return out
}

// Empty reports whether row i has no text.
func (t *Table) Empty(i int) bool {
	for _, cell := range t.Rows[i] {
		if cell != "" {
			return false
		}
	}
	return true
}

func newTable(rows [][]string, header []bool) (*Table, error) {
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	if len(rows) == 0 || width == 0 {
		return nil, ErrNoTable
	}
	for i, r := range rows {
		for len(r) < width {
			r = append(r, "")
		}
		rows[i] = r
	}
	return &Table{Rows: rows, Header: header, Width: width}, nil
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
