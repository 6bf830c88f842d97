package table

import (
	"regexp"
	"strings"
)

var delimiterCell = regexp.MustCompile(`^:?-{3,}:?$`)

// ParseMarkdown parses the first pipe table in markup.
func ParseMarkdown(markup string) (*Table, error) {
	blocks := MarkdownBlocks(markup)
	if len(blocks) == 0 {
		return nil, ErrNoTable
	}

	var (
		rows   [][]string
		header []bool
	)
	lines := strings.Split(blocks[0], "\n")
	for i, line := range lines {
		cells := splitPipeRow(line)
		if isDelimiterRow(cells) {
			// the line above the delimiter is the header
			if i > 0 && len(header) > 0 {
				header[len(header)-1] = true
			}
			continue
		}
		rows = append(rows, cells)
		header = append(header, false)
	}
	return newTable(rows, header)
}

// MarkdownBlocks returns each pipe-table block in a markdown document, in order.
// A block is a run of consecutive lines starting with '|' that contains a
// delimiter row.
func MarkdownBlocks(markdown string) []string {
	var (
		blocks  []string
		current []string
	)
	flush := func() {
		if len(current) >= 2 && hasDelimiter(current) {
			blocks = append(blocks, strings.Join(current, "\n"))
		}
		current = nil
	}
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "|") {
			current = append(current, trimmed)
			continue
		}
		flush()
	}
	flush()
	return blocks
}

func hasDelimiter(lines []string) bool {
	for _, l := range lines {
		if isDelimiterRow(splitPipeRow(l)) {
			return true
		}
	}
	return false
}

func splitPipeRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")

	var cells []string
	var b strings.Builder
	escaped := false
	for _, r := range line {
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '|':
			cells = append(cells, cleanText(b.String()))
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	cells = append(cells, cleanText(b.String()))
	return cells
}

func isDelimiterRow(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	for _, c := range cells {
		if !delimiterCell.MatchString(strings.ReplaceAll(c, " ", "")) {
			return false
		}
	}
	return true
}
