package table

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// maxSpan caps rowspan/colspan so malformed engine output can't blow up the grid.
const maxSpan = 64

// ParseHTML parses the first <table> in markup, expanding rowspan and colspan.
func ParseHTML(markup string) (*Table, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse table html: %w", err)
	}

	tbl := findFirst(doc, atom.Table)
	if tbl == nil {
		return nil, ErrNoTable
	}

	var (
		rows   [][]string
		header []bool
		// pending[col] carries a rowspan cell down into following rows.
		pending = map[int]spanCell{}
	)

	for _, tr := range collectRows(tbl) {
		var row []string
		allHeader := true
		col := 0

		fill := func() {
			for {
				p, ok := pending[col]
				if !ok {
					return
				}
				row = append(row, p.text)
				if p.remaining--; p.remaining <= 0 {
					delete(pending, col)
				} else {
					pending[col] = p
				}
				col++
			}
		}

		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
				continue
			}
			fill()
			if c.DataAtom != atom.Th {
				allHeader = false
			}
			text := cleanText(textContent(c))
			colspan := spanAttr(c, "colspan")
			rowspan := spanAttr(c, "rowspan")
			for k := 0; k < colspan; k++ {
				row = append(row, text)
				if rowspan > 1 {
					pending[col] = spanCell{text: text, remaining: rowspan - 1}
				}
				col++
			}
		}
		fill()

		if len(row) == 0 {
			continue
		}
		rows = append(rows, row)
		header = append(header, allHeader)
	}

	return newTable(rows, header)
}

type spanCell struct {
	text      string
	remaining int
}

func collectRows(n *html.Node) []*html.Node {
	var rows []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Tr:
				rows = append(rows, c)
			case atom.Table:
				// nested tables belong to their cell
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return rows
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func spanAttr(n *html.Node, key string) int {
	for _, a := range n.Attr {
		if a.Key != key {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(a.Val))
		if err != nil || v < 1 {
			return 1
		}
		if v > maxSpan {
			return maxSpan
		}
		return v
	}
	return 1
}

// CountHTMLTables returns the number of top-level <table> elements in markup.
func CountHTMLTables(markup string) int {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return 0
	}
	count := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Table {
			count++
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return count
}
