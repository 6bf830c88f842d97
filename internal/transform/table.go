package transform

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/jackzampolin/formshelf/internal/reconcile"
	"github.com/jackzampolin/formshelf/internal/record"
	"github.com/jackzampolin/formshelf/internal/table"
)

// Summary rows close the line items. CJK markers match anywhere in the
// cell ("价税合计"); word markers only as a leading whole word, so "Total:"
// counts and "Consumables" does not.
var (
	cjkTotalKeywords  = []string{"合计", "总计", "小计", "共计"}
	wordTotalKeywords = []string{"grand total", "sub total", "subtotal", "total", "sum"}
)

// minHeaderScore is the lowest score a row needs to be taken as the item header.
const minHeaderScore = 2

// TableConfig configures a TableTransformer.
type TableConfig struct {
	// Reconciler renames extracted names onto the target lists. Nil uses
	// the lexical reconciler built from Aliases.
	Reconciler reconcile.Reconciler
	// Aliases feed the lexical matcher that locates the item header row.
	Aliases map[string][]string
	Policy  record.Policy
	Logger  *slog.Logger
}

// TableTransformer parses markup directly. Rows are classified as key/value
// header rows, the item header, item rows and total rows; only field naming
// goes through the reconciler.
type TableTransformer struct {
	reconciler reconcile.Reconciler
	detector   *reconcile.LexicalReconciler
	policy     record.Policy
	logger     *slog.Logger
}

// NewTableTransformer creates a deterministic transformer.
func NewTableTransformer(cfg TableConfig) *TableTransformer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	detector := reconcile.NewLexicalReconciler(cfg.Aliases)
	var rec reconcile.Reconciler = detector
	if cfg.Reconciler != nil {
		rec = cfg.Reconciler
	}
	policy := cfg.Policy
	if policy == "" {
		policy = record.PolicyDrop
	}
	return &TableTransformer{
		reconciler: rec,
		detector:   detector,
		policy:     policy,
		logger:     logger,
	}
}

// layout is the row classification of one table.
type layout struct {
	header int // item header row, -1 when the table has no items
	items  []int
	totals []int
	main   []int
}

// Transform implements Transformer.
func (t *TableTransformer) Transform(ctx context.Context, markup string, mainFields, childFields []string) (*record.Result, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, ErrEmptyMarkup
	}
	tbl, err := table.Parse(markup, table.Detect(markup))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResult, err)
	}

	lay := t.classify(ctx, tbl, mainFields, childFields)
	cols := columns(tbl, lay.header)

	main := newPairs()
	for _, i := range lay.main {
		main.addRow(tbl.Row(i))
	}
	for _, i := range lay.totals {
		main.addTotal(tbl, i, cols)
	}

	var children []record.Record
	for _, i := range lay.items {
		row := make(record.Record)
		for _, c := range cols {
			if v := tbl.Rows[i][c.index]; v != "" {
				row[c.name] = v
			}
		}
		if len(row) > 0 {
			children = append(children, row)
		}
	}

	t.logger.Debug("classified table",
		"rows", len(tbl.Rows),
		"header", lay.header,
		"items", len(lay.items),
		"totals", len(lay.totals),
		"main_fields", len(main.names))

	mainCorr, err := t.reconciler.Reconcile(ctx, main.names, mainFields)
	if err != nil {
		return nil, fmt.Errorf("failed to match main fields: %w", err)
	}
	res := &record.Result{
		Main: record.CoerceValues(mainCorr.Filter(main.names, mainFields).Apply(main.rec)),
	}

	if len(children) > 0 {
		names := make([]string, len(cols))
		for i, c := range cols {
			names[i] = c.name
		}
		childCorr, err := t.reconciler.Reconcile(ctx, names, childFields)
		if err != nil {
			return nil, fmt.Errorf("failed to match child fields: %w", err)
		}
		childCorr = childCorr.Filter(names, childFields)
		for _, row := range children {
			res.Children = append(res.Children, record.CoerceValues(childCorr.Apply(row)))
		}
	}

	return conform(res, mainFields, childFields, t.policy)
}

// classify splits rows into main, item and total rows. Items run from the
// item header until a total row, a blank gap after items, or a row that
// reads as a main field.
func (t *TableTransformer) classify(ctx context.Context, tbl *table.Table, mainFields, childFields []string) layout {
	lay := layout{header: -1}
	if len(childFields) > 0 {
		lay.header = t.findHeader(ctx, tbl, childFields)
	}
	if lay.header < 0 {
		for i := range tbl.Rows {
			if !tbl.Empty(i) {
				lay.main = append(lay.main, i)
			}
		}
		return lay
	}

	for i := 0; i < lay.header; i++ {
		if !tbl.Empty(i) {
			lay.main = append(lay.main, i)
		}
	}

	cols := columns(tbl, lay.header)
	need := (len(cols) + 1) / 2
	if need < 2 {
		need = 2
	}
	inItems := true
	for i := lay.header + 1; i < len(tbl.Rows); i++ {
		switch {
		case tbl.Empty(i):
			if len(lay.items) > 0 {
				inItems = false
			}
		case isTotalRow(tbl.Row(i)):
			lay.totals = append(lay.totals, i)
			inItems = false
		case inItems && t.mainLabel(ctx, tbl.Row(i)[0], mainFields):
			inItems = false
			lay.main = append(lay.main, i)
		case inItems && (len(tbl.Row(i)) >= need || sparseItem(tbl, i, cols)):
			lay.items = append(lay.items, i)
		default:
			inItems = false
			lay.main = append(lay.main, i)
		}
	}
	return lay
}

// findHeader scores each row as a candidate item header: two points per
// cell matching a child field, one for a header-only row, one when the
// next row has numbers under its labels. Rows holding numbers never qualify.
func (t *TableTransformer) findHeader(ctx context.Context, tbl *table.Table, childFields []string) int {
	best, bestScore := -1, minHeaderScore-1
	for i := range tbl.Rows {
		cells := tbl.Row(i)
		if len(cells) == 0 || hasNumber(cells) || isTotalRow(cells) {
			continue
		}
		matched, _ := t.detector.Reconcile(ctx, cells, childFields)
		score := 2 * len(matched)
		if len(tbl.Header) > i && tbl.Header[i] && len(cells) >= 2 {
			score++
		}
		if columnar(tbl, i) {
			score++
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

// columnar reports whether the next non-empty row has a number under a
// text cell of row i.
func columnar(tbl *table.Table, i int) bool {
	j := i + 1
	for j < len(tbl.Rows) && tbl.Empty(j) {
		j++
	}
	if j >= len(tbl.Rows) {
		return false
	}
	for c := 0; c < tbl.Width; c++ {
		label, below := tbl.Rows[i][c], tbl.Rows[j][c]
		if label == "" || below == "" {
			continue
		}
		if _, ok := record.CoerceNumber(below); ok {
			return true
		}
	}
	return false
}

type column struct {
	index int
	name  string
}

// columns returns the named columns of the header row, skipping blanks and
// repeated names from spanning cells.
func columns(tbl *table.Table, header int) []column {
	if header < 0 {
		return nil
	}
	var cols []column
	seen := make(map[string]bool)
	for c, name := range tbl.Rows[header] {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		cols = append(cols, column{index: c, name: name})
	}
	return cols
}

func hasNumber(cells []string) bool {
	for _, c := range cells {
		if _, ok := record.CoerceNumber(c); ok {
			return true
		}
	}
	return false
}

// mainLabel reports whether a row's first cell names a main field.
func (t *TableTransformer) mainLabel(ctx context.Context, label string, mainFields []string) bool {
	if len(mainFields) == 0 {
		return false
	}
	matched, _ := t.detector.Reconcile(ctx, []string{label}, mainFields)
	return len(matched) > 0
}

// sparseItem reports whether row i is an item with blank cells: its first
// item column is filled, every value sits under a named column, and no
// cell is a "key: value" pair.
func sparseItem(tbl *table.Table, i int, cols []column) bool {
	if len(cols) == 0 || tbl.Rows[i][cols[0].index] == "" {
		return false
	}
	named := make(map[int]bool, len(cols))
	for _, c := range cols {
		named[c.index] = true
	}
	for c, v := range tbl.Rows[i] {
		if v == "" {
			continue
		}
		if !named[c] || isKV(v) {
			return false
		}
	}
	return true
}

func isTotalRow(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	return totalKeyword(cells[0])
}

func totalKeyword(cell string) bool {
	folded := strings.Join(strings.Fields(strings.ToLower(norm.NFKC.String(cell))), " ")
	compact := strings.ReplaceAll(folded, " ", "")
	for _, kw := range cjkTotalKeywords {
		if strings.Contains(compact, kw) {
			return true
		}
	}
	for _, kw := range wordTotalKeywords {
		rest, ok := strings.CutPrefix(folded, kw)
		if !ok {
			continue
		}
		if r, _ := utf8.DecodeRuneInString(rest); rest == "" || !unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// pairs collects main fields in the order they are found.
type pairs struct {
	names   []string
	rec     record.Record
	unnamed int
}

func newPairs() *pairs {
	return &pairs{rec: make(record.Record)}
}

func (p *pairs) add(name, value string) {
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	if name == "" || value == "" {
		return
	}
	if _, dup := p.rec[name]; dup {
		return
	}
	p.names = append(p.names, name)
	p.rec[name] = value
}

// addUnnamed stores a value that has no label under a synthesized name.
func (p *pairs) addUnnamed(value string) {
	p.unnamed++
	p.add("field_"+strconv.Itoa(p.unnamed), value)
}

// addRow pairs a key/value row. "key: value" cells split on the colon,
// otherwise cells pair up left to right and a trailing odd cell is unnamed.
func (p *pairs) addRow(cells []string) {
	for k := 0; k < len(cells); k++ {
		if key, val, ok := splitKV(cells[k]); ok {
			if val == "" && k+1 < len(cells) && !isKV(cells[k+1]) {
				val = cells[k+1]
				k++
			}
			p.add(key, val)
			continue
		}
		if k+1 < len(cells) && !isKV(cells[k+1]) {
			p.add(cells[k], cells[k+1])
			k++
			continue
		}
		p.addUnnamed(cells[k])
	}
}

// addTotal reads a summary row. A single value is named after the keyword
// cell, several values after the keyword plus their column.
func (p *pairs) addTotal(tbl *table.Table, i int, cols []column) {
	cells := tbl.Row(i)
	for _, c := range cells {
		if isKV(c) {
			p.addRow(cells)
			return
		}
	}

	raw := tbl.Rows[i]
	kwCol := -1
	for c, v := range raw {
		if totalKeyword(v) {
			kwCol = c
			break
		}
	}
	if kwCol < 0 {
		p.addRow(cells)
		return
	}
	keyword := raw[kwCol]

	type value struct {
		col  int
		text string
	}
	var values []value
	for c, v := range raw {
		if v == "" || v == keyword {
			continue
		}
		values = append(values, value{c, v})
	}

	if len(values) == 1 {
		p.add(keyword, values[0].text)
		return
	}
	for _, v := range values {
		name := ""
		for _, col := range cols {
			if col.index == v.col {
				name = col.name
			}
		}
		if name == "" {
			p.addUnnamed(v.text)
			continue
		}
		p.add(keyword+name, v.text)
	}
}

func isKV(cell string) bool {
	_, _, ok := splitKV(cell)
	return ok
}

// splitKV splits "key: value" or "key：value". Clock times and ratios are
// not keys.
func splitKV(cell string) (key, value string, ok bool) {
	idx := strings.IndexAny(cell, ":：")
	if idx <= 0 {
		return "", "", false
	}
	key = strings.TrimSpace(cell[:idx])
	if key == "" {
		return "", "", false
	}
	if strings.IndexFunc(key, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		return "", "", false
	}
	sepLen := len(":")
	if strings.HasPrefix(cell[idx:], "：") {
		sepLen = len("：")
	}
	return key, strings.TrimSpace(cell[idx+sepLen:]), true
}

var _ Transformer = (*TableTransformer)(nil)
