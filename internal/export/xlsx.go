// Package export renders normalized results as spreadsheets.
package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jackzampolin/formshelf/internal/fields"
	"github.com/jackzampolin/formshelf/internal/record"
)

// Sheet names in exported workbooks.
const (
	MainSheet  = "Main"
	ItemsSheet = "Items"
)

// ContentType is the MIME type of exported workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Exporter produces XLSX workbooks.
type Exporter struct {
	logger *slog.Logger
}

// NewExporter creates an Exporter.
func NewExporter(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{logger: logger}
}

// XLSX returns a workbook for res. The Main sheet lists field/value pairs
// in schema order; the Items sheet has one column per child field and one
// row per child. Fields absent from a record are left blank. Fields in res
// but not in the schema are appended after the schema columns.
func (e *Exporter) XLSX(res *record.Result, schema fields.Schema) ([]byte, error) {
	if res == nil {
		return nil, fmt.Errorf("no result to export")
	}
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", MainSheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	mainNames, childNames := res.FieldNames()
	mainCols := columns(schema.Main, mainNames)

	if err := f.SetSheetRow(MainSheet, "A1", &[]any{"Field", "Value"}); err != nil {
		return nil, fmt.Errorf("xlsx header: %w", err)
	}
	row := 2
	for _, name := range mainCols {
		v, ok := res.Main[name]
		if !ok {
			v = ""
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(MainSheet, cell, &[]any{name, v}); err != nil {
			return nil, fmt.Errorf("xlsx main row: %w", err)
		}
		row++
	}
	_ = f.SetColWidth(MainSheet, "A", "A", 20)
	_ = f.SetColWidth(MainSheet, "B", "B", 36)

	childCols := columns(schema.Children, childNames)
	if len(childCols) > 0 {
		if _, err := f.NewSheet(ItemsSheet); err != nil {
			return nil, fmt.Errorf("xlsx sheet: %w", err)
		}
		header := make([]any, len(childCols))
		for i, name := range childCols {
			header[i] = name
		}
		if err := f.SetSheetRow(ItemsSheet, "A1", &header); err != nil {
			return nil, fmt.Errorf("xlsx header: %w", err)
		}
		for i, child := range res.Children {
			values := make([]any, len(childCols))
			for j, name := range childCols {
				if v, ok := child[name]; ok {
					values[j] = v
				}
			}
			cell, _ := excelize.CoordinatesToCellName(1, i+2)
			if err := f.SetSheetRow(ItemsSheet, cell, &values); err != nil {
				return nil, fmt.Errorf("xlsx item row: %w", err)
			}
		}
		last, _ := excelize.ColumnNumberToName(len(childCols))
		_ = f.SetColWidth(ItemsSheet, "A", last, 16)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	e.logger.Info("export.xlsx.ok",
		"main_fields", len(mainCols),
		"children", len(res.Children),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// columns returns the schema names followed by any extra names, each once.
func columns(schema fields.List, present []string) []string {
	seen := make(map[string]struct{}, len(schema)+len(present))
	var out []string
	for _, lists := range [][]string{schema, present} {
		for _, name := range lists {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
