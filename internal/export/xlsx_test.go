package export

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/jackzampolin/formshelf/internal/fields"
	"github.com/jackzampolin/formshelf/internal/record"
)

func openRows(t *testing.T, data []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("GetRows(%s) error = %v", sheet, err)
	}
	return rows
}

func TestExporter_XLSX(t *testing.T) {
	res := &record.Result{
		Main: record.Record{"客户名称": "华东贸易", "合计": 120.0, "备注": "急"},
		Children: []record.Record{
			{"品名": "螺丝", "数量": 100.0},
			{"品名": "螺母", "金额": 60.0},
		},
	}
	schema := fields.Schema{
		Main:     fields.List{"客户名称", "日期", "合计"},
		Children: fields.List{"品名", "数量", "金额"},
	}

	data, err := NewExporter(nil).XLSX(res, schema)
	if err != nil {
		t.Fatalf("XLSX() error = %v", err)
	}

	t.Run("main sheet in schema order", func(t *testing.T) {
		rows := openRows(t, data, MainSheet)
		want := [][]string{
			{"Field", "Value"},
			{"客户名称", "华东贸易"},
			{"日期"},
			{"合计", "120"},
			{"备注", "急"},
		}
		if !reflect.DeepEqual(rows, want) {
			t.Errorf("rows = %q, want %q", rows, want)
		}
	})

	t.Run("items sheet", func(t *testing.T) {
		rows := openRows(t, data, ItemsSheet)
		want := [][]string{
			{"品名", "数量", "金额"},
			{"螺丝", "100"},
			{"螺母", "", "60"},
		}
		if !reflect.DeepEqual(rows, want) {
			t.Errorf("rows = %q, want %q", rows, want)
		}
	})
}

func TestExporter_XLSX_NoChildren(t *testing.T) {
	res := &record.Result{Main: record.Record{"日期": "2024-03-18"}}
	data, err := NewExporter(nil).XLSX(res, fields.Schema{Main: fields.List{"日期"}})
	if err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if got := f.GetSheetList(); !reflect.DeepEqual(got, []string{MainSheet}) {
		t.Errorf("sheets = %v", got)
	}
}

func TestExporter_XLSX_NilResult(t *testing.T) {
	if _, err := NewExporter(nil).XLSX(nil, fields.Schema{}); err == nil {
		t.Error("expected error for nil result")
	}
}

func TestColumns(t *testing.T) {
	got := columns(fields.List{"b", "a"}, []string{"a", "c", "b", "d"})
	want := []string{"b", "a", "c", "d"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("columns() = %v, want %v", got, want)
	}
}
