package tabletojson

import (
	"strings"
	"testing"

	"github.com/jackzampolin/formshelf/internal/prompts"
)

func TestUserPrompt(t *testing.T) {
	r := prompts.NewResolver(nil)
	RegisterPrompts(r)

	out, err := UserPrompt(r, Data{
		Markup:      "<table><tr><td>x</td></tr></table>",
		MainFields:  "客户,日期",
		ChildFields: "品名,数量",
	})
	if err != nil {
		t.Fatalf("UserPrompt() error = %v", err)
	}
	for _, want := range []string{
		"中的html表格",
		">>> <table><tr><td>x</td></tr></table> <<<",
		"将主表字段分别替换为客户,日期",
		"将明细字段分别替换为品名,数量",
		`{"main": {"key": "value"}, "children": [{"key": "value"},]}`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("prompt missing %q:\n%s", want, out)
		}
	}
}

func TestUserPrompt_Format(t *testing.T) {
	r := prompts.NewResolver(nil)
	RegisterPrompts(r)

	tests := []struct {
		format string
		want   string
	}{
		{"", "中的html表格"},
		{"html", "中的html表格"},
		{"markdown", "中的markdown表格"},
	}
	for _, tt := range tests {
		t.Run("format "+tt.format, func(t *testing.T) {
			out, err := UserPrompt(r, Data{Markup: "| a |", Format: tt.format})
			if err != nil {
				t.Fatalf("UserPrompt() error = %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("prompt missing %q:\n%s", tt.want, out)
			}
		})
	}
}
