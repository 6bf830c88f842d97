package record

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestDecode(t *testing.T) {
	t.Run("main and children", func(t *testing.T) {
		raw := []byte(`{"main":{"客户":" 张三 ","总金额":1200.5},"children":[{"品名":"螺丝","数量":3}]}`)
		res, err := Decode(raw)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if res.Main["客户"] != "张三" {
			t.Errorf("main 客户 = %#v, want trimmed 张三", res.Main["客户"])
		}
		if res.Main["总金额"] != 1200.5 {
			t.Errorf("main 总金额 = %#v, want 1200.5", res.Main["总金额"])
		}
		if len(res.Children) != 1 || res.Children[0]["数量"] != float64(3) {
			t.Errorf("children = %#v", res.Children)
		}
	})

	t.Run("children absent", func(t *testing.T) {
		res, err := Decode([]byte(`{"main":{"a":"b"}}`))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if res.HasChildren() {
			t.Error("expected no children")
		}
	})

	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `main: x`},
		{"missing main", `{"children":[]}`},
		{"main not object", `{"main":[1,2]}`},
		{"children not array", `{"main":{},"children":{"a":1}}`},
		{"child not object", `{"main":{},"children":["x"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Decode() error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestResult_JSONOmitsEmptyChildren(t *testing.T) {
	res := &Result{Main: Record{"客户": "张三"}}
	b, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(b), "children") {
		t.Errorf("expected no children key, got %s", b)
	}

	res.Children = []Record{}
	b, _ = json.Marshal(res)
	if strings.Contains(string(b), "children") {
		t.Errorf("expected empty children omitted, got %s", b)
	}
}

func TestResult_RoundTrip(t *testing.T) {
	orig := &Result{
		Main:     Record{"客户": "张三", "总金额": 99.0},
		Children: []Record{{"品名": "螺丝", "数量": 2.0}},
	}
	b, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	back, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !reflect.DeepEqual(orig, back) {
		t.Errorf("round trip mismatch:\n got %#v\nwant %#v", back, orig)
	}
}

func TestResult_Pretty(t *testing.T) {
	res := &Result{Main: Record{"客户": "<张三>"}}
	b, err := res.Pretty()
	if err != nil {
		t.Fatalf("Pretty() error = %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "客户") || !strings.Contains(s, "<张三>") {
		t.Errorf("Pretty() escaped text: %s", s)
	}
	if !strings.Contains(s, "\n  \"main\"") {
		t.Errorf("Pretty() not indented: %s", s)
	}
}

func TestResult_FieldNames(t *testing.T) {
	res := &Result{
		Main:     Record{"b": 1.0, "a": "x"},
		Children: []Record{{"qty": 1.0, "name": "n"}, {"name": "m", "price": 2.0}},
	}
	main, children := res.FieldNames()
	if !reflect.DeepEqual(main, []string{"a", "b"}) {
		t.Errorf("main = %v", main)
	}
	if !reflect.DeepEqual(children, []string{"name", "price", "qty"}) {
		t.Errorf("children = %v", children)
	}
}
