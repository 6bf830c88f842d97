// Package record defines the normalized form record produced by the pipeline:
// a main record of header/summary fields plus an optional set of child rows.
package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformed is the base class for model output that is not a valid
// record or correspondence. Package-level sentinels wrap it.
var ErrMalformed = errors.New("malformed model output")

// Record maps field names to scalar values (string or float64).
type Record map[string]any

// Result is the normalized output of a transform: {"main": {...}, "children": [...]}.
// Children is omitted from JSON when empty.
type Result struct {
	Main     Record   `json:"main"`
	Children []Record `json:"children,omitempty"`
}

// HasChildren reports whether the result carries any child rows.
func (r *Result) HasChildren() bool {
	return r != nil && len(r.Children) > 0
}

// FieldNames returns the main keys and the union of child keys, each sorted.
func (r *Result) FieldNames() (main []string, children []string) {
	if r == nil {
		return nil, nil
	}
	main = make([]string, 0, len(r.Main))
	for k := range r.Main {
		main = append(main, k)
	}
	sort.Strings(main)

	seen := make(map[string]struct{})
	for _, row := range r.Children {
		for k := range row {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			children = append(children, k)
		}
	}
	sort.Strings(children)
	return main, children
}

// Pretty renders the result as indented JSON without escaping non-ASCII text.
func (r *Result) Pretty() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode parses a JSON document into a Result. Numbers are decoded as
// float64. A missing or non-object "main" is malformed; "children" may be
// absent, null, or an array of objects.
func Decode(raw []byte) (*Result, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	mainRaw, ok := doc["main"]
	if !ok {
		return nil, fmt.Errorf("%w: missing main", ErrMalformed)
	}
	mainObj, ok := mainRaw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: main is not an object", ErrMalformed)
	}

	res := &Result{Main: normalizeRecord(mainObj)}

	switch children := doc["children"].(type) {
	case nil:
	case []any:
		for i, item := range children {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: children[%d] is not an object", ErrMalformed, i)
			}
			res.Children = append(res.Children, normalizeRecord(obj))
		}
	default:
		return nil, fmt.Errorf("%w: children is not an array", ErrMalformed)
	}

	return res, nil
}

func normalizeRecord(obj map[string]any) Record {
	rec := make(Record, len(obj))
	for k, v := range obj {
		rec[k] = normalizeValue(v)
	}
	return rec
}

// normalizeValue converts decoded JSON values onto the record value domain.
// Nested values are kept as compact JSON text; nulls stay nil so Conform can drop them.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case float64:
		return val
	case int:
		return float64(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
