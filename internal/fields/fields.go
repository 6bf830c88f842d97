// Package fields parses and holds the operator's target field vocabulary:
// the main-table and child-table field names of a CRM object.
package fields

import (
	"errors"
	"strings"
)

// ErrEmptySchema is returned when neither list names a field.
var ErrEmptySchema = errors.New("no target fields given")

// List is an ordered list of target field names. Uniqueness is not enforced.
type List []string

// Parse splits operator input on ASCII and full-width commas, semicolons and
// whitespace. Empty tokens are dropped.
func Parse(input string) List {
	tokens := strings.FieldsFunc(input, isSeparator)
	if len(tokens) == 0 {
		return nil
	}
	return List(tokens)
}

func isSeparator(r rune) bool {
	switch r {
	case ',', ';', ' ', '\t', '\n', '\r', '，', '；', '　':
		return true
	}
	return false
}

// Contains reports whether name is in the list.
func (l List) Contains(name string) bool {
	for _, f := range l {
		if f == name {
			return true
		}
	}
	return false
}

// Join renders the list for prompt interpolation.
func (l List) Join(sep string) string {
	return strings.Join(l, sep)
}

// Strings returns the list as a plain slice.
func (l List) Strings() []string {
	return []string(l)
}

// Schema pairs the main and child target lists of one CRM object.
type Schema struct {
	Main     List `json:"main" yaml:"main"`
	Children List `json:"children" yaml:"children"`
}

// ParseSchema builds a schema from the two raw operator inputs.
func ParseSchema(mainInput, childInput string) Schema {
	return Schema{Main: Parse(mainInput), Children: Parse(childInput)}
}

// Validate requires at least one target field.
func (s Schema) Validate() error {
	if len(s.Main) == 0 && len(s.Children) == 0 {
		return ErrEmptySchema
	}
	return nil
}

// Clone returns a deep copy so callers can't mutate a shared schema.
func (s Schema) Clone() Schema {
	return Schema{
		Main:     append(List(nil), s.Main...),
		Children: append(List(nil), s.Children...),
	}
}
