package providers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrNoStructuredJSON is returned when model output holds no decodable
// JSON document.
var ErrNoStructuredJSON = errors.New("no JSON document in model output")

// ParseStructuredJSON pulls one JSON document out of model output and
// returns it compacted. Chat models asked for JSON often fence it in
// ```json blocks or add a sentence before it; both are tolerated. Numbers
// keep their literal text so large amounts survive.
func ParseStructuredJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: output is empty", ErrNoStructuredJSON)
	}
	for _, candidate := range jsonCandidates(content) {
		if doc, ok := decodeDocument(candidate); ok {
			return doc, nil
		}
	}
	return nil, ErrNoStructuredJSON
}

// jsonCandidates lists the spans of content worth decoding, most literal
// first.
func jsonCandidates(content string) []string {
	out := []string{content}
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		for _, have := range out {
			if have == s {
				return
			}
		}
		out = append(out, s)
	}
	add(unfence(content))
	add(outermostSpan(content))
	return out
}

func decodeDocument(candidate string) (json.RawMessage, bool) {
	dec := json.NewDecoder(strings.NewReader(candidate))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return nil, false
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(candidate)); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}

// unfence returns the body of a ``` fenced block, or "" when content does
// not start with a fence.
func unfence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return ""
	}
	_, body, found := strings.Cut(content, "\n")
	if !found {
		return ""
	}
	body = strings.TrimSpace(body)
	return strings.TrimSpace(strings.TrimSuffix(body, "```"))
}

// outermostSpan returns content from the first { or [ to its last matching
// closer.
func outermostSpan(content string) string {
	start := strings.IndexAny(content, "{[")
	if start < 0 {
		return ""
	}
	closer := "}"
	if content[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(content, closer)
	if end < start {
		return ""
	}
	return content[start : end+1]
}

var schemaCache sync.Map // schema text -> *jsonschema.Schema

// ValidateStructuredJSON checks parsed against a response schema. The
// schema may be bare, wrapped as {"name","strict","schema"} or as
// {"type":"json_schema","json_schema":{"schema":...}}. Compiled schemas
// are cached by their text.
func ValidateStructuredJSON(schemaRaw, parsed json.RawMessage) error {
	if len(schemaRaw) == 0 || len(parsed) == 0 {
		return nil
	}
	schema, err := compiledSchema(schemaRaw)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(parsed))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode structured JSON for validation: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("structured output does not match schema: %w", err)
	}
	return nil
}

func compiledSchema(schemaRaw json.RawMessage) (*jsonschema.Schema, error) {
	key := string(schemaRaw)
	if s, ok := schemaCache.Load(key); ok {
		return s.(*jsonschema.Schema), nil
	}

	core, err := unwrapSchema(schemaRaw)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("response.json", bytes.NewReader(core)); err != nil {
		return nil, fmt.Errorf("failed to load structured schema: %w", err)
	}
	schema, err := compiler.Compile("response.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile structured schema: %w", err)
	}
	schemaCache.Store(key, schema)
	return schema, nil
}

func unwrapSchema(schemaRaw json.RawMessage) (json.RawMessage, error) {
	var wrapper struct {
		Schema     json.RawMessage `json:"schema"`
		JSONSchema *struct {
			Schema json.RawMessage `json:"schema"`
		} `json:"json_schema"`
	}
	if err := json.Unmarshal(schemaRaw, &wrapper); err != nil {
		return nil, fmt.Errorf("invalid structured schema JSON: %w", err)
	}
	switch {
	case len(wrapper.Schema) > 0:
		return wrapper.Schema, nil
	case wrapper.JSONSchema != nil && len(wrapper.JSONSchema.Schema) > 0:
		return wrapper.JSONSchema.Schema, nil
	default:
		return schemaRaw, nil
	}
}
