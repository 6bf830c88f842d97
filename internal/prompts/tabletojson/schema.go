package tabletojson

// scalar is a record value: text or number.
var scalar = map[string]any{
	"type": []string{"string", "number", "null"},
}

// ResultSchema is the JSON schema for the normalized record output.
var ResultSchema = map[string]any{
	"type": "json_schema",
	"json_schema": map[string]any{
		"name":   "form_record",
		"strict": false,
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"main": map[string]any{
					"type":                 "object",
					"description":          "Header and summary fields keyed by target main field name",
					"additionalProperties": scalar,
				},
				"children": map[string]any{
					"type":        "array",
					"description": "Line items keyed by target child field name; omit when there are none",
					"items": map[string]any{
						"type":                 "object",
						"additionalProperties": scalar,
					},
				},
			},
			"required": []string{"main"},
		},
	},
}
