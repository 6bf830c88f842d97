package fieldmatch

// CorrespondenceSchema is the JSON schema for the {target: source} reply.
var CorrespondenceSchema = map[string]any{
	"type": "json_schema",
	"json_schema": map[string]any{
		"name":   "field_correspondence",
		"strict": false,
		"schema": map[string]any{
			"type":                 "object",
			"additionalProperties": map[string]any{"type": "string"},
		},
	},
}
