// Package tabletojson holds the prompt that turns recognized table markup
// into a normalized main/children record.
package tabletojson

import (
	_ "embed"

	"github.com/jackzampolin/formshelf/internal/prompts"
)

//go:embed user.tmpl
var userPromptTmpl string

// UserPromptKey is the resolver key for the user prompt.
const UserPromptKey = "transform.table_to_json.user"

// Data is the template input. Field lists are pre-joined with commas.
// Format names the markup dialect ("html" or "markdown"); empty reads as html.
type Data struct {
	Markup      string
	Format      string
	MainFields  string
	ChildFields string
}

// UserPrompt renders the prompt through the resolver so config overrides apply.
func UserPrompt(r *prompts.Resolver, data Data) (string, error) {
	return r.Render(UserPromptKey, data)
}

// RegisterPrompts registers the table-to-json prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Converts table markup into {main, children} JSON renamed onto the target field lists",
	})
}
