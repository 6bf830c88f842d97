// Package fieldmatch holds the prompt that pairs source field names with
// target field names by meaning.
package fieldmatch

import (
	_ "embed"

	"github.com/jackzampolin/formshelf/internal/prompts"
)

//go:embed user.tmpl
var userPromptTmpl string

// UserPromptKey is the resolver key for the user prompt.
const UserPromptKey = "reconcile.field_match.user"

// Data is the template input. Lists are pre-joined with commas.
type Data struct {
	Source string
	Target string
}

// UserPrompt renders the prompt through the resolver.
func UserPrompt(r *prompts.Resolver, data Data) (string, error) {
	return r.Render(UserPromptKey, data)
}

// RegisterPrompts registers the field matching prompt with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Maps source field names onto target field names, reply {target: source}",
	})
}
