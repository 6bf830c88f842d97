package endpoints

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/formshelf/internal/api"
	"github.com/jackzampolin/formshelf/web"
)

// StaticEndpoint serves the embedded operator page. Page routes the
// browser owns fall back to index.html; unknown /api paths get a JSON 404.
type StaticEndpoint struct{}

var _ api.Endpoint = (*StaticEndpoint)(nil)

func (e *StaticEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/{path...}", e.handler
}

func (e *StaticEndpoint) RequiresInit() bool { return false }

// Command returns nil: the page has no CLI form.
func (e *StaticEndpoint) Command(_ func() string) *cobra.Command { return nil }

func (e *StaticEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("path")
	if name == "api" || strings.HasPrefix(name, "api/") {
		writeError(w, http.StatusNotFound, "no such endpoint: "+r.URL.Path)
		return
	}

	dist, err := web.DistFS()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "operator page not embedded")
		return
	}
	if name == "" {
		name = "index.html"
	}
	if info, err := fs.Stat(dist, name); err != nil || info.IsDir() {
		name = "index.html"
	}
	http.ServeFileFS(w, r, dist, name)
}
