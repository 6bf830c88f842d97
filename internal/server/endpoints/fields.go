package endpoints

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/formshelf/internal/api"
	"github.com/jackzampolin/formshelf/internal/fields"
	"github.com/jackzampolin/formshelf/internal/svcctx"
)

// FieldsResponse echoes a parsed schema.
type FieldsResponse struct {
	Workspace string   `json:"workspace,omitempty"`
	Main      []string `json:"main"`
	Children  []string `json:"children"`
}

func fieldsResponse(workspace string, s fields.Schema) FieldsResponse {
	return FieldsResponse{
		Workspace: workspace,
		Main:      nonNil(s.Main),
		Children:  nonNil(s.Children),
	}
}

// ParseFieldsEndpoint handles GET /api/fields/parse.
type ParseFieldsEndpoint struct{}

func (e *ParseFieldsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/fields/parse", e.handler
}

func (e *ParseFieldsEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Parse field lists
//	@Description	Splits main and item field inputs the way uploads do, so the operator can check them first.
//	@Tags			fields
//	@Produce		json
//	@Param			main	query		string	false	"Main table fields"
//	@Param			child	query		string	false	"Item fields"
//	@Success		200		{object}	FieldsResponse
//	@Router			/api/fields/parse [get]
func (e *ParseFieldsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, fieldsResponse("", fields.ParseSchema(q.Get("main"), q.Get("child"))))
}

func (e *ParseFieldsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var mainFields, childFields string
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Show how field lists are split",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("main", mainFields)
			q.Set("child", childFields)
			var resp FieldsResponse
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), "/api/fields/parse?"+q.Encode(), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&mainFields, "main", "", "Main table fields")
	cmd.Flags().StringVar(&childFields, "child", "", "Item fields")
	return cmd
}

func (e *ParseFieldsEndpoint) Group() (string, string) { return "fields", "Field list commands" }

// GetFieldsEndpoint handles GET /api/fields/{workspace}.
type GetFieldsEndpoint struct{}

func (e *GetFieldsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/fields/{workspace}", e.handler
}

func (e *GetFieldsEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Get a workspace's field lists
//	@Tags		fields
//	@Produce	json
//	@Param		workspace	path		string	true	"Workspace name"
//	@Success	200			{object}	FieldsResponse
//	@Failure	404			{object}	ErrorResponse
//	@Router		/api/fields/{workspace} [get]
func (e *GetFieldsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	workspace := r.PathValue("workspace")
	schemas := svcctx.SchemasFrom(r.Context())
	if schemas == nil {
		writeError(w, http.StatusServiceUnavailable, "schema registry not initialized")
		return
	}
	s, ok := schemas.Get(workspace)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no fields set for workspace %q", workspace))
		return
	}
	writeJSON(w, http.StatusOK, fieldsResponse(workspace, s))
}

func (e *GetFieldsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get [workspace]",
		Short: "Show the field lists last used in a workspace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp FieldsResponse
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), "/api/fields/"+workspaceArg(args), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

func (e *GetFieldsEndpoint) Group() (string, string) { return "fields", "Field list commands" }
