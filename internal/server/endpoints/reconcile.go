package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/formshelf/internal/api"
	"github.com/jackzampolin/formshelf/internal/fields"
	"github.com/jackzampolin/formshelf/internal/reconcile"
	"github.com/jackzampolin/formshelf/internal/svcctx"
)

// ReconcileRequest is the body of POST /api/reconcile.
type ReconcileRequest struct {
	Source []string `json:"source"`
	Target []string `json:"target"`
}

// ReconcileResponse maps each matched target field to its source field.
type ReconcileResponse struct {
	Correspondence   reconcile.Correspondence `json:"correspondence"`
	UnmatchedSources []string                 `json:"unmatched_sources"`
	UnmatchedTargets []string                 `json:"unmatched_targets"`
}

// ReconcileEndpoint handles POST /api/reconcile.
type ReconcileEndpoint struct{}

var _ api.Endpoint = (*ReconcileEndpoint)(nil)

func (e *ReconcileEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/reconcile", e.handler
}

func (e *ReconcileEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Reconcile field names
//	@Description	Maps target field names onto source field names with the configured reconciler.
//	@Tags			reconcile
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ReconcileRequest	true	"Source and target names"
//	@Success		200		{object}	ReconcileResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/reconcile [post]
func (e *ReconcileEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req ReconcileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	source, target := clean(req.Source), clean(req.Target)
	if len(target) == 0 {
		writeError(w, http.StatusBadRequest, "target is required")
		return
	}

	p, err := svcctx.PipelinesFrom(r.Context()).Get()
	if err != nil {
		writeFailure(w, err)
		return
	}
	corr, err := p.Reconciler.Reconcile(r.Context(), source, target)
	if err != nil {
		writeFailure(w, err)
		return
	}
	us, ut := corr.Unmatched(source, target)
	writeJSON(w, http.StatusOK, ReconcileResponse{
		Correspondence:   corr,
		UnmatchedSources: nonNil(us),
		UnmatchedTargets: nonNil(ut),
	})
}

func (e *ReconcileEndpoint) Command(getServerURL func() string) *cobra.Command {
	var source, target string
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Map target field names onto source field names",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ReconcileResponse
			err := client.Post(cmd.Context(), "/api/reconcile", ReconcileRequest{
				Source: fields.Parse(source),
				Target: fields.Parse(target),
			}, &resp)
			if err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Extracted field names")
	cmd.Flags().StringVar(&target, "target", "", "Target field names")
	cmd.MarkFlagRequired("target")
	return cmd
}

// decodeBody decodes a JSON request body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
