package endpoints

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/formshelf/internal/api"
	"github.com/jackzampolin/formshelf/internal/fields"
	"github.com/jackzampolin/formshelf/internal/recognize"
	"github.com/jackzampolin/formshelf/internal/record"
	"github.com/jackzampolin/formshelf/internal/session"
	"github.com/jackzampolin/formshelf/internal/svcctx"
)

// maxUploadSize bounds one form picture.
const maxUploadSize = 32 << 20

// RecognizeEndpoint handles POST /api/forms/recognize.
type RecognizeEndpoint struct{}

var _ api.Endpoint = (*RecognizeEndpoint)(nil)

func (e *RecognizeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/forms/recognize", e.handler
}

func (e *RecognizeEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Recognize a form picture
//	@Description	Runs recognition, transformation and optional reconciliation on one upload. The session replaces the previous one in its workspace.
//	@Tags			forms
//	@Accept			mpfd
//	@Produce		json
//	@Param			image			formData	file	true	"Form picture (jpg, jpeg or png)"
//	@Param			main_fields		formData	string	false	"Main table fields, separated by , ; or spaces"
//	@Param			child_fields	formData	string	false	"Item fields, separated by , ; or spaces"
//	@Param			workspace		formData	string	false	"Operator workspace (default: default)"
//	@Param			annotate		formData	bool	false	"Stage the upload and annotated picture"
//	@Param			reconcile		formData	bool	false	"Map extracted names onto the target fields"
//	@Success		200				{object}	session.Session
//	@Failure		400				{object}	ErrorResponse
//	@Failure		415				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Failure		503				{object}	ErrorResponse
//	@Router			/api/forms/recognize [post]
func (e *RecognizeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, fh, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no image uploaded")
		return
	}
	data, err := io.ReadAll(file)
	file.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read upload: %v", err))
		return
	}

	holder := svcctx.PipelinesFrom(r.Context())
	p, err := holder.Get()
	if err != nil {
		writeFailure(w, err)
		return
	}

	annotate := p.Annotate
	if v := r.FormValue("annotate"); v != "" {
		if annotate, err = strconv.ParseBool(v); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid annotate value %q", v))
			return
		}
	}
	var reconcile bool
	if v := r.FormValue("reconcile"); v != "" {
		if reconcile, err = strconv.ParseBool(v); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid reconcile value %q", v))
			return
		}
	}

	workspace := strings.TrimSpace(r.FormValue("workspace"))
	if workspace == "" {
		workspace = session.DefaultWorkspace
	}
	schema := resolveSchema(r, workspace, r.FormValue("main_fields"), r.FormValue("child_fields"))

	sess, err := p.Orchestrator.Run(r.Context(), session.Request{
		Workspace: workspace,
		Image:     recognize.Image{Name: filepath.Base(fh.Filename), Data: data},
		Schema:    schema,
		Annotate:  annotate,
		Reconcile: reconcile,
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// resolveSchema parses the submitted lists and remembers them for the
// workspace. With both lists empty the workspace's last schema is reused.
func resolveSchema(r *http.Request, workspace, mainInput, childInput string) fields.Schema {
	schema := fields.ParseSchema(mainInput, childInput)
	schemas := svcctx.SchemasFrom(r.Context())
	if schemas == nil {
		return schema
	}
	if len(schema.Main) == 0 && len(schema.Children) == 0 {
		if prev, ok := schemas.Get(workspace); ok {
			return prev
		}
		return schema
	}
	schemas.Set(workspace, schema)
	return schema
}

func (e *RecognizeEndpoint) Command(getServerURL func() string) *cobra.Command {
	var mainFields, childFields, workspace string
	var annotate, reconcile bool
	cmd := &cobra.Command{
		Use:   "recognize <image>",
		Short: "Upload a form picture for recognition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			values := map[string]string{
				"main_fields":  mainFields,
				"child_fields": childFields,
				"workspace":    workspace,
				"reconcile":    strconv.FormatBool(reconcile),
			}
			if cmd.Flags().Changed("annotate") {
				values["annotate"] = strconv.FormatBool(annotate)
			}
			client := api.NewClient(getServerURL())
			var sess session.Session
			err = client.PostMultipart(cmd.Context(), "/api/forms/recognize", values,
				api.Upload{Field: "image", Filename: filepath.Base(args[0]), Data: data}, &sess)
			if err != nil {
				return err
			}
			return api.Output(sess)
		},
	}
	cmd.Flags().StringVar(&mainFields, "main", "", "Main table fields (e.g. 客户名称,日期)")
	cmd.Flags().StringVar(&childFields, "child", "", "Item fields (e.g. 品名,数量,单价)")
	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace name")
	cmd.Flags().BoolVar(&annotate, "annotate", true, "Stage the upload and annotated picture")
	cmd.Flags().BoolVar(&reconcile, "reconcile", false, "Reconcile extracted names onto the target fields")
	return cmd
}

// TransformRequest is the body of POST /api/forms/transform.
type TransformRequest struct {
	Markup      string   `json:"markup"`
	MainFields  []string `json:"main_fields"`
	ChildFields []string `json:"child_fields"`
}

// TransformEndpoint handles POST /api/forms/transform.
type TransformEndpoint struct{}

var _ api.Endpoint = (*TransformEndpoint)(nil)

func (e *TransformEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/forms/transform", e.handler
}

func (e *TransformEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Transform table markup
//	@Description	Turns already recognized table markup into a normalized result without recognition or staging.
//	@Tags			forms
//	@Accept			json
//	@Produce		json
//	@Param			request	body		TransformRequest	true	"Markup and target fields"
//	@Success		200		{object}	record.Result
//	@Failure		400		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/forms/transform [post]
func (e *TransformEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req TransformRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Markup) == "" {
		writeError(w, http.StatusBadRequest, "markup is required")
		return
	}
	schema := fields.Schema{Main: clean(req.MainFields), Children: clean(req.ChildFields)}
	if err := schema.Validate(); err != nil {
		writeFailure(w, err)
		return
	}

	p, err := svcctx.PipelinesFrom(r.Context()).Get()
	if err != nil {
		writeFailure(w, err)
		return
	}
	res, err := p.Transformer.Transform(r.Context(), req.Markup, schema.Main, schema.Children)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (e *TransformEndpoint) Command(getServerURL func() string) *cobra.Command {
	var mainFields, childFields string
	cmd := &cobra.Command{
		Use:   "transform <markup-file>",
		Short: "Transform recognized table markup (use - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			markup, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			client := api.NewClient(getServerURL())
			var res record.Result
			err = client.Post(cmd.Context(), "/api/forms/transform", TransformRequest{
				Markup:      string(markup),
				MainFields:  fields.Parse(mainFields),
				ChildFields: fields.Parse(childFields),
			}, &res)
			if err != nil {
				return err
			}
			return api.Output(res)
		},
	}
	cmd.Flags().StringVar(&mainFields, "main", "", "Main table fields")
	cmd.Flags().StringVar(&childFields, "child", "", "Item fields")
	return cmd
}

// readInput reads a file, or stdin when name is "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}

// clean trims names and drops empty ones.
func clean(names []string) fields.List {
	out := make(fields.List, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
