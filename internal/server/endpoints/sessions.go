package endpoints

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/formshelf/internal/api"
	"github.com/jackzampolin/formshelf/internal/export"
	"github.com/jackzampolin/formshelf/internal/session"
	"github.com/jackzampolin/formshelf/internal/svcctx"
)

// sessionGroup places session commands under "api session".
type sessionGroup struct{}

func (sessionGroup) Group() (string, string) {
	return "session", "Inspect the latest session per workspace"
}

// workspaceArg returns the first arg or the default workspace.
func workspaceArg(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return session.DefaultWorkspace
}

// lookupSession finds the latest session for the path workspace, writing a
// 404 when there is none.
func lookupSession(w http.ResponseWriter, r *http.Request) (session.Session, bool) {
	workspace := r.PathValue("workspace")
	store := svcctx.SessionsFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "session store not initialized")
		return session.Session{}, false
	}
	sess, ok := store.Get(workspace)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no session in workspace %q", workspace))
		return session.Session{}, false
	}
	return sess, true
}

// ListSessionsResponse lists workspaces with a stored session.
type ListSessionsResponse struct {
	Workspaces []string `json:"workspaces"`
}

// ListSessionsEndpoint handles GET /api/sessions.
type ListSessionsEndpoint struct{ sessionGroup }

func (e *ListSessionsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions", e.handler
}

func (e *ListSessionsEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	List workspaces with a session
//	@Tags		sessions
//	@Produce	json
//	@Success	200	{object}	ListSessionsResponse
//	@Router		/api/sessions [get]
func (e *ListSessionsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := ListSessionsResponse{Workspaces: []string{}}
	if store := svcctx.SessionsFrom(r.Context()); store != nil {
		resp.Workspaces = store.Workspaces()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ListSessionsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workspaces with a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp ListSessionsResponse
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), "/api/sessions", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetSessionEndpoint handles GET /api/sessions/{workspace}.
type GetSessionEndpoint struct{ sessionGroup }

func (e *GetSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{workspace}", e.handler
}

func (e *GetSessionEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Get the latest session
//	@Description	Returns the workspace's latest session with its markup, result and correspondences.
//	@Tags			sessions
//	@Produce		json
//	@Param			workspace	path		string	true	"Workspace name"
//	@Success		200			{object}	session.Session
//	@Failure		404			{object}	ErrorResponse
//	@Router			/api/sessions/{workspace} [get]
func (e *GetSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (e *GetSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get [workspace]",
		Short: "Show the latest session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var sess session.Session
			path := "/api/sessions/" + workspaceArg(args)
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), path, &sess); err != nil {
				return err
			}
			return api.Output(sess)
		},
	}
}

// AnnotatedImageEndpoint handles GET /api/sessions/{workspace}/annotated.
type AnnotatedImageEndpoint struct{ sessionGroup }

func (e *AnnotatedImageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{workspace}/annotated", e.handler
}

func (e *AnnotatedImageEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Get the annotated form picture
//	@Tags		sessions
//	@Produce	jpeg
//	@Param		workspace	path		string	true	"Workspace name"
//	@Success	200			{file}		binary
//	@Failure	404			{object}	ErrorResponse
//	@Router		/api/sessions/{workspace}/annotated [get]
func (e *AnnotatedImageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r)
	if !ok {
		return
	}
	if sess.Recognition == nil || sess.Recognition.ImagePath == "" {
		writeError(w, http.StatusNotFound, "session has no annotated image")
		return
	}
	data, err := os.ReadFile(sess.Recognition.ImagePath)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("annotated image unavailable: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

func (e *AnnotatedImageEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outputFile string
	cmd := &cobra.Command{
		Use:   "annotated [workspace]",
		Short: "Download the annotated form picture",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/sessions/" + workspaceArg(args) + "/annotated"
			data, _, err := api.NewClient(getServerURL()).Download(cmd.Context(), path)
			if err != nil {
				return err
			}
			return writeDownload(cmd, outputFile, data)
		},
	}
	cmd.Flags().StringVarP(&outputFile, "file", "f", "result.jpg", "Output file path")
	return cmd
}

// ExportSessionEndpoint handles GET /api/sessions/{workspace}/export.xlsx.
type ExportSessionEndpoint struct{ sessionGroup }

func (e *ExportSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{workspace}/export.xlsx", e.handler
}

func (e *ExportSessionEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Export the latest result as a spreadsheet
//	@Description	Main fields go to the Main sheet, item rows to the Items sheet.
//	@Tags			sessions
//	@Produce		octet-stream
//	@Param			workspace	path		string	true	"Workspace name"
//	@Success		200			{file}		binary
//	@Failure		404			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Router			/api/sessions/{workspace}/export.xlsx [get]
func (e *ExportSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r)
	if !ok {
		return
	}
	if sess.State != session.StateDone || sess.Result == nil {
		writeError(w, http.StatusConflict, fmt.Sprintf("session is %s, nothing to export", sess.State))
		return
	}
	exporter := svcctx.ExporterFrom(r.Context())
	if exporter == nil {
		exporter = export.NewExporter(svcctx.LoggerFrom(r.Context()))
	}
	data, err := exporter.XLSX(sess.Result, sess.Schema)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, sess.Workspace))
	w.Write(data)
}

func (e *ExportSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outputFile string
	cmd := &cobra.Command{
		Use:   "export [workspace]",
		Short: "Download the latest result as an .xlsx file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/sessions/" + workspaceArg(args) + "/export.xlsx"
			data, _, err := api.NewClient(getServerURL()).Download(cmd.Context(), path)
			if err != nil {
				return err
			}
			return writeDownload(cmd, outputFile, data)
		},
	}
	cmd.Flags().StringVarP(&outputFile, "file", "f", "form.xlsx", "Output file path")
	return cmd
}

func writeDownload(cmd *cobra.Command, path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	cmd.Printf("Wrote %s (%d bytes)\n", path, len(data))
	return nil
}
