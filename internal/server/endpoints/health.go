package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/formshelf/internal/api"
	"github.com/jackzampolin/formshelf/internal/paddle"
	"github.com/jackzampolin/formshelf/internal/pipeline"
	"github.com/jackzampolin/formshelf/internal/session"
	"github.com/jackzampolin/formshelf/internal/svcctx"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status     string `json:"status"`
	Pipeline   string `json:"pipeline,omitempty"`
	Recognizer string `json:"recognizer,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Liveness check
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Router		/health [get]
func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// healthChecker is implemented by engines that expose a health check.
type healthChecker interface {
	Health(ctx context.Context) error
}

// ReadyEndpoint handles GET /ready.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Readiness check
//	@Description	Ready when a pipeline is built and the selected recognition engine answers its health check.
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/ready [get]
func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Pipeline: "ok", Recognizer: "ok"}

	holder := svcctx.PipelinesFrom(r.Context())
	if holder == nil {
		resp.Status, resp.Pipeline, resp.Recognizer = "degraded", "not_initialized", ""
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	p, err := holder.Get()
	if err != nil {
		resp.Status, resp.Pipeline, resp.Recognizer = "degraded", err.Error(), ""
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	if registry := svcctx.RegistryFrom(r.Context()); registry != nil {
		engine, err := registry.GetRecognizer(p.RecognizerName)
		if err == nil {
			if hc, ok := engine.(healthChecker); ok {
				if err := hc.Health(r.Context()); err != nil {
					resp.Status, resp.Recognizer = "degraded", "unhealthy"
					writeJSON(w, http.StatusServiceUnavailable, resp)
					return
				}
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (includes the recognition engine)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/ready", &resp); err != nil {
				return err
			}
			fmt.Printf("Status:     %s\n", resp.Status)
			fmt.Printf("Pipeline:   %s\n", resp.Pipeline)
			fmt.Printf("Recognizer: %s\n", resp.Recognizer)
			return nil
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server    string          `json:"server"`
	Providers ProvidersStatus `json:"providers"`
	Pipeline  PipelineStatus  `json:"pipeline"`
	Paddle    *PaddleStatus   `json:"paddle,omitempty"`
	Sessions  []string        `json:"sessions"`
}

// ProvidersStatus shows registered recognition engines and LLM providers.
type ProvidersStatus struct {
	Recognizers []string `json:"recognizers"`
	LLM         []string `json:"llm"`
}

// PipelineStatus shows the active component selection.
type PipelineStatus struct {
	Ready       bool   `json:"ready"`
	Error       string `json:"error,omitempty"`
	Recognizer  string `json:"recognizer,omitempty"`
	LLMProvider string `json:"llm_provider,omitempty"`
	Transformer string `json:"transformer,omitempty"`
	Reconciler  string `json:"reconciler,omitempty"`
	Annotate    bool   `json:"annotate"`
}

// PaddleStatus shows the PaddleX serving container.
type PaddleStatus struct {
	Container string `json:"container"`
	URL       string `json:"url"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct {
	// Paddle is set by the server when it manages the engine container.
	Paddle *paddle.Manager
}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Detailed server status
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	StatusResponse
//	@Router		/status [get]
func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := StatusResponse{Server: "running", Sessions: []string{}}

	if registry := svcctx.RegistryFrom(ctx); registry != nil {
		resp.Providers.Recognizers = registry.ListRecognizers()
		resp.Providers.LLM = registry.ListLLM()
	}

	if holder := svcctx.PipelinesFrom(ctx); holder != nil {
		p, err := holder.Get()
		if err != nil {
			resp.Pipeline.Error = err.Error()
		} else {
			resp.Pipeline.Ready = true
			resp.Pipeline.Recognizer = p.RecognizerName
			resp.Pipeline.LLMProvider = p.LLMName
			resp.Pipeline.Annotate = p.Annotate
		}
		resp.Sessions = holder.Store().Workspaces()
	}
	if cm := svcctx.ConfigFrom(ctx); cm != nil {
		d := cm.Get().Defaults
		resp.Pipeline.Transformer = d.Transformer
		resp.Pipeline.Reconciler = d.Reconciler
	}

	if e.Paddle != nil {
		ps := &PaddleStatus{URL: e.Paddle.URL()}
		status, err := e.Paddle.Status(ctx)
		if err != nil {
			ps.Container = "error"
		} else {
			ps.Container = string(status)
		}
		resp.Paddle = ps
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// writeJSON writes a JSON response. Non-ASCII text and markup are written
// unescaped.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Class string `json:"error_class,omitempty"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeFailure maps a pipeline error onto its HTTP status and class.
func writeFailure(w http.ResponseWriter, err error) {
	class := session.Classify(err)
	writeJSON(w, statusFor(err, class), ErrorResponse{Error: err.Error(), Class: string(class)})
}

func statusFor(err error, class session.ErrorClass) int {
	if errors.Is(err, pipeline.ErrNotConfigured) {
		return http.StatusServiceUnavailable
	}
	switch class {
	case session.ClassNoTable, session.ClassMalformed:
		return http.StatusUnprocessableEntity
	case session.ClassUnsupportedImage:
		return http.StatusUnsupportedMediaType
	case session.ClassInvalidRequest:
		return http.StatusBadRequest
	case session.ClassStorageWrite:
		return http.StatusInternalServerError
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}
