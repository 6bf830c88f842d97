// Package mcp exposes the form pipeline as MCP tools over stdio.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jackzampolin/formshelf/internal/fields"
	"github.com/jackzampolin/formshelf/internal/pipeline"
	"github.com/jackzampolin/formshelf/internal/recognize"
	"github.com/jackzampolin/formshelf/internal/session"
)

// Config configures the tool server.
type Config struct {
	Name    string
	Version string
	// Pipelines supplies the current pipeline for every call.
	Pipelines *pipeline.Holder
	Logger    *slog.Logger
}

// Server is the MCP tool server.
type Server struct {
	pipelines *pipeline.Holder
	schemas   *fields.Registry
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a tool server with every tool registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Pipelines == nil {
		return nil, fmt.Errorf("pipeline holder cannot be nil")
	}
	if cfg.Name == "" {
		cfg.Name = "formshelf"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		pipelines: cfg.Pipelines,
		schemas:   fields.NewRegistry(),
		logger:    cfg.Logger,
		mcpServer: server.NewMCPServer(cfg.Name, cfg.Version, server.WithToolCapabilities(false)),
	}
	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("recognize_form",
		mcp.WithDescription("Recognize the table in a form picture (jpg, jpeg or png) and return it as JSON keyed by the given field names"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Full path to the form picture")),
		mcp.WithString("main_fields", mcp.Description("Main table fields, separated by , ; or spaces")),
		mcp.WithString("child_fields", mcp.Description("Item fields, separated by , ; or spaces")),
		mcp.WithString("workspace", mcp.Description("Workspace name; empty lists reuse its last fields")),
		mcp.WithBoolean("annotate", mcp.Description("Stage the upload and annotated picture")),
		mcp.WithBoolean("reconcile", mcp.Description("Map extracted names onto the target fields")),
	), s.handleRecognizeForm)

	s.mcpServer.AddTool(mcp.NewTool("transform_table",
		mcp.WithDescription("Turn recognized HTML or markdown table markup into JSON keyed by the given field names"),
		mcp.WithString("markup", mcp.Required(), mcp.Description("Table markup")),
		mcp.WithString("main_fields", mcp.Description("Main table fields")),
		mcp.WithString("child_fields", mcp.Description("Item fields")),
	), s.handleTransformTable)

	s.mcpServer.AddTool(mcp.NewTool("reconcile_fields",
		mcp.WithDescription("Map target field names onto extracted source field names"),
		mcp.WithString("source", mcp.Required(), mcp.Description("Extracted field names")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target field names")),
	), s.handleReconcileFields)

	s.mcpServer.AddTool(mcp.NewTool("parse_fields",
		mcp.WithDescription("Show how main and item field inputs are split"),
		mcp.WithString("main_fields", mcp.Description("Main table fields")),
		mcp.WithString("child_fields", mcp.Description("Item fields")),
	), s.handleParseFields)
}

func (s *Server) handleRecognizeForm(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read %s: %v", path, err)), nil
	}
	p, err := s.pipelines.Get()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	workspace := strings.TrimSpace(request.GetString("workspace", ""))
	if workspace == "" {
		workspace = session.DefaultWorkspace
	}
	schema := fields.ParseSchema(request.GetString("main_fields", ""), request.GetString("child_fields", ""))
	if len(schema.Main) == 0 && len(schema.Children) == 0 {
		if prev, ok := s.schemas.Get(workspace); ok {
			schema = prev
		}
	} else {
		s.schemas.Set(workspace, schema)
	}

	sess, err := p.Orchestrator.Run(ctx, session.Request{
		Workspace: workspace,
		Image:     recognize.Image{Name: filepath.Base(path), Data: data},
		Schema:    schema,
		Annotate:  request.GetBool("annotate", p.Annotate),
		Reconcile: request.GetBool("reconcile", false),
	})
	if err != nil {
		return failure(err), nil
	}

	out := recognizeOutput{
		Result:              sess.Result,
		MainCorrespondence:  sess.MainCorrespondence,
		ChildCorrespondence: sess.ChildCorrespondence,
	}
	if sess.Recognition != nil {
		out.Markup = string(sess.Recognition.Markup)
		out.AnnotatedImage = sess.Recognition.ImagePath
	}
	return jsonResult(out)
}

type recognizeOutput struct {
	Markup              string            `json:"markup"`
	Result              any               `json:"result"`
	MainCorrespondence  map[string]string `json:"main_correspondence,omitempty"`
	ChildCorrespondence map[string]string `json:"child_correspondence,omitempty"`
	AnnotatedImage      string            `json:"annotated_image,omitempty"`
}

func (s *Server) handleTransformTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	markup, err := request.RequireString("markup")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	schema := fields.ParseSchema(request.GetString("main_fields", ""), request.GetString("child_fields", ""))
	if err := schema.Validate(); err != nil {
		return failure(err), nil
	}
	p, err := s.pipelines.Get()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := p.Transformer.Transform(ctx, markup, schema.Main, schema.Children)
	if err != nil {
		return failure(err), nil
	}
	return jsonResult(res)
}

func (s *Server) handleReconcileFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := request.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := request.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.pipelines.Get()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	corr, err := p.Reconciler.Reconcile(ctx, fields.Parse(source), fields.Parse(target))
	if err != nil {
		return failure(err), nil
	}
	return jsonResult(corr)
}

func (s *Server) handleParseFields(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	schema := fields.ParseSchema(request.GetString("main_fields", ""), request.GetString("child_fields", ""))
	return mcp.NewToolResultText(fmt.Sprintf("main: [%s]\nchildren: [%s]\n",
		schema.Main.Join(", "), schema.Children.Join(", "))), nil
}

// failure reports a pipeline error with its class.
func failure(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("[%s] %v", session.Classify(err), err))
}

// jsonResult returns v as indented JSON with non-ASCII text kept readable.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Run serves tools over stdin and stdout until the input closes.
func (s *Server) Run(_ context.Context) error {
	s.logger.Info("starting MCP server in stdio mode")
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
