package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/formshelf/internal/api"
	"github.com/jackzampolin/formshelf/internal/config"
	"github.com/jackzampolin/formshelf/internal/export"
	"github.com/jackzampolin/formshelf/internal/fields"
	"github.com/jackzampolin/formshelf/internal/home"
	"github.com/jackzampolin/formshelf/internal/paddle"
	"github.com/jackzampolin/formshelf/internal/pipeline"
	"github.com/jackzampolin/formshelf/internal/prompts"
	"github.com/jackzampolin/formshelf/internal/providers"
	"github.com/jackzampolin/formshelf/internal/server/endpoints"
	"github.com/jackzampolin/formshelf/internal/svcctx"
)

// Server is the main formshelf HTTP server. When given a Paddle manager it
// starts the recognition engine container on start and stops it on
// shutdown.
type Server struct {
	httpServer *http.Server
	paddle     *paddle.Manager
	holder     *pipeline.Holder
	registry   *providers.Registry
	resolver   *prompts.Resolver
	configMgr  *config.Manager
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Home holds the results directory for annotated sessions
	Home *home.Dir
	// Registry overrides the provider registry built from config. Entries
	// registered under names the config does not use survive reloads.
	Registry *providers.Registry
	// Paddle, when set, is started with the server and stopped on shutdown.
	Paddle *paddle.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}
	if cfg.Home == nil {
		return nil, errors.New("home directory is required")
	}
	if err := cfg.Home.EnsureExists(); err != nil {
		return nil, fmt.Errorf("failed to create home directory: %w", err)
	}

	current := cfg.ConfigManager.Get()

	registry := cfg.Registry
	if registry == nil {
		registry = providers.NewRegistry()
	}
	registry.SetLogger(cfg.Logger)

	resolver := pipeline.NewResolver(cfg.Logger, current.Prompts)
	holder := pipeline.NewHolder(current, pipeline.Deps{
		Registry: registry,
		Resolver: resolver,
		Stager:   cfg.Home.Stager(),
		Logger:   cfg.Logger,
	})

	// Watch for config changes
	cfg.ConfigManager.OnChange(func(c *config.Config) {
		if err := holder.Rebuild(c); err != nil {
			cfg.Logger.Warn("keeping previous pipeline", "error", err)
			return
		}
		cfg.Logger.Info("pipeline rebuilt from config")
	})

	s := &Server{
		paddle:    cfg.Paddle,
		holder:    holder,
		registry:  registry,
		resolver:  resolver,
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
	}
	s.services = &svcctx.Services{
		Pipelines: holder,
		Registry:  registry,
		Sessions:  holder.Store(),
		Schemas:   fields.NewRegistry(),
		Exporter:  export.NewExporter(cfg.Logger),
		Prompts:   resolver,
		Config:    cfg.ConfigManager,
		Home:      cfg.Home,
		Logger:    cfg.Logger,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{Paddle: cfg.Paddle}) {
		s.endpointRegistry.Register(ep)
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	// Recognition and model calls run inside the request, so the write
	// timeout has to cover the slowest configured pipeline.
	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start starts the server and, when configured, the engine container.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if s.paddle != nil {
		if err := s.startPaddle(ctx); err != nil {
			s.setNotRunning()
			return err
		}
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		_ = s.shutdown()
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// startPaddle brings up the engine container. Start waits for the health
// check of a container it creates or restarts.
func (s *Server) startPaddle(ctx context.Context) error {
	if err := s.paddle.ValidateExisting(ctx); err != nil {
		return fmt.Errorf("existing engine container incompatible: %w", err)
	}
	s.logger.Info("starting recognition engine", "container", s.paddle.ContainerName())
	if err := s.paddle.Start(ctx); err != nil {
		return fmt.Errorf("failed to start recognition engine: %w", err)
	}
	s.logger.Info("recognition engine is ready", "url", s.paddle.URL())
	return nil
}

// shutdown stops the HTTP server and the engine container.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if s.paddle != nil {
		s.logger.Info("stopping recognition engine")
		if err := s.paddle.Stop(shutdownCtx); err != nil {
			s.logger.Error("recognition engine stop error", "error", err)
		}
		if err := s.paddle.Close(); err != nil {
			s.logger.Error("paddle manager close error", "error", err)
		}
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the fully wired HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// Pipelines returns the pipeline holder.
func (s *Server) Pipelines() *pipeline.Holder {
	return s.holder
}

// withServices enriches the request context with services and a request
// scoped logger.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)

		services := *s.services
		services.Logger = s.logger.With("request_id", reqID)
		ctx := svcctx.WithServices(r.Context(), &services)

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		services.Logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// requireInit returns 503 Service Unavailable until a pipeline is built.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.holder.Get(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "{\"error\":%q}\n", "pipeline not ready: "+err.Error())
			return
		}
		next(w, r)
	}
}
