package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/formshelf/internal/paddle"
	"github.com/jackzampolin/formshelf/internal/server"
)

var (
	serveHost   string
	servePort   string
	servePaddle bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the formshelf server",
	Long: `Start the formshelf HTTP server.

The server hosts the operator page at / and the JSON API under /api.
Configuration changes are picked up without a restart.

With --paddle the table recognition container is started alongside the
server and stopped when it shuts down (via Ctrl+C or SIGTERM).

The server provides:
  - /health       - Basic server health check
  - /ready        - Readiness check (pipeline and recognition engine)
  - /swagger      - API documentation

Examples:
  formshelf serve                    # Start on default port 8080
  formshelf serve --port 3000        # Start on custom port
  formshelf serve --host 0.0.0.0     # Bind to all interfaces
  formshelf serve --paddle           # Also run the recognition container`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger, err := newLogger()
		if err != nil {
			return err
		}
		cm, h, err := loadConfig()
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		cfg := cm.Get()
		// A missing key for the selected model is fatal at startup.
		if err := cfg.CheckCredentials(); err != nil {
			return err
		}
		cm.WatchConfig()

		var pm *paddle.Manager
		if servePaddle {
			if pm, err = newPaddleManager(cfg, h); err != nil {
				return err
			}
		}

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			ConfigManager: cm,
			Home:          h,
			Paddle:        pm,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on")
	serveCmd.Flags().BoolVar(&servePaddle, "paddle", false, "Start and stop the table recognition container with the server")

	rootCmd.AddCommand(serveCmd)
}
