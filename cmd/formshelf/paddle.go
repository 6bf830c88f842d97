package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/formshelf/internal/config"
	"github.com/jackzampolin/formshelf/internal/home"
	"github.com/jackzampolin/formshelf/internal/paddle"
	"github.com/jackzampolin/formshelf/internal/providers"
)

var paddleCmd = &cobra.Command{
	Use:   "paddle",
	Short: "Manage the table recognition container",
	Long: `Manage the PaddleX serving container that recognizes tables.

The container is used by the "paddle" recognizer. Model weights are cached
in ~/.formshelf/paddlex/ so later starts skip the download.

Examples:
  formshelf paddle start     # Start the container
  formshelf paddle status    # Show container status and health
  formshelf paddle logs      # Show recent container output
  formshelf paddle stop      # Stop the container`,
}

// newPaddleManager builds a container manager from the paddle config section.
func newPaddleManager(cfg *config.Config, h *home.Dir) (*paddle.Manager, error) {
	return paddle.NewManager(paddle.Config{
		ContainerName: cfg.Paddle.ContainerName,
		Image:         cfg.Paddle.Image,
		HostPort:      cfg.Paddle.Port,
		Pipeline:      cfg.Paddle.Pipeline,
		CachePath:     filepath.Join(h.Path(), "paddlex"),
	})
}

// withPaddle loads config and runs fn with a container manager.
func withPaddle(fn func(mgr *paddle.Manager) error) error {
	cm, h, err := loadConfig()
	if err != nil {
		return err
	}
	if err := h.EnsureExists(); err != nil {
		return err
	}
	mgr, err := newPaddleManager(cm.Get(), h)
	if err != nil {
		return err
	}
	defer mgr.Close()
	return fn(mgr)
}

var paddleStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the table recognition container",
	Long: `Start the table recognition container, creating it if needed.

The first start pulls the image and downloads model weights, which can take
several minutes. The command returns once the engine answers health checks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPaddle(func(mgr *paddle.Manager) error {
			fmt.Printf("Starting %s...\n", mgr.ContainerName())
			if err := mgr.Start(cmd.Context()); err != nil {
				return fmt.Errorf("failed to start container: %w", err)
			}
			fmt.Printf("Engine ready at %s\n", mgr.URL())
			return nil
		})
	},
}

var paddleStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the table recognition container",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPaddle(func(mgr *paddle.Manager) error {
			if err := mgr.Stop(cmd.Context()); err != nil {
				return fmt.Errorf("failed to stop container: %w", err)
			}
			fmt.Println("Container stopped")
			return nil
		})
	},
}

var paddleStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show table recognition container status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withPaddle(func(mgr *paddle.Manager) error {
			status, err := mgr.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}

			switch status {
			case paddle.StatusRunning:
				fmt.Printf("Status: %s\n", status)
				fmt.Printf("URL: %s\n", mgr.URL())

				client := providers.NewPaddleClient(providers.PaddleConfig{BaseURL: mgr.URL()})
				if err := client.Health(ctx); err != nil {
					fmt.Printf("Health: unhealthy (%v)\n", err)
				} else {
					fmt.Println("Health: healthy")
				}
			case paddle.StatusStopped:
				fmt.Printf("Status: %s (use 'formshelf paddle start' to start)\n", status)
			case paddle.StatusNotFound:
				fmt.Printf("Status: %s (use 'formshelf paddle start' to create)\n", status)
			default:
				fmt.Printf("Status: %s\n", status)
			}
			return nil
		})
	},
}

var logsTail string

var paddleLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show table recognition container logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPaddle(func(mgr *paddle.Manager) error {
			logs, err := mgr.Logs(cmd.Context(), logsTail)
			if err != nil {
				return fmt.Errorf("failed to get logs: %w", err)
			}
			fmt.Print(logs)
			return nil
		})
	},
}

var paddleRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the table recognition container",
	Long: `Stop and remove the container. Cached model weights in
~/.formshelf/paddlex/ are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPaddle(func(mgr *paddle.Manager) error {
			if err := mgr.Remove(cmd.Context()); err != nil {
				return fmt.Errorf("failed to remove container: %w", err)
			}
			fmt.Println("Container removed (model cache preserved)")
			return nil
		})
	},
}

func init() {
	paddleLogsCmd.Flags().StringVar(&logsTail, "tail", "100", "Number of lines to show from the end")

	paddleCmd.AddCommand(paddleStartCmd)
	paddleCmd.AddCommand(paddleStopCmd)
	paddleCmd.AddCommand(paddleStatusCmd)
	paddleCmd.AddCommand(paddleLogsCmd)
	paddleCmd.AddCommand(paddleRemoveCmd)
	rootCmd.AddCommand(paddleCmd)
}
