package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/formshelf/internal/config"
	"github.com/jackzampolin/formshelf/internal/mcp"
	"github.com/jackzampolin/formshelf/version"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the pipeline as MCP tools over stdio",
	Long: `Serve recognize_form, transform_table, reconcile_fields and
parse_fields as MCP tools on stdin and stdout.

Logs go to stderr. Config changes rebuild the pipeline between calls.

Example client entry:
  {"command": "formshelf", "args": ["mcp"]}`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		holder, cm, err := newLocalPipeline(logger)
		if err != nil {
			return err
		}
		cm.OnChange(func(c *config.Config) {
			if err := holder.Rebuild(c); err != nil {
				logger.Warn("keeping previous pipeline", "error", err)
			}
		})
		cm.WatchConfig()

		srv, err := mcp.NewServer(mcp.Config{
			Name:      "formshelf",
			Version:   version.GitRelease,
			Pipelines: holder,
			Logger:    logger,
		})
		if err != nil {
			return err
		}
		return srv.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
