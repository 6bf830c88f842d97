package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/formshelf/internal/api"
	"github.com/jackzampolin/formshelf/internal/config"
	"github.com/jackzampolin/formshelf/internal/home"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and initialize configuration",
}

var configForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config to the home directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		path := cfgFile
		if path == "" {
			path = h.ConfigPath()
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show effective config values",
	Long: `Show the effective value of a config key, or of every documented key.

Examples:
  formshelf config get
  formshelf config get defaults.transformer`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cm, _, err := loadConfig()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			entry, err := cm.Describe(args[0])
			if err != nil {
				return err
			}
			return api.Output(entry)
		}

		var entries []*config.Entry
		for _, def := range config.DefaultEntries() {
			entry, err := cm.Describe(def.Key)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return api.Output(map[string]any{"file": cm.File(), "settings": entries})
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	rootCmd.AddCommand(configCmd)
}
