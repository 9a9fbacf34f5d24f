// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/helios-portal/helios-dirsync/internal/config"
	"github.com/helios-portal/helios-dirsync/internal/logger"
)

var (
	configPath string // Path to the configuration directory
	devMode    bool

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "helios-dirsync",
	Short: "helios-dirsync mirrors external directories into the Helios portal database",
	Long: `helios-dirsync reconciles users, groups and organizational units of Google Workspace
or LDAP directories into local mirror tables, one transaction per organization and run,
and propagates upstream suspensions to the portal's identity records.`,
	Args:          cobra.OnlyValidArgs,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration directory holding main.toml (default ./etc/)")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "Enable dev mode")
}

// loadConfig reads the configuration and initialises the global logger.
func loadConfig(_ *cobra.Command, _ []string) error {
	var err error

	if cfg, err = config.ReadConfig(configPath); err != nil {
		return err
	}

	if devMode {
		cfg.DevMode = true
	}

	return logger.Init(cfg.Log)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
