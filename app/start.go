package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helios-portal/helios-dirsync/internal/config"
	"github.com/helios-portal/helios-dirsync/internal/daemon"
)

func init() { //nolint: gochecknoinits
	startCmd.Flags().BoolVar(&dumpConfig, "dump-config", false, "Print the effective configuration as TOML and exit")

	rootCmd.AddCommand(startCmd)
}

var (
	dumpConfig bool

	startCmd = &cobra.Command{
		Use:     "start",
		Short:   "Start the scheduler and the web service",
		PreRunE: loadConfig,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dumpConfig {
				out, err := config.DumpConfig(&cfg)
				if err != nil {
					return err
				}

				_, err = fmt.Fprint(cmd.OutOrStdout(), out)

				return err
			}

			d, err := daemon.New(&cfg)
			if err != nil {
				return err
			}

			return d.Start()
		},
	}
)
