package app

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/helios-portal/helios-dirsync/internal/daemon"
	"github.com/helios-portal/helios-dirsync/internal/directory"
	"github.com/helios-portal/helios-dirsync/internal/lease"
	"github.com/helios-portal/helios-dirsync/internal/scheduler"
)

// ErrRunFailed is returned when a run rolled back.
var ErrRunFailed = errors.New("sync run rolled back")

func init() { //nolint: gochecknoinits
	syncCmd.Flags().StringVar(&syncOrg, "org", "", "Organization to reconcile (required)")
	_ = syncCmd.MarkFlagRequired("org")

	rootCmd.AddCommand(syncCmd)
}

var (
	syncOrg string

	syncCmd = &cobra.Command{
		Use:     "sync",
		Short:   "Run one reconciliation of an organization and print the result as JSON",
		PreRunE: loadConfig,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := daemon.OpenDB(&cfg)
			if err != nil {
				return err
			}

			orchestrator, err := daemon.NewOrchestrator(&cfg, db, directory.Connect)
			if err != nil {
				return err
			}

			leases, err := lease.NewManager(db)
			if err != nil {
				return err
			}

			sched := scheduler.New(db, orchestrator, leases, scheduler.Config{LeaseTTL: cfg.Sync.LeaseTTL})

			res, err := sched.RunOrganization(cmd.Context(), syncOrg)
			if err != nil {
				return err
			}

			if err = printJSON(cmd, res); err != nil {
				return err
			}

			if !res.Success {
				return ErrRunFailed
			}

			return nil
		},
	}
)
