// Package scheduler decides when organizations are reconciled. Every run goes
// through the organization's lease so runs of one organization never overlap.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/helios-portal/helios-dirsync/internal/db/controller/credentials"
	"github.com/helios-portal/helios-dirsync/internal/lease"
	"github.com/helios-portal/helios-dirsync/internal/logger"
	"github.com/helios-portal/helios-dirsync/internal/reconcile"
)

// Runner executes one reconciliation. *reconcile.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, req reconcile.Request) reconcile.SyncResult
}

// Config tunes a Scheduler.
type Config struct {
	Interval          time.Duration
	LeaseTTL          time.Duration
	MaxConcurrentOrgs int
}

// Scheduler runs configured organizations on an interval and on demand.
type Scheduler struct {
	db     *gorm.DB
	runner Runner
	leases *lease.Manager
	cfg    Config
	log    zerolog.Logger
}

// New returns a Scheduler.
func New(db *gorm.DB, runner Runner, leases *lease.Manager, cfg Config) *Scheduler {
	if cfg.MaxConcurrentOrgs < 1 {
		cfg.MaxConcurrentOrgs = 1
	}

	return &Scheduler{
		db:     db,
		runner: runner,
		leases: leases,
		cfg:    cfg,
		log:    logger.Component("scheduler"),
	}
}

// RunOrganization loads the directory settings of organizationID, takes its lease
// and runs one reconciliation. It fails with credentials.ErrNotFound for unknown
// organizations and lease.ErrHeld while another run is in progress.
func (s *Scheduler) RunOrganization(ctx context.Context, organizationID string) (reconcile.SyncResult, error) {
	settings, err := credentials.Load(s.db.WithContext(ctx), organizationID)
	if err != nil {
		return reconcile.SyncResult{}, err
	}

	l, err := s.leases.Acquire(ctx, organizationID, s.cfg.LeaseTTL)
	if err != nil {
		return reconcile.SyncResult{}, err
	}

	defer func() {
		if errRelease := l.Release(context.WithoutCancel(ctx)); errRelease != nil {
			s.log.Warn().Err(errRelease).Str("organization_id", organizationID).Msg("failed to release sync lease")
		}
	}()

	keepCtx, stop := context.WithCancel(ctx)
	defer stop()

	go s.keepAlive(keepCtx, l)

	return s.runner.Run(ctx, reconcile.Request{
		OrganizationID: organizationID,
		Domain:         settings.Domain,
		Credentials:    settings.Credentials,
	}), nil
}

// keepAlive extends l every third of the lease lifetime until ctx ends.
func (s *Scheduler) keepAlive(ctx context.Context, l *lease.Lease) {
	period := s.cfg.LeaseTTL / 3
	if period <= 0 {
		return
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.Extend(ctx, s.cfg.LeaseTTL); err != nil && ctx.Err() == nil {
				s.log.Warn().Err(err).Str("organization_id", l.OrganizationID).Msg("failed to extend sync lease")
			}
		}
	}
}

// RunOnce runs every enabled organization once, at most MaxConcurrentOrgs at a time,
// and returns the results of the runs that took place.
func (s *Scheduler) RunOnce(ctx context.Context) ([]reconcile.SyncResult, error) {
	entries, err := credentials.List(s.db.WithContext(ctx))
	if err != nil {
		// undecodable entries are reported and skipped
		s.log.Error().Err(err).Msg("failed to read some directory settings")

		if entries == nil {
			return nil, fmt.Errorf("listing organizations: %w", err)
		}
	}

	results := make([]*reconcile.SyncResult, len(entries))

	var g errgroup.Group
	g.SetLimit(s.cfg.MaxConcurrentOrgs)

	for i, entry := range entries {
		if entry.Settings.Disabled {
			s.log.Debug().Str("organization_id", entry.OrganizationID).Msg("skipping disabled organization")

			continue
		}

		g.Go(func() error {
			res, errRun := s.RunOrganization(ctx, entry.OrganizationID)

			switch {
			case errors.Is(errRun, lease.ErrHeld):
				s.log.Info().Str("organization_id", entry.OrganizationID).Msg("sync already running, skipping")
			case errRun != nil:
				s.log.Error().Err(errRun).Str("organization_id", entry.OrganizationID).Msg("sync not started")
			default:
				results[i] = &res
			}

			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // workers never fail

	out := make([]reconcile.SyncResult, 0, len(results))

	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}

	return out, nil
}

// Start calls RunOnce immediately and then every Interval until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	if s.cfg.Interval <= 0 {
		s.log.Warn().Msg("scheduler interval not set, scheduled syncs disabled")

		return
	}

	s.log.Info().Dur("interval", s.cfg.Interval).Msg("scheduler started")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		results, err := s.RunOnce(ctx)
		if err != nil {
			s.log.Error().Err(err).Msg("scheduled sync failed")
		}

		failed := 0

		for _, r := range results {
			if !r.Success {
				failed++
			}
		}

		s.log.Info().Int("runs", len(results)).Int("failed", failed).Msg("scheduled sync finished")

		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped")

			return
		case <-ticker.C:
		}
	}
}
