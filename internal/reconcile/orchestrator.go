package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/helios-portal/helios-dirsync/internal/db/controller/syncrun"
	"github.com/helios-portal/helios-dirsync/internal/directory"
	"github.com/helios-portal/helios-dirsync/internal/logger"
)

// Observer receives every finished run.
type Observer interface {
	ObserveRun(SyncResult)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPageSize sets the page size hint sent upstream.
func WithPageSize(n int) Option {
	return func(o *Orchestrator) { o.opts.PageSize = n }
}

// WithRateLimit paces upstream requests of each run.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *Orchestrator) { o.rps, o.burst = rps, burst }
}

// WithMaxRemovalPercent enables the removal safety threshold.
func WithMaxRemovalPercent(p float64) Option {
	return func(o *Orchestrator) { o.opts.MaxRemovalPercent = p }
}

// WithObserver registers an observer, typically metrics.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, obs) }
}

// WithRunHistory keeps the newest n run records per organization; 0 keeps all.
func WithRunHistory(n int) Option {
	return func(o *Orchestrator) { o.history = n }
}

// WithLogger replaces the component logger.
func WithLogger(log zerolog.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// Orchestrator runs the user, group and org unit reconcilers and the status
// propagation of one organization inside a single transaction.
type Orchestrator struct {
	db        *gorm.DB
	connect   directory.Connector
	opts      Options
	rps       float64
	burst     int
	history   int
	observers []Observer
	log       zerolog.Logger
	now       func() time.Time
}

// New returns an Orchestrator writing to db and reaching directories through connect.
func New(db *gorm.DB, connect directory.Connector, options ...Option) (*Orchestrator, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if connect == nil {
		return nil, ErrConnectorNil
	}

	o := &Orchestrator{
		db:      db,
		connect: connect,
		log:     logger.Component("reconcile"),
		now:     time.Now,
	}

	for _, opt := range options {
		opt(o)
	}

	return o, nil
}

// Run reconciles req.OrganizationID and always returns a result. The caller must
// make sure no other run of the same organization is in progress.
func (o *Orchestrator) Run(ctx context.Context, req Request) SyncResult {
	res := SyncResult{
		RunID:          uuid.NewString(),
		OrganizationID: req.OrganizationID,
		Domain:         req.Domain,
		State:          StateIdle,
		StartedAt:      o.now().UTC(),
	}

	log := o.log.With().Str("run_id", res.RunID).Str("organization_id", req.OrganizationID).Logger()

	if req.OrganizationID == "" {
		return o.finish(ctx, log, res, ErrOrganizationRequired)
	}

	client, err := o.connect(ctx, req.Domain, req.Credentials)
	if err != nil {
		return o.finish(ctx, log, res, fmt.Errorf("connecting to directory: %w", err))
	}

	defer func() {
		if errClose := directory.Close(client); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close directory client")
		}
	}()

	res.State = StateRunning
	log.Info().Str("domain", req.Domain).Msg("sync run started")

	err = o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return o.reconcile(ctx, tx, client, log, &res)
	})

	return o.finish(ctx, log, res, err)
}

func (o *Orchestrator) reconcile(
	ctx context.Context, tx *gorm.DB, client directory.Client, log zerolog.Logger, res *SyncResult,
) error {
	opts := o.opts
	// a fresh limiter per run keeps organizations from sharing a budget
	opts.Limiter = directory.NewLimiter(o.rps, o.burst)

	var err error

	users := NewReconciler(UserEntity(), opts, log)
	if res.Users, err = users.Reconcile(ctx, tx, res.OrganizationID, client.ListUsers); err != nil {
		return fmt.Errorf("reconciling users: %w", err)
	}

	groups := NewReconciler(GroupEntity(), opts, log)
	if res.Groups, err = groups.Reconcile(ctx, tx, res.OrganizationID, client.ListGroups); err != nil {
		return fmt.Errorf("reconciling groups: %w", err)
	}

	units := NewReconciler(OrgUnitEntity(), opts, log)
	if res.OrgUnits, err = units.Reconcile(ctx, tx, res.OrganizationID, client.ListOrgUnits); err != nil {
		return fmt.Errorf("reconciling org units: %w", err)
	}

	// propagation failures are logged by the propagator and do not fail the run
	res.Propagation, _ = NewPropagator(log).Propagate(ctx, tx, res.OrganizationID)

	return nil
}

// finish settles the terminal state, records the run and notifies observers.
func (o *Orchestrator) finish(ctx context.Context, log zerolog.Logger, res SyncResult, err error) SyncResult {
	res.Duration = Duration(o.now().UTC().Sub(res.StartedAt))

	if err != nil {
		res.Success = false
		res.State = StateRolledBack
		res.Error = err.Error()
		res.Users, res.Groups, res.OrgUnits = Counts{}, Counts{}, Counts{}
		res.Propagation = Propagation{}

		log.Error().Err(err).Dur("duration", time.Duration(res.Duration)).Msg("sync run rolled back")
	} else {
		res.Success = true
		res.State = StateCommitted

		log.Info().
			Dict("users", countsDict(res.Users)).
			Dict("groups", countsDict(res.Groups)).
			Dict("org_units", countsDict(res.OrgUnits)).
			Int64("propagated", res.Propagation.Updated()).
			Dur("duration", time.Duration(res.Duration)).
			Msg("sync run committed")
	}

	if res.OrganizationID != "" {
		o.record(ctx, log, res)
	}

	for _, obs := range o.observers {
		obs.ObserveRun(res)
	}

	return res
}

// record stores the run history row. It runs outside the run's transaction so a
// rolled back run is recorded too; failures are only logged.
func (o *Orchestrator) record(ctx context.Context, log zerolog.Logger, res SyncResult) {
	db := o.db.WithContext(context.WithoutCancel(ctx))

	if err := syncrun.Record(db, res.Run()); err != nil {
		log.Warn().Err(err).Msg("failed to record sync run")

		return
	}

	if _, err := syncrun.Prune(db, res.OrganizationID, o.history); err != nil {
		log.Warn().Err(err).Msg("failed to prune sync run history")
	}
}

func countsDict(c Counts) *zerolog.Event {
	return zerolog.Dict().
		Int("created", c.Created).
		Int("updated", c.Updated).
		Int("removed", c.Removed).
		Int("total", c.Total).
		Int("skipped", c.Skipped)
}
