// Package daemon wires the database, the reconciliation engine, the scheduler
// and the web service into one process.
package daemon

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/helios-portal/helios-dirsync/internal/config"
	"github.com/helios-portal/helios-dirsync/internal/db/dsn"
	"github.com/helios-portal/helios-dirsync/internal/db/models"
	"github.com/helios-portal/helios-dirsync/internal/directory"
	"github.com/helios-portal/helios-dirsync/internal/lease"
	gormadapter "github.com/helios-portal/helios-dirsync/internal/logger/adapter/gorm"
	"github.com/helios-portal/helios-dirsync/internal/metrics"
	"github.com/helios-portal/helios-dirsync/internal/reconcile"
	"github.com/helios-portal/helios-dirsync/internal/scheduler"
	"github.com/helios-portal/helios-dirsync/internal/web"
)

// ErrConfigNil is returned when no configuration is passed.
var ErrConfigNil = errors.New("config is nil")

// Daemon represents the main application daemon.
type Daemon struct {
	db         *gorm.DB
	scheduler  *scheduler.Scheduler
	webService *web.Service
}

// Start runs the scheduler and the web service until a shutdown signal arrives.
func (d *Daemon) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go d.scheduler.Start(ctx)

	go func() {
		d.webService.WaitShutdown()
		cancel()
	}()

	return d.webService.Start()
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) (*Daemon, error) {
	return newDaemon(cfg, prometheus.DefaultRegisterer, prometheus.DefaultGatherer, directory.Connect)
}

func newDaemon(
	cfg *config.Config,
	reg prometheus.Registerer,
	gatherer prometheus.Gatherer,
	connect directory.Connector,
) (*Daemon, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}

	orchestrator, err := NewOrchestrator(cfg, db, connect, reconcile.WithObserver(metrics.New(reg)))
	if err != nil {
		return nil, err
	}

	leases, err := lease.NewManager(db)
	if err != nil {
		return nil, err
	}

	sched := scheduler.New(db, orchestrator, leases, scheduler.Config{
		Interval:          cfg.Sync.Interval,
		LeaseTTL:          cfg.Sync.LeaseTTL,
		MaxConcurrentOrgs: cfg.Sync.MaxConcurrentOrgs,
	})

	return &Daemon{
		db:         db,
		scheduler:  sched,
		webService: web.New(cfg, db, sched, gatherer),
	}, nil
}

// OpenDB opens the configured database and migrates every model.
func OpenDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(dsn.Dialector(cfg), &gorm.Config{
		Logger: gormadapter.New(cfg.DB.LogLevel),
	})
	if err != nil {
		return nil, err
	}

	if cfg.DB.GormEngine == config.EngineSQLite {
		// sqlite allows a single writer and ":memory:" is per connection
		sqlDB, errDB := db.DB()
		if errDB != nil {
			return nil, errDB
		}

		sqlDB.SetMaxOpenConns(1)
	}

	if err = db.AutoMigrate(models.All()...); err != nil {
		return nil, err
	}

	log.Debug().Str("engine", cfg.DB.GormEngine).Msg("database migrated")

	return db, nil
}

// NewOrchestrator builds the reconciliation engine from the sync settings.
func NewOrchestrator(
	cfg *config.Config,
	db *gorm.DB,
	connect directory.Connector,
	extra ...reconcile.Option,
) (*reconcile.Orchestrator, error) {
	opts := append([]reconcile.Option{
		reconcile.WithPageSize(cfg.Sync.PageSize),
		reconcile.WithRateLimit(cfg.Sync.RequestsPerSecond, cfg.Sync.Burst),
		reconcile.WithMaxRemovalPercent(cfg.Sync.MaxRemovalPercent),
		reconcile.WithRunHistory(cfg.Sync.RunHistory),
	}, extra...)

	return reconcile.New(db, connect, opts...)
}
