package config

import (
	"time"

	"github.com/helios-portal/helios-dirsync/internal/logger"
)

// DefaultPageSize is the page size hint sent upstream when none is configured.
const DefaultPageSize = 200

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Sync      Sync
}

// Webserver implement webserver settings.
type Webserver struct {
	DisableRecover bool   // disable recover middleware
	Port           int    // listening port for the webserver
	ShutDownTime   int    // wait time for shutdown
	URL            string // base url for the webserver
	APIToken       string // bearer token for /api routes, empty disables the api
}

// Sync holds the reconciliation run settings.
type Sync struct {
	Interval          time.Duration // time between scheduled runs
	PageSize          int           // page size hint for upstream listing calls
	RequestsPerSecond float64       // upstream rate limit, 0 = unlimited
	Burst             int           // upstream rate limiter burst
	MaxRemovalPercent float64       // refuse runs removing more than this share of a mirror, 0 = disabled
	LeaseTTL          time.Duration // lifetime of a per-organization run lease
	MaxConcurrentOrgs int           // organizations synced in parallel by the scheduler
	RunHistory        int           // runs returned by the history endpoint
}
