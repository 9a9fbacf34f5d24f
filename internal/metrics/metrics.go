// Package metrics exports prometheus series about reconciliation runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/helios-portal/helios-dirsync/internal/reconcile"
)

const namespace = "helios_dirsync"

// Outcome label values of helios_dirsync_runs_total.
const (
	OutcomeCommitted  = "committed"
	OutcomeRolledBack = "rolled_back"
)

// Collector observes finished runs. It implements reconcile.Observer.
type Collector struct {
	runs       *prometheus.CounterVec
	duration   prometheus.Histogram
	entities   *prometheus.CounterVec
	propagated *prometheus.CounterVec
	lastRun    *prometheus.GaugeVec
}

// New registers the run series on reg.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Number of sync runs, differentiated by outcome.",
		}, []string{"outcome"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of sync runs.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		entities: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_total",
			Help:      "Mirror rows written by committed runs, differentiated by kind and operation.",
		}, []string{"kind", "op"}),
		propagated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "propagated_total",
			Help:      "Identity records whose status was changed by propagation.",
		}, []string{"status"}),
		lastRun: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Start time of the last finished run per organization and outcome.",
		}, []string{"organization_id", "outcome"}),
	}
}

// ObserveRun implements reconcile.Observer.
func (c *Collector) ObserveRun(res reconcile.SyncResult) {
	outcome := OutcomeRolledBack
	if res.Success {
		outcome = OutcomeCommitted
	}

	c.runs.WithLabelValues(outcome).Inc()
	c.duration.Observe(time.Duration(res.Duration).Seconds())

	if res.OrganizationID != "" {
		c.lastRun.WithLabelValues(res.OrganizationID, outcome).Set(float64(res.StartedAt.Unix()))
	}

	if !res.Success {
		return
	}

	for kind, counts := range map[reconcile.Kind]reconcile.Counts{
		reconcile.KindUser:    res.Users,
		reconcile.KindGroup:   res.Groups,
		reconcile.KindOrgUnit: res.OrgUnits,
	} {
		c.entities.WithLabelValues(string(kind), "created").Add(float64(counts.Created))
		c.entities.WithLabelValues(string(kind), "updated").Add(float64(counts.Updated))
		c.entities.WithLabelValues(string(kind), "removed").Add(float64(counts.Removed))
		c.entities.WithLabelValues(string(kind), "skipped").Add(float64(counts.Skipped))
	}

	c.propagated.WithLabelValues("suspended").Add(float64(res.Propagation.Suspended))
	c.propagated.WithLabelValues("active").Add(float64(res.Propagation.Reactivated))
}

// LastRun exposes the per-organization last run gauge.
func (c *Collector) LastRun() *prometheus.GaugeVec {
	return c.lastRun
}
