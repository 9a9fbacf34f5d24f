package metrics_test

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helios-portal/helios-dirsync/internal/metrics"
	"github.com/helios-portal/helios-dirsync/internal/reconcile"
)

func TestObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.New(reg)

	c.ObserveRun(reconcile.SyncResult{
		OrganizationID: "acme",
		Success:        true,
		StartedAt:      time.Unix(1700000000, 0),
		Duration:       reconcile.Duration(3 * time.Second),
		Users:          reconcile.Counts{Created: 4, Updated: 1, Removed: 2, Total: 5},
		Groups:         reconcile.Counts{Created: 1, Total: 1},
		Propagation:    reconcile.Propagation{Suspended: 2, Reactivated: 1},
	})
	c.ObserveRun(reconcile.SyncResult{
		OrganizationID: "acme",
		StartedAt:      time.Unix(1700000100, 0),
		Users:          reconcile.Counts{Created: 99},
	})

	runs := `
# HELP helios_dirsync_runs_total Number of sync runs, differentiated by outcome.
# TYPE helios_dirsync_runs_total counter
helios_dirsync_runs_total{outcome="committed"} 1
helios_dirsync_runs_total{outcome="rolled_back"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(runs), "helios_dirsync_runs_total"))

	propagated := `
# HELP helios_dirsync_propagated_total Identity records whose status was changed by propagation.
# TYPE helios_dirsync_propagated_total counter
helios_dirsync_propagated_total{status="active"} 1
helios_dirsync_propagated_total{status="suspended"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(propagated), "helios_dirsync_propagated_total"))

	// failed runs contribute no entity counts
	entities := `
# HELP helios_dirsync_entities_total Mirror rows written by committed runs, differentiated by kind and operation.
# TYPE helios_dirsync_entities_total counter
helios_dirsync_entities_total{kind="group",op="created"} 1
helios_dirsync_entities_total{kind="group",op="removed"} 0
helios_dirsync_entities_total{kind="group",op="skipped"} 0
helios_dirsync_entities_total{kind="group",op="updated"} 0
helios_dirsync_entities_total{kind="orgunit",op="created"} 0
helios_dirsync_entities_total{kind="orgunit",op="removed"} 0
helios_dirsync_entities_total{kind="orgunit",op="skipped"} 0
helios_dirsync_entities_total{kind="orgunit",op="updated"} 0
helios_dirsync_entities_total{kind="user",op="created"} 4
helios_dirsync_entities_total{kind="user",op="removed"} 2
helios_dirsync_entities_total{kind="user",op="skipped"} 0
helios_dirsync_entities_total{kind="user",op="updated"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(entities), "helios_dirsync_entities_total"))

	assert.Equal(t, 2, testutil.CollectAndCount(c.LastRun(), "helios_dirsync_last_run_timestamp_seconds"))
	assert.InDelta(t, 1700000100, testutil.ToFloat64(c.LastRun().WithLabelValues("acme", metrics.OutcomeRolledBack)), 0)
}

func TestNewPanicsOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New(reg)

	assert.Panics(t, func() { metrics.New(reg) })
}
