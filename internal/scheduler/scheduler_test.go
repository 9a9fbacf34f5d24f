package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/helios-portal/helios-dirsync/internal/db/controller/credentials"
	"github.com/helios-portal/helios-dirsync/internal/db/models"
	"github.com/helios-portal/helios-dirsync/internal/directory"
	"github.com/helios-portal/helios-dirsync/internal/lease"
	"github.com/helios-portal/helios-dirsync/internal/reconcile"
)

// setupTestDB creates an in-memory SQLite database with every model migrated.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.All()...), "failed to migrate test database")

	return db
}

type fakeRunner struct {
	mu       sync.Mutex
	requests []reconcile.Request
	started  chan struct{}
	release  chan struct{}
}

func (f *fakeRunner) Run(_ context.Context, req reconcile.Request) reconcile.SyncResult {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}

	return reconcile.SyncResult{OrganizationID: req.OrganizationID, Success: true, State: reconcile.StateCommitted}
}

func (f *fakeRunner) orgs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.requests))
	for _, r := range f.requests {
		out = append(out, r.OrganizationID)
	}

	return out
}

func saveOrg(t *testing.T, db *gorm.DB, org string, disabled bool) {
	t.Helper()

	require.NoError(t, credentials.Save(db, org, &credentials.Settings{
		Domain:   org + ".example",
		Disabled: disabled,
		Credentials: directory.Credentials{
			Provider: directory.ProviderLDAP,
			LDAP:     &directory.LDAPCredentials{URL: "ldap://dir." + org + ".example", BaseDN: "dc=" + org},
		},
	}))
}

func newScheduler(t *testing.T, db *gorm.DB, runner Runner) *Scheduler {
	t.Helper()

	leases, err := lease.NewManager(db)
	require.NoError(t, err)

	return New(db, runner, leases, Config{Interval: time.Hour, LeaseTTL: time.Minute, MaxConcurrentOrgs: 1})
}

func TestRunOrganization(t *testing.T) {
	db := setupTestDB(t)
	saveOrg(t, db, "acme", false)

	runner := &fakeRunner{}
	s := newScheduler(t, db, runner)

	res, err := s.RunOrganization(context.Background(), "acme")
	require.NoError(t, err)
	assert.True(t, res.Success)

	require.Len(t, runner.requests, 1)
	assert.Equal(t, "acme.example", runner.requests[0].Domain)
	assert.Equal(t, directory.ProviderLDAP, runner.requests[0].Credentials.Provider)

	var leases int64
	require.NoError(t, db.Model(&models.SyncLease{}).Count(&leases).Error)
	assert.Zero(t, leases, "the lease must be released after the run")
}

func TestRunOrganizationUnknown(t *testing.T) {
	s := newScheduler(t, setupTestDB(t), &fakeRunner{})

	_, err := s.RunOrganization(context.Background(), "nobody")
	require.ErrorIs(t, err, credentials.ErrNotFound)
}

func TestRunOrganizationSerializes(t *testing.T) {
	db := setupTestDB(t)
	saveOrg(t, db, "acme", false)

	runner := &fakeRunner{started: make(chan struct{}), release: make(chan struct{})}
	s := newScheduler(t, db, runner)

	done := make(chan error, 1)

	go func() {
		_, err := s.RunOrganization(context.Background(), "acme")
		done <- err
	}()

	<-runner.started

	_, err := s.RunOrganization(context.Background(), "acme")
	require.ErrorIs(t, err, lease.ErrHeld)

	close(runner.release)
	require.NoError(t, <-done)

	runner.started = nil

	_, err = s.RunOrganization(context.Background(), "acme")
	require.NoError(t, err)
}

func TestRunOnce(t *testing.T) {
	db := setupTestDB(t)
	saveOrg(t, db, "acme", false)
	saveOrg(t, db, "globex", false)
	saveOrg(t, db, "initech", true)

	runner := &fakeRunner{}
	s := newScheduler(t, db, runner)

	results, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.ElementsMatch(t, []string{"acme", "globex"}, runner.orgs())
}

func TestStartStopsWithContext(t *testing.T) {
	db := setupTestDB(t)
	saveOrg(t, db, "acme", false)

	runner := &fakeRunner{}
	s := newScheduler(t, db, runner)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})

	go func() {
		s.Start(ctx)
		close(stopped)
	}()

	require.Eventually(t, func() bool { return len(runner.orgs()) == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
