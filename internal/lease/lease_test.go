package lease

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/helios-portal/helios-dirsync/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.SyncLease{}), "failed to migrate test database")

	return db
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newManager(t *testing.T) (*Manager, *clock) {
	t.Helper()

	m, err := NewManager(setupTestDB(t))
	require.NoError(t, err)

	c := &clock{t: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
	m.now = c.now

	return m, c
}

func TestNewManagerNilDB(t *testing.T) {
	_, err := NewManager(nil)
	require.ErrorIs(t, err, ErrDBNil)
}

func TestAcquireIsExclusive(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	l, err := m.Acquire(ctx, "acme", time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, l.Holder)

	_, err = m.Acquire(ctx, "acme", time.Minute)
	require.ErrorIs(t, err, ErrHeld)

	other, err := m.Acquire(ctx, "globex", time.Minute)
	require.NoError(t, err, "leases are per organization")
	require.NoError(t, other.Release(ctx))

	require.NoError(t, l.Release(ctx))

	again, err := m.Acquire(ctx, "acme", time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, l.Holder, again.Holder)
}

func TestAcquireReplacesExpiredLease(t *testing.T) {
	ctx := context.Background()
	m, c := newManager(t)

	stale, err := m.Acquire(ctx, "acme", time.Minute)
	require.NoError(t, err)

	c.t = c.t.Add(2 * time.Minute)

	fresh, err := m.Acquire(ctx, "acme", time.Minute)
	require.NoError(t, err)

	// the stale holder can neither extend nor release the new lease
	require.ErrorIs(t, stale.Extend(ctx, time.Minute), ErrLost)
	require.NoError(t, stale.Release(ctx))

	_, err = m.Acquire(ctx, "acme", time.Minute)
	require.ErrorIs(t, err, ErrHeld)

	require.NoError(t, fresh.Release(ctx))
}

func TestExtend(t *testing.T) {
	ctx := context.Background()
	m, c := newManager(t)

	l, err := m.Acquire(ctx, "acme", time.Minute)
	require.NoError(t, err)

	c.t = c.t.Add(50 * time.Second)
	require.NoError(t, l.Extend(ctx, time.Minute))
	assert.Equal(t, c.t.Add(time.Minute), l.ExpiresAt)

	c.t = c.t.Add(30 * time.Second)

	_, err = m.Acquire(ctx, "acme", time.Minute)
	require.ErrorIs(t, err, ErrHeld, "an extended lease must still be live")

	require.ErrorIs(t, l.Extend(ctx, 0), ErrInvalidTTL)
}

func TestAcquireInvalidTTL(t *testing.T) {
	m, _ := newManager(t)

	_, err := m.Acquire(context.Background(), "acme", 0)
	require.ErrorIs(t, err, ErrInvalidTTL)
}
