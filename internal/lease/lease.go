// Package lease serializes sync runs per organization with expiring rows in the
// sync_leases table. A lease outlives a crashed holder only until it expires.
package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/helios-portal/helios-dirsync/internal/db/models"
)

var (
	// ErrHeld is returned by Acquire while another holder owns the organization's lease.
	ErrHeld = errors.New("sync lease is held")
	// ErrLost is returned when a lease was taken over after it expired.
	ErrLost = errors.New("sync lease lost")
	// ErrDBNil is returned when the manager is built without a database handle.
	ErrDBNil = errors.New("database is nil")
	// ErrInvalidTTL is returned for a non-positive lease lifetime.
	ErrInvalidTTL = errors.New("lease ttl must be positive")
)

// Manager hands out leases.
type Manager struct {
	db  *gorm.DB
	now func() time.Time
}

// NewManager returns a Manager over db.
func NewManager(db *gorm.DB) (*Manager, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	return &Manager{db: db, now: time.Now}, nil
}

// Lease is an acquired lease.
type Lease struct {
	OrganizationID string
	Holder         string
	ExpiresAt      time.Time

	m *Manager
}

// Acquire takes the lease of organizationID for ttl. An expired lease of another
// holder is replaced; a live one yields ErrHeld.
func (m *Manager) Acquire(ctx context.Context, organizationID string, ttl time.Duration) (*Lease, error) {
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}

	now := m.now().UTC()
	row := models.SyncLease{
		OrganizationID: organizationID,
		Holder:         uuid.NewString(),
		AcquiredAt:     now,
		ExpiresAt:      now.Add(ttl),
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expired := tx.Where("organization_id = ? AND expires_at <= ?", organizationID, now).Delete(&models.SyncLease{})
		if expired.Error != nil {
			return expired.Error
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return ErrHeld
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrHeld) {
			return nil, fmt.Errorf("%w: organization %s", ErrHeld, organizationID)
		}

		return nil, fmt.Errorf("acquiring sync lease: %w", err)
	}

	return &Lease{OrganizationID: organizationID, Holder: row.Holder, ExpiresAt: row.ExpiresAt, m: m}, nil
}

// Extend pushes the expiry of l to ttl from now.
func (l *Lease) Extend(ctx context.Context, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	expires := l.m.now().UTC().Add(ttl)

	res := l.m.db.WithContext(ctx).
		Model(&models.SyncLease{}).
		Where("organization_id = ? AND holder = ?", l.OrganizationID, l.Holder).
		Update("expires_at", expires)
	if res.Error != nil {
		return fmt.Errorf("extending sync lease: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrLost
	}

	l.ExpiresAt = expires

	return nil
}

// Release gives the lease up. Releasing a lease that was taken over is a no-op.
func (l *Lease) Release(ctx context.Context) error {
	err := l.m.db.WithContext(ctx).
		Where("organization_id = ? AND holder = ?", l.OrganizationID, l.Holder).
		Delete(&models.SyncLease{}).Error
	if err != nil {
		return fmt.Errorf("releasing sync lease: %w", err)
	}

	return nil
}
