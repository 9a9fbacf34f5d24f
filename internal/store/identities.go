package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/helios-portal/helios-dirsync/internal/db/models"
)

// Identities updates the status columns of local identity records from the user mirror.
// Both updates are single conditional statements guarded on the current status, so
// re-running them is a no-op and records in any other state are left alone.
type Identities struct {
	db *gorm.DB
}

// NewIdentities returns an Identities store over db.
func NewIdentities(db *gorm.DB) (*Identities, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	return &Identities{db: db}, nil
}

// SuspendWhereUpstreamSuspended suspends live records linked to a suspended mirror user.
// Records already suspended or marked deleted are skipped.
func (s *Identities) SuspendWhereUpstreamSuspended(ctx context.Context, organizationID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("organization_id = ? AND external_id IN (?)", organizationID, s.linked(organizationID, true)).
		Where("status NOT IN ?", []models.UserStatus{models.UserStatusSuspended, models.UserStatusDeleted}).
		Where("deleted_at IS NULL").
		Updates(map[string]any{"status": models.UserStatusSuspended, "active": false})
	if res.Error != nil {
		return 0, fmt.Errorf("suspending identities: %w", res.Error)
	}

	return res.RowsAffected, nil
}

// ReactivateWhereUpstreamActive reactivates suspended live records linked to an active mirror user.
func (s *Identities) ReactivateWhereUpstreamActive(ctx context.Context, organizationID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("organization_id = ? AND external_id IN (?)", organizationID, s.linked(organizationID, false)).
		Where("status = ?", models.UserStatusSuspended).
		Where("deleted_at IS NULL").
		Updates(map[string]any{"status": models.UserStatusActive, "active": true})
	if res.Error != nil {
		return 0, fmt.Errorf("reactivating identities: %w", res.Error)
	}

	return res.RowsAffected, nil
}

// linked selects the external ids of mirror users of org with the given suspended flag.
func (s *Identities) linked(organizationID string, suspended bool) *gorm.DB {
	return s.db.Session(&gorm.Session{NewDB: true}).
		Model(&models.SyncedUser{}).
		Select("external_id").
		Where("organization_id = ? AND suspended = ?", organizationID, suspended)
}
