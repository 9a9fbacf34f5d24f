// Package syncrun stores the history of reconciliation runs.
package syncrun

import (
	"errors"

	"gorm.io/gorm"

	"github.com/helios-portal/helios-dirsync/internal/db/models"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrOrganizationEmpty is returned when a query lacks an organization.
	ErrOrganizationEmpty = errors.New("organization id cannot be empty")
)

// Record inserts run.
func Record(db *gorm.DB, run *models.SyncRun) error {
	if db == nil {
		return ErrDBNil
	}

	if run.OrganizationID == "" {
		return ErrOrganizationEmpty
	}

	return db.Create(run).Error
}

// Latest returns up to limit runs of organizationID, newest first.
func Latest(db *gorm.DB, organizationID string, limit int) ([]models.SyncRun, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if organizationID == "" {
		return nil, ErrOrganizationEmpty
	}

	var runs []models.SyncRun

	q := db.Where("organization_id = ?", organizationID).Order("started_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}

	return runs, nil
}

// Prune keeps the newest keep runs of organizationID and deletes the rest.
// A keep of zero or less disables pruning.
func Prune(db *gorm.DB, organizationID string, keep int) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	if keep <= 0 {
		return 0, nil
	}

	var ids []uint64

	err := db.Model(&models.SyncRun{}).
		Where("organization_id = ?", organizationID).
		Order("started_at DESC").Order("id DESC").
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}

	if len(ids) <= keep {
		return 0, nil
	}

	result := db.Where("id IN ?", ids[keep:]).Delete(&models.SyncRun{})

	return result.RowsAffected, result.Error
}
