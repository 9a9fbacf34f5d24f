// Package store is the relational side of a sync run: the three mirror tables and
// the status columns of local identity records. Every store works on the *gorm.DB it
// is given, which during a run is the orchestrator's transaction.
package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/helios-portal/helios-dirsync/internal/db/models"
)

const (
	// DefaultBatchSize bounds the rows per INSERT and the ids per DELETE ... IN.
	DefaultBatchSize = 500
)

// Mirror reads and writes one mirror table scoped by organization.
type Mirror[M models.Mirror] struct {
	db        *gorm.DB
	batchSize int
}

// NewMirror returns a Mirror over db.
func NewMirror[M models.Mirror](db *gorm.DB) (*Mirror[M], error) {
	if db == nil {
		return nil, ErrDBNil
	}

	return &Mirror[M]{db: db, batchSize: DefaultBatchSize}, nil
}

// WithBatchSize overrides DefaultBatchSize.
func (m *Mirror[M]) WithBatchSize(n int) *Mirror[M] {
	if n > 0 {
		m.batchSize = n
	}

	return m
}

type fingerprint struct {
	ExternalID  string
	ContentHash string
}

// Fingerprints returns external id -> content hash for every mirrored row of org.
func (m *Mirror[M]) Fingerprints(ctx context.Context, organizationID string) (map[string]string, error) {
	var rows []fingerprint

	err := m.db.WithContext(ctx).
		Model(new(M)).
		Select("external_id", "content_hash").
		Where("organization_id = ?", organizationID).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading fingerprints: %w", err)
	}

	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.ExternalID] = r.ContentHash
	}

	return out, nil
}

// Upsert inserts records or overwrites the row with the same (organization, external id).
// The records must not repeat an external id.
func (m *Mirror[M]) Upsert(ctx context.Context, records []M) error {
	if len(records) == 0 {
		return nil
	}

	err := m.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "organization_id"}, {Name: "external_id"}},
			UpdateAll: true,
		}).
		CreateInBatches(&records, m.batchSize).Error
	if err != nil {
		return fmt.Errorf("upserting %d records: %w", len(records), err)
	}

	return nil
}

// Delete removes the rows of org with the given external ids and reports how many went.
func (m *Mirror[M]) Delete(ctx context.Context, organizationID string, externalIDs []string) (int64, error) {
	var removed int64

	for start := 0; start < len(externalIDs); start += m.batchSize {
		end := min(start+m.batchSize, len(externalIDs))

		res := m.db.WithContext(ctx).
			Where("organization_id = ? AND external_id IN ?", organizationID, externalIDs[start:end]).
			Delete(new(M))
		if res.Error != nil {
			return removed, fmt.Errorf("deleting records: %w", res.Error)
		}

		removed += res.RowsAffected
	}

	return removed, nil
}

// Touch stamps last_synced_at on every mirrored row of org.
// It runs as one statement and does not change content or updated_at.
func (m *Mirror[M]) Touch(ctx context.Context, organizationID string, at time.Time) error {
	err := m.db.WithContext(ctx).
		Model(new(M)).
		Where("organization_id = ?", organizationID).
		UpdateColumn("last_synced_at", at).Error
	if err != nil {
		return fmt.Errorf("stamping last sync: %w", err)
	}

	return nil
}

// Count returns the number of mirrored rows of org.
func (m *Mirror[M]) Count(ctx context.Context, organizationID string) (int64, error) {
	var n int64

	if err := m.db.WithContext(ctx).Model(new(M)).Where("organization_id = ?", organizationID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}

	return n, nil
}

// List returns the mirrored rows of org ordered by external id.
func (m *Mirror[M]) List(ctx context.Context, organizationID string) ([]M, error) {
	var out []M

	if err := m.db.WithContext(ctx).Where("organization_id = ?", organizationID).Order("external_id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	return out, nil
}
