package models

import "time"

// SyncedOrgUnit mirrors one directory organizational unit.
// ParentExternalID refers to another SyncedOrgUnit of the same organization
// but is not a foreign key: parents may arrive later in the same run.
type SyncedOrgUnit struct {
	ID             uint64 `gorm:"primaryKey"`
	OrganizationID string `gorm:"size:64;not null;uniqueIndex:idx_synced_org_units_org_ext"`
	ExternalID     string `gorm:"size:255;not null;uniqueIndex:idx_synced_org_units_org_ext"`

	Name             string  `gorm:"size:255;not null"`
	OrgUnitPath      string  `gorm:"size:1024"`
	ParentExternalID *string `gorm:"size:255"`
	Description      string  `gorm:"type:text"`

	ContentHash string `gorm:"size:64;not null"`
	Raw         []byte

	LastSyncedAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName specifies the database table name for the SyncedOrgUnit model.
func (SyncedOrgUnit) TableName() string {
	return "synced_org_units"
}
