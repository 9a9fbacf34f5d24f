package models

import "time"

// SyncedGroup mirrors one directory group.
type SyncedGroup struct {
	ID             uint64 `gorm:"primaryKey"`
	OrganizationID string `gorm:"size:64;not null;uniqueIndex:idx_synced_groups_org_ext"`
	ExternalID     string `gorm:"size:255;not null;uniqueIndex:idx_synced_groups_org_ext"`

	Email       string `gorm:"size:255;not null"`
	Name        string `gorm:"size:255"`
	Description string `gorm:"type:text"`
	// MemberCount is a presence indicator: 1 when the group has at least one
	// direct member, 0 otherwise. It is not an exact count.
	MemberCount int64

	ContentHash string `gorm:"size:64;not null"`
	Raw         []byte

	LastSyncedAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName specifies the database table name for the SyncedGroup model.
func (SyncedGroup) TableName() string {
	return "synced_groups"
}
