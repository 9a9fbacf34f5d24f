package models

import "time"

// SyncedUser mirrors one directory user. Exactly one row exists per
// (OrganizationID, ExternalID); Email is normalized but is not the identity key.
type SyncedUser struct {
	ID             uint64 `gorm:"primaryKey"`
	OrganizationID string `gorm:"size:64;not null;uniqueIndex:idx_synced_users_org_ext"`
	ExternalID     string `gorm:"size:255;not null;uniqueIndex:idx_synced_users_org_ext"`

	Email             string     `gorm:"size:255;not null;index"`
	GivenName         string     `gorm:"size:100"`
	FamilyName        string     `gorm:"size:100"`
	FullName          string     `gorm:"size:255"`
	IsAdmin           bool       `gorm:"not null"`
	IsDelegatedAdmin  bool       `gorm:"not null"`
	Suspended         bool       `gorm:"not null"`
	OrgUnitPath       string     `gorm:"size:1024"`
	Department        string     `gorm:"size:255"`
	Title             string     `gorm:"size:255"`
	LastLoginAt       *time.Time `gorm:"column:last_login_at"`
	CreatedUpstreamAt *time.Time `gorm:"column:created_upstream_at"`

	// ContentHash fingerprints the normalized fields and Raw for change detection.
	ContentHash string `gorm:"size:64;not null"`
	// Raw is the JSON snapshot of the upstream record.
	Raw []byte

	LastSyncedAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName specifies the database table name for the SyncedUser model.
func (SyncedUser) TableName() string {
	return "synced_users"
}
