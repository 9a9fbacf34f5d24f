package models

import "time"

// SyncLease is the advisory lock serializing runs of one organization.
type SyncLease struct {
	OrganizationID string `gorm:"primaryKey;size:64"`
	Holder         string `gorm:"size:64;not null"`
	AcquiredAt     time.Time
	ExpiresAt      time.Time `gorm:"index"`
}

// TableName specifies the database table name for the SyncLease model.
func (SyncLease) TableName() string {
	return "sync_leases"
}
