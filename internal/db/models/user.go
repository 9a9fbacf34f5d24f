package models

import "time"

// UserStatus is the lifecycle state of a local identity record.
type UserStatus string

const (
	// UserStatusActive marks a user who may sign in and is provisioned downstream.
	UserStatusActive UserStatus = "active"
	// UserStatusSuspended marks a user blocked because the directory suspended them.
	UserStatusSuspended UserStatus = "suspended"
	// UserStatusPending marks a user invited but not yet onboarded.
	UserStatusPending UserStatus = "pending"
	// UserStatusDeleted marks a user removed by local administration.
	UserStatusDeleted UserStatus = "deleted"
)

// User is the local identity record administered in the portal.
// It is owned by the identity subsystem; directory sync only moves Status and Active
// between active and suspended, and only for records linked through ExternalID.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey"`
	// OrganizationID is the tenant the user belongs to.
	OrganizationID string `gorm:"size:64;not null;index:idx_users_org_external"`
	// Email is the user's email address.
	Email string `gorm:"size:255;not null"`
	// FirstName is the user's first or given name.
	FirstName string `gorm:"size:100"`
	// LastName is the user's last or family name.
	LastName string `gorm:"size:100"`
	// Status is the lifecycle state, see UserStatus.
	Status UserStatus `gorm:"type:varchar(20);not null;default:'active'"`
	// Active mirrors Status for callers that only need a boolean.
	Active bool
	// ExternalID links to SyncedUser.ExternalID when the user comes from the directory.
	ExternalID string `gorm:"size:255;index:idx_users_org_external"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time
	// DeletedAt is the soft delete timestamp, nil while the record is live.
	// Handled explicitly by queries rather than gorm's soft-delete scope.
	DeletedAt *time.Time
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "users"
}
