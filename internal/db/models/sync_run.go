package models

import "time"

// SyncRunState is the terminal state of a reconciliation run.
type SyncRunState string

const (
	// SyncRunCommitted means every mirror change of the run was persisted.
	SyncRunCommitted SyncRunState = "committed"
	// SyncRunRolledBack means no mirror change of the run was persisted.
	SyncRunRolledBack SyncRunState = "rolled_back"
)

// SyncRun records the outcome of one reconciliation run for history views.
type SyncRun struct {
	ID             uint64       `gorm:"primaryKey" json:"-"`
	RunID          string       `gorm:"size:36;not null;uniqueIndex" json:"runId"`
	OrganizationID string       `gorm:"size:64;not null;index:idx_sync_runs_org_started" json:"organizationId"`
	Domain         string       `gorm:"size:255" json:"domain"`
	State          SyncRunState `gorm:"type:varchar(20);not null" json:"state"`
	Success        bool         `json:"success"`
	Error          string       `gorm:"type:text" json:"error,omitempty"`

	UsersCreated     int   `json:"usersCreated"`
	UsersUpdated     int   `json:"usersUpdated"`
	UsersRemoved     int   `json:"usersRemoved"`
	UsersTotal       int   `json:"usersTotal"`
	GroupsCreated    int   `json:"groupsCreated"`
	GroupsUpdated    int   `json:"groupsUpdated"`
	GroupsRemoved    int   `json:"groupsRemoved"`
	GroupsTotal      int   `json:"groupsTotal"`
	OrgUnitsCreated  int   `json:"orgUnitsCreated"`
	OrgUnitsUpdated  int   `json:"orgUnitsUpdated"`
	OrgUnitsRemoved  int   `json:"orgUnitsRemoved"`
	OrgUnitsTotal    int   `json:"orgUnitsTotal"`
	StatusPropagated int64 `json:"statusPropagated"`

	StartedAt  time.Time `gorm:"index:idx_sync_runs_org_started" json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	DurationMS int64     `json:"durationMs"`
}

// TableName specifies the database table name for the SyncRun model.
func (SyncRun) TableName() string {
	return "sync_runs"
}
