package reconcile

import (
	"fmt"
	"strconv"
	"time"

	"github.com/helios-portal/helios-dirsync/internal/db/models"
	"github.com/helios-portal/helios-dirsync/internal/directory"
)

// State is the lifecycle position of a run.
type State string

const (
	// StateIdle is a run that has not started.
	StateIdle State = "idle"
	// StateRunning is a run holding its transaction.
	StateRunning State = "running"
	// StateCommitted is a run whose changes were persisted.
	StateCommitted State = "committed"
	// StateRolledBack is a run that persisted nothing.
	StateRolledBack State = "rolled_back"
)

// Request names the organization to reconcile and how to reach its directory.
type Request struct {
	OrganizationID string
	Domain         string
	Credentials    directory.Credentials
}

// SyncResult is the structured outcome of one run. Counts are only reported for
// committed runs; a rolled back run persisted nothing.
type SyncResult struct {
	RunID          string      `json:"runId"`
	OrganizationID string      `json:"organizationId"`
	Domain         string      `json:"domain,omitempty"`
	Success        bool        `json:"success"`
	State          State       `json:"state"`
	Users          Counts      `json:"users"`
	Groups         Counts      `json:"groups"`
	OrgUnits       Counts      `json:"orgUnits"`
	Propagation    Propagation `json:"propagation"`
	StartedAt      time.Time   `json:"startedAt"`
	Duration       Duration    `json:"durationMs"`
	Error          string      `json:"error,omitempty"`
}

// Total is the number of upstream records mirrored across all kinds.
func (r SyncResult) Total() int {
	return r.Users.Total + r.Groups.Total + r.OrgUnits.Total
}

// Duration marshals as milliseconds.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(time.Duration(d).Milliseconds(), 10)), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	ms, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("decoding duration: %w", err)
	}

	*d = Duration(time.Duration(ms) * time.Millisecond)

	return nil
}

// Run converts the result into its history row.
func (r SyncResult) Run() *models.SyncRun {
	state := models.SyncRunRolledBack
	if r.State == StateCommitted {
		state = models.SyncRunCommitted
	}

	return &models.SyncRun{
		RunID:            r.RunID,
		OrganizationID:   r.OrganizationID,
		Domain:           r.Domain,
		State:            state,
		Success:          r.Success,
		Error:            r.Error,
		UsersCreated:     r.Users.Created,
		UsersUpdated:     r.Users.Updated,
		UsersRemoved:     r.Users.Removed,
		UsersTotal:       r.Users.Total,
		GroupsCreated:    r.Groups.Created,
		GroupsUpdated:    r.Groups.Updated,
		GroupsRemoved:    r.Groups.Removed,
		GroupsTotal:      r.Groups.Total,
		OrgUnitsCreated:  r.OrgUnits.Created,
		OrgUnitsUpdated:  r.OrgUnits.Updated,
		OrgUnitsRemoved:  r.OrgUnits.Removed,
		OrgUnitsTotal:    r.OrgUnits.Total,
		StatusPropagated: r.Propagation.Updated(),
		StartedAt:        r.StartedAt,
		FinishedAt:       r.StartedAt.Add(time.Duration(r.Duration)),
		DurationMS:       time.Duration(r.Duration).Milliseconds(),
	}
}
