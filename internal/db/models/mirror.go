package models

// Mirror constrains generic store code to the directory mirror tables.
type Mirror interface {
	SyncedUser | SyncedGroup | SyncedOrgUnit
}

// All returns every model managed by AutoMigrate.
func All() []any {
	return []any{
		&Setting{},
		&User{},
		&SyncedUser{},
		&SyncedGroup{},
		&SyncedOrgUnit{},
		&SyncRun{},
		&SyncLease{},
	}
}
