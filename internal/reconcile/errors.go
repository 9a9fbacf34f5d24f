package reconcile

import "errors"

var (
	// ErrDBNil is returned by New without a database handle.
	ErrDBNil = errors.New("database is nil")

	// ErrConnectorNil is returned by New without a directory connector.
	ErrConnectorNil = errors.New("directory connector is nil")

	// ErrOrganizationRequired is reported when a run is requested without an organization.
	ErrOrganizationRequired = errors.New("organization id is required")

	// ErrRemovalThresholdExceeded aborts a run that would remove more of a mirror than allowed.
	ErrRemovalThresholdExceeded = errors.New("removal threshold exceeded")

	// ErrMissingExternalID marks an upstream record without an identifier.
	ErrMissingExternalID = errors.New("record has no external id")

	// ErrMissingEmail marks a user or group without an email address.
	ErrMissingEmail = errors.New("record has no email")

	// ErrMissingName marks an organizational unit without a name.
	ErrMissingName = errors.New("record has no name")
)
