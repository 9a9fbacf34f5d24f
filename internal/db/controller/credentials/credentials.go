// Package credentials stores the directory settings of each organization as JSON
// settings named "directory/<organization id>".
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/helios-portal/helios-dirsync/internal/db/controller/setting"
	"github.com/helios-portal/helios-dirsync/internal/directory"
)

const settingPrefix = "directory/"

var (
	// ErrNotFound is returned when an organization has no directory settings.
	ErrNotFound = errors.New("directory settings not found")
	// ErrOrganizationEmpty is returned for an empty organization id.
	ErrOrganizationEmpty = errors.New("organization id cannot be empty")
	// ErrInvalidOrganization is returned for an organization id containing a slash.
	ErrInvalidOrganization = errors.New("organization id cannot contain '/'")
	// ErrRedactedSecret is returned when a redaction placeholder has no stored secret to stand for.
	ErrRedactedSecret = errors.New("redacted secret without stored value")
)

var validate = validator.New(validator.WithRequiredStructEnabled()) //nolint:gochecknoglobals

// Settings is how one organization reaches its directory.
type Settings struct {
	// Domain restricts listings to one primary domain; empty lists the whole customer.
	Domain      string                `json:"domain"      validate:"omitempty,fqdn"`
	Credentials directory.Credentials `json:"credentials" validate:"required"`
	// Disabled excludes the organization from scheduled runs.
	Disabled bool `json:"disabled,omitempty"`
}

// Entry pairs settings with their organization.
type Entry struct {
	OrganizationID string
	Settings       Settings
}

// Validate checks s.
func Validate(s *Settings) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid directory settings: %w", err)
	}

	return nil
}

func settingName(organizationID string) (string, error) {
	switch {
	case organizationID == "":
		return "", ErrOrganizationEmpty
	case strings.Contains(organizationID, "/"):
		return "", ErrInvalidOrganization
	}

	return settingPrefix + organizationID, nil
}

// Load returns the settings of organizationID.
func Load(db *gorm.DB, organizationID string) (*Settings, error) {
	name, err := settingName(organizationID)
	if err != nil {
		return nil, err
	}

	row, err := setting.Get(db, name)
	if err != nil {
		if errors.Is(err, setting.ErrSettingNotFound) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	var s Settings
	if err = json.Unmarshal(row.Value, &s); err != nil {
		return nil, fmt.Errorf("decoding directory settings of %s: %w", organizationID, err)
	}

	return &s, nil
}

// Save validates s and stores it for organizationID. Redacted secrets, as returned
// by a read, keep the stored value; without a stored value they fail with ErrRedactedSecret.
func Save(db *gorm.DB, organizationID string, s *Settings) error {
	name, err := settingName(organizationID)
	if err != nil {
		return err
	}

	if s.Credentials.IsRedacted() {
		stored, errLoad := Load(db, organizationID)

		switch {
		case errLoad == nil:
			s.Credentials = s.Credentials.Unredact(stored.Credentials)
		case !errors.Is(errLoad, ErrNotFound):
			return errLoad
		}

		if s.Credentials.IsRedacted() {
			return ErrRedactedSecret
		}
	}

	if err = Validate(s); err != nil {
		return err
	}

	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding directory settings: %w", err)
	}

	_, err = setting.Set(db, name, b)

	return err
}

// List returns the settings of every organization ordered by id. Rows that fail to
// decode are returned in the error and skipped.
func List(db *gorm.DB) ([]Entry, error) {
	rows, err := setting.ListPrefix(db, settingPrefix)
	if err != nil {
		return nil, err
	}

	var (
		out  = make([]Entry, 0, len(rows))
		errs []error
	)

	for _, row := range rows {
		var s Settings
		if errDecode := json.Unmarshal(row.Value, &s); errDecode != nil {
			errs = append(errs, fmt.Errorf("decoding %s: %w", row.Name, errDecode))

			continue
		}

		out = append(out, Entry{OrganizationID: strings.TrimPrefix(row.Name, settingPrefix), Settings: s})
	}

	return out, errors.Join(errs...)
}

// Delete removes the settings of organizationID.
func Delete(db *gorm.DB, organizationID string) error {
	name, err := settingName(organizationID)
	if err != nil {
		return err
	}

	if err = setting.DeleteByName(db, name); err != nil {
		if errors.Is(err, setting.ErrSettingNotFound) {
			return ErrNotFound
		}

		return err
	}

	return nil
}
